package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	windowDenials   *prometheus.CounterVec
	crossTenant     prometheus.Counter
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_submissions_total",
		Help: "Attendance submissions by outcome",
	}, []string{"outcome"})

	windowDenials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_window_denials_total",
		Help: "Submissions refused by the time-lock, by reason",
	}, []string{"reason"})

	crossTenant := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cross_tenant_violations_total",
		Help: "Requests that referenced another tenant's entity",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, submissions, windowDenials, crossTenant, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		submissions:     submissions,
		windowDenials:   windowDenials,
		crossTenant:     crossTenant,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordSubmission counts an attendance submission outcome, e.g. "stored"
// or "rejected".
func (m *MetricsService) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// RecordWindowDenial counts a time-lock refusal by error code.
func (m *MetricsService) RecordWindowDenial(reason string) {
	if m == nil {
		return
	}
	m.windowDenials.WithLabelValues(reason).Inc()
}

// RecordCrossTenantViolation counts a cross-tenant access attempt.
func (m *MetricsService) RecordCrossTenantViolation() {
	if m == nil {
		return
	}
	m.crossTenant.Inc()
}
