package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly-api/internal/service"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
	"github.com/attendly/attendly-api/pkg/response"
)

// AttendanceHandler handles attendance submission and report endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
	metrics    *service.MetricsService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(attendance *service.AttendanceService, metrics *service.MetricsService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, metrics: metrics}
}

// Submit godoc
// @Summary Submit a full attendance session for the open window
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.SubmitAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	resp, err := h.attendance.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		h.recordOutcome(err)
		response.Error(c, err)
		return
	}
	h.metrics.RecordSubmission("accepted")
	response.Created(c, resp)
}

func (h *AttendanceHandler) recordOutcome(err error) {
	switch {
	case appErrors.Is(err, appErrors.ErrWindowExpired):
		h.metrics.RecordSubmission("rejected")
		h.metrics.RecordWindowDenial("window_expired")
	case appErrors.Is(err, appErrors.ErrAlreadyMarked):
		h.metrics.RecordSubmission("rejected")
		h.metrics.RecordWindowDenial("already_marked")
	case appErrors.Is(err, appErrors.ErrCrossTenant):
		h.metrics.RecordCrossTenantViolation()
	default:
		h.metrics.RecordSubmission("rejected")
	}
}

// SessionReport godoc
// @Summary Report one session's attendance rows and counts
// @Tags Attendance
// @Produce json
// @Param id path string true "Schedule ID"
// @Param date query string true "Session date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/sessions/{id} [get]
func (h *AttendanceHandler) SessionReport(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}
	report, err := h.attendance.SessionReport(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// StudentSummary godoc
// @Summary Summarize a student's attendance counts
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Param offering_id query string false "Restrict to one offering"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/attendance [get]
func (h *AttendanceHandler) StudentSummary(c *gin.Context) {
	counts, err := h.attendance.StudentSummary(c.Request.Context(), c.Param("id"), c.Query("offering_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}
