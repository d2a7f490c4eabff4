package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type attendanceStore interface {
	CreateBatch(ctx context.Context, records []models.AttendanceRecord) error
	SessionReport(ctx context.Context, scheduleID string, date time.Time) ([]models.SessionReportRow, error)
	StudentCounts(ctx context.Context, studentID, offeringID string) (*models.AttendanceCounts, error)
}

type rosterReader interface {
	ListByOffering(ctx context.Context, offeringID string) ([]models.EnrollmentDetail, error)
}

type windowAuthorizer interface {
	Authorize(ctx context.Context, scheduleID, teacherID string) (*models.ClassScheduleDetail, time.Time, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// MarkRecord is one student's status inside a submission.
type MarkRecord struct {
	EnrollmentID string                  `json:"enrollment_id" validate:"required"`
	Status       models.AttendanceStatus `json:"status" validate:"required"`
}

// SubmitAttendanceRequest is a full-session submission. Partial sheets are
// rejected: the batch must cover the offering's roster exactly.
type SubmitAttendanceRequest struct {
	ScheduleID string       `json:"schedule_id" validate:"required"`
	Records    []MarkRecord `json:"records" validate:"required,min=1,dive"`
}

// SubmitAttendanceResponse reports the stored session.
type SubmitAttendanceResponse struct {
	ScheduleID string                  `json:"schedule_id"`
	Date       time.Time               `json:"date"`
	Counts     models.AttendanceCounts `json:"counts"`
}

// SessionReportResponse is the cached per-session report payload.
type SessionReportResponse struct {
	ScheduleID string                    `json:"schedule_id"`
	Date       time.Time                 `json:"date"`
	Rows       []models.SessionReportRow `json:"rows"`
	Counts     models.AttendanceCounts   `json:"counts"`
}

// AttendanceService orchestrates attendance submission and reads. Every
// write re-derives its authorization through the time-lock engine; nothing
// a client saw earlier is trusted.
type AttendanceService struct {
	repo        attendanceStore
	enrollments rosterReader
	timeLock    windowAuthorizer
	cache       reportCache
	cacheTTL    time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(repo attendanceStore, enrollments rosterReader, timeLock windowAuthorizer, cache reportCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &AttendanceService{repo: repo, enrollments: enrollments, timeLock: timeLock, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Submit stores one session's attendance as a single batch.
func (s *AttendanceService) Submit(ctx context.Context, teacherID string, req SubmitAttendanceRequest) (*SubmitAttendanceResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	for i := range req.Records {
		if !req.Records[i].Status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown attendance status %q", req.Records[i].Status))
		}
	}

	schedule, date, err := s.timeLock.Authorize(ctx, req.ScheduleID, teacherID)
	if err != nil {
		return nil, err
	}

	roster, err := s.enrollments.ListByOffering(ctx, schedule.OfferingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	if len(roster) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "offering has no enrolled students")
	}

	statusByEnrollment := make(map[string]models.AttendanceStatus, len(req.Records))
	for i := range req.Records {
		if _, dup := statusByEnrollment[req.Records[i].EnrollmentID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate enrollment in submission")
		}
		statusByEnrollment[req.Records[i].EnrollmentID] = req.Records[i].Status
	}

	// The submission must be exactly the roster: one status per enrolled
	// student, nothing extra.
	if len(statusByEnrollment) != len(roster) {
		return nil, appErrors.Clone(appErrors.ErrIncompleteSubmission, fmt.Sprintf("submission covers %d of %d enrolled students", len(statusByEnrollment), len(roster)))
	}

	records := make([]models.AttendanceRecord, 0, len(roster))
	var counts models.AttendanceCounts
	for i := range roster {
		status, ok := statusByEnrollment[roster[i].ID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrIncompleteSubmission, "submission references students outside the roster")
		}
		switch status {
		case models.AttendanceStatusPresent:
			counts.Present++
		case models.AttendanceStatusAbsent:
			counts.Absent++
		case models.AttendanceStatusLeave:
			counts.Leave++
		}
		records = append(records, models.AttendanceRecord{
			EnrollmentID: roster[i].ID,
			OfferingID:   schedule.OfferingID,
			ScheduleID:   schedule.ID,
			Date:         date,
			Status:       status,
			MarkedBy:     teacherID,
		})
	}
	counts.Total = counts.Present + counts.Absent + counts.Leave

	if err := s.repo.CreateBatch(ctx, records); err != nil {
		if appErrors.Is(err, appErrors.ErrAlreadyMarked) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attendance")
	}

	if s.cache != nil {
		if err := s.cache.InvalidatePrefix(ctx, reportKeyPrefix); err != nil {
			s.logger.Warn("failed to invalidate report cache", zap.Error(err))
		}
	}

	s.logger.Info("attendance submitted",
		zap.String("schedule_id", schedule.ID),
		zap.Time("date", date),
		zap.Int("records", len(records)),
	)
	return &SubmitAttendanceResponse{ScheduleID: schedule.ID, Date: date, Counts: counts}, nil
}

const reportKeyPrefix = "reports:"

// SessionReport returns one session's per-student rows with totals.
func (s *AttendanceService) SessionReport(ctx context.Context, scheduleID string, date time.Time) (*SessionReportResponse, error) {
	key := fmt.Sprintf("%ssession:%s:%s", reportKeyPrefix, scheduleID, date.Format("2006-01-02"))
	if s.cache != nil {
		var cached SessionReportResponse
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	rows, err := s.repo.SessionReport(ctx, scheduleID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session report")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no attendance recorded for this session")
	}

	var counts models.AttendanceCounts
	for i := range rows {
		switch rows[i].Status {
		case models.AttendanceStatusPresent:
			counts.Present++
		case models.AttendanceStatusAbsent:
			counts.Absent++
		case models.AttendanceStatusLeave:
			counts.Leave++
		}
	}
	counts.Total = len(rows)

	report := &SessionReportResponse{ScheduleID: scheduleID, Date: date, Rows: rows, Counts: counts}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, report, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache session report", zap.Error(err))
		}
	}
	return report, nil
}

// StudentSummary returns a student's raw status totals, optionally scoped
// to a single offering. Totals only; no percentage is derived here.
func (s *AttendanceService) StudentSummary(ctx context.Context, studentID, offeringID string) (*models.AttendanceCounts, error) {
	key := fmt.Sprintf("%sstudent:%s:%s", reportKeyPrefix, studentID, offeringID)
	if s.cache != nil {
		var cached models.AttendanceCounts
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	counts, err := s.repo.StudentCounts(ctx, studentID, offeringID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student summary")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, counts, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache student summary", zap.Error(err))
		}
	}
	return counts, nil
}
