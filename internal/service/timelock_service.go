package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type scheduleTimeReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.ClassScheduleDetail, error)
	ListByTeacherAndDay(ctx context.Context, teacherID string, day int) ([]models.ClassScheduleDetail, error)
	ExistsAnyTenant(ctx context.Context, id string) (bool, error)
}

type tenantZoneReader interface {
	Current(ctx context.Context) (*models.Tenant, error)
}

type sessionMarkReader interface {
	ExistsForSession(ctx context.Context, scheduleID string, date time.Time) (bool, error)
}

// TimeLockService decides when attendance for a schedule may be written.
// The window for a session is [start, start+grace], inclusive on both
// ends, evaluated against the tenant's local wall clock. Every decision is
// re-derived from persistent schedule data at the moment of the call; a
// window shown open to a client buys nothing at submit time.
type TimeLockService struct {
	schedules  scheduleTimeReader
	tenants    tenantZoneReader
	attendance sessionMarkReader
	logger     *zap.Logger

	// now is replaceable so window boundaries can be pinned in tests.
	now          func() time.Time
	fallbackZone string
}

// NewTimeLockService constructs TimeLockService. fallbackZone applies when
// a tenant carries no loadable timezone.
func NewTimeLockService(schedules scheduleTimeReader, tenants tenantZoneReader, attendance sessionMarkReader, fallbackZone string, logger *zap.Logger) *TimeLockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fallbackZone == "" {
		fallbackZone = "Asia/Karachi"
	}
	return &TimeLockService{
		schedules:    schedules,
		tenants:      tenants,
		attendance:   attendance,
		logger:       logger,
		now:          time.Now,
		fallbackZone: fallbackZone,
	}
}

// WithClock replaces the wall-clock source.
func (s *TimeLockService) WithClock(now func() time.Time) *TimeLockService {
	s.now = now
	return s
}

// localNow returns the current time in the tenant's zone.
func (s *TimeLockService) localNow(ctx context.Context) (time.Time, error) {
	tenant, err := s.tenants.Current(ctx)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tenant")
	}
	loc, err := time.LoadLocation(tenant.Timezone)
	if err != nil {
		s.logger.Warn("unknown tenant timezone, using fallback",
			zap.String("timezone", tenant.Timezone),
			zap.String("fallback", s.fallbackZone),
		)
		loc, err = time.LoadLocation(s.fallbackZone)
		if err != nil {
			loc = time.UTC
		}
	}
	return s.now().In(loc), nil
}

// sessionDate truncates a local time to its calendar date. Attendance rows
// store the date zone-free; two sessions of the same schedule on different
// local days never collide.
func sessionDate(local time.Time) time.Time {
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// secondOfDay converts a local time to seconds since local midnight.
func secondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// window returns the markable range of a schedule in seconds since
// midnight. Both bounds are inclusive.
func window(schedule *models.ClassSchedule) (int, int, error) {
	start, err := models.MinuteOfDay(schedule.StartTime)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "malformed schedule start time")
	}
	grace := schedule.GraceMinutes
	if grace < 0 {
		grace = 0
	}
	return start * 60, (start + grace) * 60, nil
}

// Authorize re-derives the window decision for a write against one
// schedule. On success it returns the session date the records must carry.
func (s *TimeLockService) Authorize(ctx context.Context, scheduleID, teacherID string) (*models.ClassScheduleDetail, time.Time, error) {
	detail, err := s.schedules.FindDetailByID(ctx, scheduleID)
	if err != nil {
		if isNoRows(err) {
			return nil, time.Time{}, resolveMiss(ctx, s.logger, "schedule", scheduleID, s.schedules.ExistsAnyTenant)
		}
		return nil, time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if detail.Archived {
		return nil, time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "schedule is archived")
	}
	if detail.TeacherID != teacherID {
		return nil, time.Time{}, appErrors.Clone(appErrors.ErrUnauthorized, "schedule belongs to another teacher")
	}

	local, err := s.localNow(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	if int(local.Weekday()) != detail.DayOfWeek {
		return nil, time.Time{}, appErrors.Clone(appErrors.ErrWindowExpired, "this class does not meet today")
	}

	startSec, endSec, err := window(&detail.ClassSchedule)
	if err != nil {
		return nil, time.Time{}, err
	}
	nowSec := secondOfDay(local)
	if nowSec < startSec || nowSec > endSec {
		return nil, time.Time{}, appErrors.Clone(appErrors.ErrWindowExpired, "the attendance window for this session is not open")
	}

	date := sessionDate(local)
	marked, err := s.attendance.ExistsForSession(ctx, detail.ID, date)
	if err != nil {
		return nil, time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check session state")
	}
	if marked {
		return nil, time.Time{}, appErrors.Clone(appErrors.ErrAlreadyMarked, "attendance for this session has already been marked")
	}
	return detail, date, nil
}

// TeacherStatus evaluates the teacher's schedules for the current local
// day and reports the single most relevant one. Precedence follows the
// day's timeline: an open unmarked window wins, otherwise the nearest
// future start, otherwise nothing is markable today.
func (s *TimeLockService) TeacherStatus(ctx context.Context, teacherID string) (*models.SessionStatus, error) {
	local, err := s.localNow(ctx)
	if err != nil {
		return nil, err
	}

	schedules, err := s.schedules.ListByTeacherAndDay(ctx, teacherID, int(local.Weekday()))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	if len(schedules) == 0 {
		return &models.SessionStatus{State: models.SessionNone, Reason: "no classes scheduled today", LocalTime: local}, nil
	}

	nowSec := secondOfDay(local)
	date := sessionDate(local)
	anyMarked := false

	for i := range schedules {
		detail := schedules[i]
		startSec, endSec, err := window(&detail.ClassSchedule)
		if err != nil {
			return nil, err
		}
		switch {
		case nowSec >= startSec && nowSec <= endSec:
			marked, err := s.attendance.ExistsForSession(ctx, detail.ID, date)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check session state")
			}
			if marked {
				anyMarked = true
				continue
			}
			return &models.SessionStatus{
				State:       models.SessionActive,
				Schedule:    &schedules[i].ClassSchedule,
				SecondsLeft: endSec - nowSec,
				LocalTime:   local,
			}, nil
		case nowSec < startSec:
			// Schedules arrive ordered by start time, so the first
			// future start is the nearest one.
			return &models.SessionStatus{
				State:          models.SessionUpcoming,
				Schedule:       &schedules[i].ClassSchedule,
				SecondsToStart: startSec - nowSec,
				LocalTime:      local,
			}, nil
		}
	}

	reason := "all attendance windows for today have closed"
	if anyMarked {
		reason = "attendance for today's open session is already marked"
	}
	return &models.SessionStatus{State: models.SessionNone, Reason: reason, LocalTime: local}, nil
}
