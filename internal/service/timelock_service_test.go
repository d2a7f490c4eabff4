package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type mockScheduleTimeReader struct {
	details map[string]*models.ClassScheduleDetail
	byDay   []models.ClassScheduleDetail
}

func (m *mockScheduleTimeReader) FindDetailByID(ctx context.Context, id string) (*models.ClassScheduleDetail, error) {
	if d, ok := m.details[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockScheduleTimeReader) ListByTeacherAndDay(ctx context.Context, teacherID string, day int) ([]models.ClassScheduleDetail, error) {
	var out []models.ClassScheduleDetail
	for _, d := range m.byDay {
		if d.TeacherID == teacherID && d.DayOfWeek == day {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockScheduleTimeReader) ExistsAnyTenant(ctx context.Context, id string) (bool, error) {
	return false, nil
}

type mockTenantZone struct {
	timezone string
}

func (m *mockTenantZone) Current(ctx context.Context) (*models.Tenant, error) {
	tz := m.timezone
	if tz == "" {
		tz = "UTC"
	}
	return &models.Tenant{ID: "tenant-1", Timezone: tz}, nil
}

type mockSessionMarks struct {
	marked map[string]bool
}

func (m *mockSessionMarks) ExistsForSession(ctx context.Context, scheduleID string, date time.Time) (bool, error) {
	return m.marked[scheduleID], nil
}

// mondaySchedule meets Mondays 09:00-10:00 with a 15 minute grace.
func mondaySchedule(id, teacherID string) *models.ClassScheduleDetail {
	return &models.ClassScheduleDetail{
		ClassSchedule: models.ClassSchedule{
			ID:           id,
			OfferingID:   "off-1",
			DayOfWeek:    1,
			StartTime:    "09:00",
			EndTime:      "10:00",
			GraceMinutes: 15,
		},
		TeacherID: teacherID,
	}
}

func timeLockAt(schedules *mockScheduleTimeReader, marks *mockSessionMarks, zone string, at time.Time) *TimeLockService {
	svc := NewTimeLockService(schedules, &mockTenantZone{timezone: zone}, marks, "UTC", zap.NewNop())
	return svc.WithClock(func() time.Time { return at })
}

// 2025-03-03 is a Monday.
func mondayAt(hour, min, sec int) time.Time {
	return time.Date(2025, 3, 3, hour, min, sec, 0, time.UTC)
}

func TestAuthorizeAtWindowOpen(t *testing.T) {
	schedules := &mockScheduleTimeReader{details: map[string]*models.ClassScheduleDetail{"sched-1": mondaySchedule("sched-1", "teacher-1")}}
	svc := timeLockAt(schedules, &mockSessionMarks{}, "UTC", mondayAt(9, 0, 0))

	detail, date, err := svc.Authorize(context.Background(), "sched-1", "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, "sched-1", detail.ID)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), date)
}

func TestAuthorizeAtGraceBoundary(t *testing.T) {
	schedules := &mockScheduleTimeReader{details: map[string]*models.ClassScheduleDetail{"sched-1": mondaySchedule("sched-1", "teacher-1")}}
	svc := timeLockAt(schedules, &mockSessionMarks{}, "UTC", mondayAt(9, 15, 0))

	_, _, err := svc.Authorize(context.Background(), "sched-1", "teacher-1")
	require.NoError(t, err)
}

func TestAuthorizeOneSecondPastGrace(t *testing.T) {
	schedules := &mockScheduleTimeReader{details: map[string]*models.ClassScheduleDetail{"sched-1": mondaySchedule("sched-1", "teacher-1")}}
	svc := timeLockAt(schedules, &mockSessionMarks{}, "UTC", mondayAt(9, 15, 1))

	_, _, err := svc.Authorize(context.Background(), "sched-1", "teacher-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrWindowExpired))
}

func TestAuthorizeBeforeStart(t *testing.T) {
	schedules := &mockScheduleTimeReader{details: map[string]*models.ClassScheduleDetail{"sched-1": mondaySchedule("sched-1", "teacher-1")}}
	svc := timeLockAt(schedules, &mockSessionMarks{}, "UTC", mondayAt(8, 59, 59))

	_, _, err := svc.Authorize(context.Background(), "sched-1", "teacher-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrWindowExpired))
}

func TestAuthorizeWrongDay(t *testing.T) {
	schedules := &mockScheduleTimeReader{details: map[string]*models.ClassScheduleDetail{"sched-1": mondaySchedule("sched-1", "teacher-1")}}
	// 2025-03-04 is a Tuesday.
	svc := timeLockAt(schedules, &mockSessionMarks{}, "UTC", time.Date(2025, 3, 4, 9, 5, 0, 0, time.UTC))

	_, _, err := svc.Authorize(context.Background(), "sched-1", "teacher-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrWindowExpired))
}

func TestAuthorizeWrongTeacher(t *testing.T) {
	schedules := &mockScheduleTimeReader{details: map[string]*models.ClassScheduleDetail{"sched-1": mondaySchedule("sched-1", "teacher-1")}}
	svc := timeLockAt(schedules, &mockSessionMarks{}, "UTC", mondayAt(9, 5, 0))

	_, _, err := svc.Authorize(context.Background(), "sched-1", "teacher-2")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthorizeArchivedSchedule(t *testing.T) {
	detail := mondaySchedule("sched-1", "teacher-1")
	detail.Archived = true
	schedules := &mockScheduleTimeReader{details: map[string]*models.ClassScheduleDetail{"sched-1": detail}}
	svc := timeLockAt(schedules, &mockSessionMarks{}, "UTC", mondayAt(9, 5, 0))

	_, _, err := svc.Authorize(context.Background(), "sched-1", "teacher-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAuthorizeAlreadyMarked(t *testing.T) {
	schedules := &mockScheduleTimeReader{details: map[string]*models.ClassScheduleDetail{"sched-1": mondaySchedule("sched-1", "teacher-1")}}
	marks := &mockSessionMarks{marked: map[string]bool{"sched-1": true}}
	svc := timeLockAt(schedules, marks, "UTC", mondayAt(9, 5, 0))

	_, _, err := svc.Authorize(context.Background(), "sched-1", "teacher-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyMarked))
}

func TestAuthorizeUnknownTimezoneFallsBack(t *testing.T) {
	schedules := &mockScheduleTimeReader{details: map[string]*models.ClassScheduleDetail{"sched-1": mondaySchedule("sched-1", "teacher-1")}}
	svc := timeLockAt(schedules, &mockSessionMarks{}, "Pakistan Standard Time", mondayAt(9, 5, 0))

	// The IANA database has no such zone; the decision falls back to the
	// configured default instead of failing.
	_, _, err := svc.Authorize(context.Background(), "sched-1", "teacher-1")
	require.NoError(t, err)
}

func TestTeacherStatusActiveWindow(t *testing.T) {
	schedules := &mockScheduleTimeReader{byDay: []models.ClassScheduleDetail{*mondaySchedule("sched-1", "teacher-1")}}
	svc := timeLockAt(schedules, &mockSessionMarks{}, "UTC", mondayAt(9, 10, 0))

	status, err := svc.TeacherStatus(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, status.State)
	require.NotNil(t, status.Schedule)
	assert.Equal(t, "sched-1", status.Schedule.ID)
	assert.Equal(t, 300, status.SecondsLeft)
}

func TestTeacherStatusUpcoming(t *testing.T) {
	schedules := &mockScheduleTimeReader{byDay: []models.ClassScheduleDetail{*mondaySchedule("sched-1", "teacher-1")}}
	svc := timeLockAt(schedules, &mockSessionMarks{}, "UTC", mondayAt(8, 30, 0))

	status, err := svc.TeacherStatus(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionUpcoming, status.State)
	assert.Equal(t, 1800, status.SecondsToStart)
}

func TestTeacherStatusMarkedThenLaterSession(t *testing.T) {
	later := *mondaySchedule("sched-2", "teacher-1")
	later.StartTime = "11:00"
	later.EndTime = "12:00"
	schedules := &mockScheduleTimeReader{byDay: []models.ClassScheduleDetail{*mondaySchedule("sched-1", "teacher-1"), later}}
	marks := &mockSessionMarks{marked: map[string]bool{"sched-1": true}}
	svc := timeLockAt(schedules, marks, "UTC", mondayAt(9, 10, 0))

	status, err := svc.TeacherStatus(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionUpcoming, status.State)
	require.NotNil(t, status.Schedule)
	assert.Equal(t, "sched-2", status.Schedule.ID)
}

func TestTeacherStatusNothingLeft(t *testing.T) {
	schedules := &mockScheduleTimeReader{byDay: []models.ClassScheduleDetail{*mondaySchedule("sched-1", "teacher-1")}}
	svc := timeLockAt(schedules, &mockSessionMarks{}, "UTC", mondayAt(16, 0, 0))

	status, err := svc.TeacherStatus(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionNone, status.State)
	assert.NotEmpty(t, status.Reason)
}

func TestTeacherStatusNoSchedulesToday(t *testing.T) {
	svc := timeLockAt(&mockScheduleTimeReader{}, &mockSessionMarks{}, "UTC", mondayAt(9, 0, 0))

	status, err := svc.TeacherStatus(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionNone, status.State)
	assert.Equal(t, "no classes scheduled today", status.Reason)
}
