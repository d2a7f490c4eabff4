package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/attendly-api/internal/models"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type mockScheduleStore struct {
	schedules map[string]*models.ClassSchedule
	created   []*models.ClassSchedule
	updated   []*models.ClassSchedule
	archived  []string
}

func (m *mockScheduleStore) Create(ctx context.Context, schedule *models.ClassSchedule) error {
	schedule.ID = "sched-new"
	m.created = append(m.created, schedule)
	return nil
}

func (m *mockScheduleStore) Update(ctx context.Context, schedule *models.ClassSchedule) error {
	m.updated = append(m.updated, schedule)
	return nil
}

func (m *mockScheduleStore) Archive(ctx context.Context, id string) error {
	m.archived = append(m.archived, id)
	return nil
}

func (m *mockScheduleStore) FindByID(ctx context.Context, id string) (*models.ClassSchedule, error) {
	if s, ok := m.schedules[id]; ok {
		out := *s
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockScheduleStore) ListByOffering(ctx context.Context, offeringID string, includeArchived bool) ([]models.ClassSchedule, error) {
	var out []models.ClassSchedule
	for _, s := range m.schedules {
		if s.OfferingID == offeringID && (includeArchived || !s.Archived) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockScheduleStore) ListSameDay(ctx context.Context, offeringID string, day int, excludeID string) ([]models.ClassSchedule, error) {
	var out []models.ClassSchedule
	for _, s := range m.schedules {
		if s.OfferingID == offeringID && s.DayOfWeek == day && !s.Archived && s.ID != excludeID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockScheduleStore) ExistsAnyTenant(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func newScheduleService(store *mockScheduleStore) *ScheduleService {
	offerings := &mockOfferingCatalog{offerings: map[string]*models.CourseOffering{"off-1": {ID: "off-1"}}}
	return NewScheduleService(store, offerings, nil, nil)
}

func existingSlot(id string, day int, start, end string) *models.ClassSchedule {
	return &models.ClassSchedule{ID: id, OfferingID: "off-1", DayOfWeek: day, StartTime: start, EndTime: end, GraceMinutes: 15}
}

func TestCreateScheduleRejectsOverlap(t *testing.T) {
	store := &mockScheduleStore{schedules: map[string]*models.ClassSchedule{
		"sched-1": existingSlot("sched-1", 1, "09:00", "10:00"),
	}}
	svc := newScheduleService(store)

	_, err := svc.Create(context.Background(), CreateScheduleRequest{
		OfferingID: "off-1", DayOfWeek: 1, StartTime: "09:30", EndTime: "10:30",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrScheduleOverlap))
	assert.Empty(t, store.created)
}

func TestCreateScheduleAllowsBackToBackSlots(t *testing.T) {
	store := &mockScheduleStore{schedules: map[string]*models.ClassSchedule{
		"sched-1": existingSlot("sched-1", 1, "09:00", "10:00"),
	}}
	svc := newScheduleService(store)

	schedule, err := svc.Create(context.Background(), CreateScheduleRequest{
		OfferingID: "off-1", DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultGraceMinutes, schedule.GraceMinutes)
}

func TestCreateScheduleAllowsSameSlotOtherDay(t *testing.T) {
	store := &mockScheduleStore{schedules: map[string]*models.ClassSchedule{
		"sched-1": existingSlot("sched-1", 1, "09:00", "10:00"),
	}}
	svc := newScheduleService(store)

	_, err := svc.Create(context.Background(), CreateScheduleRequest{
		OfferingID: "off-1", DayOfWeek: 3, StartTime: "09:00", EndTime: "10:00",
	})
	require.NoError(t, err)
}

func TestCreateScheduleNormalizesClockTimes(t *testing.T) {
	store := &mockScheduleStore{schedules: map[string]*models.ClassSchedule{}}
	svc := newScheduleService(store)

	// Unpadded input must not reach the store: the text column sorts
	// lexically, and "9:00" would order after "10:00".
	schedule, err := svc.Create(context.Background(), CreateScheduleRequest{
		OfferingID: "off-1", DayOfWeek: 1, StartTime: "9:00", EndTime: "9:45",
	})
	require.NoError(t, err)
	assert.Equal(t, "09:00", schedule.StartTime)
	assert.Equal(t, "09:45", schedule.EndTime)
	require.Len(t, store.created, 1)
	assert.Less(t, store.created[0].StartTime, "10:00")
}

func TestUpdateScheduleNormalizesClockTimes(t *testing.T) {
	store := &mockScheduleStore{schedules: map[string]*models.ClassSchedule{
		"sched-1": existingSlot("sched-1", 1, "09:00", "10:00"),
	}}
	svc := newScheduleService(store)

	schedule, err := svc.Update(context.Background(), "sched-1", UpdateScheduleRequest{
		DayOfWeek: 1, StartTime: "8:15", EndTime: "9:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "08:15", schedule.StartTime)
	assert.Equal(t, "09:00", schedule.EndTime)
}

func TestCreateScheduleIgnoresArchivedSlots(t *testing.T) {
	archived := existingSlot("sched-1", 1, "09:00", "10:00")
	archived.Archived = true
	store := &mockScheduleStore{schedules: map[string]*models.ClassSchedule{"sched-1": archived}}
	svc := newScheduleService(store)

	_, err := svc.Create(context.Background(), CreateScheduleRequest{
		OfferingID: "off-1", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00",
	})
	require.NoError(t, err)
}

func TestCreateScheduleRejectsInvertedTimes(t *testing.T) {
	svc := newScheduleService(&mockScheduleStore{})

	_, err := svc.Create(context.Background(), CreateScheduleRequest{
		OfferingID: "off-1", DayOfWeek: 1, StartTime: "10:00", EndTime: "09:00",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCreateScheduleRejectsMalformedTime(t *testing.T) {
	svc := newScheduleService(&mockScheduleStore{})

	_, err := svc.Create(context.Background(), CreateScheduleRequest{
		OfferingID: "off-1", DayOfWeek: 1, StartTime: "9 o'clock", EndTime: "10:00",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestUpdateScheduleExcludesItselfFromOverlap(t *testing.T) {
	store := &mockScheduleStore{schedules: map[string]*models.ClassSchedule{
		"sched-1": existingSlot("sched-1", 1, "09:00", "10:00"),
	}}
	svc := newScheduleService(store)

	updated, err := svc.Update(context.Background(), "sched-1", UpdateScheduleRequest{
		DayOfWeek: 1, StartTime: "09:15", EndTime: "10:15",
	})
	require.NoError(t, err)
	assert.Equal(t, "09:15", updated.StartTime)
	require.Len(t, store.updated, 1)
}

func TestUpdateScheduleRejectsOverlapWithSibling(t *testing.T) {
	store := &mockScheduleStore{schedules: map[string]*models.ClassSchedule{
		"sched-1": existingSlot("sched-1", 1, "09:00", "10:00"),
		"sched-2": existingSlot("sched-2", 1, "11:00", "12:00"),
	}}
	svc := newScheduleService(store)

	_, err := svc.Update(context.Background(), "sched-1", UpdateScheduleRequest{
		DayOfWeek: 1, StartTime: "11:30", EndTime: "12:30",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrScheduleOverlap))
}

func TestUpdateArchivedScheduleRefused(t *testing.T) {
	archived := existingSlot("sched-1", 1, "09:00", "10:00")
	archived.Archived = true
	store := &mockScheduleStore{schedules: map[string]*models.ClassSchedule{"sched-1": archived}}
	svc := newScheduleService(store)

	_, err := svc.Update(context.Background(), "sched-1", UpdateScheduleRequest{
		DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestArchiveScheduleIsIdempotent(t *testing.T) {
	archived := existingSlot("sched-1", 1, "09:00", "10:00")
	archived.Archived = true
	store := &mockScheduleStore{schedules: map[string]*models.ClassSchedule{"sched-1": archived}}
	svc := newScheduleService(store)

	require.NoError(t, svc.Archive(context.Background(), "sched-1"))
	assert.Empty(t, store.archived)
}
