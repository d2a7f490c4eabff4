package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type scheduleStore interface {
	Create(ctx context.Context, schedule *models.ClassSchedule) error
	Update(ctx context.Context, schedule *models.ClassSchedule) error
	Archive(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.ClassSchedule, error)
	ListByOffering(ctx context.Context, offeringID string, includeArchived bool) ([]models.ClassSchedule, error)
	ListSameDay(ctx context.Context, offeringID string, day int, excludeID string) ([]models.ClassSchedule, error)
	ExistsAnyTenant(ctx context.Context, id string) (bool, error)
}

// CreateScheduleRequest describes a new weekly slot.
type CreateScheduleRequest struct {
	OfferingID   string `json:"offering_id" validate:"required"`
	DayOfWeek    int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
	GraceMinutes *int   `json:"grace_minutes" validate:"omitempty,min=0,max=240"`
}

// UpdateScheduleRequest moves an existing slot.
type UpdateScheduleRequest struct {
	DayOfWeek    int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
	GraceMinutes *int   `json:"grace_minutes" validate:"omitempty,min=0,max=240"`
}

// ScheduleService manages the weekly slots of course offerings. Two
// schedules of the same offering may not overlap on the same day; slots
// are compared as half-open ranges so back-to-back periods sharing a
// boundary minute are allowed.
type ScheduleService struct {
	repo      scheduleStore
	offerings offeringReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs ScheduleService.
func NewScheduleService(repo scheduleStore, offerings offeringReader, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, offerings: offerings, validator: validate, logger: logger}
}

// slotMinutes parses and orders the slot bounds.
func slotMinutes(start, end string) (int, int, error) {
	startMin, err := models.MinuteOfDay(start)
	if err != nil {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "start_time must be HH:MM")
	}
	endMin, err := models.MinuteOfDay(end)
	if err != nil {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "end_time must be HH:MM")
	}
	if endMin <= startMin {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	return startMin, endMin, nil
}

// checkOverlap rejects a slot colliding with the offering's other active
// slots on the same day. excludeID skips the row being edited.
func (s *ScheduleService) checkOverlap(ctx context.Context, offeringID string, day, startMin, endMin int, excludeID string) error {
	others, err := s.repo.ListSameDay(ctx, offeringID, day, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule overlap")
	}
	for i := range others {
		otherStart, err := models.MinuteOfDay(others[i].StartTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "malformed stored schedule time")
		}
		otherEnd, err := models.MinuteOfDay(others[i].EndTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "malformed stored schedule time")
		}
		if models.RangesOverlap(startMin, endMin, otherStart, otherEnd) {
			return appErrors.Clone(appErrors.ErrScheduleOverlap, fmt.Sprintf("slot overlaps existing schedule %s-%s", others[i].StartTime, others[i].EndTime))
		}
	}
	return nil
}

// Create registers a new weekly slot for an offering.
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleRequest) (*models.ClassSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if _, err := s.offerings.FindByID(ctx, req.OfferingID); err != nil {
		if isNoRows(err) {
			return nil, resolveMiss(ctx, s.logger, "offering", req.OfferingID, s.offerings.ExistsAnyTenant)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	startMin, endMin, err := slotMinutes(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, req.OfferingID, req.DayOfWeek, startMin, endMin, ""); err != nil {
		return nil, err
	}

	grace := models.DefaultGraceMinutes
	if req.GraceMinutes != nil {
		grace = *req.GraceMinutes
	}
	schedule := &models.ClassSchedule{
		OfferingID:   req.OfferingID,
		DayOfWeek:    req.DayOfWeek,
		StartTime:    models.ClockString(startMin),
		EndTime:      models.ClockString(endMin),
		GraceMinutes: grace,
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	s.logger.Info("schedule created",
		zap.String("schedule_id", schedule.ID),
		zap.String("offering_id", schedule.OfferingID),
		zap.Int("day_of_week", schedule.DayOfWeek),
	)
	return schedule, nil
}

// Update moves a slot. Overlap is re-checked against the offering's other
// slots with the edited row excluded, so a slot can shrink in place.
func (s *ScheduleService) Update(ctx context.Context, id string, req UpdateScheduleRequest) (*models.ClassSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, resolveMiss(ctx, s.logger, "schedule", id, s.repo.ExistsAnyTenant)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if schedule.Archived {
		return nil, appErrors.Clone(appErrors.ErrValidation, "archived schedules cannot be edited")
	}
	startMin, endMin, err := slotMinutes(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, schedule.OfferingID, req.DayOfWeek, startMin, endMin, id); err != nil {
		return nil, err
	}

	schedule.DayOfWeek = req.DayOfWeek
	schedule.StartTime = models.ClockString(startMin)
	schedule.EndTime = models.ClockString(endMin)
	if req.GraceMinutes != nil {
		schedule.GraceMinutes = *req.GraceMinutes
	}
	if err := s.repo.Update(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	return schedule, nil
}

// Archive retires a slot. The row stays so historical attendance keeps a
// resolvable schedule.
func (s *ScheduleService) Archive(ctx context.Context, id string) error {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return resolveMiss(ctx, s.logger, "schedule", id, s.repo.ExistsAnyTenant)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if schedule.Archived {
		return nil
	}
	if err := s.repo.Archive(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive schedule")
	}
	s.logger.Info("schedule archived", zap.String("schedule_id", id))
	return nil
}

// Get returns a schedule by id.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ClassSchedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, resolveMiss(ctx, s.logger, "schedule", id, s.repo.ExistsAnyTenant)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// ListByOffering returns an offering's slots.
func (s *ScheduleService) ListByOffering(ctx context.Context, offeringID string, includeArchived bool) ([]models.ClassSchedule, error) {
	if _, err := s.offerings.FindByID(ctx, offeringID); err != nil {
		if isNoRows(err) {
			return nil, resolveMiss(ctx, s.logger, "offering", offeringID, s.offerings.ExistsAnyTenant)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	schedules, err := s.repo.ListByOffering(ctx, offeringID, includeArchived)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return schedules, nil
}
