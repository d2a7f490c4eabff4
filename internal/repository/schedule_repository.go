package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/internal/tenancy"
)

const scheduleColumns = `id, tenant_id, offering_id, day_of_week, start_time, end_time, grace_minutes, archived, created_at, updated_at`

// ScheduleRepository persists class schedules. Schedules are archived, not
// deleted, so historical attendance keeps a resolvable slot.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create stores a new schedule record.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.ClassSchedule) error {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return err
	}
	schedule.TenantID = tenantID
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
	const query = `INSERT INTO class_schedules (id, tenant_id, offering_id, day_of_week, start_time, end_time, grace_minutes, archived, created_at, updated_at)
        VALUES (:id, :tenant_id, :offering_id, :day_of_week, :start_time, :end_time, :grace_minutes, :archived, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Update modifies the slot attributes of a schedule.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.ClassSchedule) error {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return err
	}
	schedule.TenantID = tenantID
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_schedules SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time,
        grace_minutes = :grace_minutes, updated_at = :updated_at WHERE id = :id AND tenant_id = :tenant_id`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

// Archive soft-deletes a schedule.
func (r *ScheduleRepository) Archive(ctx context.Context, id string) error {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return err
	}
	const query = `UPDATE class_schedules SET archived = TRUE, updated_at = $3 WHERE id = $1 AND tenant_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, tenantID, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive schedule: %w", err)
	}
	return nil
}

// FindByID returns a schedule within the active tenant, archived or not.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ClassSchedule, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM class_schedules WHERE id = $1 AND tenant_id = $2`, scheduleColumns)
	var schedule models.ClassSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id, tenantID); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindDetailByID returns a schedule joined with offering metadata,
// including the owning teacher for authorization checks.
func (r *ScheduleRepository) FindDetailByID(ctx context.Context, id string) (*models.ClassScheduleDetail, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT cs.id, cs.tenant_id, cs.offering_id, cs.day_of_week, cs.start_time, cs.end_time, cs.grace_minutes, cs.archived, cs.created_at, cs.updated_at,
        s.code AS subject_code, s.name AS subject_name, c.name AS cohort_name, sec.name AS section_name, co.teacher_id
        FROM class_schedules cs
        JOIN course_offerings co ON co.id = cs.offering_id
        JOIN subjects s ON s.id = co.subject_id
        JOIN cohorts c ON c.id = co.cohort_id
        JOIN sections sec ON sec.id = co.section_id
        WHERE cs.id = $1 AND cs.tenant_id = $2`
	var detail models.ClassScheduleDetail
	if err := r.db.GetContext(ctx, &detail, query, id, tenantID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListByOffering returns an offering's schedules ordered by day and start
// time. Archived rows are included only when requested (historical reads).
func (r *ScheduleRepository) ListByOffering(ctx context.Context, offeringID string, includeArchived bool) ([]models.ClassSchedule, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM class_schedules WHERE tenant_id = $1 AND offering_id = $2`, scheduleColumns)
	if !includeArchived {
		query += " AND archived = FALSE"
	}
	query += " ORDER BY day_of_week ASC, start_time ASC"
	var schedules []models.ClassSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, tenantID, offeringID); err != nil {
		return nil, fmt.Errorf("list schedules by offering: %w", err)
	}
	return schedules, nil
}

// ListByOfferingAndDay returns the non-archived schedules of an offering
// on one weekday in ascending start-time order, the evaluation order of
// the time-lock engine.
func (r *ScheduleRepository) ListByOfferingAndDay(ctx context.Context, offeringID string, day int) ([]models.ClassSchedule, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM class_schedules WHERE tenant_id = $1 AND offering_id = $2 AND day_of_week = $3 AND archived = FALSE ORDER BY start_time ASC`, scheduleColumns)
	var schedules []models.ClassSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, tenantID, offeringID, day); err != nil {
		return nil, fmt.Errorf("list schedules by offering and day: %w", err)
	}
	return schedules, nil
}

// ListByTeacherAndDay returns all non-archived schedules on one weekday
// across a teacher's offerings, in ascending start-time order.
func (r *ScheduleRepository) ListByTeacherAndDay(ctx context.Context, teacherID string, day int) ([]models.ClassScheduleDetail, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT cs.id, cs.tenant_id, cs.offering_id, cs.day_of_week, cs.start_time, cs.end_time, cs.grace_minutes, cs.archived, cs.created_at, cs.updated_at,
        s.code AS subject_code, s.name AS subject_name, c.name AS cohort_name, sec.name AS section_name, co.teacher_id
        FROM class_schedules cs
        JOIN course_offerings co ON co.id = cs.offering_id
        JOIN subjects s ON s.id = co.subject_id
        JOIN cohorts c ON c.id = co.cohort_id
        JOIN sections sec ON sec.id = co.section_id
        WHERE cs.tenant_id = $1 AND co.teacher_id = $2 AND cs.day_of_week = $3 AND cs.archived = FALSE
        ORDER BY cs.start_time ASC`
	var schedules []models.ClassScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query, tenantID, teacherID, day); err != nil {
		return nil, fmt.Errorf("list schedules by teacher and day: %w", err)
	}
	return schedules, nil
}

// ListSameDay returns the other non-archived schedules of an offering on a
// weekday, excluding one schedule id, for overlap validation on edit.
func (r *ScheduleRepository) ListSameDay(ctx context.Context, offeringID string, day int, excludeID string) ([]models.ClassSchedule, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM class_schedules WHERE tenant_id = $1 AND offering_id = $2 AND day_of_week = $3 AND archived = FALSE`, scheduleColumns)
	args := []interface{}{tenantID, offeringID, day}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	var schedules []models.ClassSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("list same-day schedules: %w", err)
	}
	return schedules, nil
}

// ExistsAnyTenant probes a schedule id across tenants for cross-tenant
// violation detection.
func (r *ScheduleRepository) ExistsAnyTenant(ctx context.Context, id string) (bool, error) {
	return existsAnyTenant(ctx, r.db, "class_schedules", id)
}
