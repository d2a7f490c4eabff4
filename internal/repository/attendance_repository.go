package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/internal/tenancy"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

// AttendanceRepository persists the insert-only attendance ledger. The
// unique index on (schedule_id, date, enrollment_id) is the hard guard
// against concurrent duplicate session batches; a violated index surfaces
// as ErrAlreadyMarked.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// CreateBatch inserts one session's records in a single transaction. All
// rows land or none do; a unique violation aborts the batch.
func (r *AttendanceRepository) CreateBatch(ctx context.Context, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const query = `INSERT INTO attendance_records (id, tenant_id, enrollment_id, offering_id, schedule_id, date, status, marked_by, marked_at)
        VALUES (:id, :tenant_id, :enrollment_id, :offering_id, :schedule_id, :date, :status, :marked_by, :marked_at)`
	for i := range records {
		record := records[i]
		record.TenantID = tenantID
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		if record.MarkedAt.IsZero() {
			record.MarkedAt = now
		}
		if _, err = tx.NamedExecContext(ctx, query, &record); err != nil {
			if IsUniqueViolation(err) {
				err = appErrors.Clone(appErrors.ErrAlreadyMarked, "attendance for this session has already been marked")
				return err
			}
			return fmt.Errorf("insert attendance record: %w", err)
		}
		records[i] = record
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance batch: %w", err)
	}
	return nil
}

// ExistsForSession reports whether any record exists for the session
// (schedule, date).
func (r *AttendanceRepository) ExistsForSession(ctx context.Context, scheduleID string, date time.Time) (bool, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return false, err
	}
	const query = `SELECT 1 FROM attendance_records WHERE tenant_id = $1 AND schedule_id = $2 AND date = $3 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, tenantID, scheduleID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check session attendance: %w", err)
	}
	return true, nil
}

// CountByEnrollment returns how many records reference an enrollment.
// Drives the un-enrollment referential guard.
func (r *AttendanceRepository) CountByEnrollment(ctx context.Context, enrollmentID string) (int, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return 0, err
	}
	const query = `SELECT COUNT(*) FROM attendance_records WHERE tenant_id = $1 AND enrollment_id = $2`
	var total int
	if err := r.db.GetContext(ctx, &total, query, tenantID, enrollmentID); err != nil {
		return 0, fmt.Errorf("count attendance by enrollment: %w", err)
	}
	return total, nil
}

// CountByOffering returns how many records reference an offering. Drives
// the offering-deletion guard.
func (r *AttendanceRepository) CountByOffering(ctx context.Context, offeringID string) (int, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return 0, err
	}
	const query = `SELECT COUNT(*) FROM attendance_records WHERE tenant_id = $1 AND offering_id = $2`
	var total int
	if err := r.db.GetContext(ctx, &total, query, tenantID, offeringID); err != nil {
		return 0, fmt.Errorf("count attendance by offering: %w", err)
	}
	return total, nil
}

// SessionReport returns the per-student rows of one session ordered by
// roll number.
func (r *AttendanceRepository) SessionReport(ctx context.Context, scheduleID string, date time.Time) ([]models.SessionReportRow, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT ar.enrollment_id, e.student_id, u.full_name AS student_name, u.roll_number, ar.status, ar.marked_at
        FROM attendance_records ar
        JOIN student_enrollments e ON e.id = ar.enrollment_id
        JOIN users u ON u.id = e.student_id
        WHERE ar.tenant_id = $1 AND ar.schedule_id = $2 AND ar.date = $3
        ORDER BY u.roll_number ASC NULLS LAST, u.full_name ASC`
	var rows []models.SessionReportRow
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, scheduleID, date); err != nil {
		return nil, fmt.Errorf("session report: %w", err)
	}
	return rows, nil
}

// StudentCounts aggregates a student's raw status totals, optionally
// narrowed to one offering. No percentage is derived here.
func (r *AttendanceRepository) StudentCounts(ctx context.Context, studentID, offeringID string) (*models.AttendanceCounts, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT
        COUNT(*) FILTER (WHERE ar.status = 'PRESENT') AS present,
        COUNT(*) FILTER (WHERE ar.status = 'ABSENT') AS absent,
        COUNT(*) FILTER (WHERE ar.status = 'LEAVE') AS leave,
        COUNT(*) AS total
        FROM attendance_records ar
        JOIN student_enrollments e ON e.id = ar.enrollment_id
        WHERE ar.tenant_id = $1 AND e.student_id = $2`
	args := []interface{}{tenantID, studentID}
	if offeringID != "" {
		query += fmt.Sprintf(" AND ar.offering_id = $%d", len(args)+1)
		args = append(args, offeringID)
	}
	var counts models.AttendanceCounts
	if err := r.db.GetContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("student attendance counts: %w", err)
	}
	return &counts, nil
}
