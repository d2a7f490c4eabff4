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

// EnrollmentRepository persists student enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Begin starts a transaction for compound enrollment mutations.
func (r *EnrollmentRepository) Begin(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment tx: %w", err)
	}
	return tx, nil
}

// Create persists a new enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.StudentEnrollment) error {
	return r.insert(ctx, r.db, enrollment)
}

// CreateWithTx persists a new enrollment inside a propagation transaction.
func (r *EnrollmentRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.StudentEnrollment) error {
	return r.insert(ctx, tx, enrollment)
}

func (r *EnrollmentRepository) insert(ctx context.Context, exec sqlx.ExtContext, enrollment *models.StudentEnrollment) error {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return err
	}
	enrollment.TenantID = tenantID
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO student_enrollments (id, tenant_id, student_id, offering_id, enrolled_at)
        VALUES (:id, :tenant_id, :student_id, :offering_id, :enrolled_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, enrollment); err != nil {
		if IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this offering")
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByID returns an enrollment within the active tenant.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.StudentEnrollment, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT id, tenant_id, student_id, offering_id, enrolled_at FROM student_enrollments WHERE id = $1 AND tenant_id = $2`
	var enrollment models.StudentEnrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id, tenantID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Exists reports whether a (student, offering) pair is already enrolled.
// Used on any executor so propagation can check inside its transaction.
func (r *EnrollmentRepository) Exists(ctx context.Context, exec sqlx.ExtContext, studentID, offeringID string) (bool, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return false, err
	}
	if exec == nil {
		exec = r.db
	}
	const query = `SELECT 1 FROM student_enrollments WHERE tenant_id = $1 AND student_id = $2 AND offering_id = $3 LIMIT 1`
	row := exec.QueryRowxContext(ctx, query, tenantID, studentID, offeringID)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment existence: %w", err)
	}
	return true, nil
}

// ListByOffering returns an offering's roster ordered by roll number, the
// deterministic order of attendance sheets.
func (r *EnrollmentRepository) ListByOffering(ctx context.Context, offeringID string) ([]models.EnrollmentDetail, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT e.id, e.tenant_id, e.student_id, e.offering_id, e.enrolled_at,
        u.full_name AS student_name, u.roll_number
        FROM student_enrollments e
        JOIN users u ON u.id = e.student_id
        WHERE e.tenant_id = $1 AND e.offering_id = $2
        ORDER BY u.roll_number ASC NULLS LAST, u.full_name ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, tenantID, offeringID); err != nil {
		return nil, fmt.Errorf("list enrollments by offering: %w", err)
	}
	return enrollments, nil
}

// ListByStudent returns a student's enrollments.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentEnrollment, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT id, tenant_id, student_id, offering_id, enrolled_at FROM student_enrollments WHERE tenant_id = $1 AND student_id = $2 ORDER BY enrolled_at ASC`
	var enrollments []models.StudentEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, tenantID, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments by student: %w", err)
	}
	return enrollments, nil
}

// Delete removes a single enrollment. The service refuses the call first
// when attendance records reference it.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM student_enrollments WHERE id = $1 AND tenant_id = $2`, id, tenantID); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// DeleteByOfferingWithTx removes all enrollments of an offering inside the
// offering-deletion cascade transaction.
func (r *EnrollmentRepository) DeleteByOfferingWithTx(ctx context.Context, tx *sqlx.Tx, offeringID string) error {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM student_enrollments WHERE offering_id = $1 AND tenant_id = $2`, offeringID, tenantID); err != nil {
		return fmt.Errorf("cascade delete enrollments: %w", err)
	}
	return nil
}
