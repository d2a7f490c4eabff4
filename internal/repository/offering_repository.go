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

// OfferingRepository persists course offerings.
type OfferingRepository struct {
	db *sqlx.DB
}

// NewOfferingRepository constructs the repository.
func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

// Begin starts a transaction for compound offering mutations.
func (r *OfferingRepository) Begin(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin offering tx: %w", err)
	}
	return tx, nil
}

// CreateWithTx persists a new offering inside the propagation transaction.
func (r *OfferingRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, offering *models.CourseOffering) error {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return err
	}
	offering.TenantID = tenantID
	if offering.ID == "" {
		offering.ID = uuid.NewString()
	}
	if offering.CreatedAt.IsZero() {
		offering.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_offerings (id, tenant_id, teacher_id, subject_id, cohort_id, section_id, created_at)
        VALUES (:id, :tenant_id, :teacher_id, :subject_id, :cohort_id, :section_id, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, offering); err != nil {
		if IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrDuplicateEntry, "an offering for this subject, cohort and section already exists")
		}
		return fmt.Errorf("create offering: %w", err)
	}
	return nil
}

// FindByID returns an offering within the active tenant.
func (r *OfferingRepository) FindByID(ctx context.Context, id string) (*models.CourseOffering, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT id, tenant_id, teacher_id, subject_id, cohort_id, section_id, created_at
        FROM course_offerings WHERE id = $1 AND tenant_id = $2`
	var offering models.CourseOffering
	if err := r.db.GetContext(ctx, &offering, query, id, tenantID); err != nil {
		return nil, err
	}
	return &offering, nil
}

// FindExisting returns the offering already holding the
// (subject, cohort, section) slot, if any. Drives the duplicate message.
func (r *OfferingRepository) FindExisting(ctx context.Context, subjectID, cohortID, sectionID string) (*models.CourseOfferingDetail, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT co.id, co.tenant_id, co.teacher_id, co.subject_id, co.cohort_id, co.section_id, co.created_at,
        u.full_name AS teacher_name, s.code AS subject_code, s.name AS subject_name, c.name AS cohort_name, sec.name AS section_name
        FROM course_offerings co
        JOIN users u ON u.id = co.teacher_id
        JOIN subjects s ON s.id = co.subject_id
        JOIN cohorts c ON c.id = co.cohort_id
        JOIN sections sec ON sec.id = co.section_id
        WHERE co.tenant_id = $1 AND co.subject_id = $2 AND co.cohort_id = $3 AND co.section_id = $4`
	var detail models.CourseOfferingDetail
	if err := r.db.GetContext(ctx, &detail, query, tenantID, subjectID, cohortID, sectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find existing offering: %w", err)
	}
	return &detail, nil
}

// ListByCohortSection returns every offering targeting a cohort+section
// pair. Student-side enrollment propagation reconciles against this set.
func (r *OfferingRepository) ListByCohortSection(ctx context.Context, cohortID, sectionID string) ([]models.CourseOffering, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT id, tenant_id, teacher_id, subject_id, cohort_id, section_id, created_at
        FROM course_offerings WHERE tenant_id = $1 AND cohort_id = $2 AND section_id = $3 ORDER BY created_at ASC`
	var offerings []models.CourseOffering
	if err := r.db.SelectContext(ctx, &offerings, query, tenantID, cohortID, sectionID); err != nil {
		return nil, fmt.Errorf("list offerings by cohort/section: %w", err)
	}
	return offerings, nil
}

// List returns offerings with display metadata, filtered and paginated.
func (r *OfferingRepository) List(ctx context.Context, filter models.OfferingFilter) ([]models.CourseOfferingDetail, int, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, 0, err
	}
	base := `FROM course_offerings co
        JOIN users u ON u.id = co.teacher_id
        JOIN subjects s ON s.id = co.subject_id
        JOIN cohorts c ON c.id = co.cohort_id
        JOIN sections sec ON sec.id = co.section_id
        WHERE co.tenant_id = $1`
	args := []interface{}{tenantID}

	if filter.TeacherID != "" {
		base += fmt.Sprintf(" AND co.teacher_id = $%d", len(args)+1)
		args = append(args, filter.TeacherID)
	}
	if filter.SubjectID != "" {
		base += fmt.Sprintf(" AND co.subject_id = $%d", len(args)+1)
		args = append(args, filter.SubjectID)
	}
	if filter.CohortID != "" {
		base += fmt.Sprintf(" AND co.cohort_id = $%d", len(args)+1)
		args = append(args, filter.CohortID)
	}
	if filter.SectionID != "" {
		base += fmt.Sprintf(" AND co.section_id = $%d", len(args)+1)
		args = append(args, filter.SectionID)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT co.id, co.tenant_id, co.teacher_id, co.subject_id, co.cohort_id, co.section_id, co.created_at,
        u.full_name AS teacher_name, s.code AS subject_code, s.name AS subject_name, c.name AS cohort_name, sec.name AS section_name
        %s ORDER BY c.name ASC, sec.name ASC, s.code ASC LIMIT %d OFFSET %d`, base, size, offset)
	var offerings []models.CourseOfferingDetail
	if err := r.db.SelectContext(ctx, &offerings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list offerings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count offerings: %w", err)
	}
	return offerings, total, nil
}

// DeleteWithTx removes an offering inside the cascade transaction.
func (r *OfferingRepository) DeleteWithTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM course_offerings WHERE id = $1 AND tenant_id = $2`, id, tenantID); err != nil {
		return fmt.Errorf("delete offering: %w", err)
	}
	return nil
}

// CountBySubject returns how many offerings reference a subject.
func (r *OfferingRepository) CountBySubject(ctx context.Context, subjectID string) (int, error) {
	return r.countBy(ctx, "subject_id", subjectID)
}

// CountByCohort returns how many offerings reference a cohort.
func (r *OfferingRepository) CountByCohort(ctx context.Context, cohortID string) (int, error) {
	return r.countBy(ctx, "cohort_id", cohortID)
}

// CountBySection returns how many offerings reference a section.
func (r *OfferingRepository) CountBySection(ctx context.Context, sectionID string) (int, error) {
	return r.countBy(ctx, "section_id", sectionID)
}

func (r *OfferingRepository) countBy(ctx context.Context, column, id string) (int, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM course_offerings WHERE tenant_id = $1 AND %s = $2", column)
	var total int
	if err := r.db.GetContext(ctx, &total, query, tenantID, id); err != nil {
		return 0, fmt.Errorf("count offerings by %s: %w", column, err)
	}
	return total, nil
}

// ExistsAnyTenant probes an offering id across tenants for cross-tenant
// violation detection.
func (r *OfferingRepository) ExistsAnyTenant(ctx context.Context, id string) (bool, error) {
	return existsAnyTenant(ctx, r.db, "course_offerings", id)
}
