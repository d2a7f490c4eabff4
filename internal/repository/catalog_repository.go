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

// CatalogRepository persists the catalog dimensions: cohorts, sections and
// subjects. All uniqueness checks are case-insensitive within the tenant.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// CreateCohort stores a new cohort.
func (r *CatalogRepository) CreateCohort(ctx context.Context, cohort *models.Cohort) error {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return err
	}
	cohort.TenantID = tenantID
	if cohort.ID == "" {
		cohort.ID = uuid.NewString()
	}
	if cohort.CreatedAt.IsZero() {
		cohort.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO cohorts (id, tenant_id, name, created_at) VALUES (:id, :tenant_id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cohort); err != nil {
		if IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrDuplicateEntry, fmt.Sprintf("cohort %q already exists", cohort.Name))
		}
		return fmt.Errorf("create cohort: %w", err)
	}
	return nil
}

// CohortNameExists reports whether a cohort with the same name (ignoring
// case) already exists in the tenant.
func (r *CatalogRepository) CohortNameExists(ctx context.Context, name string) (bool, error) {
	return r.nameExists(ctx, "cohorts", "name", name)
}

// FindCohortByID returns a cohort within the active tenant.
func (r *CatalogRepository) FindCohortByID(ctx context.Context, id string) (*models.Cohort, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT id, tenant_id, name, created_at FROM cohorts WHERE id = $1 AND tenant_id = $2`
	var cohort models.Cohort
	if err := r.db.GetContext(ctx, &cohort, query, id, tenantID); err != nil {
		return nil, err
	}
	return &cohort, nil
}

// ListCohorts returns all cohorts of the tenant ordered by name.
func (r *CatalogRepository) ListCohorts(ctx context.Context) ([]models.Cohort, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT id, tenant_id, name, created_at FROM cohorts WHERE tenant_id = $1 ORDER BY name ASC`
	var cohorts []models.Cohort
	if err := r.db.SelectContext(ctx, &cohorts, query, tenantID); err != nil {
		return nil, fmt.Errorf("list cohorts: %w", err)
	}
	return cohorts, nil
}

// DeleteCohort removes a cohort. Referential guards run in the service.
func (r *CatalogRepository) DeleteCohort(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "cohorts", id)
}

// CreateSection stores a new section.
func (r *CatalogRepository) CreateSection(ctx context.Context, section *models.Section) error {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return err
	}
	section.TenantID = tenantID
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	if section.CreatedAt.IsZero() {
		section.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO sections (id, tenant_id, name, created_at) VALUES (:id, :tenant_id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		if IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrDuplicateEntry, fmt.Sprintf("section %q already exists", section.Name))
		}
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// SectionNameExists reports whether a section name is taken in the tenant.
func (r *CatalogRepository) SectionNameExists(ctx context.Context, name string) (bool, error) {
	return r.nameExists(ctx, "sections", "name", name)
}

// FindSectionByID returns a section within the active tenant.
func (r *CatalogRepository) FindSectionByID(ctx context.Context, id string) (*models.Section, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT id, tenant_id, name, created_at FROM sections WHERE id = $1 AND tenant_id = $2`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id, tenantID); err != nil {
		return nil, err
	}
	return &section, nil
}

// ListSections returns all sections of the tenant ordered by name.
func (r *CatalogRepository) ListSections(ctx context.Context) ([]models.Section, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT id, tenant_id, name, created_at FROM sections WHERE tenant_id = $1 ORDER BY name ASC`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, tenantID); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// DeleteSection removes a section.
func (r *CatalogRepository) DeleteSection(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "sections", id)
}

// CreateSubject stores a new subject.
func (r *CatalogRepository) CreateSubject(ctx context.Context, subject *models.Subject) error {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return err
	}
	subject.TenantID = tenantID
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO subjects (id, tenant_id, code, name, created_at) VALUES (:id, :tenant_id, :code, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		if IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrDuplicateEntry, fmt.Sprintf("subject with code %q already exists", subject.Code))
		}
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// SubjectCodeExists reports whether a subject code is taken in the tenant.
func (r *CatalogRepository) SubjectCodeExists(ctx context.Context, code string) (bool, error) {
	return r.nameExists(ctx, "subjects", "code", code)
}

// FindSubjectByID returns a subject within the active tenant.
func (r *CatalogRepository) FindSubjectByID(ctx context.Context, id string) (*models.Subject, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT id, tenant_id, code, name, created_at FROM subjects WHERE id = $1 AND tenant_id = $2`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id, tenantID); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListSubjects returns all subjects of the tenant ordered by code.
func (r *CatalogRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT id, tenant_id, code, name, created_at FROM subjects WHERE tenant_id = $1 ORDER BY code ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, tenantID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// DeleteSubject removes a subject.
func (r *CatalogRepository) DeleteSubject(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "subjects", id)
}

// ExistsAnyTenant probes a catalog row across tenants for cross-tenant
// violation detection. Table must be one of the catalog tables.
func (r *CatalogRepository) ExistsAnyTenant(ctx context.Context, table, id string) (bool, error) {
	return existsAnyTenant(ctx, r.db, table, id)
}

func (r *CatalogRepository) nameExists(ctx context.Context, table, column, value string) (bool, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE tenant_id = $1 AND lower(%s) = lower($2) LIMIT 1", table, column)
	var one int
	if err := r.db.GetContext(ctx, &one, query, tenantID, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check %s.%s uniqueness: %w", table, column, err)
	}
	return true, nil
}

func (r *CatalogRepository) deleteByID(ctx context.Context, table, id string) error {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1 AND tenant_id = $2", table)
	if _, err := r.db.ExecContext(ctx, query, id, tenantID); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}
