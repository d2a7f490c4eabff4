package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/internal/tenancy"
)

const userColumns = `id, tenant_id, email, password_hash, full_name, role, roll_number, cohort_id, section_id, active, created_at, updated_at`

// UserRepository handles persistence of users within the active tenant.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Begin starts a transaction for user creation with enrollment
// propagation.
func (r *UserRepository) Begin(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin user tx: %w", err)
	}
	return tx, nil
}

// Create persists a new user scoped to the active tenant.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return err
	}
	user.TenantID = tenantID
	return r.insert(ctx, r.db, user)
}

// CreateWithTx persists a new user inside an existing transaction. Used by
// tenant provisioning (bypass: the tenant row is created in the same
// transaction) and by student creation with enrollment propagation.
func (r *UserRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, user *models.User) error {
	if user.TenantID == "" {
		tenantID, err := tenancy.TenantID(ctx)
		if err != nil {
			return err
		}
		user.TenantID = tenantID
	}
	return r.insert(ctx, tx, user)
}

func (r *UserRepository) insert(ctx context.Context, exec sqlx.ExtContext, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	const query = `INSERT INTO users (id, tenant_id, email, password_hash, full_name, role, roll_number, cohort_id, section_id, active, created_at, updated_at)
        VALUES (:id, :tenant_id, :email, :password_hash, :full_name, :role, :roll_number, :cohort_id, :section_id, :active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID returns a user within the active tenant.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 AND tenant_id = $2`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id, tenantID); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByLogin locates a user by tenant and email before authentication.
// The tenant id comes from the entered tenant code, not the context, so the
// bypass scope is mandatory.
func (r *UserRepository) FindByLogin(ctx context.Context, tenantID, email string) (*models.User, error) {
	if err := tenancy.RequireBypass(ctx); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM users WHERE tenant_id = $1 AND lower(email) = lower($2)`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, tenantID, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailExists reports whether the email is already taken within the
// active tenant. Comparison is case-insensitive.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return false, err
	}
	const query = `SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND lower(email) = lower($2)`
	var total int
	if err := r.db.GetContext(ctx, &total, query, tenantID, email); err != nil {
		return false, fmt.Errorf("check email existence: %w", err)
	}
	return total > 0, nil
}

// List returns users of the active tenant filtered by the provided criteria.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, 0, err
	}
	base := "FROM users WHERE tenant_id = $1"
	args := []interface{}{tenantID}

	if filter.Role != nil {
		base += fmt.Sprintf(" AND role = $%d", len(args)+1)
		args = append(args, *filter.Role)
	}
	if filter.CohortID != "" {
		base += fmt.Sprintf(" AND cohort_id = $%d", len(args)+1)
		args = append(args, filter.CohortID)
	}
	if filter.SectionID != "" {
		base += fmt.Sprintf(" AND section_id = $%d", len(args)+1)
		args = append(args, filter.SectionID)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (full_name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+filter.Search+"%")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY roll_number %s NULLS LAST, full_name %s LIMIT %d OFFSET %d", userColumns, base, order, order, size, offset)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// ListStudentsByCohortSection returns the students implied by a
// cohort+section pair, the shared predicate of both propagation triggers.
func (r *UserRepository) ListStudentsByCohortSection(ctx context.Context, cohortID, sectionID string) ([]models.User, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM users WHERE tenant_id = $1 AND role = $2 AND cohort_id = $3 AND section_id = $4 ORDER BY roll_number ASC NULLS LAST`, userColumns)
	var students []models.User
	if err := r.db.SelectContext(ctx, &students, query, tenantID, models.RoleStudent, cohortID, sectionID); err != nil {
		return nil, fmt.Errorf("list students by cohort/section: %w", err)
	}
	return students, nil
}

// CountStudentsByCohort returns how many students reference a cohort. Used
// to refuse catalog deletions with dependents.
func (r *UserRepository) CountStudentsByCohort(ctx context.Context, cohortID string) (int, error) {
	return r.countStudentsBy(ctx, "cohort_id", cohortID)
}

// CountStudentsBySection returns how many students reference a section.
func (r *UserRepository) CountStudentsBySection(ctx context.Context, sectionID string) (int, error) {
	return r.countStudentsBy(ctx, "section_id", sectionID)
}

func (r *UserRepository) countStudentsBy(ctx context.Context, column, id string) (int, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND %s = $2", column)
	var total int
	if err := r.db.GetContext(ctx, &total, query, tenantID, id); err != nil {
		return 0, fmt.Errorf("count students by %s: %w", column, err)
	}
	return total, nil
}

// ExistsAnyTenant probes a user id across tenants so callers can raise
// CROSS_TENANT_VIOLATION instead of a silent not-found.
func (r *UserRepository) ExistsAnyTenant(ctx context.Context, id string) (bool, error) {
	return existsAnyTenant(ctx, r.db, "users", id)
}
