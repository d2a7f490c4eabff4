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
)

// TenantRepository handles persistence of tenants. Lookups by code and the
// code-uniqueness probe are the only cross-tenant reads and require the
// bypass scope.
type TenantRepository struct {
	db *sqlx.DB
}

// NewTenantRepository constructs the repository.
func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Begin starts the provisioning transaction in which a tenant and its
// admin account land atomically.
func (r *TenantRepository) Begin(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tenant tx: %w", err)
	}
	return tx, nil
}

// CreateWithTx persists a new tenant inside the provisioning transaction.
func (r *TenantRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, tenant *models.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = now
	}
	tenant.UpdatedAt = now
	const query = `INSERT INTO tenants (id, name, code, admin_email, timezone, created_at, updated_at)
        VALUES (:id, :name, :code, :admin_email, :timezone, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, tenant); err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

// Current returns the tenant bound to the context.
func (r *TenantRepository) Current(ctx context.Context) (*models.Tenant, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	const query = `SELECT id, name, code, admin_email, timezone, created_at, updated_at FROM tenants WHERE id = $1`
	var tenant models.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, tenantID); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// FindByCode locates a tenant by its login code. Pre-authentication path:
// the caller's tenant is unknown, so the bypass scope is mandatory.
func (r *TenantRepository) FindByCode(ctx context.Context, code string) (*models.Tenant, error) {
	if err := tenancy.RequireBypass(ctx); err != nil {
		return nil, err
	}
	const query = `SELECT id, name, code, admin_email, timezone, created_at, updated_at FROM tenants WHERE code = $1`
	var tenant models.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, code); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// CodeExists probes a generated code across all tenants. Bypass-only.
func (r *TenantRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	if err := tenancy.RequireBypass(ctx); err != nil {
		return false, err
	}
	const query = `SELECT 1 FROM tenants WHERE code = $1 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check tenant code: %w", err)
	}
	return true, nil
}

// UpdateTimezone changes the tenant's zone identifier. The code is
// immutable and deliberately not updatable here.
func (r *TenantRepository) UpdateTimezone(ctx context.Context, timezone string) error {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return err
	}
	const query = `UPDATE tenants SET timezone = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, tenantID, timezone, time.Now().UTC()); err != nil {
		return fmt.Errorf("update tenant timezone: %w", err)
	}
	return nil
}
