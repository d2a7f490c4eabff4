package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/attendly/attendly-api/internal/models"
)

// AuditRepository writes the append-only audit trail. Inserts take the
// tenant id from the entry itself rather than the request context so
// cross-tenant violations can be recorded against the violated tenant.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts one audit entry.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	const query = `INSERT INTO audit_logs (id, tenant_id, user_id, action, resource, resource_id, details, ip_address, user_agent, created_at)
        VALUES (:id, :tenant_id, :user_id, :action, :resource, :resource_id, :details, :ip_address, :user_agent, NOW())`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListByTenant returns a tenant's most recent entries.
func (r *AuditRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, tenant_id, user_id, action, resource, resource_id, details, ip_address, user_agent, created_at
        FROM audit_logs WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`
	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, tenantID, limit); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return entries, nil
}
