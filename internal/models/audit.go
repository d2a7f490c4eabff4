package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin            = "LOGIN"
	AuditActionTenantSignup     = "TENANT_SIGNUP"
	AuditActionTenantSettings   = "TENANT_SETTINGS_UPDATE"
	AuditActionCatalogMutation  = "CATALOG_MUTATION"
	AuditActionOfferingMutation = "OFFERING_MUTATION"
	AuditActionScheduleMutation = "SCHEDULE_MUTATION"
	AuditActionAttendanceSubmit = "ATTENDANCE_SUBMIT"
	AuditActionCrossTenantHit   = "CROSS_TENANT_VIOLATION"
)

// AuditLog represents an audit trail record. TenantID is nullable because
// cross-tenant violations and pre-auth events can occur before a tenant is
// resolved.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	TenantID   *string   `db:"tenant_id" json:"tenant_id,omitempty"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Details    []byte    `db:"details" json:"details,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
