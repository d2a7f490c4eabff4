// Package tenancy threads the active tenant through request contexts.
//
// Every tenant-scoped repository call resolves the tenant from the
// context.Context it is handed; there is no process-wide tenant variable, so
// concurrent requests for different tenants can never observe each other's
// scope. A narrow bypass scope exists for the two operations that must see
// across tenants: probing generated tenant codes for uniqueness and locating
// a user before authentication has resolved a tenant.
package tenancy

import (
	"context"

	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type ctxKey int

const (
	tenantKey ctxKey = iota
	bypassKey
)

// WithTenant binds the active tenant id to the context. It is called once
// per request by the tenant middleware and never mutated afterwards.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey, tenantID)
}

// TenantID returns the active tenant id, or TENANT_NOT_RESOLVED when no
// tenant is bound. Tenant-scoped repositories fail closed on this error.
func TenantID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(tenantKey).(string)
	if !ok || id == "" {
		return "", appErrors.ErrTenantNotResolved
	}
	return id, nil
}

// WithBypass marks the context as allowed to run cross-tenant queries.
// Callers outside tenant provisioning, pre-auth user lookup, and the
// lookup-miss classification probes must never use it.
func WithBypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey, true)
}

// Bypassed reports whether the context carries the bypass scope.
func Bypassed(ctx context.Context) bool {
	b, ok := ctx.Value(bypassKey).(bool)
	return ok && b
}

// RequireBypass guards repository methods that query across tenants.
func RequireBypass(ctx context.Context) error {
	if !Bypassed(ctx) {
		return appErrors.Clone(appErrors.ErrForbidden, "cross-tenant access requires bypass scope")
	}
	return nil
}
