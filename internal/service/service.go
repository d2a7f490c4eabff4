package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/tenancy"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

// tenantProbe checks an entity id across all tenants. Repositories expose
// one per table so misses can be classified.
type tenantProbe func(ctx context.Context, id string) (bool, error)

// resolveMiss classifies a scoped lookup miss. An id that exists in another
// tenant's partition is a cross-tenant violation, not a plain not-found;
// the warn log is the audit signal for it.
func resolveMiss(ctx context.Context, logger *zap.Logger, entity, id string, probe tenantProbe) error {
	// The probe runs unscoped; hand it the bypass scope explicitly so the
	// repository guard can reject any other unscoped caller.
	exists, err := probe(tenancy.WithBypass(ctx), id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to classify lookup miss")
	}
	if exists {
		logger.Warn("cross-tenant access attempt",
			zap.String("entity", entity),
			zap.String("entity_id", id),
		)
		return appErrors.Clone(appErrors.ErrCrossTenant, entity+" belongs to a different tenant")
	}
	return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
}

// isNoRows reports whether err is a scoped lookup miss.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
