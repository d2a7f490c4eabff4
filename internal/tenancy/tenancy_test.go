package tenancy

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

func TestTenantIDUnresolved(t *testing.T) {
	_, err := TenantID(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTenantNotResolved))
}

func TestTenantIDRoundTrip(t *testing.T) {
	ctx := WithTenant(context.Background(), "tenant-1")
	id, err := TenantID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", id)
}

func TestBypassScope(t *testing.T) {
	ctx := context.Background()
	assert.False(t, Bypassed(ctx))
	require.Error(t, RequireBypass(ctx))

	ctx = WithBypass(ctx)
	assert.True(t, Bypassed(ctx))
	require.NoError(t, RequireBypass(ctx))
}

func TestTenantDoesNotLeakAcrossGoroutines(t *testing.T) {
	// Each goroutine binds its own tenant; none may observe another's.
	var wg sync.WaitGroup
	for _, tenant := range []string{"t1", "t2", "t3", "t4"} {
		tenant := tenant
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := WithTenant(context.Background(), tenant)
			for i := 0; i < 100; i++ {
				id, err := TenantID(ctx)
				require.NoError(t, err)
				assert.Equal(t, tenant, id)
			}
		}()
	}
	wg.Wait()
}
