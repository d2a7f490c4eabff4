package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/tenancy"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

func TestResolveMissGrantsBypassToProbe(t *testing.T) {
	sawBypass := false
	probe := func(ctx context.Context, id string) (bool, error) {
		sawBypass = tenancy.Bypassed(ctx)
		return true, nil
	}

	err := resolveMiss(context.Background(), zap.NewNop(), "offering", "off-9", probe)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCrossTenant))
	assert.True(t, sawBypass)
}

func TestResolveMissReportsNotFound(t *testing.T) {
	probe := func(ctx context.Context, id string) (bool, error) {
		return false, nil
	}

	err := resolveMiss(context.Background(), zap.NewNop(), "schedule", "sched-9", probe)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
