package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/tenancy"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

// CacheRepository wraps Redis for the report read paths. Keys are always
// prefixed with the tenant id so cached payloads never cross tenants.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	return &CacheRepository{client: client, logger: logger}
}

func (r *CacheRepository) tenantKey(ctx context.Context, key string) (string, error) {
	tenantID, err := tenancy.TenantID(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("tenant:%s:%s", tenantID, key), nil
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	scoped, err := r.tenantKey(ctx, key)
	if err != nil {
		return err
	}

	raw, err := r.client.Get(ctx, scoped).Bytes()
	if err != nil {
		if err == redis.Nil {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", scoped, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", scoped, err)
	}

	return nil
}

// Set marshals the provided value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	scoped, err := r.tenantKey(ctx, key)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", scoped, err)
	}

	if err := r.client.Set(ctx, scoped, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", scoped, err)
	}

	return nil
}

// InvalidatePrefix removes the tenant's cached entries under a key prefix.
// Called after a submission so stale session reports never serve.
func (r *CacheRepository) InvalidatePrefix(ctx context.Context, prefix string) error {
	if r.client == nil {
		return nil
	}

	scoped, err := r.tenantKey(ctx, prefix)
	if err != nil {
		return err
	}
	pattern := scoped + "*"

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}

	return nil
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
