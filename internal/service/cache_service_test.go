package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenCacheRepo struct{}

func (brokenCacheRepo) Get(context.Context, string, interface{}) error {
	return errors.New("connection refused")
}

func (brokenCacheRepo) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("connection refused")
}

func (brokenCacheRepo) DeleteByPattern(context.Context, string) (int, error) {
	return 0, errors.New("connection refused")
}

func TestCacheServiceRoundTripRecordsMetrics(t *testing.T) {
	repo := &memoryCacheRepo{}
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, time.Minute, nil, true)

	var out map[string]string
	assert.False(t, cache.Get(context.Background(), "calendar:a", &out))

	cache.Set(context.Background(), "calendar:a", map[string]string{"view": "week"}, 0)
	require.True(t, cache.Get(context.Background(), "calendar:a", &out))
	assert.Equal(t, "week", out["view"])

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
}

func TestCacheServiceInvalidateByPattern(t *testing.T) {
	repo := &memoryCacheRepo{}
	cache := NewCacheService(repo, nil, time.Minute, nil, true)

	cache.Set(context.Background(), "calendar:week:1", 1, 0)
	cache.Set(context.Background(), "calendar:day:2", 2, 0)
	cache.Set(context.Background(), "rooms:list", 3, 0)

	cache.Invalidate(context.Background(), "calendar:*")

	var v int
	assert.False(t, cache.Get(context.Background(), "calendar:week:1", &v))
	assert.False(t, cache.Get(context.Background(), "calendar:day:2", &v))
	assert.True(t, cache.Get(context.Background(), "rooms:list", &v))
	assert.Equal(t, []string{"calendar:*"}, repo.deletes)
}

func TestCacheServiceDisabledSkipsRepository(t *testing.T) {
	repo := &memoryCacheRepo{}
	cache := NewCacheService(repo, nil, time.Minute, nil, false)

	cache.Set(context.Background(), "k", 1, 0)
	cache.Invalidate(context.Background(), "k*")

	assert.False(t, cache.Enabled())
	assert.Empty(t, repo.store)
	assert.Empty(t, repo.deletes)

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
	assert.False(t, nilCache.Get(context.Background(), "k", new(int)))
}

func TestCacheServiceToleratesBackendFailures(t *testing.T) {
	cache := NewCacheService(brokenCacheRepo{}, nil, 0, nil, true)

	var v int
	assert.NotPanics(t, func() {
		cache.Set(context.Background(), "k", 1, time.Second)
		cache.Invalidate(context.Background(), "k*")
	})
	assert.False(t, cache.Get(context.Background(), "k", &v))
}
