package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCache struct{ err error }

func (f failingCache) Get(ctx context.Context, key string, dest interface{}) error { return f.err }

func (f failingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return f.err
}

func (f failingCache) DeleteByPattern(ctx context.Context, pattern string) error { return f.err }

func TestCacheServiceDisabled(t *testing.T) {
	var nilService *CacheService
	assert.False(t, nilService.Enabled())

	store := newMemoryCache()
	svc := NewCacheService(store, nil, time.Minute, nil, false)
	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	assert.Empty(t, store.data)

	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceRoundTrip(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(newMemoryCache(), metrics, time.Minute, nil, true)
	ctx := context.Background()

	var out map[string]float64
	hit, err := svc.Get(ctx, classCacheKey("class-a", testYear, "report-card"), &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, classCacheKey("class-a", testYear, "report-card"), map[string]float64{"avg": 7.5}, 0))
	hit, err = svc.Get(ctx, classCacheKey("class-a", testYear, "report-card"), &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 7.5, out["avg"])

	require.NoError(t, svc.Invalidate(ctx, classCachePattern("class-a", testYear)))
	hit, _ = svc.Get(ctx, classCacheKey("class-a", testYear, "report-card"), &out)
	assert.False(t, hit)

	assert.Equal(t, 1.0, counterValue(t, metrics, "cache_hits_total", ""))
	assert.Equal(t, 2.0, counterValue(t, metrics, "cache_misses_total", ""))
}

func TestCacheServiceBackendFailure(t *testing.T) {
	boom := errors.New("redis down")
	svc := NewCacheService(failingCache{err: boom}, nil, time.Minute, nil, true)

	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	assert.False(t, hit)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, svc.Set(context.Background(), "k", "v", 0), boom)
	assert.ErrorIs(t, svc.Invalidate(context.Background(), "k*"), boom)
}

func TestClassCacheKeys(t *testing.T) {
	assert.Equal(t, "averages:class:c1:y1:pivot:math", classCacheKey("c1", "y1", "pivot:math"))
	assert.Equal(t, "averages:class:c1:y1:*", classCachePattern("c1", "y1"))
}
