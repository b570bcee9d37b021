package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type memoryCacheRepo struct {
	items   map[string][]byte
	ttls    map[string]time.Duration
	deleted []string
	failGet bool
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.failGet {
		return errors.New("redis down")
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	for k := range m.items {
		delete(m.items, k)
	}
	return nil
}

func TestCacheServiceRemember(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()
	calls := 0
	load := func(ctx context.Context) (*map[string]int, error) {
		calls++
		return &map[string]int{"students": 42}, nil
	}

	_, hit, err := Remember(ctx, cache, "dash:main", 0, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, time.Minute, repo.ttls["dash:main"])

	second, hit, err := Remember(ctx, cache, "dash:main", 0, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 42, (*second)["students"])
	assert.Equal(t, 1, calls)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
}

func TestCacheServiceDisabledAlwaysLoads(t *testing.T) {
	var cache *CacheService
	calls := 0
	for i := 0; i < 2; i++ {
		_, hit, err := Remember(context.Background(), cache, "k", 0, func(ctx context.Context) (*map[string]int, error) {
			calls++
			return &map[string]int{}, nil
		})
		require.NoError(t, err)
		assert.False(t, hit)
	}
	assert.Equal(t, 2, calls)
	assert.NoError(t, cache.Invalidate(context.Background(), "*"))
}

func TestCacheServiceGetErrorFallsBackToLoad(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.failGet = true
	cache := NewCacheService(repo, nil, 0, nil, true)

	value, hit, err := Remember(context.Background(), cache, "k", 0, func(ctx context.Context) (*map[string]int, error) {
		return &map[string]int{"a": 1}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, map[string]int{"a": 1}, *value)
}
