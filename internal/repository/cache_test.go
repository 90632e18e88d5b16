package repository

import (
	"context"
	"testing"
	"time"

	"portal/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestMemoryReferenceCacheExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewMemoryReferenceCache()
	cache.now = clock.Now
	ctx := context.Background()

	items := []model.CatalogItem{{ID: "1", Value: "contrato", Description: "Contrato de aprendizaje"}}
	require.NoError(t, cache.Set(ctx, "catalog:L_LINKAGE_TYPE", items, time.Minute))

	var got []model.CatalogItem
	found, err := cache.Get(ctx, "catalog:L_LINKAGE_TYPE", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, items, got)

	clock.now = clock.now.Add(2 * time.Minute)
	found, err = cache.Get(ctx, "catalog:L_LINKAGE_TYPE", &got)
	require.NoError(t, err)
	assert.False(t, found)

	assert.Equal(t, 1, cache.Len())
	cache.CleanExpired()
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryDraftStore(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryDraftStore()
	store.now = clock.Now
	ctx := context.Background()

	_, err := store.Load(ctx, "d1")
	assert.ErrorIs(t, err, ErrDraftNotFound)

	payload := []byte{0x81, 0xa1, 0x61}
	require.NoError(t, store.Save(ctx, "d1", payload, time.Hour))
	payload[0] = 0 // the store keeps its own copy

	got, err := store.Load(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x81, 0xa1, 0x61}, got)

	require.NoError(t, store.Delete(ctx, "d1"))
	_, err = store.Load(ctx, "d1")
	assert.ErrorIs(t, err, ErrDraftNotFound)

	require.NoError(t, store.Save(ctx, "d2", []byte("x"), time.Minute))
	clock.now = clock.now.Add(time.Hour)
	_, err = store.Load(ctx, "d2")
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestRedisReferenceCacheKeys(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"portal:ref", "portal:ref:catalog:L_CITY"},
		{"portal:ref:", "portal:ref:catalog:L_CITY"},
		{"", "catalog:L_CITY"},
	}
	for _, tt := range tests {
		cache := &redisReferenceCache{prefix: tt.prefix}
		assert.Equal(t, tt.want, cache.key("catalog:L_CITY"), "prefix %q", tt.prefix)
	}
}
