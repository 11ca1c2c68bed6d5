package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ceremic-storefront/internal/backend"
	"github.com/example/ceremic-storefront/internal/infrastructure/store/mocks"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache() (*Cache, *mocks.MockStorage, *fakeClock) {
	storage := mocks.NewMockStorage()
	clock := &fakeClock{t: fixedNow}
	return NewCache(storage, WithClock(clock.Now)), storage, clock
}

func TestCache_TTL(t *testing.T) {
	cache, storage, clock := newTestCache()
	ctx := context.Background()
	products := []*backend.RawProduct{{ID: 1, Name: "Vase"}}

	require.NoError(t, cache.Put(ctx, products))

	clock.Advance(29 * time.Minute)
	got, ok := cache.Get(ctx)
	assert.True(t, ok)
	assert.Equal(t, products, got)

	clock.Advance(2 * time.Minute)
	got, ok = cache.Get(ctx)
	assert.False(t, ok)
	assert.Nil(t, got)

	_, stored := storage.GetData(CacheKey)
	assert.False(t, stored, "expired entry should be evicted")
	assert.Equal(t, []string{CacheKey}, storage.DeleteCalls)
}

func TestCache_ExactlyAtTTLIsExpired(t *testing.T) {
	cache, _, clock := newTestCache()
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, []*backend.RawProduct{{ID: 1}}))
	clock.Advance(DefaultTTL)

	_, ok := cache.Get(ctx)
	assert.False(t, ok)
}

func TestCache_EntryShape(t *testing.T) {
	cache, storage, _ := newTestCache()

	require.NoError(t, cache.Put(context.Background(), nil))

	raw, ok := storage.GetData(CacheKey)
	require.True(t, ok)
	assert.JSONEq(t, `{"data":[],"timestamp":1709978400000}`, string(raw))
}

func TestCache_Miss(t *testing.T) {
	cache, _, _ := newTestCache()

	_, ok := cache.Get(context.Background())

	assert.False(t, ok)
}

func TestCache_CorruptEntryPurged(t *testing.T) {
	cache, storage, _ := newTestCache()
	storage.SetData(CacheKey, []byte("{oops"))

	_, ok := cache.Get(context.Background())

	assert.False(t, ok)
	_, stored := storage.GetData(CacheKey)
	assert.False(t, stored)
}

func TestCache_StorageErrorIsMiss(t *testing.T) {
	cache, storage, _ := newTestCache()
	storage.GetErr = errors.New("disk gone")

	_, ok := cache.Get(context.Background())

	assert.False(t, ok)
}

func TestCache_Invalidate(t *testing.T) {
	cache, _, _ := newTestCache()
	ctx := context.Background()
	require.NoError(t, cache.Put(ctx, []*backend.RawProduct{{ID: 1}}))

	require.NoError(t, cache.Invalidate(ctx))

	_, ok := cache.Get(ctx)
	assert.False(t, ok)
}

func TestCache_LastWriteWins(t *testing.T) {
	cache, _, _ := newTestCache()
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, []*backend.RawProduct{{ID: 1}}))
	require.NoError(t, cache.Put(ctx, []*backend.RawProduct{{ID: 2}}))

	got, ok := cache.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestCache_CustomTTL(t *testing.T) {
	storage := mocks.NewMockStorage()
	clock := &fakeClock{t: fixedNow}
	cache := NewCache(storage, WithClock(clock.Now), WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, []*backend.RawProduct{{ID: 1}}))
	clock.Advance(61 * time.Second)

	_, ok := cache.Get(ctx)
	assert.False(t, ok)
}
