package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serenique/serenique-server/pkg/db"
)

func appendMessages(store *fakeStore, userID string, n int) {
	base := time.Now().UTC()
	for i := 0; i < n; i++ {
		_ = store.AppendMessage(context.Background(), db.ChatMessage{
			ID:        uuid.New().String(),
			UserID:    userID,
			Role:      db.RoleUser,
			Content:   "message",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
}

func TestCacheServesRepeatReadsWithinTTL(t *testing.T) {
	store := newFakeStore()
	appendMessages(store, "u1", 3)
	cache := NewHistoryCache(testLogger(), store, 5*time.Minute)

	first, err := cache.Get(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Len(t, first, 3)

	for i := 0; i < 5; i++ {
		again, err := cache.Get(context.Background(), "u1", 10)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, 1, store.historyCallCount())
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	store := newFakeStore()
	appendMessages(store, "u1", 2)
	cache := NewHistoryCache(testLogger(), store, 5*time.Minute)

	now := time.Now()
	cache.now = func() time.Time { return now }

	_, err := cache.Get(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, store.historyCallCount())

	now = now.Add(4 * time.Minute)
	_, err = cache.Get(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, store.historyCallCount())

	now = now.Add(2 * time.Minute)
	_, err = cache.Get(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, store.historyCallCount())
}

func TestCacheInvalidateIsScopedToUser(t *testing.T) {
	store := newFakeStore()
	appendMessages(store, "u1", 1)
	appendMessages(store, "u2", 1)
	cache := NewHistoryCache(testLogger(), store, 5*time.Minute)

	_, err := cache.Get(context.Background(), "u1", 10)
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), "u2", 10)
	require.NoError(t, err)
	require.Equal(t, 2, store.historyCallCount())

	cache.Invalidate("u1")

	_, err = cache.Get(context.Background(), "u2", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, store.historyCallCount(), "u2 should still be served from cache")

	_, err = cache.Get(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, store.historyCallCount(), "u1 should be refetched")
}

func TestCacheInvalidateDropsEveryLimit(t *testing.T) {
	store := newFakeStore()
	appendMessages(store, "u1", 5)
	cache := NewHistoryCache(testLogger(), store, 5*time.Minute)

	_, err := cache.Get(context.Background(), "u1", 10)
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), "u1", 3)
	require.NoError(t, err)
	require.Equal(t, 2, store.historyCallCount())

	cache.Invalidate("u1")

	_, err = cache.Get(context.Background(), "u1", 10)
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), "u1", 3)
	require.NoError(t, err)
	assert.Equal(t, 4, store.historyCallCount())
}

func TestCacheErrorLeavesNoEntry(t *testing.T) {
	store := newFakeStore()
	appendMessages(store, "u1", 2)
	cache := NewHistoryCache(testLogger(), store, 5*time.Minute)

	store.historyErr = errors.New("store down")
	_, err := cache.Get(context.Background(), "u1", 10)
	require.Error(t, err)

	store.historyErr = nil
	messages, err := cache.Get(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
	assert.Equal(t, 2, store.historyCallCount())
}

func TestCacheInFlightFetchCannotOutliveInvalidation(t *testing.T) {
	store := newFakeStore()
	appendMessages(store, "u1", 1)
	cache := NewHistoryCache(testLogger(), store, 5*time.Minute)

	// The write lands and invalidates while the first fetch is in flight;
	// its result must not be cached.
	store.onHistory = func() {
		store.onHistory = nil
		appendMessages(store, "u1", 1)
		cache.Invalidate("u1")
	}

	_, err := cache.Get(context.Background(), "u1", 10)
	require.NoError(t, err)

	messages, err := cache.Get(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Len(t, messages, 2, "post-invalidation read must see the new write")
	assert.Equal(t, 2, store.historyCallCount())
}

func TestCacheStats(t *testing.T) {
	store := newFakeStore()
	appendMessages(store, "u1", 1)
	appendMessages(store, "u2", 1)
	cache := NewHistoryCache(testLogger(), store, 5*time.Minute)

	_, _ = cache.Get(context.Background(), "u1", 10)
	_, _ = cache.Get(context.Background(), "u1", 3)
	_, _ = cache.Get(context.Background(), "u2", 10)

	stats := cache.Stats()
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, 2, stats.Users)
	assert.Equal(t, 5*time.Minute, stats.TTL)
}
