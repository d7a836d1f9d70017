package chat

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/serenique/serenique-server/pkg/db"
)

type cacheKey struct {
	userID string
	limit  int
}

type cacheEntry struct {
	messages []db.ChatMessage
	storedAt time.Time
}

// HistoryCache is a read-through TTL cache over GetRecentMessages, keyed
// by (user, limit). Invalidate drops every entry for a user and bumps
// that user's generation so a fetch that started before the
// invalidation cannot store its stale result afterwards.
type HistoryCache struct {
	logger *log.Logger
	store  Storage
	ttl    time.Duration

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
	gens    map[string]uint64

	now func() time.Time
}

func NewHistoryCache(logger *log.Logger, store Storage, ttl time.Duration) *HistoryCache {
	return &HistoryCache{
		logger:  logger,
		store:   store,
		ttl:     ttl,
		entries: make(map[cacheKey]cacheEntry),
		gens:    make(map[string]uint64),
		now:     time.Now,
	}
}

// Get returns the user's recent messages oldest-to-newest, serving from
// the cache when the entry is younger than the TTL. A store error is
// returned as-is and leaves no cache entry behind.
func (c *HistoryCache) Get(ctx context.Context, userID string, limit int) ([]db.ChatMessage, error) {
	key := cacheKey{userID: userID, limit: limit}

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && c.now().Sub(entry.storedAt) < c.ttl {
		c.mu.Unlock()
		return entry.messages, nil
	}
	gen := c.gens[userID]
	c.mu.Unlock()

	messages, err := c.store.GetRecentMessages(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gens[userID] == gen {
		c.entries[key] = cacheEntry{messages: messages, storedAt: c.now()}
	}
	c.mu.Unlock()

	return messages, nil
}

// Invalidate drops all cached history for the user, whatever the limit
// it was fetched with.
func (c *HistoryCache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[userID]++
	for key := range c.entries {
		if key.userID == userID {
			delete(c.entries, key)
		}
	}
}

// Stats describes the cache for the admin endpoint.
type Stats struct {
	Entries int           `json:"entries"`
	Users   int           `json:"users"`
	TTL     time.Duration `json:"ttl_ns"`
}

func (c *HistoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	users := make(map[string]struct{}, len(c.entries))
	for key := range c.entries {
		users[key.userID] = struct{}{}
	}
	return Stats{Entries: len(c.entries), Users: len(users), TTL: c.ttl}
}
