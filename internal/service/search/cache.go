package search

import (
	"sync"
	"time"

	"github.com/sandevgo/gronkbot/internal/core"
)

// FollowUp is the retained context of one user's last successful history
// search in one channel, reused when they ask a follow-up in the same place.
type FollowUp struct {
	Query          string
	TargetUserID   string
	TargetUserName string
	Messages       []core.HistoryMessage // newest first, as scanned
}

type followUpKey struct {
	channelID string
	userID    string
}

type followUpEntry struct {
	value    FollowUp
	storedAt time.Time
}

// FollowUpCache is a process-wide bounded cache keyed by (channel, user).
// Entries expire after a TTL and the oldest entry is evicted at capacity, so
// memory stays bounded however many users talk to the bot. Concurrent writes
// to the same key are last-write-wins.
type FollowUpCache struct {
	mu         sync.Mutex
	entries    map[followUpKey]followUpEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewFollowUpCache builds a cache with the given bounds. now is injectable
// for tests; pass nil for the wall clock.
func NewFollowUpCache(ttl time.Duration, maxEntries int, now func() time.Time) *FollowUpCache {
	if now == nil {
		now = time.Now
	}
	return &FollowUpCache{
		entries:    make(map[followUpKey]followUpEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        now,
	}
}

// Put stores the follow-up context, overwriting any previous entry for the
// same (channel, user) pair.
func (c *FollowUpCache) Put(channelID, userID string, value FollowUp) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := followUpKey{channelID: channelID, userID: userID}
	c.entries[key] = followUpEntry{value: value, storedAt: c.now()}

	if len(c.entries) > c.maxEntries {
		c.evictOldestLocked(key)
	}
}

// Get returns the cached follow-up context, if present and fresh.
func (c *FollowUpCache) Get(channelID, userID string) (FollowUp, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := followUpKey{channelID: channelID, userID: userID}
	entry, ok := c.entries[key]
	if !ok {
		return FollowUp{}, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		return FollowUp{}, false
	}
	return entry.value, true
}

// Len reports the live entry count, counting entries not yet expired.
func (c *FollowUpCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	now := c.now()
	for _, entry := range c.entries {
		if now.Sub(entry.storedAt) <= c.ttl {
			n++
		}
	}
	return n
}

// evictOldestLocked removes the stalest entry other than keep.
func (c *FollowUpCache) evictOldestLocked(keep followUpKey) {
	var (
		oldest   followUpKey
		oldestAt time.Time
		found    bool
	)
	for key, entry := range c.entries {
		if key == keep {
			continue
		}
		if !found || entry.storedAt.Before(oldestAt) {
			oldest = key
			oldestAt = entry.storedAt
			found = true
		}
	}
	if found {
		delete(c.entries, oldest)
	}
}
