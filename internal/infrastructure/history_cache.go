package infrastructure

import (
	"sync"
	"time"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

// HistoryCache keeps the recent message window per customer in a fixed-size
// ring, with idle entries evicted after a TTL. Bounded by construction: at
// most `capacity` messages per key, stale keys reaped by a background sweep.
type HistoryCache struct {
	mu       sync.RWMutex
	entries  map[string]*historyEntry
	capacity int
	ttl      time.Duration
	done     chan struct{}
}

type historyEntry struct {
	ring     []entities.Message
	start    int // index of oldest element
	count    int
	lastUsed time.Time
}

// NewHistoryCache creates a cache holding up to capacity messages per key.
// Entries idle longer than ttl are dropped by a periodic sweep.
func NewHistoryCache(capacity int, ttl time.Duration) *HistoryCache {
	c := &HistoryCache{
		entries:  make(map[string]*historyEntry),
		capacity: capacity,
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Append records a message for the key, evicting the oldest when full.
func (c *HistoryCache) Append(key string, msg entities.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		e = &historyEntry{ring: make([]entities.Message, c.capacity)}
		c.entries[key] = e
	}
	if e.count < c.capacity {
		e.ring[(e.start+e.count)%c.capacity] = msg
		e.count++
	} else {
		e.ring[e.start] = msg
		e.start = (e.start + 1) % c.capacity
	}
	e.lastUsed = time.Now()
}

// Window returns up to n most recent messages for the key, oldest first.
// The second return is false on a cache miss; callers fall back to the store.
func (c *HistoryCache) Window(key string, n int) ([]entities.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e.lastUsed = time.Now()

	if n > e.count {
		n = e.count
	}
	out := make([]entities.Message, 0, n)
	for i := e.count - n; i < e.count; i++ {
		out = append(out, e.ring[(e.start+i)%c.capacity])
	}
	return out, true
}

// Prime replaces the cached window for a key from store-loaded history.
func (c *HistoryCache) Prime(key string, msgs []entities.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &historyEntry{ring: make([]entities.Message, c.capacity), lastUsed: time.Now()}
	start := 0
	if len(msgs) > c.capacity {
		start = len(msgs) - c.capacity
	}
	for _, m := range msgs[start:] {
		e.ring[e.count] = m
		e.count++
	}
	c.entries[key] = e
}

// Len returns the number of cached keys.
func (c *HistoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the background sweep.
func (c *HistoryCache) Close() {
	close(c.done)
}

func (c *HistoryCache) sweep() {
	interval := c.ttl
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, e := range c.entries {
				if now.Sub(e.lastUsed) > c.ttl {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}
