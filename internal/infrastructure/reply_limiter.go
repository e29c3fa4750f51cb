package infrastructure

import (
	"sync"
	"time"
)

// ReplyLimiter implements token bucket rate limiting per customer. It caps
// how often the auto-responder fires for one customer; inbound messages over
// the limit are still stored, they just get no AI turn.
type ReplyLimiter struct {
	mu          sync.RWMutex
	buckets     map[string]*tokenBucket
	rate        float64 // tokens per second
	maxTokens   float64 // burst capacity
	cleanupTick time.Duration
	done        chan struct{}
}

type tokenBucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewReplyLimiter creates a limiter with the given refill rate and burst.
func NewReplyLimiter(rate float64, burst int) *ReplyLimiter {
	rl := &ReplyLimiter{
		buckets:     make(map[string]*tokenBucket),
		rate:        rate,
		maxTokens:   float64(burst),
		cleanupTick: 5 * time.Minute,
		done:        make(chan struct{}),
	}

	// Start cleanup goroutine
	go rl.cleanup()

	return rl
}

// Allow checks if a reply may be generated for the customer (consumes 1 token
// if allowed).
func (rl *ReplyLimiter) Allow(customerKey string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, exists := rl.buckets[customerKey]
	now := time.Now()

	if !exists {
		// Create new bucket with full tokens
		rl.buckets[customerKey] = &tokenBucket{
			tokens:     rl.maxTokens - 1, // Consume 1 token
			lastUpdate: now,
		}
		return true
	}

	// Refill tokens based on time elapsed
	elapsed := now.Sub(bucket.lastUpdate).Seconds()
	bucket.tokens += elapsed * rl.rate
	if bucket.tokens > rl.maxTokens {
		bucket.tokens = rl.maxTokens
	}
	bucket.lastUpdate = now

	if bucket.tokens >= 1 {
		bucket.tokens -= 1
		return true
	}

	return false
}

// Reset removes rate limit state for a customer.
func (rl *ReplyLimiter) Reset(customerKey string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, customerKey)
}

// Close stops the background cleanup.
func (rl *ReplyLimiter) Close() {
	close(rl.done)
}

// cleanup removes stale buckets periodically
func (rl *ReplyLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, bucket := range rl.buckets {
				// Remove buckets not used in last 10 minutes
				if now.Sub(bucket.lastUpdate) > 10*time.Minute {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}
