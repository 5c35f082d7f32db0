package validation

import (
	"sync"
	"time"
)

// RateLimiter implements a token-bucket limiter per client. The hub uses
// it to keep one misbehaving client from flooding everyone else's
// broadcast stream.
type RateLimiter struct {
	maxTokens   int
	window      time.Duration
	clients     map[string]*bucket
	mu          sync.RWMutex
	cleanupTick *time.Ticker
	done        chan struct{}
}

type bucket struct {
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a limiter allowing maxTokens requests per window
// per client.
func NewRateLimiter(maxTokens int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		maxTokens: maxTokens,
		window:    window,
		clients:   make(map[string]*bucket),
		done:      make(chan struct{}),
	}

	rl.cleanupTick = time.NewTicker(window)
	go rl.cleanupLoop()

	return rl
}

// Allow reports whether a request from the given client should proceed.
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.RLock()
	b, exists := rl.clients[clientID]
	rl.mu.RUnlock()

	if !exists {
		b = &bucket{tokens: rl.maxTokens, lastRefill: time.Now()}
		rl.mu.Lock()
		// Another goroutine may have created the bucket meanwhile.
		if existing, ok := rl.clients[clientID]; ok {
			b = existing
		} else {
			rl.clients[clientID] = b
		}
		rl.mu.Unlock()
	}

	return rl.consume(b)
}

func (rl *RateLimiter) consume(b *bucket) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill)
	if elapsed > 0 && b.tokens < rl.maxTokens {
		refill := int(float64(rl.maxTokens) * (float64(elapsed) / float64(rl.window)))
		if refill > 0 {
			b.tokens += refill
			if b.tokens > rl.maxTokens {
				b.tokens = rl.maxTokens
			}
			b.lastRefill = now
		}
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

func (rl *RateLimiter) cleanupLoop() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.removeInactiveClients()
		case <-rl.done:
			return
		}
	}
}

// removeInactiveClients drops buckets idle for two full windows so
// disconnected clients do not leak.
func (rl *RateLimiter) removeInactiveClients() {
	cutoff := time.Now().Add(-2 * rl.window)

	rl.mu.Lock()
	for clientID, b := range rl.clients {
		b.mu.Lock()
		if b.lastRefill.Before(cutoff) {
			delete(rl.clients, clientID)
		}
		b.mu.Unlock()
	}
	rl.mu.Unlock()
}

// Close stops the cleanup goroutine.
func (rl *RateLimiter) Close() {
	close(rl.done)
	rl.cleanupTick.Stop()
}
