package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Limiter answers whether one more request under key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

const keyPrefix = "salon:rate_limit:"

// hashKey keeps raw client addresses out of the backing store.
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// MemoryLimiter is a fixed-window limiter for a single process, used when
// Redis is not configured.
type MemoryLimiter struct {
	mu       sync.Mutex
	requests int
	window   time.Duration
	now      func() time.Time
	windows  map[string]memoryWindow
}

type memoryWindow struct {
	count   int
	resetAt time.Time
}

func NewMemoryLimiter(requests int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		requests: requests,
		window:   window,
		now:      time.Now,
		windows:  make(map[string]memoryWindow),
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	k := hashKey(key)
	w, ok := m.windows[k]
	if !ok || !now.Before(w.resetAt) {
		w = memoryWindow{resetAt: now.Add(m.window)}
	}
	w.count++
	m.windows[k] = w

	if len(m.windows) > 10000 {
		m.sweep(now)
	}
	return w.count <= m.requests, nil
}

func (m *MemoryLimiter) sweep(now time.Time) {
	for k, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, k)
		}
	}
}
