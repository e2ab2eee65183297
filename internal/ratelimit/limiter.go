// Package ratelimit provides the check-and-consume limiter the match
// orchestrator consults before doing any work. Backends are swappable: the
// in-memory limiter serves tests and single-instance runs, the Redis limiter
// is shared across worker instances.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrInvalidLimit = errors.New("RATE_LIMIT_INVALID")

// Decision is the outcome of one CheckAndConsume call.
type Decision struct {
	Allowed   bool
	ResetAt   time.Time
	Remaining int
}

// RetryAfter is how long the caller should wait before trying again.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || !d.ResetAt.After(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

// Limiter atomically checks the window for key and records one hit.
type Limiter interface {
	CheckAndConsume(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

func checkArgs(limit int, window time.Duration) error {
	if limit <= 0 || window <= 0 {
		return ErrInvalidLimit
	}
	return nil
}

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a fixed-window limiter held in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]*bucket), now: time.Now}
}

// WithClock replaces the limiter's time source.
func (m *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	m.now = now
	return m
}

func (m *MemoryLimiter) CheckAndConsume(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if err := checkArgs(limit, window); err != nil {
		return Decision{}, err
	}
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(window)}
		m.buckets[key] = b
	}

	if b.count >= limit {
		return Decision{Allowed: false, ResetAt: b.resetAt, Remaining: 0}, nil
	}
	b.count++
	return Decision{Allowed: true, ResetAt: b.resetAt, Remaining: limit - b.count}, nil
}

// Sweep drops expired windows.
func (m *MemoryLimiter) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for k, b := range m.buckets {
		if !now.Before(b.resetAt) {
			delete(m.buckets, k)
			removed++
		}
	}
	return removed
}
