// Package ratelimit provides a per-key fixed-window counter. It is a soft
// in-process abuse guard, not a precise limiter: state is not persisted and
// resets on restart. The component is injectable so a shared-cache limiter
// can replace it in a multi-instance deployment.
package ratelimit

import (
	"sync"
	"time"
)

type entry struct {
	windowStart time.Time
	count       int
}

// Limiter counts events per key within a fixed window. Once the window has
// elapsed since a key's first use, both the window and the count reset.
type Limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string]*entry
	now     func() time.Time // injectable for tests
}

// New creates a Limiter allowing max events per window per key.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  window,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Allow records an event for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok || now.Sub(e.windowStart) >= l.window {
		l.entries[key] = &entry{windowStart: now, count: 1}
		return true
	}
	if e.count >= l.max {
		return false
	}
	e.count++
	return true
}
