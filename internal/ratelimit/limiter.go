// Package ratelimit throttles how often a single user may issue commands.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultEvictionFactor is how many cooldown windows an idle entry is kept.
const DefaultEvictionFactor = 12

// Limiter enforces a per-user cooldown between commands. Entries idle for
// longer than evictAfter are swept, so memory is bounded by the number of
// users active within that window.
type Limiter struct {
	cooldown   time.Duration
	evictAfter time.Duration
	now        func() time.Time

	mu        sync.Mutex
	last      map[string]time.Time
	lastSweep time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithEvictionFactor keeps idle entries for factor cooldown windows.
func WithEvictionFactor(factor int) Option {
	return func(l *Limiter) {
		if factor > 0 {
			l.evictAfter = time.Duration(factor) * l.cooldown
		}
	}
}

// New creates a limiter with the given cooldown.
func New(cooldown time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		cooldown:   cooldown,
		evictAfter: DefaultEvictionFactor * cooldown,
		now:        time.Now,
		last:       make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastSweep = l.now()
	return l
}

// Allow reports whether user may run a command now. When allowed, the current
// time is recorded for user; otherwise wait is the time left in the cooldown.
func (l *Limiter) Allow(user string) (allowed bool, wait time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	// A clock that stepped backwards yields a negative elapsed time and is
	// throttled, so a user's timestamp never decreases.
	if last, ok := l.last[user]; ok {
		if elapsed := now.Sub(last); elapsed < l.cooldown {
			return false, min(l.cooldown-elapsed, l.cooldown)
		}
	}

	l.last[user] = now
	return true, 0
}

// Len returns the number of tracked users.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}

// sweep drops idle entries at most once per cooldown window.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.cooldown {
		return
	}
	l.lastSweep = now

	for user, last := range l.last {
		if now.Sub(last) > l.evictAfter {
			delete(l.last, user)
		}
	}
}
