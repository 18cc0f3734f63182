// Package ratelimit implements the per-user send cooldown.
package ratelimit

import "time"

// DefaultInterval is the minimum gap between two accepted sends by one user.
const DefaultInterval = time.Second

// Limiter remembers the last accepted send per user. It is not safe for
// concurrent use; the gateway hub goroutine owns it.
type Limiter struct {
	interval time.Duration
	last     map[uint64]time.Time
}

// New returns a Limiter with the given interval. Non-positive intervals fall
// back to DefaultInterval.
func New(interval time.Duration) *Limiter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Limiter{interval: interval, last: make(map[uint64]time.Time)}
}

// TryAcquire allows the send if the user has no prior accepted send or the
// previous one is at least interval old. The timestamp is recorded only on
// acceptance, so rejected attempts never extend the cooldown.
func (l *Limiter) TryAcquire(userID uint64, now time.Time) bool {
	if prev, ok := l.last[userID]; ok && now.Sub(prev) < l.interval {
		return false
	}
	l.last[userID] = now
	return true
}

// Release drops a user's history once the cooldown has lapsed. The hub calls
// it when a user goes offline so the map does not grow with every user ever
// seen; a quick reconnect inside the window keeps the cooldown.
func (l *Limiter) Release(userID uint64, now time.Time) {
	if prev, ok := l.last[userID]; ok && now.Sub(prev) >= l.interval {
		delete(l.last, userID)
	}
}

// Len returns the number of users with a recorded send.
func (l *Limiter) Len() int { return len(l.last) }

// Interval returns the configured cooldown.
func (l *Limiter) Interval() time.Duration { return l.interval }
