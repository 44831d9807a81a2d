// Package ratelimit implements a per-provider sliding-window rate limiter.
// It is the admission gate for every outbound carrier call: a full window
// means the caller waits, never that the call errors.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Rule is the admission budget for one provider key: at most MaxRequests
// calls inside any rolling Window.
type Rule struct {
	MaxRequests int
	Window      time.Duration
}

// Limiter tracks recent call timestamps per provider key inside a sliding
// window. Keys without a configured rule are unlimited. Buckets are created
// lazily on first check and live for the process lifetime.
type Limiter struct {
	rules map[string]Rule
	clock Clock

	// OnWait, when set, is called once per AwaitSlot call that found the
	// window full and had to sleep. Set it before the limiter is shared.
	OnWait func(key string)

	mu      sync.RWMutex
	buckets map[string]*bucket
}

type bucket struct {
	mu     sync.Mutex
	stamps []time.Time
}

// New creates a limiter with per-key rules and an injected clock.
func New(clock Clock, rules map[string]Rule) *Limiter {
	if clock == nil {
		clock = RealClock{}
	}
	if rules == nil {
		rules = make(map[string]Rule)
	}
	return &Limiter{
		rules:   rules,
		clock:   clock,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether a call for key may proceed right now, recording the
// call instant on admission. A refusal is a normal signal, not an error.
func (l *Limiter) Allow(key string) bool {
	rule, ok := l.rules[key]
	if !ok {
		return true
	}

	now := l.clock.Now()
	b := l.getOrCreateBucket(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.purge(now, rule.Window)
	if len(b.stamps) >= rule.MaxRequests {
		return false
	}
	b.stamps = append(b.stamps, now)
	return true
}

// Remaining returns how many calls for key are still admissible in the
// current window. Unlimited keys report -1.
func (l *Limiter) Remaining(key string) int {
	rule, ok := l.rules[key]
	if !ok {
		return -1
	}

	now := l.clock.Now()
	b := l.getOrCreateBucket(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.purge(now, rule.Window)
	if n := rule.MaxRequests - len(b.stamps); n > 0 {
		return n
	}
	return 0
}

// TimeUntilReset returns how long until the oldest retained call leaves the
// window, floored at zero. Keys with no retained calls report zero; a
// non-zero value does not by itself mean Allow would refuse, since the
// window may still have free slots.
func (l *Limiter) TimeUntilReset(key string) time.Duration {
	rule, ok := l.rules[key]
	if !ok {
		return 0
	}

	now := l.clock.Now()
	b := l.getOrCreateBucket(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.purge(now, rule.Window)
	if len(b.stamps) == 0 {
		return 0
	}
	if d := b.stamps[0].Add(rule.Window).Sub(now); d > 0 {
		return d
	}
	return 0
}

// AwaitSlot suspends the calling goroutine until Allow admits a call for key,
// consuming the slot. It sleeps for exactly TimeUntilReset between rechecks
// rather than busy-looping; a recheck can lose its slot to a concurrent
// caller, in which case it sleeps again.
func (l *Limiter) AwaitSlot(ctx context.Context, key string) error {
	waited := false
	for {
		if l.Allow(key) {
			return nil
		}
		if !waited {
			waited = true
			if l.OnWait != nil {
				l.OnWait(key)
			}
		}
		wait := l.TimeUntilReset(key)
		if wait <= 0 {
			// Another caller consumed the slot between the check and
			// the reset computation.
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Limiter) getOrCreateBucket(key string) *bucket {
	l.mu.RLock()
	b := l.buckets[key]
	l.mu.RUnlock()
	if b != nil {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b = l.buckets[key]; b != nil {
		return b
	}
	b = &bucket{}
	l.buckets[key] = b
	return b
}

// purge drops timestamps older than the window. Caller holds b.mu.
func (b *bucket) purge(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(b.stamps) && !b.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		b.stamps = append(b.stamps[:0], b.stamps[i:]...)
	}
}
