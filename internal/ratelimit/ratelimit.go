package ratelimit

import (
	"context"
	"sync"
	"time"
)

// SlidingWindow admits at most limit calls per client key within the
// trailing window. State is one timestamp list per key, pruned lazily on
// access, so memory per key is bounded by limit. The whole map is guarded
// by a single mutex; prune + count + append run as one critical section.
//
// The count is approximate at window boundaries (adjacent bursts can admit
// up to 2x limit), which is the accepted trade-off for not needing any
// external clock or store.
type SlidingWindow struct {
	mu      sync.Mutex
	entries map[string]*entry

	limit      int
	window     time.Duration
	sweepEvery time.Duration
}

type entry struct {
	calls    []time.Time
	lastSeen time.Time
}

// Decision is the outcome of one admission check. RetryAfter is a hint for
// the caller when blocked; zero when allowed.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type Option func(*SlidingWindow)

// WithSweepEvery sets the janitor interval. Zero disables the janitor.
func WithSweepEvery(d time.Duration) Option {
	return func(s *SlidingWindow) { s.sweepEvery = d }
}

// New builds a limiter admitting limit calls per key per trailing window.
func New(limit int, window time.Duration, opts ...Option) *SlidingWindow {
	s := &SlidingWindow{
		entries:    make(map[string]*entry),
		limit:      limit,
		window:     window,
		sweepEvery: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SlidingWindow) Limit() int            { return s.limit }
func (s *SlidingWindow) Window() time.Duration { return s.window }

// Allow reports whether a call at instant now is admitted for key.
func (s *SlidingWindow) Allow(key string, now time.Time) bool {
	return s.Decide(key, now).Allowed
}

// Decide runs one admission check. A blocked call does not consume quota:
// only admitted calls append to the window.
func (s *SlidingWindow) Decide(key string, now time.Time) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		ent = &entry{}
		s.entries[key] = ent
	}
	ent.lastSeen = now

	cutoff := now.Add(-s.window)
	ent.calls = prune(ent.calls, cutoff)

	if len(ent.calls) >= s.limit {
		// Oldest surviving call leaving the window is the earliest
		// instant the key can be admitted again.
		return Decision{RetryAfter: ent.calls[0].Add(s.window).Sub(now)}
	}

	ent.calls = append(ent.calls, now)
	return Decision{Allowed: true}
}

// prune drops timestamps at or before cutoff, preserving order.
func prune(calls []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(calls) && !calls[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return calls
	}
	return append(calls[:0], calls[i:]...)
}

// Sweep removes keys whose whole window has expired. Purely memory hygiene;
// correctness never depends on it because pruning happens on access.
func (s *SlidingWindow) Sweep(now time.Time) {
	cutoff := now.Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor sweeps idle keys periodically until ctx is cancelled.
func (s *SlidingWindow) StartJanitor(ctx context.Context) {
	if s.sweepEvery <= 0 {
		return
	}

	t := time.NewTicker(s.sweepEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep(time.Now())
			}
		}
	}()
}

// Keys returns the number of tracked client keys. Used by tests and the
// janitor's own tests; cheap enough to hold the lock.
func (s *SlidingWindow) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
