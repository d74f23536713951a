// Package stats records admission-control decisions so operators can see
// which client keys are being throttled. Recording is best-effort: a stats
// failure must never fail the request being counted.
package stats

import (
	"context"
	"sync"
	"time"
)

// Event is one admission decision. Key cardinality is bounded by the
// limiter's own key space (client origins), so per-key hashes stay small.
type Event struct {
	Key     string
	Allowed bool
	At      time.Time
}

// Store persists admission decisions. Implementations exist for memory
// (dev, tests) and Redis (shared deployments).
type Store interface {
	Record(ctx context.Context, ev Event) error
}

// Counters is an allowed/denied pair.
type Counters struct {
	Allowed int64
	Denied  int64
}

// MemoryStore keeps counters in process. No expiry; dev and test use only.
type MemoryStore struct {
	mu    sync.Mutex
	total Counters
	byKey map[string]Counters
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byKey: make(map[string]Counters)}
}

func (s *MemoryStore) Record(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.byKey[ev.Key]
	if ev.Allowed {
		s.total.Allowed++
		c.Allowed++
	} else {
		s.total.Denied++
		c.Denied++
	}
	s.byKey[ev.Key] = c
	return nil
}

func (s *MemoryStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStore) ByKey(key string) Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byKey[key]
}

var _ Store = (*MemoryStore)(nil)
