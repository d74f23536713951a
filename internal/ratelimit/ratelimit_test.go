package ratelimit

import (
	"sync"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestSlidingWindow_AdmitsUpToLimit(t *testing.T) {
	s := New(5, 15*time.Minute)

	for i := 0; i < 5; i++ {
		if !s.Allow("1.2.3.4", t0.Add(time.Duration(i)*time.Second)) {
			t.Fatalf("call %d should be admitted", i+1)
		}
	}
	if s.Allow("1.2.3.4", t0.Add(6*time.Second)) {
		t.Fatal("6th call within window should be throttled")
	}
}

func TestSlidingWindow_RejectionDoesNotConsumeQuota(t *testing.T) {
	s := New(2, time.Minute)

	s.Allow("k", t0)
	s.Allow("k", t0.Add(time.Second))

	// Hammering while blocked must not extend the block.
	for i := 0; i < 10; i++ {
		if s.Allow("k", t0.Add(2*time.Second)) {
			t.Fatal("expected blocked")
		}
	}

	// First call leaves the window; one slot opens.
	if !s.Allow("k", t0.Add(61*time.Second)) {
		t.Fatal("expected admitted after oldest call expired")
	}
}

func TestSlidingWindow_FullResetAfterQuietWindow(t *testing.T) {
	s := New(5, 15*time.Minute)

	for i := 0; i < 6; i++ {
		s.Allow("k", t0)
	}

	later := t0.Add(15*time.Minute + time.Second)
	for i := 0; i < 5; i++ {
		if !s.Allow("k", later.Add(time.Duration(i)*time.Second)) {
			t.Fatalf("call %d after quiet window should be admitted", i+1)
		}
	}
}

func TestSlidingWindow_KeysAreIndependent(t *testing.T) {
	s := New(1, time.Minute)

	if !s.Allow("a", t0) {
		t.Fatal("key a should be admitted")
	}
	if s.Allow("a", t0.Add(time.Second)) {
		t.Fatal("key a should be throttled")
	}
	if !s.Allow("b", t0.Add(time.Second)) {
		t.Fatal("key b must not share key a's window")
	}
}

func TestDecide_RetryAfterHint(t *testing.T) {
	s := New(1, time.Minute)

	s.Allow("k", t0)

	dec := s.Decide("k", t0.Add(10*time.Second))
	if dec.Allowed {
		t.Fatal("expected blocked")
	}
	if dec.RetryAfter != 50*time.Second {
		t.Fatalf("expected RetryAfter=50s, got %s", dec.RetryAfter)
	}
}

func TestSweep_DropsIdleKeys(t *testing.T) {
	s := New(5, time.Minute)

	s.Allow("idle", t0)
	s.Allow("busy", t0)
	s.Allow("busy", t0.Add(90*time.Second))

	s.Sweep(t0.Add(2 * time.Minute))

	if got := s.Keys(); got != 1 {
		t.Fatalf("expected 1 surviving key, got %d", got)
	}
}

func TestSlidingWindow_ConcurrentSameKey(t *testing.T) {
	s := New(5, time.Minute)

	var wg sync.WaitGroup
	admitted := make(chan struct{}, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Allow("k", t0) {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	n := 0
	for range admitted {
		n++
	}
	if n != 5 {
		t.Fatalf("expected exactly 5 admitted under contention, got %d", n)
	}
}
