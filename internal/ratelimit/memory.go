package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps buckets in process. One mutex covers the map so the
// read-check-increment of a key is a single critical section.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]Bucket
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]Bucket), now: time.Now}
}

func (s *MemoryStore) Take(_ context.Context, key string, max int, window time.Duration, now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, live := s.buckets[key]
	next, res := apply(b, live, max, window, now)
	if res.Allowed {
		s.buckets[key] = next
	}
	return res, nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// Cleanup drops buckets whose window has ended. Those are already logically
// fresh, so admission results do not change.
func (s *MemoryStore) Cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, b := range s.buckets {
		if !b.WindowEnd.After(now) {
			delete(s.buckets, k)
			n++
		}
	}
	return n
}

// StartJanitor runs Cleanup every interval until ctx is done.
func (s *MemoryStore) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup(s.now())
			}
		}
	}()
}
