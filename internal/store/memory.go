package store

import (
	"sync"
	"time"
)

// Snapshot is one raw export as fetched from the source.
type Snapshot struct {
	Raw       string
	FetchedAt time.Time
	Version   int // bumps only when Raw changes
}

// MemoryStore keeps the most recent export snapshot for the process.
type MemoryStore struct {
	mu   sync.RWMutex
	snap *Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Put records a freshly fetched export and reports whether its content
// differs from the previous one.
func (s *MemoryStore) Put(raw string, at time.Time) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.snap == nil || s.snap.Raw != raw
	next := Snapshot{Raw: raw, FetchedAt: at, Version: 1}
	if s.snap != nil {
		next.Version = s.snap.Version
		if changed {
			next.Version++
		}
	}
	s.snap = &next
	return next, changed
}

func (s *MemoryStore) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return Snapshot{}, false
	}
	return *s.snap, true
}

// Fresh returns the snapshot only while it is younger than ttl.
func (s *MemoryStore) Fresh(now time.Time, ttl time.Duration) (Snapshot, bool) {
	snap, ok := s.Latest()
	if !ok || ttl <= 0 {
		return Snapshot{}, false
	}
	if now.Sub(snap.FetchedAt) >= ttl {
		return Snapshot{}, false
	}
	return snap, true
}
