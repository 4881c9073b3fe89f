package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowRecord struct {
	count int
	reset time.Time
}

// MemoryStore is a mutex-guarded in-process Store. Expired windows are
// evicted by a background sweep so the map does not grow without bound with
// distinct client IPs.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*windowRecord

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemoryStore creates a MemoryStore and starts its sweep loop.
// sweepInterval <= 0 disables sweeping.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]*windowRecord),
		stop:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}
	return s
}

// Hit implements Store.
func (s *MemoryStore) Hit(_ context.Context, key string, now time.Time, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || now.After(rec.reset) {
		rec = &windowRecord{count: 1, reset: now.Add(window)}
		s.records[key] = rec
		return rec.count, rec.reset, nil
	}

	rec.count++
	return rec.count, rec.reset, nil
}

// Close stops the sweep loop. Safe to call more than once.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, rec := range s.records {
		if now.After(rec.reset) {
			delete(s.records, key)
		}
	}
}
