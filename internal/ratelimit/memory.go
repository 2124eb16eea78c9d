package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore counts in process memory. Quotas enforced through it are
// per-instance; deployments running several replicas behind a balancer use
// the Redis store for one shared quota point.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]memoryWindow
	now     func() time.Time
}

type memoryWindow struct {
	count     int
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: map[string]memoryWindow{},
		now:     time.Now,
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)

	w, ok := s.windows[key]
	if !ok {
		w = memoryWindow{expiresAt: now.Add(2 * window)}
	}
	if w.count >= limit {
		s.windows[key] = w
		return w.count, false, nil
	}
	w.count++
	s.windows[key] = w
	return w.count, true, nil
}

// pruneLocked drops windows past their retention so the map does not grow
// with one entry per client forever.
func (s *MemoryStore) pruneLocked(now time.Time) {
	if len(s.windows) < 1024 {
		return
	}
	for k, w := range s.windows {
		if !w.expiresAt.After(now) {
			delete(s.windows, k)
		}
	}
}
