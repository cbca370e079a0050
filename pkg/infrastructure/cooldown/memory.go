package cooldown

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps cooldown keys in process. Used when no redis address is configured.
type MemoryStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{expires: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryStore) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if until, ok := s.expires[key]; ok && now.Before(until) {
		return false, nil
	}
	s.expires[key] = now.Add(ttl)
	s.evict(now)
	return true, nil
}

func (s *MemoryStore) evict(now time.Time) {
	for key, until := range s.expires {
		if !now.Before(until) {
			delete(s.expires, key)
		}
	}
}
