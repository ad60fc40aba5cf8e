package lockout

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const defaultCleanupInterval = 5 * time.Minute

// InMemory keeps counters in a process-local go-cache. It suits a single
// instance; run several instances behind Redis instead.
type InMemory struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

func NewInMemory() *InMemory {
	return &InMemory{cache: gocache.New(gocache.NoExpiration, defaultCleanupInterval)}
}

func (s *InMemory) RecordAttempt(_ context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// IncrementInt keeps the existing expiration, so the window stays anchored
	// at the first attempt.
	if n, err := s.cache.IncrementInt(key, 1); err == nil {
		return n, nil
	}
	s.cache.Set(key, 1, window)
	return 1, nil
}

func (s *InMemory) Clear(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
