// Package cache holds completed responses for a TTL and coalesces identical
// in-flight provider calls.
package cache

import (
	"sync"
	"time"

	"github.com/af-corp/containment-gateway/internal/types"
)

type entry struct {
	resp   types.AIResponse
	expiry time.Time
}

// Store is a process-local TTL cache. Expired entries are dropped on lookup
// and swept once the map grows past the sweep threshold.
type Store struct {
	mu             sync.Mutex
	entries        map[string]entry
	ttl            time.Duration
	sweepThreshold int
	now            func() time.Time
}

func NewStore(ttl time.Duration, sweepThreshold int) *Store {
	return NewStoreWithClock(ttl, sweepThreshold, time.Now)
}

// NewStoreWithClock is NewStore with an injected time source.
func NewStoreWithClock(ttl time.Duration, sweepThreshold int, now func() time.Time) *Store {
	return &Store{
		entries:        make(map[string]entry),
		ttl:            ttl,
		sweepThreshold: sweepThreshold,
		now:            now,
	}
}

// Get returns a copy of the cached response while now < expiry.
func (s *Store) Get(key string) (*types.AIResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.expiry) {
		delete(s.entries, key)
		return nil, false
	}
	resp := e.resp
	resp.CrisisResources = append([]types.CrisisResource(nil), e.resp.CrisisResources...)
	return &resp, true
}

// Set stores a copy of resp for the store's TTL.
func (s *Store) Set(key string, resp *types.AIResponse) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{resp: *resp, expiry: now.Add(s.ttl)}
	if s.sweepThreshold > 0 && len(s.entries) > s.sweepThreshold {
		s.sweepLocked(now)
	}
}

// SetTTL changes the TTL applied to future Set calls.
func (s *Store) SetTTL(ttl time.Duration) {
	s.mu.Lock()
	s.ttl = ttl
	s.mu.Unlock()
}

// Sweep drops every expired entry and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *Store) sweepLocked(now time.Time) int {
	removed := 0
	for k, e := range s.entries {
		if !now.Before(e.expiry) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
