package router

import (
	"sync"

	"github.com/af-corp/containment-gateway/internal/config"
)

// HealthTracker keeps one circuit breaker per backend route.
type HealthTracker struct {
	mu       sync.Mutex
	breakers map[Route]*CircuitBreaker
	cfg      func() config.CircuitBreakerConfig
}

// NewHealthTracker reads thresholds from cfg when a breaker is first created.
func NewHealthTracker(cfg func() config.CircuitBreakerConfig) *HealthTracker {
	return &HealthTracker{
		breakers: make(map[Route]*CircuitBreaker),
		cfg:      cfg,
	}
}

// Breaker returns (or lazily creates) the breaker for route.
func (ht *HealthTracker) Breaker(route Route) *CircuitBreaker {
	ht.mu.Lock()
	defer ht.mu.Unlock()
	cb, ok := ht.breakers[route]
	if !ok {
		c := ht.cfg()
		cb = NewCircuitBreaker(c.FailureThreshold, c.RecoveryProbeInterval)
		ht.breakers[route] = cb
	}
	return cb
}

func (ht *HealthTracker) Allow(route Route) bool         { return ht.Breaker(route).Allow() }
func (ht *HealthTracker) RecordSuccess(route Route)      { ht.Breaker(route).RecordSuccess() }
func (ht *HealthTracker) RecordFailure(route Route)      { ht.Breaker(route).RecordFailure() }
func (ht *HealthTracker) State(route Route) CircuitState { return ht.Breaker(route).State() }

// States snapshots every known breaker, for health reporting.
func (ht *HealthTracker) States() map[Route]CircuitState {
	ht.mu.Lock()
	routes := make([]Route, 0, len(ht.breakers))
	for r := range ht.breakers {
		routes = append(routes, r)
	}
	ht.mu.Unlock()

	out := make(map[Route]CircuitState, len(routes))
	for _, r := range routes {
		out[r] = ht.State(r)
	}
	return out
}
