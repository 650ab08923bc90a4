package router

import (
	"testing"
	"time"

	"github.com/af-corp/containment-gateway/internal/config"
)

func breakerConfig(threshold int, probe time.Duration) func() config.CircuitBreakerConfig {
	return func() config.CircuitBreakerConfig {
		return config.CircuitBreakerConfig{FailureThreshold: threshold, RecoveryProbeInterval: probe}
	}
}

func TestHealthTracker_LazyCreation(t *testing.T) {
	ht := NewHealthTracker(breakerConfig(3, time.Second))
	if !ht.Allow(RouteOpenAI) {
		t.Error("expected new backend to be available")
	}
	if ht.Breaker(RouteOpenAI) != ht.Breaker(RouteOpenAI) {
		t.Error("expected the same breaker on repeated lookups")
	}
}

func TestHealthTracker_IndependentBackends(t *testing.T) {
	ht := NewHealthTracker(breakerConfig(1, time.Hour))
	ht.RecordFailure(RouteOpenAI)

	if ht.Allow(RouteOpenAI) {
		t.Error("expected openai to be unavailable")
	}
	if !ht.Allow(RouteAnthropic) {
		t.Error("expected anthropic to be available")
	}
	states := ht.States()
	if states[RouteOpenAI] != StateOpen || states[RouteAnthropic] != StateClosed {
		t.Errorf("unexpected states: %v", states)
	}
}

func TestHealthTracker_RecordSuccess(t *testing.T) {
	ht := NewHealthTracker(breakerConfig(2, time.Hour))
	ht.RecordFailure(RouteLocal)
	ht.RecordSuccess(RouteLocal)
	ht.RecordFailure(RouteLocal)
	if ht.State(RouteLocal) != StateClosed {
		t.Errorf("expected closed, got %s", ht.State(RouteLocal))
	}
}
