package router

import (
	"context"
	"errors"
	"log/slog"

	"github.com/af-corp/containment-gateway/internal/config"
	"github.com/af-corp/containment-gateway/internal/router/adapters"
	"github.com/af-corp/containment-gateway/internal/types"
)

// ErrCircuitOpen is wrapped in a ProviderError when a backend is shedding load.
var ErrCircuitOpen = errors.New("circuit open")

// Outcome is the result of a routed backend call.
type Outcome struct {
	Route      Route // decision, possibly hybrid
	Backend    Route // backend actually called
	Content    string
	TokensUsed int
}

// Router turns a routing decision into a backend call.
type Router struct {
	registry *Registry
	health   *HealthTracker
	cfg      func() config.GatewayConfig
}

func New(registry *Registry, health *HealthTracker, cfg func() config.GatewayConfig) *Router {
	return &Router{registry: registry, health: health, cfg: cfg}
}

// Decide applies the routing table with the current configuration. An
// unknown default provider only fails requests whose route depends on it.
func (r *Router) Decide(level types.ContainmentLevel, t types.RequestType) (Route, error) {
	cfg := r.cfg()
	def, ok := ParseRoute(cfg.DefaultProvider)
	route := Decide(level, t, cfg.PrivacyFirst, def)
	if !ok && route != RouteLocal {
		return "", &types.ConfigurationError{Provider: cfg.DefaultProvider, Reason: "unknown default provider"}
	}
	return route, nil
}

// Call sends req to the backend for route. Hybrid calls carry placeholders
// instead of the real prompt and context. Errors are *types.ConfigurationError
// or *types.ProviderError and are never retried here.
func (r *Router) Call(ctx context.Context, route Route, req adapters.CallRequest) (*Outcome, error) {
	backend := route
	if route == RouteHybrid {
		def, _ := ParseRoute(r.cfg().DefaultProvider)
		target, ok := hybridTarget(def, r.registry.Has)
		if !ok {
			return nil, &types.ConfigurationError{Provider: string(RouteHybrid), Reason: "no cloud provider configured"}
		}
		backend = target
		req.Prompt = Placeholder(req.Prompt)
		req.Context = Placeholder(req.Context)
	}

	client, err := r.registry.Resolve(backend)
	if err != nil {
		return nil, err
	}
	if !r.health.Allow(backend) {
		return nil, &types.ProviderError{Provider: string(backend), Err: ErrCircuitOpen}
	}

	res, err := client.Call(ctx, req)
	if err != nil {
		var se *adapters.StatusError
		if errors.As(err, &se) && !se.Retryable() {
			// The backend answered; the request itself was rejected.
			r.health.RecordSuccess(backend)
		} else {
			r.health.RecordFailure(backend)
		}
		slog.Warn("provider call failed", "provider", backend, "route", route, "error", err)
		return nil, &types.ProviderError{Provider: string(backend), Err: err}
	}
	r.health.RecordSuccess(backend)

	return &Outcome{
		Route:      route,
		Backend:    backend,
		Content:    res.Content,
		TokensUsed: res.TokensUsed,
	}, nil
}
