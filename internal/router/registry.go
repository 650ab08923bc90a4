package router

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/af-corp/containment-gateway/internal/config"
	"github.com/af-corp/containment-gateway/internal/router/adapters"
	"github.com/af-corp/containment-gateway/internal/types"
)

// Registry maps routes to backend clients. Entries present in configuration
// but unusable are kept with the reason so callers get a ConfigurationError at
// call time.
type Registry struct {
	mu      sync.RWMutex
	clients map[Route]adapters.ProviderClient
	invalid map[Route]string
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[Route]adapters.ProviderClient),
		invalid: make(map[Route]string),
	}
}

func (r *Registry) Register(route Route, client adapters.ProviderClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[route] = client
	delete(r.invalid, route)
}

// Has reports whether route has a usable client.
func (r *Registry) Has(route Route) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[route]
	return ok
}

// Resolve returns the client for route or a *types.ConfigurationError.
func (r *Registry) Resolve(route Route) (adapters.ProviderClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.clients[route]; ok {
		return c, nil
	}
	if reason, ok := r.invalid[route]; ok {
		return nil, &types.ConfigurationError{Provider: string(route), Reason: reason}
	}
	return nil, &types.ConfigurationError{Provider: string(route), Reason: "not configured"}
}

// Replace swaps in the contents of other, used after a config reload.
func (r *Registry) Replace(other *Registry) {
	other.mu.RLock()
	clients, invalid := other.clients, other.invalid
	other.mu.RUnlock()

	r.mu.Lock()
	r.clients, r.invalid = clients, invalid
	r.mu.Unlock()
}

// BuildFromConfig builds provider clients from the providers config. Keys
// must be route names; the hybrid route has no backend of its own.
func BuildFromConfig(provCfg *config.ProvidersConfig) (*Registry, error) {
	registry := NewRegistry()
	for name, cfg := range provCfg.Providers {
		route, ok := ParseRoute(name)
		if !ok || route == RouteHybrid {
			return nil, fmt.Errorf("unknown provider %q: must be local, openai or anthropic", name)
		}
		if reason := missingSetting(route, cfg); reason != "" {
			registry.invalid[route] = reason
			continue
		}

		client := &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        max(cfg.MaxConcurrent, 1),
				MaxIdleConnsPerHost: max(cfg.MaxConcurrent, 1),
				MaxConnsPerHost:     cfg.MaxConcurrent,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}

		switch cfg.Type {
		case "anthropic":
			registry.clients[route] = adapters.NewAnthropicClient(name, cfg, client)
		case "openai", "":
			registry.clients[route] = adapters.NewOpenAIClient(name, cfg, client)
		default:
			return nil, fmt.Errorf("provider %s: unknown type %q", name, cfg.Type)
		}
	}
	return registry, nil
}

func missingSetting(route Route, cfg config.ProviderConfig) string {
	switch {
	case cfg.BaseURL == "":
		return "base_url is empty"
	case cfg.Model == "":
		return "model is empty"
	case route.IsCloud() && cfg.APIKey == "":
		return "api_key is empty"
	}
	return ""
}
