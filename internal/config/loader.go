package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:default} patterns in a string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		if val, ok := os.LookupEnv(submatch[1]); ok {
			return val
		}
		if len(submatch) >= 3 {
			return submatch[2]
		}
		return ""
	})
}

// LoadFile reads a YAML file, expands env vars, and unmarshals into dest.
func LoadFile(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), dest); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations the gateway cannot run with. Soft problems
// such as an unknown notification threshold are left to the components that
// read them.
func (c *Config) Validate() error {
	var errs []error
	switch c.Sanitizer.Mode {
	case "grpc":
		if c.Sanitizer.Address == "" {
			errs = append(errs, errors.New("sanitizer.address is required in grpc mode"))
		}
	case "local":
	default:
		errs = append(errs, fmt.Errorf("sanitizer.mode %q: must be grpc or local", c.Sanitizer.Mode))
	}
	switch c.Audit.Sink {
	case "postgres":
	case "file":
		if c.Audit.FilePath == "" {
			errs = append(errs, errors.New("audit.file_path is required for the file sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("audit.sink %q: must be postgres or file", c.Audit.Sink))
	}
	switch c.Gateway.DefaultProvider {
	case "local", "openai", "anthropic", "hybrid":
	default:
		errs = append(errs, fmt.Errorf("gateway.default_provider %q: must be local, openai, anthropic or hybrid", c.Gateway.DefaultProvider))
	}
	if c.Gateway.CacheEnabled && c.Gateway.CacheTTLSeconds <= 0 {
		errs = append(errs, errors.New("gateway.cache_ttl_seconds must be positive when the cache is enabled"))
	}
	if c.Routing.DefaultTimeout <= 0 {
		errs = append(errs, errors.New("routing.default_timeout must be positive"))
	}
	return errors.Join(errs...)
}

// Loader manages configuration loading and hot-reload via fsnotify.
type Loader struct {
	configDir string
	mu        sync.RWMutex
	cfg       *Config
	providers *ProvidersConfig
	watchers  []func()
	logger    *slog.Logger
}

func NewLoader(configDir string, logger *slog.Logger) *Loader {
	return &Loader{
		configDir: configDir,
		logger:    logger,
	}
}

func (l *Loader) Load() error {
	cfg := DefaultConfig()
	if err := LoadFile(filepath.Join(l.configDir, "gateway.yaml"), cfg); err != nil {
		return fmt.Errorf("load gateway config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate gateway config: %w", err)
	}

	providers := &ProvidersConfig{}
	if err := LoadFile(filepath.Join(l.configDir, "providers.yaml"), providers); err != nil {
		return fmt.Errorf("load providers config: %w", err)
	}

	l.mu.Lock()
	l.cfg = cfg
	l.providers = providers
	l.mu.Unlock()

	l.logger.Info("configuration loaded", "dir", l.configDir)
	return nil
}

func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

func (l *Loader) Providers() *ProvidersConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.providers
}

// Accessors for components that re-read their section on every call.

func (l *Loader) Gateway() GatewayConfig     { return l.Config().Gateway }
func (l *Loader) Crisis() CrisisConfig       { return l.Config().Crisis }
func (l *Loader) Routing() RoutingConfig     { return l.Config().Routing }
func (l *Loader) RateLimit() RateLimitConfig { return l.Config().RateLimit }
func (l *Loader) Notify() NotifyConfig       { return l.Config().Notify }
func (l *Loader) Sanitizer() SanitizerConfig { return l.Config().Sanitizer }
func (l *Loader) Policy() PolicyConfig       { return l.Config().Policy }

// OnReload registers a callback that fires after config is reloaded.
func (l *Loader) OnReload(fn func()) {
	l.mu.Lock()
	l.watchers = append(l.watchers, fn)
	l.mu.Unlock()
}

// Watch starts watching the config directory for changes and reloads on modification.
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(l.configDir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir %s: %w", l.configDir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				l.logger.Info("config file changed, reloading", "file", event.Name)
				if err := l.Load(); err != nil {
					// Keep serving with the previous configuration.
					l.logger.Error("failed to reload config", "error", err)
					continue
				}
				l.mu.RLock()
				fns := append([]func(){}, l.watchers...)
				l.mu.RUnlock()
				for _, fn := range fns {
					fn()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Error("fsnotify error", "error", err)
			}
		}
	}()

	return nil
}
