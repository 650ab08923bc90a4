package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/af-corp/containment-gateway/internal/audit"
	"github.com/af-corp/containment-gateway/internal/auth"
	"github.com/af-corp/containment-gateway/internal/config"
	"github.com/af-corp/containment-gateway/internal/crisis"
	"github.com/af-corp/containment-gateway/internal/gateway"
	"github.com/af-corp/containment-gateway/internal/notify"
	"github.com/af-corp/containment-gateway/internal/policy"
	"github.com/af-corp/containment-gateway/internal/ratelimit"
	"github.com/af-corp/containment-gateway/internal/router"
	"github.com/af-corp/containment-gateway/internal/sanitize"
	"github.com/af-corp/containment-gateway/internal/telemetry"
)

var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	flag.Parse()

	// Bootstrap logger until the configured one is known.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	loader := config.NewLoader(*configDir, logger)
	if err := loader.Load(); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	logger = newLogger(cfg.Telemetry)
	slog.SetDefault(logger)

	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		logger.Warn("database not reachable (auth and postgres audit will fail)", "error", err)
	} else {
		logger.Info("database connected")
	}

	var rdb *redis.Client
	if len(cfg.Redis.Addresses) > 0 && cfg.Redis.Addresses[0] != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addresses[0],
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable (rate limits, quotas and notification throttle disabled)", "error", err)
			rdb = nil
		} else {
			logger.Info("redis connected")
		}
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	registry, err := router.BuildFromConfig(loader.Providers())
	if err != nil {
		logger.Error("failed to build provider registry", "error", err)
		os.Exit(1)
	}
	healthTracker := router.NewHealthTracker(func() config.CircuitBreakerConfig {
		return loader.Routing().CircuitBreaker
	})

	sanitizer, err := sanitize.New(loader.Sanitizer)
	if err != nil {
		logger.Error("failed to create sanitizer", "mode", cfg.Sanitizer.Mode, "error", err)
		os.Exit(1)
	}
	if c, ok := sanitizer.(*sanitize.Client); ok {
		defer c.Close()
	}

	auditSink, closeAudit, err := newAuditSink(cfg.Audit, dbPool)
	if err != nil {
		logger.Error("failed to open audit sink", "sink", cfg.Audit.Sink, "error", err)
		os.Exit(1)
	}
	defer closeAudit()

	evaluator := policy.NewEvaluator(loader.Policy)
	if cfg.Policy.Enabled {
		if err := evaluator.Load(); err != nil {
			logger.Error("failed to load policies", "path", cfg.Policy.BundlePath, "error", err)
			os.Exit(1)
		}
	}

	webhook := notify.NewWebhook(loader.Notify, notify.NewThrottle(rdb))
	if cfg.Crisis.ParentNotificationEnabled && !webhook.Enabled() {
		logger.Warn("guardian notification enabled but notify.webhook_url is empty")
	}

	quota := ratelimit.NewTokenQuota(rdb)
	gw, err := gateway.New(loader.Config, gateway.Options{
		Detector:  crisis.NewDetector(loader.Crisis),
		Sanitizer: sanitizer,
		Router:    router.New(registry, healthTracker, loader.Gateway),
		Policy:    evaluator,
		Audit:     auditSink,
		Notify:    webhook.Notify,
		Tokens:    quota,
		Metrics:   metrics,
	})
	if err != nil {
		logger.Error("failed to build gateway", "error", err)
		os.Exit(1)
	}
	defer gw.Close()

	loader.OnReload(func() {
		next, err := router.BuildFromConfig(loader.Providers())
		if err != nil {
			logger.Error("provider registry reload failed, keeping previous", "error", err)
		} else {
			registry.Replace(next)
			logger.Info("provider registry reloaded")
		}
		gw.Reconfigure()
		if loader.Policy().Enabled {
			if err := evaluator.Load(); err != nil {
				logger.Error("policy reload failed, keeping previous", "error", err)
			}
		}
	})

	keyStore := auth.NewCachedKeyStore(dbPool, rdb)
	limiter := ratelimit.NewLimiter(rdb)
	handler := gateway.NewHandler(gw, limiter, healthTracker, loader.RateLimit, metrics, version)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)

	r.Get("/healthz", handler.Health)
	r.Get("/v1/crisis/resources", handler.CrisisResources)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(keyStore))
		r.Use(ratelimit.Middleware(limiter, quota, loader.RateLimit, metrics))
		r.Post("/v1/ai/requests", handler.AIRequest)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Telemetry.MetricsPort),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gateway starting", "addr", addr, "version", version)
		errCh <- srv.ListenAndServe()
	}()
	go func() {
		logger.Info("metrics server starting", "addr", metricsSrv.Addr)
		errCh <- metricsSrv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	metricsSrv.Shutdown(ctx)
	logger.Info("gateway stopped")
}

func newLogger(cfg config.TelemetryConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func newAuditSink(cfg config.AuditConfig, db *pgxpool.Pool) (audit.Sink, func(), error) {
	switch cfg.Sink {
	case "file":
		fs, err := audit.OpenFile(cfg.FilePath)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() { fs.Close() }, nil
	default:
		return audit.NewPostgresSink(db), func() {}, nil
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = "req_" + uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}
