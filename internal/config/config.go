package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Crisis    CrisisConfig    `yaml:"crisis"`
	Sanitizer SanitizerConfig `yaml:"sanitizer"`
	Policy    PolicyConfig    `yaml:"policy"`
	Audit     AuditConfig     `yaml:"audit"`
	Notify    NotifyConfig    `yaml:"notify"`
	Routing   RoutingConfig   `yaml:"routing"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN returns a pgxpool connection string including pool settings.
func (d DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&pool_max_conns=%d",
		d.User, d.Password, d.Host, d.Port, d.Name, max(d.MaxOpenConns, 1))
	if d.ConnMaxLifetime > 0 {
		dsn += "&pool_max_conn_lifetime=" + d.ConnMaxLifetime.String()
	}
	return dsn
}

type RedisConfig struct {
	Addresses []string `yaml:"addresses"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	PoolSize  int      `yaml:"pool_size"`
}

type TelemetryConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsPort int    `yaml:"metrics_port"`
}

// GatewayConfig covers routing mode and the response cache.
type GatewayConfig struct {
	DefaultProvider     string `yaml:"default_provider"`
	PrivacyFirst        bool   `yaml:"privacy_first"`
	MaxContextLength    int    `yaml:"max_context_length"`
	CacheEnabled        bool   `yaml:"cache_enabled"`
	CacheTTLSeconds     int    `yaml:"cache_ttl_seconds"`
	CacheSweepThreshold int    `yaml:"cache_sweep_threshold"`
}

func (g GatewayConfig) CacheTTL() time.Duration {
	return time.Duration(g.CacheTTLSeconds) * time.Second
}

type CrisisConfig struct {
	Enabled                     bool   `yaml:"enabled"`
	ParentNotificationEnabled   bool   `yaml:"parent_notification_enabled"`
	ParentNotificationThreshold string `yaml:"parent_notification_threshold"`
	BlockHighSeverity           bool   `yaml:"block_high_severity"`
	AuditAllDetections          bool   `yaml:"audit_all_detections"`
	// FailClosed blocks the request when the detector itself fails.
	FailClosed bool `yaml:"fail_closed"`
}

type SanitizerConfig struct {
	Mode    string        `yaml:"mode"` // "grpc" or "local"
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
}

type PolicyConfig struct {
	Enabled           bool          `yaml:"enabled"`
	BundlePath        string        `yaml:"bundle_path"`
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout"`
}

type AuditConfig struct {
	Sink     string `yaml:"sink"` // "postgres" or "file"
	FilePath string `yaml:"file_path"`
}

type NotifyConfig struct {
	WebhookURL     string            `yaml:"webhook_url"`
	Format         string            `yaml:"format"`
	Headers        map[string]string `yaml:"headers"`
	ThrottleWindow time.Duration     `yaml:"throttle_window"`
}

type RoutingConfig struct {
	DefaultTimeout time.Duration        `yaml:"default_timeout"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	FailureThreshold      int           `yaml:"failure_threshold"`
	RecoveryProbeInterval time.Duration `yaml:"recovery_probe_interval"`
}

// RateLimitConfig bounds request volume per sandbox session and per service key.
// A key's own rpm_limit overrides KeyRequestsPerMinute.
type RateLimitConfig struct {
	Enabled              bool `yaml:"enabled"`
	RequestsPerMinute    int  `yaml:"requests_per_minute"`
	KeyRequestsPerMinute int  `yaml:"key_requests_per_minute"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     120 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "containment",
			User:            "containment",
			MaxOpenConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addresses: []string{"localhost:6379"},
			PoolSize:  50,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPort: 9090,
		},
		Gateway: GatewayConfig{
			DefaultProvider:     "openai",
			PrivacyFirst:        true,
			MaxContextLength:    8000,
			CacheEnabled:        true,
			CacheTTLSeconds:     300,
			CacheSweepThreshold: 1000,
		},
		Crisis: CrisisConfig{
			Enabled:                     true,
			ParentNotificationEnabled:   true,
			ParentNotificationThreshold: "high",
			BlockHighSeverity:           true,
		},
		Sanitizer: SanitizerConfig{
			Mode:    "grpc",
			Address: "privacy-sanitizer:50051",
			Timeout: 2 * time.Second,
		},
		Policy: PolicyConfig{
			Enabled:           false,
			BundlePath:        "/etc/containment/policies",
			EvaluationTimeout: 100 * time.Millisecond,
		},
		Audit: AuditConfig{
			Sink:     "postgres",
			FilePath: "/var/lib/containment/audit.jsonl",
		},
		Notify: NotifyConfig{
			Format:         "generic",
			ThrottleWindow: 30 * time.Minute,
		},
		Routing: RoutingConfig{
			DefaultTimeout: 60 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold:      5,
				RecoveryProbeInterval: 15 * time.Second,
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:              true,
			RequestsPerMinute:    30,
			KeyRequestsPerMinute: 600,
		},
	}
}
