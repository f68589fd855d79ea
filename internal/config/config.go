// Package config loads and validates the control plane's runtime
// configuration: environment-variable driven, with functional-option
// overrides and an optional TOML file watched for hot reload, the way the
// teacher layers Config (env, then options, then validation).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

// Config holds every tunable of the control plane, grouped by subsystem.
type Config struct {
	Namespace string `toml:"namespace" env:"FLYWHEEL_NAMESPACE" default:"default"`

	Server     ServerConfig     `toml:"server"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	Breaker    BreakerConfig    `toml:"breaker"`
	Drift      DriftConfig      `toml:"drift"`
	Export     ExportConfig     `toml:"export"`
	Logging    LoggingConfig    `toml:"logging"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
	Alerting   AlertingConfig   `toml:"alerting"`
	Reconcile  ReconcileConfig  `toml:"reconcile"`
}

// ServerConfig configures the RPC listener.
type ServerConfig struct {
	Port            int           `toml:"port" env:"FLYWHEEL_PORT" default:"8090"`
	Address         string        `toml:"address" env:"FLYWHEEL_ADDRESS" default:"0.0.0.0"`
	ReadTimeout     time.Duration `toml:"read_timeout" env:"FLYWHEEL_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `toml:"write_timeout" env:"FLYWHEEL_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" env:"FLYWHEEL_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

// PostgresConfig configures the primary relational store.
type PostgresConfig struct {
	DSN             string `toml:"dsn" env:"FLYWHEEL_POSTGRES_DSN,DATABASE_URL"`
	MaxOpenConns    int    `toml:"max_open_conns" env:"FLYWHEEL_POSTGRES_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int    `toml:"max_idle_conns" env:"FLYWHEEL_POSTGRES_MAX_IDLE_CONNS" default:"5"`
}

// RedisConfig configures the cache backend (the feedback-join fingerprint
// cache). The feedback queue itself is in-process, not Redis.
type RedisConfig struct {
	URL     string        `toml:"url" env:"FLYWHEEL_REDIS_URL,REDIS_URL" default:"redis://localhost:6379"`
	Timeout time.Duration `toml:"timeout" env:"FLYWHEEL_REDIS_TIMEOUT" default:"5s"`
}

// BreakerConfig configures the per-model circuit breaker, matching the
// consecutive-failure/consecutive-success semantics of the spec rather than
// gobreaker's default error-ratio policy.
type BreakerConfig struct {
	FailureThreshold uint32        `toml:"failure_threshold" env:"FLYWHEEL_CB_FAILURE_THRESHOLD" default:"5"`
	SuccessThreshold uint32        `toml:"success_threshold" env:"FLYWHEEL_CB_SUCCESS_THRESHOLD" default:"3"`
	ResetTimeout     time.Duration `toml:"reset_timeout" env:"FLYWHEEL_CB_RESET_TIMEOUT" default:"30s"`
	CallTimeout      time.Duration `toml:"call_timeout" env:"FLYWHEEL_CB_CALL_TIMEOUT" default:"10s"`
}

// DriftConfig configures default drift-detection thresholds, overridable
// per-pipeline by the DSL's drift-detection stage config.
type DriftConfig struct {
	PSIThreshold      float64 `toml:"psi_threshold" env:"FLYWHEEL_DRIFT_PSI_THRESHOLD" default:"0.25"`
	KLThreshold       float64 `toml:"kl_threshold" env:"FLYWHEEL_DRIFT_KL_THRESHOLD" default:"0.1"`
	AccuracyThreshold float64 `toml:"accuracy_threshold" env:"FLYWHEEL_DRIFT_ACCURACY_THRESHOLD" default:"0.85"`
	WindowSize        int     `toml:"window_size" env:"FLYWHEEL_DRIFT_WINDOW_SIZE" default:"10000"`
	Bins              int     `toml:"bins" env:"FLYWHEEL_DRIFT_BINS" default:"10"`
}

// ExportConfig configures training-data export defaults.
type ExportConfig struct {
	OutputDir     string `toml:"output_dir" env:"FLYWHEEL_EXPORT_DIR" default:"./export"`
	DefaultFormat string `toml:"default_format" env:"FLYWHEEL_EXPORT_FORMAT" default:"jsonl"`
}

// LoggingConfig controls the zap-backed production logger.
type LoggingConfig struct {
	Level  string `toml:"level" env:"FLYWHEEL_LOG_LEVEL" default:"info"`
	Format string `toml:"format" env:"FLYWHEEL_LOG_FORMAT" default:"json"`
}

// TelemetryConfig controls OpenTelemetry tracing/metrics export.
type TelemetryConfig struct {
	Enabled      bool    `toml:"enabled" env:"FLYWHEEL_TELEMETRY_ENABLED" default:"false"`
	Endpoint     string  `toml:"endpoint" env:"FLYWHEEL_OTLP_ENDPOINT,OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string  `toml:"service_name" env:"FLYWHEEL_SERVICE_NAME,OTEL_SERVICE_NAME" default:"flywheel"`
	SamplingRate float64 `toml:"sampling_rate" env:"FLYWHEEL_TELEMETRY_SAMPLING_RATE" default:"1.0"`
	Insecure     bool    `toml:"insecure" env:"FLYWHEEL_TELEMETRY_INSECURE" default:"true"`
}

// AlertingConfig configures the drift-alert Slack sink.
type AlertingConfig struct {
	SlackEnabled bool   `toml:"slack_enabled" env:"FLYWHEEL_SLACK_ENABLED" default:"false"`
	SlackToken   string `toml:"-" env:"FLYWHEEL_SLACK_TOKEN,SLACK_BOT_TOKEN"`
	SlackChannel string `toml:"slack_channel" env:"FLYWHEEL_SLACK_CHANNEL" default:"#ml-alerts"`
}

// ReconcileConfig controls the execution engine's reconciliation loop.
type ReconcileConfig struct {
	Interval       time.Duration `toml:"interval" env:"FLYWHEEL_RECONCILE_INTERVAL" default:"5s"`
	MaxConcurrency int           `toml:"max_concurrency" env:"FLYWHEEL_RECONCILE_MAX_CONCURRENCY" default:"16"`
}

// Option is a functional configuration override, applied after defaults and
// environment variables, mirroring the teacher's three-layer precedence.
type Option func(*Config) error

// WithNamespace overrides the logical namespace.
func WithNamespace(ns string) Option {
	return func(c *Config) error { c.Namespace = ns; return nil }
}

// WithPort overrides the RPC listener port.
func WithPort(port int) Option {
	return func(c *Config) error {
		if port < 1 || port > 65535 {
			return domain.NewError("config.WithPort", "invalid_argument", fmt.Errorf("invalid port: %d", port))
		}
		c.Server.Port = port
		return nil
	}
}

// WithPostgresDSN overrides the Postgres connection string.
func WithPostgresDSN(dsn string) Option {
	return func(c *Config) error { c.Postgres.DSN = dsn; return nil }
}

// WithDriftThresholds overrides the default drift thresholds.
func WithDriftThresholds(psi, kl, accuracy float64) Option {
	return func(c *Config) error {
		c.Drift.PSIThreshold = psi
		c.Drift.KLThreshold = kl
		c.Drift.AccuracyThreshold = accuracy
		return nil
	}
}

// Default returns a Config populated with defaults only, no environment or
// file overlay — used by tests that want a deterministic baseline.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load builds a Config from defaults, then a .env file (if present via
// godotenv, silently skipped otherwise), then process environment variables,
// then the supplied functional options, and finally validates the result.
func Load(opts ...Option) (*Config, error) {
	_ = godotenv.Load() // optional; absence is not an error

	cfg := &Config{}
	applyDefaults(cfg)
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("apply config option: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and sane ranges.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return domain.NewError("Config.Validate", "invalid_argument", fmt.Errorf("invalid port: %d", c.Server.Port))
	}
	if c.Postgres.DSN == "" {
		return domain.NewError("Config.Validate", "missing_config", domain.ErrConfig).WithID("postgres.dsn")
	}
	if c.Drift.WindowSize < 1 {
		return domain.NewError("Config.Validate", "invalid_argument", fmt.Errorf("drift window_size must be positive"))
	}
	if c.Drift.Bins < 2 {
		return domain.NewError("Config.Validate", "invalid_argument", fmt.Errorf("drift bins must be at least 2"))
	}
	if c.Breaker.FailureThreshold == 0 {
		return domain.NewError("Config.Validate", "invalid_argument", fmt.Errorf("breaker failure_threshold must be positive"))
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return domain.NewError("Config.Validate", "missing_config", domain.ErrConfig).WithID("telemetry.endpoint")
	}
	if c.Alerting.SlackEnabled && c.Alerting.SlackToken == "" {
		return domain.NewError("Config.Validate", "missing_config", domain.ErrConfig).WithID("alerting.slack_token")
	}
	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func firstEnv(names ...string) (string, bool) {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v, true
		}
	}
	return "", false
}

func applyDefaults(c *Config) {
	c.Namespace = "default"
	c.Server = ServerConfig{Port: 8090, Address: "0.0.0.0", ReadTimeout: 15 * time.Second, WriteTimeout: 30 * time.Second, ShutdownTimeout: 10 * time.Second}
	c.Postgres = PostgresConfig{MaxOpenConns: 20, MaxIdleConns: 5}
	c.Redis = RedisConfig{URL: "redis://localhost:6379", Timeout: 5 * time.Second}
	c.Breaker = BreakerConfig{FailureThreshold: 5, SuccessThreshold: 3, ResetTimeout: 30 * time.Second, CallTimeout: 10 * time.Second}
	c.Drift = DriftConfig{PSIThreshold: 0.25, KLThreshold: 0.1, AccuracyThreshold: 0.85, WindowSize: 10000, Bins: 10}
	c.Export = ExportConfig{OutputDir: "./export", DefaultFormat: "jsonl"}
	c.Logging = LoggingConfig{Level: "info", Format: "json"}
	c.Telemetry = TelemetryConfig{ServiceName: "flywheel", SamplingRate: 1.0, Insecure: true}
	c.Alerting = AlertingConfig{SlackChannel: "#ml-alerts"}
	c.Reconcile = ReconcileConfig{Interval: 5 * time.Second, MaxConcurrency: 16}
}

// applyEnv overlays process environment variables with an explicit,
// hand-written walk (no struct-tag reflection). It reads most of the env
// tags documented above, but not these: FLYWHEEL_HTTP_SHUTDOWN_TIMEOUT,
// FLYWHEEL_POSTGRES_MAX_IDLE_CONNS, FLYWHEEL_REDIS_TIMEOUT,
// FLYWHEEL_CB_CALL_TIMEOUT, FLYWHEEL_DRIFT_BINS,
// FLYWHEEL_TELEMETRY_SAMPLING_RATE, FLYWHEEL_TELEMETRY_INSECURE and
// FLYWHEEL_RECONCILE_MAX_CONCURRENCY; those fields keep their defaults.
func applyEnv(c *Config) error {
	if v, ok := firstEnv("FLYWHEEL_NAMESPACE"); ok {
		c.Namespace = v
	}
	if v, ok := firstEnv("FLYWHEEL_PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v, ok := firstEnv("FLYWHEEL_ADDRESS"); ok {
		c.Server.Address = v
	}
	if v, ok := firstEnv("FLYWHEEL_HTTP_READ_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.Server.ReadTimeout = d
		}
	}
	if v, ok := firstEnv("FLYWHEEL_HTTP_WRITE_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.Server.WriteTimeout = d
		}
	}
	if v, ok := firstEnv("FLYWHEEL_POSTGRES_DSN", "DATABASE_URL"); ok {
		c.Postgres.DSN = v
	}
	if v, ok := firstEnv("FLYWHEEL_POSTGRES_MAX_OPEN_CONNS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Postgres.MaxOpenConns = n
		}
	}
	if v, ok := firstEnv("FLYWHEEL_REDIS_URL", "REDIS_URL"); ok {
		c.Redis.URL = v
	}
	if v, ok := firstEnv("FLYWHEEL_CB_FAILURE_THRESHOLD"); ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.Breaker.FailureThreshold = uint32(n)
		}
	}
	if v, ok := firstEnv("FLYWHEEL_CB_SUCCESS_THRESHOLD"); ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.Breaker.SuccessThreshold = uint32(n)
		}
	}
	if v, ok := firstEnv("FLYWHEEL_CB_RESET_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.Breaker.ResetTimeout = d
		}
	}
	if v, ok := firstEnv("FLYWHEEL_DRIFT_PSI_THRESHOLD"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Drift.PSIThreshold = f
		}
	}
	if v, ok := firstEnv("FLYWHEEL_DRIFT_KL_THRESHOLD"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Drift.KLThreshold = f
		}
	}
	if v, ok := firstEnv("FLYWHEEL_DRIFT_ACCURACY_THRESHOLD"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Drift.AccuracyThreshold = f
		}
	}
	if v, ok := firstEnv("FLYWHEEL_DRIFT_WINDOW_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Drift.WindowSize = n
		}
	}
	if v, ok := firstEnv("FLYWHEEL_EXPORT_DIR"); ok {
		c.Export.OutputDir = v
	}
	if v, ok := firstEnv("FLYWHEEL_EXPORT_FORMAT"); ok {
		c.Export.DefaultFormat = v
	}
	if v, ok := firstEnv("FLYWHEEL_LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := firstEnv("FLYWHEEL_LOG_FORMAT"); ok {
		c.Logging.Format = v
	}
	if v, ok := firstEnv("FLYWHEEL_TELEMETRY_ENABLED"); ok {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v, ok := firstEnv("FLYWHEEL_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"); ok {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true
	}
	if v, ok := firstEnv("FLYWHEEL_SERVICE_NAME", "OTEL_SERVICE_NAME"); ok {
		c.Telemetry.ServiceName = v
	}
	if v, ok := firstEnv("FLYWHEEL_SLACK_ENABLED"); ok {
		c.Alerting.SlackEnabled = parseBool(v)
	}
	if v, ok := firstEnv("FLYWHEEL_SLACK_TOKEN", "SLACK_BOT_TOKEN"); ok {
		c.Alerting.SlackToken = v
	}
	if v, ok := firstEnv("FLYWHEEL_SLACK_CHANNEL"); ok {
		c.Alerting.SlackChannel = v
	}
	if v, ok := firstEnv("FLYWHEEL_RECONCILE_INTERVAL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.Reconcile.Interval = d
		}
	}
	return nil
}
