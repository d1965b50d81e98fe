// Package config loads the coordinator's tunables from the environment,
// layered on top of functional-option defaults, mirroring the teacher's
// DefaultPoolConfig/Option/FromDatabaseConfig three-tier pattern
// (_examples/Dorico-Dynamics-txova-go-db/postgres/pool.go): build the
// defaults, apply explicit functional options, then let FromEnv override
// individual fields if the corresponding environment variable is set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Dorico-Dynamics/txova-tcc/retry"
	"github.com/Dorico-Dynamics/txova-tcc/txmanager"
)

// Config holds every environment-tunable setting for a coordinatord
// process: the TxManager's own Config plus the connection strings its
// storage and lock backends need.
type Config struct {
	TxManager txmanager.Config

	PostgresDSN  string
	RedisAddr    string
	MetricsAddr  string
}

// Option configures a Config.
type Option func(*Config)

func WithPostgresDSN(dsn string) Option {
	return func(c *Config) { c.PostgresDSN = dsn }
}

func WithRedisAddr(addr string) Option {
	return func(c *Config) { c.RedisAddr = addr }
}

func WithMetricsAddr(addr string) Option {
	return func(c *Config) { c.MetricsAddr = addr }
}

func WithTxManagerConfig(cfg txmanager.Config) Option {
	return func(c *Config) { c.TxManager = cfg }
}

// Default returns the coordinator's baseline configuration: TxManager
// defaults and localhost dev endpoints for Postgres, Redis, and the
// metrics listener.
func Default() Config {
	return Config{
		TxManager:   txmanager.DefaultConfig(),
		PostgresDSN: "postgres://localhost:5432/txova_tcc",
		RedisAddr:   "localhost:6379",
		MetricsAddr: ":9090",
	}
}

// FromEnv builds a Config from Default(), opts, and then the following
// environment variables, which take precedence over both:
//
//	TCC_POSTGRES_DSN           connection string, e.g. postgres://...
//	TCC_REDIS_ADDR             host:port
//	TCC_METRICS_ADDR           listen address for the Prometheus handler
//	TCC_TIMEOUT_MS             Try-phase timeout, milliseconds
//	TCC_MONITOR_INTERVAL_MS    Monitor tick spacing, milliseconds
//	TCC_ENABLE_MONITOR         "true"/"false"
//	TCC_RETRY_MAX_RETRIES      Confirm/Cancel max retry count
//	TCC_RETRY_BASE_DELAY_MS    retry base delay, milliseconds
//	TCC_RETRY_MAX_DELAY_MS     retry max delay, milliseconds
func FromEnv(opts ...Option) (Config, error) {
	cfg := Default()
	for _, opt := range opts {
		opt(&cfg)
	}

	if v, ok := os.LookupEnv("TCC_POSTGRES_DSN"); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := os.LookupEnv("TCC_REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v, ok := os.LookupEnv("TCC_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}

	if err := applyDurationMS(&cfg.TxManager.Timeout, "TCC_TIMEOUT_MS"); err != nil {
		return Config{}, err
	}
	if err := applyDurationMS(&cfg.TxManager.MonitorInterval, "TCC_MONITOR_INTERVAL_MS"); err != nil {
		return Config{}, err
	}
	if v, ok := os.LookupEnv("TCC_ENABLE_MONITOR"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid TCC_ENABLE_MONITOR %q: %w", v, err)
		}
		cfg.TxManager.EnableMonitor = enabled
	}
	if v, ok := os.LookupEnv("TCC_RETRY_MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid TCC_RETRY_MAX_RETRIES %q: %w", v, err)
		}
		cfg.TxManager.Retry.MaxRetries = n
	}
	if err := applyDurationMS(&cfg.TxManager.Retry.BaseDelay, "TCC_RETRY_BASE_DELAY_MS"); err != nil {
		return Config{}, err
	}
	if err := applyDurationMS(&cfg.TxManager.Retry.MaxDelay, "TCC_RETRY_MAX_DELAY_MS"); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDurationMS(field *time.Duration, envVar string) error {
	v, ok := os.LookupEnv(envVar)
	if !ok {
		return nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: invalid %s %q: %w", envVar, v, err)
	}
	*field = time.Duration(ms) * time.Millisecond
	return nil
}

// Validate checks the configuration for internal consistency, mirroring
// PoolConfig.Validate()'s style of one error per violated constraint.
func (c Config) Validate() error {
	if c.PostgresDSN == "" {
		return fmt.Errorf("config: postgres DSN is required")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("config: redis address is required")
	}
	if c.TxManager.MonitorInterval <= 0 {
		return fmt.Errorf("config: monitor interval must be positive")
	}
	if c.TxManager.Retry.MaxRetries < 0 {
		return fmt.Errorf("config: retry max retries cannot be negative")
	}
	return nil
}
