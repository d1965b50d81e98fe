package txmanager

import (
	"time"

	"github.com/Dorico-Dynamics/txova-tcc/internal/logging"
	"github.com/Dorico-Dynamics/txova-tcc/metrics"
	"github.com/Dorico-Dynamics/txova-tcc/retry"
)

// Config holds TxManager's tunables, matching SPEC_FULL.md §6's
// configuration keys (timeout, monitorInterval, enableMonitor, retry.*).
type Config struct {
	// Timeout bounds the Try-phase. Zero or a negative value sets no
	// deadline: the Try phase then waits for every participant to
	// respond. A zero Timeout does not fail the Try phase immediately.
	Timeout time.Duration

	// MonitorInterval is the spacing between Monitor ticks.
	MonitorInterval time.Duration

	// EnableMonitor activates the background reconciliation loop.
	EnableMonitor bool

	// Retry configures the Confirm/Cancel fan-out's RetryExecutor.
	Retry retry.Config

	Metrics metrics.Collector
	Logger  *logging.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Second,
		MonitorInterval: 5 * time.Second,
		EnableMonitor:   true,
		Retry:           retry.DefaultConfig(),
		Metrics:         metrics.NoOp{},
		Logger:          logging.Default(),
	}
}

// Option is a functional option for configuring a TxManager.
type Option func(*Config)

func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

func WithMonitorInterval(d time.Duration) Option {
	return func(c *Config) { c.MonitorInterval = d }
}

func WithEnableMonitor(enabled bool) Option {
	return func(c *Config) { c.EnableMonitor = enabled }
}

func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Config) { c.Retry = cfg }
}

func WithMetrics(collector metrics.Collector) Option {
	return func(c *Config) { c.Metrics = collector }
}

func WithLogger(logger *logging.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}
