// Package retry provides the exponential-backoff-with-jitter retry
// discipline used for Confirm/Cancel fan-out. It is built on top of
// github.com/cenkalti/backoff/v4 — already pulled in transitively by the
// Txova platform's storage layer (testcontainers) — rather than
// hand-rolling the backoff math.
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Dorico-Dynamics/txova-tcc/internal/logging"
	"github.com/Dorico-Dynamics/txova-tcc/tcc"
)

// Config holds the RetryExecutor's backoff parameters, matching
// SPEC_FULL.md §4.3 / spec.md §4.3 exactly.
type Config struct {
	// MaxRetries is the number of retries attempted after the first try
	// (so up to MaxRetries+1 total attempts). Zero means no retries.
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff delay, before jitter.
	MaxDelay time.Duration

	// BackoffMultiplier is the exponential growth factor applied to
	// BaseDelay on each subsequent attempt.
	BackoffMultiplier float64

	// Jitter is the maximum additional random delay added after the
	// exponential backoff is computed and capped.
	Jitter time.Duration

	// Logger receives retry diagnostics. Defaults to logging.Default().
	Logger *logging.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        5,
		BaseDelay:         100 * time.Millisecond,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            250 * time.Millisecond,
		Logger:            logging.Default(),
	}
}

// Executor wraps a unary operation with exponential backoff and jitter,
// classifying failures as retryable or terminal via tcc.IsRetryable.
type Executor struct {
	cfg Config
}

// NewExecutor creates an Executor from the given Config, filling in
// zero-valued BaseDelay, MaxDelay, BackoffMultiplier and Logger from
// DefaultConfig. MaxRetries and Jitter are used as given, so zero means
// no retries and no jitter respectively.
func NewExecutor(cfg Config) *Executor {
	defaults := DefaultConfig()
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = defaults.BaseDelay
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = defaults.MaxDelay
	}
	if cfg.BackoffMultiplier == 0 {
		cfg.BackoffMultiplier = defaults.BackoffMultiplier
	}
	if cfg.Logger == nil {
		cfg.Logger = defaults.Logger
	}
	return &Executor{cfg: cfg}
}

// Do runs op, retrying on retryable failures per the configured backoff
// policy. A terminal failure (tcc.IsRetryable returns false) is surfaced
// immediately without retrying. Exceeding MaxRetries surfaces the last
// observed failure. RetryCount reports how many retry attempts were
// actually made (0 if op succeeded on the first try).
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context) error) (retryCount int, err error) {
	bo := e.newBackOff()
	bctx := backoff.WithContext(bo, ctx)

	attempt := 0
	wrapped := func() error {
		opErr := op(ctx)
		if opErr == nil {
			return nil
		}
		if !tcc.IsRetryable(opErr) {
			return backoff.Permanent(opErr)
		}
		return opErr
	}

	notify := func(opErr error, wait time.Duration) {
		attempt++
		e.cfg.Logger.WarnContext(ctx, "retrying operation after failure",
			"attempt", attempt,
			"max_retries", e.cfg.MaxRetries,
			"wait", wait.String(),
			"error", opErr.Error(),
		)
	}

	err = backoff.RetryNotify(wrapped, bctx, notify)
	return attempt, err
}

// newBackOff builds a cenkalti/backoff ExponentialBackOff configured from
// Config, wrapped so that the jitter and max-retries bounds match
// SPEC_FULL.md §4.3 exactly: delay = min(base * multiplier^k, maxDelay) +
// uniform(0, jitter).
func (e *Executor) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = e.cfg.BaseDelay
	eb.MaxInterval = e.cfg.MaxDelay
	eb.Multiplier = e.cfg.BackoffMultiplier
	eb.MaxElapsedTime = 0 // bounded by MaxRetries via WithMaxRetries below, not elapsed time.
	eb.RandomizationFactor = 0

	jittered := &jitterBackOff{inner: eb, jitter: e.cfg.Jitter}
	return backoff.WithMaxRetries(jittered, uint64(e.cfg.MaxRetries))
}

// jitterBackOff adds a uniform(0, jitter) delay on top of an inner
// backoff.BackOff's computed interval, matching the spec's additive
// jitter model (as opposed to cenkalti/backoff's default multiplicative
// RandomizationFactor jitter).
type jitterBackOff struct {
	inner  backoff.BackOff
	jitter time.Duration
}

func (j *jitterBackOff) NextBackOff() time.Duration {
	d := j.inner.NextBackOff()
	if d == backoff.Stop {
		return backoff.Stop
	}
	if j.jitter > 0 {
		d += time.Duration(rand.Int64N(int64(j.jitter) + 1))
	}
	return d
}

func (j *jitterBackOff) Reset() {
	j.inner.Reset()
}
