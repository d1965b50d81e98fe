// Package postgres implements store.TxStore on PostgreSQL, adapted from
// the Txova platform's postgres utility package (see
// _examples/Dorico-Dynamics-txova-go-db/postgres). The pool wrapper, the
// slow-query logging, and the SQLSTATE error classification all carry
// over; txova-go-core's config/logging types don't exist outside that
// module, so they're replaced with this module's internal/logging and
// internal/apperrors.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Dorico-Dynamics/txova-tcc/internal/logging"
)

// PoolConfig holds the configuration for a PostgreSQL connection pool.
type PoolConfig struct {
	ConnString string

	MaxConns int32
	MinConns int32

	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration

	// SlowQueryThreshold logs a warning for any query at or above this
	// duration. Zero disables slow query logging.
	SlowQueryThreshold time.Duration

	Logger *logging.Logger
}

// DefaultPoolConfig returns a PoolConfig with sensible defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:           25,
		MinConns:           5,
		MaxConnLifetime:    time.Hour,
		MaxConnIdleTime:    30 * time.Minute,
		HealthCheckPeriod:  time.Minute,
		ConnectTimeout:     5 * time.Second,
		SlowQueryThreshold: time.Second,
		Logger:             logging.Default(),
	}
}

// Option is a functional option for configuring a PoolConfig.
type Option func(*PoolConfig)

func WithConnString(connString string) Option {
	return func(c *PoolConfig) { c.ConnString = connString }
}

func WithMaxConns(n int32) Option {
	return func(c *PoolConfig) { c.MaxConns = n }
}

func WithMinConns(n int32) Option {
	return func(c *PoolConfig) { c.MinConns = n }
}

func WithSlowQueryThreshold(d time.Duration) Option {
	return func(c *PoolConfig) { c.SlowQueryThreshold = d }
}

func WithPoolLogger(logger *logging.Logger) Option {
	return func(c *PoolConfig) { c.Logger = logger }
}

// Validate validates the pool configuration.
func (c *PoolConfig) Validate() error {
	if c.ConnString == "" {
		return fmt.Errorf("connection string is required")
	}
	if c.MaxConns < 1 {
		return fmt.Errorf("max connections must be at least 1")
	}
	if c.MinConns < 0 {
		return fmt.Errorf("min connections cannot be negative")
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("min connections (%d) cannot exceed max connections (%d)", c.MinConns, c.MaxConns)
	}
	return nil
}

// pgxPool wraps pgxpool.Pool to implement Pool.
type pgxPool struct {
	pool   *pgxpool.Pool
	config PoolConfig
	logger *logging.Logger
}

// NewPool creates a new PostgreSQL connection pool.
func NewPool(ctx context.Context, opts ...Option) (Pool, error) {
	cfg := DefaultPoolConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, Wrap(CodeConnection, "invalid pool configuration", err)
	}
	return newPoolFromConfig(ctx, cfg)
}

func newPoolFromConfig(ctx context.Context, cfg PoolConfig) (Pool, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, Wrap(CodeConnection, "failed to parse connection string", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	logger.Info("creating postgres connection pool",
		"max_conns", cfg.MaxConns,
		"min_conns", cfg.MinConns,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, Wrap(CodeConnection, "failed to create connection pool", err)
	}

	return &pgxPool{pool: pool, config: cfg, logger: logger}, nil
}

func (p *pgxPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	start := time.Now()
	tag, err := p.pool.Exec(ctx, sql, args...)
	p.logSlowQuery(ctx, sql, time.Since(start))
	if err != nil {
		return tag, FromPgError(err)
	}
	return tag, nil
}

func (p *pgxPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	start := time.Now()
	rows, err := p.pool.Query(ctx, sql, args...)
	p.logSlowQuery(ctx, sql, time.Since(start))
	if err != nil {
		return nil, FromPgError(err)
	}
	return rows, nil
}

func (p *pgxPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	start := time.Now()
	row := p.pool.QueryRow(ctx, sql, args...)
	p.logSlowQuery(ctx, sql, time.Since(start))
	return row
}

func (p *pgxPool) logSlowQuery(ctx context.Context, sql string, duration time.Duration) {
	if p.config.SlowQueryThreshold > 0 && duration >= p.config.SlowQueryThreshold {
		p.logger.WarnContext(ctx, "slow query detected",
			"sql", truncateSQL(sql),
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", p.config.SlowQueryThreshold.Milliseconds(),
		)
	}
}

func truncateSQL(sql string) string {
	const maxLen = 200
	if len(sql) <= maxLen {
		return sql
	}
	return sql[:maxLen] + "..."
}

func (p *pgxPool) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, Wrap(CodeConnection, "failed to begin transaction", err)
	}
	return &pgxTx{tx: tx}, nil
}

func (p *pgxPool) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return Wrap(CodeConnection, "ping failed", err)
	}
	return nil
}

func (p *pgxPool) Close() {
	p.logger.Info("closing postgres connection pool")
	p.pool.Close()
}

func (p *pgxPool) Stat() PoolStats {
	stat := p.pool.Stat()
	return PoolStats{
		AcquiredConns: stat.AcquiredConns(),
		IdleConns:     stat.IdleConns(),
		TotalConns:    stat.TotalConns(),
		MaxConns:      stat.MaxConns(),
	}
}

// pgxTx wraps pgx.Tx to implement Tx.
type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return tag, FromPgError(err)
	}
	return tag, nil
}

func (t *pgxTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, FromPgError(err)
	}
	return rows, nil
}

func (t *pgxTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.tx.QueryRow(ctx, sql, args...)
}

func (t *pgxTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return FromPgError(err)
	}
	return nil
}

func (t *pgxTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		return FromPgError(err)
	}
	return nil
}
