package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the common interface satisfied by Pool and Tx, adapted from
// txova-go-db/postgres.Querier. The coordinator's store never acquires a
// bare Conn, so that half of the teacher's interface set is dropped — see
// DESIGN.md.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool represents a PostgreSQL connection pool.
type Pool interface {
	Querier

	Begin(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
	Close()
	Stat() PoolStats
}

// Tx represents a database transaction.
type Tx interface {
	Querier

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// PoolStats mirrors the subset of pgxpool.Stat fields returned by
// Pool.Stat.
type PoolStats struct {
	AcquiredConns int32
	IdleConns     int32
	TotalConns    int32
	MaxConns      int32
}
