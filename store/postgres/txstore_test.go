package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/Dorico-Dynamics/txova-tcc/internal/logging"
	"github.com/Dorico-Dynamics/txova-tcc/tcc"
)

var fixedTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// mockPool wraps pgxmock to implement the narrowed Pool interface,
// adapted from txova-go-db/postgres's pgxmock_test.go harness.
type mockPool struct {
	mock pgxmock.PgxPoolIface
}

func newMockPool(t *testing.T) (*mockPool, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	return &mockPool{mock: mock}, mock
}

func (m *mockPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tag, err := m.mock.Exec(ctx, sql, args...)
	if err != nil {
		return tag, FromPgError(err)
	}
	return tag, nil
}

func (m *mockPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := m.mock.Query(ctx, sql, args...)
	if err != nil {
		return nil, FromPgError(err)
	}
	return rows, nil
}

func (m *mockPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.mock.QueryRow(ctx, sql, args...)
}

func (m *mockPool) Begin(ctx context.Context) (Tx, error) {
	tx, err := m.mock.Begin(ctx)
	if err != nil {
		return nil, FromPgError(err)
	}
	return &mockTx{tx: tx}, nil
}

func (m *mockPool) Ping(ctx context.Context) error { return m.mock.Ping(ctx) }
func (m *mockPool) Close()                         { m.mock.Close() }
func (m *mockPool) Stat() PoolStats                { return PoolStats{} }

type mockTx struct {
	tx pgx.Tx
}

func (t *mockTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return tag, FromPgError(err)
	}
	return tag, nil
}

func (t *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, FromPgError(err)
	}
	return rows, nil
}

func (t *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.tx.QueryRow(ctx, sql, args...)
}

func (t *mockTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return FromPgError(err)
	}
	return nil
}

func (t *mockTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		return FromPgError(err)
	}
	return nil
}

func TestTxStore_CreateTx(t *testing.T) {
	pool, mock := newMockPool(t)
	store := NewTxStore(pool, logging.Default())

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO transactions`).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec(`INSERT INTO transaction_participants`).
		WithArgs(int64(1), "inventory", int(tcc.TryHanging)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO transaction_participants`).
		WithArgs(int64(1), "payment", int(tcc.TryHanging)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	id, err := store.CreateTx(context.Background(), []string{"inventory", "payment"})
	if err != nil {
		t.Fatalf("CreateTx returned error: %v", err)
	}
	if id != "1" {
		t.Errorf("expected id %q, got %q", "1", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTxStore_CreateTx_NoParticipants(t *testing.T) {
	pool, _ := newMockPool(t)
	store := NewTxStore(pool, logging.Default())

	_, err := store.CreateTx(context.Background(), nil)
	if !tcc.IsCode(err, tcc.CodeNoParticipantsRegistered) {
		t.Fatalf("expected CodeNoParticipantsRegistered, got %v", err)
	}
}

func TestTxStore_TXUpdateComponentStatus_FirstWriterWins(t *testing.T) {
	pool, mock := newMockPool(t)
	store := NewTxStore(pool, logging.Default())

	mock.ExpectExec(`UPDATE transaction_participants`).
		WithArgs(int(tcc.TrySuccessful), int64(1), "inventory", int(tcc.TryHanging)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT true FROM transaction_participants`).
		WithArgs(int64(1), "inventory").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	if err := store.TXUpdateComponentStatus(context.Background(), "1", "inventory", true); err != nil {
		t.Fatalf("expected no-op success on already-settled participant, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTxStore_TXSubmit_AlreadyTerminalConflict(t *testing.T) {
	pool, mock := newMockPool(t)
	store := NewTxStore(pool, logging.Default())

	mock.ExpectExec(`UPDATE transactions`).
		WithArgs(int(tcc.TxFailure), int64(1), int(tcc.TxHanging)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT status, created_at FROM transactions`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"status", "created_at"}).AddRow(int(tcc.TxSuccessful), fixedTime))
	mock.ExpectQuery(`SELECT tx_id, participant_id, try_status FROM transaction_participants`).
		WillReturnRows(pgxmock.NewRows([]string{"tx_id", "participant_id", "try_status"}))

	err := store.TXSubmit(context.Background(), "1", false)
	if !tcc.IsCode(err, tcc.CodeInvalidTransactionState) {
		t.Fatalf("expected CodeInvalidTransactionState, got %v", err)
	}
}
