// Package store defines the durable transaction log contract (TxStore)
// that every storage backend — Postgres, in-memory, or otherwise — must
// satisfy. See SPEC_FULL.md §4.2 for the full contract.
package store

import (
	"context"

	"github.com/Dorico-Dynamics/txova-tcc/tcc"
)

// TxStore is the durable log of transactions and per-participant try
// statuses. Implementations must be crash-safe: a transaction visible as
// Hanging after a restart must still reflect the last durably
// acknowledged per-participant update.
type TxStore interface {
	// CreateTx writes a new transaction with every participant entry at
	// TryHanging and top-level status TxHanging. Returns a unique,
	// store-assigned, monotonically increasing ID.
	CreateTx(ctx context.Context, participantIDs []string) (txID string, err error)

	// TXUpdateComponentStatus atomically sets
	// participantStatuses[participantID].TryStatus to TrySuccessful (if
	// accept) or TryFailure (otherwise). First-writer-wins: once a
	// participant's entry leaves TryHanging, subsequent calls for the
	// same (txID, participantID) are no-ops. Returns
	// tcc.CodeTransactionNotFound if txID is unknown.
	TXUpdateComponentStatus(ctx context.Context, txID, participantID string, accept bool) error

	// TXSubmit atomically sets the transaction's top-level status to
	// TxSuccessful (if success) or TxFailure. Idempotent for the same
	// (txID, success) pair; implementations may reject conflicting
	// success values for the same txID with
	// tcc.CodeInvalidTransactionState.
	TXSubmit(ctx context.Context, txID string, success bool) error

	// GetHangingTXs returns transactions with status TxHanging, ordered
	// ascending by CreatedAt, bounded to at most limit results.
	GetHangingTXs(ctx context.Context, limit int) ([]*tcc.Transaction, error)

	// GetTX returns the transaction with the given ID, or
	// tcc.CodeTransactionNotFound.
	GetTX(ctx context.Context, txID string) (*tcc.Transaction, error)
}

// DefaultHangingTXLimit is the recommended cap on GetHangingTXs results
// (SPEC_FULL.md §4.2 / spec.md §4.2).
const DefaultHangingTXLimit = 100
