package postgres

import (
	"context"
	"time"

	"github.com/Dorico-Dynamics/txova-tcc/internal/logging"
)

// TxRunner retries a unit of work inside a transaction when postgres
// reports a serialization failure or deadlock, adapted from
// txova-go-db/postgres.txManager.executeWithRetry. The coordinator's
// store needs exactly one multi-statement transaction (CreateTx inserting
// the parent row and its participant rows together), so this drops the
// teacher's context-scoped nested-transaction support — nothing in this
// package ever calls WithTx reentrantly.
type TxRunner struct {
	pool       Pool
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *logging.Logger
}

// NewTxRunner creates a TxRunner over pool.
func NewTxRunner(pool Pool, logger *logging.Logger) *TxRunner {
	if logger == nil {
		logger = logging.Default()
	}
	return &TxRunner{
		pool:       pool,
		maxRetries: 3,
		baseDelay:  50 * time.Millisecond,
		maxDelay:   2 * time.Second,
		logger:     logger,
	}
}

// WithTx runs fn inside a transaction, committing on nil and rolling back
// otherwise, retrying the whole attempt on serialization failures and
// deadlocks.
func (r *TxRunner) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.calculateRetryDelay(attempt)
			r.logger.InfoContext(ctx, "retrying transaction", "attempt", attempt+1, "delay_ms", delay.Milliseconds())
			select {
			case <-ctx.Done():
				return Wrap(CodeTimeout, "context cancelled during retry", ctx.Err())
			case <-time.After(delay):
			}
		}

		err := r.executeTx(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		r.logger.WarnContext(ctx, "retryable transaction error", "attempt", attempt+1, "error", err.Error())
	}

	return Wrap(CodeSerialization, "transaction failed after max retries", lastErr)
}

func (r *TxRunner) executeTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			r.logger.ErrorContext(ctx, "rollback failed", "original_error", err.Error(), "rollback_error", rbErr.Error())
		}
		return err
	}

	return tx.Commit(ctx)
}

// calculateRetryDelay computes an exponential backoff delay capped at
// maxDelay, without jitter — this runner only ever retries a handful of
// times within a single request, so the thundering-herd concern that
// motivates retry.Executor's jitter doesn't apply here.
func (r *TxRunner) calculateRetryDelay(attempt int) time.Duration {
	delay := r.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= r.maxDelay {
			return r.maxDelay
		}
	}
	return delay
}
