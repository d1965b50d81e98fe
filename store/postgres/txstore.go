package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Dorico-Dynamics/txova-tcc/internal/logging"
	"github.com/Dorico-Dynamics/txova-tcc/store"
	"github.com/Dorico-Dynamics/txova-tcc/tcc"
)

// TxStore implements store.TxStore on top of the transactions /
// transaction_participants schema (store/postgres/migrations/0001_init.up.sql),
// grounded on how txova-go-db's insert/update/query helpers shape hand
// parameterized SQL around a Pool. This coordinator only ever runs a
// handful of fixed query shapes (a few per store operation), so it talks
// to Pool directly rather than porting the
// teacher's general-purpose dynamic query builder — see DESIGN.md.
type TxStore struct {
	pool   Pool
	runner *TxRunner
	logger *logging.Logger
}

var _ store.TxStore = (*TxStore)(nil)

// NewTxStore creates a TxStore over an already-connected Pool.
func NewTxStore(pool Pool, logger *logging.Logger) *TxStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &TxStore{pool: pool, runner: NewTxRunner(pool, logger), logger: logger}
}

// CreateTx implements store.TxStore.
func (s *TxStore) CreateTx(ctx context.Context, participantIDs []string) (string, error) {
	if len(participantIDs) == 0 {
		return "", tcc.New(tcc.CodeNoParticipantsRegistered, "cannot create a transaction with no participants")
	}

	var txID string
	err := s.runner.WithTx(ctx, func(tx Tx) error {
		var id int64
		row := tx.QueryRow(ctx, `INSERT INTO transactions (status) VALUES ($1) RETURNING id`, int(tcc.TxHanging))
		if err := row.Scan(&id); err != nil {
			return FromPgError(err)
		}

		// Pool and Tx both narrow to Querier, which has no SendBatch — the
		// coordinator's participant counts are small (single digits to low
		// tens), so a loop of parameterized inserts inside one transaction
		// is simpler than wiring pgx.Batch through the Querier interface.
		for _, pid := range participantIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO transaction_participants (tx_id, participant_id, try_status) VALUES ($1, $2, $3)`,
				id, pid, int(tcc.TryHanging),
			); err != nil {
				return err
			}
		}

		txID = strconv.FormatInt(id, 10)
		return nil
	})
	if err != nil {
		return "", err
	}
	return txID, nil
}

// TXUpdateComponentStatus implements store.TxStore. First-writer-wins is
// enforced in SQL via the try_status = 0 guard in the WHERE clause, not
// read-modify-write, so concurrent updates from retried Try responses
// never race.
func (s *TxStore) TXUpdateComponentStatus(ctx context.Context, txID, participantID string, accept bool) error {
	id, err := parseTxID(txID)
	if err != nil {
		return err
	}

	newStatus := tcc.TryFailure
	if accept {
		newStatus = tcc.TrySuccessful
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE transaction_participants SET try_status = $1
		 WHERE tx_id = $2 AND participant_id = $3 AND try_status = $4`,
		int(newStatus), id, participantID, int(tcc.TryHanging),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// No row updated: either the transaction is unknown, the participant
	// isn't registered on it, or it already moved out of TryHanging
	// (first-writer-wins no-op) — distinguish the three with lookups.
	var exists bool
	row := s.pool.QueryRow(ctx,
		`SELECT true FROM transaction_participants WHERE tx_id = $1 AND participant_id = $2`, id, participantID)
	if scanErr := row.Scan(&exists); scanErr != nil {
		if scanErr == pgx.ErrNoRows {
			txRow := s.pool.QueryRow(ctx, `SELECT true FROM transactions WHERE id = $1`, id)
			if txErr := txRow.Scan(&exists); txErr != nil {
				if txErr == pgx.ErrNoRows {
					return tcc.NotFoundf("transaction %s not found", txID)
				}
				return FromPgError(txErr)
			}
			return tcc.Newf(tcc.CodeInvalidTransactionState, "participant %s is not part of transaction %s", participantID, txID)
		}
		return FromPgError(scanErr)
	}
	return nil
}

// TXSubmit implements store.TxStore.
func (s *TxStore) TXSubmit(ctx context.Context, txID string, success bool) error {
	id, err := parseTxID(txID)
	if err != nil {
		return err
	}

	want := tcc.TxFailure
	if success {
		want = tcc.TxSuccessful
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE transactions SET status = $1 WHERE id = $2 AND status = $3`,
		int(want), id, int(tcc.TxHanging),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	tx, getErr := s.GetTX(ctx, txID)
	if getErr != nil {
		return getErr
	}
	if tx.Status == want {
		return nil // idempotent no-op
	}
	return tcc.Newf(tcc.CodeInvalidTransactionState, "transaction %s is already terminal (%s), cannot submit %s", txID, tx.Status, want)
}

// GetHangingTXs implements store.TxStore.
func (s *TxStore) GetHangingTXs(ctx context.Context, limit int) ([]*tcc.Transaction, error) {
	if limit <= 0 {
		limit = store.DefaultHangingTXLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, status, created_at FROM transactions WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		int(tcc.TxHanging), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	txs := make(map[int64]*tcc.Transaction)
	for rows.Next() {
		var (
			id        int64
			status    int
			createdAt time.Time
		)
		if err := rows.Scan(&id, &status, &createdAt); err != nil {
			return nil, FromPgError(err)
		}
		ids = append(ids, id)
		txs[id] = &tcc.Transaction{
			ID:                  strconv.FormatInt(id, 10),
			Status:              tcc.TxStatus(status),
			CreatedAt:           createdAt,
			ParticipantStatuses: make(map[string]tcc.ParticipantEntry),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, FromPgError(err)
	}

	if err := s.loadParticipants(ctx, txs, ids); err != nil {
		return nil, err
	}

	result := make([]*tcc.Transaction, 0, len(ids))
	for _, id := range ids {
		result = append(result, txs[id])
	}
	return result, nil
}

// GetTX implements store.TxStore.
func (s *TxStore) GetTX(ctx context.Context, txID string) (*tcc.Transaction, error) {
	id, err := parseTxID(txID)
	if err != nil {
		return nil, err
	}

	var (
		status    int
		createdAt time.Time
	)
	row := s.pool.QueryRow(ctx, `SELECT status, created_at FROM transactions WHERE id = $1`, id)
	if scanErr := row.Scan(&status, &createdAt); scanErr != nil {
		if scanErr == pgx.ErrNoRows {
			return nil, tcc.NotFoundf("transaction %s not found", txID)
		}
		return nil, FromPgError(scanErr)
	}

	tx := &tcc.Transaction{
		ID:                  txID,
		Status:              tcc.TxStatus(status),
		CreatedAt:           createdAt,
		ParticipantStatuses: make(map[string]tcc.ParticipantEntry),
	}

	txs := map[int64]*tcc.Transaction{id: tx}
	if err := s.loadParticipants(ctx, txs, []int64{id}); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *TxStore) loadParticipants(ctx context.Context, txs map[int64]*tcc.Transaction, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT tx_id, participant_id, try_status FROM transaction_participants WHERE tx_id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			txID          int64
			participantID string
			tryStatus     int
		)
		if err := rows.Scan(&txID, &participantID, &tryStatus); err != nil {
			return FromPgError(err)
		}
		if tx, ok := txs[txID]; ok {
			tx.ParticipantStatuses[participantID] = tcc.ParticipantEntry{
				ParticipantID: participantID,
				TryStatus:     tcc.TryStatus(tryStatus),
			}
		}
	}
	return rows.Err()
}

func parseTxID(txID string) (int64, error) {
	id, err := strconv.ParseInt(txID, 10, 64)
	if err != nil {
		return 0, tcc.Newf(tcc.CodeTransactionNotFound, "invalid transaction id %q", txID)
	}
	return id, nil
}
