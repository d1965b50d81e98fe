// Package memory provides an in-memory store.TxStore, used by the
// txmanager unit test suite and suitable for single-node development use.
// It also implements lock.DistributedLock as a simple in-process mutex,
// for tests that want a working Monitor without a Redis dependency.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dorico-Dynamics/txova-tcc/store"
	"github.com/Dorico-Dynamics/txova-tcc/tcc"
)

// Store is a mutex-guarded, process-local implementation of
// store.TxStore. It is not crash-safe — retention and durability are the
// point of the Postgres backend — but it satisfies every invariant in
// SPEC_FULL.md §3, which makes it a useful store.TxStore conformance
// fixture for any backend's own test suite to replay.
type Store struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[string]*tcc.Transaction
	lockKey sync.Mutex
	locked  atomic.Bool
}

// New creates an empty Store.
func New() *Store {
	return &Store{byID: make(map[string]*tcc.Transaction)}
}

// CreateTx implements store.TxStore.
func (s *Store) CreateTx(_ context.Context, participantIDs []string) (string, error) {
	if len(participantIDs) == 0 {
		return "", tcc.New(tcc.CodeNoParticipantsRegistered, "cannot create a transaction with no participants")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := strconv.FormatInt(s.nextID, 10)

	entries := make(map[string]tcc.ParticipantEntry, len(participantIDs))
	for _, pid := range participantIDs {
		entries[pid] = tcc.ParticipantEntry{ParticipantID: pid, TryStatus: tcc.TryHanging}
	}

	s.byID[id] = &tcc.Transaction{
		ID:                  id,
		Status:              tcc.TxHanging,
		ParticipantStatuses: entries,
		CreatedAt:           time.Now(),
	}
	return id, nil
}

// TXUpdateComponentStatus implements store.TxStore.
func (s *Store) TXUpdateComponentStatus(_ context.Context, txID, participantID string, accept bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.byID[txID]
	if !ok {
		return tcc.NotFoundf("transaction %s not found", txID)
	}

	entry, ok := tx.ParticipantStatuses[participantID]
	if !ok {
		return tcc.Newf(tcc.CodeInvalidTransactionState, "participant %s is not part of transaction %s", participantID, txID)
	}

	// First-writer-wins: a participant's entry only ever transitions out
	// of TryHanging once.
	if entry.TryStatus != tcc.TryHanging {
		return nil
	}

	if accept {
		entry.TryStatus = tcc.TrySuccessful
	} else {
		entry.TryStatus = tcc.TryFailure
	}
	tx.ParticipantStatuses[participantID] = entry
	return nil
}

// TXSubmit implements store.TxStore.
func (s *Store) TXSubmit(_ context.Context, txID string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.byID[txID]
	if !ok {
		return tcc.NotFoundf("transaction %s not found", txID)
	}

	want := tcc.TxFailure
	if success {
		want = tcc.TxSuccessful
	}

	if tx.Status == want {
		return nil // idempotent no-op
	}
	if tx.Status.Terminal() {
		return tcc.Newf(tcc.CodeInvalidTransactionState, "transaction %s is already terminal (%s), cannot submit %s", txID, tx.Status, want)
	}

	tx.Status = want
	return nil
}

// GetHangingTXs implements store.TxStore.
func (s *Store) GetHangingTXs(_ context.Context, limit int) ([]*tcc.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = store.DefaultHangingTXLimit
	}

	hanging := make([]*tcc.Transaction, 0)
	for _, tx := range s.byID {
		if tx.Status == tcc.TxHanging {
			hanging = append(hanging, cloneTx(tx))
		}
	}

	sort.Slice(hanging, func(i, j int) bool {
		return hanging[i].CreatedAt.Before(hanging[j].CreatedAt)
	})

	if len(hanging) > limit {
		hanging = hanging[:limit]
	}
	return hanging, nil
}

// GetTX implements store.TxStore.
func (s *Store) GetTX(_ context.Context, txID string) (*tcc.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.byID[txID]
	if !ok {
		return nil, tcc.NotFoundf("transaction %s not found", txID)
	}
	return cloneTx(tx), nil
}

// Lock implements lock.DistributedLock as a simple in-process try-lock:
// it does not block, since within a single process there is nothing to
// wait on besides this same mutex. It ignores the expire argument: the
// lock never auto-expires and stays held until Unlock.
func (s *Store) Lock(_ context.Context, _ time.Duration) error {
	if !s.lockKey.TryLock() {
		return tcc.LockAcquisitionError("in-memory lock already held", nil)
	}
	s.locked.Store(true)
	return nil
}

// Unlock implements lock.DistributedLock. It is a no-op if this Store
// does not currently hold the lock, matching lock.DistributedLock's
// contract (lock/lock.go) instead of panicking on a bare mutex unlock.
func (s *Store) Unlock(_ context.Context) error {
	if !s.locked.CompareAndSwap(true, false) {
		return nil
	}
	s.lockKey.Unlock()
	return nil
}

func cloneTx(tx *tcc.Transaction) *tcc.Transaction {
	clone := &tcc.Transaction{
		ID:                  tx.ID,
		Status:              tx.Status,
		CreatedAt:           tx.CreatedAt,
		ParticipantStatuses: make(map[string]tcc.ParticipantEntry, len(tx.ParticipantStatuses)),
	}
	for k, v := range tx.ParticipantStatuses {
		clone.ParticipantStatuses[k] = v
	}
	return clone
}
