// Package tcc defines the data model and pure logic shared by the
// transaction coordinator: the Try-Confirm-Cancel status types, the
// Transaction record, the Participant capability contract, and the
// StateEvaluator that derives an aggregate status from per-participant
// statuses.
package tcc

import "time"

// TryStatus is the status of a single participant's Try operation within
// one transaction.
type TryStatus int

const (
	// TryHanging is the initial status: the participant's Try outcome is
	// not yet known or not yet durably recorded.
	TryHanging TryStatus = iota
	// TrySuccessful means the participant's Try operation succeeded.
	TrySuccessful
	// TryFailure means the participant's Try operation failed or was rejected.
	TryFailure
)

// String returns a human-readable name for the status.
func (s TryStatus) String() string {
	switch s {
	case TryHanging:
		return "hanging"
	case TrySuccessful:
		return "successful"
	case TryFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// TxStatus is the aggregate status of a transaction.
type TxStatus int

const (
	// TxHanging is the initial status and the only non-terminal one.
	TxHanging TxStatus = iota
	// TxSuccessful is terminal: every participant has confirmed.
	TxSuccessful
	// TxFailure is terminal: every participant has been cancelled.
	TxFailure
)

// String returns a human-readable name for the status.
func (s TxStatus) String() string {
	switch s {
	case TxHanging:
		return "hanging"
	case TxSuccessful:
		return "successful"
	case TxFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is a terminal status (no further transitions
// are permitted out of it).
func (s TxStatus) Terminal() bool {
	return s == TxSuccessful || s == TxFailure
}

// ParticipantEntry records one participant's Try outcome within a
// transaction.
type ParticipantEntry struct {
	ParticipantID string
	TryStatus     TryStatus
}

// Transaction is the durable unit tracked by a TxStore. ID is assigned by
// the store at creation time and is never reused. ParticipantStatuses'
// key set is fixed at CreateTx time and never grows or shrinks.
type Transaction struct {
	ID                  string
	Status              TxStatus
	ParticipantStatuses map[string]ParticipantEntry
	CreatedAt           time.Time
}

// ParticipantIDs returns the transaction's registered participant IDs, in
// no particular order.
func (t *Transaction) ParticipantIDs() []string {
	ids := make([]string, 0, len(t.ParticipantStatuses))
	for id := range t.ParticipantStatuses {
		ids = append(ids, id)
	}
	return ids
}
