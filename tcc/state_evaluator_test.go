package tcc

import "testing"

func newTx(entries map[string]TryStatus) *Transaction {
	statuses := make(map[string]ParticipantEntry, len(entries))
	for id, status := range entries {
		statuses[id] = ParticipantEntry{ParticipantID: id, TryStatus: status}
	}
	return &Transaction{ID: "tx-1", ParticipantStatuses: statuses}
}

func TestAggregate_AllSuccessful(t *testing.T) {
	tx := newTx(map[string]TryStatus{"a": TrySuccessful, "b": TrySuccessful})
	if got := Aggregate(tx, []string{"a", "b"}); got != TxSuccessful {
		t.Fatalf("Aggregate() = %v, want TxSuccessful", got)
	}
}

func TestAggregate_OneHanging(t *testing.T) {
	tx := newTx(map[string]TryStatus{"a": TrySuccessful, "b": TryHanging})
	if got := Aggregate(tx, []string{"a", "b"}); got != TxHanging {
		t.Fatalf("Aggregate() = %v, want TxHanging", got)
	}
}

func TestAggregate_FailureDominatesHanging(t *testing.T) {
	tx := newTx(map[string]TryStatus{"a": TryFailure, "b": TryHanging})
	if got := Aggregate(tx, []string{"a", "b"}); got != TxFailure {
		t.Fatalf("Aggregate() = %v, want TxFailure (failure dominates hanging)", got)
	}
}

func TestAggregate_FailureDominatesSuccessful(t *testing.T) {
	tx := newTx(map[string]TryStatus{"a": TryFailure, "b": TrySuccessful})
	if got := Aggregate(tx, []string{"a", "b"}); got != TxFailure {
		t.Fatalf("Aggregate() = %v, want TxFailure (failure dominates successful)", got)
	}
}

func TestAggregate_IgnoresDeregisteredParticipants(t *testing.T) {
	tx := newTx(map[string]TryStatus{"a": TrySuccessful, "b": TrySuccessful})
	if got := Aggregate(tx, []string{"a"}); got != TxSuccessful {
		t.Fatalf("Aggregate() = %v, want TxSuccessful when only a subset is registered", got)
	}
}
