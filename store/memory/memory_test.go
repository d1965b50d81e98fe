package memory

import (
	"context"
	"testing"

	"github.com/Dorico-Dynamics/txova-tcc/tcc"
)

func TestStore_CreateTx_RejectsEmptyParticipants(t *testing.T) {
	s := New()
	if _, err := s.CreateTx(context.Background(), nil); !tcc.IsCode(err, tcc.CodeNoParticipantsRegistered) {
		t.Fatalf("expected CodeNoParticipantsRegistered, got %v", err)
	}
}

func TestStore_CreateTx_AssignsHangingStatus(t *testing.T) {
	s := New()
	txID, err := s.CreateTx(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("CreateTx() error: %v", err)
	}

	tx, err := s.GetTX(context.Background(), txID)
	if err != nil {
		t.Fatalf("GetTX() error: %v", err)
	}
	if tx.Status != tcc.TxHanging {
		t.Fatalf("Status = %v, want TxHanging", tx.Status)
	}
	for _, id := range []string{"a", "b"} {
		if tx.ParticipantStatuses[id].TryStatus != tcc.TryHanging {
			t.Fatalf("participant %s TryStatus = %v, want TryHanging", id, tx.ParticipantStatuses[id].TryStatus)
		}
	}
}

func TestStore_TXUpdateComponentStatus_FirstWriterWins(t *testing.T) {
	s := New()
	txID, _ := s.CreateTx(context.Background(), []string{"a"})

	if err := s.TXUpdateComponentStatus(context.Background(), txID, "a", true); err != nil {
		t.Fatalf("first update error: %v", err)
	}
	// A second, conflicting update must be a silent no-op.
	if err := s.TXUpdateComponentStatus(context.Background(), txID, "a", false); err != nil {
		t.Fatalf("second update error: %v", err)
	}

	tx, _ := s.GetTX(context.Background(), txID)
	if tx.ParticipantStatuses["a"].TryStatus != tcc.TrySuccessful {
		t.Fatalf("TryStatus = %v, want TrySuccessful (first write should stick)", tx.ParticipantStatuses["a"].TryStatus)
	}
}

func TestStore_TXUpdateComponentStatus_UnknownParticipant(t *testing.T) {
	s := New()
	txID, _ := s.CreateTx(context.Background(), []string{"a"})

	err := s.TXUpdateComponentStatus(context.Background(), txID, "ghost", true)
	if !tcc.IsCode(err, tcc.CodeInvalidTransactionState) {
		t.Fatalf("expected CodeInvalidTransactionState, got %v", err)
	}
}

func TestStore_TXSubmit_IdempotentAndConflict(t *testing.T) {
	s := New()
	txID, _ := s.CreateTx(context.Background(), []string{"a"})

	if err := s.TXSubmit(context.Background(), txID, true); err != nil {
		t.Fatalf("TXSubmit error: %v", err)
	}
	// Same value again: idempotent no-op.
	if err := s.TXSubmit(context.Background(), txID, true); err != nil {
		t.Fatalf("idempotent TXSubmit error: %v", err)
	}
	// Conflicting value: rejected.
	if err := s.TXSubmit(context.Background(), txID, false); !tcc.IsCode(err, tcc.CodeInvalidTransactionState) {
		t.Fatalf("expected CodeInvalidTransactionState on conflicting submit, got %v", err)
	}
}

func TestStore_GetHangingTXs_OrderedAndBounded(t *testing.T) {
	s := New()
	var ids []string
	for i := 0; i < 3; i++ {
		id, _ := s.CreateTx(context.Background(), []string{"a"})
		ids = append(ids, id)
	}
	// Settle the middle one so it's excluded.
	s.TXUpdateComponentStatus(context.Background(), ids[1], "a", true)
	s.TXSubmit(context.Background(), ids[1], true)

	hanging, err := s.GetHangingTXs(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetHangingTXs() error: %v", err)
	}
	if len(hanging) != 1 {
		t.Fatalf("len(hanging) = %d, want 1 (limit respected)", len(hanging))
	}
	if hanging[0].ID != ids[0] {
		t.Fatalf("hanging[0].ID = %s, want %s (oldest first)", hanging[0].ID, ids[0])
	}
}

func TestStore_Lock_Unlock(t *testing.T) {
	s := New()
	if err := s.Lock(context.Background(), 0); err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	if err := s.Lock(context.Background(), 0); err == nil {
		t.Fatal("second Lock() should fail while held")
	}
	if err := s.Unlock(context.Background()); err != nil {
		t.Fatalf("Unlock() error: %v", err)
	}
	if err := s.Lock(context.Background(), 0); err != nil {
		t.Fatalf("Lock() after Unlock() error: %v", err)
	}
}

func TestStore_Unlock_NoopWhenNotHeld(t *testing.T) {
	s := New()
	if err := s.Unlock(context.Background()); err != nil {
		t.Fatalf("Unlock() on an unheld lock should be a no-op, got error: %v", err)
	}
	if err := s.Lock(context.Background(), 0); err != nil {
		t.Fatalf("Lock() after no-op Unlock() error: %v", err)
	}
}
