package txmanager

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dorico-Dynamics/txova-tcc/participant/inprocess"
	"github.com/Dorico-Dynamics/txova-tcc/retry"
	"github.com/Dorico-Dynamics/txova-tcc/store/memory"
	"github.com/Dorico-Dynamics/txova-tcc/tcc"
)

// fakeLock is a no-op lock.DistributedLock for tests that don't exercise
// the Monitor's cross-instance serialization.
type fakeLock struct {
	lockErr error
}

func (f *fakeLock) Lock(context.Context, time.Duration) error { return f.lockErr }
func (f *fakeLock) Unlock(context.Context) error              { return nil }

func fastRetryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxRetries = 2
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	cfg.Jitter = time.Millisecond
	return cfg
}

func TestTxManager_StartTransaction_AllSucceed(t *testing.T) {
	s := memory.New()
	m := NewTxManager(s, &fakeLock{},
		WithEnableMonitor(false),
		WithTimeout(time.Second),
		WithRetryConfig(fastRetryConfig()),
	)
	defer m.Stop()

	if err := m.Register(inprocess.New("wallet")); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := m.Register(inprocess.New("inventory")); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	result, err := m.StartTransaction(context.Background())
	if err != nil {
		t.Fatalf("StartTransaction() error: %v", err)
	}
	if !result.Success() {
		t.Fatalf("Outcome = %v, want OutcomeOK", result.Outcome)
	}

	tx, err := s.GetTX(context.Background(), result.TxID)
	if err != nil {
		t.Fatalf("GetTX() error: %v", err)
	}
	if tx.Status != tcc.TxSuccessful {
		t.Fatalf("tx.Status = %v, want TxSuccessful", tx.Status)
	}
}

func TestTxManager_StartTransaction_NoParticipants(t *testing.T) {
	m := NewTxManager(memory.New(), &fakeLock{}, WithEnableMonitor(false))
	defer m.Stop()

	_, err := m.StartTransaction(context.Background())
	if !tcc.IsCode(err, tcc.CodeNoParticipantsRegistered) {
		t.Fatalf("expected CodeNoParticipantsRegistered, got %v", err)
	}
}

func TestTxManager_Register_RejectsDuplicate(t *testing.T) {
	m := NewTxManager(memory.New(), &fakeLock{}, WithEnableMonitor(false))
	defer m.Stop()

	if err := m.Register(inprocess.New("wallet")); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := m.Register(inprocess.New("wallet")); !tcc.IsCode(err, tcc.CodeDuplicateParticipant) {
		t.Fatalf("expected CodeDuplicateParticipant, got %v", err)
	}
}

func TestTxManager_StartTransaction_BusinessFailureCancelsAll(t *testing.T) {
	s := memory.New()
	m := NewTxManager(s, &fakeLock{},
		WithEnableMonitor(false),
		WithTimeout(time.Second),
		WithRetryConfig(fastRetryConfig()),
	)
	defer m.Stop()

	var walletCancelled, inventoryCancelled atomic.Bool
	m.Register(inprocess.New("wallet", inprocess.WithTry(func(ctx context.Context, txID string) error {
		return errors.New("insufficient funds")
	}), inprocess.WithCancel(func(ctx context.Context, txID string) error {
		walletCancelled.Store(true)
		return nil
	})))
	m.Register(inprocess.New("inventory", inprocess.WithCancel(func(ctx context.Context, txID string) error {
		inventoryCancelled.Store(true)
		return nil
	})))

	result, err := m.StartTransaction(context.Background())
	if err != nil {
		t.Fatalf("StartTransaction() error: %v", err)
	}
	if result.Outcome != OutcomeBusinessFailure {
		t.Fatalf("Outcome = %v, want OutcomeBusinessFailure", result.Outcome)
	}

	tx, _ := s.GetTX(context.Background(), result.TxID)
	if tx.Status != tcc.TxFailure {
		t.Fatalf("tx.Status = %v, want TxFailure", tx.Status)
	}
	if !inventoryCancelled.Load() {
		t.Fatal("inventory participant should have been cancelled")
	}
	// wallet's own Try failed, so it never reserved anything, but the
	// Cancel fan-out still reaches every participant on the transaction.
	if !walletCancelled.Load() {
		t.Fatal("wallet participant should have been cancelled")
	}
}

func TestTxManager_StartTransaction_TimesOut(t *testing.T) {
	s := memory.New()
	m := NewTxManager(s, &fakeLock{},
		WithEnableMonitor(false),
		WithTimeout(20*time.Millisecond),
		WithRetryConfig(fastRetryConfig()),
	)
	defer m.Stop()

	blocked := make(chan struct{})
	m.Register(inprocess.New("slow", inprocess.WithTry(func(ctx context.Context, txID string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-blocked:
			return nil
		}
	})))

	result, err := m.StartTransaction(context.Background())
	close(blocked)
	if err != nil {
		t.Fatalf("StartTransaction() error: %v", err)
	}
	if result.Outcome != OutcomeTimeout {
		t.Fatalf("Outcome = %v, want OutcomeTimeout", result.Outcome)
	}
}

func TestTxManager_AdvanceTransactionProgress_NoOpWhileHanging(t *testing.T) {
	s := memory.New()
	m := NewTxManager(s, &fakeLock{}, WithEnableMonitor(false))
	defer m.Stop()

	m.Register(inprocess.New("wallet"))
	m.Register(inprocess.New("inventory"))

	txID, err := s.CreateTx(context.Background(), []string{"wallet", "inventory"})
	if err != nil {
		t.Fatalf("CreateTx() error: %v", err)
	}
	// Only one participant has reported in; the transaction must remain
	// hanging and AdvanceTransactionProgress must be a safe no-op.
	if err := s.TXUpdateComponentStatus(context.Background(), txID, "wallet", true); err != nil {
		t.Fatalf("TXUpdateComponentStatus() error: %v", err)
	}

	if err := m.AdvanceTransactionProgress(context.Background(), txID); err != nil {
		t.Fatalf("AdvanceTransactionProgress() error: %v", err)
	}

	tx, _ := s.GetTX(context.Background(), txID)
	if tx.Status != tcc.TxHanging {
		t.Fatalf("tx.Status = %v, want TxHanging", tx.Status)
	}
}

func TestTxManager_GetHealth(t *testing.T) {
	m := NewTxManager(memory.New(), &fakeLock{}, WithEnableMonitor(false))
	defer m.Stop()

	m.Register(inprocess.New("wallet"))
	health := m.GetHealth()
	if health.ParticipantsCount != 1 {
		t.Fatalf("ParticipantsCount = %d, want 1", health.ParticipantsCount)
	}
	if health.MonitorEnabled {
		t.Fatal("MonitorEnabled should be false")
	}
	if health.InstanceID == "" {
		t.Fatal("InstanceID should be non-empty")
	}
	if !health.Healthy {
		t.Fatal("Healthy should be true when the monitor is disabled")
	}
	if health.Metrics == nil {
		t.Fatal("Metrics should be non-nil")
	}
}

func TestTxManager_GetHealth_MonitorEnabled(t *testing.T) {
	m := NewTxManager(memory.New(), memory.New(), WithEnableMonitor(true), WithMonitorInterval(5*time.Millisecond))
	defer m.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if m.GetHealth().Healthy {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("monitor never reported healthy")
}
