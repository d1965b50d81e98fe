// Package txmanager implements the TCC coordinator's core algorithm:
// participant registration, the Try-phase fan-out with a timeout race,
// Confirm/Cancel advancement, and the background Monitor reconciliation
// loop. Grounded on the concurrency shape of the gotcc reference
// implementation (_examples/other_examples/8c5d247d_27933-godisttx__txmanager-txmanager.go.go):
// a sync.WaitGroup plus buffered error channel for first-failure capture,
// and a dedicated goroutine that closes a "done" channel once the group
// finishes so the result can be selected against a deadline.
package txmanager

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dorico-Dynamics/txova-tcc/lock"
	"github.com/Dorico-Dynamics/txova-tcc/metrics"
	"github.com/Dorico-Dynamics/txova-tcc/retry"
	"github.com/Dorico-Dynamics/txova-tcc/store"
	"github.com/Dorico-Dynamics/txova-tcc/tcc"
)

// Outcome discriminates StartTransaction's result beyond a collapsed
// boolean (spec.md §9 Open Question 2, resolved in DESIGN.md).
type Outcome int

const (
	// OutcomeOK: every participant's Try succeeded within the timeout.
	OutcomeOK Outcome = iota
	// OutcomeTimeout: the Try-phase timer expired before all participants
	// responded.
	OutcomeTimeout
	// OutcomeBusinessFailure: a participant's Try rejected the transaction
	// for a business reason.
	OutcomeBusinessFailure
	// OutcomeInfraError: a retryable failure ended the Try phase — a store
	// failure while recording a participant's Try status, or a Try error
	// the participant marked retryable (e.g. a network error or 5xx from
	// an HTTP participant).
	OutcomeInfraError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeBusinessFailure:
		return "business_failure"
	case OutcomeInfraError:
		return "infra_error"
	default:
		return "unknown"
	}
}

// StartResult is StartTransaction's return value.
type StartResult struct {
	TxID    string
	Outcome Outcome
}

// Success reports the collapsed boolean view of Outcome, for callers
// that don't need the discriminated reason.
func (r StartResult) Success() bool {
	return r.Outcome == OutcomeOK
}

// TxManager is the coordinator. Construct with NewTxManager and register
// participants before calling StartTransaction.
type TxManager struct {
	store store.TxStore
	lock  lock.DistributedLock

	// instanceID identifies this process for the cross-instance Monitor
	// mutual-exclusion model (spec.md §3 Ownership, §5/§8 invariant 7).
	// It is transient, per-process state: never persisted, regenerated
	// on every NewTxManager call.
	instanceID string

	registry  *registry
	config    Config
	retryExec *retry.Executor

	monitorAlive atomic.Bool

	startedCount   atomic.Int64
	succeededCount atomic.Int64
	failedCount    atomic.Int64
	hangingCount   atomic.Int64

	stopOnce    sync.Once
	stopCh      chan struct{}
	monitorDone chan struct{}
}

// NewTxManager creates a TxManager bound to a storage backend and a
// cluster-wide lock, and starts the Monitor loop if cfg.EnableMonitor.
func NewTxManager(s store.TxStore, l lock.DistributedLock, opts ...Option) *TxManager {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &TxManager{
		store:       s,
		lock:        l,
		instanceID:  generateInstanceID(),
		registry:    newRegistry(),
		config:      cfg,
		retryExec:   retry.NewExecutor(cfg.Retry),
		stopCh:      make(chan struct{}),
		monitorDone: make(chan struct{}),
	}

	if cfg.EnableMonitor {
		go m.runMonitor()
	} else {
		close(m.monitorDone)
	}

	return m
}

// Register adds a participant to the in-process registry.
func (m *TxManager) Register(p tcc.Participant) error {
	return m.registry.register(p)
}

// StartTransaction runs the Try phase against every registered
// participant and performs a best-effort foreground advancement,
// following spec.md §4.5 steps 1-5.
func (m *TxManager) StartTransaction(ctx context.Context) (StartResult, error) {
	snapshot := m.registry.snapshot()
	if len(snapshot) == 0 {
		return StartResult{}, tcc.New(tcc.CodeNoParticipantsRegistered, "no participants registered")
	}

	ids := make([]string, len(snapshot))
	for i, p := range snapshot {
		ids[i] = p.ID()
	}

	txID, err := m.store.CreateTx(ctx, ids)
	if err != nil {
		return StartResult{}, err
	}
	m.config.Metrics.IncCounter(metrics.MetricTransactionStarted)
	m.startedCount.Add(1)

	tryStart := time.Now()
	tryErr := m.tryPhase(ctx, txID, snapshot)
	m.config.Metrics.ObserveDuration(metrics.MetricTryDuration, time.Since(tryStart))

	if advanceErr := m.AdvanceTransactionProgress(ctx, txID); advanceErr != nil {
		m.config.Logger.WarnContext(ctx, "foreground advance failed, deferring to monitor",
			"tx_id", txID, "error", advanceErr.Error())
	}

	result := StartResult{TxID: txID}
	switch {
	case tryErr == nil:
		result.Outcome = OutcomeOK
	case tcc.IsCode(tryErr, tcc.CodeTransactionTimeout):
		result.Outcome = OutcomeTimeout
	default:
		if tccErr := tcc.AsError(tryErr); tccErr != nil && tccErr.Retryable() {
			result.Outcome = OutcomeInfraError
		} else {
			result.Outcome = OutcomeBusinessFailure
		}
	}
	return result, nil
}

// tryPhase races three things per SPEC_FULL.md §5: all participants'
// Try+TXUpdateComponentStatus calls completing, the first one failing, or
// the Try-phase timer expiring — whichever happens first ends the phase.
// Stragglers are abandoned but their eventual TXUpdateComponentStatus
// calls still land, since the store's first-writer-wins update makes a
// late write safe.
func (m *TxManager) tryPhase(ctx context.Context, txID string, participants []tcc.Participant) error {
	tryCtx, cancel := contextWithOptionalTimeout(ctx, m.config.Timeout)
	defer cancel()

	errCh := make(chan error, len(participants))
	var wg sync.WaitGroup
	for _, p := range participants {
		wg.Add(1)
		go func(p tcc.Participant) {
			defer wg.Done()
			tryErr := p.Try(tryCtx, txID)
			accept := tryErr == nil

			// Record the status update against the outer (non-deadline)
			// context: a participant that succeeded right at the timeout
			// boundary must still have its status durably recorded.
			updErr := m.store.TXUpdateComponentStatus(ctx, txID, p.ID(), accept)
			switch {
			case tryErr != nil:
				errCh <- tryErr
			case updErr != nil:
				errCh <- tcc.StorageError("record try status", updErr)
			}
		}(p)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		select {
		case err := <-errCh:
			return err
		default:
			return nil
		}
	case err := <-errCh:
		cancel()
		<-done
		return err
	case <-tryCtx.Done():
		cancel()
		<-done
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return tcc.Newf(tcc.CodeTransactionTimeout, "transaction %s timed out waiting for participant Try responses", txID).WithRetryable(false)
	}
}

// AdvanceTransactionProgress evaluates tx's aggregate status and, if
// terminal, drives the Confirm/Cancel fan-out and TXSubmit. It is
// idempotent and safe to call repeatedly (from StartTransaction's
// foreground call and from every Monitor tick) per spec.md §4.5.
func (m *TxManager) AdvanceTransactionProgress(ctx context.Context, txID string) error {
	tx, err := m.store.GetTX(ctx, txID)
	if err != nil {
		return err
	}

	status := tcc.Aggregate(tx, m.registry.ids())
	switch status {
	case tcc.TxHanging:
		return nil
	case tcc.TxSuccessful:
		return m.settle(ctx, tx, true)
	case tcc.TxFailure:
		return m.settle(ctx, tx, false)
	default:
		return nil
	}
}

// settle runs the Confirm (success) or Cancel (!success) fan-out and, if
// every participant's operation eventually succeeds, calls TXSubmit.
// TXSubmit is never called while any participant's outcome is still
// unresolved — leaving the transaction Hanging for the next Monitor tick
// is the safe state (spec.md §4.5 step 6).
func (m *TxManager) settle(ctx context.Context, tx *tcc.Transaction, success bool) error {
	start := time.Now()
	defer func() {
		m.config.Metrics.ObserveDuration(metrics.MetricConfirmCancelDuration, time.Since(start))
	}()

	ids := tx.ParticipantIDs()
	var wg sync.WaitGroup
	errCh := make(chan error, len(ids))

	for _, pid := range ids {
		p, ok := m.registry.get(pid)
		if !ok {
			m.config.Logger.WarnContext(ctx, "participant no longer registered, cannot settle",
				"tx_id", tx.ID, "participant_id", pid, "success", success)
			errCh <- tcc.Newf(tcc.CodeParticipantExecution, "participant %s is not registered", pid)
			continue
		}

		wg.Add(1)
		go func(p tcc.Participant) {
			defer wg.Done()
			op := p.Confirm
			if !success {
				op = p.Cancel
			}
			retryCount, err := m.retryExec.Do(ctx, func(ctx context.Context) error {
				return op(ctx, tx.ID)
			})
			for i := 0; i < retryCount; i++ {
				m.config.Metrics.IncCounter(metrics.MetricRetryCount, "participant", p.ID())
			}
			if err != nil {
				errCh <- err
			}
		}(p)
	}

	wg.Wait()
	close(errCh)

	var firstErr error
	for err := range errCh {
		if firstErr == nil {
			firstErr = err
		}
		m.config.Logger.ErrorContext(ctx, "participant settle failed",
			"tx_id", tx.ID, "success", success, "error", err.Error())
	}
	if firstErr != nil {
		return firstErr
	}

	if err := m.store.TXSubmit(ctx, tx.ID, success); err != nil {
		return err
	}
	if success {
		m.config.Metrics.IncCounter(metrics.MetricTransactionSucceeded)
		m.succeededCount.Add(1)
	} else {
		m.config.Metrics.IncCounter(metrics.MetricTransactionFailed)
		m.failedCount.Add(1)
	}
	return nil
}

// Stop terminates the Monitor loop, if running, and waits for its
// current iteration to finish before returning.
func (m *TxManager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	<-m.monitorDone
}

// HealthStatus reports the coordinator's operational state, matching
// the {healthy, instanceId, participantsCount, monitorEnabled, metrics}
// shape spec.md §6 assigns to GetHealth().
type HealthStatus struct {
	Healthy           bool
	InstanceID        string
	ParticipantsCount int
	MonitorEnabled    bool
	Metrics           map[string]float64
}

// GetHealth implements the external interface's health surface
// (spec.md §6). Healthy is false only when the Monitor is configured to
// run but its loop goroutine is not currently alive — an unrecovered
// panic inside runMonitor takes down the whole process anyway, so this
// mainly catches the brief gap before the loop goroutine starts and the
// time after it has exited (including after Stop). The loop counts as
// alive from its start, before its first tick.
func (m *TxManager) GetHealth() HealthStatus {
	healthy := !m.config.EnableMonitor || m.monitorAlive.Load()
	return HealthStatus{
		Healthy:           healthy,
		InstanceID:        m.instanceID,
		ParticipantsCount: len(m.registry.ids()),
		MonitorEnabled:    m.config.EnableMonitor,
		Metrics: map[string]float64{
			"transactions_started":   float64(m.startedCount.Load()),
			"transactions_succeeded": float64(m.succeededCount.Load()),
			"transactions_failed":    float64(m.failedCount.Load()),
			"hanging_transactions":   float64(m.hangingCount.Load()),
		},
	}
}

// generateInstanceID returns a random per-process identifier used to
// disambiguate this TxManager from others sharing the same store and
// lock backend (spec.md §3 Ownership).
func generateInstanceID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand.Read on the standard Reader never fails in
		// practice; fall back to a fixed marker rather than panicking
		// on a health-reporting code path.
		return "instance-unknown"
	}
	return "instance-" + hex.EncodeToString(b)
}

func contextWithOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
