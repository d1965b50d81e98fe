package txmanager

import (
	"context"
	"sync"
	"time"

	"github.com/Dorico-Dynamics/txova-tcc/metrics"
	"github.com/Dorico-Dynamics/txova-tcc/tcc"
)

// runMonitor is the background reconciliation loop described in spec.md
// §4.6: it periodically advances every Hanging transaction so that a
// StartTransaction caller who crashed or disconnected mid-Try doesn't
// leave reservations orphaned forever. It exits once Stop closes stopCh,
// after finishing whatever tick is in flight.
func (m *TxManager) runMonitor() {
	defer close(m.monitorDone)

	m.monitorAlive.Store(true)
	defer m.monitorAlive.Store(false)

	ticker := time.NewTicker(m.config.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			if err := m.runMonitorTick(); err != nil {
				m.config.Logger.Error("monitor tick failed, backing off", "error", err.Error())
				// An outer failure (lock backend down, store unreachable)
				// gets a longer cooldown than a routine missed lock
				// acquisition, which is handled inside runMonitorTick
				// itself by simply skipping the tick.
				select {
				case <-m.stopCh:
					return
				case <-time.After(3 * m.config.MonitorInterval):
				}
			}
		}
	}
}

// runMonitorTick runs one reconciliation pass: acquire the cluster lock,
// fetch hanging transactions, advance each concurrently, and release the
// lock unconditionally. Returns an error only for failures outside the
// normal "lock unavailable, skip this tick" path.
func (m *TxManager) runMonitorTick() error {
	ctx := context.Background()

	lockTTL := 2 * m.config.MonitorInterval
	if err := m.lock.Lock(ctx, lockTTL); err != nil {
		// Another instance holds the lock and it was not released in
		// time: routine, not an error — skip the tick and let the next
		// one try again. Any other lock failure (backend unreachable) is
		// returned so runMonitor backs off.
		if tcc.IsCode(err, tcc.CodeLockAcquisitionError) {
			return nil
		}
		return err
	}
	defer m.lock.Unlock(ctx)

	hanging, err := m.store.GetHangingTXs(ctx, 0)
	if err != nil {
		return err
	}
	m.config.Metrics.SetGauge(metrics.MetricHangingTransactionCount, float64(len(hanging)))
	m.hangingCount.Store(int64(len(hanging)))

	var wg sync.WaitGroup
	for _, tx := range hanging {
		wg.Add(1)
		go func(txID string) {
			defer wg.Done()
			if err := m.AdvanceTransactionProgress(ctx, txID); err != nil {
				m.config.Logger.Warn("monitor: failed to advance transaction",
					"tx_id", txID, "error", err.Error())
			}
		}(tx.ID)
	}
	wg.Wait()

	return nil
}
