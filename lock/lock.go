// Package lock defines the cluster-wide advisory mutex contract used by
// the Monitor to serialize reconciliation ticks across coordinator
// instances. See SPEC_FULL.md §4.2 / spec.md §4.2 and §4.6.
package lock

import (
	"context"
	"time"
)

// DistributedLock is a cluster-wide advisory mutex. It is advisory, not
// safety-critical: its only job is to reduce duplicate work during
// Monitor sweeps. Correctness still relies on TxStore's own atomicity.
type DistributedLock interface {
	// Lock blocks up to expire for the lock to become available. Returns
	// tcc.CodeLockAcquisitionError if it could not be acquired in time.
	// The lock auto-expires after expire if never explicitly released,
	// so a crashed holder cannot wedge the cluster forever.
	Lock(ctx context.Context, expire time.Duration) error

	// Unlock releases whatever this instance holds. No-op if nothing is
	// held.
	Unlock(ctx context.Context) error
}
