package redislock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Dorico-Dynamics/txova-tcc/lock"
	"github.com/Dorico-Dynamics/txova-tcc/tcc"
)

// Default locker tuning, mirroring txova-go-db/redis.Locker defaults.
const (
	DefaultRetryDelay = 50 * time.Millisecond
	defaultKeyPrefix  = "tcc-monitor-lock"
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Locker implements lock.DistributedLock on a single named resource (the
// Monitor's reconciliation lock). Unlike the teacher's general-purpose
// redis.Locker — which can lock arbitrary named resources — this type is
// scoped to the one resource the coordinator needs to serialize: the
// Monitor tick.
type Locker struct {
	client   *Client
	key      string
	owner    string
	logger   *slog.Logger
	retryDel time.Duration
}

var _ lock.DistributedLock = (*Locker)(nil)

// LockerOption configures a Locker.
type LockerOption func(*Locker)

// WithKeyPrefix overrides the default lock key.
func WithKeyPrefix(prefix string) LockerOption {
	return func(l *Locker) { l.key = prefix }
}

// WithRetryDelay overrides the delay between acquisition attempts while
// blocking in Lock.
func WithRetryDelay(d time.Duration) LockerOption {
	return func(l *Locker) { l.retryDel = d }
}

// WithLockerLogger overrides the logger.
func WithLockerLogger(logger *slog.Logger) LockerOption {
	return func(l *Locker) { l.logger = logger }
}

// NewLocker creates a Locker bound to one coordinator instance (one
// Locker per TxManager instance; each call generates a fresh random
// owner token used to guard Unlock against releasing a lock some
// other instance now holds after this instance's TTL expired).
func NewLocker(client *Client, opts ...LockerOption) *Locker {
	l := &Locker{
		client:   client,
		key:      defaultKeyPrefix,
		owner:    generateOwner(),
		logger:   slog.Default(),
		retryDel: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func generateOwner() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(b)
}

// Lock implements lock.DistributedLock. It blocks, retrying every
// retryDel, until expire elapses or the lock is acquired.
func (l *Locker) Lock(ctx context.Context, expire time.Duration) error {
	deadline := time.Now().Add(expire)

	for {
		ok, err := l.client.rdb.SetNX(ctx, l.key, l.owner, expire).Result()
		if err != nil {
			return Wrap(CodeConnection, "lock acquire failed", err)
		}
		if ok {
			l.logger.Debug("monitor lock acquired", "key", l.key, "ttl", expire)
			return nil
		}

		if time.Now().After(deadline) {
			return tcc.LockAcquisitionError("monitor lock not acquired in time",
				LockFailed("lock is already held by another coordinator instance"))
		}

		select {
		case <-ctx.Done():
			return Wrap(CodeTimeout, "lock acquisition cancelled", ctx.Err())
		case <-time.After(l.retryDel):
		}
	}
}

// Unlock implements lock.DistributedLock. It is a no-op (not an error) if
// this instance does not currently hold the lock — Monitor's finalizer
// calls Unlock unconditionally on every exit path.
func (l *Locker) Unlock(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, l.client.rdb, []string{l.key}, l.owner).Int64()
	if err != nil {
		l.logger.Warn("lock release error", "key", l.key, "error", err)
		return Wrap(CodeConnection, "lock release failed", err)
	}
	if result == 0 {
		l.logger.Debug("lock release no-op", "key", l.key, "reason", "not held by this owner")
		return nil
	}
	l.logger.Debug("monitor lock released", "key", l.key)
	return nil
}
