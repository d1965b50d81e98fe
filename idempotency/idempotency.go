// Package idempotency provides a dedup-key guard backed by Redis,
// adapted from the Txova platform's redis.Cache (see
// _examples/Dorico-Dynamics-txova-go-db/redis/cache.go): the same
// key-prefixing and TTL-bearing SETNX idiom, narrowed from a
// general-purpose cache down to the one operation a TCC coordinator
// needs — "has this caller already submitted this request" — as
// recommended for StartTransaction callers that may retry a submission
// after a network timeout without knowing whether it landed.
package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a dedup key is remembered. It should exceed
// the longest plausible client retry window for StartTransaction.
const DefaultTTL = 10 * time.Minute

// Guard deduplicates caller-supplied idempotency keys against a Redis
// SETNX, so a retried StartTransaction call with the same key is
// recognized as a replay rather than creating a second transaction.
type Guard struct {
	rdb       redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	logger    *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithKeyPrefix sets a prefix for all dedup keys.
func WithKeyPrefix(prefix string) Option {
	return func(g *Guard) { g.keyPrefix = prefix }
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(g *Guard) { g.ttl = ttl }
}

// WithLogger overrides the guard's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// NewGuard creates a Guard over an existing go-redis client.
func NewGuard(rdb redis.UniversalClient, opts ...Option) *Guard {
	g := &Guard{
		rdb:       rdb,
		keyPrefix: "tcc-idempotency",
		ttl:       DefaultTTL,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) prefixKey(key string) string {
	return g.keyPrefix + ":" + key
}

// Claim records that idempotencyKey is now in flight, binding it to
// txID. It returns (true, "", nil) the first time a key is seen, or
// (false, existingTxID, nil) if the key was already claimed — the caller
// should return the existing transaction's result rather than starting a
// new one.
func (g *Guard) Claim(ctx context.Context, idempotencyKey, txID string) (claimed bool, existingTxID string, err error) {
	key := g.prefixKey(idempotencyKey)

	ok, err := g.rdb.SetNX(ctx, key, txID, g.ttl).Result()
	if err != nil {
		return false, "", err
	}
	if ok {
		g.logger.Debug("idempotency key claimed", "key", key, "tx_id", txID)
		return true, "", nil
	}

	existing, err := g.rdb.Get(ctx, key).Result()
	if err != nil {
		return false, "", err
	}
	g.logger.Debug("idempotency key replay", "key", key, "existing_tx_id", existing)
	return false, existing, nil
}

// Forget removes a dedup key, e.g. after a transaction that used it fails
// validation before any participant was registered and the caller should
// be allowed to retry with a fresh attempt under the same key.
func (g *Guard) Forget(ctx context.Context, idempotencyKey string) error {
	return g.rdb.Del(ctx, g.prefixKey(idempotencyKey)).Err()
}
