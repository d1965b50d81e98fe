package idempotency

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestGuard(t *testing.T) (*Guard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return NewGuard(rdb), mr
}

func TestGuard_Claim_FirstTime(t *testing.T) {
	guard, _ := newTestGuard(t)

	claimed, existing, err := guard.Claim(context.Background(), "order-123", "tx-1")
	if err != nil {
		t.Fatalf("Claim returned error: %v", err)
	}
	if !claimed {
		t.Error("expected claimed = true on first use of a key")
	}
	if existing != "" {
		t.Errorf("expected empty existingTxID on first claim, got %q", existing)
	}
}

func TestGuard_Claim_Replay(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	if _, _, err := guard.Claim(ctx, "order-123", "tx-1"); err != nil {
		t.Fatalf("first Claim returned error: %v", err)
	}

	claimed, existing, err := guard.Claim(ctx, "order-123", "tx-2")
	if err != nil {
		t.Fatalf("second Claim returned error: %v", err)
	}
	if claimed {
		t.Error("expected claimed = false on replay of an existing key")
	}
	if existing != "tx-1" {
		t.Errorf("expected existingTxID %q, got %q", "tx-1", existing)
	}
}

func TestGuard_Forget(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	if _, _, err := guard.Claim(ctx, "order-123", "tx-1"); err != nil {
		t.Fatalf("Claim returned error: %v", err)
	}
	if err := guard.Forget(ctx, "order-123"); err != nil {
		t.Fatalf("Forget returned error: %v", err)
	}

	claimed, _, err := guard.Claim(ctx, "order-123", "tx-2")
	if err != nil {
		t.Fatalf("Claim after Forget returned error: %v", err)
	}
	if !claimed {
		t.Error("expected claimed = true after Forget freed the key")
	}
}
