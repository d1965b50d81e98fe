package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestLocker(t *testing.T, opts ...LockerOption) *Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	client := NewClientFromUniversal(rdb, nil)
	return NewLocker(client, opts...)
}

func TestLocker_Lock_AcquiresWhenFree(t *testing.T) {
	l := newTestLocker(t)
	if err := l.Lock(context.Background(), time.Second); err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
}

func TestLocker_Lock_BlocksWhileHeldByAnotherOwner(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	client := NewClientFromUniversal(rdb, nil)

	first := NewLocker(client, WithRetryDelay(5*time.Millisecond))
	second := NewLocker(client, WithRetryDelay(5*time.Millisecond))

	if err := first.Lock(context.Background(), time.Second); err != nil {
		t.Fatalf("first Lock() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := second.Lock(ctx, 40*time.Millisecond); err == nil {
		t.Fatal("second Lock() should fail while the first instance still holds it")
	}
}

func TestLocker_Unlock_NoOpIfNotHeldByThisOwner(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	client := NewClientFromUniversal(rdb, nil)

	first := NewLocker(client)
	second := NewLocker(client)

	if err := first.Lock(context.Background(), time.Second); err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	// second never held the lock; Unlock should be a harmless no-op, not
	// an error, and must not release first's lock.
	if err := second.Unlock(context.Background()); err != nil {
		t.Fatalf("Unlock() error: %v", err)
	}
	if err := second.Lock(context.Background(), 10*time.Millisecond); err == nil {
		t.Fatal("lock should still be held by first after second's no-op Unlock")
	}
}

func TestLocker_Lock_Unlock_RoundTrip(t *testing.T) {
	l := newTestLocker(t)
	if err := l.Lock(context.Background(), time.Second); err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	if err := l.Unlock(context.Background()); err != nil {
		t.Fatalf("Unlock() error: %v", err)
	}
	if err := l.Lock(context.Background(), time.Second); err != nil {
		t.Fatalf("Lock() after Unlock() error: %v", err)
	}
}
