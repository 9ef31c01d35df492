package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLockStore(t *testing.T) (*LockStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLockStore(client), mr
}

func TestSessionLockIsExclusive(t *testing.T) {
	store, _ := newTestLockStore(t)
	ctx := context.Background()

	token, ok, err := store.AcquireSessionLock(ctx, "s1", time.Minute)
	if err != nil || !ok || token == "" {
		t.Fatalf("first acquire = %q, %v, %v", token, ok, err)
	}
	if _, ok, err := store.AcquireSessionLock(ctx, "s1", time.Minute); err != nil || ok {
		t.Fatalf("second acquire = %v, %v; want busy", ok, err)
	}
	if err := store.ReleaseSessionLock(ctx, "s1", token); err != nil {
		t.Fatalf("release returned error: %v", err)
	}
	if _, ok, _ := store.AcquireSessionLock(ctx, "s1", time.Minute); !ok {
		t.Fatalf("lock not free after release")
	}
}

func TestExpiredHolderCannotReleaseNewLock(t *testing.T) {
	store, mr := newTestLockStore(t)
	ctx := context.Background()

	stale, ok, err := store.AcquireSessionLock(ctx, "s1", time.Second)
	if err != nil || !ok {
		t.Fatalf("acquire = %v, %v", ok, err)
	}
	mr.FastForward(2 * time.Second)

	current, ok, err := store.AcquireSessionLock(ctx, "s1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire after expiry = %v, %v", ok, err)
	}
	if err := store.ReleaseSessionLock(ctx, "s1", stale); err != nil {
		t.Fatalf("stale release returned error: %v", err)
	}
	got, err := mr.Get(lockKey("s1"))
	if err != nil || got != current {
		t.Fatalf("lock value = %q, %v; want current holder %q", got, err, current)
	}
}
