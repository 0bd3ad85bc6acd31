package lock

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type memoryStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) DeleteIfValue(_ context.Context, key, value string) (bool, error) {
	if v, ok := m.data[key]; ok && v == value {
		delete(m.data, key)
		return true, nil
	}
	return false, nil
}

func TestRedisLockExclusive(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	first, err := NewRedisLock(store, "palletflow:lock:pipeline", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, "palletflow:lock:pipeline", time.Minute)

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire ok=%v err=%v", ok, err)
	}
	if store.ttls["palletflow:lock:pipeline"] != defaultTTL {
		t.Fatalf("expected default ttl, got %v", store.ttls["palletflow:lock:pipeline"])
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatal("second acquire should fail while held")
	}

	// releasing a lock we never owned leaves the holder in place
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok := store.data["palletflow:lock:pipeline"]; !ok {
		t.Fatal("non-owner release removed the lock")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatal("acquire after release should succeed")
	}
}

func TestRedisLockReleaseAfterExpiry(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	l, _ := NewRedisLock(store, "k", time.Second)
	if ok, _ := l.Acquire(ctx); !ok {
		t.Fatal("expected acquire")
	}
	store.data["k"] = "someone-else"
	if err := l.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.data["k"] != "someone-else" {
		t.Fatal("release must not delete another owner's lock")
	}
}

func TestNewRedisLockValidation(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", time.Second); err == nil {
		t.Fatal("expected nil client error")
	}
	if _, err := NewRedisLock(newMemoryStore(), "", time.Second); err == nil {
		t.Fatal("expected empty key error")
	}
}

func TestLocalLock(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()
	if ok, _ := l.Acquire(ctx); !ok {
		t.Fatal("expected first acquire")
	}
	if ok, _ := l.Acquire(ctx); ok {
		t.Fatal("expected second acquire to fail")
	}
	_ = l.Release(ctx)
	_ = l.Release(ctx)
	if ok, _ := l.Acquire(ctx); !ok {
		t.Fatal("expected acquire after release")
	}
}
