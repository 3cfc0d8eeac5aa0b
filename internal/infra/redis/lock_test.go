package redis

import (
	"context"
	"testing"
	"time"
)

type memLockBackend struct {
	keys map[string]string
}

func (m *memLockBackend) SetNX(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = value
	return true, nil
}

func (m *memLockBackend) DelIfValue(_ context.Context, key, value string) error {
	if m.keys[key] == value {
		delete(m.keys, key)
	}
	return nil
}

func TestLocker_SingleHolder(t *testing.T) {
	ctx := context.Background()
	backend := &memLockBackend{keys: map[string]string{}}
	l := NewLocker(backend)

	token, ok, err := l.TryLock(ctx, "c1:u1", time.Minute)
	if err != nil || !ok || token == "" {
		t.Fatalf("expected first lock to succeed, got %q %v %v", token, ok, err)
	}
	if _, ok, _ := l.TryLock(ctx, "c1:u1", time.Minute); ok {
		t.Fatal("expected second lock to fail while held")
	}

	// A stale token must not release the current holder.
	_ = l.Unlock(ctx, "c1:u1", "someone-else")
	if _, ok, _ := l.TryLock(ctx, "c1:u1", time.Minute); ok {
		t.Fatal("lock released by a foreign token")
	}

	if err := l.Unlock(ctx, "c1:u1", token); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, ok, _ := l.TryLock(ctx, "c1:u1", time.Minute); !ok {
		t.Fatal("expected lock to be free after unlock")
	}
}
