package redis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"workspace-assistant/internal/domain/ports/adapter"
)

type lockBackend interface {
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) error
}

var _ adapter.JobLocker = (*Locker)(nil)

// Locker is a single-attempt SET NX lock released only by its holder.
type Locker struct {
	backend lockBackend
	prefix  string
}

func NewLocker(backend lockBackend) *Locker {
	return &Locker{backend: backend, prefix: "assistant:lock:"}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.backend.SetNX(ctx, l.prefix+key, token, ttl)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	return l.backend.DelIfValue(ctx, l.prefix+key, token)
}
