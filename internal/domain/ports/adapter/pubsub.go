package adapter

import (
	"context"
	"time"
)

// Publisher sends a JSON-encodable value to a broker topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, v any) error
}

// Subscriber delivers raw payloads from a broker topic until ctx is done.
// Subscribe returns once the subscription is confirmed; the returned channel
// is closed when the subscription ends.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
}

// JobLocker guards a job key across workers. ok is false when another holder
// owns the key; only the returned token can release it.
type JobLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}
