package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"workspace-assistant/internal/domain/ports/adapter"
)

type pubsubBackend interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

var (
	_ adapter.Publisher  = (*PubSub)(nil)
	_ adapter.Subscriber = (*PubSub)(nil)
)

// PubSub carries JSON messages over redis channels. Delivery is at most once
// per live subscriber.
type PubSub struct {
	backend pubsubBackend
	logger  *zerolog.Logger
	buffer  int
}

func NewPubSub(backend pubsubBackend, logger *zerolog.Logger) *PubSub {
	l := logger.With().Str("component", "redis_pubsub").Logger()
	return &PubSub{backend: backend, logger: &l, buffer: 64}
}

// Publish sends v as JSON. Raw byte slices are sent unchanged.
func (p *PubSub) Publish(ctx context.Context, topic string, v any) error {
	var payload []byte
	switch t := v.(type) {
	case []byte:
		payload = t
	case json.RawMessage:
		payload = t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s message: %w", topic, err)
		}
		payload = b
	}
	if err := p.backend.Publish(ctx, topic, payload); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe forwards raw payloads from topic until ctx is done. The returned
// channel is closed when the subscription ends.
func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	sub, err := p.backend.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	out := make(chan []byte, p.buffer)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok {
					p.logger.Warn().Str("topic", topic).Msg("subscription channel closed")
					return
				}
				if m == nil {
					continue
				}
				select {
				case out <- []byte(m.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	p.logger.Info().Str("topic", topic).Msg("subscribed")
	return out, nil
}
