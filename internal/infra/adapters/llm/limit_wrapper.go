package llm

import (
	"context"
	"sync"

	"workspace-assistant/internal/domain/ports/adapter"
)

var _ adapter.LLMProvider = (*limitedProvider)(nil)

// limitedProvider bounds concurrent streams across every provider sharing sem.
// A slot is held from StreamChat until the returned stream is closed.
type limitedProvider struct {
	inner adapter.LLMProvider
	sem   chan struct{}
}

func NewLimitedProvider(inner adapter.LLMProvider, sem chan struct{}) adapter.LLMProvider {
	if sem == nil {
		return inner
	}
	return &limitedProvider{inner: inner, sem: sem}
}

func (l *limitedProvider) Name() string { return l.inner.Name() }

func (l *limitedProvider) StreamChat(ctx context.Context, messages []adapter.ChatMessage, model string, temperature float64) (adapter.ChatStream, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	stream, err := l.inner.StreamChat(ctx, messages, model, temperature)
	if err != nil {
		<-l.sem
		return nil, err
	}
	return &limitedStream{ChatStream: stream, release: func() { <-l.sem }}, nil
}

type limitedStream struct {
	adapter.ChatStream
	once    sync.Once
	release func()
}

func (s *limitedStream) Close() error {
	err := s.ChatStream.Close()
	s.once.Do(s.release)
	return err
}
