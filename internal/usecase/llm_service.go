package usecase

import (
	"context"
	"fmt"
	"sync"

	"workspace-assistant/internal/config"
	"workspace-assistant/internal/domain/ports/adapter"
)

// LLMRequest is everything needed to open one provider stream.
type LLMRequest struct {
	Provider    string
	Model       string
	Temperature float64
	Context     *ContextBuildResult
}

// Compile-time check
var _ LLMService = (*llmService)(nil)

type LLMService interface {
	// BuildRequest is read-only; it never calls a provider.
	BuildRequest(ctx context.Context, conversationID string) (*LLMRequest, error)
	// StreamChat opens a stream for req. Callers must Close the stream.
	StreamChat(ctx context.Context, req *LLMRequest) (adapter.ChatStream, error)
}

type llmService struct {
	builder   ContextBuilder
	providers adapter.ProviderFactory
	cfg       config.LLMConfig
}

func NewLLMService(builder ContextBuilder, providers adapter.ProviderFactory, cfg config.LLMConfig) *llmService {
	return &llmService{builder: builder, providers: providers, cfg: cfg}
}

func (s *llmService) BuildRequest(ctx context.Context, conversationID string) (*LLMRequest, error) {
	built, err := s.builder.BuildContext(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	model := s.cfg.DefaultModel
	if o := built.Project.ModelOverride(); o != "" {
		model = o
	}
	return &LLMRequest{
		Provider:    s.cfg.DefaultProvider,
		Model:       model,
		Temperature: s.cfg.Temperature,
		Context:     built,
	}, nil
}

func (s *llmService) StreamChat(ctx context.Context, req *LLMRequest) (adapter.ChatStream, error) {
	provider, err := s.providers.Create(ctx, req.Provider)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	if s.cfg.StreamTimeout <= 0 {
		return provider.StreamChat(ctx, req.Context.Messages, req.Model, req.Temperature)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StreamTimeout)
	stream, err := provider.StreamChat(ctx, req.Context.Messages, req.Model, req.Temperature)
	if err != nil {
		cancel()
		return nil, err
	}
	return &deadlineStream{ChatStream: stream, cancel: cancel}, nil
}

// deadlineStream releases the stream timeout when the stream is closed.
type deadlineStream struct {
	adapter.ChatStream
	once   sync.Once
	cancel context.CancelFunc
}

func (d *deadlineStream) Close() error {
	err := d.ChatStream.Close()
	d.once.Do(d.cancel)
	return err
}
