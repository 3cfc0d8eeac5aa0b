package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/ssestream"

	"workspace-assistant/internal/domain"
	"workspace-assistant/internal/domain/ports/adapter"
)

const ProviderOpenAI = "openai"

var _ adapter.LLMProvider = (*OpenAIProvider)(nil)

// OpenAIProvider streams Chat Completions through the official SDK.
type OpenAIProvider struct {
	client openai.Client
}

func NewOpenAIProvider(apiKey, baseURL string) (*OpenAIProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: openai api key is empty", domain.ErrProviderNotConfigured)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// the job is never retried here; the first failure is reported
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{client: openai.NewClient(opts...)}, nil
}

func (o *OpenAIProvider) Name() string { return ProviderOpenAI }

func (o *OpenAIProvider) StreamChat(ctx context.Context, messages []adapter.ChatMessage, model string, temperature float64) (adapter.ChatStream, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    toOpenAIMessages(messages),
		Temperature: openai.Float(temperature),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	stream := o.client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, convertOpenAIError(err)
	}
	return &openAIStream{stream: stream}, nil
}

func toOpenAIMessages(messages []adapter.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case adapter.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case adapter.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

type openAIStream struct {
	stream    *ssestream.Stream[openai.ChatCompletionChunk]
	pending   []adapter.StreamEvent
	usageSent bool
	closed    bool
}

func (s *openAIStream) Recv() (adapter.StreamEvent, error) {
	for len(s.pending) == 0 {
		if !s.stream.Next() {
			if err := s.stream.Err(); err != nil {
				return adapter.StreamEvent{}, convertOpenAIError(err)
			}
			return adapter.StreamEvent{}, io.EOF
		}
		chunk := s.stream.Current()
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				s.pending = append(s.pending, adapter.StreamEvent{Delta: choice.Delta.Content})
			}
		}
		if !s.usageSent && chunk.Usage.TotalTokens > 0 {
			s.usageSent = true
			s.pending = append(s.pending, adapter.StreamEvent{Usage: map[string]any{
				"prompt_tokens":     chunk.Usage.PromptTokens,
				"completion_tokens": chunk.Usage.CompletionTokens,
				"total_tokens":      chunk.Usage.TotalTokens,
			}})
		}
	}
	ev := s.pending[0]
	s.pending = s.pending[1:]
	return ev, nil
}

func (s *openAIStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.stream.Close()
}

func convertOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = err.Error()
		}
		return &adapter.ProviderError{
			Provider:   ProviderOpenAI,
			Kind:       adapter.ClassifyProviderError(apiErr.StatusCode, msg),
			StatusCode: apiErr.StatusCode,
			Type:       apiErr.Type,
			Message:    msg,
			RawBody:    apiErr.RawJSON(),
			Cause:      err,
		}
	}
	return wrapTransportError(ProviderOpenAI, err)
}

// wrapTransportError tags failures that never produced a vendor response.
func wrapTransportError(provider string, err error) error {
	kind := adapter.ClassifyProviderError(0, err.Error())
	if errors.Is(err, context.DeadlineExceeded) {
		kind = adapter.ProviderErrTimeout
	}
	return &adapter.ProviderError{
		Provider: provider,
		Kind:     kind,
		Type:     fmt.Sprintf("%T", err),
		Message:  err.Error(),
		Cause:    err,
	}
}
