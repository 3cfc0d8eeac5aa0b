package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"google.golang.org/genai"

	"workspace-assistant/internal/domain"
	"workspace-assistant/internal/domain/ports/adapter"
)

const ProviderGemini = "gemini"

var _ adapter.LLMProvider = (*GeminiProvider)(nil)

type GeminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, apiKey, baseURL string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: gemini api key is empty", domain.ErrProviderNotConfigured)
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiProvider{client: c}, nil
}

func (g *GeminiProvider) Name() string { return ProviderGemini }

func (g *GeminiProvider) StreamChat(ctx context.Context, messages []adapter.ChatMessage, model string, temperature float64) (adapter.ChatStream, error) {
	system, contents := toGenAIContents(messages)
	if len(contents) == 0 {
		return nil, &adapter.ProviderError{
			Provider: ProviderGemini,
			Kind:     adapter.ProviderErrBadRequest,
			Message:  "no user or assistant content to send",
		}
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](float32(temperature)),
		SystemInstruction: system,
	}
	seq := g.client.Models.GenerateContentStream(ctx, model, contents, cfg)
	return newGeminiStream(seq), nil
}

// toGenAIContents lifts system entries into a single instruction and maps the
// rest onto user/model turns.
func toGenAIContents(messages []adapter.ChatMessage) (*genai.Content, []*genai.Content) {
	var system []*genai.Part
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case adapter.RoleSystem:
			system = append(system, &genai.Part{Text: m.Content})
		case adapter.RoleAssistant:
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	if len(system) == 0 {
		return nil, contents
	}
	return &genai.Content{Parts: system}, contents
}

type geminiStream struct {
	next  func() (*genai.GenerateContentResponse, error, bool)
	stop  func()
	usage map[string]any
	done  bool
}

func newGeminiStream(seq iter.Seq2[*genai.GenerateContentResponse, error]) *geminiStream {
	next, stop := iter.Pull2(seq)
	return &geminiStream{next: next, stop: stop}
}

func (s *geminiStream) Recv() (adapter.StreamEvent, error) {
	for !s.done {
		resp, err, ok := s.next()
		if !ok {
			s.done = true
			break
		}
		if err != nil {
			s.done = true
			s.stop()
			return adapter.StreamEvent{}, convertGeminiError(err)
		}
		if resp == nil {
			continue
		}
		if u := resp.UsageMetadata; u != nil && u.TotalTokenCount > 0 {
			s.usage = map[string]any{
				"prompt_tokens":     u.PromptTokenCount,
				"completion_tokens": u.CandidatesTokenCount,
				"total_tokens":      u.TotalTokenCount,
			}
		}
		if text := resp.Text(); text != "" {
			return adapter.StreamEvent{Delta: text}, nil
		}
	}
	if s.usage != nil {
		ev := adapter.StreamEvent{Usage: s.usage}
		s.usage = nil
		return ev, nil
	}
	return adapter.StreamEvent{}, io.EOF
}

func (s *geminiStream) Close() error {
	s.done = true
	s.stop()
	return nil
}

func convertGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return geminiProviderError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return geminiProviderError(*apiErrPtr, err)
	}
	return wrapTransportError(ProviderGemini, err)
}

func geminiProviderError(apiErr genai.APIError, cause error) *adapter.ProviderError {
	return &adapter.ProviderError{
		Provider:   ProviderGemini,
		Kind:       adapter.ClassifyProviderError(apiErr.Code, apiErr.Message),
		StatusCode: apiErr.Code,
		Type:       apiErr.Status,
		Message:    apiErr.Message,
		Cause:      cause,
	}
}
