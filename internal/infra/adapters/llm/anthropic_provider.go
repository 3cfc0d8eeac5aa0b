package llm

import (
	"context"
	"fmt"
	"strings"

	"workspace-assistant/internal/domain"
	"workspace-assistant/internal/domain/ports/adapter"
)

const ProviderAnthropic = "anthropic"

var _ adapter.LLMProvider = (*AnthropicProvider)(nil)

// AnthropicProvider is registered so configuration can name it, but this
// deployment has no streaming client for it.
type AnthropicProvider struct{}

func NewAnthropicProvider(apiKey string) (*AnthropicProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: anthropic api key is empty", domain.ErrProviderNotConfigured)
	}
	return &AnthropicProvider{}, nil
}

func (a *AnthropicProvider) Name() string { return ProviderAnthropic }

func (a *AnthropicProvider) StreamChat(context.Context, []adapter.ChatMessage, string, float64) (adapter.ChatStream, error) {
	return nil, &adapter.ProviderError{
		Provider: ProviderAnthropic,
		Kind:     adapter.ProviderErrUnknown,
		Type:     "unsupported_provider",
		Message:  "streaming is not implemented for provider anthropic",
		Cause:    domain.ErrUnsupportedProvider,
	}
}
