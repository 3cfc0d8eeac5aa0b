package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"workspace-assistant/internal/config"
	"workspace-assistant/internal/domain"
	"workspace-assistant/internal/domain/ports/adapter"
)

// Constructor builds a fresh provider instance.
type Constructor func(ctx context.Context) (adapter.LLMProvider, error)

var _ adapter.ProviderFactory = (*Factory)(nil)

// Factory resolves provider names to new provider instances.
type Factory struct {
	defaultProvider string
	sem             chan struct{}

	mu       sync.RWMutex
	registry map[string]Constructor
}

// NewFactory registers the built-in providers with credentials from cfg.
// Missing credentials surface when the provider is created, not here.
func NewFactory(cfg config.LLMConfig) *Factory {
	f := NewEmptyFactory(cfg.DefaultProvider, cfg.ConcurrentLimit)
	f.Register(ProviderOpenAI, func(context.Context) (adapter.LLMProvider, error) {
		return NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	})
	f.Register(ProviderGemini, func(ctx context.Context) (adapter.LLMProvider, error) {
		return NewGeminiProvider(ctx, cfg.Gemini.APIKey, cfg.Gemini.BaseURL)
	})
	f.Register(ProviderAnthropic, func(context.Context) (adapter.LLMProvider, error) {
		return NewAnthropicProvider(cfg.Anthropic.APIKey)
	})
	return f
}

// NewEmptyFactory returns a factory with no providers. concurrentLimit <= 0
// leaves streams unbounded.
func NewEmptyFactory(defaultProvider string, concurrentLimit int) *Factory {
	f := &Factory{
		defaultProvider: normalizeName(defaultProvider),
		registry:        map[string]Constructor{},
	}
	if concurrentLimit > 0 {
		f.sem = make(chan struct{}, concurrentLimit)
	}
	return f
}

func (f *Factory) Register(name string, c Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registry[normalizeName(name)] = c
}

// Create returns a new provider for name. Blank names use the default.
func (f *Factory) Create(ctx context.Context, name string) (adapter.LLMProvider, error) {
	key := normalizeName(name)
	if key == "" {
		key = f.defaultProvider
	}
	f.mu.RLock()
	c, ok := f.registry[key]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", domain.ErrUnsupportedProvider, name)
	}
	p, err := c(ctx)
	if err != nil {
		return nil, err
	}
	return NewLimitedProvider(p, f.sem), nil
}

// Names lists the registered providers in sorted order.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.registry))
	for k := range f.registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
