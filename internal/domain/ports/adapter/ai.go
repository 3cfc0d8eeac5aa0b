package adapter

import (
	"context"
	"fmt"
	"strings"
)

// Role values accepted in ChatMessage.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a chat message.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// StreamEvent is one unit of streamed output: a non-empty Delta or a Usage
// snapshot.
type StreamEvent struct {
	Delta string
	Usage map[string]any
}

// ChatStream is a single-pass sequence of StreamEvent values.
//
// Recv returns io.EOF once the provider closed the stream cleanly; any other
// error means the stream ended with a failure. Close releases the underlying
// connection and is safe to call more than once.
type ChatStream interface {
	Recv() (StreamEvent, error)
	Close() error
}

// LLMProvider is the port every vendor backend implements.
type LLMProvider interface {
	Name() string
	StreamChat(ctx context.Context, messages []ChatMessage, model string, temperature float64) (ChatStream, error)
}

type ProviderErrorKind string

const (
	ProviderErrRateLimit     ProviderErrorKind = "rate_limit"
	ProviderErrContextLength ProviderErrorKind = "context_length"
	ProviderErrBadRequest    ProviderErrorKind = "bad_request"
	ProviderErrAuth          ProviderErrorKind = "auth"
	ProviderErrServer        ProviderErrorKind = "server"
	ProviderErrTimeout       ProviderErrorKind = "timeout"
	ProviderErrUnknown       ProviderErrorKind = "unknown"
)

// ProviderError is the tagged failure adapters return for anything that
// went wrong on the vendor side.
type ProviderError struct {
	Provider   string
	Kind       ProviderErrorKind
	StatusCode int
	// Type is the vendor's error class or type name.
	Type    string
	Message string
	RawBody string
	Cause   error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString("llm")
	if e.Provider != "" {
		b.WriteString(" ")
		b.WriteString(e.Provider)
	}
	b.WriteString(": ")
	if e.StatusCode != 0 {
		b.WriteString(fmt.Sprintf("http %d: ", e.StatusCode))
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	b.WriteString(msg)
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// ClassifyProviderError maps a status code and message text to a kind.
func ClassifyProviderError(statusCode int, message string) ProviderErrorKind {
	lower := strings.ToLower(message)
	switch {
	case statusCode == 429:
		return ProviderErrRateLimit
	case strings.Contains(lower, "maximum context length"),
		strings.Contains(lower, "context length"),
		strings.Contains(lower, "too many tokens"):
		return ProviderErrContextLength
	case statusCode == 400:
		return ProviderErrBadRequest
	case statusCode == 401 || statusCode == 403:
		return ProviderErrAuth
	case statusCode == 408 || statusCode == 504:
		return ProviderErrTimeout
	case statusCode >= 500:
		return ProviderErrServer
	default:
		return ProviderErrUnknown
	}
}

// ProviderFactory returns a provider instance by name; a blank name selects
// the configured default.
type ProviderFactory interface {
	Create(ctx context.Context, name string) (LLMProvider, error)
}
