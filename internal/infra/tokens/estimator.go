package tokens

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"

	"workspace-assistant/internal/domain/ports/adapter"
)

// Per-message framing overhead for chat-formatted prompts.
const (
	tokensPerMessage = 4
	tokensPerReply   = 3
)

type encoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
}

// Estimator approximates prompt size for logging and metrics. The encoding is
// loaded on first use; when it cannot be loaded a character heuristic is used.
type Estimator struct {
	encoding string
	logger   *zerolog.Logger

	once sync.Once
	enc  encoder
}

func NewEstimator(encoding string, logger *zerolog.Logger) *Estimator {
	return &Estimator{encoding: encoding, logger: logger}
}

func (e *Estimator) load() {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding(e.encoding)
		if err != nil {
			if e.logger != nil {
				e.logger.Warn().Err(err).Str("encoding", e.encoding).Msg("tiktoken encoding unavailable, using heuristic")
			}
			return
		}
		e.enc = enc
	})
}

// Count returns the estimated prompt tokens for messages.
func (e *Estimator) Count(messages []adapter.ChatMessage) int {
	e.load()
	total := tokensPerReply
	for _, m := range messages {
		total += tokensPerMessage + e.countText(m.Role) + e.countText(m.Content)
	}
	return total
}

func (e *Estimator) countText(s string) int {
	if s == "" {
		return 0
	}
	if e.enc != nil {
		return len(e.enc.Encode(s, nil, nil))
	}
	return heuristic(s)
}

// heuristic assumes roughly four runes per token.
func heuristic(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + 3) / 4
}
