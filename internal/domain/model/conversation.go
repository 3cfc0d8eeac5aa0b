package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationArchived ConversationStatus = "archived"
)

// PreviewLimit is the maximum rune length of Conversation.LastMessagePreview.
const PreviewLimit = 120

// Conversation is owned by the project CRUD surface; this service only reads
// it and refreshes its counters and preview.
type Conversation struct {
	ID                 string
	ProjectID          string
	Status             ConversationStatus
	MessageCount       int
	LastMessageAt      *time.Time
	LastMessagePreview *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (c *Conversation) IsActive() bool {
	return c != nil && c.Status == ConversationActive
}

// TrimPreview collapses whitespace and cuts s to limit runes, ending cut
// previews with "...". Blank input yields nil.
func TrimPreview(s string, limit int) *string {
	normalized := strings.Join(strings.Fields(s), " ")
	if normalized == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(normalized) <= limit {
		return &normalized
	}
	runes := []rune(normalized)
	cut := strings.TrimRightFunc(string(runes[:limit-1]), func(r rune) bool { return r == ' ' })
	out := cut + "..."
	return &out
}
