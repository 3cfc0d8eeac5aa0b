package model

import (
	"fmt"
	"time"

	"workspace-assistant/internal/domain"
)

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type MessageStatus string

const (
	MessageStreaming MessageStatus = "STREAMING"
	MessageCompleted MessageStatus = "COMPLETED"
	MessageError     MessageStatus = "ERROR"
)

func (s MessageStatus) IsTerminal() bool {
	return s == MessageCompleted || s == MessageError
}

// Usage is the provider's token accounting snapshot, kept as an opaque JSON
// object so every vendor's shape survives the round trip.
type Usage map[string]any

// ConversationMessage is one persisted turn of a project conversation.
//
// An assistant message is created in STREAMING state before the model is
// called and is finalized exactly once, to COMPLETED or ERROR.
type ConversationMessage struct {
	ID              string
	ConversationID  string
	ProjectID       string
	Role            MessageRole
	Status          MessageStatus
	ContentText     string
	ParentMessageID *string
	Provider        *string
	Model           *string
	Usage           Usage
	ProviderError   map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewStreamingAssistantMessage builds the placeholder row for a reply to
// parentMessageID.
func NewStreamingAssistantMessage(id, conversationID, projectID, parentMessageID, provider, llmModel string, now time.Time) *ConversationMessage {
	return &ConversationMessage{
		ID:              id,
		ConversationID:  conversationID,
		ProjectID:       projectID,
		Role:            RoleAssistant,
		Status:          MessageStreaming,
		ParentMessageID: &parentMessageID,
		Provider:        &provider,
		Model:           &llmModel,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Complete moves a streaming message to COMPLETED with its final text.
func (m *ConversationMessage) Complete(text string, usage Usage, now time.Time) error {
	if m.Status != MessageStreaming {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, m.Status, MessageCompleted)
	}
	m.ContentText = text
	m.Status = MessageCompleted
	m.Usage = usage
	m.UpdatedAt = now
	return nil
}

// Fail moves a streaming message to ERROR. text is the user-facing message,
// diagnostic is kept for operators only.
func (m *ConversationMessage) Fail(text string, diagnostic map[string]any, now time.Time) error {
	if m.Status != MessageStreaming {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, m.Status, MessageError)
	}
	m.ContentText = text
	m.Status = MessageError
	m.ProviderError = diagnostic
	m.UpdatedAt = now
	return nil
}

func (m *ConversationMessage) ParentID() string {
	if m.ParentMessageID == nil {
		return ""
	}
	return *m.ParentMessageID
}

func (m *ConversationMessage) ProviderName() string {
	if m.Provider == nil {
		return ""
	}
	return *m.Provider
}

func (m *ConversationMessage) ModelName() string {
	if m.Model == nil {
		return ""
	}
	return *m.Model
}
