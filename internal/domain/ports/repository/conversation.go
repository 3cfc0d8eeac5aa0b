package repository

import (
	"context"
	"time"

	"workspace-assistant/internal/domain/model"
)

type ConversationRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Conversation, error)
	// FindActiveByID returns ErrNotFound unless the conversation exists and is active.
	FindActiveByID(ctx context.Context, tx Tx, id string) (*model.Conversation, error)
	// IncrementOnAssistantCreated bumps message_count and refreshes
	// last_message_at/updated_at. Returns ErrNotFound when the row is gone.
	IncrementOnAssistantCreated(ctx context.Context, tx Tx, id string, at time.Time) error
	// TouchOnAssistantFinalized refreshes the preview and timestamps. A
	// missing conversation is not an error.
	TouchOnAssistantFinalized(ctx context.Context, tx Tx, id string, preview *string, at time.Time) error
}
