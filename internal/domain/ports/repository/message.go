package repository

import (
	"context"

	"workspace-assistant/internal/domain/model"
)

type ConversationMessageRepository interface {
	// FindAssistantByParent returns the assistant reply to parentMessageID, or ErrNotFound.
	FindAssistantByParent(ctx context.Context, tx Tx, conversationID, parentMessageID string) (*model.ConversationMessage, error)
	// Create inserts msg. A second assistant reply to the same parent yields ErrAlreadyExists.
	Create(ctx context.Context, tx Tx, msg *model.ConversationMessage) error
	// ListRecent returns at most limit newest messages in chronological order.
	ListRecent(ctx context.Context, tx Tx, conversationID string, limit int) ([]*model.ConversationMessage, error)
	// Finalize persists a terminal message. Only STREAMING rows are updated;
	// otherwise ErrInvalidTransition.
	Finalize(ctx context.Context, tx Tx, msg *model.ConversationMessage) error
}
