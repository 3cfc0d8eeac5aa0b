package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"workspace-assistant/internal/domain"
	"workspace-assistant/internal/domain/model"
	"workspace-assistant/internal/domain/ports/repository"
)

var _ repository.ConversationRepository = (*ConversationRepo)(nil)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

const conversationColumns = `id, project_id, status, message_count, last_message_at, last_message_preview, created_at, updated_at`

func (r *ConversationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Conversation, error) {
	return r.findOne(ctx, tx, `SELECT `+conversationColumns+` FROM project_conversations WHERE id = $1;`, id)
}

func (r *ConversationRepo) FindActiveByID(ctx context.Context, tx repository.Tx, id string) (*model.Conversation, error) {
	return r.findOne(ctx, tx, `SELECT `+conversationColumns+` FROM project_conversations WHERE id = $1 AND status = 'active';`, id)
}

func (r *ConversationRepo) findOne(ctx context.Context, tx repository.Tx, q string, id string) (*model.Conversation, error) {
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var c model.Conversation
	var status string
	if err := row.Scan(&c.ID, &c.ProjectID, &status, &c.MessageCount, &c.LastMessageAt, &c.LastMessagePreview, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	c.Status = model.ConversationStatus(status)
	return &c, nil
}

func (r *ConversationRepo) IncrementOnAssistantCreated(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	const q = `
UPDATE project_conversations
   SET message_count = message_count + 1,
       last_message_at = $2,
       updated_at = $2
 WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		return fmt.Errorf("increment conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ConversationRepo) TouchOnAssistantFinalized(ctx context.Context, tx repository.Tx, id string, preview *string, at time.Time) error {
	const q = `
UPDATE project_conversations
   SET last_message_preview = $2,
       last_message_at = $3,
       updated_at = $3
 WHERE id = $1;`
	if _, err := execSQL(ctx, r.pool, tx, q, id, preview, at); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}
