package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"workspace-assistant/internal/domain"
	"workspace-assistant/internal/domain/model"
	"workspace-assistant/internal/domain/ports/repository"
)

var _ repository.ConversationMessageRepository = (*MessageRepo)(nil)

// MessageRepo persists project_conversation_messages. The partial unique
// index on (conversation_id, parent_message_id) for assistant rows backs the
// one-reply-per-user-message guarantee.
type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

const messageColumns = `id, conversation_id, project_id, role, status, content_text, parent_message_id,
       provider, model, usage_json, provider_error_json, created_at, updated_at`

func (r *MessageRepo) FindAssistantByParent(ctx context.Context, tx repository.Tx, conversationID, parentMessageID string) (*model.ConversationMessage, error) {
	q := `SELECT ` + messageColumns + `
  FROM project_conversation_messages
 WHERE conversation_id = $1 AND parent_message_id = $2 AND role = 'assistant'
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, conversationID, parentMessageID)
	if err != nil {
		return nil, err
	}
	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *MessageRepo) Create(ctx context.Context, tx repository.Tx, m *model.ConversationMessage) error {
	usage, err := marshalJSONB(m.Usage)
	if err != nil {
		return fmt.Errorf("encode usage: %w", err)
	}
	diag, err := marshalJSONB(m.ProviderError)
	if err != nil {
		return fmt.Errorf("encode provider error: %w", err)
	}
	const q = `
INSERT INTO project_conversation_messages
  (id, conversation_id, project_id, role, status, content_text, parent_message_id,
   provider, model, usage_json, provider_error_json, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13);`
	_, err = execSQL(ctx, r.pool, tx, q,
		m.ID, m.ConversationID, m.ProjectID, string(m.Role), string(m.Status), m.ContentText, m.ParentMessageID,
		m.Provider, m.Model, usage, diag, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepo) ListRecent(ctx context.Context, tx repository.Tx, conversationID string, limit int) ([]*model.ConversationMessage, error) {
	if limit <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	q := `
SELECT ` + messageColumns + ` FROM (
  SELECT ` + messageColumns + `
    FROM project_conversation_messages
   WHERE conversation_id = $1
   ORDER BY created_at DESC, id DESC
   LIMIT $2
) recent
ORDER BY created_at ASC, id ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	out := make([]*model.ConversationMessage, 0, limit)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *MessageRepo) Finalize(ctx context.Context, tx repository.Tx, m *model.ConversationMessage) error {
	if !m.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot finalize with status %s", domain.ErrInvalidTransition, m.Status)
	}
	usage, err := marshalJSONB(m.Usage)
	if err != nil {
		return fmt.Errorf("encode usage: %w", err)
	}
	diag, err := marshalJSONB(m.ProviderError)
	if err != nil {
		return fmt.Errorf("encode provider error: %w", err)
	}
	const q = `
UPDATE project_conversation_messages
   SET status = $2,
       content_text = $3,
       usage_json = $4,
       provider_error_json = $5,
       updated_at = $6
 WHERE id = $1 AND status = 'STREAMING';`
	tag, err := execSQL(ctx, r.pool, tx, q, m.ID, string(m.Status), m.ContentText, usage, diag, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("finalize message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: message %s is not streaming", domain.ErrInvalidTransition, m.ID)
	}
	return nil
}

func scanMessage(row pgx.Row) (*model.ConversationMessage, error) {
	var m model.ConversationMessage
	var role, status string
	var usage, diag []byte
	if err := row.Scan(&m.ID, &m.ConversationID, &m.ProjectID, &role, &status, &m.ContentText, &m.ParentMessageID,
		&m.Provider, &m.Model, &usage, &diag, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}
	m.Role = model.MessageRole(role)
	m.Status = model.MessageStatus(status)
	u, err := unmarshalJSONB(usage)
	if err != nil {
		return nil, fmt.Errorf("decode usage: %w", err)
	}
	m.Usage = u
	d, err := unmarshalJSONB(diag)
	if err != nil {
		return nil, fmt.Errorf("decode provider error: %w", err)
	}
	m.ProviderError = d
	return &m, nil
}
