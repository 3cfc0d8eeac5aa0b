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

var _ repository.ProjectRepository = (*ProjectRepo)(nil)

type ProjectRepo struct {
	pool *pgxpool.Pool
}

func NewProjectRepo(pool *pgxpool.Pool) *ProjectRepo {
	return &ProjectRepo{pool: pool}
}

func (r *ProjectRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Project, error) {
	const q = `
SELECT id, name, datastore_id, llm_model_override, llm_system_prompt, created_at, updated_at
  FROM projects
 WHERE id = $1 AND deleted_at IS NULL;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var p model.Project
	if err := row.Scan(&p.ID, &p.Name, &p.DatastoreID, &p.LLMModelOverride, &p.LLMSystemPrompt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return &p, nil
}
