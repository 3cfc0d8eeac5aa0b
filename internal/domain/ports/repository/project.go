package repository

import (
	"context"

	"workspace-assistant/internal/domain/model"
)

type ProjectRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Project, error)
}
