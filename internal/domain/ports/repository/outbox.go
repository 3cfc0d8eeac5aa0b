package repository

import (
	"context"

	"workspace-assistant/internal/domain/model"
)

type OutboxRepository interface {
	Insert(ctx context.Context, tx Tx, rec *model.OutboxRecord) error
}
