package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"workspace-assistant/internal/domain/model"
	"workspace-assistant/internal/domain/ports/repository"
)

var _ repository.OutboxRepository = (*OutboxRepo)(nil)

type OutboxRepo struct {
	pool *pgxpool.Pool
}

func NewOutboxRepo(pool *pgxpool.Pool) *OutboxRepo {
	return &OutboxRepo{pool: pool}
}

// Insert writes rec. Callers pass the transaction of the state change the
// record describes; a nil tx writes outside any transaction.
func (r *OutboxRepo) Insert(ctx context.Context, tx repository.Tx, rec *model.OutboxRecord) error {
	payload, err := marshalJSONB(rec.Payload)
	if err != nil {
		return fmt.Errorf("encode outbox payload: %w", err)
	}
	const q = `
INSERT INTO event_outbox (id, entity_type, entity_id, datastore_id, old_status, new_status, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	if _, err := execSQL(ctx, r.pool, tx, q,
		rec.ID, rec.EntityType, rec.EntityID, rec.DatastoreID, rec.OldStatus, rec.NewStatus, payload, rec.OccurredAt); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}
