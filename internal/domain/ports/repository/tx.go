package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a database transaction and hands the
// transaction to repositories through the opaque tx argument.
//
// Repositories MUST accept a nil tx and fall back to the pool. The concrete
// tx type is infra-defined (pgx.Tx for Postgres).
//
// Usage:
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//		if err := messages.Create(ctx, tx, msg); err != nil {
//			return err
//		}
//		return conversations.IncrementOnAssistantCreated(ctx, tx, msg.ConversationID, now)
//	})
//
// A non-nil error from fn rolls back; otherwise the transaction commits.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
