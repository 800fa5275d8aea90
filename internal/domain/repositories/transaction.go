package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TxFn is a unit of work run by a TransactionManager
type TxFn func(ctx context.Context) error

// TransactionManager groups a check-then-write sequence (collision check plus
// update) so it commits or rolls back as one.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}

type txKey struct{}

// WithTx returns a context carrying tx for repositories to join
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction in ctx, or nil
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}
