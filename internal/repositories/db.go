package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx operations repositories need. It is satisfied
// by *pgxpool.Pool, pgx.Tx and pgxmock pools, so the same repository code
// runs against the pool, inside a transaction, and under test.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// TxBeginner starts transactions. Services hold one to compose multi-step
// writes (status change + history + vehicle update) into a single atomic unit.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
