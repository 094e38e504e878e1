// Package storage provides the transactional boundary shared by all services
// and the relational schema the Postgres stores expect.
package storage

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/tx"
)

// Tx is the transactional boundary every externally-triggered operation runs
// inside. Implementations may wrap a database transaction or, in-memory, a
// coarse lock.
type Tx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// defaultTxTimeout bounds a transaction when the caller set no deadline.
const defaultTxTimeout = 5 * time.Second

// memoryTx serializes mutations with a single mutex. It provides mutual
// exclusion, not rollback; services order validations before writes so a
// failed operation leaves no partial state behind.
type memoryTx struct {
	mu sync.Mutex
}

// NewMemoryTx constructs the in-memory transaction boundary used by unit
// tests and the memory-store wiring.
func NewMemoryTx() Tx {
	return &memoryTx{}
}

func (t *memoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTxTimeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}

// sqlTx wraps each operation in a database transaction. The *sql.Tx travels
// in the context so stores pick it up instead of the pool. Nested RunInTx
// calls join the outer transaction.
type sqlTx struct {
	db *sql.DB
}

// NewSQLTx constructs the Postgres-backed transaction boundary.
func NewSQLTx(db *sql.DB) Tx {
	return &sqlTx{db: db}
}

func (t *sqlTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := tx.From(ctx); ok {
		return fn(ctx)
	}

	dbTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}

	if err := fn(tx.WithTx(ctx, dbTx)); err != nil {
		_ = dbTx.Rollback()
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	return nil
}

// Querier is the subset of *sql.DB and *sql.Tx the stores use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// From returns the context transaction when present, else the pool.
func From(ctx context.Context, db *sql.DB) Querier {
	if dbTx, ok := tx.From(ctx); ok {
		return dbTx
	}
	return db
}
