package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

type txContextKey string

const (
	txKey       txContextKey = "tx"
	txStatusKey txContextKey = "tx_status"

	txStatusOpen = "open"
)

// Tx is the subset of the query surface available inside a transaction
type Tx interface {
	IsOpen() bool
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	Rebind(query string) string
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// transaction wraps sqlx.Tx so a transaction can be carried on the context
// and shared by nested repository calls. Rollback no-ops when invoked with
// a context that still marks the transaction open, so only the owner who
// created it can unwind it.
type transaction struct {
	*sqlx.Tx
	logger   ectologger.Logger
	isClosed bool
}

// GetTx returns the transaction already carried on the context, or begins a
// new one. The returned context marks the transaction open; callers defer
// Rollback with their ORIGINAL context so an early return unwinds the work.
func GetTx(ctx context.Context, logger ectologger.Logger, db DB, opts *sql.TxOptions) (context.Context, Tx, error) {
	if existing, ok := ctx.Value(txKey).(Tx); ok && existing != nil && existing.IsOpen() {
		if status, ok := ctx.Value(txStatusKey).(string); ok && status == txStatusOpen {
			return ctx, existing, nil
		}
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Errorf("error while beginning transaction")
		return ctx, nil, fmt.Errorf("error while beginning transaction")
	}

	wrapped := &transaction{Tx: tx, logger: logger}

	ctx = context.WithValue(ctx, txStatusKey, txStatusOpen)
	ctx = context.WithValue(ctx, txKey, Tx(wrapped))
	return ctx, wrapped, nil
}

func (t *transaction) IsOpen() bool {
	return !t.isClosed
}

func (t *transaction) Rollback(ctx context.Context) error {
	if t.isClosed {
		return nil
	}

	if status, ok := ctx.Value(txStatusKey).(string); ok && status == txStatusOpen {
		// the transaction owner holds this context open
		return nil
	}

	if err := t.Tx.Rollback(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while rolling back transaction")
		return fmt.Errorf("error while rolling back transaction")
	}

	t.isClosed = true
	return nil
}

func (t *transaction) Commit(ctx context.Context) error {
	if t.isClosed {
		return nil
	}

	if err := t.Tx.Commit(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while committing transaction")
		return fmt.Errorf("error while committing transaction")
	}

	t.isClosed = true
	return nil
}
