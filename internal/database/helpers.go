package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert violates a unique constraint
	ErrDuplicate = errors.New("duplicate")
)

type txKey struct{}

// executor is implemented by both *sqlx.DB and *sqlx.Tx
type executor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// conn returns the transaction bound to ctx, or the global connection
func conn(ctx context.Context) executor {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return DB
}

// WithTx runs fn inside a transaction. Repositories called with the
// context passed to fn take part in it. Nested calls reuse the outer one.
func WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// q rewrites ? placeholders for the active driver
func q(query string) string {
	return DB.Rebind(query)
}

// get runs a single-row query
func get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return mapError(conn(ctx).GetContext(ctx, dest, q(query), args...))
}

// list runs a multi-row query
func list(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return mapError(conn(ctx).SelectContext(ctx, dest, q(query), args...))
}

// exec runs a statement and reports ErrNotFound when nothing was affected
func exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := conn(ctx).ExecContext(ctx, q(query), args...)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// execAny runs a statement regardless of affected rows
func execAny(ctx context.Context, query string, args ...interface{}) error {
	_, err := conn(ctx).ExecContext(ctx, q(query), args...)
	return mapError(err)
}

// insert runs an INSERT ... RETURNING id statement
func insert(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var id int64
	if err := conn(ctx).QueryRowxContext(ctx, q(query+" RETURNING id"), args...).Scan(&id); err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

// mapError converts driver errors into the package sentinels
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
