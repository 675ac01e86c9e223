package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/renubu/renubu/internal/model"
)

// withTx runs fn in the provided tx, or starts a new transaction when tx is nil.
func withTx(ctx context.Context, db *sqlx.DB, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}

	t, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}

	return t.Commit()
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// pick returns tx when set, otherwise the pool.
func pick(db *sqlx.DB, tx *sqlx.Tx) queryer {
	if tx != nil {
		return tx
	}
	return db
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// nullTime normalizes an optional timestamp for storage.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return model.Timestamp(*t)
}

// nullDate normalizes an optional calendar date for storage.
func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return model.DateOf(*t)
}
