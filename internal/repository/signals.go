package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/renubu/renubu/internal/model"
)

type SignalsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, s model.Signal) error
	// ListSince returns the customer's signals that occurred at or after since, newest first.
	ListSince(ctx context.Context, customerID string, since time.Time) ([]model.Signal, error)
}

type SignalsRepositoryImpl struct {
	db *sqlx.DB
}

func NewSignalsRepository(db *sqlx.DB) *SignalsRepositoryImpl {
	return &SignalsRepositoryImpl{db: db}
}

var _ SignalsRepository = (*SignalsRepositoryImpl)(nil)

func (r *SignalsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, s model.Signal) error {
	const q = `
		INSERT INTO signals (id, customer_id, kind, category, weight, note, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(q),
			s.ID, s.CustomerID, s.Kind, string(s.Category), s.Weight, s.Note,
			model.Timestamp(s.OccurredAt), model.Timestamp(s.CreatedAt),
		)
		return err
	})
}

func (r *SignalsRepositoryImpl) ListSince(ctx context.Context, customerID string, since time.Time) ([]model.Signal, error) {
	const q = `
		SELECT id, customer_id, kind, category, weight, note, occurred_at, created_at
		  FROM signals
		 WHERE customer_id = ?
		 ORDER BY occurred_at DESC
	`
	var rows []model.Signal
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), customerID); err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, s := range rows {
		if !s.OccurredAt.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}
