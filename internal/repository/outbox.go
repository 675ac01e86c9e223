package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/renubu/renubu/internal/model"
	"github.com/renubu/renubu/internal/util"
)

// OutboxRepository defines persistence methods for the outbox table.
type OutboxRepository interface {
	// Insert writes a single outbox event. If tx is nil, it will open/commit
	// an internal transaction; otherwise it uses the given tx.
	Insert(ctx context.Context, tx *sqlx.Tx, aggregate, aggregateID, topic string, payload []byte) (string, error)
	// ListUnpublished returns up to limit pending events, oldest first.
	ListUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkPublished(ctx context.Context, ids []string, at time.Time) error
	BumpAttempts(ctx context.Context, ids []string) error
}

// OutboxRepositoryImpl is a sqlx-backed implementation.
type OutboxRepositoryImpl struct {
	db *sqlx.DB
}

// NewOutboxRepository constructs an OutboxRepositoryImpl.
func NewOutboxRepository(db *sqlx.DB) *OutboxRepositoryImpl {
	return &OutboxRepositoryImpl{db: db}
}

var _ OutboxRepository = (*OutboxRepositoryImpl)(nil)

// Insert adds an event row to outbox and returns its ULID. The relay worker
// picks it up and publishes it to Kafka based on the `topic` column.
func (r *OutboxRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, aggregate, aggregateID, topic string, payload []byte) (string, error) {
	const q = `
		INSERT INTO outbox (id, aggregate, aggregate_id, topic, payload, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`
	id := util.NewULID()
	err := withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(q), id, aggregate, aggregateID, topic, payload, model.Timestamp(time.Now()))
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListUnpublished relies on ULIDs sorting in creation order.
func (r *OutboxRepositoryImpl) ListUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
		SELECT id, aggregate, aggregate_id, topic, payload, attempts, published_at, created_at
		  FROM outbox
		 WHERE published_at IS NULL
		 ORDER BY id ASC
		 LIMIT ?
	`
	var rows []model.OutboxEvent
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), limit); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *OutboxRepositoryImpl) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE outbox SET published_at = ? WHERE id IN (?)`, model.Timestamp(at), ids)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	return err
}

func (r *OutboxRepositoryImpl) BumpAttempts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE outbox SET attempts = attempts + 1 WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	return err
}
