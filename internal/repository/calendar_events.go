package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/renubu/renubu/internal/model"
)

type CalendarEventsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, e model.CalendarEvent) error
	// ListOverlapping returns the owner's events intersecting [from, to), ordered by start.
	ListOverlapping(ctx context.Context, ownerID string, from, to time.Time) ([]model.CalendarEvent, error)
}

type CalendarEventsRepositoryImpl struct {
	db *sqlx.DB
}

func NewCalendarEventsRepository(db *sqlx.DB) *CalendarEventsRepositoryImpl {
	return &CalendarEventsRepositoryImpl{db: db}
}

var _ CalendarEventsRepository = (*CalendarEventsRepositoryImpl)(nil)

func (r *CalendarEventsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, e model.CalendarEvent) error {
	const q = `
		INSERT INTO calendar_events (id, owner_id, title, starts_at, ends_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(q),
			e.ID, e.OwnerID, e.Title, model.Timestamp(e.StartsAt), model.Timestamp(e.EndsAt), model.Timestamp(e.CreatedAt),
		)
		return err
	})
}

func (r *CalendarEventsRepositoryImpl) ListOverlapping(ctx context.Context, ownerID string, from, to time.Time) ([]model.CalendarEvent, error) {
	const q = `
		SELECT id, owner_id, title, starts_at, ends_at, created_at
		  FROM calendar_events
		 WHERE owner_id = ?
		 ORDER BY starts_at ASC
	`
	var rows []model.CalendarEvent
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), ownerID); err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, e := range rows {
		if e.StartsAt.Before(to) && e.EndsAt.After(from) {
			out = append(out, e)
		}
	}
	return out, nil
}
