package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/renubu/renubu/internal/model"
)

// CHSnapshotsRepository reads and appends score history in ClickHouse.
type CHSnapshotsRepository interface {
	Append(ctx context.Context, snaps []model.ScoreSnapshot) error
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]model.ScoreSnapshot, error)
}

type chSnapshotsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHSnapshotsRepository(ch *sqlx.DB) CHSnapshotsRepository {
	return &chSnapshotsRepository{ch: ch}
}

// Append sends the rows as one ClickHouse batch (prepared insert inside a tx).
func (r *chSnapshotsRepository) Append(ctx context.Context, snaps []model.ScoreSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO score_snapshots
		    (customer_id, risk_score, opportunity_score, priority_score, quadrant, tier, arr, computed_at)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range snaps {
		if _, err := stmt.ExecContext(ctx,
			s.CustomerID, s.RiskScore, s.OpportunityScore, s.PriorityScore,
			s.Quadrant, s.Tier, s.ARR, model.Timestamp(s.ComputedAt),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *chSnapshotsRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]model.ScoreSnapshot, error) {
	limit, offset = clampPage(limit, offset)

	q := `
		SELECT customer_id, risk_score, opportunity_score, priority_score, quadrant, tier, arr, computed_at
		FROM score_snapshots
	`
	var args []any
	if customerID != "" {
		q += " WHERE customer_id = ?"
		args = append(args, customerID)
	}
	q += " ORDER BY computed_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.ScoreSnapshot
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
