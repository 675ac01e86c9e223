package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/renubu/renubu/internal/model"
)

type ExecutionsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, e model.WorkflowExecution) error
	Get(ctx context.Context, tx *sqlx.Tx, id string) (*model.WorkflowExecution, error)
	Update(ctx context.Context, tx *sqlx.Tx, e model.WorkflowExecution) error
}

type ExecutionsRepositoryImpl struct {
	db *sqlx.DB
}

func NewExecutionsRepository(db *sqlx.DB) *ExecutionsRepositoryImpl {
	return &ExecutionsRepositoryImpl{db: db}
}

var _ ExecutionsRepository = (*ExecutionsRepositoryImpl)(nil)

func (r *ExecutionsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, e model.WorkflowExecution) error {
	const q = `
		INSERT INTO workflow_executions
		    (id, customer_id, workflow_id, owner_id, status, current_slide, started_at, completed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(q),
			e.ID, e.CustomerID, e.WorkflowID, e.OwnerID, string(e.Status), e.CurrentSlide,
			model.Timestamp(e.StartedAt), nullTime(e.CompletedAt), model.Timestamp(e.UpdatedAt),
		)
		return err
	})
}

// Get returns (nil, nil) when the execution does not exist.
func (r *ExecutionsRepositoryImpl) Get(ctx context.Context, tx *sqlx.Tx, id string) (*model.WorkflowExecution, error) {
	const q = `
		SELECT id, customer_id, workflow_id, owner_id, status, current_slide, started_at, completed_at, updated_at
		  FROM workflow_executions
		 WHERE id = ?
	`
	db := pick(r.db, tx)
	var e model.WorkflowExecution
	err := db.GetContext(ctx, &e, db.Rebind(q), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *ExecutionsRepositoryImpl) Update(ctx context.Context, tx *sqlx.Tx, e model.WorkflowExecution) error {
	const q = `
		UPDATE workflow_executions
		   SET status = ?, current_slide = ?, completed_at = ?, updated_at = ?
		 WHERE id = ?
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(q),
			string(e.Status), e.CurrentSlide, nullTime(e.CompletedAt), model.Timestamp(e.UpdatedAt), e.ID,
		)
		return err
	})
}
