package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/renubu/renubu/internal/model"
)

type FounderTasksRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, t model.FounderTask) error
	Get(ctx context.Context, id string) (*model.FounderTask, error)
	// ListByStatus returns tasks in any of statuses (all tasks when empty), ordered by due date.
	ListByStatus(ctx context.Context, statuses ...model.FounderTaskStatus) ([]model.FounderTask, error)
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, t model.FounderTask) error
	// RecordEscalation stores e and bumps the task's escalation counter in one transaction.
	RecordEscalation(ctx context.Context, tx *sqlx.Tx, e model.TaskEscalation) error
	ListEscalations(ctx context.Context, taskID string) ([]model.TaskEscalation, error)
}

type FounderTasksRepositoryImpl struct {
	db *sqlx.DB
}

func NewFounderTasksRepository(db *sqlx.DB) *FounderTasksRepositoryImpl {
	return &FounderTasksRepositoryImpl{db: db}
}

var _ FounderTasksRepository = (*FounderTasksRepositoryImpl)(nil)

const founderTaskColumns = `id, title, description, due_date, assignee_name, layer, status,
	escalation_count, last_escalated_at, completed_at, created_at, updated_at`

func (r *FounderTasksRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, t model.FounderTask) error {
	const q = `
		INSERT INTO founder_tasks
		    (id, title, description, due_date, assignee_name, layer, status,
		     escalation_count, last_escalated_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(q),
			t.ID, t.Title, t.Description, model.DateOf(t.DueDate), t.AssigneeName, t.Layer, string(t.Status),
			t.EscalationCount, nullTime(t.LastEscalatedAt), nullTime(t.CompletedAt),
			model.Timestamp(t.CreatedAt), model.Timestamp(t.UpdatedAt),
		)
		return err
	})
}

// Get returns (nil, nil) when the task does not exist.
func (r *FounderTasksRepositoryImpl) Get(ctx context.Context, id string) (*model.FounderTask, error) {
	var t model.FounderTask
	err := r.db.GetContext(ctx, &t, r.db.Rebind(`SELECT `+founderTaskColumns+` FROM founder_tasks WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *FounderTasksRepositoryImpl) ListByStatus(ctx context.Context, statuses ...model.FounderTaskStatus) ([]model.FounderTask, error) {
	query := `SELECT ` + founderTaskColumns + ` FROM founder_tasks`
	var args []any
	if len(statuses) > 0 {
		vals := make([]string, len(statuses))
		for i, s := range statuses {
			vals[i] = string(s)
		}
		var err error
		query, args, err = sqlx.In(query+` WHERE status IN (?)`, vals)
		if err != nil {
			return nil, err
		}
	}
	query += ` ORDER BY due_date ASC, created_at ASC`

	var rows []model.FounderTask
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	// due_date ties keep insertion order regardless of how the driver sorts DATE values.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].DueDate.Before(rows[j].DueDate) })
	return rows, nil
}

func (r *FounderTasksRepositoryImpl) UpdateStatus(ctx context.Context, tx *sqlx.Tx, t model.FounderTask) error {
	const q = `UPDATE founder_tasks SET status = ?, completed_at = ?, updated_at = ? WHERE id = ?`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(q),
			string(t.Status), nullTime(t.CompletedAt), model.Timestamp(t.UpdatedAt), t.ID,
		)
		return err
	})
}

func (r *FounderTasksRepositoryImpl) RecordEscalation(ctx context.Context, tx *sqlx.Tx, e model.TaskEscalation) error {
	const ins = `
		INSERT INTO task_escalations (id, task_id, urgency, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	const bump = `
		UPDATE founder_tasks
		   SET escalation_count = escalation_count + 1, last_escalated_at = ?, updated_at = ?
		 WHERE id = ?
	`
	at := model.Timestamp(e.CreatedAt)
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(ins), e.ID, e.TaskID, string(e.Urgency), e.Message, at); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(bump), at, at, e.TaskID)
		return err
	})
}

func (r *FounderTasksRepositoryImpl) ListEscalations(ctx context.Context, taskID string) ([]model.TaskEscalation, error) {
	const q = `
		SELECT id, task_id, urgency, message, created_at
		  FROM task_escalations
		 WHERE task_id = ?
		 ORDER BY id ASC
	`
	var rows []model.TaskEscalation
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), taskID); err != nil {
		return nil, err
	}
	return rows, nil
}
