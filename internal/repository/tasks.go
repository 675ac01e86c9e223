package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/renubu/renubu/internal/model"
)

// TasksRepository persists workflow_tasks.
type TasksRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, t model.WorkflowTask) error
	// Get reads through tx when given so callers can re-check state inside their transaction.
	Get(ctx context.Context, tx *sqlx.Tx, id string) (*model.WorkflowTask, error)
	List(ctx context.Context, f model.TaskFilter) ([]model.WorkflowTask, error)
	ListByStatus(ctx context.Context, statuses ...model.TaskStatus) ([]model.WorkflowTask, error)
	// Update reports false when the row no longer carries t.Revision.
	Update(ctx context.Context, tx *sqlx.Tx, t model.WorkflowTask) (bool, error)
}

type TasksRepositoryImpl struct {
	db *sqlx.DB
}

func NewTasksRepository(db *sqlx.DB) *TasksRepositoryImpl {
	return &TasksRepositoryImpl{db: db}
}

var _ TasksRepository = (*TasksRepositoryImpl)(nil)

const taskColumns = `id, execution_id, customer_id, owner_id, title, description, priority, status,
	due_date, snoozed_until, first_snoozed_at, max_snooze_date, snooze_count, force_action,
	skip_reason, completed_at, created_at, updated_at, revision`

func (r *TasksRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, t model.WorkflowTask) error {
	const q = `
		INSERT INTO workflow_tasks
		    (id, execution_id, customer_id, owner_id, title, description, priority, status,
		     due_date, snoozed_until, first_snoozed_at, max_snooze_date, snooze_count, force_action,
		     skip_reason, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(q),
			t.ID, t.ExecutionID, t.CustomerID, t.OwnerID, t.Title, t.Description, string(t.Priority), string(t.Status),
			nullDate(t.DueDate), nullTime(t.SnoozedUntil), nullTime(t.FirstSnoozedAt), nullTime(t.MaxSnoozeDate),
			t.SnoozeCount, t.ForceAction, t.SkipReason, nullTime(t.CompletedAt),
			model.Timestamp(t.CreatedAt), model.Timestamp(t.UpdatedAt),
		)
		return err
	})
}

// Get returns (nil, nil) when the task does not exist.
func (r *TasksRepositoryImpl) Get(ctx context.Context, tx *sqlx.Tx, id string) (*model.WorkflowTask, error) {
	q := pick(r.db, tx)
	var t model.WorkflowTask
	err := q.GetContext(ctx, &t, q.Rebind(`SELECT `+taskColumns+` FROM workflow_tasks WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TasksRepositoryImpl) List(ctx context.Context, f model.TaskFilter) ([]model.WorkflowTask, error) {
	limit, offset := clampPage(f.Limit, f.Offset)

	var where []string
	var args []any
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.CustomerID != "" {
		where = append(where, "customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	q := `SELECT ` + taskColumns + ` FROM workflow_tasks`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.WorkflowTask
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *TasksRepositoryImpl) ListByStatus(ctx context.Context, statuses ...model.TaskStatus) ([]model.WorkflowTask, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	vals := make([]string, len(statuses))
	for i, s := range statuses {
		vals[i] = string(s)
	}
	query, args, err := sqlx.In(`SELECT `+taskColumns+` FROM workflow_tasks WHERE status IN (?) ORDER BY id`, vals)
	if err != nil {
		return nil, err
	}

	var rows []model.WorkflowTask
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// Update writes every mutable column of t and bumps its revision, but only
// while the stored revision still equals t.Revision.
func (r *TasksRepositoryImpl) Update(ctx context.Context, tx *sqlx.Tx, t model.WorkflowTask) (bool, error) {
	const q = `
		UPDATE workflow_tasks
		   SET owner_id = ?, title = ?, description = ?, priority = ?, status = ?, due_date = ?,
		       snoozed_until = ?, first_snoozed_at = ?, max_snooze_date = ?, snooze_count = ?,
		       force_action = ?, skip_reason = ?, completed_at = ?, updated_at = ?,
		       revision = revision + 1
		 WHERE id = ? AND revision = ?
	`
	var updated bool
	err := withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(q),
			t.OwnerID, t.Title, t.Description, string(t.Priority), string(t.Status), nullDate(t.DueDate),
			nullTime(t.SnoozedUntil), nullTime(t.FirstSnoozedAt), nullTime(t.MaxSnoozeDate), t.SnoozeCount,
			t.ForceAction, t.SkipReason, nullTime(t.CompletedAt), model.Timestamp(t.UpdatedAt),
			t.ID, t.Revision,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		updated = n == 1
		return nil
	})
	return updated, err
}
