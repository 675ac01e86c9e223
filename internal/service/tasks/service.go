// Package tasks implements the workflow task lifecycle, including the snooze rules.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/renubu/renubu/internal/logger"
	"github.com/renubu/renubu/internal/metrics"
	"github.com/renubu/renubu/internal/model"
	"github.com/renubu/renubu/internal/repository"
	"github.com/renubu/renubu/internal/service/events"
	"github.com/renubu/renubu/internal/util"
	"go.uber.org/zap"
)

const aggregate = "task"

var (
	ErrNotFound           = errors.New("task not found")
	ErrValidation         = errors.New("invalid task")
	ErrInvalidTransition  = errors.New("task is not in a state that allows this action")
	ErrSnoozeInPast       = errors.New("snooze date must be in the future")
	ErrSnoozeTooFar       = errors.New("snooze date may not exceed 7 days out")
	ErrSnoozeLimitReached = errors.New("task can no longer be snoozed and needs action")
	ErrConflict           = errors.New("task was changed concurrently, retry")
)

// CreateInput is the caller-supplied part of a new task.
type CreateInput struct {
	OwnerID     string     `json:"owner_id"`
	CustomerID  string     `json:"customer_id"`
	ExecutionID string     `json:"execution_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

// Service owns every workflow_tasks mutation and records an outbox event for each.
type Service struct {
	db        *sqlx.DB
	tasks     repository.TasksRepository
	outbox    repository.OutboxRepository
	topic     string
	maxSnooze time.Duration

	// Now is the service clock; tests replace it.
	Now func() time.Time
}

func New(
	db *sqlx.DB,
	tasksRepo repository.TasksRepository,
	outboxRepo repository.OutboxRepository,
	topic string,
	maxSnoozeDays int,
) *Service {
	if maxSnoozeDays <= 0 {
		maxSnoozeDays = 7
	}
	return &Service{
		db:        db,
		tasks:     tasksRepo,
		outbox:    outboxRepo,
		topic:     topic,
		maxSnooze: time.Duration(maxSnoozeDays) * 24 * time.Hour,
		Now:       time.Now,
	}
}

func (s *Service) now() time.Time { return model.Timestamp(s.Now()) }

func (s *Service) Create(ctx context.Context, in CreateInput) (*model.WorkflowTask, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, fmt.Errorf("%w: owner_id is required", ErrValidation)
	}
	prio, ok := model.ParseTaskPriority(in.Priority)
	if !ok {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, in.Priority)
	}

	now := s.now()
	t := model.WorkflowTask{
		ID:          util.NewID(),
		ExecutionID: in.ExecutionID,
		CustomerID:  in.CustomerID,
		OwnerID:     in.OwnerID,
		Title:       title,
		Description: in.Description,
		Priority:    prio,
		Status:      model.TaskPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.DueDate != nil {
		d := model.DateOf(*in.DueDate)
		t.DueDate = &d
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.tasks.Insert(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	if err := s.record(ctx, tx, "created", t, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.TasksTotal.WithLabelValues("create").Inc()
	return &t, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.WorkflowTask, error) {
	t, err := s.tasks.Get(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, f model.TaskFilter) ([]model.WorkflowTask, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, f.Status)
	}
	return s.tasks.List(ctx, f)
}

// Start moves a pending or snoozed task to in_progress.
func (s *Service) Start(ctx context.Context, id string) (*model.WorkflowTask, error) {
	return s.mutate(ctx, id, "start", func(t *model.WorkflowTask, _ time.Time) error {
		if t.Status != model.TaskPending && t.Status != model.TaskSnoozed {
			return ErrInvalidTransition
		}
		t.Status = model.TaskInProgress
		t.SnoozedUntil = nil
		return nil
	})
}

func (s *Service) Complete(ctx context.Context, id string) (*model.WorkflowTask, error) {
	return s.mutate(ctx, id, "complete", func(t *model.WorkflowTask, now time.Time) error {
		if !t.Status.Open() {
			return ErrInvalidTransition
		}
		t.Status = model.TaskCompleted
		t.SnoozedUntil = nil
		t.CompletedAt = &now
		return nil
	})
}

func (s *Service) Skip(ctx context.Context, id, reason string) (*model.WorkflowTask, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: skip reason is required", ErrValidation)
	}
	return s.mutate(ctx, id, "skip", func(t *model.WorkflowTask, _ time.Time) error {
		if !t.Status.Open() {
			return ErrInvalidTransition
		}
		t.Status = model.TaskSkipped
		t.SnoozedUntil = nil
		t.SkipReason = reason
		return nil
	})
}

func (s *Service) Reassign(ctx context.Context, id, ownerID string) (*model.WorkflowTask, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner_id is required", ErrValidation)
	}
	return s.mutate(ctx, id, "reassign", func(t *model.WorkflowTask, _ time.Time) error {
		if !t.Status.Open() {
			return ErrInvalidTransition
		}
		t.OwnerID = ownerID
		return nil
	})
}

// Snooze hides an open task until `until`. The first snooze fixes a hard
// deadline maxSnooze later; no snooze may reach past it.
func (s *Service) Snooze(ctx context.Context, id string, until time.Time) (*model.WorkflowTask, error) {
	// Checked at the precision it is stored with.
	until = model.Timestamp(until)
	return s.mutate(ctx, id, "snooze", func(t *model.WorkflowTask, now time.Time) error {
		if !t.Status.Open() {
			return ErrInvalidTransition
		}
		if t.ForceAction || (t.MaxSnoozeDate != nil && now.After(*t.MaxSnoozeDate)) {
			return ErrSnoozeLimitReached
		}
		if !until.After(now) {
			return ErrSnoozeInPast
		}

		limit := now.Add(s.maxSnooze)
		if t.MaxSnoozeDate != nil {
			limit = *t.MaxSnoozeDate
		}
		if until.After(limit) {
			return ErrSnoozeTooFar
		}

		if t.FirstSnoozedAt == nil {
			first, deadline := now, limit
			t.FirstSnoozedAt, t.MaxSnoozeDate = &first, &deadline
		}
		u := until
		t.Status = model.TaskSnoozed
		t.SnoozedUntil = &u
		t.SnoozeCount++
		return nil
	})
}

func (s *Service) Unsnooze(ctx context.Context, id string) (*model.WorkflowTask, error) {
	return s.mutate(ctx, id, "unsnooze", func(t *model.WorkflowTask, _ time.Time) error {
		if t.Status != model.TaskSnoozed {
			return ErrInvalidTransition
		}
		t.Status = model.TaskPending
		t.SnoozedUntil = nil
		return nil
	})
}

// WakeDue returns snoozed tasks whose snooze has elapsed to pending.
func (s *Service) WakeDue(ctx context.Context) (int, error) {
	return s.sweep(ctx, "wake", []model.TaskStatus{model.TaskSnoozed}, func(t *model.WorkflowTask, now time.Time) bool {
		if t.SnoozedUntil == nil || t.SnoozedUntil.After(now) {
			return false
		}
		t.Status = model.TaskPending
		t.SnoozedUntil = nil
		return true
	})
}

// EnforceDeadlines flags tasks past their snooze deadline as needing action.
func (s *Service) EnforceDeadlines(ctx context.Context) (int, error) {
	return s.sweep(ctx, "force", []model.TaskStatus{model.TaskSnoozed, model.TaskPending}, func(t *model.WorkflowTask, now time.Time) bool {
		if t.ForceAction || t.MaxSnoozeDate == nil || !t.MaxSnoozeDate.Before(now) {
			return false
		}
		t.ForceAction = true
		t.Status = model.TaskPending
		t.SnoozedUntil = nil
		return true
	})
}

func (s *Service) mutate(ctx context.Context, id, action string, fn func(t *model.WorkflowTask, now time.Time) error) (*model.WorkflowTask, error) {
	now := s.now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	t, err := s.tasks.Get(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if t == nil {
		return nil, ErrNotFound
	}
	if err := fn(t, now); err != nil {
		return nil, err
	}
	t.UpdatedAt = now

	ok, err := s.tasks.Update(ctx, tx, *t)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if !ok {
		return nil, ErrConflict
	}
	t.Revision++
	if err := s.record(ctx, tx, action, *t, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.TasksTotal.WithLabelValues(action).Inc()
	return t, nil
}

// sweep applies fn to every task in statuses and persists the ones it changed
// in one transaction. Rows changed since they were listed are left for the next sweep.
func (s *Service) sweep(ctx context.Context, action string, statuses []model.TaskStatus, fn func(t *model.WorkflowTask, now time.Time) bool) (int, error) {
	now := s.now()
	candidates, err := s.tasks.ListByStatus(ctx, statuses...)
	if err != nil {
		return 0, fmt.Errorf("list tasks: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	n := 0
	for i := range candidates {
		t := &candidates[i]
		if !fn(t, now) {
			continue
		}
		t.UpdatedAt = now
		ok, err := s.tasks.Update(ctx, tx, *t)
		if err != nil {
			return 0, fmt.Errorf("update task %s: %w", t.ID, err)
		}
		if !ok {
			continue
		}
		if err := s.record(ctx, tx, action, *t, now); err != nil {
			return 0, err
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	if n > 0 {
		metrics.TasksTotal.WithLabelValues(action).Add(float64(n))
		logger.Named("tasks").Info("sweep applied", zap.String("action", action), zap.Int("tasks", n))
	}
	return n, nil
}

func (s *Service) record(ctx context.Context, tx *sqlx.Tx, action string, t model.WorkflowTask, now time.Time) error {
	return events.Record(ctx, tx, s.outbox, aggregate, s.topic, "task."+action, t.ID, now, map[string]any{
		"status":       t.Status,
		"owner_id":     t.OwnerID,
		"customer_id":  t.CustomerID,
		"force_action": t.ForceAction,
		"snooze_count": t.SnoozeCount,
	})
}
