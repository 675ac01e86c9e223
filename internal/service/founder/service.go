// Package founder is the Founder OS task tracker: due-date urgency, escalation
// and the weekly review.
package founder

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

const aggregate = "founder_task"

var (
	ErrNotFound          = errors.New("task not found")
	ErrValidation        = errors.New("invalid task")
	ErrInvalidTransition = errors.New("task was cancelled")
)

// ReviewQuestions are asked, in order, during every weekly review.
var ReviewQuestions = []string{
	"What were your biggest wins this week?",
	"What didn't go as planned?",
	"What's the ONE most important thing for next week?",
	"Any tasks to add, complete, or deprioritize?",
	"Energy check: How are you feeling about the workload?",
}

// Notifier delivers escalations to people (webhook dispatcher in production).
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

type Service struct {
	db           *sqlx.DB
	tasks        repository.FounderTasksRepository
	outbox       repository.OutboxRepository
	notifier     Notifier
	topic        string
	defaultLayer string

	Now func() time.Time
}

func New(
	db *sqlx.DB,
	tasksRepo repository.FounderTasksRepository,
	outboxRepo repository.OutboxRepository,
	notifier Notifier,
	topic, defaultLayer string,
) *Service {
	return &Service{
		db:           db,
		tasks:        tasksRepo,
		outbox:       outboxRepo,
		notifier:     notifier,
		topic:        topic,
		defaultLayer: defaultLayer,
		Now:          time.Now,
	}
}

func (s *Service) now() time.Time { return model.Timestamp(s.Now()) }

// TaskView is a founder task annotated with its urgency as of now.
type TaskView struct {
	ID           string                  `json:"id"`
	Title        string                  `json:"title"`
	Assignee     string                  `json:"assignee"`
	DueDate      string                  `json:"due_date"`
	DaysUntilDue int                     `json:"days_until_due"`
	Urgency      model.Urgency           `json:"urgency"`
	Status       model.FounderTaskStatus `json:"status"`
	Message      string                  `json:"message,omitempty"`
	Escalations  int                     `json:"escalation_count"`
}

func viewOf(t model.FounderTask, now time.Time) TaskView {
	days := model.DaysBetween(now, t.DueDate)
	u := Classify(days)
	assignee := t.AssigneeName
	if assignee == "" {
		assignee = "You"
	}
	return TaskView{
		ID:           t.ID,
		Title:        t.Title,
		Assignee:     assignee,
		DueDate:      t.DueDate.Format("2006-01-02"),
		DaysUntilDue: days,
		Urgency:      u,
		Status:       t.Status,
		Message:      EscalationMessage(t.Title, u, days),
		Escalations:  t.EscalationCount,
	}
}

type AddTaskInput struct {
	Title        string `json:"title"`
	DueDate      string `json:"due_date"` // YYYY-MM-DD
	AssigneeName string `json:"assignee_name,omitempty"`
	Description  string `json:"description,omitempty"`
}

type AddTaskResult struct {
	TaskID   string        `json:"task_id"`
	Title    string        `json:"title"`
	DueDate  string        `json:"due_date"`
	Assignee string        `json:"assignee"`
	Urgency  model.Urgency `json:"urgency"`
	Message  string        `json:"message"`
}

func (s *Service) AddTask(ctx context.Context, in AddTaskInput) (*AddTaskResult, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	due, err := model.ParseDate(strings.TrimSpace(in.DueDate))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date format: %s. Use YYYY-MM-DD", ErrValidation, in.DueDate)
	}

	now := s.now()
	t := model.FounderTask{
		ID:           util.NewID(),
		Title:        title,
		Description:  in.Description,
		DueDate:      due,
		AssigneeName: strings.TrimSpace(in.AssigneeName),
		Layer:        s.defaultLayer,
		Status:       model.FounderPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.tasks.Insert(ctx, tx, t); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return s.record(ctx, tx, "created", t.ID, now, map[string]any{"title": t.Title, "due_date": in.DueDate})
	}); err != nil {
		return nil, err
	}

	v := viewOf(t, now)
	return &AddTaskResult{
		TaskID:   t.ID,
		Title:    t.Title,
		DueDate:  v.DueDate,
		Assignee: v.Assignee,
		Urgency:  v.Urgency,
		Message:  fmt.Sprintf("Task '%s' added. Will escalate as %s approaches.", t.Title, v.DueDate),
	}, nil
}

// CompleteTask marks a task completed; completing twice is a no-op.
func (s *Service) CompleteTask(ctx context.Context, id string) (*model.FounderTask, error) {
	t, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound
	}
	switch t.Status {
	case model.FounderCompleted:
		return t, nil
	case model.FounderCancelled:
		return nil, ErrInvalidTransition
	}

	now := s.now()
	t.Status = model.FounderCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	if err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.tasks.UpdateStatus(ctx, tx, *t); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		return s.record(ctx, tx, "completed", t.ID, now, map[string]any{"title": t.Title})
	}); err != nil {
		return nil, err
	}
	return t, nil
}

// ListByStatus lists tasks in status (default pending), earliest due first.
func (s *Service) ListByStatus(ctx context.Context, status string) ([]TaskView, error) {
	st := model.FounderTaskStatus(strings.TrimSpace(status))
	if st == "" {
		st = model.FounderPending
	}
	if !st.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	rows, err := s.tasks.ListByStatus(ctx, st)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]TaskView, 0, len(rows))
	for _, t := range rows {
		out = append(out, viewOf(t, now))
	}
	return out, nil
}

func (s *Service) openTasks(ctx context.Context) ([]model.FounderTask, error) {
	return s.tasks.ListByStatus(ctx, model.FounderPending, model.FounderInProgress, model.FounderBlocked)
}

// UrgentBuckets groups tasks needing attention by urgency.
type UrgentBuckets struct {
	Overdue  []TaskView `json:"overdue"`
	Critical []TaskView `json:"critical"`
	Urgent   []TaskView `json:"urgent"`
	Upcoming []TaskView `json:"upcoming"`
}

type UrgentSummary struct {
	AttentionNeeded         []string      `json:"attention_needed"`
	Tasks                   UrgentBuckets `json:"tasks"`
	TotalRequiringAttention int           `json:"total_requiring_attention"`
}

// UrgentTasks returns open tasks that are overdue or due within two days, plus
// the next week's tasks when includeUpcoming is set.
func (s *Service) UrgentTasks(ctx context.Context, includeUpcoming bool) (*UrgentSummary, error) {
	rows, err := s.openTasks(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()

	sum := &UrgentSummary{
		AttentionNeeded: []string{},
		Tasks:           UrgentBuckets{Overdue: []TaskView{}, Critical: []TaskView{}, Urgent: []TaskView{}, Upcoming: []TaskView{}},
	}
	for _, t := range rows {
		v := viewOf(t, now)
		switch v.Urgency {
		case model.UrgencyOverdue:
			sum.Tasks.Overdue = append(sum.Tasks.Overdue, v)
		case model.UrgencyCritical:
			sum.Tasks.Critical = append(sum.Tasks.Critical, v)
		case model.UrgencyUrgent:
			sum.Tasks.Urgent = append(sum.Tasks.Urgent, v)
		case model.UrgencyUpcoming:
			if !includeUpcoming {
				continue
			}
			sum.Tasks.Upcoming = append(sum.Tasks.Upcoming, v)
		default:
			continue
		}
		sum.TotalRequiringAttention++
	}

	if n := len(sum.Tasks.Overdue); n > 0 {
		sum.AttentionNeeded = append(sum.AttentionNeeded, fmt.Sprintf("🚨 %d OVERDUE task(s)", n))
	}
	if n := len(sum.Tasks.Critical); n > 0 {
		sum.AttentionNeeded = append(sum.AttentionNeeded, fmt.Sprintf("⚠️ %d task(s) due TODAY", n))
	}
	if n := len(sum.Tasks.Urgent); n > 0 {
		sum.AttentionNeeded = append(sum.AttentionNeeded, fmt.Sprintf("📅 %d urgent task(s) due soon", n))
	}
	return sum, nil
}

type EscalationDetail struct {
	TaskID   string        `json:"task_id"`
	Title    string        `json:"title"`
	Urgency  model.Urgency `json:"urgency"`
	Message  string        `json:"message"`
	Notified bool          `json:"notified"`
}

type EscalationReport struct {
	Checked   int                `json:"checked"`
	Escalated int                `json:"escalated"`
	Details   []EscalationDetail `json:"details"`
}

// EscalationCheck looks at every open task that needs attention (overdue
// through upcoming), records an escalation for the critical or overdue ones
// and notifies about it. A task escalates at most once per UTC day, so the
// sweeper can run this often.
func (s *Service) EscalationCheck(ctx context.Context) (*EscalationReport, error) {
	rows, err := s.openTasks(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	today := model.DateOf(now)
	log := logger.Named("founder")

	rep := &EscalationReport{Details: []EscalationDetail{}}
	for _, t := range rows {
		v := viewOf(t, now)
		if !NeedsAttention(v.Urgency) {
			continue
		}
		rep.Checked++
		if !Escalates(v.Urgency) {
			continue
		}
		if t.LastEscalatedAt != nil && model.DateOf(*t.LastEscalatedAt).Equal(today) {
			continue
		}

		esc := model.TaskEscalation{
			ID:        util.NewULID(),
			TaskID:    t.ID,
			Urgency:   v.Urgency,
			Message:   v.Message,
			CreatedAt: now,
		}
		if err := s.inTx(ctx, func(tx *sqlx.Tx) error {
			if err := s.tasks.RecordEscalation(ctx, tx, esc); err != nil {
				return fmt.Errorf("record escalation: %w", err)
			}
			return s.record(ctx, tx, "escalated", t.ID, now, map[string]any{"urgency": v.Urgency, "message": v.Message})
		}); err != nil {
			return nil, err
		}
		metrics.EscalationsTotal.WithLabelValues(string(v.Urgency)).Inc()

		d := EscalationDetail{TaskID: t.ID, Title: t.Title, Urgency: v.Urgency, Message: v.Message}
		if s.notifier != nil {
			err := s.notifier.Notify(ctx, model.Notification{
				ID:           esc.ID,
				TaskID:       t.ID,
				Title:        t.Title,
				AssigneeName: v.Assignee,
				Layer:        t.Layer,
				Urgency:      v.Urgency,
				Message:      v.Message,
				DueDate:      v.DueDate,
				DaysUntilDue: v.DaysUntilDue,
				CreatedAt:    now,
			})
			if err != nil {
				log.Warn("escalation notify failed", zap.String("task_id", t.ID), zap.Error(err))
			} else {
				d.Notified = true
			}
		}
		rep.Details = append(rep.Details, d)
		rep.Escalated++
		log.Info("task escalated", zap.String("task_id", t.ID), zap.String("urgency", string(v.Urgency)))
	}
	return rep, nil
}

type WeeklyReview struct {
	PendingTasks  []TaskView `json:"pending_tasks"`
	OverdueCount  int        `json:"overdue_count"`
	CriticalCount int        `json:"critical_count"`
	Questions     []string   `json:"questions"`
	Message       string     `json:"message"`
}

// WeeklyReview lists the open tasks due within the next week or already late.
func (s *Service) WeeklyReview(ctx context.Context) (*WeeklyReview, error) {
	rows, err := s.openTasks(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	rv := &WeeklyReview{
		PendingTasks: make([]TaskView, 0, len(rows)),
		Questions:    append([]string(nil), ReviewQuestions...),
		Message:      "Weekly review started. Let's go through this together.",
	}
	for _, t := range rows {
		v := viewOf(t, now)
		if !NeedsAttention(v.Urgency) {
			continue
		}
		switch v.Urgency {
		case model.UrgencyOverdue:
			rv.OverdueCount++
		case model.UrgencyCritical:
			rv.CriticalCount++
		}
		rv.PendingTasks = append(rv.PendingTasks, v)
	}
	return rv, nil
}

func (s *Service) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Service) record(ctx context.Context, tx *sqlx.Tx, action, id string, at time.Time, data map[string]any) error {
	return events.Record(ctx, tx, s.outbox, aggregate, s.topic, "founder_task."+action, id, at, data)
}
