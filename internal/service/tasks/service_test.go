package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/renubu/renubu/internal/db/dbtest"
	"github.com/renubu/renubu/internal/model"
	"github.com/renubu/renubu/internal/repository"
)

const day = 24 * time.Hour

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	svc    *Service
	outbox *repository.OutboxRepositoryImpl
	clk    *clock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dbx := dbtest.Open(t)
	outbox := repository.NewOutboxRepository(dbx)
	svc := New(dbx, repository.NewTasksRepository(dbx), outbox, "renubu.tasks", 7)
	clk := &clock{t: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)}
	svc.Now = clk.now
	return fixture{svc: svc, outbox: outbox, clk: clk}
}

func (f fixture) create(t *testing.T) *model.WorkflowTask {
	t.Helper()
	task, err := f.svc.Create(context.Background(), CreateInput{OwnerID: "u1", CustomerID: "c1", Title: "Call champion"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return task
}

func TestCreateAndGetReturnsSameFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := time.Date(2026, 10, 25, 15, 0, 0, 0, time.UTC)

	created, err := f.svc.Create(ctx, CreateInput{
		OwnerID: "u1", CustomerID: "c1", ExecutionID: "e1",
		Title: "Send QBR deck", Description: "include usage", Priority: "HIGH", DueDate: &due,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := f.svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Title != "Send QBR deck" || got.Description != "include usage" || got.OwnerID != "u1" ||
		got.CustomerID != "c1" || got.ExecutionID != "e1" || got.Priority != model.PriorityHigh ||
		got.Status != model.TaskPending {
		t.Errorf("read back %+v", got)
	}
	if got.DueDate == nil || !got.DueDate.Equal(time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("due date = %v", got.DueDate)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("created_at %v != %v", got.CreatedAt, created.CreatedAt)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	for name, in := range map[string]CreateInput{
		"no title":     {OwnerID: "u1", Title: "   "},
		"no owner":     {Title: "x"},
		"bad priority": {OwnerID: "u1", Title: "x", Priority: "whenever"},
	} {
		if _, err := f.svc.Create(context.Background(), in); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
	if _, err := f.svc.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing get err = %v", err)
	}
}

func TestSnoozeRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t)
	now := f.clk.t

	if _, err := f.svc.Snooze(ctx, task.ID, now.Add(-time.Hour)); !errors.Is(err, ErrSnoozeInPast) {
		t.Errorf("past: %v", err)
	}
	if _, err := f.svc.Snooze(ctx, task.ID, now); !errors.Is(err, ErrSnoozeInPast) {
		t.Errorf("now: %v", err)
	}
	if _, err := f.svc.Snooze(ctx, task.ID, now.Add(7*day+time.Second)); !errors.Is(err, ErrSnoozeTooFar) {
		t.Errorf("beyond 7 days: %v", err)
	}

	snoozed, err := f.svc.Snooze(ctx, task.ID, now.Add(2*day))
	if err != nil {
		t.Fatalf("snooze: %v", err)
	}
	if snoozed.Status != model.TaskSnoozed || snoozed.SnoozeCount != 1 {
		t.Errorf("after snooze: %+v", snoozed)
	}
	if snoozed.FirstSnoozedAt == nil || !snoozed.FirstSnoozedAt.Equal(now) {
		t.Errorf("first_snoozed_at = %v", snoozed.FirstSnoozedAt)
	}
	if snoozed.MaxSnoozeDate == nil || !snoozed.MaxSnoozeDate.Equal(now.Add(7*day)) {
		t.Errorf("max_snooze_date = %v", snoozed.MaxSnoozeDate)
	}

	// A later snooze is capped by the original deadline, not by its own now+7d.
	f.clk.advance(3 * day)
	if _, err := f.svc.Snooze(ctx, task.ID, f.clk.t.Add(5*day)); !errors.Is(err, ErrSnoozeTooFar) {
		t.Errorf("past original deadline: %v", err)
	}
	again, err := f.svc.Snooze(ctx, task.ID, now.Add(7*day))
	if err != nil {
		t.Fatalf("snooze up to deadline: %v", err)
	}
	if again.SnoozeCount != 2 || !again.FirstSnoozedAt.Equal(now) {
		t.Errorf("second snooze: %+v", again)
	}

	f.clk.t = now.Add(7*day + time.Minute)
	if _, err := f.svc.Snooze(ctx, task.ID, f.clk.t.Add(time.Hour)); !errors.Is(err, ErrSnoozeLimitReached) {
		t.Errorf("after deadline: %v", err)
	}
}

func TestSnoozeRejectsClosedTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t)

	if _, err := f.svc.Complete(ctx, task.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.Snooze(ctx, task.ID, f.clk.t.Add(day)); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("snooze completed: %v", err)
	}
	if _, err := f.svc.Complete(ctx, task.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("complete twice: %v", err)
	}
	if _, err := f.svc.Snooze(ctx, "missing", f.clk.t.Add(day)); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: %v", err)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t)

	if _, err := f.svc.Unsnooze(ctx, task.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("unsnooze pending: %v", err)
	}
	if _, err := f.svc.Snooze(ctx, task.ID, f.clk.t.Add(day)); err != nil {
		t.Fatal(err)
	}
	woke, err := f.svc.Unsnooze(ctx, task.ID)
	if err != nil || woke.Status != model.TaskPending || woke.SnoozedUntil != nil {
		t.Fatalf("unsnooze: %+v %v", woke, err)
	}

	started, err := f.svc.Start(ctx, task.ID)
	if err != nil || started.Status != model.TaskInProgress {
		t.Fatalf("start: %+v %v", started, err)
	}
	if _, err := f.svc.Start(ctx, task.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("start twice: %v", err)
	}

	moved, err := f.svc.Reassign(ctx, task.ID, "u2")
	if err != nil || moved.OwnerID != "u2" {
		t.Fatalf("reassign: %+v %v", moved, err)
	}
	if _, err := f.svc.Reassign(ctx, task.ID, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("reassign empty: %v", err)
	}

	if _, err := f.svc.Skip(ctx, task.ID, " "); !errors.Is(err, ErrValidation) {
		t.Errorf("skip without reason: %v", err)
	}
	skipped, err := f.svc.Skip(ctx, task.ID, "customer churned")
	if err != nil || skipped.Status != model.TaskSkipped || skipped.SkipReason != "customer churned" {
		t.Fatalf("skip: %+v %v", skipped, err)
	}

	list, err := f.svc.List(ctx, model.TaskFilter{OwnerID: "u2"})
	if err != nil || len(list) != 1 {
		t.Errorf("list by new owner = %d, %v", len(list), err)
	}
	if _, err := f.svc.List(ctx, model.TaskFilter{Status: "sleeping"}); !errors.Is(err, ErrValidation) {
		t.Errorf("list bad status: %v", err)
	}

	events, err := f.outbox.ListUnpublished(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	// create, snooze, unsnooze, start, reassign, skip
	if len(events) != 6 {
		t.Errorf("outbox events = %d, want 6", len(events))
	}
}

func TestWakeDueAndEnforceDeadlines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := f.clk.t

	short, long, pending := f.create(t), f.create(t), f.create(t)
	if _, err := f.svc.Snooze(ctx, short.ID, start.Add(day)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Snooze(ctx, long.ID, start.Add(6*day)); err != nil {
		t.Fatal(err)
	}

	f.clk.advance(day)
	n, err := f.svc.WakeDue(ctx)
	if err != nil || n != 1 {
		t.Fatalf("wake = %d, %v", n, err)
	}
	got, _ := f.svc.Get(ctx, short.ID)
	if got.Status != model.TaskPending || got.SnoozedUntil != nil {
		t.Errorf("short after wake: %+v", got)
	}
	got, _ = f.svc.Get(ctx, long.ID)
	if got.Status != model.TaskSnoozed {
		t.Errorf("long should still be snoozed: %+v", got)
	}

	if n, _ := f.svc.EnforceDeadlines(ctx); n != 0 {
		t.Errorf("nothing is past its deadline yet, enforced %d", n)
	}

	f.clk.t = start.Add(7*day + time.Hour)
	n, err = f.svc.EnforceDeadlines(ctx)
	if err != nil || n != 2 {
		t.Fatalf("enforce = %d, %v", n, err)
	}
	for _, id := range []string{short.ID, long.ID} {
		got, _ := f.svc.Get(ctx, id)
		if !got.ForceAction || got.Status != model.TaskPending {
			t.Errorf("%s after enforce: %+v", id, got)
		}
		if _, err := f.svc.Snooze(ctx, id, f.clk.t.Add(time.Hour)); !errors.Is(err, ErrSnoozeLimitReached) {
			t.Errorf("snooze forced task: %v", err)
		}
	}
	got, _ = f.svc.Get(ctx, pending.ID)
	if got.ForceAction {
		t.Error("never-snoozed task must not be forced")
	}

	if n, _ := f.svc.EnforceDeadlines(ctx); n != 0 {
		t.Errorf("second enforce touched %d tasks", n)
	}
}

// hookedTasks lets a test change rows between a read and the write that follows it.
type hookedTasks struct {
	*repository.TasksRepositoryImpl
	afterList func()
	staleGet  bool
}

func (r *hookedTasks) ListByStatus(ctx context.Context, statuses ...model.TaskStatus) ([]model.WorkflowTask, error) {
	rows, err := r.TasksRepositoryImpl.ListByStatus(ctx, statuses...)
	if r.afterList != nil {
		hook := r.afterList
		r.afterList = nil
		hook()
	}
	return rows, err
}

func (r *hookedTasks) Get(ctx context.Context, tx *sqlx.Tx, id string) (*model.WorkflowTask, error) {
	t, err := r.TasksRepositoryImpl.Get(ctx, tx, id)
	if t != nil && r.staleGet {
		t.Revision--
	}
	return t, err
}

func newHookedFixture(t *testing.T) (fixture, *hookedTasks) {
	t.Helper()
	dbx := dbtest.Open(t)
	outbox := repository.NewOutboxRepository(dbx)
	repo := &hookedTasks{TasksRepositoryImpl: repository.NewTasksRepository(dbx)}
	svc := New(dbx, repo, outbox, "renubu.tasks", 7)
	clk := &clock{t: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)}
	svc.Now = clk.now
	return fixture{svc: svc, outbox: outbox, clk: clk}, repo
}

func TestSweepSkipsTasksChangedAfterListing(t *testing.T) {
	f, repo := newHookedFixture(t)
	ctx := context.Background()
	task := f.create(t)
	if _, err := f.svc.Snooze(ctx, task.ID, f.clk.t.Add(day)); err != nil {
		t.Fatal(err)
	}
	f.clk.advance(7*day + time.Hour)

	repo.afterList = func() {
		if _, err := f.svc.Complete(ctx, task.ID); err != nil {
			t.Errorf("complete: %v", err)
		}
	}
	n, err := f.svc.EnforceDeadlines(ctx)
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if n != 0 {
		t.Errorf("enforced %d tasks, want 0", n)
	}

	got, _ := f.svc.Get(ctx, task.ID)
	if got.Status != model.TaskCompleted || got.CompletedAt == nil || got.ForceAction {
		t.Errorf("completed task overwritten by sweep: %+v", got)
	}
}

func TestWakeDueSkipsTasksChangedAfterListing(t *testing.T) {
	f, repo := newHookedFixture(t)
	ctx := context.Background()
	task := f.create(t)
	if _, err := f.svc.Snooze(ctx, task.ID, f.clk.t.Add(day)); err != nil {
		t.Fatal(err)
	}
	f.clk.advance(day)

	repo.afterList = func() {
		if _, err := f.svc.Skip(ctx, task.ID, "handled elsewhere"); err != nil {
			t.Errorf("skip: %v", err)
		}
	}
	if n, err := f.svc.WakeDue(ctx); err != nil || n != 0 {
		t.Fatalf("wake = %d, %v", n, err)
	}
	if got, _ := f.svc.Get(ctx, task.ID); got.Status != model.TaskSkipped {
		t.Errorf("status = %s, want skipped", got.Status)
	}
}

func TestMutateRejectsStaleRevision(t *testing.T) {
	f, repo := newHookedFixture(t)
	ctx := context.Background()
	task := f.create(t)

	repo.staleGet = true
	if _, err := f.svc.Start(ctx, task.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("start on stale read: %v", err)
	}
	repo.staleGet = false

	got, _ := f.svc.Get(ctx, task.ID)
	if got.Status != model.TaskPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
	started, err := f.svc.Start(ctx, task.ID)
	if err != nil || started.Status != model.TaskInProgress {
		t.Fatalf("start: %+v %v", started, err)
	}
	if _, err := f.svc.Complete(ctx, task.ID); err != nil {
		t.Errorf("complete after start: %v", err)
	}
}

func TestSnoozeUnderOneSecondAheadIsInPast(t *testing.T) {
	f := newFixture(t)
	task := f.create(t)

	_, err := f.svc.Snooze(context.Background(), task.ID, f.clk.t.Add(500*time.Millisecond))
	if !errors.Is(err, ErrSnoozeInPast) {
		t.Errorf("sub-second snooze: %v", err)
	}
}
