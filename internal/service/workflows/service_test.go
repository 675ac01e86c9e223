package workflows

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/renubu/renubu/internal/db/dbtest"
	"github.com/renubu/renubu/internal/model"
	"github.com/renubu/renubu/internal/repository"
	"github.com/renubu/renubu/internal/service/accounts"
	"github.com/renubu/renubu/internal/slides"
)

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	customer *model.Customer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	dbx := dbtest.Open(t)

	users := repository.NewUsersRepository(dbx)
	customers := repository.NewCustomersRepository(dbx)
	contracts := repository.NewContractsRepository(dbx)
	acct := accounts.New(dbx, customers, repository.NewSignalsRepository(dbx), contracts,
		repository.NewOutboxRepository(dbx), nil, "renubu.signals", 0)
	acct.Now = func() time.Time { return now }

	if err := users.Insert(ctx, nil, model.User{ID: "csm-1", Name: "Dana", Email: "dana@example.com", APIKey: "k1", Status: "active", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatal(err)
	}
	health := 85.0
	c, err := acct.CreateCustomer(ctx, accounts.CreateCustomerInput{
		Name: "Globex", OwnerID: "csm-1", ARR: 100000, SeatsPurchased: 100, SeatsActive: 80, HealthScore: &health,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := acct.AddContract(ctx, c.ID, accounts.ContractInput{StartDate: now.AddDate(-1, 0, 60), EndDate: now.AddDate(0, 0, 60), ARR: 100000}); err != nil {
		t.Fatal(err)
	}

	lib, err := slides.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	svc := New(repository.NewExecutionsRepository(dbx), customers, users, contracts, lib, acct)
	svc.Now = func() time.Time { return now }
	return fixture{svc: svc, customer: c}
}

func TestStartAdvanceComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.svc.Start(ctx, f.customer.ID, "renewal-planning", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if e.OwnerID != "csm-1" || e.Status != model.ExecutionInProgress || e.CurrentSlide != 0 {
		t.Errorf("started %+v", e)
	}

	for i := 1; i <= 2; i++ {
		e, err = f.svc.Advance(ctx, e.ID)
		if err != nil || e.CurrentSlide != i || e.Status != model.ExecutionInProgress {
			t.Fatalf("advance %d: %+v %v", i, e, err)
		}
	}
	e, err = f.svc.Advance(ctx, e.ID)
	if err != nil || e.Status != model.ExecutionCompleted || e.CompletedAt == nil || e.CurrentSlide != 2 {
		t.Fatalf("advance past last: %+v %v", e, err)
	}
	if _, err := f.svc.Advance(ctx, e.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("advance completed: %v", err)
	}
	if _, err := f.svc.Abandon(ctx, e.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("abandon completed: %v", err)
	}

	stored, err := f.svc.Get(ctx, e.ID)
	if err != nil || stored.Status != model.ExecutionCompleted {
		t.Errorf("stored %+v %v", stored, err)
	}
}

func TestStartErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Start(ctx, f.customer.ID, "nope", ""); !errors.Is(err, ErrWorkflowNotFound) {
		t.Errorf("unknown workflow: %v", err)
	}
	if _, err := f.svc.Start(ctx, "missing", "risk-rescue", ""); !errors.Is(err, ErrCustomerNotFound) {
		t.Errorf("unknown customer: %v", err)
	}
	if _, err := f.svc.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown execution: %v", err)
	}
}

func TestAbandon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, _ := f.svc.Start(ctx, f.customer.ID, "risk-rescue", "csm-1")

	e, err := f.svc.Abandon(ctx, e.ID)
	if err != nil || e.Status != model.ExecutionAbandoned {
		t.Fatalf("abandon: %+v %v", e, err)
	}
	if _, err := f.svc.Advance(ctx, e.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("advance abandoned: %v", err)
	}
}

func TestRenderCurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, _ := f.svc.Start(ctx, f.customer.ID, "renewal-planning", "")

	r, err := f.svc.RenderCurrent(ctx, e.ID)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if r.Index != 0 || r.Total != 3 || r.Slide.Title != "Globex renewal overview" {
		t.Errorf("rendered %+v", r)
	}
	if !strings.Contains(r.Slide.Chat[0].Text, "Dec 18, 2026") || !strings.Contains(r.Slide.Chat[0].Text, "$100,000") {
		t.Errorf("chat = %q", r.Slide.Chat[0].Text)
	}

	_, _ = f.svc.Advance(ctx, e.ID)
	_, _ = f.svc.Advance(ctx, e.ID)
	r, err = f.svc.RenderCurrent(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(r.Slide.Chat[0].Text, "pending") || !strings.Contains(r.Slide.Chat[0].Text, "confidence") {
		t.Errorf("pricing should be filled in: %q", r.Slide.Chat[0].Text)
	}
	if !strings.Contains(r.Slide.Document, "Prepared by Dana") {
		t.Errorf("csm missing from document: %q", r.Slide.Document)
	}
}

func TestWorkflowsListsLibrary(t *testing.T) {
	f := newFixture(t)
	if len(f.svc.Workflows()) < 3 {
		t.Errorf("workflows = %d", len(f.svc.Workflows()))
	}
}
