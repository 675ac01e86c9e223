package seed

import (
	"context"
	"testing"
	"time"

	"github.com/renubu/renubu/internal/app"
	"github.com/renubu/renubu/internal/config"
	"github.com/renubu/renubu/internal/db/dbtest"
	"github.com/renubu/renubu/internal/model"
	"github.com/renubu/renubu/internal/repository"
)

func TestDemoSeedsOnce(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	a, err := app.New(cfg, dbtest.Open(t), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 2; i++ {
		if err := Demo(ctx, a, cfg.App.DemoKey, now); err != nil {
			t.Fatalf("seed run %d: %v", i, err)
		}
	}

	u, err := a.Users.GetByAPIKey(ctx, cfg.App.DemoKey)
	if err != nil || u == nil || u.ID != DemoUserID {
		t.Fatalf("demo user = %+v, %v", u, err)
	}

	customers, err := a.Accounts.ListCustomers(ctx, repository.CustomerFilter{OwnerID: DemoUserID})
	if err != nil {
		t.Fatal(err)
	}
	if len(customers) != len(demoCustomers) {
		t.Fatalf("customers = %d", len(customers))
	}
	for _, c := range customers {
		if c.ScoredAt == nil || c.Quadrant == "" || c.RenewalDate == nil {
			t.Errorf("customer %s not scored: %+v", c.Name, c)
		}
	}

	tasks, err := a.Tasks.List(ctx, model.TaskFilter{OwnerID: DemoUserID})
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 3 {
		t.Errorf("tasks = %d", len(tasks))
	}

	sum, err := a.Founder.UrgentTasks(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Tasks.Overdue) != 1 || len(sum.Tasks.Critical) != 1 || len(sum.Tasks.Urgent) != 1 || len(sum.Tasks.Upcoming) != 1 {
		t.Errorf("founder buckets = %+v", sum.Tasks)
	}
}
