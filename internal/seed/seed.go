// Package seed loads the demo dataset: a CSM, a book of customers with
// contracts and signals, open tasks, calendar events and founder tasks.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/renubu/renubu/internal/app"
	"github.com/renubu/renubu/internal/logger"
	"github.com/renubu/renubu/internal/model"
	"github.com/renubu/renubu/internal/service/accounts"
	"github.com/renubu/renubu/internal/service/founder"
	"github.com/renubu/renubu/internal/service/schedule"
	"github.com/renubu/renubu/internal/service/tasks"
	"go.uber.org/zap"
)

const DemoUserID = "demo-csm"

type demoCustomer struct {
	in           accounts.CreateCustomerInput
	renewalIn    int // days until contract end
	signals      []accounts.SignalInput
	followUp     string
	followUpPrio string
}

func f64(v float64) *float64 { return &v }

var demoCustomers = []demoCustomer{
	{
		in:        accounts.CreateCustomerInput{Name: "Acme Corp", Domain: "acme.com", ARR: 180_000, SeatsPurchased: 250, SeatsActive: 241, HealthScore: f64(88), UsageTrend: 0.18, NPS: 62},
		renewalIn: 75,
		signals:   []accounts.SignalInput{{Kind: "seat_request", Weight: 3}, {Kind: "new_department", Weight: 2}},
		followUp:  "Scope expansion for the analytics team", followUpPrio: "high",
	},
	{
		in:        accounts.CreateCustomerInput{Name: "Globex", Domain: "globex.io", ARR: 42_000, SeatsPurchased: 80, SeatsActive: 31, HealthScore: f64(34), UsageTrend: -0.35, NPS: -20, OpenTickets: 5},
		renewalIn: 24,
		signals:   []accounts.SignalInput{{Kind: "champion_left", Weight: 4}, {Kind: "usage_drop", Weight: 3}},
		followUp:  "Find a new champion before renewal", followUpPrio: "urgent",
	},
	{
		in:        accounts.CreateCustomerInput{Name: "Initech", Domain: "initech.com", ARR: 12_500, SeatsPurchased: 25, SeatsActive: 20, HealthScore: f64(71), UsageTrend: 0.02, NPS: 30},
		renewalIn: 160,
	},
	{
		in:        accounts.CreateCustomerInput{Name: "Umbrella Health", Domain: "umbrella-health.com", ARR: 96_000, SeatsPurchased: 120, SeatsActive: 118, HealthScore: f64(41), UsageTrend: 0.4, NPS: 10, OpenTickets: 7},
		renewalIn: 45,
		signals:   []accounts.SignalInput{{Kind: "support_escalation", Weight: 3}, {Kind: "usage_spike", Weight: 4}},
		followUp:  "Run the save-and-expand playbook", followUpPrio: "high",
	},
	{
		in:        accounts.CreateCustomerInput{Name: "Hooli Labs", Domain: "hooli.dev", ARR: 3_600, SeatsPurchased: 10, SeatsActive: 4, HealthScore: f64(55), UsageTrend: -0.1, NPS: 0},
		renewalIn: 300,
	},
}

var demoFounderTasks = []struct {
	title string
	in    int
}{
	{"Send investor update", -1},
	{"Approve payroll", 0},
	{"Review Q4 pricing proposal", 2},
	{"Prepare board deck", 6},
	{"Plan offsite", 21},
}

// Demo loads the dataset once; it is a no-op when the demo user already exists.
func Demo(ctx context.Context, a *app.App, demoKey string, now time.Time) error {
	log := logger.Named("seed")
	existing, err := a.Users.GetByAPIKey(ctx, demoKey)
	if err != nil {
		return fmt.Errorf("lookup demo user: %w", err)
	}
	if existing != nil {
		log.Info("demo data already present")
		return nil
	}

	rps := 50
	if err := a.Users.Insert(ctx, nil, model.User{
		ID:           DemoUserID,
		Name:         "Demo CSM",
		Email:        "csm@renubu.demo",
		APIKey:       demoKey,
		Status:       "active",
		RateLimitRPS: &rps,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		return fmt.Errorf("insert demo user: %w", err)
	}

	today := model.DateOf(now)
	for _, dc := range demoCustomers {
		in := dc.in
		in.OwnerID = DemoUserID
		c, err := a.Accounts.CreateCustomer(ctx, in)
		if err != nil {
			return fmt.Errorf("customer %s: %w", in.Name, err)
		}
		end := today.AddDate(0, 0, dc.renewalIn)
		if _, err := a.Accounts.AddContract(ctx, c.ID, accounts.ContractInput{
			StartDate: end.AddDate(-1, 0, 0),
			EndDate:   end,
			ARR:       in.ARR,
			Seats:     in.SeatsPurchased,
			AutoRenew: dc.renewalIn > 90,
		}); err != nil {
			return fmt.Errorf("contract %s: %w", in.Name, err)
		}
		for _, sig := range dc.signals {
			if _, err := a.Accounts.RecordSignal(ctx, c.ID, sig); err != nil {
				return fmt.Errorf("signal %s/%s: %w", in.Name, sig.Kind, err)
			}
		}
		if _, err := a.Accounts.Rescore(ctx, c.ID); err != nil {
			return fmt.Errorf("rescore %s: %w", in.Name, err)
		}
		if dc.followUp != "" {
			due := today.AddDate(0, 0, 3)
			if _, err := a.Tasks.Create(ctx, tasks.CreateInput{
				OwnerID:    DemoUserID,
				CustomerID: c.ID,
				Title:      dc.followUp,
				Priority:   dc.followUpPrio,
				DueDate:    &due,
			}); err != nil {
				return fmt.Errorf("task %s: %w", in.Name, err)
			}
		}
	}

	for _, ev := range []struct {
		title       string
		day, h, dur int
	}{
		{"Pipeline review", 1, 9, 60},
		{"Globex escalation call", 1, 11, 30},
		{"1:1 with manager", 2, 14, 45},
	} {
		start := today.AddDate(0, 0, ev.day).Add(time.Duration(ev.h) * time.Hour)
		if _, err := a.Schedule.CreateEvent(ctx, schedule.EventInput{
			OwnerID:  DemoUserID,
			Title:    ev.title,
			StartsAt: start,
			EndsAt:   start.Add(time.Duration(ev.dur) * time.Minute),
		}); err != nil {
			return fmt.Errorf("event %s: %w", ev.title, err)
		}
	}

	for _, ft := range demoFounderTasks {
		if _, err := a.Founder.AddTask(ctx, founder.AddTaskInput{
			Title:   ft.title,
			DueDate: today.AddDate(0, 0, ft.in).Format("2006-01-02"),
		}); err != nil {
			return fmt.Errorf("founder task %s: %w", ft.title, err)
		}
	}

	log.Info("demo data seeded",
		zap.Int("customers", len(demoCustomers)),
		zap.Int("founder_tasks", len(demoFounderTasks)),
	)
	return nil
}
