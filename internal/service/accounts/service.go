// Package accounts manages customers, their signals and the scores derived from them.
package accounts

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
	"github.com/renubu/renubu/internal/scoring"
	"github.com/renubu/renubu/internal/service/events"
	"github.com/renubu/renubu/internal/util"
	"go.uber.org/zap"
)

const aggregate = "customer"

var (
	ErrNotFound   = errors.New("customer not found")
	ErrValidation = errors.New("invalid customer data")
)

// SnapshotSink receives score history. ClickHouse in production, NopSink otherwise.
type SnapshotSink interface {
	Append(ctx context.Context, snaps []model.ScoreSnapshot) error
}

type NopSink struct{}

func (NopSink) Append(context.Context, []model.ScoreSnapshot) error { return nil }

type Service struct {
	db        *sqlx.DB
	customers repository.CustomersRepository
	signals   repository.SignalsRepository
	contracts repository.ContractsRepository
	outbox    repository.OutboxRepository
	sink      SnapshotSink
	engine    *scoring.Engine

	signalsTopic string
	lookback     time.Duration

	Now func() time.Time
}

func New(
	db *sqlx.DB,
	customersRepo repository.CustomersRepository,
	signalsRepo repository.SignalsRepository,
	contractsRepo repository.ContractsRepository,
	outboxRepo repository.OutboxRepository,
	sink SnapshotSink,
	signalsTopic string,
	lookback time.Duration,
) *Service {
	if sink == nil {
		sink = NopSink{}
	}
	if lookback <= 0 {
		lookback = 90 * 24 * time.Hour
	}
	return &Service{
		db:           db,
		customers:    customersRepo,
		signals:      signalsRepo,
		contracts:    contractsRepo,
		outbox:       outboxRepo,
		sink:         sink,
		engine:       scoring.NewEngine(),
		signalsTopic: signalsTopic,
		lookback:     lookback,
		Now:          time.Now,
	}
}

func (s *Service) now() time.Time { return model.Timestamp(s.Now()) }

type CreateCustomerInput struct {
	Name           string     `json:"name"`
	Domain         string     `json:"domain"`
	OwnerID        string     `json:"owner_id"`
	ARR            float64    `json:"arr"`
	SeatsPurchased int        `json:"seats_purchased"`
	SeatsActive    int        `json:"seats_active"`
	HealthScore    *float64   `json:"health_score"`
	UsageTrend     float64    `json:"usage_trend"`
	NPS            int        `json:"nps"`
	OpenTickets    int        `json:"open_tickets"`
	RenewalDate    *time.Time `json:"renewal_date"`
}

func (s *Service) CreateCustomer(ctx context.Context, in CreateCustomerInput) (*model.Customer, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	health := 50.0
	if in.HealthScore != nil {
		health = *in.HealthScore
	}

	now := s.now()
	c := model.Customer{
		ID:        util.NewID(),
		Name:      name,
		Domain:    util.NormalizeDomain(in.Domain),
		OwnerID:   in.OwnerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	model.CustomerMetrics{
		ARR:            &in.ARR,
		SeatsPurchased: &in.SeatsPurchased,
		SeatsActive:    &in.SeatsActive,
		HealthScore:    &health,
		UsageTrend:     &in.UsageTrend,
		NPS:            &in.NPS,
		OpenTickets:    &in.OpenTickets,
		RenewalDate:    in.RenewalDate,
	}.Apply(&c)
	if err := validateMetrics(c); err != nil {
		return nil, err
	}
	c.Tier = string(s.engine.Tiers.RuleFor(c.ARR).Tier)

	if err := s.customers.Insert(ctx, nil, c); err != nil {
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	return &c, nil
}

func (s *Service) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	c, err := s.customers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *Service) ListCustomers(ctx context.Context, f repository.CustomerFilter) ([]model.Customer, error) {
	return s.customers.List(ctx, f)
}

// UpdateMetrics applies the set fields and re-derives the tier. Scores are left
// untouched until the next Rescore.
func (s *Service) UpdateMetrics(ctx context.Context, id string, m model.CustomerMetrics) (*model.Customer, error) {
	c, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Apply(c)
	if err := validateMetrics(*c); err != nil {
		return nil, err
	}
	c.Tier = string(s.engine.Tiers.RuleFor(c.ARR).Tier)
	c.UpdatedAt = s.now()

	if err := s.customers.UpdateMetrics(ctx, nil, *c); err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return c, nil
}

func validateMetrics(c model.Customer) error {
	switch {
	case c.ARR < 0:
		return fmt.Errorf("%w: arr must not be negative", ErrValidation)
	case c.SeatsPurchased < 0 || c.SeatsActive < 0:
		return fmt.Errorf("%w: seat counts must not be negative", ErrValidation)
	case c.HealthScore < 0 || c.HealthScore > 100:
		return fmt.Errorf("%w: health_score must be within 0..100", ErrValidation)
	case c.UsageTrend < -1 || c.UsageTrend > 1:
		return fmt.Errorf("%w: usage_trend must be within -1..1", ErrValidation)
	case c.NPS < -100 || c.NPS > 100:
		return fmt.Errorf("%w: nps must be within -100..100", ErrValidation)
	case c.OpenTickets < 0:
		return fmt.Errorf("%w: open_tickets must not be negative", ErrValidation)
	}
	return nil
}

type SignalInput struct {
	Kind       string     `json:"kind"`
	Category   string     `json:"category"`
	Weight     int        `json:"weight"`
	Note       string     `json:"note"`
	OccurredAt *time.Time `json:"occurred_at"`
}

// RecordSignal stores a risk/opportunity signal and queues a rescore event.
func (s *Service) RecordSignal(ctx context.Context, customerID string, in SignalInput) (*model.Signal, error) {
	kind := strings.ToLower(strings.TrimSpace(in.Kind))
	if kind == "" {
		return nil, fmt.Errorf("%w: signal kind is required", ErrValidation)
	}
	cat := model.SignalCategory(strings.ToLower(strings.TrimSpace(in.Category)))
	if cat == "" {
		known, ok := model.CategoryForKind(kind)
		if !ok {
			return nil, fmt.Errorf("%w: category is required for custom signal kind %q", ErrValidation, kind)
		}
		cat = known
	}
	if !cat.Valid() {
		return nil, fmt.Errorf("%w: unknown signal category %q", ErrValidation, cat)
	}
	weight := in.Weight
	if weight == 0 {
		weight = 1
	}
	if weight < 1 || weight > 5 {
		return nil, fmt.Errorf("%w: weight must be within 1..5", ErrValidation)
	}
	if _, err := s.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	now := s.now()
	sig := model.Signal{
		ID:         util.NewID(),
		CustomerID: customerID,
		Kind:       kind,
		Category:   cat,
		Weight:     weight,
		Note:       in.Note,
		OccurredAt: now,
		CreatedAt:  now,
	}
	if in.OccurredAt != nil {
		sig.OccurredAt = model.Timestamp(*in.OccurredAt)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.signals.Insert(ctx, tx, sig); err != nil {
		return nil, fmt.Errorf("insert signal: %w", err)
	}
	if err := events.Record(ctx, tx, s.outbox, aggregate, s.signalsTopic, "signal.recorded", customerID, now, map[string]any{
		"signal_id": sig.ID,
		"kind":      sig.Kind,
		"category":  sig.Category,
		"weight":    sig.Weight,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sig, nil
}

// RescoreResult is the refreshed customer plus the full scoring breakdown.
type RescoreResult struct {
	Customer model.Customer `json:"customer"`
	Score    scoring.Result `json:"score"`
}

// Rescore recomputes and persists a customer's scores from its metrics and recent signals.
func (s *Service) Rescore(ctx context.Context, id string) (*RescoreResult, error) {
	c, in, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	res := s.engine.Score(in)

	now := s.now()
	c.Tier = string(res.Tier)
	c.RiskScore = res.RiskScore
	c.OpportunityScore = res.OpportunityScore
	c.PriorityScore = res.PriorityScore
	c.Quadrant = string(res.Quadrant)
	c.ScoredAt = &now
	c.UpdatedAt = now

	if err := s.customers.UpdateScores(ctx, nil, *c); err != nil {
		return nil, fmt.Errorf("update scores: %w", err)
	}
	metrics.ScoresComputed.WithLabelValues(c.Quadrant).Inc()

	snap := model.ScoreSnapshot{
		CustomerID:       c.ID,
		RiskScore:        c.RiskScore,
		OpportunityScore: c.OpportunityScore,
		PriorityScore:    c.PriorityScore,
		Quadrant:         c.Quadrant,
		Tier:             c.Tier,
		ARR:              c.ARR,
		ComputedAt:       now,
	}
	// Score history is best effort; the relational row is authoritative.
	if err := s.sink.Append(ctx, []model.ScoreSnapshot{snap}); err != nil {
		logger.Named("accounts").Warn("score snapshot append failed", zap.String("customer_id", c.ID), zap.Error(err))
	}

	return &RescoreResult{Customer: *c, Score: res}, nil
}

// PriceRecommendation scores the customer as of now and derives a renewal price.
func (s *Service) PriceRecommendation(ctx context.Context, id string) (*scoring.PriceRecommendation, error) {
	_, in, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	res := s.engine.Score(in)
	rec := s.engine.RecommendPrice(in, res)
	return &rec, nil
}

func (s *Service) load(ctx context.Context, id string) (*model.Customer, scoring.Input, error) {
	c, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, scoring.Input{}, err
	}
	now := s.now()
	sigs, err := s.signals.ListSince(ctx, id, now.Add(-s.lookback))
	if err != nil {
		return nil, scoring.Input{}, fmt.Errorf("load signals: %w", err)
	}
	return c, InputFor(*c, sigs, now), nil
}

// InputFor converts a stored customer and its signals into scoring input.
func InputFor(c model.Customer, sigs []model.Signal, now time.Time) scoring.Input {
	in := scoring.Input{
		ARR:             c.ARR,
		HealthScore:     c.HealthScore,
		UsageTrend:      c.UsageTrend,
		SeatUtilization: c.SeatUtilization(),
		NPS:             c.NPS,
		OpenTickets:     c.OpenTickets,
		DaysToRenewal:   c.DaysToRenewal(now),
	}
	for _, sg := range sigs {
		switch sg.Category {
		case model.SignalRisk:
			in.RiskSignals += sg.Weight
		case model.SignalOpportunity:
			in.OpportunitySignals += sg.Weight
		}
	}
	return in
}

func (s *Service) ListContracts(ctx context.Context, customerID string) ([]model.Contract, error) {
	if _, err := s.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.contracts.ListByCustomer(ctx, customerID)
}

// UpcomingRenewals lists open renewals due within the next days (default 90, at most 365).
func (s *Service) UpcomingRenewals(ctx context.Context, days int) ([]model.UpcomingRenewal, error) {
	if days < 0 {
		return nil, fmt.Errorf("%w: days must not be negative", ErrValidation)
	}
	if days == 0 {
		days = 90
	}
	if days > 365 {
		days = 365
	}
	now := s.now()
	return s.contracts.RenewalsBetween(ctx, now, now.AddDate(0, 0, days))
}

type ContractInput struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	ARR       float64   `json:"arr"`
	Seats     int       `json:"seats"`
	AutoRenew bool      `json:"auto_renew"`
}

// AddContract stores a contract and opens a planning renewal on its end date.
// The customer's renewal date moves to the contract end when unset or later.
func (s *Service) AddContract(ctx context.Context, customerID string, in ContractInput) (*model.Contract, error) {
	if !in.EndDate.After(in.StartDate) {
		return nil, fmt.Errorf("%w: contract must end after it starts", ErrValidation)
	}
	c, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ct := model.Contract{
		ID: util.NewID(), CustomerID: customerID,
		StartDate: model.DateOf(in.StartDate), EndDate: model.DateOf(in.EndDate),
		ARR: in.ARR, Seats: in.Seats, AutoRenew: in.AutoRenew,
		CreatedAt: now, UpdatedAt: now,
	}
	rn := model.Renewal{
		ID: util.NewID(), CustomerID: customerID, ContractID: ct.ID,
		RenewalDate: ct.EndDate, Stage: model.StagePlanning, Probability: 0.5,
		CreatedAt: now, UpdatedAt: now,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.contracts.InsertContract(ctx, tx, ct); err != nil {
		return nil, fmt.Errorf("insert contract: %w", err)
	}
	if err := s.contracts.InsertRenewal(ctx, tx, rn); err != nil {
		return nil, fmt.Errorf("insert renewal: %w", err)
	}
	if c.RenewalDate == nil || c.RenewalDate.After(ct.EndDate) {
		end := ct.EndDate
		c.RenewalDate = &end
		c.UpdatedAt = now
		if err := s.customers.UpdateMetrics(ctx, tx, *c); err != nil {
			return nil, fmt.Errorf("update renewal date: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &ct, nil
}
