package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/renubu/renubu/internal/model"
)

// CustomerFilter narrows customer listings; zero values mean "any".
type CustomerFilter struct {
	OwnerID  string
	Tier     string
	Quadrant string
	Limit    int
	Offset   int
}

type CustomersRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, c model.Customer) error
	Get(ctx context.Context, id string) (*model.Customer, error)
	List(ctx context.Context, f CustomerFilter) ([]model.Customer, error)
	UpdateMetrics(ctx context.Context, tx *sqlx.Tx, c model.Customer) error
	UpdateScores(ctx context.Context, tx *sqlx.Tx, c model.Customer) error
}

type CustomersRepositoryImpl struct {
	db *sqlx.DB
}

func NewCustomersRepository(db *sqlx.DB) *CustomersRepositoryImpl {
	return &CustomersRepositoryImpl{db: db}
}

var _ CustomersRepository = (*CustomersRepositoryImpl)(nil)

const customerColumns = `id, name, domain, owner_id, arr, seats_purchased, seats_active, health_score,
	usage_trend, nps, open_tickets, renewal_date, tier, risk_score, opportunity_score, priority_score,
	quadrant, scored_at, created_at, updated_at`

func (r *CustomersRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, c model.Customer) error {
	const q = `
		INSERT INTO customers
		    (id, name, domain, owner_id, arr, seats_purchased, seats_active, health_score,
		     usage_trend, nps, open_tickets, renewal_date, tier, risk_score, opportunity_score,
		     priority_score, quadrant, scored_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(q),
			c.ID, c.Name, c.Domain, c.OwnerID, c.ARR, c.SeatsPurchased, c.SeatsActive, c.HealthScore,
			c.UsageTrend, c.NPS, c.OpenTickets, nullDate(c.RenewalDate), c.Tier, c.RiskScore,
			c.OpportunityScore, c.PriorityScore, c.Quadrant, nullTime(c.ScoredAt),
			model.Timestamp(c.CreatedAt), model.Timestamp(c.UpdatedAt),
		)
		return err
	})
}

// Get returns (nil, nil) when the customer does not exist.
func (r *CustomersRepositoryImpl) Get(ctx context.Context, id string) (*model.Customer, error) {
	var c model.Customer
	err := r.db.GetContext(ctx, &c, r.db.Rebind(`SELECT `+customerColumns+` FROM customers WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns customers ordered by priority, highest first.
func (r *CustomersRepositoryImpl) List(ctx context.Context, f CustomerFilter) ([]model.Customer, error) {
	limit, offset := clampPage(f.Limit, f.Offset)

	var where []string
	var args []any
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.Tier != "" {
		where = append(where, "tier = ?")
		args = append(args, f.Tier)
	}
	if f.Quadrant != "" {
		where = append(where, "quadrant = ?")
		args = append(args, f.Quadrant)
	}

	q := `SELECT ` + customerColumns + ` FROM customers`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY priority_score DESC, name ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.Customer
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CustomersRepositoryImpl) UpdateMetrics(ctx context.Context, tx *sqlx.Tx, c model.Customer) error {
	const q = `
		UPDATE customers
		   SET arr = ?, seats_purchased = ?, seats_active = ?, health_score = ?, usage_trend = ?,
		       nps = ?, open_tickets = ?, renewal_date = ?, tier = ?, updated_at = ?
		 WHERE id = ?
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(q),
			c.ARR, c.SeatsPurchased, c.SeatsActive, c.HealthScore, c.UsageTrend,
			c.NPS, c.OpenTickets, nullDate(c.RenewalDate), c.Tier, model.Timestamp(c.UpdatedAt),
			c.ID,
		)
		return err
	})
}

func (r *CustomersRepositoryImpl) UpdateScores(ctx context.Context, tx *sqlx.Tx, c model.Customer) error {
	const q = `
		UPDATE customers
		   SET tier = ?, risk_score = ?, opportunity_score = ?, priority_score = ?, quadrant = ?,
		       scored_at = ?, updated_at = ?
		 WHERE id = ?
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(q),
			c.Tier, c.RiskScore, c.OpportunityScore, c.PriorityScore, c.Quadrant,
			nullTime(c.ScoredAt), model.Timestamp(c.UpdatedAt), c.ID,
		)
		return err
	})
}
