package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/renubu/renubu/internal/model"
)

type ContractsRepository interface {
	InsertContract(ctx context.Context, tx *sqlx.Tx, c model.Contract) error
	InsertRenewal(ctx context.Context, tx *sqlx.Tx, rn model.Renewal) error
	ListByCustomer(ctx context.Context, customerID string) ([]model.Contract, error)
	// RenewalsBetween returns open renewals dated within [from, to], joined with their customer.
	RenewalsBetween(ctx context.Context, from, to time.Time) ([]model.UpcomingRenewal, error)
	// NextOpenRenewal returns the customer's earliest open renewal, or (nil, nil).
	NextOpenRenewal(ctx context.Context, customerID string) (*model.Renewal, error)
}

type ContractsRepositoryImpl struct {
	db *sqlx.DB
}

func NewContractsRepository(db *sqlx.DB) *ContractsRepositoryImpl {
	return &ContractsRepositoryImpl{db: db}
}

var _ ContractsRepository = (*ContractsRepositoryImpl)(nil)

func (r *ContractsRepositoryImpl) InsertContract(ctx context.Context, tx *sqlx.Tx, c model.Contract) error {
	const q = `
		INSERT INTO contracts (id, customer_id, start_date, end_date, arr, seats, auto_renew, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(q),
			c.ID, c.CustomerID, model.DateOf(c.StartDate), model.DateOf(c.EndDate), c.ARR, c.Seats, c.AutoRenew,
			model.Timestamp(c.CreatedAt), model.Timestamp(c.UpdatedAt),
		)
		return err
	})
}

func (r *ContractsRepositoryImpl) InsertRenewal(ctx context.Context, tx *sqlx.Tx, rn model.Renewal) error {
	const q = `
		INSERT INTO renewals (id, customer_id, contract_id, renewal_date, stage, probability, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(q),
			rn.ID, rn.CustomerID, rn.ContractID, model.DateOf(rn.RenewalDate), string(rn.Stage), rn.Probability,
			model.Timestamp(rn.CreatedAt), model.Timestamp(rn.UpdatedAt),
		)
		return err
	})
}

func (r *ContractsRepositoryImpl) ListByCustomer(ctx context.Context, customerID string) ([]model.Contract, error) {
	const q = `
		SELECT id, customer_id, start_date, end_date, arr, seats, auto_renew, created_at, updated_at
		  FROM contracts
		 WHERE customer_id = ?
		 ORDER BY end_date DESC
	`
	var rows []model.Contract
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), customerID); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ContractsRepositoryImpl) RenewalsBetween(ctx context.Context, from, to time.Time) ([]model.UpcomingRenewal, error) {
	const q = `
		SELECT r.id, r.customer_id, r.contract_id, r.renewal_date, r.stage, r.probability,
		       r.created_at, r.updated_at,
		       c.name AS customer_name, c.arr AS customer_arr, c.priority_score
		  FROM renewals r
		  JOIN customers c ON c.id = r.customer_id
		 WHERE r.stage NOT IN (?, ?)
		   AND r.renewal_date >= ? AND r.renewal_date <= ?
		 ORDER BY r.renewal_date ASC
	`
	var rows []model.UpcomingRenewal
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q),
		string(model.StageClosedWon), string(model.StageClosedLost),
		model.DateOf(from), model.DateOf(to),
	)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].DaysUntil = model.DaysBetween(from, rows[i].RenewalDate)
	}
	return rows, nil
}

func (r *ContractsRepositoryImpl) NextOpenRenewal(ctx context.Context, customerID string) (*model.Renewal, error) {
	const q = `
		SELECT id, customer_id, contract_id, renewal_date, stage, probability, created_at, updated_at
		  FROM renewals
		 WHERE customer_id = ? AND stage NOT IN (?, ?)
		 ORDER BY renewal_date ASC
	`
	var rows []model.Renewal
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), customerID, string(model.StageClosedWon), string(model.StageClosedLost)); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	next := rows[0]
	for _, rn := range rows[1:] {
		if rn.RenewalDate.Before(next.RenewalDate) {
			next = rn
		}
	}
	return &next, nil
}
