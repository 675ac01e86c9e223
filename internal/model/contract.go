package model

import "time"

type Contract struct {
	ID         string    `db:"id" json:"id"`
	CustomerID string    `db:"customer_id" json:"customer_id"`
	StartDate  time.Time `db:"start_date" json:"start_date"`
	EndDate    time.Time `db:"end_date" json:"end_date"`
	ARR        float64   `db:"arr" json:"arr"`
	Seats      int       `db:"seats" json:"seats"`
	AutoRenew  bool      `db:"auto_renew" json:"auto_renew"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

type RenewalStage string

const (
	StagePlanning    RenewalStage = "planning"
	StageOutreach    RenewalStage = "outreach"
	StageNegotiation RenewalStage = "negotiation"
	StageClosedWon   RenewalStage = "closed_won"
	StageClosedLost  RenewalStage = "closed_lost"
)

func (s RenewalStage) Open() bool {
	return s != StageClosedWon && s != StageClosedLost
}

type Renewal struct {
	ID          string       `db:"id" json:"id"`
	CustomerID  string       `db:"customer_id" json:"customer_id"`
	ContractID  string       `db:"contract_id" json:"contract_id"`
	RenewalDate time.Time    `db:"renewal_date" json:"renewal_date"`
	Stage       RenewalStage `db:"stage" json:"stage"`
	Probability float64      `db:"probability" json:"probability"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// UpcomingRenewal is a renewal joined with the customer fields a CSM needs to triage it.
type UpcomingRenewal struct {
	Renewal
	CustomerName  string  `db:"customer_name" json:"customer_name"`
	CustomerARR   float64 `db:"customer_arr" json:"customer_arr"`
	PriorityScore float64 `db:"priority_score" json:"priority_score"`
	DaysUntil     int     `db:"-" json:"days_until"`
}
