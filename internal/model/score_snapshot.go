package model

import "time"

// ScoreSnapshot is one row of score history kept in ClickHouse.
type ScoreSnapshot struct {
	CustomerID       string    `db:"customer_id" json:"customer_id"`
	RiskScore        float64   `db:"risk_score" json:"risk_score"`
	OpportunityScore float64   `db:"opportunity_score" json:"opportunity_score"`
	PriorityScore    float64   `db:"priority_score" json:"priority_score"`
	Quadrant         string    `db:"quadrant" json:"quadrant"`
	Tier             string    `db:"tier" json:"tier"`
	ARR              float64   `db:"arr" json:"arr"`
	ComputedAt       time.Time `db:"computed_at" json:"computed_at"`
}
