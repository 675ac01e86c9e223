package model

import "time"

// Customer is a customer account managed by a CSM.
type Customer struct {
	ID             string     `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Domain         string     `db:"domain" json:"domain"`
	OwnerID        string     `db:"owner_id" json:"owner_id"`
	ARR            float64    `db:"arr" json:"arr"`
	SeatsPurchased int        `db:"seats_purchased" json:"seats_purchased"`
	SeatsActive    int        `db:"seats_active" json:"seats_active"`
	HealthScore    float64    `db:"health_score" json:"health_score"`
	UsageTrend     float64    `db:"usage_trend" json:"usage_trend"` // fractional change, -1..+1
	NPS            int        `db:"nps" json:"nps"`
	OpenTickets    int        `db:"open_tickets" json:"open_tickets"`
	RenewalDate    *time.Time `db:"renewal_date" json:"renewal_date,omitempty"`
	Tier           string     `db:"tier" json:"tier"`

	RiskScore        float64    `db:"risk_score" json:"risk_score"`
	OpportunityScore float64    `db:"opportunity_score" json:"opportunity_score"`
	PriorityScore    float64    `db:"priority_score" json:"priority_score"`
	Quadrant         string     `db:"quadrant" json:"quadrant"`
	ScoredAt         *time.Time `db:"scored_at" json:"scored_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SeatUtilization is active/purchased seats, 0 when nothing was purchased.
func (c Customer) SeatUtilization() float64 {
	if c.SeatsPurchased <= 0 {
		return 0
	}
	return float64(c.SeatsActive) / float64(c.SeatsPurchased)
}

// DaysToRenewal returns whole days from now until the renewal date, or nil when unknown.
func (c Customer) DaysToRenewal(now time.Time) *int {
	if c.RenewalDate == nil {
		return nil
	}
	d := DaysBetween(now, *c.RenewalDate)
	return &d
}

// CustomerMetrics is the mutable usage/health part of a customer.
type CustomerMetrics struct {
	ARR            *float64   `json:"arr"`
	SeatsPurchased *int       `json:"seats_purchased"`
	SeatsActive    *int       `json:"seats_active"`
	HealthScore    *float64   `json:"health_score"`
	UsageTrend     *float64   `json:"usage_trend"`
	NPS            *int       `json:"nps"`
	OpenTickets    *int       `json:"open_tickets"`
	RenewalDate    *time.Time `json:"renewal_date"`
}

// Apply copies the set fields onto c.
func (m CustomerMetrics) Apply(c *Customer) {
	if m.ARR != nil {
		c.ARR = *m.ARR
	}
	if m.SeatsPurchased != nil {
		c.SeatsPurchased = *m.SeatsPurchased
	}
	if m.SeatsActive != nil {
		c.SeatsActive = *m.SeatsActive
	}
	if m.HealthScore != nil {
		c.HealthScore = *m.HealthScore
	}
	if m.UsageTrend != nil {
		c.UsageTrend = *m.UsageTrend
	}
	if m.NPS != nil {
		c.NPS = *m.NPS
	}
	if m.OpenTickets != nil {
		c.OpenTickets = *m.OpenTickets
	}
	if m.RenewalDate != nil {
		d := DateOf(*m.RenewalDate)
		c.RenewalDate = &d
	}
}
