package slides

import (
	"time"

	"github.com/renubu/renubu/internal/model"
)

// ContextFor builds the interpolation context for a customer as of now.
func ContextFor(c model.Customer, renewal *model.Renewal, csm *model.User) Context {
	return ContextAt(time.Now(), c, renewal, csm)
}

// ContextAt is ContextFor with an explicit clock.
func ContextAt(now time.Time, c model.Customer, renewal *model.Renewal, csm *model.User) Context {
	customer := map[string]any{
		"id":                c.ID,
		"name":              c.Name,
		"domain":            c.Domain,
		"arr":               c.ARR,
		"tier":              c.Tier,
		"seats_purchased":   c.SeatsPurchased,
		"seats_active":      c.SeatsActive,
		"seat_utilization":  c.SeatUtilization(),
		"health_score":      c.HealthScore,
		"usage_trend":       c.UsageTrend,
		"nps":               c.NPS,
		"open_tickets":      c.OpenTickets,
		"risk_score":        c.RiskScore,
		"opportunity_score": c.OpportunityScore,
		"priority_score":    c.PriorityScore,
		"quadrant":          c.Quadrant,
	}
	if c.RenewalDate != nil {
		customer["renewal_date"] = *c.RenewalDate
		customer["days_to_renewal"] = model.DaysBetween(now, *c.RenewalDate)
	}

	ctx := Context{
		"customer": customer,
		"today":    model.DateOf(now),
	}
	if renewal != nil {
		ctx["renewal"] = map[string]any{
			"date":        renewal.RenewalDate,
			"stage":       string(renewal.Stage),
			"probability": renewal.Probability,
			"days_until":  model.DaysBetween(now, renewal.RenewalDate),
		}
	}
	if csm != nil {
		ctx["csm"] = map[string]any{
			"name":  csm.Name,
			"email": csm.Email,
		}
	}
	return ctx
}
