// Package scoring computes customer risk, opportunity and priority scores.
//
// Everything here is pure arithmetic over values already loaded by the caller.
package scoring

import (
	"fmt"
	"math"
	"sort"
)

// Quadrant is the action bucket a customer falls in.
type Quadrant string

const (
	QuadrantSaveAndExpand Quadrant = "save_and_expand"
	QuadrantRescue        Quadrant = "rescue"
	QuadrantExpand        Quadrant = "expand"
	QuadrantNurture       Quadrant = "nurture"
)

// Thresholds split the risk/opportunity plane into quadrants (inclusive).
type Thresholds struct {
	Risk        float64
	Opportunity float64
}

// QuadrantThresholds is the stock split.
var QuadrantThresholds = Thresholds{Risk: 60, Opportunity: 60}

// Input is everything the engine needs about one customer.
type Input struct {
	ARR                float64
	HealthScore        float64 // 0..100
	UsageTrend         float64 // fractional change, -1..+1
	SeatUtilization    float64 // 0..1+
	NPS                int     // -100..100
	OpenTickets        int
	DaysToRenewal      *int
	RiskSignals        int // sum of risk signal weights
	OpportunitySignals int // sum of opportunity signal weights
}

// Result is the output of Score.
type Result struct {
	Tier             Tier     `json:"tier"`
	RiskScore        float64  `json:"risk_score"`
	OpportunityScore float64  `json:"opportunity_score"`
	PriorityScore    float64  `json:"priority_score"`
	Quadrant         Quadrant `json:"quadrant"`
	Drivers          []string `json:"drivers"`
}

// Engine scores customers with a tier config and quadrant thresholds.
type Engine struct {
	Tiers      TierConfig
	Thresholds Thresholds
}

// NewEngine returns an engine with the stock configuration.
func NewEngine() *Engine {
	return &Engine{Tiers: DefaultTierConfig, Thresholds: QuadrantThresholds}
}

// Score is a convenience wrapper around the stock engine.
func Score(in Input) Result {
	return NewEngine().Score(in)
}

type driver struct {
	label  string
	points float64
}

// Score computes the three scores and the quadrant for in.
func (e *Engine) Score(in Input) Result {
	rule := e.Tiers.RuleFor(in.ARR)
	health := clamp(in.HealthScore)
	renewal := RenewalUrgency(in.DaysToRenewal)

	riskParts := []driver{
		{"low health score", 0.35 * (100 - health)},
		{"declining usage", 0.20 * clamp(-in.UsageTrend*100)},
		{"open support tickets", 0.15 * math.Min(float64(in.OpenTickets)*10, 100)},
		{"renewal approaching", 0.15 * renewal},
		{"risk signals", 0.15 * math.Min(float64(in.RiskSignals)*20, 100)},
	}
	if in.NPS < 0 {
		riskParts = append(riskParts, driver{"detractor NPS", math.Min(float64(-in.NPS)/10, 10)})
	}

	oppParts := []driver{
		{"high seat utilization", 0.35 * math.Min(in.SeatUtilization*100, 100)},
		{"growing usage", 0.25 * clamp(in.UsageTrend*100)},
		{"healthy account", 0.20 * health},
		{"expansion signals", 0.20 * math.Min(float64(in.OpportunitySignals)*20, 100)},
	}
	if in.NPS >= 50 {
		oppParts = append(oppParts, driver{"promoter NPS", 5})
	}

	risk := round1(clamp(sum(riskParts)))
	opp := round1(clamp(sum(oppParts)))
	priority := round1(clamp(0.4*risk + 0.3*opp + 0.2*renewal + 0.1*rule.Weight*100))

	return Result{
		Tier:             rule.Tier,
		RiskScore:        risk,
		OpportunityScore: opp,
		PriorityScore:    priority,
		Quadrant:         e.Thresholds.Classify(risk, opp),
		Drivers:          topDrivers(riskParts, oppParts, 3),
	}
}

// Classify places a (risk, opportunity) pair into a quadrant.
func (t Thresholds) Classify(risk, opportunity float64) Quadrant {
	highRisk := risk >= t.Risk
	highOpp := opportunity >= t.Opportunity
	switch {
	case highRisk && highOpp:
		return QuadrantSaveAndExpand
	case highRisk:
		return QuadrantRescue
	case highOpp:
		return QuadrantExpand
	default:
		return QuadrantNurture
	}
}

// RenewalUrgency maps days-to-renewal onto 0..100. Unknown renewals score 0,
// past-due renewals score 100.
func RenewalUrgency(days *int) float64 {
	if days == nil {
		return 0
	}
	switch d := *days; {
	case d <= 30:
		return 100
	case d <= 60:
		return 75
	case d <= 90:
		return 50
	case d <= 180:
		return 25
	default:
		return 0
	}
}

func topDrivers(risk, opp []driver, n int) []string {
	all := make([]driver, 0, len(risk)+len(opp))
	for _, d := range risk {
		if d.points > 0 {
			all = append(all, driver{"risk: " + d.label, d.points})
		}
	}
	for _, d := range opp {
		if d.points > 0 {
			all = append(all, driver{"opportunity: " + d.label, d.points})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].points > all[j].points })
	if len(all) > n {
		all = all[:n]
	}
	out := make([]string, 0, len(all))
	for _, d := range all {
		out = append(out, fmt.Sprintf("%s (+%.1f)", d.label, d.points))
	}
	return out
}

func sum(parts []driver) float64 {
	var s float64
	for _, p := range parts {
		s += p.points
	}
	return s
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
