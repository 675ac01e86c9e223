package scoring

import "math"

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// HoldRiskThreshold is the risk score at or above which prices are held flat.
const HoldRiskThreshold = 75

// PriceRecommendation is the suggested renewal price change.
type PriceRecommendation struct {
	CurrentARR      float64    `json:"current_arr"`
	IncreasePercent float64    `json:"increase_percent"`
	RecommendedARR  float64    `json:"recommended_arr"`
	Hold            bool       `json:"hold"`
	Confidence      Confidence `json:"confidence"`
	Rationale       string     `json:"rationale"`
}

// RecommendPrice derives a renewal price change from a scored customer.
func (e *Engine) RecommendPrice(in Input, res Result) PriceRecommendation {
	rec := PriceRecommendation{CurrentARR: in.ARR}
	rule, ok := e.Tiers.Rule(res.Tier)
	if !ok {
		rule = e.Tiers.RuleFor(in.ARR)
	}

	if res.RiskScore >= HoldRiskThreshold {
		rec.Hold = true
		rec.RecommendedARR = in.ARR
		rec.Confidence = confidenceFor(in)
		rec.Rationale = "risk too high for a price increase; hold flat and focus on retention"
		return rec
	}

	util := math.Max(0, math.Min(in.SeatUtilization, 1))
	raw := rule.MaxPriceIncrease * (1 - res.RiskScore/100) * (0.5 + 0.5*util)
	rec.IncreasePercent = math.Round(raw*2) / 2
	rec.RecommendedARR = math.Round(in.ARR*(1+rec.IncreasePercent/100)*100) / 100
	rec.Confidence = confidenceFor(in)
	switch {
	case rec.IncreasePercent == 0:
		rec.Hold = true
		rec.Rationale = "increase rounds to zero; hold flat"
	case util >= 0.9:
		rec.Rationale = "seats nearly exhausted; increase backed by usage"
	default:
		rec.Rationale = "increase scaled down by risk and seat utilization"
	}
	return rec
}

// RecommendPrice is a convenience wrapper around the stock engine.
func RecommendPrice(in Input, res Result) PriceRecommendation {
	return NewEngine().RecommendPrice(in, res)
}

func confidenceFor(in Input) Confidence {
	c := ConfidenceLow
	switch {
	case in.HealthScore >= 70:
		c = ConfidenceHigh
	case in.HealthScore >= 40:
		c = ConfidenceMedium
	}
	if in.DaysToRenewal != nil && *in.DaysToRenewal <= 30 {
		switch c {
		case ConfidenceHigh:
			c = ConfidenceMedium
		case ConfidenceMedium:
			c = ConfidenceLow
		}
	}
	return c
}
