package scoring

// Tier is a customer segment derived from ARR.
type Tier string

const (
	TierEnterprise Tier = "enterprise"
	TierMidMarket  Tier = "mid_market"
	TierSMB        Tier = "smb"
	TierStarter    Tier = "starter"
)

// TierRule describes how a tier is entered and how it is treated.
type TierRule struct {
	Tier             Tier
	MinARR           float64
	Weight           float64 // contribution to priority, 0..1
	TouchCadenceDays int
	MaxPriceIncrease float64 // percent
}

// TierConfig is ordered from the highest MinARR down; the first match wins.
type TierConfig []TierRule

// DefaultTierConfig is the stock segmentation.
var DefaultTierConfig = TierConfig{
	{Tier: TierEnterprise, MinARR: 100_000, Weight: 1.0, TouchCadenceDays: 14, MaxPriceIncrease: 5},
	{Tier: TierMidMarket, MinARR: 25_000, Weight: 0.8, TouchCadenceDays: 30, MaxPriceIncrease: 7},
	{Tier: TierSMB, MinARR: 5_000, Weight: 0.6, TouchCadenceDays: 60, MaxPriceIncrease: 10},
	{Tier: TierStarter, MinARR: 0, Weight: 0.4, TouchCadenceDays: 90, MaxPriceIncrease: 12},
}

// RuleFor returns the rule matching arr. Negative ARR falls into the last tier.
func (c TierConfig) RuleFor(arr float64) TierRule {
	for _, r := range c {
		if arr >= r.MinARR {
			return r
		}
	}
	return c[len(c)-1]
}

// Rule looks a tier up by name.
func (c TierConfig) Rule(t Tier) (TierRule, bool) {
	for _, r := range c {
		if r.Tier == t {
			return r, true
		}
	}
	return TierRule{}, false
}

// TierFor classifies arr with DefaultTierConfig.
func TierFor(arr float64) Tier {
	return DefaultTierConfig.RuleFor(arr).Tier
}
