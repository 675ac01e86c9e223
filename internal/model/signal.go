package model

import (
	"strings"
	"time"
)

type SignalCategory string

const (
	SignalRisk        SignalCategory = "risk"
	SignalOpportunity SignalCategory = "opportunity"
)

func (c SignalCategory) Valid() bool {
	return c == SignalRisk || c == SignalOpportunity
}

// knownSignals maps signal kinds to the category they count towards.
var knownSignals = map[string]SignalCategory{
	"usage_drop":         SignalRisk,
	"champion_left":      SignalRisk,
	"support_escalation": SignalRisk,
	"payment_late":       SignalRisk,
	"competitor_eval":    SignalRisk,
	"usage_spike":        SignalOpportunity,
	"seat_request":       SignalOpportunity,
	"new_department":     SignalOpportunity,
	"feature_request":    SignalOpportunity,
	"exec_sponsor":       SignalOpportunity,
}

// CategoryForKind returns the default category of a known signal kind.
func CategoryForKind(kind string) (SignalCategory, bool) {
	c, ok := knownSignals[strings.ToLower(strings.TrimSpace(kind))]
	return c, ok
}

type Signal struct {
	ID         string         `db:"id" json:"id"`
	CustomerID string         `db:"customer_id" json:"customer_id"`
	Kind       string         `db:"kind" json:"kind"`
	Category   SignalCategory `db:"category" json:"category"`
	Weight     int            `db:"weight" json:"weight"` // 1..5
	Note       string         `db:"note" json:"note"`
	OccurredAt time.Time      `db:"occurred_at" json:"occurred_at"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
