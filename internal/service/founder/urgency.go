package founder

import (
	"fmt"

	"github.com/renubu/renubu/internal/model"
)

// Classify buckets a task by whole calendar days until it is due.
func Classify(daysUntilDue int) model.Urgency {
	switch {
	case daysUntilDue < 0:
		return model.UrgencyOverdue
	case daysUntilDue == 0:
		return model.UrgencyCritical
	case daysUntilDue <= 2:
		return model.UrgencyUrgent
	case daysUntilDue <= 7:
		return model.UrgencyUpcoming
	default:
		return model.UrgencyNormal
	}
}

// NeedsAttention is true for every bucket except normal.
func NeedsAttention(u model.Urgency) bool {
	return u != model.UrgencyNormal
}

// Escalates reports whether a task in bucket u must be escalated.
func Escalates(u model.Urgency) bool {
	return u == model.UrgencyCritical || u == model.UrgencyOverdue
}

// EscalationMessage is the human-readable nudge for a task; empty for normal tasks.
func EscalationMessage(title string, u model.Urgency, days int) string {
	switch u {
	case model.UrgencyOverdue:
		return fmt.Sprintf("OVERDUE: '%s' was due %s ago", title, plural(-days, "day"))
	case model.UrgencyCritical:
		return fmt.Sprintf("DUE TODAY: '%s'", title)
	case model.UrgencyUrgent:
		return fmt.Sprintf("Due in %s: '%s'", plural(days, "day"), title)
	case model.UrgencyUpcoming:
		return fmt.Sprintf("Coming up in %s: '%s'", plural(days, "day"), title)
	default:
		return ""
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
