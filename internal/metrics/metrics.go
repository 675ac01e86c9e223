package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	TasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renubu_tasks_total",
			Help: "Workflow task mutations by action",
		},
		[]string{"action"}, // create|start|complete|skip|snooze|unsnooze|reassign|wake|force
	)

	ScoresComputed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renubu_scores_computed_total",
			Help: "Customer rescores by resulting quadrant",
		},
		[]string{"quadrant"},
	)

	EscalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renubu_escalations_total",
			Help: "Founder task escalations by urgency",
		},
		[]string{"urgency"}, // critical|overdue
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renubu_notifications_total",
			Help: "Webhook notification outcomes",
		},
		[]string{"result"}, // sent|failed|skipped
	)

	OutboxPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "renubu_outbox_published_total",
			Help: "Outbox events relayed to Kafka",
		},
	)
)

var registerOnce sync.Once

// MustRegister registers the collectors on r once per process; later calls are no-ops.
func MustRegister(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(
			TasksTotal,
			ScoresComputed,
			EscalationsTotal,
			NotificationsTotal,
			OutboxPublished,
		)
	})
}
