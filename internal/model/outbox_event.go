package model

import "time"

type OutboxEvent struct {
	ID          string     `db:"id"`
	Aggregate   string     `db:"aggregate"`    // e.g. "task"
	AggregateID string     `db:"aggregate_id"` // task.ID
	Topic       string     `db:"topic"`
	Payload     []byte     `db:"payload"`
	Attempts    int        `db:"attempts"`
	PublishedAt *time.Time `db:"published_at"`
	CreatedAt   time.Time  `db:"created_at"`
}

// Envelope is the JSON payload stored in the outbox and published to Kafka.
type Envelope struct {
	ID          string         `json:"id"` // event ULID
	Type        string         `json:"type"`
	AggregateID string         `json:"aggregate_id"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Data        map[string]any `json:"data,omitempty"`
}
