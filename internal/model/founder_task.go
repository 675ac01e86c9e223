package model

import "time"

type FounderTaskStatus string

const (
	FounderPending    FounderTaskStatus = "pending"
	FounderInProgress FounderTaskStatus = "in_progress"
	FounderBlocked    FounderTaskStatus = "blocked"
	FounderCompleted  FounderTaskStatus = "completed"
	FounderCancelled  FounderTaskStatus = "cancelled"
)

func (s FounderTaskStatus) Valid() bool {
	switch s {
	case FounderPending, FounderInProgress, FounderBlocked, FounderCompleted, FounderCancelled:
		return true
	}
	return false
}

func (s FounderTaskStatus) Open() bool {
	return s == FounderPending || s == FounderInProgress || s == FounderBlocked
}

// Urgency buckets a task by how close its due date is.
type Urgency string

const (
	UrgencyOverdue  Urgency = "overdue"
	UrgencyCritical Urgency = "critical"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyUpcoming Urgency = "upcoming"
	UrgencyNormal   Urgency = "normal"
)

// FounderTask is a personal task tracked by the Founder OS assistant.
type FounderTask struct {
	ID              string            `db:"id" json:"id"`
	Title           string            `db:"title" json:"title"`
	Description     string            `db:"description" json:"description,omitempty"`
	DueDate         time.Time         `db:"due_date" json:"due_date"`
	AssigneeName    string            `db:"assignee_name" json:"assignee_name,omitempty"`
	Layer           string            `db:"layer" json:"layer"`
	Status          FounderTaskStatus `db:"status" json:"status"`
	EscalationCount int               `db:"escalation_count" json:"escalation_count"`
	LastEscalatedAt *time.Time        `db:"last_escalated_at" json:"last_escalated_at,omitempty"`
	CompletedAt     *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// TaskEscalation records that a founder task was escalated.
type TaskEscalation struct {
	ID        string    `db:"id" json:"id"`
	TaskID    string    `db:"task_id" json:"task_id"`
	Urgency   Urgency   `db:"urgency" json:"urgency"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
