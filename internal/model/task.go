package model

import (
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskSnoozed    TaskStatus = "snoozed"
	TaskCompleted  TaskStatus = "completed"
	TaskSkipped    TaskStatus = "skipped"
	TaskCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) String() string { return string(s) }

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskSnoozed, TaskCompleted, TaskSkipped, TaskCancelled:
		return true
	}
	return false
}

// Open reports whether the task still needs action.
func (s TaskStatus) Open() bool {
	return s == TaskPending || s == TaskInProgress || s == TaskSnoozed
}

type TaskPriority string

const (
	PriorityUrgent TaskPriority = "urgent"
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

// ParseTaskPriority normalizes input; empty => medium.
func ParseTaskPriority(s string) (TaskPriority, bool) {
	switch p := TaskPriority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityMedium, true
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return p, true
	default:
		return PriorityMedium, false
	}
}

// WorkflowTask is an actionable item for a CSM, optionally tied to a workflow execution.
type WorkflowTask struct {
	ID             string       `db:"id" json:"id"`
	ExecutionID    string       `db:"execution_id" json:"execution_id,omitempty"`
	CustomerID     string       `db:"customer_id" json:"customer_id,omitempty"`
	OwnerID        string       `db:"owner_id" json:"owner_id"`
	Title          string       `db:"title" json:"title"`
	Description    string       `db:"description" json:"description"`
	Priority       TaskPriority `db:"priority" json:"priority"`
	Status         TaskStatus   `db:"status" json:"status"`
	DueDate        *time.Time   `db:"due_date" json:"due_date,omitempty"`
	SnoozedUntil   *time.Time   `db:"snoozed_until" json:"snoozed_until,omitempty"`
	FirstSnoozedAt *time.Time   `db:"first_snoozed_at" json:"first_snoozed_at,omitempty"`
	MaxSnoozeDate  *time.Time   `db:"max_snooze_date" json:"max_snooze_date,omitempty"`
	SnoozeCount    int          `db:"snooze_count" json:"snooze_count"`
	ForceAction    bool         `db:"force_action" json:"force_action"`
	SkipReason     string       `db:"skip_reason" json:"skip_reason,omitempty"`
	CompletedAt    *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
	// Revision is bumped by every write; updates only land on the revision they read.
	Revision int `db:"revision" json:"-"`
}

// TaskFilter narrows task listings; zero values mean "any".
type TaskFilter struct {
	OwnerID    string
	CustomerID string
	Status     TaskStatus
	Limit      int
	Offset     int
}
