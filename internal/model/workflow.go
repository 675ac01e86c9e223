package model

import "time"

type ExecutionStatus string

const (
	ExecutionInProgress ExecutionStatus = "in_progress"
	ExecutionCompleted  ExecutionStatus = "completed"
	ExecutionAbandoned  ExecutionStatus = "abandoned"
)

// WorkflowExecution tracks one customer's progress through a slide workflow.
type WorkflowExecution struct {
	ID           string          `db:"id" json:"id"`
	CustomerID   string          `db:"customer_id" json:"customer_id"`
	WorkflowID   string          `db:"workflow_id" json:"workflow_id"`
	OwnerID      string          `db:"owner_id" json:"owner_id"`
	Status       ExecutionStatus `db:"status" json:"status"`
	CurrentSlide int             `db:"current_slide" json:"current_slide"`
	StartedAt    time.Time       `db:"started_at" json:"started_at"`
	CompletedAt  *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
