package model

import "time"

// Notification is what the notifier posts to webhook providers when a founder task escalates.
type Notification struct {
	ID           string    `json:"id"`
	TaskID       string    `json:"task_id"`
	Title        string    `json:"title"`
	AssigneeName string    `json:"assignee_name,omitempty"`
	Layer        string    `json:"layer,omitempty"`
	Urgency      Urgency   `json:"urgency"`
	Message      string    `json:"message"`
	DueDate      string    `json:"due_date"` // YYYY-MM-DD
	DaysUntilDue int       `json:"days_until_due"`
	CreatedAt    time.Time `json:"created_at"`
}
