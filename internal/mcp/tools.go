package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/renubu/renubu/internal/app"
	"github.com/renubu/renubu/internal/model"
	"github.com/renubu/renubu/internal/repository"
	"github.com/renubu/renubu/internal/service/founder"
	"github.com/renubu/renubu/internal/service/schedule"
)

type tools struct {
	app *app.App
}

// ---- get_urgent_tasks ----

type UrgentTasksInput struct {
	IncludeUpcoming *bool `json:"include_upcoming,omitempty" jsonschema:"also return tasks due within the next week (default true)"`
}

func getUrgentTasksTool() *sdk.Tool {
	return &sdk.Tool{
		Name:        "get_urgent_tasks",
		Description: "Get tasks that are overdue, due today or due soon. Call this at the start of every conversation.",
	}
}

func (t tools) getUrgentTasks(ctx context.Context, _ *sdk.CallToolRequest, in UrgentTasksInput) (*sdk.CallToolResult, founder.UrgentSummary, error) {
	include := true
	if in.IncludeUpcoming != nil {
		include = *in.IncludeUpcoming
	}
	sum, err := t.app.Founder.UrgentTasks(ctx, include)
	if err != nil {
		return nil, founder.UrgentSummary{}, err
	}
	return nil, *sum, nil
}

// ---- add_task ----

func addTaskTool() *sdk.Tool {
	return &sdk.Tool{
		Name:        "add_task",
		Description: "Add a task with a due date (YYYY-MM-DD). It escalates automatically as the date approaches.",
	}
}

func (t tools) addTask(ctx context.Context, _ *sdk.CallToolRequest, in founder.AddTaskInput) (*sdk.CallToolResult, founder.AddTaskResult, error) {
	res, err := t.app.Founder.AddTask(ctx, in)
	if err != nil {
		return nil, founder.AddTaskResult{}, err
	}
	return nil, *res, nil
}

// ---- complete_task ----

type CompleteTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"id of the task to complete"`
}

type CompleteTaskResult struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

func completeTaskTool() *sdk.Tool {
	return &sdk.Tool{
		Name:        "complete_task",
		Description: "Mark a task as completed.",
	}
}

func (t tools) completeTask(ctx context.Context, _ *sdk.CallToolRequest, in CompleteTaskInput) (*sdk.CallToolResult, CompleteTaskResult, error) {
	task, err := t.app.Founder.CompleteTask(ctx, strings.TrimSpace(in.TaskID))
	if err != nil {
		return nil, CompleteTaskResult{}, err
	}
	return nil, CompleteTaskResult{
		Success: true,
		TaskID:  task.ID,
		Message: fmt.Sprintf("✅ Task '%s' marked complete!", task.Title),
	}, nil
}

// ---- list_all_tasks ----

type ListTasksInput struct {
	Status string `json:"status,omitempty" jsonschema:"pending, in_progress, blocked, completed or cancelled (default pending)"`
}

type ListTasksResult struct {
	StatusFilter string             `json:"status_filter"`
	Count        int                `json:"count"`
	Tasks        []founder.TaskView `json:"tasks"`
}

func listAllTasksTool() *sdk.Tool {
	return &sdk.Tool{
		Name:        "list_all_tasks",
		Description: "List tasks in a status, earliest due first.",
	}
}

func (t tools) listAllTasks(ctx context.Context, _ *sdk.CallToolRequest, in ListTasksInput) (*sdk.CallToolResult, ListTasksResult, error) {
	rows, err := t.app.Founder.ListByStatus(ctx, in.Status)
	if err != nil {
		return nil, ListTasksResult{}, err
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = string(model.FounderPending)
	}
	return nil, ListTasksResult{StatusFilter: status, Count: len(rows), Tasks: rows}, nil
}

// ---- run_weekly_review / run_escalation_check ----

type NoInput struct{}

func weeklyReviewTool() *sdk.Tool {
	return &sdk.Tool{
		Name:        "run_weekly_review",
		Description: "Start the weekly review: open tasks, overdue and critical counts, and the review questions.",
	}
}

func (t tools) weeklyReview(ctx context.Context, _ *sdk.CallToolRequest, _ NoInput) (*sdk.CallToolResult, founder.WeeklyReview, error) {
	rv, err := t.app.Founder.WeeklyReview(ctx)
	if err != nil {
		return nil, founder.WeeklyReview{}, err
	}
	return nil, *rv, nil
}

func escalationCheckTool() *sdk.Tool {
	return &sdk.Tool{
		Name:        "run_escalation_check",
		Description: "Escalate every critical or overdue task and send notifications.",
	}
}

func (t tools) escalationCheck(ctx context.Context, _ *sdk.CallToolRequest, _ NoInput) (*sdk.CallToolResult, founder.EscalationReport, error) {
	rep, err := t.app.Founder.EscalationCheck(ctx)
	if err != nil {
		return nil, founder.EscalationReport{}, err
	}
	return nil, *rep, nil
}

// ---- find_next_opening ----

type NextOpeningInput struct {
	OwnerID         string `json:"owner_id" jsonschema:"calendar owner"`
	DurationMinutes int    `json:"duration_minutes" jsonschema:"meeting length in minutes"`
	After           string `json:"after,omitempty" jsonschema:"earliest start, RFC 3339 or YYYY-MM-DD (default now)"`
	BufferMinutes   *int   `json:"buffer_minutes,omitempty" jsonschema:"free minutes kept around existing events"`
	Count           int    `json:"count,omitempty" jsonschema:"number of slots to return (default 1, max 10)"`
}

type SlotView struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type NextOpeningResult struct {
	Slots []SlotView `json:"slots"`
}

func findNextOpeningTool() *sdk.Tool {
	return &sdk.Tool{
		Name:        "find_next_opening",
		Description: "Find the next free meeting slots in a calendar within working hours.",
	}
}

func (t tools) findNextOpening(ctx context.Context, _ *sdk.CallToolRequest, in NextOpeningInput) (*sdk.CallToolResult, NextOpeningResult, error) {
	req := schedule.OpeningInput{
		OwnerID:         in.OwnerID,
		DurationMinutes: in.DurationMinutes,
		BufferMinutes:   in.BufferMinutes,
		Count:           in.Count,
	}
	if in.After != "" {
		after, err := parseWhen(in.After)
		if err != nil {
			return nil, NextOpeningResult{}, fmt.Errorf("after must be RFC 3339 or YYYY-MM-DD: %q", in.After)
		}
		req.After = &after
	}
	slots, err := t.app.Schedule.NextOpenings(ctx, req)
	if err != nil {
		return nil, NextOpeningResult{}, err
	}
	out := NextOpeningResult{Slots: make([]SlotView, 0, len(slots))}
	for _, s := range slots {
		out.Slots = append(out.Slots, SlotView{Start: s.Start.Format(time.RFC3339), End: s.End.Format(time.RFC3339)})
	}
	return nil, out, nil
}

// ---- snooze_task ----

type SnoozeTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"workflow task id"`
	Until  string `json:"until" jsonschema:"wake-up time, RFC 3339 or YYYY-MM-DD, at most 7 days out"`
}

type SnoozeTaskResult struct {
	TaskID        string `json:"task_id"`
	Title         string `json:"title"`
	Status        string `json:"status"`
	SnoozedUntil  string `json:"snoozed_until"`
	MaxSnoozeDate string `json:"max_snooze_date,omitempty"`
	SnoozeCount   int    `json:"snooze_count"`
}

func snoozeTaskTool() *sdk.Tool {
	return &sdk.Tool{
		Name:        "snooze_task",
		Description: "Snooze a customer workflow task. Snoozes are limited to 7 days and to the task's snooze deadline.",
	}
}

func (t tools) snoozeTask(ctx context.Context, _ *sdk.CallToolRequest, in SnoozeTaskInput) (*sdk.CallToolResult, SnoozeTaskResult, error) {
	until, err := parseWhen(in.Until)
	if err != nil {
		return nil, SnoozeTaskResult{}, fmt.Errorf("until must be RFC 3339 or YYYY-MM-DD: %q", in.Until)
	}
	task, err := t.app.Tasks.Snooze(ctx, strings.TrimSpace(in.TaskID), until)
	if err != nil {
		return nil, SnoozeTaskResult{}, err
	}
	out := SnoozeTaskResult{
		TaskID:      task.ID,
		Title:       task.Title,
		Status:      string(task.Status),
		SnoozeCount: task.SnoozeCount,
	}
	if task.SnoozedUntil != nil {
		out.SnoozedUntil = task.SnoozedUntil.Format(time.RFC3339)
	}
	if task.MaxSnoozeDate != nil {
		out.MaxSnoozeDate = task.MaxSnoozeDate.Format("2006-01-02")
	}
	return nil, out, nil
}

// ---- customer_priorities ----

type CustomerPrioritiesInput struct {
	OwnerID  string `json:"owner_id,omitempty" jsonschema:"only customers owned by this CSM"`
	Quadrant string `json:"quadrant,omitempty" jsonschema:"save_and_expand, rescue, expand or nurture"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum customers to return (default 10)"`
}

type CustomerPriority struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Tier             string  `json:"tier"`
	Quadrant         string  `json:"quadrant"`
	PriorityScore    float64 `json:"priority_score"`
	RiskScore        float64 `json:"risk_score"`
	OpportunityScore float64 `json:"opportunity_score"`
	ARR              float64 `json:"arr"`
	RenewalDate      string  `json:"renewal_date,omitempty"`
}

type CustomerPrioritiesResult struct {
	Count     int                `json:"count"`
	Customers []CustomerPriority `json:"customers"`
}

func customerPrioritiesTool() *sdk.Tool {
	return &sdk.Tool{
		Name:        "customer_priorities",
		Description: "List customers by priority score, highest first, with their risk/opportunity quadrant.",
	}
}

func (t tools) customerPriorities(ctx context.Context, _ *sdk.CallToolRequest, in CustomerPrioritiesInput) (*sdk.CallToolResult, CustomerPrioritiesResult, error) {
	limit := in.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := t.app.Accounts.ListCustomers(ctx, repository.CustomerFilter{
		OwnerID:  strings.TrimSpace(in.OwnerID),
		Quadrant: strings.TrimSpace(in.Quadrant),
		Limit:    limit,
	})
	if err != nil {
		return nil, CustomerPrioritiesResult{}, err
	}
	out := CustomerPrioritiesResult{Count: len(rows), Customers: make([]CustomerPriority, 0, len(rows))}
	for _, c := range rows {
		p := CustomerPriority{
			ID:               c.ID,
			Name:             c.Name,
			Tier:             c.Tier,
			Quadrant:         c.Quadrant,
			PriorityScore:    c.PriorityScore,
			RiskScore:        c.RiskScore,
			OpportunityScore: c.OpportunityScore,
			ARR:              c.ARR,
		}
		if c.RenewalDate != nil {
			p.RenewalDate = c.RenewalDate.Format("2006-01-02")
		}
		out.Customers = append(out.Customers, p)
	}
	return nil, out, nil
}

func parseWhen(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return model.ParseDate(s)
}
