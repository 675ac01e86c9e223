package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/renubu/renubu/internal/app"
	"github.com/renubu/renubu/internal/config"
	"github.com/renubu/renubu/internal/db/dbtest"
)

func newTestServer(t *testing.T) *sdk.Server {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	a, err := app.New(cfg, dbtest.Open(t), nil, nil)
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	return NewServer(a, "test")
}

func call(t *testing.T, s *sdk.Server, tool, args string) *sdk.CallToolResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := Call(ctx, s, tool, []byte(args))
	if err != nil {
		t.Fatalf("%s: %v", tool, err)
	}
	return res
}

func structured[T any](t *testing.T, res *sdk.CallToolResult) T {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool error: %s", ResultText(res))
	}
	b, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatal(err)
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return v
}

func TestListsAllTools(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	serverT, clientT := sdk.NewInMemoryTransports()
	ss, err := s.Connect(ctx, serverT, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ss.Close()
	cs, err := sdk.NewClient(&sdk.Implementation{Name: "test", Version: "v0"}, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer cs.Close()

	res, err := cs.ListTools(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]bool{}
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{
		"get_urgent_tasks", "add_task", "complete_task", "list_all_tasks", "run_weekly_review",
		"run_escalation_check", "find_next_opening", "snooze_task", "customer_priorities",
	} {
		if !got[name] {
			t.Errorf("missing tool %s", name)
		}
	}
}

func TestAddThenUrgent(t *testing.T) {
	s := newTestServer(t)
	today := time.Now().UTC().Format("2006-01-02")

	added := structured[struct {
		TaskID  string `json:"task_id"`
		Message string `json:"message"`
	}](t, call(t, s, "add_task", `{"title":"Investor update","due_date":"`+today+`"}`))
	if added.TaskID == "" || !strings.Contains(added.Message, "Investor update") {
		t.Errorf("added = %+v", added)
	}

	sum := structured[struct {
		AttentionNeeded []string `json:"attention_needed"`
		Tasks           struct {
			Critical []struct {
				ID string `json:"id"`
			} `json:"critical"`
		} `json:"tasks"`
		Total int `json:"total_requiring_attention"`
	}](t, call(t, s, "get_urgent_tasks", `{}`))
	if sum.Total != 1 || len(sum.Tasks.Critical) != 1 || sum.Tasks.Critical[0].ID != added.TaskID {
		t.Errorf("summary = %+v", sum)
	}

	done := structured[CompleteTaskResult](t, call(t, s, "complete_task", `{"task_id":"`+added.TaskID+`"}`))
	if !done.Success {
		t.Errorf("complete = %+v", done)
	}
	list := structured[ListTasksResult](t, call(t, s, "list_all_tasks", `{"status":"completed"}`))
	if list.Count != 1 || list.StatusFilter != "completed" {
		t.Errorf("list = %+v", list)
	}
}

func TestToolErrorsAreToolResults(t *testing.T) {
	s := newTestServer(t)

	res := call(t, s, "add_task", `{"title":"x","due_date":"next friday"}`)
	if !res.IsError || !strings.Contains(ResultText(res), "Use YYYY-MM-DD") {
		t.Errorf("bad date = %v %q", res.IsError, ResultText(res))
	}
	res = call(t, s, "complete_task", `{"task_id":"missing"}`)
	if !res.IsError || !strings.Contains(ResultText(res), "not found") {
		t.Errorf("missing = %v %q", res.IsError, ResultText(res))
	}
	res = call(t, s, "find_next_opening", `{"owner_id":"u1","duration_minutes":0}`)
	if !res.IsError {
		t.Error("zero duration should be a tool error")
	}
}

func TestWeeklyReviewAndOpenings(t *testing.T) {
	s := newTestServer(t)

	rv := structured[struct {
		Questions []string `json:"questions"`
		Message   string   `json:"message"`
	}](t, call(t, s, "run_weekly_review", `{}`))
	if len(rv.Questions) != 5 || rv.Message == "" {
		t.Errorf("review = %+v", rv)
	}

	op := structured[NextOpeningResult](t, call(t, s, "find_next_opening",
		`{"owner_id":"u1","duration_minutes":45,"after":"2030-01-07T09:00:00Z","count":2}`))
	if len(op.Slots) != 2 || op.Slots[0].Start != "2030-01-07T09:00:00Z" || op.Slots[1].Start != "2030-01-07T09:45:00Z" {
		t.Errorf("slots = %+v", op.Slots)
	}

	pr := structured[CustomerPrioritiesResult](t, call(t, s, "customer_priorities", `{}`))
	if pr.Count != 0 {
		t.Errorf("priorities = %+v", pr)
	}
}
