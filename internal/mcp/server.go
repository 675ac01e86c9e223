// Package mcp exposes the Founder OS assistant as a Model Context Protocol
// server and provides an in-memory harness for calling its tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/renubu/renubu/internal/app"
)

const ServerName = "renubu-founder-os"

const instructions = `You are the Founder OS assistant. You track the founder's tasks and make sure nothing slips.

At the start of every conversation call get_urgent_tasks. If there are critical or overdue tasks, mention them FIRST, before anything else.

Use add_task when the founder mentions something they need to do by a date, complete_task when they say it is done, and run_weekly_review on Fridays or when asked for a review.
Use find_next_opening to suggest meeting times and customer_priorities to decide which accounts need attention.`

// NewServer registers every Founder OS tool against the app's services.
func NewServer(a *app.App, version string) *sdk.Server {
	s := sdk.NewServer(
		&sdk.Implementation{Name: ServerName, Version: version},
		&sdk.ServerOptions{Instructions: instructions},
	)
	t := tools{app: a}
	sdk.AddTool(s, getUrgentTasksTool(), t.getUrgentTasks)
	sdk.AddTool(s, addTaskTool(), t.addTask)
	sdk.AddTool(s, completeTaskTool(), t.completeTask)
	sdk.AddTool(s, listAllTasksTool(), t.listAllTasks)
	sdk.AddTool(s, weeklyReviewTool(), t.weeklyReview)
	sdk.AddTool(s, escalationCheckTool(), t.escalationCheck)
	sdk.AddTool(s, findNextOpeningTool(), t.findNextOpening)
	sdk.AddTool(s, snoozeTaskTool(), t.snoozeTask)
	sdk.AddTool(s, customerPrioritiesTool(), t.customerPriorities)
	return s
}

// ServeStdio runs s over stdin/stdout until the client disconnects or ctx ends.
func ServeStdio(ctx context.Context, s *sdk.Server) error {
	return s.Run(ctx, &sdk.StdioTransport{})
}

// Call connects an in-memory client to s, invokes one tool and returns its result.
// args is the JSON object of tool arguments; empty means none.
func Call(ctx context.Context, s *sdk.Server, tool string, args []byte) (*sdk.CallToolResult, error) {
	var arguments map[string]any
	if raw := strings.TrimSpace(string(args)); raw != "" {
		if err := json.Unmarshal([]byte(raw), &arguments); err != nil {
			return nil, fmt.Errorf("tool arguments must be a JSON object: %w", err)
		}
	}

	serverT, clientT := sdk.NewInMemoryTransports()
	ss, err := s.Connect(ctx, serverT, nil)
	if err != nil {
		return nil, fmt.Errorf("connect server: %w", err)
	}
	defer ss.Close()

	client := sdk.NewClient(&sdk.Implementation{Name: ServerName + "-harness", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		return nil, fmt.Errorf("connect client: %w", err)
	}
	defer cs.Close()

	return cs.CallTool(ctx, &sdk.CallToolParams{Name: tool, Arguments: arguments})
}

// ResultText renders a tool result for humans: structured content as indented
// JSON when present, otherwise the text blocks.
func ResultText(res *sdk.CallToolResult) string {
	if res == nil {
		return ""
	}
	if res.StructuredContent != nil && !res.IsError {
		if b, err := json.MarshalIndent(res.StructuredContent, "", "  "); err == nil {
			return string(b)
		}
	}
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*sdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
