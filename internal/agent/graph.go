package agent

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/aruiz-p/sdwan-langgraph/internal/metrics"
	"github.com/aruiz-p/sdwan-langgraph/internal/provider"
	"github.com/aruiz-p/sdwan-langgraph/internal/timeline"
)

const routeTool = "route"

// run is the shared graph state of one invocation.
type run struct {
	traceID    string
	sessionKey string
	channel    string
	messages   []provider.Message
	steps      int
}

func (r *run) last() string {
	if len(r.messages) == 0 {
		return ""
	}
	return r.messages[len(r.messages)-1].Content
}

// runGraph starts at the supervisor and alternates with the chosen worker
// until the supervisor answers FINISH or the step budget runs out.
func (l *Loop) runGraph(ctx context.Context, r *run, input string) (string, error) {
	r.messages = append(r.messages, provider.Message{Role: "user", Content: input})

	for r.steps < l.maxSteps {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		next, err := l.route(ctx, r)
		if err != nil {
			return "", fmt.Errorf("supervisor: %w", err)
		}
		r.steps++
		metrics.GraphSteps.WithLabelValues(next).Inc()
		l.record(r, timeline.KindRoute, "supervisor", next, map[string]any{"step": r.steps})

		if next == Finish {
			return r.last(), nil
		}
		w := l.workers[next]
		out, err := l.runWorker(ctx, w, r)
		if err != nil {
			return "", fmt.Errorf("%s: %w", next, err)
		}
		r.messages = append(r.messages, provider.Message{Role: "user", Name: next, Content: out})
	}

	slog.Warn("Supervisor step limit reached", "trace_id", r.traceID, "steps", r.steps)
	return r.last(), nil
}

// route asks the supervisor for the next node. Anything other than a known
// option ends the run.
func (l *Loop) route(ctx context.Context, r *run) (string, error) {
	messages := make([]provider.Message, 0, len(r.messages)+2)
	messages = append(messages, provider.Message{Role: "system", Content: supervisorSystemPrompt()})
	messages = append(messages, r.messages...)
	messages = append(messages, provider.Message{Role: "system", Content: supervisorQuestionPrompt()})

	resp, err := l.provider.Chat(ctx, &provider.ChatRequest{
		Messages:    messages,
		Tools:       []provider.ToolDefinition{routeDefinition()},
		Model:       l.model,
		Temperature: l.temperature,
		ForceTool:   routeTool,
	})
	if err != nil {
		return "", err
	}

	for _, tc := range resp.ToolCalls {
		if tc.Name != routeTool {
			continue
		}
		next, _ := tc.Arguments["next"].(string)
		if slices.Contains(routeOptions(), next) {
			return next, nil
		}
		slog.Warn("Supervisor chose an unknown node", "next", next, "trace_id", r.traceID)
		return Finish, nil
	}
	slog.Warn("Supervisor returned no route", "trace_id", r.traceID)
	return Finish, nil
}

func routeDefinition() provider.ToolDefinition {
	return provider.ToolDefinition{
		Type: "function",
		Function: provider.FunctionDef{
			Name:        routeTool,
			Description: "Select the next role.",
			Parameters: map[string]any{
				"type":  "object",
				"title": "routeSchema",
				"properties": map[string]any{
					"next": map[string]any{
						"title": "Next",
						"enum":  routeOptions(),
					},
				},
				"required": []string{"next"},
			},
		},
	}
}
