package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aruiz-p/sdwan-langgraph/internal/provider"
	"github.com/aruiz-p/sdwan-langgraph/internal/timeline"
	"github.com/aruiz-p/sdwan-langgraph/internal/tools"
)

const maxToolResultLog = 10240

// worker is one tool-calling agent in the graph.
type worker struct {
	name     string
	prompt   string
	registry *tools.Registry
}

// runWorker feeds the latest graph message to w together with its own
// conversation memory, and stores the exchange back into that memory.
func (l *Loop) runWorker(ctx context.Context, w *worker, r *run) (string, error) {
	input := r.last()
	sess := l.sessions.GetOrCreate(r.sessionKey + ":" + strings.ToLower(w.name))

	messages := []provider.Message{{Role: "system", Content: w.prompt}}
	for _, h := range sess.GetHistory(l.historyLimit) {
		messages = append(messages, provider.Message{Role: h.Role, Content: h.Content})
	}
	messages = append(messages, provider.Message{Role: "user", Content: input})

	out, err := l.runAgentLoop(ctx, w, r, messages)
	if err != nil {
		return "", err
	}

	sess.AddMessage("user", "", input)
	sess.AddMessage("assistant", w.name, out)
	if err := l.sessions.Save(sess); err != nil {
		slog.Warn("Failed to save worker memory", "worker", w.name, "session", sess.Key, "error", err)
	}
	return out, nil
}

// runAgentLoop calls the model until it answers without tool calls.
func (l *Loop) runAgentLoop(ctx context.Context, w *worker, r *run, messages []provider.Message) (string, error) {
	toolDefs := buildToolDefinitions(w.registry)

	for i := 0; i < l.maxIterations; i++ {
		resp, err := l.provider.Chat(ctx, &provider.ChatRequest{
			Messages:    messages,
			Tools:       toolDefs,
			Model:       l.model,
			MaxTokens:   l.maxTokens,
			Temperature: l.temperature,
		})
		if err != nil {
			return "", fmt.Errorf("LLM call failed: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		messages = append(messages, provider.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			start := time.Now()
			result, err := w.registry.Execute(ctx, tc.Name, tc.Arguments)
			if err != nil {
				result = fmt.Sprintf("Error: %v", err)
			}
			elapsed := time.Since(start)

			slog.Debug("Tool executed", "worker", w.name, "tool", tc.Name, "duration", elapsed, "trace_id", r.traceID)
			l.record(r, timeline.KindTool, w.name, tc.Name, map[string]any{
				"arguments":   tc.Arguments,
				"result":      truncate(result, maxToolResultLog),
				"duration_ms": elapsed.Milliseconds(),
			})

			messages = append(messages, provider.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	return "Max iterations reached. Please try a simpler request.", nil
}

func buildToolDefinitions(registry *tools.Registry) []provider.ToolDefinition {
	list := registry.List()
	defs := make([]provider.ToolDefinition, 0, len(list))
	for _, tool := range list {
		defs = append(defs, provider.ToolDefinition{
			Type: "function",
			Function: provider.FunctionDef{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return defs
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
