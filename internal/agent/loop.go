// Package agent runs the supervisor graph that turns chat requests and
// network alerts into NWPI traces and reviewed answers.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aruiz-p/sdwan-langgraph/internal/bus"
	"github.com/aruiz-p/sdwan-langgraph/internal/provider"
	"github.com/aruiz-p/sdwan-langgraph/internal/session"
	"github.com/aruiz-p/sdwan-langgraph/internal/timeline"
	"github.com/aruiz-p/sdwan-langgraph/internal/tools"
	"github.com/google/uuid"
)

// TracerTools are the registry entries the Tracer worker may call.
var TracerTools = []string{
	"get_site_list",
	"get_device_details_from_site",
	"start_trace",
	"stop_trace",
	"verify_trace_state",
	"get_entry_time_and_state",
	"trace_readout",
	"get_flow_summary",
	"get_flow_detail",
	"tracer_wait",
}

// ReviewerTools are the registry entries the Reviewer worker may call.
var ReviewerTools = []string{"reviewer_wait"}

// NotificationSession holds worker memory for alert driven runs.
const NotificationSession = "alerts:notifications"

// LoopOptions contains configuration for the agent loop.
type LoopOptions struct {
	Bus           *bus.MessageBus
	Provider      provider.LLMProvider
	Timeline      *timeline.TimelineService
	Sessions      *session.Manager
	Tools         *tools.Registry
	Model         string
	MaxIterations int
	MaxSteps      int
	HistoryLimit  int
	MaxTokens     int
	Temperature   float64
}

// Loop is the supervisor graph plus its workers.
type Loop struct {
	bus           *bus.MessageBus
	provider      provider.LLMProvider
	timeline      *timeline.TimelineService
	sessions      *session.Manager
	model         string
	maxIterations int
	maxSteps      int
	historyLimit  int
	maxTokens     int
	temperature   float64
	workers       map[string]*worker
}

// Request is one graph invocation.
type Request struct {
	TraceID    string
	SessionKey string
	Channel    string
	Sender     string
	Content    string
	Alert      bool
}

// NewLoop creates a new agent loop.
func NewLoop(opts LoopOptions) *Loop {
	model := opts.Model
	if model == "" && opts.Provider != nil {
		model = opts.Provider.DefaultModel()
	}
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 20
	}
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 12
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewManager("")
	}
	registry := opts.Tools
	if registry == nil {
		registry = tools.NewRegistry()
	}

	return &Loop{
		bus:           opts.Bus,
		provider:      opts.Provider,
		timeline:      opts.Timeline,
		sessions:      sessions,
		model:         model,
		maxIterations: maxIter,
		maxSteps:      maxSteps,
		historyLimit:  opts.HistoryLimit,
		maxTokens:     opts.MaxTokens,
		temperature:   opts.Temperature,
		workers: map[string]*worker{
			Tracer:   {name: Tracer, prompt: collapse(tracerPrompt), registry: registry.Subset(TracerTools...)},
			Reviewer: {name: Reviewer, prompt: collapse(reviewerPrompt), registry: registry.Subset(ReviewerTools...)},
		},
	}
}

// Run consumes inbound bus messages until ctx is cancelled. Each answer
// is published back to the channel it came from.
func (l *Loop) Run(ctx context.Context) error {
	if l.bus == nil {
		return fmt.Errorf("agent loop has no message bus")
	}
	slog.Info("Agent loop started", "model", l.model)
	for {
		msg, err := l.bus.ConsumeInbound(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Agent loop stopping")
				return nil
			}
			continue
		}

		traceID := msg.TraceID
		if traceID == "" {
			traceID = newTraceID()
		}
		resp, err := l.Handle(ctx, Request{
			TraceID:    traceID,
			SessionKey: msg.SessionKey(),
			Channel:    msg.Channel,
			Sender:     msg.SenderID,
			Content:    msg.Content,
			Alert:      msg.Kind == bus.KindAlert,
		})
		if err != nil {
			slog.Error("Agent run failed", "trace_id", traceID, "channel", msg.Channel, "error", err)
			resp = fmt.Sprintf("Sorry, I hit an error: %v", err)
		}
		if resp == "" {
			continue
		}
		l.bus.PublishOutbound(&bus.OutboundMessage{
			Channel:  msg.Channel,
			ChatID:   msg.ChatID,
			ThreadID: msg.ThreadID,
			TraceID:  traceID,
			Content:  resp,
		})
	}
}

// Chat answers a user request and returns the final graph message.
func (l *Loop) Chat(ctx context.Context, sessionKey, text string) (string, error) {
	return l.Handle(ctx, Request{SessionKey: sessionKey, Channel: "api", Content: text})
}

// Notification runs the graph for a network alert.
func (l *Loop) Notification(ctx context.Context, alert string) (string, error) {
	return l.Handle(ctx, Request{Channel: "alert", Content: alert, Alert: true})
}

// Handle runs the graph for req and records both ends on the timeline.
func (l *Loop) Handle(ctx context.Context, req Request) (string, error) {
	if req.TraceID == "" {
		req.TraceID = newTraceID()
	}
	inKind, outKind := timeline.KindChatIn, timeline.KindChatOut
	content := req.Content
	if req.Alert {
		inKind, outKind = timeline.KindAlertIn, timeline.KindNotifyOut
		content = collapse(NotificationPrompt) + "\n" + req.Content
		if req.SessionKey == "" {
			req.SessionKey = NotificationSession
		}
	}
	if req.SessionKey == "" {
		req.SessionKey = req.Channel + ":default"
	}

	r := &run{traceID: req.TraceID, sessionKey: req.SessionKey, channel: req.Channel}
	l.record(r, inKind, req.Sender, req.Content, nil)

	start := time.Now()
	out, err := l.runGraph(ctx, r, content)
	if err != nil {
		l.record(r, outKind, "agent", "", map[string]any{"error": err.Error()})
		return "", err
	}
	l.record(r, outKind, "agent", out, map[string]any{
		"steps":       r.steps,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return out, nil
}

func (l *Loop) record(r *run, kind, actor, content string, meta map[string]any) {
	if l.timeline == nil {
		return
	}
	if err := l.timeline.Record(r.traceID, kind, r.channel, actor, content, meta); err != nil {
		slog.Warn("Timeline write failed", "kind", kind, "trace_id", r.traceID, "error", err)
	}
}

func newTraceID() string {
	return "tr_" + uuid.NewString()
}
