package tools

import (
	"context"
	"fmt"
	"time"
)

// WaitTool pauses a worker while the controller captures flows.
type WaitTool struct {
	name  string
	desc  string
	delay time.Duration
}

// NewTracerWaitTool returns the tracer's long wait.
func NewTracerWaitTool(d time.Duration) *WaitTool {
	if d <= 0 {
		d = 60 * time.Second
	}
	return &WaitTool{
		name:  "tracer_wait",
		desc:  fmt.Sprintf("Sleep for %s. Useful when waiting for flows to be captured.", d),
		delay: d,
	}
}

// NewReviewerWaitTool returns the reviewer's short wait.
func NewReviewerWaitTool(d time.Duration) *WaitTool {
	if d <= 0 {
		d = 5 * time.Second
	}
	return &WaitTool{
		name:  "reviewer_wait",
		desc:  fmt.Sprintf("Sleep for %s. Useful when waiting for flows to be captured.", d),
		delay: d,
	}
}

func (t *WaitTool) Name() string        { return t.name }
func (t *WaitTool) Description() string { return t.desc }

func (t *WaitTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (t *WaitTool) Execute(ctx context.Context, _ map[string]any) (string, error) {
	timer := time.NewTimer(t.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return "Wait interrupted.", ctx.Err()
	case <-timer.C:
		return fmt.Sprintf("Waited %s.", t.delay), nil
	}
}
