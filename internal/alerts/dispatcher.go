package alerts

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/aruiz-p/sdwan-langgraph/internal/bus"
	"github.com/aruiz-p/sdwan-langgraph/internal/metrics"
)

// Notifier runs the agent graph for an alert.
type Notifier interface {
	Notification(ctx context.Context, alert string) (string, error)
}

// Dispatcher processes firing alerts and publishes the resulting
// notification to the configured channel's default destination.
type Dispatcher struct {
	notifier Notifier
	bus      *bus.MessageBus
	channel  string
}

// NewDispatcher creates a dispatcher. A nil bus only logs notifications.
func NewDispatcher(notifier Notifier, msgBus *bus.MessageBus, channel string) *Dispatcher {
	return &Dispatcher{notifier: notifier, bus: msgBus, channel: channel}
}

// Process handles one alert from source. It returns false when the alert
// was not firing and nothing ran.
func (d *Dispatcher) Process(ctx context.Context, source string, a Alert) bool {
	firing := a.IsFiring()
	metrics.AlertsReceived.WithLabelValues(source, strconv.FormatBool(firing)).Inc()
	if !firing {
		slog.Debug("Ignoring non-firing alert", "source", source, "status", a.Status)
		return false
	}

	slog.Info("Processing alert", "source", source, "title", a.Title)
	notification, err := d.notifier.Notification(ctx, a.Text())
	if err != nil {
		slog.Error("Alert processing failed", "source", source, "title", a.Title, "error", err)
		return true
	}
	slog.Info("Sending notification", "channel", d.channel, "length", len(notification))
	if d.bus != nil && d.channel != "" {
		d.bus.PublishOutbound(&bus.OutboundMessage{Channel: d.channel, Content: notification})
	}
	return true
}
