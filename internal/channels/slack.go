package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/aruiz-p/sdwan-langgraph/internal/bus"
	"github.com/aruiz-p/sdwan-langgraph/internal/config"
)

const defaultSlackAPIBase = "https://slack.com/api/"

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

// SlackChannel receives requests over Socket Mode and posts replies and
// alert notifications with the Web API.
type SlackChannel struct {
	BaseChannel
	config config.SlackConfig
	api    *slack.Client
	cancel context.CancelFunc
}

// SlackOption customises a SlackChannel.
type SlackOption func(*slackOptions)

type slackOptions struct {
	apiURL string
}

// WithSlackAPIURL points the Web API client at another base URL.
func WithSlackAPIURL(u string) SlackOption {
	return func(o *slackOptions) { o.apiURL = u }
}

func NewSlackChannel(cfg config.SlackConfig, messageBus *bus.MessageBus, opts ...SlackOption) *SlackChannel {
	o := slackOptions{apiURL: defaultSlackAPIBase}
	for _, opt := range opts {
		opt(&o)
	}
	base := strings.TrimRight(o.apiURL, "/") + "/"
	clientOpts := []slack.Option{slack.OptionAPIURL(base)}
	if tok := strings.TrimSpace(cfg.AppToken); tok != "" {
		clientOpts = append(clientOpts, slack.OptionAppLevelToken(tok))
	}
	return &SlackChannel{
		BaseChannel: BaseChannel{Bus: messageBus},
		config:      cfg,
		api:         slack.New(strings.TrimSpace(cfg.BotToken), clientOpts...),
	}
}

func (c *SlackChannel) Name() string { return "slack" }

// Start subscribes to outbound messages and, when an app token is set,
// opens the Socket Mode connection.
func (c *SlackChannel) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}
	if strings.TrimSpace(c.config.BotToken) == "" {
		return errors.New("slack: missing bot token")
	}
	ctx, c.cancel = context.WithCancel(ctx)

	c.Bus.Subscribe(c.Name(), func(msg *bus.OutboundMessage) {
		if err := c.Send(ctx, msg); err != nil {
			slog.Error("Slack delivery failed", "chat_id", msg.ChatID, "trace_id", msg.TraceID, "error", err)
		}
	})

	if strings.TrimSpace(c.config.AppToken) == "" {
		slog.Info("Slack socket mode disabled: no app token, outbound only")
		return nil
	}
	client := socketmode.New(c.api)
	go c.runSocketMode(ctx, client)
	go func() {
		if err := client.RunContext(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Slack socket mode stopped", "error", err)
		}
	}()
	return nil
}

func (c *SlackChannel) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Send posts msg to its chat, or to the notification channel when the
// message names none. Replies stay in their thread.
func (c *SlackChannel) Send(ctx context.Context, msg *bus.OutboundMessage) error {
	channelID := strings.TrimSpace(msg.ChatID)
	if channelID == "" {
		channelID = strings.TrimSpace(c.config.NotifyChannel)
	}
	if channelID == "" {
		return errors.New("slack: no destination channel configured")
	}
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Content, false)}
	if ts := strings.TrimSpace(msg.ThreadID); ts != "" {
		opts = append(opts, slack.MsgOptionTS(ts))
	}
	if _, _, err := c.api.PostMessageContext(ctx, channelID, opts...); err != nil {
		return fmt.Errorf("slack post to %s: %w", channelID, err)
	}
	return nil
}

func (c *SlackChannel) runSocketMode(ctx context.Context, client *socketmode.Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-client.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeConnected:
				slog.Info("Slack socket mode connected")
			case socketmode.EventTypeEventsAPI:
				if evt.Request != nil {
					client.Ack(*evt.Request)
				}
				ev, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				c.handleEvent(ev)
			}
		}
	}
}

// handleEvent publishes direct messages and channel mentions. Channel
// messages without a mention arrive as both event types, so only the
// mention is used there.
func (c *SlackChannel) handleEvent(ev slackevents.EventsAPIEvent) {
	if ev.Type != slackevents.CallbackEvent {
		return
	}
	switch in := ev.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		if in == nil || in.ChannelType != "im" || in.BotID != "" || in.SubType != "" {
			return
		}
		c.HandleInbound(in.User, in.Channel, in.ThreadTimeStamp, in.TimeStamp, in.Text)
	case *slackevents.AppMentionEvent:
		if in == nil || in.BotID != "" {
			return
		}
		c.HandleInbound(in.User, in.Channel, in.ThreadTimeStamp, in.TimeStamp, in.Text)
	}
}

// HandleInbound publishes one user message to the bus. Replies thread
// under the original message.
func (c *SlackChannel) HandleInbound(senderID, chatID, threadID, messageID, text string) bool {
	senderID = strings.TrimSpace(senderID)
	if !c.allowed(senderID) {
		slog.Warn("Dropping Slack message from unlisted sender", "sender", senderID, "chat_id", chatID)
		return false
	}
	text = strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
	if text == "" {
		return false
	}
	thread := strings.TrimSpace(threadID)
	if thread == "" {
		thread = strings.TrimSpace(messageID)
	}
	c.Bus.PublishInbound(&bus.InboundMessage{
		Channel:  c.Name(),
		SenderID: senderID,
		ChatID:   strings.TrimSpace(chatID),
		ThreadID: thread,
		Kind:     bus.KindChat,
		Content:  text,
	})
	return true
}

func (c *SlackChannel) allowed(senderID string) bool {
	if len(c.config.AllowFrom) == 0 {
		return true
	}
	for _, id := range c.config.AllowFrom {
		if strings.EqualFold(strings.TrimSpace(id), senderID) {
			return true
		}
	}
	return false
}
