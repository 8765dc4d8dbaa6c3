package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aruiz-p/sdwan-langgraph/internal/alerts"
	"github.com/aruiz-p/sdwan-langgraph/internal/bus"
	"github.com/aruiz-p/sdwan-langgraph/internal/channels"
	"github.com/aruiz-p/sdwan-langgraph/internal/gateway"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"gateway"},
	Short:   "Start the HTTP gateway, Slack bot and alert consumer",
	RunE:    runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	printHeader("🌐 nwpiagent Gateway")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tl, err := openTimeline(cfg)
	if err != nil {
		return fmt.Errorf("open timeline: %w", err)
	}
	defer tl.Close()

	msgBus := bus.NewMessageBus()
	loop, err := newLoop(cfg, msgBus, tl)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := loop.Run(ctx); err != nil {
			slog.Error("Agent loop exited", "error", err)
		}
	}()
	go msgBus.DispatchOutbound(ctx)

	notifyChannel := ""
	if cfg.Slack.Enabled {
		slack := channels.NewSlackChannel(cfg.Slack, msgBus)
		if err := slack.Start(ctx); err != nil {
			return fmt.Errorf("start slack: %w", err)
		}
		defer slack.Stop()
		notifyChannel = slack.Name()
		fmt.Println("  Slack: connected")
	}

	dispatcher := alerts.NewDispatcher(loop, msgBus, notifyChannel)
	if cfg.Alerts.Enabled {
		consumer := alerts.NewKafkaConsumer(cfg.Alerts.KafkaBrokers, cfg.Alerts.Topic, cfg.Alerts.ConsumerGroup)
		if err := consumer.Start(ctx); err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
		defer func() {
			stop()
			consumer.Close()
		}()
		go func() {
			if err := alerts.NewSource(consumer, dispatcher).Run(ctx); err != nil {
				slog.Error("Alert source exited", "error", err)
			}
		}()
		fmt.Printf("  Kafka: %s on %s\n", cfg.Alerts.Topic, cfg.Alerts.KafkaBrokers)
	}

	srv := gateway.New(gateway.Options{
		Agent:     loop,
		Alerts:    dispatcher,
		Timeline:  tl,
		AuthToken: cfg.Gateway.AuthToken,
	})
	addr := fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Printf("  Listening on http://%s\n", addr)

	err = srv.ListenAndServe(ctx, addr)
	srv.Wait()
	return err
}
