package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	chatMessage string
	chatSession string
	chatTimeout time.Duration
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Send one request through the agent graph",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Request to send")
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "cli:default", "Session key for worker memory")
	chatCmd.Flags().DurationVar(&chatTimeout, "timeout", 15*time.Minute, "Give up after this long")
	_ = chatCmd.MarkFlagRequired("message")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tl, err := openTimeline(cfg)
	if err != nil {
		return fmt.Errorf("open timeline: %w", err)
	}
	defer tl.Close()

	loop, err := newLoop(cfg, nil, tl)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), chatTimeout)
	defer cancel()

	resp, err := loop.Chat(ctx, chatSession, chatMessage)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp)
	return nil
}
