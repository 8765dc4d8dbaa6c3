package cli

import (
	"fmt"
	"os"

	"github.com/aruiz-p/sdwan-langgraph/internal/config"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration status",
	Run:   runStatus,
}

func runStatus(cmd *cobra.Command, args []string) {
	printHeader("📊 nwpiagent Status")
	fmt.Printf("Version: %s\n", version)

	cfgPath, _ := config.ConfigPath()
	_, statErr := os.Stat(cfgPath)
	fmt.Printf("Config:  %s %s\n", cfgPath, check(statErr == nil))

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return
	}

	fmt.Println("\nController")
	fmt.Printf("  vManage: %s %s\n", hostPort(cfg.VManage.Host, cfg.VManage.Port), check(cfg.VManage.Host != ""))
	fmt.Printf("  Login:   %s\n", check(cfg.VManage.Username != "" && cfg.VManage.Password != ""))
	fmt.Printf("  Flow cache: %d entries, ttl %s\n", cfg.VManage.FlowCacheSize, cfg.VManage.FlowCacheTTL)

	fmt.Println("\nModel")
	fmt.Printf("  Name:    %s\n", cfg.Model.Name)
	fmt.Printf("  OpenAI:  %s\n", check(cfg.Providers.OpenAI.APIKey != ""))

	fmt.Println("\nGateway")
	fmt.Printf("  Listen:  %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Printf("  Auth:    %s\n", check(cfg.Gateway.AuthToken != ""))

	fmt.Println("\nChannels")
	fmt.Printf("  Slack:   %s", check(cfg.Slack.Enabled))
	if cfg.Slack.Enabled && cfg.Slack.NotifyChannel != "" {
		fmt.Printf(" (alerts to %s)", cfg.Slack.NotifyChannel)
	}
	fmt.Println()
	fmt.Printf("  Kafka:   %s", check(cfg.Alerts.Enabled))
	if cfg.Alerts.Enabled {
		fmt.Printf(" (%s on %s)", cfg.Alerts.Topic, cfg.Alerts.KafkaBrokers)
	}
	fmt.Println()

	fmt.Println("\nState")
	fmt.Printf("  Sessions: %s\n", cfg.Paths.SessionsDir)
	fmt.Printf("  Timeline: %s\n", cfg.Paths.TimelineDB)
}

func hostPort(host, port string) string {
	if host == "" {
		return "(unset)"
	}
	return host + ":" + port
}
