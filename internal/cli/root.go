package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/aruiz-p/sdwan-langgraph/internal/cli.version=1.2.3"
	version = "0.3.0"
	logo    = "\n" +
		"  _ ____      ___ __ (_)\n" +
		" | '_ \\ \\ /\\ / / '_ \\| |\n" +
		" | | | \\ V  V /| |_) | |\n" +
		" |_| |_|\\_/\\_/ | .__/|_|\n" +
		"               |_|  agent\n"
)

var rootCmd = &cobra.Command{
	Use:   "nwpiagent",
	Short: "nwpiagent - SD-WAN path insight assistant",
	Long:  color.CyanString(logo) + "\nRuns Network Wide Path Insight traces for chat requests and network alerts.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(flowDetailCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(devicesCmd)
}
