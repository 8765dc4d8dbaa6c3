package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var devicesSite int

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List the site ids known to vManage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newController(cfg)
		if err != nil {
			return err
		}
		sites, err := client.Sites(commandContext(cmd))
		if err != nil {
			return err
		}
		for _, s := range sites {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		return nil
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the reachable devices of one site",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newController(cfg)
		if err != nil {
			return err
		}
		devices, err := client.Devices(commandContext(cmd), devicesSite)
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("No reachable devices at site %d", devicesSite))
			return nil
		}
		return printJSON(cmd.OutOrStdout(), devices)
	},
}

func init() {
	devicesCmd.Flags().IntVar(&devicesSite, "site", 0, "Site id")
	_ = devicesCmd.MarkFlagRequired("site")
}
