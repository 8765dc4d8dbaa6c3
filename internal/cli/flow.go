package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aruiz-p/sdwan-langgraph/internal/flowdetail"
	"github.com/aruiz-p/sdwan-langgraph/internal/vmanage"
	"github.com/spf13/cobra"
)

var (
	flowTraceID   int64
	flowTimestamp int64
	flowID        int64
	flowFile      string
)

var flowDetailCmd = &cobra.Command{
	Use:   "flow-detail",
	Short: "Reconstruct the per-hop detail of one traced flow",
	Long: "Fetches the flow records for one flow from vManage and prints its upstream\n" +
		"and downstream hops. With --file, records are read from a saved JSON\n" +
		"response (or - for stdin) instead.",
	RunE: runFlowDetail,
}

func init() {
	flowDetailCmd.Flags().Int64Var(&flowTraceID, "trace", 0, "Device trace id")
	flowDetailCmd.Flags().Int64Var(&flowTimestamp, "timestamp", 0, "Trace timestamp in epoch ms")
	flowDetailCmd.Flags().Int64Var(&flowID, "flow", 0, "Flow id")
	flowDetailCmd.Flags().StringVarP(&flowFile, "file", "f", "", "Read records from a JSON file instead of vManage")
}

func runFlowDetail(cmd *cobra.Command, args []string) error {
	if flowFile != "" {
		data, err := readInput(cmd, flowFile)
		if err != nil {
			return err
		}
		records, err := flowdetail.DecodeRecords(data)
		if err != nil {
			return fmt.Errorf("decode records: %w", err)
		}
		detail, summary := flowdetail.ReconstructWithSummary(records)
		slog.Debug("Flow detail reconstructed", "mode", summary.Mode, "records", summary.Records,
			"upstream", summary.Upstream, "downstream", summary.Downstream)
		return printJSON(cmd.OutOrStdout(), detail)
	}

	if flowTraceID == 0 || flowTimestamp == 0 || flowID == 0 {
		return fmt.Errorf("--trace, --timestamp and --flow are required without --file")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newController(cfg)
	if err != nil {
		return err
	}
	detail, err := client.FlowDetail(commandContext(cmd), vmanage.FlowKey{
		DeviceTraceID: flowTraceID,
		Timestamp:     flowTimestamp,
		FlowID:        flowID,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), detail)
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
