package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aruiz-p/sdwan-langgraph/internal/flowdetail"
	"github.com/aruiz-p/sdwan-langgraph/internal/vmanage"
)

// Controller is the subset of the controller API the path insight tools
// drive.
type Controller interface {
	Sites(ctx context.Context) ([]string, error)
	Devices(ctx context.Context, site int) ([]vmanage.Device, error)
	StartTrace(ctx context.Context, req vmanage.TraceRequest) (vmanage.TraceStart, error)
	StopTrace(ctx context.Context, traceID int64) error
	TraceState(ctx context.Context, traceID int64) (vmanage.TraceStatus, error)
	TraceReadout(ctx context.Context, traceID, entryTime int64) (vmanage.Readout, error)
	FlowSummary(ctx context.Context, traceID, timestamp int64) ([]vmanage.FlowSummary, error)
	FlowDetail(ctx context.Context, key vmanage.FlowKey) (flowdetail.FlowDetail, error)
}

// NWPITools returns every controller-backed tool.
func NWPITools(c Controller) []Tool {
	return []Tool{
		&SiteListTool{ctrl: c},
		&DeviceDetailsTool{ctrl: c},
		&StartTraceTool{ctrl: c},
		&StopTraceTool{ctrl: c},
		&VerifyTraceStateTool{ctrl: c},
		&EntryTimeTool{ctrl: c},
		&TraceReadoutTool{ctrl: c},
		&FlowSummaryTool{ctrl: c},
		&FlowDetailTool{ctrl: c},
	}
}

func intProp(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

func strProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func object(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func requireInt(params map[string]any, key string) (int64, bool) {
	v := GetInt64(params, key, -1)
	return v, v >= 0
}

// SiteListTool lists the sites known to the controller.
type SiteListTool struct{ ctrl Controller }

func (t *SiteListTool) Name() string { return "get_site_list" }
func (t *SiteListTool) Description() string {
	return "Get the list of site IDs. An empty list means traces cannot be run."
}
func (t *SiteListTool) Parameters() map[string]any { return object(map[string]any{}) }

func (t *SiteListTool) Execute(ctx context.Context, _ map[string]any) (string, error) {
	sites, err := t.ctrl.Sites(ctx)
	if err != nil {
		return fmt.Sprintf("Error listing sites: %v", err), nil
	}
	return jsonResult(sites)
}

// DeviceDetailsTool lists the reachable devices of a site.
type DeviceDetailsTool struct{ ctrl Controller }

func (t *DeviceDetailsTool) Name() string { return "get_device_details_from_site" }
func (t *DeviceDetailsTool) Description() string {
	return "Retrieve the reachable devices of a site with system IP, uuid and version. Required before starting a trace."
}
func (t *DeviceDetailsTool) Parameters() map[string]any {
	return object(map[string]any{"site": intProp("Site ID given by the user")}, "site")
}

func (t *DeviceDetailsTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	site, ok := requireInt(params, "site")
	if !ok {
		return "Error: site is required", nil
	}
	devices, err := t.ctrl.Devices(ctx, int(site))
	if err != nil {
		return fmt.Sprintf("Error listing devices: %v", err), nil
	}
	return jsonResult(devices)
}

// StartTraceTool starts a trace on the devices of a site.
type StartTraceTool struct{ ctrl Controller }

func (t *StartTraceTool) Name() string { return "start_trace" }
func (t *StartTraceTool) Description() string {
	return "Start a trace on the devices of a site. Returns the entry time, the trace ID and the action taken."
}
func (t *StartTraceTool) Parameters() map[string]any {
	return object(map[string]any{
		"device_list": map[string]any{
			"type":        "array",
			"description": "Devices returned by get_device_details_from_site",
			"items":       map[string]any{"type": "object"},
		},
		"site": strProp("Site where the trace runs. Given by the user."),
		"vpn":  strProp("VPN where the trace runs. Given by the user."),
		"src":  strProp("Optional source subnet or host filter"),
		"dst":  strProp("Optional destination subnet or host filter"),
	}, "device_list", "site", "vpn")
}

func (t *StartTraceTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	site := GetString(params, "site", "")
	vpn := GetString(params, "vpn", "")
	if site == "" || vpn == "" {
		return "Error: site and vpn are required", nil
	}
	devices, err := decodeDevices(params["device_list"])
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}
	start, err := t.ctrl.StartTrace(ctx, vmanage.TraceRequest{
		Site:    site,
		VPN:     vpn,
		Source:  GetString(params, "src", ""),
		Dest:    GetString(params, "dst", ""),
		Devices: devices,
	})
	if err != nil {
		return fmt.Sprintf("Error starting trace: %v", err), nil
	}
	return jsonResult(map[string]any{
		"start_time": start.EntryTime,
		"trace_id":   start.TraceID,
		"status":     start.Action,
	})
}

// decodeDevices converts the model's device list back into devices.
func decodeDevices(v any) ([]vmanage.Device, error) {
	if v == nil {
		return nil, errors.New("device_list is required")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("device_list: %w", err)
	}
	var devices []vmanage.Device
	if err := json.Unmarshal(b, &devices); err != nil {
		return nil, fmt.Errorf("device_list must be a list of devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, errors.New("device_list is empty")
	}
	return devices, nil
}

// StopTraceTool stops a running trace.
type StopTraceTool struct{ ctrl Controller }

func (t *StopTraceTool) Name() string        { return "stop_trace" }
func (t *StopTraceTool) Description() string { return "Stop a running trace once enough flows are captured." }
func (t *StopTraceTool) Parameters() map[string]any {
	return object(map[string]any{"trace_id": intProp("Trace ID from start_trace")}, "trace_id")
}

func (t *StopTraceTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	id, ok := requireInt(params, "trace_id")
	if !ok {
		return "Error: trace_id is required", nil
	}
	if err := t.ctrl.StopTrace(ctx, id); err != nil {
		return fmt.Sprintf("Error stopping trace: %v", err), nil
	}
	return fmt.Sprintf("Trace %d stopped.", id), nil
}

// VerifyTraceStateTool reports the state of a trace.
type VerifyTraceStateTool struct{ ctrl Controller }

func (t *VerifyTraceStateTool) Name() string { return "verify_trace_state" }
func (t *VerifyTraceStateTool) Description() string {
	return "Verify the trace is running correctly. Returns its state (running or stopped) and message."
}
func (t *VerifyTraceStateTool) Parameters() map[string]any {
	return object(map[string]any{"trace_id": intProp("Trace ID from start_trace")}, "trace_id")
}

func (t *VerifyTraceStateTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	id, ok := requireInt(params, "trace_id")
	if !ok {
		return "Error: trace_id is required", nil
	}
	st, err := t.ctrl.TraceState(ctx, id)
	if err != nil {
		return fmt.Sprintf("Error reading trace state: %v", err), nil
	}
	return jsonResult(map[string]any{"state": st.State, "message": st.Message})
}

// EntryTimeTool returns the entry time and state of a trace.
type EntryTimeTool struct{ ctrl Controller }

func (t *EntryTimeTool) Name() string { return "get_entry_time_and_state" }
func (t *EntryTimeTool) Description() string {
	return "Get the entry time of a trace, needed for the readout, and its state (running or stopped)."
}
func (t *EntryTimeTool) Parameters() map[string]any {
	return object(map[string]any{"trace_id": intProp("Trace ID from start_trace")}, "trace_id")
}

func (t *EntryTimeTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	id, ok := requireInt(params, "trace_id")
	if !ok {
		return "Error: trace_id is required", nil
	}
	st, err := t.ctrl.TraceState(ctx, id)
	if err != nil {
		return fmt.Sprintf("Error reading trace history: %v", err), nil
	}
	return jsonResult(map[string]any{"entry_time": st.EntryTime, "state": st.State})
}

// TraceReadoutTool summarizes the notable events of a trace.
type TraceReadoutTool struct{ ctrl Controller }

func (t *TraceReadoutTool) Name() string { return "trace_readout" }
func (t *TraceReadoutTool) Description() string {
	return "Get the important events of a trace, keyed by application and event, with the hops affected. No events means no impact on traffic."
}
func (t *TraceReadoutTool) Parameters() map[string]any {
	return object(map[string]any{
		"trace_id":  intProp("Trace ID"),
		"timestamp": intProp("Entry time of the trace in epoch ms"),
	}, "trace_id", "timestamp")
}

func (t *TraceReadoutTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	id, ok := requireInt(params, "trace_id")
	ts, tsOK := requireInt(params, "timestamp")
	if !ok || !tsOK {
		return "Error: trace_id and timestamp are required", nil
	}
	ro, err := t.ctrl.TraceReadout(ctx, id, ts)
	if err != nil {
		return fmt.Sprintf("Error reading trace events: %v", err), nil
	}
	return jsonResult(ro)
}

// FlowSummaryTool lists the flows a trace captured.
type FlowSummaryTool struct{ ctrl Controller }

func (t *FlowSummaryTool) Name() string { return "get_flow_summary" }
func (t *FlowSummaryTool) Description() string {
	return "Get summary information of the flows captured by a trace: flow ID, device trace ID, source, destination, application and protocol."
}
func (t *FlowSummaryTool) Parameters() map[string]any {
	return object(map[string]any{
		"trace_id":  intProp("Trace ID"),
		"timestamp": intProp("Entry time of the trace in epoch ms"),
	}, "trace_id", "timestamp")
}

func (t *FlowSummaryTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	id, ok := requireInt(params, "trace_id")
	ts, tsOK := requireInt(params, "timestamp")
	if !ok || !tsOK {
		return "Error: trace_id and timestamp are required", nil
	}
	flows, err := t.ctrl.FlowSummary(ctx, id, ts)
	if err != nil {
		return fmt.Sprintf("Error reading flows: %v", err), nil
	}
	return jsonResult(flows)
}

// FlowDetailTool reconstructs the hop-by-hop path of one flow.
type FlowDetailTool struct{ ctrl Controller }

func (t *FlowDetailTool) Name() string { return "get_flow_detail" }
func (t *FlowDetailTool) Description() string {
	return "Get the hop-by-hop detail of one flow, upstream and downstream: device, event, colors, interfaces, features and forwarding decision."
}
func (t *FlowDetailTool) Parameters() map[string]any {
	return object(map[string]any{
		"device_trace_id": intProp("Device trace ID from get_flow_summary"),
		"timestamp":       intProp("Entry time of the trace in epoch ms"),
		"flow_id":         intProp("Flow ID from get_flow_summary"),
	}, "device_trace_id", "timestamp", "flow_id")
}

func (t *FlowDetailTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	dt, ok1 := requireInt(params, "device_trace_id")
	ts, ok2 := requireInt(params, "timestamp")
	flow, ok3 := requireInt(params, "flow_id")
	if !ok1 || !ok2 || !ok3 {
		return "Error: device_trace_id, timestamp and flow_id are required", nil
	}
	detail, err := t.ctrl.FlowDetail(ctx, vmanage.FlowKey{DeviceTraceID: dt, Timestamp: ts, FlowID: flow})
	if err != nil {
		return fmt.Sprintf("Error reading flow detail: %v", err), nil
	}
	if detail.Empty() {
		return "No hops could be reconstructed for this flow.", nil
	}
	return jsonResult(detail)
}
