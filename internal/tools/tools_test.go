package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aruiz-p/sdwan-langgraph/internal/flowdetail"
	"github.com/aruiz-p/sdwan-langgraph/internal/vmanage"
)

type fakeController struct {
	sites     []string
	devices   []vmanage.Device
	started   vmanage.TraceRequest
	stopped   int64
	status    vmanage.TraceStatus
	readout   vmanage.Readout
	flows     []vmanage.FlowSummary
	detail    flowdetail.FlowDetail
	detailKey vmanage.FlowKey
	err       error
}

func (f *fakeController) Sites(context.Context) ([]string, error) { return f.sites, f.err }
func (f *fakeController) Devices(_ context.Context, site int) ([]vmanage.Device, error) {
	return f.devices, f.err
}
func (f *fakeController) StartTrace(_ context.Context, req vmanage.TraceRequest) (vmanage.TraceStart, error) {
	f.started = req
	return vmanage.TraceStart{EntryTime: 1000, TraceID: 42, Action: "start"}, f.err
}
func (f *fakeController) StopTrace(_ context.Context, id int64) error {
	f.stopped = id
	return f.err
}
func (f *fakeController) TraceState(context.Context, int64) (vmanage.TraceStatus, error) {
	return f.status, f.err
}
func (f *fakeController) TraceReadout(context.Context, int64, int64) (vmanage.Readout, error) {
	return f.readout, f.err
}
func (f *fakeController) FlowSummary(context.Context, int64, int64) ([]vmanage.FlowSummary, error) {
	return f.flows, f.err
}
func (f *fakeController) FlowDetail(_ context.Context, key vmanage.FlowKey) (flowdetail.FlowDetail, error) {
	f.detailKey = key
	return f.detail, f.err
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(NWPITools(&fakeController{})...)

	got, ok := r.Get("get_flow_detail")
	if !ok {
		t.Fatal("expected to find get_flow_detail tool")
	}
	if got.Name() != "get_flow_detail" {
		t.Errorf("expected name 'get_flow_detail', got '%s'", got.Name())
	}

	if _, ok := r.Get("nonexistent"); ok {
		t.Error("expected not to find nonexistent tool")
	}

	list := r.List()
	if len(list) != 9 {
		t.Fatalf("expected 9 tools, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Name() > list[i].Name() {
			t.Errorf("list not sorted: %s before %s", list[i-1].Name(), list[i].Name())
		}
	}

	sub := r.Subset("get_site_list", "missing")
	if len(sub.List()) != 1 {
		t.Errorf("expected subset of 1, got %d", len(sub.List()))
	}

	if _, err := r.Execute(context.Background(), "missing", nil); err == nil {
		t.Error("expected error for unknown tool")
	}
}

func TestGetInt64(t *testing.T) {
	params := map[string]any{
		"f": float64(42), "s": "17", "n": json.Number("9"), "bad": "x",
	}
	cases := map[string]int64{"f": 42, "s": 17, "n": 9, "bad": -1, "missing": -1}
	for key, want := range cases {
		if got := GetInt64(params, key, -1); got != want {
			t.Errorf("GetInt64(%q) = %d, want %d", key, got, want)
		}
	}
	if got := GetString(map[string]any{"site": float64(100)}, "site", ""); got != "100" {
		t.Errorf("GetString numeric = %q", got)
	}
}

func TestStartTraceTool(t *testing.T) {
	fc := &fakeController{}
	tool := &StartTraceTool{ctrl: fc}

	result, err := tool.Execute(context.Background(), map[string]any{
		"site": "100",
		"vpn":  float64(10),
		"device_list": []any{
			map[string]any{"local-system-ip": "1.1.1.1", "deviceId": "1.1.1.1", "uuid": "u1", "version": "17.09.01"},
		},
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(result, `"trace_id":42`) {
		t.Errorf("unexpected result %s", result)
	}
	if fc.started.VPN != "10" || len(fc.started.Devices) != 1 || fc.started.Devices[0].UUID != "u1" {
		t.Errorf("unexpected request %+v", fc.started)
	}

	result, _ = tool.Execute(context.Background(), map[string]any{"site": "100", "vpn": "1"})
	if !strings.HasPrefix(result, "Error") {
		t.Errorf("expected error for missing device_list, got %s", result)
	}
}

func TestFlowDetailTool(t *testing.T) {
	fc := &fakeController{detail: flowdetail.FlowDetail{
		Upstream:   []flowdetail.HopDescriptor{{Hop: "R1", IngressFeatures: []string{}, EgressFeatures: []string{}}},
		Downstream: []flowdetail.HopDescriptor{},
	}}
	tool := &FlowDetailTool{ctrl: fc}

	result, err := tool.Execute(context.Background(), map[string]any{
		"device_trace_id": float64(8), "timestamp": float64(1000), "flow_id": "3",
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if fc.detailKey != (vmanage.FlowKey{DeviceTraceID: 8, Timestamp: 1000, FlowID: 3}) {
		t.Errorf("unexpected key %+v", fc.detailKey)
	}
	var decoded flowdetail.FlowDetail
	if err := json.Unmarshal([]byte(result), &decoded); err != nil {
		t.Fatalf("result is not flow detail JSON: %v", err)
	}
	if len(decoded.Upstream) != 1 || decoded.Upstream[0].Hop != "R1" {
		t.Errorf("unexpected detail %s", result)
	}

	result, _ = tool.Execute(context.Background(), map[string]any{"flow_id": float64(3)})
	if !strings.HasPrefix(result, "Error") {
		t.Errorf("expected error for missing ids, got %s", result)
	}
}

func TestFlowDetailTool_Empty(t *testing.T) {
	tool := &FlowDetailTool{ctrl: &fakeController{}}
	result, _ := tool.Execute(context.Background(), map[string]any{
		"device_trace_id": float64(8), "timestamp": float64(1000), "flow_id": float64(3),
	})
	if !strings.Contains(result, "No hops") {
		t.Errorf("unexpected result %s", result)
	}
}

func TestToolsReportControllerErrors(t *testing.T) {
	fc := &fakeController{err: errors.New("boom")}
	params := map[string]any{"site": float64(1), "trace_id": float64(1), "timestamp": float64(1)}
	for _, tool := range []Tool{
		&SiteListTool{ctrl: fc},
		&DeviceDetailsTool{ctrl: fc},
		&StopTraceTool{ctrl: fc},
		&VerifyTraceStateTool{ctrl: fc},
		&EntryTimeTool{ctrl: fc},
		&TraceReadoutTool{ctrl: fc},
		&FlowSummaryTool{ctrl: fc},
	} {
		result, err := tool.Execute(context.Background(), params)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tool.Name(), err)
		}
		if !strings.HasPrefix(result, "Error") || !strings.Contains(result, "boom") {
			t.Errorf("%s: expected error text, got %q", tool.Name(), result)
		}
	}
}

func TestEntryTimeTool(t *testing.T) {
	fc := &fakeController{status: vmanage.TraceStatus{TraceID: 42, EntryTime: 1700, State: "running"}}
	result, _ := (&EntryTimeTool{ctrl: fc}).Execute(context.Background(), map[string]any{"trace_id": float64(42)})
	if result != `{"entry_time":1700,"state":"running"}` {
		t.Errorf("unexpected result %s", result)
	}
}

func TestWaitTool(t *testing.T) {
	tool := NewReviewerWaitTool(10 * time.Millisecond)
	if tool.Name() != "reviewer_wait" {
		t.Errorf("unexpected name %s", tool.Name())
	}
	result, err := tool.Execute(context.Background(), nil)
	if err != nil || !strings.HasPrefix(result, "Waited") {
		t.Errorf("unexpected result %q err %v", result, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewTracerWaitTool(time.Hour).Execute(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
	if NewTracerWaitTool(0).delay != 60*time.Second {
		t.Error("expected default tracer delay")
	}
}
