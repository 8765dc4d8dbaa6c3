package vmanage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aruiz-p/sdwan-langgraph/internal/flowdetail"
	"github.com/aruiz-p/sdwan-langgraph/internal/metrics"
)

// FlowSummary is one flow captured by a trace.
type FlowSummary struct {
	FlowID        int64  `json:"flow_id"`
	DeviceTraceID int64  `json:"device_trace_id"`
	Source        string `json:"src_ip"`
	Destination   string `json:"dst_ip"`
	Application   string `json:"app_name"`
	Protocol      any    `json:"protocol"`
}

// FlowKey addresses the flow detail of one flow.
type FlowKey struct {
	DeviceTraceID int64
	Timestamp     int64
	FlowID        int64
}

// QueryWindow returns the received-timestamp window used to filter finished
// flows: one minute and one hour after the trace timestamp, in epoch ms.
func QueryWindow(timestamp int64) (int64, int64) {
	return timestamp + time.Minute.Milliseconds(), timestamp + time.Hour.Milliseconds()
}

type flowQuery struct {
	Query struct {
		Condition string      `json:"condition"`
		Rules     []queryRule `json:"rules"`
	} `json:"query"`
}

type queryRule struct {
	Value    []int64 `json:"value"`
	Field    string  `json:"field"`
	Type     string  `json:"type"`
	Operator string  `json:"operator"`
}

// FlowSummary lists the finished flows of a trace.
func (c *Client) FlowSummary(ctx context.Context, traceID, timestamp int64) ([]FlowSummary, error) {
	start, end := QueryWindow(timestamp)
	var q flowQuery
	q.Query.Condition = "AND"
	q.Query.Rules = []queryRule{{
		Value:    []int64{start, end},
		Field:    "data.received_timestamp",
		Type:     "date",
		Operator: "greater",
	}}

	var resp struct {
		Data []struct {
			Data FlowSummary `json:"data"`
		} `json:"data"`
	}
	err := c.getJSON(ctx, request{
		method:   http.MethodGet,
		endpoint: "fin_flow",
		path:     "/dataservice/stream/device/nwpi/traceFinFlowWithQuery",
		query: url.Values{
			"traceId":   {strconv.FormatInt(traceID, 10)},
			"timestamp": {strconv.FormatInt(timestamp, 10)},
		},
		body: q,
	}, &resp)
	if err != nil {
		return nil, err
	}
	flows := make([]FlowSummary, 0, len(resp.Data))
	for _, f := range resp.Data {
		flows = append(flows, f.Data)
	}
	return flows, nil
}

// FlowRecords fetches the raw diagnostic records of one flow.
func (c *Client) FlowRecords(ctx context.Context, key FlowKey) ([]flowdetail.RawRecord, error) {
	body, err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: "flow_detail",
		path:     "/dataservice/stream/device/nwpi/flowDetail",
		query: url.Values{
			"traceId":   {strconv.FormatInt(key.DeviceTraceID, 10)},
			"timestamp": {strconv.FormatInt(key.Timestamp, 10)},
			"flowId":    {strconv.FormatInt(key.FlowID, 10)},
		},
	})
	if err != nil {
		return nil, err
	}
	records, err := flowdetail.DecodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("flow %d: %w", key.FlowID, err)
	}
	return records, nil
}

// FlowDetail fetches and reconstructs the hop view of one flow. Results are
// cached briefly per key.
func (c *Client) FlowDetail(ctx context.Context, key FlowKey) (flowdetail.FlowDetail, error) {
	if c.flows != nil {
		if d, ok := c.flows.Get(key); ok {
			metrics.FlowCacheHits.Inc()
			return d, nil
		}
	}

	records, err := c.FlowRecords(ctx, key)
	if err != nil {
		return flowdetail.FlowDetail{}, err
	}
	detail, sum := flowdetail.ReconstructWithSummary(records)
	metrics.ObserveReconstruction(sum.Mode, sum.Upstream, sum.Downstream)
	slog.Info("flow detail reconstructed",
		"trace", key.DeviceTraceID, "flow", key.FlowID,
		"mode", sum.Mode, "records", sum.Records, "keys", sum.Keys,
		"upstream", sum.Upstream, "downstream", sum.Downstream)

	if c.flows != nil {
		c.flows.Add(key, detail)
	}
	return detail, nil
}
