package vmanage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aruiz-p/sdwan-langgraph/internal/flowdetail"
)

type fakeController struct {
	*httptest.Server
	logins atomic.Int32
	mux    *http.ServeMux
}

func newFakeController(t *testing.T) *fakeController {
	t.Helper()
	fc := &fakeController{mux: http.NewServeMux()}
	fc.mux.HandleFunc("/j_security_check", func(w http.ResponseWriter, r *http.Request) {
		fc.logins.Add(1)
		_ = r.ParseForm()
		if r.PostForm.Get("j_username") != "admin" || r.PostForm.Get("j_password") != "secret" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Set-Cookie", "JSESSIONID=abc123; Path=/; HttpOnly")
	})
	fc.mux.HandleFunc("/dataservice/client/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "JSESSIONID=abc123" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = io.WriteString(w, "xsrf-tok")
	})
	fc.Server = httptest.NewServer(fc.mux)
	t.Cleanup(fc.Close)
	return fc
}

// handle registers an authenticated JSON endpoint.
func (fc *fakeController) handle(t *testing.T, path string, fn func(r *http.Request) any) {
	fc.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "JSESSIONID=abc123" || r.Header.Get("X-XSRF-TOKEN") != "xsrf-tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch v := fn(r).(type) {
		case string:
			_, _ = io.WriteString(w, v)
		default:
			assert.NoError(t, json.NewEncoder(w).Encode(v))
		}
	})
}

func (fc *fakeController) client(opts ...Option) *Client {
	return New(fc.URL, "admin", "secret", opts...)
}

func TestClient_LoginOnceAndReuseSession(t *testing.T) {
	fc := newFakeController(t)
	fc.handle(t, "/dataservice/statistics/sitehealth/common", func(r *http.Request) any {
		assert.Equal(t, "30", r.URL.Query().Get("interval"))
		return `{"data":[{"site_id":100},{"site_id":"200"},{"other":1}]}`
	})
	c := fc.client()

	sites, err := c.Sites(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "200"}, sites)

	_, err = c.Sites(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), fc.logins.Load())
}

func TestClient_NoSessionCookie(t *testing.T) {
	fc := newFakeController(t)
	c := New(fc.URL, "admin", "wrong")

	_, err := c.Sites(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestClient_APIError(t *testing.T) {
	fc := newFakeController(t)
	fc.mux.HandleFunc("/dataservice/health/devices", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, strings.Repeat("x", 600))
	})
	c := fc.client()

	_, err := c.Devices(context.Background(), 100)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "health_devices", apiErr.Endpoint)
	assert.Len(t, apiErr.Body, 512)
}

func TestClient_DevicesReachableOnly(t *testing.T) {
	fc := newFakeController(t)
	fc.handle(t, "/dataservice/health/devices", func(r *http.Request) any {
		assert.Equal(t, "100", r.URL.Query().Get("site-id"))
		assert.Equal(t, "12000", r.URL.Query().Get("page_size"))
		return `{"devices":[
			{"reachability":"reachable","system_ip":"1.1.1.1","uuid":"u1","software_version":"17.09.01a"},
			{"reachability":"unreachable","system_ip":"1.1.1.2","uuid":"u2","software_version":"17.06.01"}
		]}`
	})

	devices, err := fc.client().Devices(context.Background(), 100)

	require.NoError(t, err)
	assert.Equal(t, []Device{{SystemIP: "1.1.1.1", DeviceID: "1.1.1.1", UUID: "u1", Version: "17.09.01a"}}, devices)
}

func TestClient_StartTraceQoSByLowestVersion(t *testing.T) {
	tests := []struct {
		name     string
		versions []string
		wantQoS  string
		wantVer  string
	}{
		{"all new", []string{"17.09.01", "17.12.02"}, "true", "17.09.01"},
		{"one old", []string{"17.12.02", "17.06.03a"}, "false", "17.06.03a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := newFakeController(t)
			var got map[string]any
			fc.handle(t, "/dataservice/stream/device/nwpi/trace/start", func(r *http.Request) any {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				return `{"entry_time":1700000000000,"trace-id":42,"action":"start"}`
			})
			var devices []Device
			for i, v := range tt.versions {
				devices = append(devices, Device{SystemIP: string(rune('a' + i)), Version: v})
			}

			start, err := fc.client().StartTrace(context.Background(), TraceRequest{Site: "100", VPN: "10", Devices: devices})

			require.NoError(t, err)
			assert.Equal(t, TraceStart{EntryTime: 1700000000000, TraceID: 42, Action: "start"}, start)
			assert.Equal(t, tt.wantQoS, got["qos-mon"])
			assert.Equal(t, tt.wantVer, got["source-site-version"])
			assert.Equal(t, "GENAI-Trace", got["trace-name"])
			assert.Equal(t, "20", got["duration"])
			assert.Equal(t, "10", got["vpn-id"])
		})
	}
}

func TestClient_StartTraceRejectsEmptyDevices(t *testing.T) {
	_, err := New("http://unused", "a", "b").StartTrace(context.Background(), TraceRequest{Site: "1"})
	assert.Error(t, err)
}

func TestClient_TraceState(t *testing.T) {
	fc := newFakeController(t)
	fc.handle(t, "/dataservice/stream/device/nwpi/traceHistory", func(r *http.Request) any {
		return `{"data":[
			{"trace-id":41,"entry_time":1,"data":{"summary":{"state":"stopped","message":"done"}}},
			{"trace-id":42,"entry_time":1700000000000,"data":{"summary":{"state":"running","message":"ok"}}}
		]}`
	})
	c := fc.client()

	st, err := c.TraceState(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, TraceStatus{TraceID: 42, EntryTime: 1700000000000, State: "running", Message: "ok"}, st)

	_, err = c.TraceState(context.Background(), 7)
	assert.ErrorIs(t, err, ErrTraceNotFound)
}

func TestClient_StopTrace(t *testing.T) {
	fc := newFakeController(t)
	var hit atomic.Bool
	fc.handle(t, "/dataservice/stream/device/nwpi/trace/stop/42", func(r *http.Request) any {
		hit.Store(r.Method == http.MethodPost)
		return `{"action":"stop"}`
	})

	require.NoError(t, fc.client().StopTrace(context.Background(), 42))
	assert.True(t, hit.Load())
}

func TestClient_TraceReadout(t *testing.T) {
	fc := newFakeController(t)
	fc.handle(t, "/dataservice/stream/device/nwpi/eventReadoutByTraces", func(r *http.Request) any {
		assert.Equal(t, "42", r.URL.Query().Get("trace_id"))
		assert.Equal(t, "99", r.URL.Query().Get("entry_time"))
		return `{"data":[{"detail":[{"application":"webex","eventHopStatistics":[
			{"event":"LOCAL_DROP","hopStatistics":[{"hopWithEdge":"R1->R2"},{"hopWithEdge":"R2->R3"}]}
		]}]}]}`
	})

	ro, err := fc.client().TraceReadout(context.Background(), 42, 99)

	require.NoError(t, err)
	assert.True(t, ro.EventsExist)
	assert.Equal(t, map[string][]any{"WEBEX_LOCAL_DROP": {"R1->R2", "R2->R3"}}, ro.Events)
}

func TestClient_FlowSummaryWindow(t *testing.T) {
	fc := newFakeController(t)
	fc.handle(t, "/dataservice/stream/device/nwpi/traceFinFlowWithQuery", func(r *http.Request) any {
		var q flowQuery
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		if assert.Len(t, q.Query.Rules, 1) {
			assert.Equal(t, []int64{1000 + 60_000, 1000 + 3_600_000}, q.Query.Rules[0].Value)
			assert.Equal(t, "data.received_timestamp", q.Query.Rules[0].Field)
		}
		return `{"data":[{"data":{"flow_id":3,"device_trace_id":8,"src_ip":"10.0.0.1","dst_ip":"10.0.0.2","app_name":"webex","protocol":"UDP"}}]}`
	})

	flows, err := fc.client().FlowSummary(context.Background(), 42, 1000)

	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, int64(3), flows[0].FlowID)
	assert.Equal(t, int64(8), flows[0].DeviceTraceID)
	assert.Equal(t, "webex", flows[0].Application)
}

const flowBody = `[
	{"type":"event-of-packet","data":{"device_name":"R1","event_name":"drop","event_direction":"downstream","local_color":"blue","remote_color":"gold","packet_id":7,"received_timestamp":5}},
	{"type":"feature-of-packet","data":{"device_name":"R1","packet_received_timestamp":5,"packet":{"packet_id":7,"packet_fwd_decision":"route","packet":{"ingress_fia":[{"feature_name":"Ingress Report","feature_detail":"Gi0/1"}],"egress_fia":[]}}}}
]`

func TestClient_FlowDetailCached(t *testing.T) {
	fc := newFakeController(t)
	var calls atomic.Int32
	fc.handle(t, "/dataservice/stream/device/nwpi/flowDetail", func(r *http.Request) any {
		calls.Add(1)
		assert.Equal(t, "8", r.URL.Query().Get("traceId"))
		assert.Equal(t, "3", r.URL.Query().Get("flowId"))
		return flowBody
	})
	c := fc.client()
	key := FlowKey{DeviceTraceID: 8, Timestamp: 1000, FlowID: 3}

	first, err := c.FlowDetail(context.Background(), key)
	require.NoError(t, err)
	second, err := c.FlowDetail(context.Background(), key)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
	require.Len(t, first.Downstream, 1)
	assert.Equal(t, "R1", first.Downstream[0].Hop)
}

func TestClient_FlowDetailCacheDisabled(t *testing.T) {
	fc := newFakeController(t)
	var calls atomic.Int32
	fc.handle(t, "/dataservice/stream/device/nwpi/flowDetail", func(r *http.Request) any {
		calls.Add(1)
		return flowBody
	})
	c := fc.client(WithFlowCache(0, 0))
	key := FlowKey{DeviceTraceID: 8, Timestamp: 1000, FlowID: 3}

	_, err := c.FlowDetail(context.Background(), key)
	require.NoError(t, err)
	_, err = c.FlowDetail(context.Background(), key)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_FlowRecordsNotSequence(t *testing.T) {
	fc := newFakeController(t)
	fc.handle(t, "/dataservice/stream/device/nwpi/flowDetail", func(r *http.Request) any {
		return `{"error":"bad"}`
	})

	_, err := fc.client().FlowRecords(context.Background(), FlowKey{FlowID: 1})

	assert.ErrorIs(t, err, flowdetail.ErrNotSequence)
}

func TestNumericVersion(t *testing.T) {
	tests := map[string]int{
		"17.09.01a": 1709,
		"17.6":      176,
		"20.12.1":   2012,
	}
	for in, want := range tests {
		got, ok := numericVersion(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := numericVersion("beta")
	assert.False(t, ok)
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://10.0.0.1:8443", BaseURL("10.0.0.1", "8443"))
	assert.Equal(t, "https://vmanage", BaseURL("vmanage", ""))
	assert.Equal(t, "http://127.0.0.1:9", BaseURL("http://127.0.0.1:9", "443"))
}
