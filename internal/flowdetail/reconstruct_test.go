package flowdetail

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventJSON(device, name, dir, local, remote string, pid int, ts int64) string {
	return fmt.Sprintf(`{"type":"event-of-packet","data":{"device_name":%q,"event_name":%q,"event_direction":%q,"local_color":%q,"remote_color":%q,"packet_id":%d,"received_timestamp":%d}}`,
		device, name, dir, local, remote, pid, ts)
}

func featureJSON(device string, pid int, ts int64, ingress, egress, decision string) string {
	return fmt.Sprintf(`{"type":"feature-of-packet","data":{"device_name":%q,"packet_received_timestamp":%d,"packet":{"packet_id":%d,"packet_fwd_decision":%q,"packet":{"ingress_fia":%s,"egress_fia":%s}}}}`,
		device, ts, pid, decision, ingress, egress)
}

func textFeatureJSON(device string, ts int64, event, detail string) string {
	return fmt.Sprintf(`{"type":"feature-of-packet","data":{"device_name":%q,"packet_received_timestamp":%d,"packet":{"packet_id":1,"event_name":%q,"packet_fwd_decision":"SDWAN","packet":{"ingress_fia":[{"feature_name":"Ingress Report","feature_detail":"Gi1"}],"egress_fia":[{"feature_name":"SDWAN Forwarding","feature_detail":%q},{"feature_name":"Transmit Report","feature_detail":"Tunnel1"}]}}}}`,
		device, ts, event, detail)
}

func decode(t *testing.T, records ...string) []RawRecord {
	t.Helper()
	body := "["
	for i, r := range records {
		if i > 0 {
			body += ","
		}
		body += r
	}
	body += "]"
	out, err := DecodeRecords([]byte(body))
	require.NoError(t, err)
	return out
}

func strPtr(s string) *string { return &s }

func hops(list []HopDescriptor) []string {
	out := make([]string, len(list))
	for i, h := range list {
		out[i] = h.Hop
	}
	return out
}

func TestReconstruct_StructuredSingleHop(t *testing.T) {
	records := decode(t,
		eventJSON("R1", "drop", "downstream", "blue", "gold", 7, 1000),
		featureJSON("R1", 7, 1000, `[{"feature_name":"Ingress Report","feature_detail":"Gi0/1"}]`, `[]`, "route"),
	)

	got := Reconstruct(records)

	assert.Empty(t, got.Upstream)
	require.Len(t, got.Downstream, 1)
	assert.Equal(t, HopDescriptor{
		Hop:                "R1",
		Event:              "drop",
		LocalColor:         "blue",
		RemoteColor:        "gold",
		IngressInterface:   strPtr("Gi0/1"),
		EgressInterface:    nil,
		IngressFeatures:    []string{"Ingress Report"},
		EgressFeatures:     []string{},
		ForwardingDecision: "route",
	}, got.Downstream[0])
}

func TestReconstruct_InvalidColorsNormalized(t *testing.T) {
	tests := []struct {
		dir          string
		local        string
		remote       string
		wantLocal    string
		wantRemote   string
		wantUpstream bool
	}{
		{"upstream", "INVALID", "INVALID", "Service LAN", "N/A", true},
		{"downstream", "INVALID", "INVALID", "N/A", "Service LAN", false},
		{"upstream", "INVALID", "gold", "INVALID", "gold", true},
	}
	for _, tt := range tests {
		t.Run(tt.dir+"/"+tt.remote, func(t *testing.T) {
			records := decode(t,
				eventJSON("R1", "fwd", tt.dir, tt.local, tt.remote, 3, 10),
				featureJSON("R1", 3, 10, `[]`, `[]`, "route"),
			)
			got := Reconstruct(records)
			list := got.Downstream
			if tt.wantUpstream {
				list = got.Upstream
			}
			require.Len(t, list, 1)
			assert.Equal(t, tt.wantLocal, list[0].LocalColor)
			assert.Equal(t, tt.wantRemote, list[0].RemoteColor)
		})
	}
}

func TestReconstruct_TextFallbackInvalidColorsNormalized(t *testing.T) {
	tests := []struct {
		name         string
		detail       string
		wantLocal    string
		wantRemote   string
		wantUpstream bool
	}{
		{"upstream", "dir: Upstream Local Color: INVALID Remote Color: INVALID", "Service LAN", "N/A", true},
		{"downstream", "dir: Downstream Local Color: INVALID Remote Color: INVALID", "N/A", "Service LAN", false},
		{"one side invalid", "dir: Downstream Local Color: INVALID Remote Color: gold", "INVALID", "gold", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconstruct(decode(t, textFeatureJSON("E1", 50, "forward", tt.detail)))
			list := got.Downstream
			other := got.Upstream
			if tt.wantUpstream {
				list, other = got.Upstream, got.Downstream
			}
			assert.Empty(t, other)
			require.Len(t, list, 1)
			assert.Equal(t, tt.wantLocal, list[0].LocalColor)
			assert.Equal(t, tt.wantRemote, list[0].RemoteColor)
		})
	}
}

func TestReconstruct_TextFallbackUpstream(t *testing.T) {
	records := decode(t,
		textFeatureJSON("E1", 50, "forward", "dir: Upstream, Local Color: gold Remote Color: blue"),
	)

	got := Reconstruct(records)

	assert.Empty(t, got.Downstream)
	require.Len(t, got.Upstream, 1)
	hop := got.Upstream[0]
	assert.Equal(t, "E1", hop.Hop)
	assert.Equal(t, "forward", hop.Event)
	assert.Equal(t, "gold", hop.LocalColor)
	assert.Equal(t, "blue", hop.RemoteColor)
	assert.Equal(t, strPtr("Gi1"), hop.IngressInterface)
	assert.Equal(t, strPtr("Tunnel1"), hop.EgressInterface)
	assert.Equal(t, []string{"SDWAN Forwarding", "Transmit Report"}, hop.EgressFeatures)
	assert.Equal(t, "SDWAN", hop.ForwardingDecision)
}

func TestReconstruct_TextFallbackCaseInsensitive(t *testing.T) {
	records := decode(t,
		textFeatureJSON("E2", 60, "forward", "DIR:downstream local color:biz-internet"),
	)

	got := Reconstruct(records)

	require.Len(t, got.Downstream, 1)
	assert.Equal(t, "biz-internet", got.Downstream[0].LocalColor)
	assert.Equal(t, "not found", got.Downstream[0].RemoteColor)
}

func TestReconstruct_TextFallbackWithoutDirectionIsDropped(t *testing.T) {
	records := decode(t,
		textFeatureJSON("E1", 50, "forward", "dir: Upstream Local Color: gold"),
		textFeatureJSON("E2", 60, "forward", "Local Color: gold Remote Color: blue"),
	)

	got := Reconstruct(records)

	assert.Equal(t, []string{"E1"}, hops(got.Upstream))
	assert.Empty(t, got.Downstream)
}

func TestReconstruct_TextFallbackWithoutSentinelIsDropped(t *testing.T) {
	records := decode(t,
		featureJSON("E3", 1, 70, `[{"feature_name":"Ingress Report","feature_detail":"dir: Upstream"}]`, `[]`, "route"),
	)

	got := Reconstruct(records)

	assert.True(t, got.Empty())
}

func TestReconstruct_DuplicatePacketIDEmitsEveryMatch(t *testing.T) {
	records := decode(t,
		eventJSON("R1", "drop", "upstream", "blue", "gold", 9, 100),
		featureJSON("R1", 9, 100, `[]`, `[]`, "route-a"),
		featureJSON("R2", 9, 200, `[]`, `[]`, "route-b"),
	)

	got := Reconstruct(records)

	require.Len(t, got.Upstream, 2)
	assert.Equal(t, "route-a", got.Upstream[0].ForwardingDecision)
	assert.Equal(t, "route-b", got.Upstream[1].ForwardingDecision)
	assert.Equal(t, "R1", got.Upstream[1].Hop, "hop comes from the event")
}

func TestReconstruct_DirectionOrdering(t *testing.T) {
	records := decode(t,
		eventJSON("A", "fwd", "upstream", "c1", "c2", 1, 1),
		featureJSON("A", 1, 1, `[]`, `[]`, "r"),
		eventJSON("B", "fwd", "upstream", "c1", "c2", 2, 2),
		featureJSON("B", 2, 2, `[]`, `[]`, "r"),
		eventJSON("C", "fwd", "downstream", "c1", "c2", 3, 3),
		featureJSON("C", 3, 3, `[]`, `[]`, "r"),
		eventJSON("D", "fwd", "downstream", "c1", "c2", 4, 4),
		featureJSON("D", 4, 4, `[]`, `[]`, "r"),
		eventJSON("E", "fwd", "downstream", "c1", "c2", 5, 5),
		featureJSON("E", 5, 5, `[]`, `[]`, "r"),
	)

	got := Reconstruct(records)

	// Events are scanned newest first; only downstream is flipped back.
	assert.Equal(t, []string{"B", "A"}, hops(got.Upstream))
	assert.Equal(t, []string{"C", "D", "E"}, hops(got.Downstream))
}

func TestReconstruct_UnknownDirectionRoutesDownstream(t *testing.T) {
	records := decode(t,
		eventJSON("R1", "fwd", "sideways", "INVALID", "INVALID", 1, 1),
		featureJSON("R1", 1, 1, `[]`, `[]`, "r"),
	)

	got := Reconstruct(records)

	require.Len(t, got.Downstream, 1)
	assert.Equal(t, "INVALID", got.Downstream[0].LocalColor)
}

func TestReconstruct_MissingFieldsSkipOnlyThatHop(t *testing.T) {
	records := decode(t,
		`{"type":"event-of-packet","data":{"device_name":"BAD","event_name":"drop","event_direction":"upstream","local_color":"a","remote_color":"b","received_timestamp":1}}`,
		eventJSON("R2", "drop", "upstream", "a", "b", 2, 2),
		featureJSON("R2", 2, 2, `[]`, `[]`, "r"),
		eventJSON("R3", "drop", "upstream", "a", "b", 3, 3),
		`{"type":"feature-of-packet","data":{"device_name":"R3","packet_received_timestamp":3,"packet":{"packet_id":3}}}`,
	)

	got := Reconstruct(records)

	assert.Equal(t, []string{"R2"}, hops(got.Upstream))
	assert.Empty(t, got.Downstream)
}

func TestReconstruct_UnmatchedRecordsExcluded(t *testing.T) {
	records := decode(t,
		eventJSON("R1", "drop", "upstream", "a", "b", 1, 1),
		featureJSON("R1", 2, 1, `[]`, `[]`, "r"),
		`{"type":"aggregate","data":{"flow_id":4}}`,
	)

	got := Reconstruct(records)

	assert.True(t, got.Empty())
}

func TestReconstruct_EmptyInput(t *testing.T) {
	got := Reconstruct(nil)

	assert.NotNil(t, got.Upstream)
	assert.NotNil(t, got.Downstream)
	assert.True(t, got.Empty())

	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"upstream":[],"downstream":[]}`, string(b))
}

func TestReconstruct_Idempotent(t *testing.T) {
	records := decode(t,
		eventJSON("A", "fwd", "upstream", "c1", "c2", 1, 1),
		featureJSON("A", 1, 1, `[{"feature_name":"Ingress Report","feature_detail":"Gi1"}]`, `[]`, "r"),
		eventJSON("B", "fwd", "downstream", "c1", "c2", 2, 2),
		featureJSON("B", 2, 2, `[]`, `[{"feature_name":"Transmit Report","feature_detail":"Gi2"}]`, "r"),
	)

	first := Reconstruct(records)
	second := Reconstruct(records)

	assert.Equal(t, first, second)
}

func TestReconstruct_HopJSONOmitsAbsentInterfaces(t *testing.T) {
	records := decode(t,
		eventJSON("R1", "drop", "upstream", "a", "b", 1, 1),
		featureJSON("R1", 1, 1, `[]`, `[]`, "r"),
	)

	got := Reconstruct(records)
	require.Len(t, got.Upstream, 1)

	b, err := json.Marshal(got.Upstream[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"hop":"R1","event":"drop","local_color":"a","remote_color":"b","ingress_features":[],"egress_features":[],"forwarding_decision":"r"}`, string(b))
}

func TestReconstruct_ObjectFeatureDetailRenderedAsJSON(t *testing.T) {
	records := decode(t,
		eventJSON("R1", "drop", "upstream", "a", "b", 1, 1),
		featureJSON("R1", 1, 1, `[{"feature_name":"Ingress Report","feature_detail":{"intf":"Gi1","vrf":10}}]`, `[]`, "r"),
	)

	got := Reconstruct(records)

	require.Len(t, got.Upstream, 1)
	assert.Equal(t, strPtr(`{"intf":"Gi1","vrf":10}`), got.Upstream[0].IngressInterface)
}

func TestReconstructWithSummary(t *testing.T) {
	records := decode(t,
		eventJSON("A", "fwd", "upstream", "c1", "c2", 1, 1),
		featureJSON("A", 1, 1, `[]`, `[]`, "r"),
		featureJSON("A", 5, 1, `[]`, `[]`, "r"),
	)

	_, sum := ReconstructWithSummary(records)

	assert.Equal(t, Summary{
		Mode:     "structured",
		Records:  3,
		Keys:     1,
		Events:   1,
		Features: 2,
		Pairings: 1,
		Upstream: 1,
	}, sum)
}
