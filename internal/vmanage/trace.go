package vmanage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"
)

// ErrTraceNotFound is returned when trace history has no entry for a trace.
var ErrTraceNotFound = errors.New("vmanage: trace not found in history")

const (
	traceName     = "GENAI-Trace"
	traceDuration = "20"
	dropThreshold = 5
	// Devices older than 17.09 do not support QoS monitoring.
	qosMinVersion = 1709
)

// TraceRequest selects where a trace runs.
type TraceRequest struct {
	Site    string
	VPN     string
	Source  string
	Dest    string
	Devices []Device
}

// TraceStart is the controller's answer to a trace start.
type TraceStart struct {
	EntryTime int64  `json:"entry_time"`
	TraceID   int64  `json:"trace-id"`
	Action    string `json:"action"`
}

// TraceStatus is one trace history entry.
type TraceStatus struct {
	TraceID   int64  `json:"trace_id"`
	EntryTime int64  `json:"entry_time"`
	State     string `json:"state"`
	Message   string `json:"message"`
}

// Readout lists the notable events of a trace, keyed APPLICATION_event,
// each with the hops where it was seen.
type Readout struct {
	EventsExist bool             `json:"events_exist"`
	Events      map[string][]any `json:"events"`
}

type startPayload struct {
	SourceSite        string   `json:"source-site"`
	DeviceList        []Device `json:"device-list"`
	VPNID             string   `json:"vpn-id"`
	SrcPfx            string   `json:"src-pfx"`
	DstPfx            string   `json:"dst-pfx"`
	ArtVis            string   `json:"art-vis"`
	AppVis            string   `json:"app-vis"`
	QoSMon            string   `json:"qos-mon"`
	Duration          string   `json:"duration"`
	TraceName         string   `json:"trace-name"`
	WANDropThreshold  int      `json:"wan-drop-rate-threshold"`
	LANDropThreshold  int      `json:"local-drop-rate-threshold"`
	SourceSiteVersion string   `json:"source-site-version"`
}

// StartTrace starts a trace on the given devices.
func (c *Client) StartTrace(ctx context.Context, tr TraceRequest) (TraceStart, error) {
	if len(tr.Devices) == 0 {
		return TraceStart{}, errors.New("start trace: device list is empty")
	}
	minVersion, versionString, err := lowestVersion(tr.Devices)
	if err != nil {
		return TraceStart{}, fmt.Errorf("start trace: %w", err)
	}
	qos := "true"
	if minVersion < qosMinVersion {
		qos = "false"
	}

	var out TraceStart
	err = c.getJSON(ctx, request{
		method:   http.MethodPost,
		endpoint: "trace_start",
		path:     "/dataservice/stream/device/nwpi/trace/start",
		body: startPayload{
			SourceSite:        tr.Site,
			DeviceList:        tr.Devices,
			VPNID:             tr.VPN,
			SrcPfx:            tr.Source,
			DstPfx:            tr.Dest,
			ArtVis:            "true",
			AppVis:            "true",
			QoSMon:            qos,
			Duration:          traceDuration,
			TraceName:         traceName,
			WANDropThreshold:  dropThreshold,
			LANDropThreshold:  dropThreshold,
			SourceSiteVersion: versionString,
		},
	}, &out)
	return out, err
}

// StopTrace stops a running trace.
func (c *Client) StopTrace(ctx context.Context, traceID int64) error {
	_, err := c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: "trace_stop",
		path:     "/dataservice/stream/device/nwpi/trace/stop/" + strconv.FormatInt(traceID, 10),
	})
	return err
}

// TraceState looks traceID up in trace history.
func (c *Client) TraceState(ctx context.Context, traceID int64) (TraceStatus, error) {
	var resp struct {
		Data []struct {
			TraceID   int64 `json:"trace-id"`
			EntryTime int64 `json:"entry_time"`
			Data      struct {
				Summary struct {
					State   string `json:"state"`
					Message string `json:"message"`
				} `json:"summary"`
			} `json:"data"`
		} `json:"data"`
	}
	err := c.getJSON(ctx, request{
		method:   http.MethodGet,
		endpoint: "trace_history",
		path:     "/dataservice/stream/device/nwpi/traceHistory",
	}, &resp)
	if err != nil {
		return TraceStatus{}, err
	}
	for _, t := range resp.Data {
		if t.TraceID == traceID {
			return TraceStatus{
				TraceID:   t.TraceID,
				EntryTime: t.EntryTime,
				State:     t.Data.Summary.State,
				Message:   t.Data.Summary.Message,
			}, nil
		}
	}
	return TraceStatus{}, ErrTraceNotFound
}

// TraceReadout returns the event readout of a trace.
func (c *Client) TraceReadout(ctx context.Context, traceID, entryTime int64) (Readout, error) {
	var resp struct {
		Data []struct {
			Detail []struct {
				Application        string `json:"application"`
				EventHopStatistics []struct {
					Event          string `json:"event"`
					HopStatistics []struct {
						HopWithEdge any `json:"hopWithEdge"`
					} `json:"hopStatistics"`
				} `json:"eventHopStatistics"`
			} `json:"detail"`
		} `json:"data"`
	}
	err := c.getJSON(ctx, request{
		method:   http.MethodGet,
		endpoint: "event_readout",
		path:     "/dataservice/stream/device/nwpi/eventReadoutByTraces",
		query: url.Values{
			"trace_id":   {strconv.FormatInt(traceID, 10)},
			"entry_time": {strconv.FormatInt(entryTime, 10)},
		},
	}, &resp)
	if err != nil {
		return Readout{}, err
	}

	out := Readout{Events: make(map[string][]any)}
	if len(resp.Data) == 0 {
		return out, nil
	}
	apps := resp.Data[0].Detail
	out.EventsExist = len(apps) > 0
	for _, app := range apps {
		for _, ev := range app.EventHopStatistics {
			hops := make([]any, 0, len(ev.HopStatistics))
			for _, h := range ev.HopStatistics {
				hops = append(hops, h.HopWithEdge)
			}
			out.Events[strings.ToUpper(app.Application)+"_"+ev.Event] = hops
		}
	}
	return out, nil
}

// lowestVersion returns the smallest four-digit numeric version among
// devices together with that device's version string.
func lowestVersion(devices []Device) (int, string, error) {
	best, bestString := -1, ""
	for _, d := range devices {
		v, ok := numericVersion(d.Version)
		if !ok {
			return 0, "", fmt.Errorf("device %s has unparsable version %q", d.SystemIP, d.Version)
		}
		if best < 0 || v < best {
			best, bestString = v, d.Version
		}
	}
	return best, bestString, nil
}

// numericVersion keeps the digits of v and reads the first four of them,
// so "17.09.01a" becomes 1709.
func numericVersion(v string) (int, bool) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, v)
	if digits == "" {
		return 0, false
	}
	if len(digits) > 4 {
		digits = digits[:4]
	}
	n, err := strconv.Atoi(digits)
	return n, err == nil
}
