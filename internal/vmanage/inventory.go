package vmanage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Device is a reachable edge in a site, in the shape the trace start call
// expects for its device list.
type Device struct {
	SystemIP string `json:"local-system-ip"`
	DeviceID string `json:"deviceId"`
	UUID     string `json:"uuid"`
	Version  string `json:"version"`
}

// Sites returns the ids of every site reported by site health.
func (c *Client) Sites(ctx context.Context) ([]string, error) {
	var resp struct {
		Data []struct {
			SiteID any `json:"site_id"`
		} `json:"data"`
	}
	err := c.getJSON(ctx, request{
		method:   http.MethodGet,
		endpoint: "sitehealth",
		path:     "/dataservice/statistics/sitehealth/common",
		query:    url.Values{"interval": {"30"}},
	}, &resp)
	if err != nil {
		return nil, err
	}
	sites := make([]string, 0, len(resp.Data))
	for _, s := range resp.Data {
		if s.SiteID == nil {
			continue
		}
		sites = append(sites, scalarString(s.SiteID))
	}
	return sites, nil
}

// Devices returns the reachable devices of site.
func (c *Client) Devices(ctx context.Context, site int) ([]Device, error) {
	var resp struct {
		Devices []struct {
			Reachability    string `json:"reachability"`
			SystemIP        string `json:"system_ip"`
			UUID            string `json:"uuid"`
			SoftwareVersion string `json:"software_version"`
		} `json:"devices"`
	}
	err := c.getJSON(ctx, request{
		method:   http.MethodGet,
		endpoint: "health_devices",
		path:     "/dataservice/health/devices",
		query:    url.Values{"page_size": {"12000"}, "site-id": {strconv.Itoa(site)}},
	}, &resp)
	if err != nil {
		return nil, err
	}
	devices := make([]Device, 0, len(resp.Devices))
	for _, d := range resp.Devices {
		if d.Reachability != "reachable" {
			continue
		}
		devices = append(devices, Device{
			SystemIP: d.SystemIP,
			DeviceID: d.SystemIP,
			UUID:     d.UUID,
			Version:  d.SoftwareVersion,
		})
	}
	return devices, nil
}

// scalarString renders a decoded JSON scalar without float noise.
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
