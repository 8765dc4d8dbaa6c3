// Package alerts turns monitoring webhooks and Kafka alert records into
// agent notifications.
package alerts

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Alert is a Grafana style webhook payload. Keepalives arrive with an
// empty or resolved status.
type Alert struct {
	Status      string            `json:"status"`
	Title       string            `json:"title,omitempty"`
	Message     string            `json:"message,omitempty"`
	RuleName    string            `json:"ruleName,omitempty"`
	State       string            `json:"state,omitempty"`
	ExternalURL string            `json:"externalURL,omitempty"`
	Labels      map[string]string `json:"commonLabels,omitempty"`
}

// Decode parses one alert document.
func Decode(data []byte) (Alert, error) {
	var a Alert
	if err := json.Unmarshal(data, &a); err != nil {
		return Alert{}, fmt.Errorf("decode alert: %w", err)
	}
	return a, nil
}

// IsFiring reports whether the alert should be processed.
func (a Alert) IsFiring() bool {
	return strings.EqualFold(strings.TrimSpace(a.Status), "firing")
}

// Text renders the alert for the agent.
func (a Alert) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "status: %s", a.Status)
	if a.Title != "" {
		fmt.Fprintf(&b, "\ntitle: %s", a.Title)
	}
	if a.RuleName != "" {
		fmt.Fprintf(&b, "\nrule: %s", a.RuleName)
	}
	if a.Message != "" {
		fmt.Fprintf(&b, "\nmessage: %s", a.Message)
	}
	if len(a.Labels) > 0 {
		keys := make([]string, 0, len(a.Labels))
		for k := range a.Labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+a.Labels[k])
		}
		fmt.Fprintf(&b, "\nlabels: %s", strings.Join(pairs, ", "))
	}
	return b.String()
}
