// Package vmanage is a client for the SD-WAN controller REST API used to
// run network-wide path insight traces and fetch their results.
package vmanage

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/aruiz-p/sdwan-langgraph/internal/flowdetail"
	"github.com/aruiz-p/sdwan-langgraph/internal/metrics"
)

// ErrNoSession is returned when the controller does not hand out a session
// cookie for the configured credentials.
var ErrNoSession = errors.New("vmanage: no session cookie returned")

// APIError represents a non-2xx controller response.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string // first 512 bytes
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vmanage %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Client talks to one controller. Login happens lazily on the first call
// and the session is reused afterwards.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client

	mu      sync.Mutex
	cookie  string
	token   string
	flowTTL time.Duration
	flowMax int
	flows   *expirable.LRU[FlowKey, flowdetail.FlowDetail]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithInsecureTLS disables certificate verification. Controllers commonly
// run with self-signed certificates.
func WithInsecureTLS() Option {
	return func(c *Client) {
		c.httpClient.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		}
	}
}

// WithFlowCache sets the size and lifetime of the reconstructed flow cache.
// A size of zero disables caching.
func WithFlowCache(size int, ttl time.Duration) Option {
	return func(c *Client) {
		c.flowMax = size
		c.flowTTL = ttl
	}
}

// New creates a client for baseURL, e.g. "https://10.0.0.1:8443".
func New(baseURL, username, password string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		flowMax: 256,
		flowTTL: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.flowMax > 0 {
		c.flows = expirable.NewLRU[FlowKey, flowdetail.FlowDetail](c.flowMax, nil, c.flowTTL)
	}
	return c
}

// BaseURL builds the controller URL from host and optional port.
func BaseURL(host, port string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	}
	return "https://" + host
}

// request describes one controller call.
type request struct {
	method   string
	endpoint string // metric label
	path     string
	query    url.Values
	body     any
}

// do executes r and returns the response body.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	full := c.baseURL + r.path
	if len(r.query) > 0 {
		full += "?" + r.query.Encode()
	}

	var reader io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", r.endpoint, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, full, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", r.endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.mu.Lock()
	req.Header.Set("Cookie", c.cookie)
	if c.token != "" {
		req.Header.Set("X-XSRF-TOKEN", c.token)
	}
	c.mu.Unlock()

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveControllerCall(r.endpoint, 0, started)
		return nil, fmt.Errorf("execute %s request: %w", r.endpoint, err)
	}
	defer resp.Body.Close()
	metrics.ObserveControllerCall(r.endpoint, resp.StatusCode, started)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", r.endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(r.endpoint, resp.StatusCode, body)
	}
	slog.Debug("controller call", "endpoint", r.endpoint, "status", resp.StatusCode, "bytes", len(body))
	return body, nil
}

// getJSON executes r and decodes the JSON response into dest.
func (c *Client) getJSON(ctx context.Context, r request, dest any) error {
	body, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parse %s response: %w", r.endpoint, err)
	}
	return nil
}

func newAPIError(endpoint string, status int, body []byte) *APIError {
	s := string(body)
	if len(s) > 512 {
		s = s[:512]
	}
	return &APIError{StatusCode: status, Endpoint: endpoint, Body: s}
}
