package vmanage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// ensureSession logs in once. The session cookie is the first segment of
// the Set-Cookie header returned by the security check.
func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cookie != "" {
		return nil
	}

	cookie, err := c.login(ctx)
	if err != nil {
		return err
	}
	token, err := c.fetchToken(ctx, cookie)
	if err != nil {
		return err
	}
	c.cookie = cookie
	c.token = token
	slog.Info("controller session established", "url", c.baseURL, "xsrf", token != "")
	return nil
}

func (c *Client) login(ctx context.Context) (string, error) {
	form := url.Values{"j_username": {c.username}, "j_password": {c.password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/j_security_check", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	raw := resp.Header.Get("Set-Cookie")
	if raw == "" {
		return "", ErrNoSession
	}
	cookie, _, _ := strings.Cut(raw, ";")
	return strings.TrimSpace(cookie), nil
}

// fetchToken returns the XSRF token, or "" when the controller does not
// issue one.
func (c *Client) fetchToken(ctx context.Context, cookie string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/dataservice/client/token", nil)
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Cookie", cookie)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch token: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil
	}
	return strings.TrimSpace(string(body)), nil
}
