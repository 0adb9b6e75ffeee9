// Package portal scrapes the student portal for grades and timetables.
//
// The portal exposes cookie-authenticated JSON endpoints; the client
// forwards the student's session cookie, decodes the response into the
// typed Grades/Schedule records and leaves interpretation to the caller.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/httpclient"
)

const (
	gradesPath   = "/api/grades"
	schedulePath = "/api/schedule"
)

// Client calls the student portal.
//
// Safe for concurrent use after construction.
type Client struct {
	baseURL       string
	defaultCookie string
	httpClient    *httpclient.Client
}

// NewClient creates a portal client from configuration.
func NewClient(cfg config.PortalConfig) *Client {
	return &Client{
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		defaultCookie: cfg.Cookie,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			httpclient.WithHeaderParser(httpclient.ParseRetryAfterHeader),
		),
	}
}

// Grades fetches the student transcript.
//
// cookie overrides the configured session cookie when non-empty.
func (c *Client) Grades(ctx context.Context, cookie string) (*Grades, error) {
	var grades Grades
	if err := c.get(ctx, "grades", gradesPath, cookie, &grades); err != nil {
		return nil, err
	}
	return &grades, nil
}

// Schedule fetches the student weekly timetable.
//
// cookie overrides the configured session cookie when non-empty.
func (c *Client) Schedule(ctx context.Context, cookie string) (*Schedule, error) {
	var schedule Schedule
	if err := c.get(ctx, "schedule", schedulePath, cookie, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (c *Client) get(ctx context.Context, endpoint, path, cookie string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if cookie == "" {
		cookie = c.defaultCookie
	}
	if cookie == "" {
		return NewAuthError(endpoint, 0)
	}
	req.Header.Set("Cookie", cookie)

	resp, err := c.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return NewAuthError(endpoint, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return NewRemoteError(endpoint, fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
		}
	}
	if err != nil {
		return classifyTransportError(endpoint, err)
	}
	if resp == nil {
		return NewRemoteError(endpoint, "no response received", nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewInvalidResponseError(endpoint, fmt.Sprintf("failed to read response: %v", err))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return NewInvalidResponseError(endpoint, fmt.Sprintf("failed to decode response: %v", err))
	}
	return nil
}
