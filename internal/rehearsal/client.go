package rehearsal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/ceremony"
)

// Client talks to the ceremony HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

type stepReply struct {
	Step  ceremony.Step  `json:"step"`
	State ceremony.State `json:"state"`
}

type errorReply struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do sends a request and decodes a JSON reply into out when the status
// matches want.
func (c *Client) do(ctx context.Context, method, path string, body, out any, want int) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != want {
		var e errorReply
		_ = json.Unmarshal(data, &e)
		return fmt.Errorf("%w: %s %s: status %d %s", ErrUnexpectedReply, method, path, resp.StatusCode, e.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Health checks the metrics endpoint.
func (c *Client) Health(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	return nil
}

// Standings fetches the grouped ranking.
func (c *Client) Standings(ctx context.Context, cfg *Config) (service.Standings, error) {
	q := url.Values{}
	q.Set("kind", cfg.Kind)
	q.Set("league", cfg.League)
	q.Set("month", cfg.Month)
	if cfg.Scope != "" {
		q.Set("scope", cfg.Scope)
	}
	var out service.Standings
	err := c.do(ctx, http.MethodGet, "/standings?"+q.Encode(), nil, &out, http.StatusOK)
	return out, err
}

// Start opens a ceremony.
func (c *Client) Start(ctx context.Context, cfg *Config) (ceremony.Step, ceremony.State, error) {
	body := map[string]any{
		"kind":   cfg.Kind,
		"league": cfg.League,
		"month":  cfg.Month,
		"scope":  cfg.Scope,
		"force":  cfg.Force,
	}
	var out stepReply
	err := c.do(ctx, http.MethodPost, "/ceremony/start", body, &out, http.StatusCreated)
	return out.Step, out.State, err
}

// Advance moves the ceremony one step.
func (c *Client) Advance(ctx context.Context) (ceremony.Step, ceremony.State, error) {
	var out stepReply
	err := c.do(ctx, http.MethodPost, "/ceremony/advance", nil, &out, http.StatusOK)
	return out.Step, out.State, err
}

// Events returns the current ceremony and its events after since.
func (c *Client) Events(ctx context.Context, since int) (service.CeremonyView, error) {
	var out service.CeremonyView
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/ceremony?since=%d", since), nil, &out, http.StatusOK)
	return out, err
}
