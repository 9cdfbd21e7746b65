package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/fatiguetrack/internal/fatigue"
	"github.com/meltforce/fatiguetrack/internal/session"
)

// HTTPClient implements DataSource by calling the FatigueTrack REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// sessions live on the remote server (accessed over Tailscale). The server
// derives the session owner from the connection, so userID arguments are
// ignored.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. The API
// key is sent on write requests.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// do sends a request and decodes a JSON response into out. A 404 is
// reported as session.ErrNotFound.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("httpclient: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("httpclient: %s: %w", path, session.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func sessionPath(id uuid.UUID, suffix string) string {
	return "/api/v1/sessions/" + id.String() + suffix
}

func (c *HTTPClient) CreateSession(ctx context.Context, _ string) (session.Info, error) {
	var info session.Info
	err := c.do(ctx, http.MethodPost, "/api/v1/sessions", nil, &info)
	return info, err
}

func (c *HTTPClient) ListSessions(ctx context.Context, _ string) ([]session.Info, error) {
	var sessions []session.Info
	err := c.do(ctx, http.MethodGet, "/api/v1/sessions", nil, &sessions)
	return sessions, err
}

func (c *HTTPClient) RecordSet(ctx context.Context, id uuid.UUID, in fatigue.SetInput) (fatigue.SetResult, error) {
	var res fatigue.SetResult
	err := c.do(ctx, http.MethodPost, sessionPath(id, "/sets"), in, &res)
	return res, err
}

func (c *HTTPClient) Snapshot(ctx context.Context, id uuid.UUID) (session.Snapshot, error) {
	var snap session.Snapshot
	err := c.do(ctx, http.MethodGet, sessionPath(id, "/snapshot"), nil, &snap)
	return snap, err
}

func (c *HTTPClient) Level(ctx context.Context, id uuid.UUID, muscle fatigue.MuscleGroup) (float64, error) {
	var resp struct {
		FatigueLevel float64 `json:"fatigue_level"`
	}
	err := c.do(ctx, http.MethodGet, sessionPath(id, "/levels/"+url.PathEscape(string(muscle))), nil, &resp)
	return resp.FatigueLevel, err
}

func (c *HTTPClient) ExerciseFatigue(ctx context.Context, id uuid.UUID, ex fatigue.Exercise) (fatigue.ExerciseFatigue, error) {
	var ef fatigue.ExerciseFatigue
	err := c.do(ctx, http.MethodPost, sessionPath(id, "/exercise-fatigue"), ex, &ef)
	return ef, err
}

func (c *HTTPClient) Recommendations(ctx context.Context, id uuid.UUID) (fatigue.Recommendations, error) {
	var rec fatigue.Recommendations
	err := c.do(ctx, http.MethodGet, sessionPath(id, "/recommendations"), nil, &rec)
	return rec, err
}

func (c *HTTPClient) ResetSession(ctx context.Context, id uuid.UUID) (session.Info, error) {
	var info session.Info
	err := c.do(ctx, http.MethodPost, sessionPath(id, "/reset"), nil, &info)
	return info, err
}

func (c *HTTPClient) MuscleGroups(ctx context.Context) ([]fatigue.GroupRates, error) {
	var groups []fatigue.GroupRates
	err := c.do(ctx, http.MethodGet, "/api/v1/muscle-groups", nil, &groups)
	return groups, err
}
