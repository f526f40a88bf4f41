// Package dashclient is a Go client for the planner dashboard API. It is
// intended for CLI tooling and integration tests that drive the dashboard
// the way the web front end does.
package dashclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"
)

const (
	defaultTimeout = 15 * time.Second
	syncTimeout    = 5 * time.Minute
	exportTimeout  = 2 * time.Minute

	getRetries    = 2
	getRetryDelay = 500 * time.Millisecond
)

// ErrSyncInFlight is returned by TriggerSync while a previous trigger from
// this client has not finished.
var ErrSyncInFlight = errors.New("a sync request is already in flight")

// ErrUnreachable wraps transport-level failures so callers can show a
// "cannot reach server" message instead of the application error string.
var ErrUnreachable = errors.New("cannot reach server")

// APIError is a non-2xx response from the dashboard API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// Client talks to the dashboard API.
type Client struct {
	baseURL string
	apiKey  string

	defaultClient *http.Client
	syncClient    *http.Client // sync passes can run for minutes
	exportClient  *http.Client

	syncInFlight atomic.Bool
	sleep        func(time.Duration)
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:       baseURL,
		apiKey:        apiKey,
		defaultClient: &http.Client{Timeout: defaultTimeout},
		syncClient:    &http.Client{Timeout: syncTimeout},
		exportClient:  &http.Client{Timeout: exportTimeout},
		sleep:         time.Sleep,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func decodeEnvelope(resp *http.Response, out any) error {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// SyncStats are the aggregate counts of one completed sync pass.
type SyncStats struct {
	Groups        int `json:"groups"`
	Planners      int `json:"planners"`
	Tasks         int `json:"tasks"`
	Errors        int `json:"errors"`
	UsersEnriched int `json:"users_enriched"`
}

// SyncOutcome is the server's report for a triggered pass.
type SyncOutcome struct {
	Message string
	Stats   SyncStats
}

// TriggerSync starts a synchronization pass and waits for the outcome.
// A second call while one is in flight returns ErrSyncInFlight without
// touching the network. Transport failures are wrapped in ErrUnreachable;
// application failures carry the server's error string. The trigger is
// never retried: the server may have started working even when the
// response was lost.
func (c *Client) TriggerSync(ctx context.Context) (*SyncOutcome, error) {
	if !c.syncInFlight.CompareAndSwap(false, true) {
		return nil, ErrSyncInFlight
	}
	defer c.syncInFlight.Store(false)

	req, err := c.newRequest(ctx, http.MethodPost, "/api/sync", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.syncClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	var body struct {
		envelope
		Result struct {
			Stats SyncStats `json:"stats"`
		} `json:"result"`
	}
	if err := decodeEnvelope(resp, &body); err != nil {
		return nil, err
	}
	return &SyncOutcome{Message: body.Message, Stats: body.Result.Stats}, nil
}

// ToggleFavorite flips a planner's favorite flag and returns the stored
// value as echoed by the server, never the optimistic negation.
func (c *Client) ToggleFavorite(ctx context.Context, plannerID string, current bool) (bool, error) {
	payload, _ := json.Marshal(map[string]bool{"favorite": !current})
	req, err := c.newRequest(ctx, http.MethodPost, "/api/planners/"+url.PathEscape(plannerID)+"/favorite", bytes.NewReader(payload))
	if err != nil {
		return current, err
	}
	resp, err := c.defaultClient.Do(req)
	if err != nil {
		return current, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	var body struct {
		envelope
		Favorite bool `json:"favorite"`
	}
	if err := decodeEnvelope(resp, &body); err != nil {
		return current, err
	}
	return body.Favorite, nil
}

// getJSON performs an idempotent GET with bounded retry on transport
// failure. Application errors are returned immediately.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	var lastErr error
	for attempt := 0; attempt <= getRetries; attempt++ {
		if attempt > 0 {
			c.sleep(getRetryDelay * time.Duration(attempt))
		}
		req, err := c.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		resp, err := c.defaultClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrUnreachable, err)
			continue
		}
		return decodeEnvelope(resp, out)
	}
	return lastErr
}

// UnreadCount returns the current number of unread notifications.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var body struct {
		envelope
		Count int `json:"count"`
	}
	if err := c.getJSON(ctx, "/api/notifications/unread", &body); err != nil {
		return 0, err
	}
	return body.Count, nil
}

// MarkRead marks one notification read, then re-polls the unread count so
// the caller renders the server's view rather than a local decrement.
func (c *Client) MarkRead(ctx context.Context, notificationID string) (int, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/notifications/"+url.PathEscape(notificationID)+"/read", nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.defaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if err := decodeEnvelope(resp, nil); err != nil {
		return 0, err
	}
	return c.UnreadCount(ctx)
}

// ExportFilters narrows an export to matching tasks. Zero values are
// omitted from the request.
type ExportFilters struct {
	PlannerID   string
	GroupID     string
	Status      string
	Priority    string
	AssigneeID  string
	Search      string
	OverdueOnly bool
}

// ExportResult is a downloaded report.
type ExportResult struct {
	Filename string
	Data     []byte
}

// ExportTasks downloads a task report in the given format ("xlsx" or
// "csv"). The filename comes from the server's Content-Disposition
// header, with a date-stamped fallback when it is absent.
func (c *Client) ExportTasks(ctx context.Context, format string, filters ExportFilters) (*ExportResult, error) {
	reqBody := map[string]any{"format": format}
	ff := map[string]any{}
	if filters.PlannerID != "" {
		ff["planner_id"] = filters.PlannerID
	}
	if filters.GroupID != "" {
		ff["group_id"] = filters.GroupID
	}
	if filters.Status != "" {
		ff["status"] = filters.Status
	}
	if filters.Priority != "" {
		ff["priority"] = filters.Priority
	}
	if filters.AssigneeID != "" {
		ff["assignee_id"] = filters.AssigneeID
	}
	if filters.Search != "" {
		ff["q"] = filters.Search
	}
	if filters.OverdueOnly {
		ff["overdue_only"] = true
	}
	if len(ff) > 0 {
		reqBody["filters"] = ff
	}
	payload, _ := json.Marshal(reqBody)

	req, err := c.newRequest(ctx, http.MethodPost, "/api/export/tasks", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	resp, err := c.exportClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if resp.StatusCode >= 400 {
		return nil, decodeEnvelope(resp, nil)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	filename := filenameFromDisposition(resp.Header.Get("Content-Disposition"))
	if filename == "" {
		filename = "tasks_" + time.Now().Format("2006-01-02") + "." + format
	}
	return &ExportResult{Filename: filename, Data: data}, nil
}

func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// Planner is the client-side view of a mirrored planner.
type Planner struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	GroupName      string  `json:"group_name"`
	IsFavorite     bool    `json:"is_favorite"`
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	OverdueTasks   int     `json:"overdue_tasks"`
	CompletionRate float64 `json:"completion_rate"`
}

// ListPlanners returns every mirrored planner.
func (c *Client) ListPlanners(ctx context.Context) ([]Planner, error) {
	var body struct {
		envelope
		Planners []Planner `json:"planners"`
	}
	if err := c.getJSON(ctx, "/api/planners", &body); err != nil {
		return nil, err
	}
	return body.Planners, nil
}

// SyncStatus reports the server's last completed pass.
type SyncStatus struct {
	LastSync  *time.Time `json:"last_sync"`
	NeedsSync bool       `json:"needs_sync"`
}

// GetSyncStatus returns when the mirror was last refreshed.
func (c *Client) GetSyncStatus(ctx context.Context) (*SyncStatus, error) {
	var body struct {
		envelope
		LastSync  *time.Time `json:"last_sync"`
		NeedsSync bool       `json:"needs_sync"`
	}
	if err := c.getJSON(ctx, "/api/sync/status", &body); err != nil {
		return nil, err
	}
	return &SyncStatus{LastSync: body.LastSync, NeedsSync: body.NeedsSync}, nil
}
