package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	res *Result
	err error
}

func (s *stubRunner) Run(ctx context.Context) (*Result, error) {
	return s.res, s.err
}

type stubStatus struct {
	last *LastRun
}

func (s *stubStatus) GetLastRun(ctx context.Context) (*LastRun, error) {
	return s.last, nil
}

func setupSyncRouter(runner Runner, status StatusSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(runner, status, time.Hour).Register(r.Group("/api"))
	return r
}

func TestTriggerReturnsStats(t *testing.T) {
	runner := &stubRunner{res: &Result{
		Success: true,
		Message: "sync completed successfully",
		Stats:   Stats{Groups: 1, Planners: 2, Tasks: 10},
	}}
	r := setupSyncRouter(runner, &stubStatus{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/sync", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Result  struct {
			Stats Stats `json:"stats"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 10, body.Result.Stats.Tasks)
}

func TestTriggerConflictWhileRunning(t *testing.T) {
	r := setupSyncRouter(&stubRunner{err: ErrSyncInProgress}, &stubStatus{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/sync", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestTriggerUpstreamDown(t *testing.T) {
	r := setupSyncRouter(&stubRunner{err: ErrUpstreamUnavailable}, &stubStatus{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/sync", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
}

func TestStatusNeverSynced(t *testing.T) {
	r := setupSyncRouter(&stubRunner{}, &stubStatus{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, true, body["needs_sync"])
	assert.Nil(t, body["last_sync"])
}

func TestStatusStaleness(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	status := &stubStatus{last: &LastRun{
		FinishedAt: now.Add(-30 * time.Minute),
		Result:     Result{Success: true},
	}}

	h := NewHandler(&stubRunner{}, status, time.Hour)
	h.now = func() time.Time { return now }

	r := gin.New()
	h.Register(r.Group("/api"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, false, body["needs_sync"])

	// Push the last run past the staleness threshold.
	status.last.FinishedAt = now.Add(-2 * time.Hour)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, true, body["needs_sync"])
}
