package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeed struct {
	items []Notification
}

func (f *fakeFeed) List(ctx context.Context, page, perPage int, unreadOnly bool) ([]Notification, int, error) {
	return f.items, len(f.items), nil
}

func (f *fakeFeed) ListUnread(ctx context.Context, limit int) ([]Notification, error) {
	var out []Notification
	for _, n := range f.items {
		if !n.IsRead {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeFeed) CountUnread(ctx context.Context) (int, error) {
	count := 0
	for _, n := range f.items {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeFeed) MarkRead(ctx context.Context, id uuid.UUID) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeFeed) MarkAllRead(ctx context.Context) (int, error) {
	marked := 0
	for i := range f.items {
		if !f.items[i].IsRead {
			f.items[i].IsRead = true
			marked++
		}
	}
	return marked, nil
}

func setupFeedRouter(feed Feed) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(feed).Register(r.Group("/api"))
	return r
}

func TestUnreadEndpoint(t *testing.T) {
	feed := &fakeFeed{items: []Notification{
		{ID: uuid.New(), Title: "Task overdue", Type: TypeTaskOverdue},
		{ID: uuid.New(), Title: "Old news", Type: TypeInfo, IsRead: true},
	}}
	r := setupFeedRouter(feed)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/notifications/unread", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Success       bool           `json:"success"`
		Count         int            `json:"count"`
		Notifications []Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, "Task overdue", body.Notifications[0].Title)
}

func TestMarkReadRemovesFromUnread(t *testing.T) {
	id := uuid.New()
	feed := &fakeFeed{items: []Notification{{ID: id, Title: "Task due soon"}}}
	r := setupFeedRouter(feed)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/notifications/"+id.String()+"/read", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/notifications/unread", nil))

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Zero(t, body.Count)
}

func TestMarkReadUnknownID(t *testing.T) {
	r := setupFeedRouter(&fakeFeed{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/notifications/"+uuid.NewString()+"/read", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMarkReadRejectsMalformedID(t *testing.T) {
	r := setupFeedRouter(&fakeFeed{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/notifications/not-a-uuid/read", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMarkAllRead(t *testing.T) {
	feed := &fakeFeed{items: []Notification{
		{ID: uuid.New()},
		{ID: uuid.New()},
		{ID: uuid.New(), IsRead: true},
	}}
	r := setupFeedRouter(feed)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/notifications/mark-all-read", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.EqualValues(t, 2, body["marked"])
}
