package notifications

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Feed is the repository surface the notification endpoints need.
type Feed interface {
	List(ctx context.Context, page, perPage int, unreadOnly bool) ([]Notification, int, error)
	ListUnread(ctx context.Context, limit int) ([]Notification, error)
	CountUnread(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context) (int, error)
}

// Handler exposes the notification feed endpoints.
type Handler struct {
	feed Feed
}

func NewHandler(feed Feed) *Handler {
	return &Handler{feed: feed}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/notifications", h.list)
	rg.GET("/notifications/unread", h.unread)
	rg.POST("/notifications/:id/read", h.markRead)
	rg.POST("/notifications/mark-all-read", h.markAllRead)
}

func (h *Handler) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	unreadOnly := c.Query("unread_only") == "true"

	items, total, err := h.feed.List(c.Request.Context(), page, perPage, unreadOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"notifications": items,
		"total":         total,
		"page":          page,
		"per_page":      perPage,
	})
}

func (h *Handler) unread(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 50 {
		limit = 10
	}

	ctx := c.Request.Context()
	items, err := h.feed.ListUnread(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list notifications"})
		return
	}
	count, err := h.feed.CountUnread(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to count notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"count":         count,
		"notifications": items,
	})
}

func (h *Handler) markRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid notification id"})
		return
	}
	if err := h.feed.MarkRead(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to mark notification read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) markAllRead(c *gin.Context) {
	n, err := h.feed.MarkAllRead(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to mark notifications read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "marked": n})
}
