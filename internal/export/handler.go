package export

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plannerdash/go-planner-backend/internal/mirror/domain"
)

// Handler serves report downloads.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/export/tasks", h.exportTasks)
}

type exportRequest struct {
	Format  string `json:"format"`
	Filters struct {
		PlannerID   string `json:"planner_id"`
		GroupID     string `json:"group_id"`
		Status      string `json:"status"`
		Priority    string `json:"priority"`
		AssigneeID  string `json:"assignee_id"`
		Search      string `json:"q"`
		OverdueOnly bool   `json:"overdue_only"`
		DueAfter    string `json:"due_after"`
		DueBefore   string `json:"due_before"`
	} `json:"filters"`
}

func (h *Handler) exportTasks(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	if req.Format == "" {
		req.Format = FormatXLSX
	}

	filter := domain.TaskFilter{
		PlannerID:   req.Filters.PlannerID,
		GroupID:     req.Filters.GroupID,
		Status:      domain.TaskStatus(req.Filters.Status),
		Priority:    domain.TaskPriority(req.Filters.Priority),
		AssigneeID:  req.Filters.AssigneeID,
		Search:      req.Filters.Search,
		OverdueOnly: req.Filters.OverdueOnly,
	}
	if req.Filters.DueAfter != "" {
		if t, err := time.Parse("2006-01-02", req.Filters.DueAfter); err == nil {
			filter.DueAfter = &t
		}
	}
	if req.Filters.DueBefore != "" {
		if t, err := time.Parse("2006-01-02", req.Filters.DueBefore); err == nil {
			filter.DueBefore = &t
		}
	}

	var buf bytes.Buffer
	if err := h.svc.Write(c.Request.Context(), &buf, req.Format, filter); err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to build export"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.svc.Filename(req.Format)))
	c.Data(http.StatusOK, ContentType(req.Format), buf.Bytes())
}
