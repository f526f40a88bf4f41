package analytics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler serves the dashboard aggregate endpoint.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/dashboard/stats", h.dashboardStats)
}

func (h *Handler) dashboardStats(c *gin.Context) {
	ctx := c.Request.Context()

	kpis, err := h.svc.GetKPIs(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to compute dashboard stats"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("recent_limit", "10"))
	if limit < 1 || limit > 50 {
		limit = 10
	}
	recent, err := h.svc.RecentTasks(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load recent tasks"})
		return
	}
	busy, err := h.svc.BusyPlanners(ctx, 5)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load busiest planners"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"stats":         kpis,
		"recent_tasks":  recent,
		"busy_planners": busy,
	})
}
