package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plannerdash/go-planner-backend/internal/mirror/domain"
)

const (
	defaultPerPage = 25
	maxPerPage     = 100
)

func parsePagination(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func parseFilter(c *gin.Context) domain.TaskFilter {
	f := domain.TaskFilter{
		PlannerID:  c.Query("planner_id"),
		GroupID:    c.Query("group_id"),
		Status:     domain.TaskStatus(c.Query("status")),
		Priority:   domain.TaskPriority(c.Query("priority")),
		AssigneeID: c.Query("assignee_id"),
		Search:     strings.TrimSpace(c.Query("q")),
	}
	if c.Query("overdue") == "true" {
		f.OverdueOnly = true
	}
	if v := c.Query("due_after"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.DueAfter = &t
		}
	}
	if v := c.Query("due_before"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.DueBefore = &t
		}
	}
	return f
}

func plannerJSON(p domain.Planner) gin.H {
	return gin.H{
		"id":                p.ID,
		"title":             p.Title,
		"group_id":          p.GroupID,
		"group_name":        p.GroupName,
		"is_favorite":       p.IsFavorite,
		"total_tasks":       p.TotalTasks,
		"completed_tasks":   p.CompletedTasks,
		"in_progress_tasks": p.InProgressTasks,
		"overdue_tasks":     p.OverdueTasks,
		"completion_rate":   p.CompletionRate(),
		"overdue_rate":      p.OverdueRate(),
		"last_synced":       p.LastSync,
	}
}

func (h *Handler) listTasks(c *gin.Context) {
	page, perPage := parsePagination(c)
	filter := parseFilter(c)

	tasks, pg, err := h.store.ListTasks(c.Request.Context(), filter, page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list tasks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"tasks":       tasks,
		"total":       pg.Total,
		"page":        pg.Page,
		"per_page":    pg.PerPage,
		"total_pages": pg.Pages,
	})
}

func (h *Handler) getTask(c *gin.Context) {
	task, err := h.store.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load task"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

func (h *Handler) listPlanners(c *gin.Context) {
	planners, err := h.store.ListPlanners(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list planners"})
		return
	}
	out := make([]gin.H, 0, len(planners))
	for _, p := range planners {
		out = append(out, plannerJSON(p))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "planners": out, "count": len(out)})
}

func (h *Handler) plannerTasks(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.store.GetPlanner(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrPlannerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "planner not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load planner"})
		return
	}

	page, perPage := parsePagination(c)
	filter := parseFilter(c)
	filter.PlannerID = id

	tasks, pg, err := h.store.ListTasks(c.Request.Context(), filter, page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list tasks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"tasks":       tasks,
		"total":       pg.Total,
		"page":        pg.Page,
		"per_page":    pg.PerPage,
		"total_pages": pg.Pages,
	})
}

func (h *Handler) plannerStats(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	planner, err := h.store.GetPlanner(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPlannerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "planner not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load planner"})
		return
	}

	statusStats, err := h.store.StatusStats(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load stats"})
		return
	}
	priorityStats, err := h.store.PriorityStats(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"planner":        plannerJSON(*planner),
		"status_stats":   statusStats,
		"priority_stats": priorityStats,
	})
}

type favoriteRequest struct {
	Favorite bool `json:"favorite"`
}

func (h *Handler) toggleFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	favorite, err := h.store.SetFavorite(c.Request.Context(), c.Param("id"), req.Favorite)
	if err != nil {
		if errors.Is(err, domain.ErrPlannerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "planner not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update favorite"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "favorite": favorite})
}

func (h *Handler) listGroups(c *gin.Context) {
	groups, err := h.store.ListGroups(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "groups": groups, "count": len(groups)})
}

func (h *Handler) search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "query parameter 'q' is required"})
		return
	}
	results, err := h.store.Search(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "query": query, "results": results})
}
