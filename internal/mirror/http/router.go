package http

import "github.com/gin-gonic/gin"

// Register attaches the mirror browsing routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/tasks", h.listTasks)
	rg.GET("/tasks/:id", h.getTask)

	rg.GET("/planners", h.listPlanners)
	rg.GET("/planners/:id/tasks", h.plannerTasks)
	rg.GET("/planners/:id/stats", h.plannerStats)
	rg.POST("/planners/:id/favorite", h.toggleFavorite)

	rg.GET("/groups", h.listGroups)
	rg.GET("/search", h.search)
}
