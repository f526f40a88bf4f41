package sync

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Runner triggers one synchronization pass.
type Runner interface {
	Run(ctx context.Context) (*Result, error)
}

// StatusSource reports the outcome of the most recent pass.
type StatusSource interface {
	GetLastRun(ctx context.Context) (*LastRun, error)
}

// Handler exposes the sync trigger and status endpoints.
type Handler struct {
	runner     Runner
	status     StatusSource
	staleAfter time.Duration
	now        func() time.Time
}

func NewHandler(runner Runner, status StatusSource, staleAfter time.Duration) *Handler {
	return &Handler{
		runner:     runner,
		status:     status,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/sync", h.trigger)
	rg.GET("/sync/status", h.syncStatus)
}

func (h *Handler) trigger(c *gin.Context) {
	res, err := h.runner.Run(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, ErrSyncInProgress):
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   "a synchronization is already running",
			})
		case errors.Is(err, ErrUpstreamUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"error":   "upstream service unavailable",
			})
		default:
			log.Printf("[error] sync run failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "synchronization failed",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": res.Success,
		"message": res.Message,
		"result": gin.H{
			"stats": res.Stats,
		},
	})
}

func (h *Handler) syncStatus(c *gin.Context) {
	last, err := h.status.GetLastRun(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load sync status"})
		return
	}
	if last == nil {
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"last_sync":  nil,
			"needs_sync": true,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"last_sync":  last.FinishedAt,
		"needs_sync": h.now().Sub(last.FinishedAt) > h.staleAfter,
		"result":     last.Result,
	})
}
