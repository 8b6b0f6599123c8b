package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"pagespeed_monitor/internal/processing"
)

// Trigger is the part of the runner the API drives.
type Trigger interface {
	Start(ctx context.Context) (string, <-chan error, error)
	Status() processing.Status
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	ctx     context.Context
	trigger Trigger
}

// NewHandler creates a handler whose runs live as long as ctx.
func NewHandler(ctx context.Context, trigger Trigger) *Handler {
	return &Handler{ctx: ctx, trigger: trigger}
}

// PostRun handles POST /run.
func (h *Handler) PostRun(c *gin.Context) {
	runID, done, err := h.trigger.Start(h.ctx)
	if errors.Is(err, processing.ErrRunInProgress) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":  err.Error(),
			"status": h.trigger.Status(),
		})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to start run"})
		return
	}

	log.Info().Str("run_id", runID).Str("ip", c.ClientIP()).Msg("Run triggered over HTTP")
	go func() {
		if err := <-done; err != nil {
			log.Error().Err(err).Str("run_id", runID).Msg("Triggered run failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"run_id": runID})
}

// GetStatus handles GET /status.
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.trigger.Status())
}

// GetHealth handles GET /healthz.
func GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
