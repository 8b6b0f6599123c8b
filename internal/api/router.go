package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"pagespeed_monitor/internal/config"
	"pagespeed_monitor/internal/mw"
)

// NewRouter creates and configures the trigger API router.
func NewRouter(ctx context.Context, trigger Trigger, cfg config.APIConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger())

	handler := NewHandler(ctx, trigger)
	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	r.GET("/healthz", GetHealth)

	limited := r.Group("/")
	limited.Use(rateLimiter)
	{
		limited.POST("/run", handler.PostRun)
		limited.GET("/status", handler.GetStatus)
	}

	return r
}
