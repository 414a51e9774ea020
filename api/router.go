package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/shelfscan/api/handler"
	"github.com/use-agent/shelfscan/api/middleware"
	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/metrics"
	"github.com/use-agent/shelfscan/webhook"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Searcher  handler.Searcher
	Stats     handler.StatsProvider
	Metrics   *metrics.Metrics // optional; nil disables /metrics
	Webhooks  *webhook.Sender  // optional
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics sit outside auth so probes and scrapers always work.
func NewRouter(d Deps, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(d.Stats, d.StartTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/search", handler.Search(d.Searcher))

	jobs := handler.NewJobs(d.Searcher, d.Webhooks, cfg.Webhook.DefaultSecret)
	protected.POST("/jobs", jobs.Post())
	protected.GET("/jobs/:id", jobs.Get())

	return r
}
