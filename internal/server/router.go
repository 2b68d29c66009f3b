package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with all routes attached.
func NewRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLog(h.log))

	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	jobs := r.Group("/jobs")
	{
		jobs.POST("", h.Submit)
		jobs.GET("/latest", h.Latest)
		jobs.GET("/:id", h.Get)
		jobs.POST("/:id/cancel", h.Cancel)
		jobs.GET("/:id/artifacts/:kind", h.Artifact)
		jobs.GET("/:id/manifest.xlsx", h.Manifest)
	}

	return r
}

func requestLog(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http.request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
