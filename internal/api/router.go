package api

import (
	"net/http"
	"time"

	"gocausal/internal"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the do-sample API, health check and metrics endpoint.
// The run ledger routes are skipped when runs is nil.
func NewRouter(handler *DoSampleHandler, runs *RunsHandler, gatherer prometheus.Gatherer, logger *internal.Logger) *gin.Engine {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger.With("http")))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	v1.POST("/do-sample", handler.DoSample)
	if runs != nil {
		v1.GET("/runs", runs.List)
		v1.GET("/runs/:id", runs.Get)
	}

	return router
}

func requestLogger(logger *internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
