package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carteirinha/internal/api/middleware"
	"carteirinha/internal/config"
	"carteirinha/internal/metrics"
)

// NewRouter builds the Gin engine with the ambient middleware chain plus
// the health and metrics endpoints. Metrics stay behind the internal
// secret so scrape access never rides on user auth.
func NewRouter(cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationIDMiddleware())
	router.Use(metrics.GinMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics",
		middleware.InternalSecretMiddleware(cfg.API.InternalSecret),
		gin.WrapH(promhttp.Handler()),
	)

	return router
}
