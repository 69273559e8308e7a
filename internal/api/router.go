package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// RequestLogger logs one line per request through the application logger.
func RequestLogger() gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		line := "[%s] %s %s %d %v %s"
		args := []interface{}{c.Request.Method, path, c.ClientIP(), status, time.Since(start), c.Errors.String()}
		if status >= http.StatusInternalServerError {
			log.Warnf(line, args...)
			return
		}
		log.Infof(line, args...)
	}
}

// NewRouter registers the dashboard routes. metrics may be nil when no Prometheus
// registry is configured.
func NewRouter(h *ChartHandler, metrics http.Handler, mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	r := gin.New()
	r.Use(RequestLogger(), gin.Recovery())

	r.GET("/healthz", h.Healthz)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/charts", h.GetCharts)
		v1.GET("/snapshot", h.GetSnapshot)
		v1.POST("/reload", h.PostReload)
	}
	return r
}
