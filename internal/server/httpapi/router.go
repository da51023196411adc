package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Router assembles the gin engine: recovery and logging on everything, JWT
// auth on the API group, unauthenticated health and metrics endpoints.
func Router(s *Server, signKey []byte, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(Recover(log), Logging(log))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(Auth(signKey))
	s.Register(api)

	internal := r.Group("/internal/v1")
	internal.Use(Auth(signKey))
	internal.POST("/sync-queue/drain", s.handleDrain)

	return r
}
