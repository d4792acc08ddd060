package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-sync/internal/session"
	"resume-sync/internal/shared/config"
	"resume-sync/internal/shared/metrics"
	"resume-sync/internal/shared/server/middleware"
	"resume-sync/internal/shared/server/respond"
	"resume-sync/internal/versions"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config   config.Config
	Sessions *session.Handler
	Versions *versions.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	if deps.Sessions != nil {
		deps.Sessions.RegisterRoutes(api)
	}
	if deps.Versions != nil {
		deps.Versions.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes a port value into a listen address.
func Addr(port string) string {
	if port == "" {
		port = "8080"
	}
	return ":" + port
}
