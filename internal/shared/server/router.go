package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collateral-backend/internal/clients"
	"collateral-backend/internal/documents"
	"collateral-backend/internal/properties"
	"collateral-backend/internal/search"
	"collateral-backend/internal/services/health"
	"collateral-backend/internal/shared/config"
	"collateral-backend/internal/shared/metrics"
	"collateral-backend/internal/shared/server/middleware"
	"collateral-backend/internal/shared/server/respond"
	"collateral-backend/internal/users"
)

// RouterDeps holds the handlers mounted by NewRouter.
type RouterDeps struct {
	Config           config.Config
	Verifier         middleware.TokenVerifier
	Health           *health.Service
	UserHandler      *users.Handler
	ClientHandler    *clients.Handler
	PropertyHandler  *properties.Handler
	DocumentHandler  *documents.Handler
	SearchHandler    *search.Handler
	LocalFilesDir    string
	LocalFilesPrefix string
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		metrics.Middleware(),
	)

	healthHandler := func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		body, ok := deps.Health.Status(c.Request.Context())
		if !ok {
			respond.JSON(c, http.StatusServiceUnavailable, body)
			return
		}
		respond.OK(c, body)
	}
	r.GET("/health", healthHandler)
	r.GET("/metrics", metrics.Handler())
	if deps.LocalFilesDir != "" && deps.LocalFilesPrefix != "" {
		r.Static(deps.LocalFilesPrefix, deps.LocalFilesDir)
	}

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler)
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterPublicRoutes(api)
	}

	protected := api.Group("", middleware.Auth(deps.Verifier))
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(protected)
	}
	if deps.ClientHandler != nil {
		deps.ClientHandler.RegisterRoutes(protected)
	}
	if deps.PropertyHandler != nil {
		deps.PropertyHandler.RegisterRoutes(protected)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(protected)
	}
	if deps.SearchHandler != nil {
		deps.SearchHandler.RegisterRoutes(protected)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
