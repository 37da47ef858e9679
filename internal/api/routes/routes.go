// server/internal/api/routes/routes.go
package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"sistema-bup-api-server/internal/analysis"
	"sistema-bup-api-server/internal/api/handlers"
	"sistema-bup-api-server/internal/api/middleware"
	"sistema-bup-api-server/internal/auth"
	"sistema-bup-api-server/internal/repository"
	"sistema-bup-api-server/internal/socket"
)

// Dependencies are the components the HTTP surface is built from. Exporter
// may be nil.
type Dependencies struct {
	Gateway     *repository.Gateway
	Aggregator  *analysis.Aggregator
	Auth        *auth.Service
	Hub         *socket.Hub
	Exporter    handlers.SummaryExporter
	CORSOrigins []string
	Logger      zerolog.Logger
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// SetupRouter wires every route under /api/v1.
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(cors.New(corsConfig(deps.CORSOrigins)))

	authHandler := &handlers.AuthHandler{Auth: deps.Auth}
	projectHandler := &handlers.ProjectHandler{Gateway: deps.Gateway}
	analysisHandler := &handlers.AnalysisHandler{Gateway: deps.Gateway, Aggregator: deps.Aggregator, Exporter: deps.Exporter}
	webSocketHandler := &handlers.WebSocketHandler{Hub: deps.Hub, Sessions: deps.Auth, Logger: deps.Logger}

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/ws", webSocketHandler.ServeWs)

		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/signin", authHandler.SignIn)
			authRoutes.POST("/signup", authHandler.SignUp)

			authed := authRoutes.Group("/")
			authed.Use(middleware.Authenticate(deps.Auth))
			{
				authed.POST("/signout", authHandler.SignOut)
				authed.GET("/session", authHandler.Session)
			}
		}

		projects := apiV1.Group("/projects")
		projects.Use(middleware.Authenticate(deps.Auth))
		{
			projects.GET("", projectHandler.ListProjects)
			projects.POST("", projectHandler.CreateProject)
			projects.GET("/:id", projectHandler.GetProject)
			projects.PUT("/:id", projectHandler.UpdateProject)
			projects.DELETE("/:id", projectHandler.DeleteProject)

			projects.GET("/:id/analyses", analysisHandler.GetAllLatest)
			projects.GET("/:id/analyses/:kind", analysisHandler.ListVersions)
			projects.GET("/:id/analyses/:kind/latest", analysisHandler.GetLatest)
			projects.GET("/:id/analyses/:kind/versions/:version", analysisHandler.GetVersion)

			projects.GET("/:id/summary", analysisHandler.GetSummary)
			projects.POST("/:id/summary/export", analysisHandler.ExportSummary)
			projects.GET("/:id/best-solution", analysisHandler.GetBestSolution)
		}
	}

	return router
}
