package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRoutes sets up the API routes. Paths outside the API are served from
// siteDir, the directory the portfolio was exported to; an empty siteDir
// disables static serving.
func SetupRoutes(handler *Handler, siteDir string, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	// Middleware
	router.Use(Recovery(logger))
	router.Use(CORS())
	router.Use(Logger(logger))

	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users/:user")
		{
			users.GET("/projects", handler.GetProjects)
			users.GET("/technologies", handler.GetTechnologies)
			users.GET("/builds/latest", handler.GetLatestBuild)
		}
	}

	if siteDir != "" {
		static := http.FileServer(http.Dir(siteDir))
		router.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
				c.JSON(http.StatusMethodNotAllowed, gin.H{
					"error": gin.H{
						"code":    "METHOD_NOT_ALLOWED",
						"message": "the exported site is read-only",
					},
				})
				return
			}
			static.ServeHTTP(c.Writer, c.Request)
		})
	}

	return router
}
