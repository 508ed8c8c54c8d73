package transport

import (
	"net/http"
	"time"

	"github.com/ds124wfegd/wallcraft/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

// HealthCheck is one dependency reported by /health.
type HealthCheck struct {
	Name  string
	Check func() error
}

func InitRoutes(imgHandler *ImageHandler, requestTimeout time.Duration, checks ...HealthCheck) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(requestTimeout))

	api := router.Group("/api/v1")
	{
		api.GET("/options", imgHandler.Options)

		images := api.Group("/images")
		{
			images.GET("", imgHandler.ListImages)
			images.POST("", imgHandler.UploadImage)
			images.POST("/random", imgHandler.AddRandom)
			images.POST("/generate", imgHandler.Generate)
			images.GET("/:id", imgHandler.GetImage)
			images.DELETE("/:id", imgHandler.DeleteImage)
			images.PATCH("/:id/spec", imgHandler.UpdateSpec)
			images.POST("/:id/enhance", imgHandler.Enhance)
			images.POST("/:id/render", imgHandler.Render)
			images.GET("/:id/download", imgHandler.Download)
			images.GET("/:id/source", imgHandler.Source)
		}
	}

	router.GET("/renders/:id/:file", imgHandler.Output)
	router.GET("/placeholder", imgHandler.Placeholder)

	router.GET("/health", health(checks))

	return router
}

// health answers 503 when any check fails.
func health(checks []HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		results := make(gin.H, len(checks))
		for _, hc := range checks {
			if err := hc.Check(); err != nil {
				results[hc.Name] = err.Error()
				status, code = "unavailable", http.StatusServiceUnavailable
				continue
			}
			results[hc.Name] = "ok"
		}

		c.JSON(code, gin.H{
			"status":  status,
			"service": "wallcraft",
			"checks":  results,
		})
	}
}
