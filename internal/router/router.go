package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"focus/backend/internal/handler"
	"focus/backend/internal/middleware"
	"focus/backend/internal/surface"
)

func New(
	tokens *surface.TokenIssuer,
	taskHandler *handler.TaskHandler,
	focusHandler *handler.FocusHandler,
	surfaceHandler *handler.SurfaceHandler,
	settingsHandler *handler.SettingsHandler,
	corsOrigins []string,
) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.Metrics(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")

	tasks := api.Group("/tasks")
	tasks.GET("", taskHandler.List)
	tasks.POST("", taskHandler.Create)
	tasks.PUT("/order", taskHandler.Reorder)
	tasks.PUT("/:id", taskHandler.Update)
	tasks.DELETE("/:id", taskHandler.Delete)
	tasks.POST("/:id/select", taskHandler.Select)
	tasks.POST("/:id/complete", taskHandler.Complete)
	tasks.POST("/:id/reset", taskHandler.Reset)

	focus := api.Group("/focus")
	focus.GET("", focusHandler.Status)
	focus.POST("/start", focusHandler.Start)
	focus.DELETE("", focusHandler.Close)

	surfaces := api.Group("/surface")
	surfaces.Use(middleware.SurfaceToken(tokens))
	surfaces.GET("/events", surfaceHandler.Events)
	surfaces.POST("/pause", surfaceHandler.Pause)
	surfaces.POST("/complete", surfaceHandler.Complete)
	surfaces.POST("/close", surfaceHandler.Close)

	api.GET("/settings", settingsHandler.Get)
	api.PUT("/settings", settingsHandler.Update)
	api.GET("/history/heatmap", settingsHandler.Heatmap)

	return engine
}
