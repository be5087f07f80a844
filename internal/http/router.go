// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"qibla/internal/http/handlers"
	"qibla/internal/http/middleware"
	qlog "qibla/internal/log"
)

func NewRouter(deps ServerDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = qlog.L()
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.Logging(logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(deps.APIKey))

	qiblaHandler := handlers.NewQiblaHandler(deps.Resolver, deps.Metrics)
	api.GET("/qibla", qiblaHandler.Direction)
	api.GET("/qibla/city", qiblaHandler.City)
	api.GET("/qibla/cities", qiblaHandler.Cities)

	placeHandler := handlers.NewPlaceHandler(deps.Places)
	api.PUT("/places", placeHandler.Upsert)

	sessionHandler := handlers.NewSessionHandler(deps.Registry)
	api.POST("/sessions", sessionHandler.Create)
	api.GET("/sessions/:id", sessionHandler.Get)
	api.DELETE("/sessions/:id", sessionHandler.Delete)
	api.POST("/sessions/:id/locate", sessionHandler.Locate)
	api.POST("/sessions/:id/city", sessionHandler.City)
	api.POST("/sessions/:id/camera/start", sessionHandler.StartCamera)
	api.POST("/sessions/:id/camera/stop", sessionHandler.StopCamera)
	api.GET("/sessions/:id/heading", sessionHandler.Stream)
	api.GET("/sessions/:id/frame.jpg", sessionHandler.Frame)

	return r
}
