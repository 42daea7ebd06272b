package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/whisperbox/internal/common"
	"github.com/suPer8Hu/whisperbox/internal/httpapi/handlers"
	"github.com/suPer8Hu/whisperbox/internal/httpapi/middleware"
	"github.com/suPer8Hu/whisperbox/internal/metrics"
)

// NewRouter builds the engine. checks are the dependency probes /ping runs;
// nil means /ping always answers ok.
func NewRouter(ctrl handlers.Controller, checks map[string]func(ctx context.Context) error) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(ctrl, checks)

	r.GET("/ping", h.Ping)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/v1")
	v1.POST("/text", h.PostText)
	v1.POST("/token", h.PostToken)
	v1.POST("/deeplink", h.PostDeepLink)
	v1.POST("/events", h.PostEvent)
	return r
}
