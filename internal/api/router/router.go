// Package router wires the HTTP routes for the API server
package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/octobridge/octobridge/consts"
	"github.com/octobridge/octobridge/internal/api/handler"
	"github.com/octobridge/octobridge/internal/api/middleware"
)

// New builds the gin engine with all routes and middleware
func New(webhook *handler.WebhookHandler) *gin.Engine {
	engine := gin.New()

	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger())
	engine.Use(otelgin.Middleware(consts.ServiceName))

	engine.GET("/health", handler.Health)
	engine.POST("/webhooks/github", webhook.Handle)

	return engine
}
