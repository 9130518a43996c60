// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"beacon/internal/delivery/http/middleware"
	"beacon/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const roleOperator = "operator"

type RouterParams struct {
	fx.In

	AlertHandler   *handler.AlertHandler
	MessageHandler *handler.MessageHandler
	ShelterHandler *handler.ShelterHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	alertHandler   *handler.AlertHandler
	messageHandler *handler.MessageHandler
	shelterHandler *handler.ShelterHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		alertHandler:   params.AlertHandler,
		messageHandler: params.MessageHandler,
		shelterHandler: params.ShelterHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Client-facing alert feed
	alertGroup := e.Group("/alerts")
	{
		alertGroup.GET("", r.alertHandler.ListAlerts)
		alertGroup.GET("/stream", r.alertHandler.StreamNearby)
		alertGroup.GET("/:id", r.alertHandler.GetAlert)
	}

	// Client-facing emergency message submission
	messageGroup := e.Group("/messages")
	{
		messageGroup.POST("/sos", r.messageHandler.SendSOS)
		messageGroup.POST("/report", r.messageHandler.SendReport)
		messageGroup.POST("/flush", r.messageHandler.FlushOutbox)
		messageGroup.GET("/pending", r.messageHandler.PendingCount)
	}

	// Client-facing shelter directory
	shelterGroup := e.Group("/shelters")
	{
		shelterGroup.GET("", r.shelterHandler.ListShelters)
		shelterGroup.GET("/nearby", r.shelterHandler.NearbyShelters)
		shelterGroup.GET("/:id", r.shelterHandler.GetShelter)
		shelterGroup.GET("/:id/qr", r.shelterHandler.ShelterQR)
	}

	// Operator routes that require authentication and the operator role
	adminGroup := e.Group("/admin")
	adminGroup.Use(r.authMiddleware.Authenticate)
	adminGroup.Use(r.authMiddleware.RequireRole(roleOperator))
	{
		adminGroup.POST("/alerts", r.alertHandler.CreateAlert)
		adminGroup.GET("/alerts", r.alertHandler.ListAlerts)
		adminGroup.PATCH("/alerts/:id/active", r.alertHandler.SetAlertActive)

		adminGroup.GET("/messages/:kind", r.messageHandler.ListMessages)
		adminGroup.GET("/messages/:kind/:id", r.messageHandler.GetMessage)
		adminGroup.PATCH("/messages/:kind/:id/status", r.messageHandler.UpdateStatus)

		adminGroup.POST("/shelters", r.shelterHandler.CreateShelter)
		adminGroup.PATCH("/shelters/:id/occupancy", r.shelterHandler.UpdateOccupancy)
	}
}
