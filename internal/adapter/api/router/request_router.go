package router

import (
	"github.com/labstack/echo/v4"

	"agriconnect/internal/adapter/api/handler"
	"agriconnect/internal/adapter/api/middleware"
)

func SetupRequestRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	requestHandler := handler.GetRequestHandler()

	requestGroup := e.Group("/v1/requests")
	requestGroup.Use(authMiddleware.Authenticate)

	requestGroup.POST("", requestHandler.CreateRequest)            // POST /v1/requests - new pending request
	requestGroup.GET("", requestHandler.ListRequests)              // GET /v1/requests?role=&status=
	requestGroup.GET("/active", requestHandler.ActiveChats)        // GET /v1/requests/active - accepted, with rooms
	requestGroup.POST("/:id/accept", requestHandler.AcceptRequest) // seller only
	requestGroup.POST("/:id/reject", requestHandler.RejectRequest) // seller only
	requestGroup.DELETE("/:id", requestHandler.DeleteRequest)      // either party
}
