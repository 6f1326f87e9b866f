package router

import (
	"github.com/labstack/echo/v4"

	"agriconnect/internal/adapter/api/handler"
	"agriconnect/internal/adapter/api/middleware"
)

func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	chatHandler := handler.GetChatHandler()

	e.GET("/v1/channels", chatHandler.GetChannel, authMiddleware.Authenticate) // GET /v1/channels?peer=

	chatGroup := e.Group("/v1/chat")
	chatGroup.Use(authMiddleware.Authenticate)

	chatGroup.POST("/messages", chatHandler.SendMessage) // POST /v1/chat/messages - append to room
	chatGroup.GET("/messages", chatHandler.GetMessages)  // GET /v1/chat/messages?room=&after=
}
