package router

import (
	"github.com/labstack/echo/v4"

	"agriconnect/internal/adapter/api/handler"
	"agriconnect/internal/adapter/api/middleware"
	"agriconnect/internal/usecase"
)

type Options struct {
	Environment string
	Limiter     usecase.RateLimiter
}

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, wsHandler *handler.WebSocketHandler, opts Options) {
	SetupHealthRouter(e)
	SetupDevRouter(e, opts.Environment)
	SetupAuthRouter(e, authMiddleware)
	SetupMatchRouter(e, authMiddleware, opts.Limiter)
	SetupRequestRouter(e, authMiddleware)
	SetupChatRouter(e, authMiddleware)
	SetupWebSocketRouter(e, wsHandler, authMiddleware)
}
