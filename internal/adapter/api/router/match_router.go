package router

import (
	"github.com/labstack/echo/v4"

	"agriconnect/internal/adapter/api/handler"
	"agriconnect/internal/adapter/api/middleware"
	"agriconnect/internal/infrastructure/ratelimit"
	"agriconnect/internal/usecase"
)

func SetupMatchRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter usecase.RateLimiter) {
	matchHandler := handler.GetMatchHandler()

	matchGroup := e.Group("/v1/match")
	matchGroup.Use(authMiddleware.Authenticate)
	if limiter != nil {
		matchGroup.Use(middleware.RateLimit(limiter, ratelimit.ActionSearch))
	}

	matchGroup.POST("/search", matchHandler.Search) // POST /v1/match/search - ranked sellers for crop/region
}
