package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"agriconnect/internal/adapter/api/handler"
	apimiddleware "agriconnect/internal/adapter/api/middleware"
	"agriconnect/internal/adapter/api/router"
	"agriconnect/internal/infrastructure/metrics"
	ws "agriconnect/internal/infrastructure/websocket"
	"agriconnect/internal/usecase"
	"agriconnect/pkg/logger"
	"agriconnect/pkg/response"
)

type ServerDeps struct {
	Environment string
	Backend     string
	Ping        func(ctx context.Context) error

	Resolver        usecase.IdentityResolver
	IdentityUseCase *usecase.IdentityUseCase
	RequestUseCase  *usecase.RequestUseCase
	ChatUseCase     *usecase.ChatUseCase
	MatchUseCase    *usecase.MatchUseCase

	WSManager *ws.Manager
	Limiter   usecase.RateLimiter
	Metrics   *metrics.Metrics
}

// NewServer assembles the echo instance with every route mounted.
func NewServer(deps ServerDeps) *echo.Echo {
	handler.Setup(deps.IdentityUseCase, deps.RequestUseCase, deps.ChatUseCase, deps.MatchUseCase)
	handler.SetupHealthHandler(deps.Backend, deps.Ping)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = response.ErrorHandler
	e.Validator = NewValidator()

	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			logger.With("request_id", v.RequestID, "latency", v.Latency).
				Debugf("%s %s %d", v.Method, v.URIPath, v.Status)
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	if deps.Metrics != nil {
		e.Use(apimiddleware.Metrics(deps.Metrics))
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}

	authMiddleware := apimiddleware.NewAuthMiddleware(deps.Resolver)
	wsHandler := handler.NewWebSocketHandler(deps.WSManager)

	router.Setup(e, authMiddleware, wsHandler, router.Options{
		Environment: deps.Environment,
		Limiter:     deps.Limiter,
	})
	return e
}
