package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type HealthHandler struct {
	backend   string
	startedAt time.Time
	ping      func(ctx context.Context) error
}

var healthHandler *HealthHandler

// NewHealthHandler reports liveness. ping, when set, checks the store and turns failures into 503.
func NewHealthHandler(backend string, ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{
		backend:   backend,
		startedAt: time.Now(),
		ping:      ping,
	}
}

func SetupHealthHandler(backend string, ping func(ctx context.Context) error) {
	healthHandler = NewHealthHandler(backend, ping)
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	body := map[string]string{
		"status": "Server is running",
		"store":  h.backend,
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
		"time":   time.Now().Format(time.RFC3339),
	}

	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			body["status"] = "Store unavailable"
			body["error"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
	}
	return c.JSON(http.StatusOK, body)
}
