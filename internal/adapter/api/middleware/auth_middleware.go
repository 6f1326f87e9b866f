package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"agriconnect/internal/domain/entity"
	"agriconnect/internal/usecase"
	"agriconnect/pkg/errors"
	"agriconnect/pkg/response"
)

const (
	ContextUID         = "uid"
	ContextParticipant = "participant"
)

type AuthMiddleware struct {
	resolver usecase.IdentityResolver
}

func NewAuthMiddleware(resolver usecase.IdentityResolver) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// Authenticate resolves the bearer credential and stores the participant in the context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}
		token, ok := bearerToken(authHeader)
		if !ok {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}
		return m.resolve(c, next, token)
	}
}

// AuthenticateQuery also accepts the credential as ?token=, for websocket clients that cannot set headers.
func (m *AuthMiddleware) AuthenticateQuery(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token, ok := bearerToken(c.Request().Header.Get("Authorization")); ok {
			return m.resolve(c, next, token)
		}
		token := c.QueryParam("token")
		if token == "" {
			return response.Error(c, errors.Unauthorized("Authentication required", nil))
		}
		return m.resolve(c, next, token)
	}
}

func (m *AuthMiddleware) resolve(c echo.Context, next echo.HandlerFunc, token string) error {
	participant, err := m.resolver.Resolve(c.Request().Context(), token)
	if err != nil {
		return response.Error(c, err)
	}
	c.Set(ContextUID, participant.ID)
	c.Set(ContextParticipant, participant)
	return next(c)
}

// ParticipantFrom returns the participant set by Authenticate.
func ParticipantFrom(c echo.Context) (*entity.Participant, bool) {
	p, ok := c.Get(ContextParticipant).(*entity.Participant)
	return p, ok && p != nil
}

func UIDFrom(c echo.Context) string {
	uid, _ := c.Get(ContextUID).(string)
	return uid
}
