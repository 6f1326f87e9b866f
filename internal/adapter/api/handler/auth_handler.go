package handler

import (
	"github.com/labstack/echo/v4"

	"agriconnect/internal/adapter/api/middleware"
	"agriconnect/internal/usecase"
	"agriconnect/pkg/errors"
	"agriconnect/pkg/response"
)

type AuthHandler struct {
	identityUseCase *usecase.IdentityUseCase
}

func NewAuthHandler(identityUseCase *usecase.IdentityUseCase) *AuthHandler {
	return &AuthHandler{
		identityUseCase: identityUseCase,
	}
}

// Me returns the authenticated participant.
func (h *AuthHandler) Me(c echo.Context) error {
	resolved, ok := middleware.ParticipantFrom(c)
	if !ok {
		return response.Error(c, errors.Unauthorized("Authentication required", nil))
	}

	participant, err := h.identityUseCase.Me(c.Request().Context(), resolved)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, participant)
}
