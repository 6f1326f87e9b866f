package handler

import (
	"github.com/labstack/echo/v4"

	"agriconnect/internal/usecase"
	"agriconnect/pkg/response"
)

// DevTokenHandler registers participants and hands out signed tokens. Mounted in development only.
type DevTokenHandler struct {
	identityUseCase *usecase.IdentityUseCase
}

func NewDevTokenHandler(identityUseCase *usecase.IdentityUseCase) *DevTokenHandler {
	return &DevTokenHandler{
		identityUseCase: identityUseCase,
	}
}

func (h *DevTokenHandler) IssueToken(c echo.Context) error {
	var req usecase.RegisterInput
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	token, err := h.identityUseCase.Register(c.Request().Context(), req)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, token)
}
