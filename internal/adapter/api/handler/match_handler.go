package handler

import (
	"github.com/labstack/echo/v4"

	"agriconnect/internal/usecase"
	"agriconnect/pkg/response"
)

type MatchHandler struct {
	matchUseCase *usecase.MatchUseCase
}

func NewMatchHandler(matchUseCase *usecase.MatchUseCase) *MatchHandler {
	return &MatchHandler{
		matchUseCase: matchUseCase,
	}
}

func (h *MatchHandler) Search(c echo.Context) error {
	var req usecase.SearchInput
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	results, err := h.matchUseCase.Search(c.Request().Context(), req)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, results)
}
