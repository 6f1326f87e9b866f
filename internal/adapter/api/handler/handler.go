package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"agriconnect/internal/adapter/api/middleware"
	"agriconnect/internal/usecase"
	"agriconnect/pkg/errors"
)

var (
	authHandler     *AuthHandler
	requestHandler  *RequestHandler
	chatHandler     *ChatHandler
	matchHandler    *MatchHandler
	devTokenHandler *DevTokenHandler
)

func Setup(
	identityUseCase *usecase.IdentityUseCase,
	requestUseCase *usecase.RequestUseCase,
	chatUseCase *usecase.ChatUseCase,
	matchUseCase *usecase.MatchUseCase,
) {
	authHandler = NewAuthHandler(identityUseCase)
	requestHandler = NewRequestHandler(requestUseCase)
	chatHandler = NewChatHandler(chatUseCase, requestUseCase)
	matchHandler = NewMatchHandler(matchUseCase)
	devTokenHandler = NewDevTokenHandler(identityUseCase)
}

func GetAuthHandler() *AuthHandler {
	return authHandler
}

func GetRequestHandler() *RequestHandler {
	return requestHandler
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetMatchHandler() *MatchHandler {
	return matchHandler
}

func GetDevTokenHandler() *DevTokenHandler {
	return devTokenHandler
}

func currentUID(c echo.Context) (string, error) {
	uid := middleware.UIDFrom(c)
	if uid == "" {
		return "", errors.Unauthorized("Authentication required", nil)
	}
	return uid, nil
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Validation("Request ID must be a positive integer", err)
	}
	return id, nil
}
