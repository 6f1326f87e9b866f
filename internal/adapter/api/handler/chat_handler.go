package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"agriconnect/internal/usecase"
	"agriconnect/pkg/errors"
	"agriconnect/pkg/response"
)

type ChatHandler struct {
	chatUseCase    *usecase.ChatUseCase
	requestUseCase *usecase.RequestUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase, requestUseCase *usecase.RequestUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase:    chatUseCase,
		requestUseCase: requestUseCase,
	}
}

// GetChannel derives the room shared with ?peer=.
func (h *ChatHandler) GetChannel(c echo.Context) error {
	uid, err := currentUID(c)
	if err != nil {
		return response.Error(c, err)
	}

	room, err := h.requestUseCase.ChannelFor(uid, c.QueryParam("peer"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"room": room})
}

type sendMessageRequest struct {
	Room     string `json:"room" validate:"required"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver" validate:"required"`
	Text     string `json:"text" validate:"required"`
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	uid, err := currentUID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}
	if req.Sender == "" {
		req.Sender = uid
	}

	message, err := h.chatUseCase.Append(c.Request().Context(), uid, usecase.AppendMessageInput{
		Room:     req.Room,
		Sender:   req.Sender,
		Receiver: req.Receiver,
		Text:     req.Text,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, message)
}

// GetMessages returns ?room= history, optionally only messages after ?after=.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	uid, err := currentUID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var afterID int64
	if after := c.QueryParam("after"); after != "" {
		afterID, err = strconv.ParseInt(after, 10, 64)
		if err != nil {
			return response.Error(c, errors.Validation("after must be an integer", err))
		}
	}

	messages, err := h.chatUseCase.History(c.Request().Context(), uid, c.QueryParam("room"), afterID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, messages)
}
