package handler

import (
	"github.com/labstack/echo/v4"

	"agriconnect/internal/usecase"
	"agriconnect/pkg/response"
	"agriconnect/pkg/utils"
)

type RequestHandler struct {
	requestUseCase *usecase.RequestUseCase
}

func NewRequestHandler(requestUseCase *usecase.RequestUseCase) *RequestHandler {
	return &RequestHandler{
		requestUseCase: requestUseCase,
	}
}

func (h *RequestHandler) CreateRequest(c echo.Context) error {
	uid, err := currentUID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req usecase.CreateRequestInput
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	request, err := h.requestUseCase.CreateRequest(c.Request().Context(), uid, req)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, request)
}

// ListRequests returns the caller's requests, newest first. page/limit are optional.
func (h *RequestHandler) ListRequests(c echo.Context) error {
	uid, err := currentUID(c)
	if err != nil {
		return response.Error(c, err)
	}

	requests, err := h.requestUseCase.ListForParticipant(c.Request().Context(), uid, usecase.ListRequestsInput{
		Role:   c.QueryParam("role"),
		Status: c.QueryParam("status"),
	})
	if err != nil {
		return response.Error(c, err)
	}

	pagination := utils.GetPaginationParams(c)
	if !pagination.Requested {
		return response.Success(c, requests)
	}
	start, end := pagination.Window(len(requests))
	return response.Paginated(c, requests[start:end], int64(len(requests)), pagination.Page, pagination.PageSize)
}

func (h *RequestHandler) ActiveChats(c echo.Context) error {
	uid, err := currentUID(c)
	if err != nil {
		return response.Error(c, err)
	}

	chats, err := h.requestUseCase.ActiveChats(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, chats)
}

func (h *RequestHandler) AcceptRequest(c echo.Context) error {
	uid, err := currentUID(c)
	if err != nil {
		return response.Error(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return response.Error(c, err)
	}

	request, err := h.requestUseCase.Accept(c.Request().Context(), id, uid)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, request)
}

func (h *RequestHandler) RejectRequest(c echo.Context) error {
	uid, err := currentUID(c)
	if err != nil {
		return response.Error(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return response.Error(c, err)
	}

	request, err := h.requestUseCase.Reject(c.Request().Context(), id, uid)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, request)
}

func (h *RequestHandler) DeleteRequest(c echo.Context) error {
	uid, err := currentUID(c)
	if err != nil {
		return response.Error(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.requestUseCase.Delete(c.Request().Context(), id, uid); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]interface{}{
		"id":      id,
		"deleted": true,
	})
}
