package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Page     int
	PageSize int
	Offset   int
	// Requested is false when the caller sent neither page nor limit.
	Requested bool
}

// GetPaginationParams extracts pagination parameters from request
func GetPaginationParams(c echo.Context) PaginationParams {
	pageStr := c.QueryParam("page")
	limitStr := c.QueryParam("limit")

	page, _ := strconv.Atoi(pageStr)
	pageSize, _ := strconv.Atoi(limitStr)

	if page <= 0 {
		page = 1
	}

	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20 // Default page size
	}

	offset := (page - 1) * pageSize

	return PaginationParams{
		Page:      page,
		PageSize:  pageSize,
		Offset:    offset,
		Requested: pageStr != "" || limitStr != "",
	}
}

// Window returns the [start, end) slice bounds of the page within total items.
func (p PaginationParams) Window(total int) (int, int) {
	start := p.Offset
	if start > total {
		start = total
	}
	end := start + p.PageSize
	if end > total {
		end = total
	}
	return start, end
}
