package repository

import (
	"context"

	"agriconnect/internal/domain/entity"
)

type RequestRepository interface {
	// Create assigns a monotonic ID and CreatedAt.
	Create(ctx context.Context, request *entity.MatchRequest) error
	GetByID(ctx context.Context, id int64) (*entity.MatchRequest, error)
	// Update loads the request, applies mutate and persists the result atomically for that id.
	// If mutate returns an error nothing is written and the error is returned as is.
	Update(ctx context.Context, id int64, mutate func(*entity.MatchRequest) error) (*entity.MatchRequest, error)
	Delete(ctx context.Context, id int64) error
	// List orders by CreatedAt descending, then ID descending.
	List(ctx context.Context, filter entity.RequestFilter) ([]*entity.MatchRequest, error)
	ExistsPending(ctx context.Context, farmerID, sellerID string) (bool, error)
}
