package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"agriconnect/internal/domain/entity"
	"agriconnect/internal/domain/repository"
	"agriconnect/pkg/errors"
)

type memoryRequestRepository struct {
	mu       sync.RWMutex
	requests map[int64]*entity.MatchRequest
	nextID   int64
	nowFn    func() time.Time
}

func NewMemoryRequestRepository() repository.RequestRepository {
	return newMemoryRequestRepository(time.Now)
}

func newMemoryRequestRepository(nowFn func() time.Time) *memoryRequestRepository {
	return &memoryRequestRepository{
		requests: make(map[int64]*entity.MatchRequest),
		nowFn:    nowFn,
	}
}

func (r *memoryRequestRepository) Create(ctx context.Context, request *entity.MatchRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := r.nowFn()
	request.ID = r.nextID
	request.CreatedAt = now
	request.UpdatedAt = now
	r.requests[request.ID] = request.Clone()
	return nil
}

func (r *memoryRequestRepository) GetByID(ctx context.Context, id int64) (*entity.MatchRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	request, ok := r.requests[id]
	if !ok {
		return nil, errors.NotFound("Request", nil)
	}
	return request.Clone(), nil
}

func (r *memoryRequestRepository) Update(ctx context.Context, id int64, mutate func(*entity.MatchRequest) error) (*entity.MatchRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.requests[id]
	if !ok {
		return nil, errors.NotFound("Request", nil)
	}

	working := stored.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	working.ID = id
	working.UpdatedAt = r.nowFn()
	r.requests[id] = working
	return working.Clone(), nil
}

func (r *memoryRequestRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.requests[id]; !ok {
		return errors.NotFound("Request", nil)
	}
	delete(r.requests, id)
	return nil
}

func (r *memoryRequestRepository) List(ctx context.Context, filter entity.RequestFilter) ([]*entity.MatchRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entity.MatchRequest, 0)
	for _, request := range r.requests {
		if filter.Matches(request) {
			result = append(result, request.Clone())
		}
	}
	sortRequestsNewestFirst(result)
	return result, nil
}

func (r *memoryRequestRepository) ExistsPending(ctx context.Context, farmerID, sellerID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, request := range r.requests {
		if request.Status == entity.StatusPending && request.IsFarmer(farmerID) && request.IsSeller(sellerID) {
			return true, nil
		}
	}
	return false, nil
}

func sortRequestsNewestFirst(requests []*entity.MatchRequest) {
	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].CreatedAt.After(requests[j].CreatedAt)
		}
		return requests[i].ID > requests[j].ID
	})
}
