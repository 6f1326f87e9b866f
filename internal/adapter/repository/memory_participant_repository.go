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

type memoryParticipantRepository struct {
	mu           sync.RWMutex
	participants map[string]*entity.Participant
}

func NewMemoryParticipantRepository() repository.ParticipantRepository {
	return &memoryParticipantRepository{
		participants: make(map[string]*entity.Participant),
	}
}

func cloneParticipant(p *entity.Participant) *entity.Participant {
	c := *p
	c.Commodities = append([]string(nil), p.Commodities...)
	return &c
}

func (r *memoryParticipantRepository) Upsert(ctx context.Context, participant *entity.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.participants[participant.ID]; ok {
		participant.CreatedAt = existing.CreatedAt
	} else if participant.CreatedAt.IsZero() {
		participant.CreatedAt = time.Now()
	}
	r.participants[participant.ID] = cloneParticipant(participant)
	return nil
}

func (r *memoryParticipantRepository) GetByID(ctx context.Context, id string) (*entity.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[id]
	if !ok {
		return nil, errors.NotFound("Participant", nil)
	}
	return cloneParticipant(p), nil
}

func (r *memoryParticipantRepository) ListByRole(ctx context.Context, role entity.Role) ([]*entity.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entity.Participant, 0)
	for _, p := range r.participants {
		if p.Role == role {
			result = append(result, cloneParticipant(p))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
