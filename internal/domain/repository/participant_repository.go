package repository

import (
	"context"

	"agriconnect/internal/domain/entity"
)

type ParticipantRepository interface {
	Upsert(ctx context.Context, participant *entity.Participant) error
	GetByID(ctx context.Context, id string) (*entity.Participant, error)
	ListByRole(ctx context.Context, role entity.Role) ([]*entity.Participant, error)
}
