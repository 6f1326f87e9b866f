package usecase

import (
	"context"
	"strings"
	"time"

	"agriconnect/internal/domain/entity"
	"agriconnect/internal/domain/repository"
	"agriconnect/pkg/errors"
	"agriconnect/pkg/logger"
)

type IdentityUseCase struct {
	participantRepo repository.ParticipantRepository
	issuer          TokenIssuer
	credentials     CredentialCache
}

// NewIdentityUseCase builds the use case. credentials may be nil when resolutions are not cached.
func NewIdentityUseCase(participantRepo repository.ParticipantRepository, issuer TokenIssuer, credentials CredentialCache) *IdentityUseCase {
	return &IdentityUseCase{
		participantRepo: participantRepo,
		issuer:          issuer,
		credentials:     credentials,
	}
}

type RegisterInput struct {
	ID              string   `json:"id" validate:"required"`
	Role            string   `json:"role" validate:"required"`
	DisplayName     string   `json:"display_name" validate:"required"`
	District        string   `json:"district"`
	Commodities     []string `json:"commodities"`
	Rating          *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
	ExperienceYears *float64 `json:"experience_years" validate:"omitempty,gte=0"`
}

type TokenResponse struct {
	Token       string              `json:"token"`
	ExpiresAt   time.Time           `json:"expires_at"`
	Participant *entity.Participant `json:"participant"`
}

// Register upserts a participant in the directory and issues a token for it.
func (uc *IdentityUseCase) Register(ctx context.Context, input RegisterInput) (*TokenResponse, error) {
	id := entity.NormalizeParticipantID(input.ID)
	if id == "" {
		return nil, errors.Validation("id must contain letters or digits", nil)
	}
	role, ok := entity.ParseRole(input.Role)
	if !ok {
		return nil, errors.Validation("role must be farmer or seller", nil)
	}
	name := strings.TrimSpace(input.DisplayName)
	if name == "" {
		return nil, errors.Validation("display_name is required", nil)
	}

	commodities := make([]string, 0, len(input.Commodities))
	for _, c := range input.Commodities {
		if c = strings.TrimSpace(c); c != "" {
			commodities = append(commodities, c)
		}
	}

	participant := &entity.Participant{
		ID:              id,
		Role:            role,
		DisplayName:     name,
		District:        strings.TrimSpace(input.District),
		Commodities:     commodities,
		Rating:          input.Rating,
		ExperienceYears: input.ExperienceYears,
	}
	if err := uc.participantRepo.Upsert(ctx, participant); err != nil {
		return nil, err
	}
	if uc.credentials != nil {
		uc.credentials.ForgetParticipant(id)
	}

	token, expiresAt, err := uc.issuer.Issue(participant)
	if err != nil {
		return nil, err
	}

	logger.Info("participant %s registered as %s", id, role)
	return &TokenResponse{
		Token:       token,
		ExpiresAt:   expiresAt,
		Participant: participant,
	}, nil
}

// Me returns the directory record of the resolved participant, or the resolved identity itself
// when the directory has none.
func (uc *IdentityUseCase) Me(ctx context.Context, resolved *entity.Participant) (*entity.Participant, error) {
	if resolved == nil {
		return nil, errors.Unauthorized("not authenticated", nil)
	}
	p, err := uc.participantRepo.GetByID(ctx, resolved.ID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return resolved, nil
		}
		return nil, err
	}
	return p, nil
}
