package firebase

import (
	"context"
	"time"

	"firebase.google.com/go/v4/auth"

	"agriconnect/internal/domain/entity"
	"agriconnect/internal/domain/repository"
	"agriconnect/pkg/errors"
)

// TokenVerifier is the part of *auth.Client used to check ID tokens.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthResolver resolves Firebase ID tokens to participants from the directory.
type AuthResolver struct {
	verifier     TokenVerifier
	participants repository.ParticipantRepository
}

func NewAuthResolver(verifier TokenVerifier, participants repository.ParticipantRepository) *AuthResolver {
	return &AuthResolver{
		verifier:     verifier,
		participants: participants,
	}
}

func (f *AuthResolver) Resolve(ctx context.Context, credential string) (*entity.Participant, error) {
	p, _, err := f.ResolveWithExpiry(ctx, credential)
	return p, err
}

// ResolveWithExpiry also returns the exp claim of the verified ID token.
func (f *AuthResolver) ResolveWithExpiry(ctx context.Context, credential string) (*entity.Participant, time.Time, error) {
	if credential == "" {
		return nil, time.Time{}, errors.Unauthorized("missing credential", nil)
	}

	token, err := f.verifier.VerifyIDToken(ctx, credential)
	if err != nil {
		return nil, time.Time{}, errors.Unauthorized("invalid token", err)
	}

	p, err := f.participants.GetByID(ctx, entity.NormalizeParticipantID(token.UID))
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, time.Time{}, errors.Unauthorized("participant is not registered", err)
		}
		return nil, time.Time{}, err
	}

	var expiresAt time.Time
	if token.Expires > 0 {
		expiresAt = time.Unix(token.Expires, 0)
	}
	return p, expiresAt, nil
}
