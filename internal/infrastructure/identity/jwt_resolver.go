package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"agriconnect/internal/domain/entity"
	"agriconnect/internal/domain/repository"
	"agriconnect/pkg/errors"
)

// Claims carried by tokens issued for development and CLI use.
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type JWTResolver struct {
	secret       []byte
	expiry       time.Duration
	participants repository.ParticipantRepository
	nowFn        func() time.Time
}

// NewJWTResolver verifies HS256 tokens signed with secret. participants may be nil, in which case
// the participant is built from the claims alone.
func NewJWTResolver(secret string, expiry time.Duration, participants repository.ParticipantRepository) *JWTResolver {
	return &JWTResolver{
		secret:       []byte(secret),
		expiry:       expiry,
		participants: participants,
		nowFn:        time.Now,
	}
}

// Issue signs a token for the participant.
func (r *JWTResolver) Issue(p *entity.Participant) (string, time.Time, error) {
	if p == nil || p.ID == "" {
		return "", time.Time{}, errors.Validation("participant id is required", nil)
	}
	now := r.nowFn()
	expiresAt := now.Add(r.expiry)
	claims := Claims{
		Role: string(p.Role),
		Name: p.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", time.Time{}, errors.Internal("failed to sign token", err)
	}
	return token, expiresAt, nil
}

func (r *JWTResolver) Resolve(ctx context.Context, credential string) (*entity.Participant, error) {
	p, _, err := r.ResolveWithExpiry(ctx, credential)
	return p, err
}

// ResolveWithExpiry resolves the token and returns its exp claim alongside the participant.
func (r *JWTResolver) ResolveWithExpiry(ctx context.Context, credential string) (*entity.Participant, time.Time, error) {
	if credential == "" {
		return nil, time.Time{}, errors.Unauthorized("missing credential", nil)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, time.Time{}, errors.Unauthorized("invalid token", err)
	}

	// the subject is a participant id and must match how the directory stores it
	id := entity.NormalizeParticipantID(claims.Subject)
	role, ok := entity.ParseRole(claims.Role)
	if !ok || id == "" {
		return nil, time.Time{}, errors.Unauthorized("token is missing subject or role", nil)
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if r.participants != nil {
		p, err := r.participants.GetByID(ctx, id)
		if err == nil {
			return p, expiresAt, nil
		}
		if !errors.Is(err, errors.CodeNotFound) {
			return nil, time.Time{}, err
		}
	}

	return &entity.Participant{
		ID:          id,
		Role:        role,
		DisplayName: claims.Name,
	}, expiresAt, nil
}
