package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agriconnect/internal/domain/entity"
	"agriconnect/pkg/errors"
)

type countingResolver struct {
	calls int
	next  Resolver
}

func (c *countingResolver) Resolve(ctx context.Context, credential string) (*entity.Participant, error) {
	c.calls++
	return c.next.Resolve(ctx, credential)
}

func TestJWTResolverRoundTrip(t *testing.T) {
	r := NewJWTResolver("secret", time.Hour, nil)

	token, expiresAt, err := r.Issue(&entity.Participant{ID: "s1", Role: entity.RoleSeller, DisplayName: "Seller One"})
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	p, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "s1", p.ID)
	assert.Equal(t, entity.RoleSeller, p.Role)
	assert.Equal(t, "Seller One", p.DisplayName)
}

func TestJWTResolverRejectsBadTokens(t *testing.T) {
	r := NewJWTResolver("secret", time.Hour, nil)
	other := NewJWTResolver("other-secret", time.Hour, nil)

	token, _, err := other.Issue(&entity.Participant{ID: "f1", Role: entity.RoleFarmer})
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), token)
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))

	_, err = r.Resolve(context.Background(), "")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))

	expired := NewJWTResolver("secret", -time.Minute, nil)
	token, _, err = expired.Issue(&entity.Participant{ID: "f1", Role: entity.RoleFarmer})
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), token)
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
}

func TestCachedResolverMemoizesSuccessOnly(t *testing.T) {
	jwtResolver := NewJWTResolver("secret", time.Hour, nil)
	counting := &countingResolver{next: jwtResolver}
	cached := NewCachedResolver(counting, 8, time.Minute)

	token, _, err := jwtResolver.Issue(&entity.Participant{ID: "f1", Role: entity.RoleFarmer})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		p, err := cached.Resolve(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "f1", p.ID)
	}
	assert.Equal(t, 1, counting.calls)

	for i := 0; i < 2; i++ {
		_, err := cached.Resolve(context.Background(), "garbage")
		assert.Error(t, err)
	}
	assert.Equal(t, 3, counting.calls)

	cached.Forget()
	_, err = cached.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, 4, counting.calls)
}

func TestJWTResolverNormalizesSubject(t *testing.T) {
	r := NewJWTResolver("secret", time.Hour, nil)

	token, _, err := r.Issue(&entity.Participant{ID: "S-1", Role: entity.RoleSeller})
	require.NoError(t, err)
	p, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "s1", p.ID)

	token, _, err = r.Issue(&entity.Participant{ID: "--", Role: entity.RoleSeller})
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), token)
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
}

// expiringResolver hands out one participant whose credential lapses at expiresAt, and rejects
// everything once revoked is set.
type expiringResolver struct {
	calls     int
	expiresAt time.Time
	revoked   bool
}

func (r *expiringResolver) Resolve(ctx context.Context, credential string) (*entity.Participant, error) {
	p, _, err := r.ResolveWithExpiry(ctx, credential)
	return p, err
}

func (r *expiringResolver) ResolveWithExpiry(_ context.Context, credential string) (*entity.Participant, time.Time, error) {
	r.calls++
	if r.revoked {
		return nil, time.Time{}, errors.Unauthorized("invalid token", nil)
	}
	return &entity.Participant{ID: credential, Role: entity.RoleFarmer}, r.expiresAt, nil
}

func TestCachedResolverStopsAtTokenExpiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	next := &expiringResolver{expiresAt: now.Add(30 * time.Second)}
	cached := NewCachedResolver(next, 8, time.Hour)
	cached.nowFn = func() time.Time { return now }

	p, err := cached.Resolve(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "f1", p.ID)
	_, err = cached.Resolve(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)

	// the cache TTL is an hour, but the token lapsed
	now = now.Add(31 * time.Second)
	next.revoked = true
	_, err = cached.Resolve(context.Background(), "f1")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
	assert.Equal(t, 2, next.calls)
}

func TestCachedResolverSkipsAlreadyExpiredCredential(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	next := &expiringResolver{expiresAt: now.Add(-time.Second)}
	cached := NewCachedResolver(next, 8, time.Hour)
	cached.nowFn = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_, err := cached.Resolve(context.Background(), "f1")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, next.calls)
}

func TestCachedResolverForgetParticipant(t *testing.T) {
	next := &expiringResolver{}
	cached := NewCachedResolver(next, 8, time.Hour)

	for _, credential := range []string{"f1", "s1"} {
		_, err := cached.Resolve(context.Background(), credential)
		require.NoError(t, err)
	}
	cached.ForgetParticipant("f1")

	_, err := cached.Resolve(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
	_, err = cached.Resolve(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, 3, next.calls)
}
