package identity

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"agriconnect/internal/domain/entity"
)

type Resolver interface {
	Resolve(ctx context.Context, credential string) (*entity.Participant, error)
}

// ExpiringResolver also reports when the credential stops being valid. A zero time means the
// credential carries no expiry.
type ExpiringResolver interface {
	ResolveWithExpiry(ctx context.Context, credential string) (*entity.Participant, time.Time, error)
}

type cacheEntry struct {
	participant *entity.Participant
	expiresAt   time.Time
}

// CachedResolver memoizes successful resolutions by credential. Failures are never cached, and an
// entry never outlives the credential it was resolved from.
type CachedResolver struct {
	next  Resolver
	cache *expirable.LRU[string, cacheEntry]
	nowFn func() time.Time
}

func NewCachedResolver(next Resolver, size int, ttl time.Duration) *CachedResolver {
	if size <= 0 {
		size = 1024
	}
	return &CachedResolver{
		next:  next,
		cache: expirable.NewLRU[string, cacheEntry](size, nil, ttl),
		nowFn: time.Now,
	}
}

func (c *CachedResolver) Resolve(ctx context.Context, credential string) (*entity.Participant, error) {
	if e, ok := c.cache.Get(credential); ok {
		if e.expiresAt.IsZero() || c.nowFn().Before(e.expiresAt) {
			cp := *e.participant
			return &cp, nil
		}
		c.cache.Remove(credential)
	}

	p, expiresAt, err := c.resolve(ctx, credential)
	if err != nil {
		return nil, err
	}
	if expiresAt.IsZero() || c.nowFn().Before(expiresAt) {
		c.cache.Add(credential, cacheEntry{participant: p, expiresAt: expiresAt})
	}
	cp := *p
	return &cp, nil
}

func (c *CachedResolver) resolve(ctx context.Context, credential string) (*entity.Participant, time.Time, error) {
	if er, ok := c.next.(ExpiringResolver); ok {
		return er.ResolveWithExpiry(ctx, credential)
	}
	p, err := c.next.Resolve(ctx, credential)
	return p, time.Time{}, err
}

// ForgetParticipant drops every cached credential that resolved to id.
func (c *CachedResolver) ForgetParticipant(id string) {
	for _, key := range c.cache.Keys() {
		if e, ok := c.cache.Peek(key); ok && e.participant.ID == id {
			c.cache.Remove(key)
		}
	}
}

// Forget drops every cached entry.
func (c *CachedResolver) Forget() {
	c.cache.Purge()
}
