package usecase

import (
	"context"
	"time"

	"agriconnect/internal/domain/entity"
)

// IdentityResolver maps a bearer credential to a participant. Failures are AuthenticationErrors.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (*entity.Participant, error)
}

type TokenIssuer interface {
	Issue(p *entity.Participant) (string, time.Time, error)
}

// CredentialCache drops memoized credential resolutions for a participant.
type CredentialCache interface {
	ForgetParticipant(id string)
}

// MatchingQuery returns ranked counterparts for a commodity and region. No match is an empty slice.
type MatchingQuery interface {
	Search(ctx context.Context, crop, region string) ([]entity.Counterpart, error)
}

// Notifier pushes refresh hints after writes. Delivery is best effort.
type Notifier interface {
	RequestChanged(ctx context.Context, req *entity.MatchRequest)
	MessageAppended(ctx context.Context, msg *entity.ChatMessage)
}

type RateLimiter interface {
	Allow(userID, action string) (bool, time.Duration)
}

type Recorder interface {
	RequestTransitioned(status string)
	MessageAppended()
	SearchCompleted(backend string, err error)
}

type noopNotifier struct{}

func (noopNotifier) RequestChanged(context.Context, *entity.MatchRequest) {}
func (noopNotifier) MessageAppended(context.Context, *entity.ChatMessage) {}

type noopLimiter struct{}

func (noopLimiter) Allow(string, string) (bool, time.Duration) { return true, 0 }

type noopRecorder struct{}

func (noopRecorder) RequestTransitioned(string)    {}
func (noopRecorder) MessageAppended()              {}
func (noopRecorder) SearchCompleted(string, error) {}

// Collaborators are the optional side-effect hooks shared by the use cases. Nil fields are no-ops.
type Collaborators struct {
	Notifier Notifier
	Limiter  RateLimiter
	Recorder Recorder
}

func (c Collaborators) withDefaults() Collaborators {
	if c.Notifier == nil {
		c.Notifier = noopNotifier{}
	}
	if c.Limiter == nil {
		c.Limiter = noopLimiter{}
	}
	if c.Recorder == nil {
		c.Recorder = noopRecorder{}
	}
	return c
}
