package client

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"agriconnect/internal/domain/entity"
	"agriconnect/pkg/errors"
	"agriconnect/pkg/logger"
)

// Session holds who is logged in on this client. Each login gets a fresh ULID so log lines from
// one session can be told apart.
type Session struct {
	api *Client

	mu          sync.RWMutex
	id          string
	participant *entity.Participant
	onLogout    []func()
}

func NewSession(api *Client) *Session {
	return &Session{api: api}
}

// Login resolves token through /v1/me and keeps the participant it belongs to.
func (s *Session) Login(ctx context.Context, token string) (*entity.Participant, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.Unauthorized("token is required", nil)
	}

	previous := s.api.Token()
	s.api.SetToken(token)
	participant, err := s.api.Me(ctx)
	if err != nil {
		s.api.SetToken(previous)
		return nil, err
	}

	id := ulid.MustNew(ulid.Now(), rand.Reader).String()
	s.mu.Lock()
	s.id = id
	s.participant = participant
	s.mu.Unlock()

	logger.With("session", id).Infof("logged in as %s (%s)", participant.ID, participant.Role)
	c := *participant
	return &c, nil
}

func (s *Session) Logout() {
	s.mu.Lock()
	s.id = ""
	s.participant = nil
	hooks := append([]func(){}, s.onLogout...)
	s.mu.Unlock()
	s.api.SetToken("")

	for _, fn := range hooks {
		fn()
	}
}

// OnLogout registers fn to run after every Logout.
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	s.onLogout = append(s.onLogout, fn)
	s.mu.Unlock()
}

func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.participant != nil
}

// Participant returns the logged-in participant or Unauthorized.
func (s *Session) Participant() (*entity.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.participant == nil {
		return nil, errors.Unauthorized("not logged in", nil)
	}
	c := *s.participant
	return &c, nil
}

// ID is the ULID of the current login, empty when logged out.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *Session) Token() string {
	return s.api.Token()
}

func (s *Session) API() *Client {
	return s.api
}
