package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raulk/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"agriconnect/internal/domain/entity"
	"agriconnect/internal/domain/service"
	ws "agriconnect/internal/infrastructure/websocket"
	"agriconnect/internal/poller"
	"agriconnect/pkg/errors"
	"agriconnect/pkg/logger"
)

const DefaultPollInterval = 2 * time.Second

type SyncerConfig struct {
	Interval time.Duration
	Clock    clock.Clock
	// Hints opens the /ws connection and refreshes as soon as the server reports a change.
	Hints bool

	OnChats func([]entity.ActiveChat)
	// OnRequests receives every applied snapshot of the caller's pending requests.
	OnRequests func([]*entity.MatchRequest)
	// OnMessages receives the messages that were not in the previous snapshot, oldest first.
	OnMessages func(room string, messages []*entity.ChatMessage)
}

// Syncer keeps the pending requests, the active chat list and every open room's messages up to
// date. Each poll replaces the local view with what the server returned.
type Syncer struct {
	session *Session
	cfg     SyncerConfig
	log     *zap.SugaredLogger

	chats   *poller.Poller[[]entity.ActiveChat]
	pending *poller.Poller[[]*entity.MatchRequest]

	mu       sync.Mutex
	rooms    map[string]*roomView
	group    *errgroup.Group
	groupCtx context.Context
}

type roomView struct {
	room   string
	poller *poller.Poller[[]*entity.ChatMessage]

	mu       sync.Mutex
	open     bool
	messages []*entity.ChatMessage
}

func NewSyncer(session *Session, cfg SyncerConfig) (*Syncer, error) {
	if cfg.Interval == 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.OnChats == nil {
		cfg.OnChats = func([]entity.ActiveChat) {}
	}
	if cfg.OnRequests == nil {
		cfg.OnRequests = func([]*entity.MatchRequest) {}
	}
	if cfg.OnMessages == nil {
		cfg.OnMessages = func(string, []*entity.ChatMessage) {}
	}

	s := &Syncer{
		session: session,
		cfg:     cfg,
		log:     logger.With("component", "syncer"),
		rooms:   make(map[string]*roomView),
	}

	chats, err := poller.New(poller.Config{
		Name:     "active-chats",
		Interval: cfg.Interval,
		Enabled:  session.LoggedIn,
		Clock:    cfg.Clock,
	}, session.API().ActiveChats, cfg.OnChats)
	if err != nil {
		return nil, err
	}
	s.chats = chats

	pending, err := poller.New(poller.Config{
		Name:     "pending-requests",
		Interval: cfg.Interval,
		Enabled:  session.LoggedIn,
		Clock:    cfg.Clock,
	}, func(ctx context.Context) ([]*entity.MatchRequest, error) {
		return session.API().ListRequests(ctx, "", string(entity.StatusPending))
	}, cfg.OnRequests)
	if err != nil {
		return nil, err
	}
	s.pending = pending

	session.OnLogout(s.wake)
	return s, nil
}

// wake makes every poller re-check its enabled predicate now instead of at its next tick.
func (s *Syncer) wake() {
	s.chats.Trigger()
	s.pending.Trigger()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.rooms {
		v.poller.Trigger()
	}
}

// OpenRoom starts polling room. Rooms opened before Run start with it.
func (s *Syncer) OpenRoom(room string) error {
	if err := service.ValidateChannelID(room); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.rooms[room]; ok && v.isOpen() {
		return nil
	}

	v := &roomView{room: room, open: true}
	p, err := poller.New(poller.Config{
		Name:     "room-" + room,
		Interval: s.cfg.Interval,
		Enabled:  func() bool { return s.session.LoggedIn() && v.isOpen() },
		Clock:    s.cfg.Clock,
	}, v.fetch(s.session.API()), func(snapshot []*entity.ChatMessage) {
		if fresh := v.replace(snapshot); len(fresh) > 0 {
			s.cfg.OnMessages(room, fresh)
		}
	})
	if err != nil {
		return err
	}
	v.poller = p
	s.rooms[room] = v

	if s.group != nil {
		ctx := s.groupCtx
		s.group.Go(func() error { return p.Run(ctx) })
	}
	return nil
}

// CloseRoom stops polling room and forgets its messages.
func (s *Syncer) CloseRoom(room string) {
	s.mu.Lock()
	v, ok := s.rooms[room]
	delete(s.rooms, room)
	s.mu.Unlock()
	if ok {
		v.close()
		v.poller.Trigger()
	}
}

// Messages returns the last snapshot of an open room.
func (s *Syncer) Messages(room string) []*entity.ChatMessage {
	s.mu.Lock()
	v, ok := s.rooms[room]
	s.mu.Unlock()
	if !ok {
		return []*entity.ChatMessage{}
	}
	return v.snapshot()
}

// Chats returns the last applied active chat list.
func (s *Syncer) Chats() []entity.ActiveChat {
	chats, ok := s.chats.Snapshot()
	if !ok {
		return []entity.ActiveChat{}
	}
	return chats
}

// Pending returns the last applied list of pending requests the caller is part of.
func (s *Syncer) Pending() []*entity.MatchRequest {
	requests, ok := s.pending.Snapshot()
	if !ok {
		return []*entity.MatchRequest{}
	}
	return requests
}

func (s *Syncer) Stale() bool {
	return s.chats.Stale() || s.pending.Stale()
}

// Run polls until ctx is done or the session logs out. A non-retryable error from any poller
// stops all of them and is returned.
func (s *Syncer) Run(ctx context.Context) error {
	if !s.session.LoggedIn() {
		return errors.Unauthorized("not logged in", nil)
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	s.mu.Lock()
	if s.group != nil {
		s.mu.Unlock()
		return errors.Conflict("syncer is already running")
	}
	s.group = g
	s.groupCtx = runCtx

	g.Go(func() error {
		defer cancel()
		return s.chats.Run(runCtx)
	})
	g.Go(func() error { return s.pending.Run(runCtx) })
	for _, v := range s.rooms {
		p := v.poller
		g.Go(func() error { return p.Run(runCtx) })
	}
	if s.cfg.Hints {
		g.Go(func() error { return s.listenHints(runCtx) })
	}
	s.mu.Unlock()

	err := g.Wait()

	s.mu.Lock()
	s.group = nil
	s.groupCtx = nil
	s.mu.Unlock()
	return err
}

// listenHints triggers refreshes from websocket hints. Losing the socket only means
// falling back to the timer, so dial and read failures are logged, not returned.
func (s *Syncer) listenHints(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.session.API().HintsURL(), nil)
	if err != nil {
		s.log.Warnw("refresh hints unavailable, polling only", "error", err)
		return nil
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warnw("refresh hints closed, polling only", "error", err)
			}
			return nil
		}

		var hint ws.WSMessage
		if err := json.Unmarshal(data, &hint); err != nil {
			s.log.Debugw("ignoring malformed hint", "error", err)
			continue
		}
		s.applyHint(hint)
	}
}

func (s *Syncer) applyHint(hint ws.WSMessage) {
	switch hint.Type {
	case ws.MessageTypeRequestUpdated:
		s.chats.Trigger()
		s.pending.Trigger()
	case ws.MessageTypeMessageAppended:
		s.mu.Lock()
		v, ok := s.rooms[hint.Room]
		s.mu.Unlock()
		if ok {
			v.poller.Trigger()
		}
	}
}

func (v *roomView) isOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open
}

func (v *roomView) close() {
	v.mu.Lock()
	v.open = false
	v.messages = nil
	v.mu.Unlock()
}

func (v *roomView) fetch(api *Client) func(context.Context) ([]*entity.ChatMessage, error) {
	return func(ctx context.Context) ([]*entity.ChatMessage, error) {
		return api.History(ctx, v.room, 0)
	}
}

type messageKey struct {
	id int64
	at int64
}

func keyOf(m *entity.ChatMessage) messageKey {
	return messageKey{id: m.ID, at: m.CreatedAt.UnixNano()}
}

// replace swaps in the fetched snapshot and returns the messages the previous one lacked.
func (v *roomView) replace(snapshot []*entity.ChatMessage) []*entity.ChatMessage {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.open {
		return nil
	}

	seen := make(map[messageKey]struct{}, len(v.messages))
	for _, m := range v.messages {
		seen[keyOf(m)] = struct{}{}
	}
	v.messages = snapshot

	var fresh []*entity.ChatMessage
	for _, m := range snapshot {
		if _, ok := seen[keyOf(m)]; !ok {
			fresh = append(fresh, m)
		}
	}
	return fresh
}

func (v *roomView) snapshot() []*entity.ChatMessage {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]*entity.ChatMessage, 0, len(v.messages))
	for _, m := range v.messages {
		out = append(out, m.Clone())
	}
	return out
}
