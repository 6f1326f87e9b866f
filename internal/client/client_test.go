package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agriconnect/internal/adapter/api"
	"agriconnect/internal/adapter/repository"
	"agriconnect/internal/domain/entity"
	"agriconnect/internal/domain/service"
	"agriconnect/internal/infrastructure/identity"
	ws "agriconnect/internal/infrastructure/websocket"
	"agriconnect/internal/usecase"
	"agriconnect/pkg/errors"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newServerWith(t, usecase.RequestOptions{})
}

func newServerWith(t *testing.T, opts usecase.RequestOptions) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	requests := repository.NewMemoryRequestRepository()
	messages := repository.NewMemoryMessageRepository()
	participants := repository.NewMemoryParticipantRepository()
	resolver := identity.NewJWTResolver("client-test", time.Hour, participants)
	manager := ws.NewManager()
	manager.Start(ctx)

	collab := usecase.Collaborators{Notifier: manager}
	e := api.NewServer(api.ServerDeps{
		Environment:     "development",
		Backend:         "memory",
		Resolver:        resolver,
		IdentityUseCase: usecase.NewIdentityUseCase(participants, resolver, nil),
		RequestUseCase:  usecase.NewRequestUseCase(requests, messages, participants, collab, opts),
		ChatUseCase:     usecase.NewChatUseCase(messages, requests, collab),
		MatchUseCase:    usecase.NewMatchUseCase(service.NewLocalMatcher(participants), "local", nil, nil),
		WSManager:       manager,
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, srv *httptest.Server, id, role, name string) *Session {
	t.Helper()
	api := New(srv.URL, 5*time.Second)
	tok, err := api.IssueDevToken(context.Background(), usecase.RegisterInput{ID: id, Role: role, DisplayName: name})
	require.NoError(t, err)

	session := NewSession(api)
	_, err = session.Login(context.Background(), tok.Token)
	require.NoError(t, err)
	return session
}

// acceptedPair logs in F1 and S1 and connects them through an accepted request.
func acceptedPair(t *testing.T, srv *httptest.Server) (*Session, *Session) {
	t.Helper()
	ctx := context.Background()
	farmer := login(t, srv, "F1", "farmer", "Farmer One")
	seller := login(t, srv, "S1", "seller", "Seller One")

	req, err := farmer.API().CreateRequest(ctx, usecase.CreateRequestInput{
		FarmerID: "f1", SellerID: "s1", Crop: "Wheat", Region: "Alipurduar", Price: "2000",
	})
	require.NoError(t, err)
	_, err = seller.API().Accept(ctx, req.ID)
	require.NoError(t, err)
	return farmer, seller
}

func TestSessionLifecycle(t *testing.T) {
	srv := newServer(t)
	session := login(t, srv, "F1", "farmer", "Farmer One")

	p, err := session.Participant()
	require.NoError(t, err)
	assert.Equal(t, "f1", p.ID)
	assert.Equal(t, entity.RoleFarmer, p.Role)
	assert.Len(t, session.ID(), 26)
	assert.NotEmpty(t, session.Token())

	session.Logout()
	assert.False(t, session.LoggedIn())
	assert.Empty(t, session.ID())
	_, err = session.Participant()
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
}

func TestLoginWithBadTokenKeepsLoggedOut(t *testing.T) {
	srv := newServer(t)
	session := NewSession(New(srv.URL, time.Second))

	_, err := session.Login(context.Background(), "garbage")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
	assert.False(t, session.LoggedIn())
	assert.Empty(t, session.Token())

	_, err = session.Login(context.Background(), "  ")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
}

func TestClientMapsServerErrors(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	farmer := login(t, srv, "F1", "farmer", "Farmer One")
	login(t, srv, "S1", "seller", "Seller One")

	req, err := farmer.API().CreateRequest(ctx, usecase.CreateRequestInput{
		FarmerID: "f1", SellerID: "s1", Crop: "Rice", Region: "Kolkata", Price: "10.5",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, req.Status)

	_, err = farmer.API().Accept(ctx, req.ID)
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, err = farmer.API().Accept(ctx, 999)
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	_, err = farmer.API().History(ctx, "nounderscore", 0)
	assert.True(t, errors.Is(err, errors.CodeValidation))
	assert.False(t, errors.IsRetryable(err))

	_, err = farmer.API().CreateRequest(ctx, usecase.CreateRequestInput{
		FarmerID: "f1", SellerID: "s1", Crop: "Rice", Region: "Kolkata", Price: "-1",
	})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = farmer.API().CreateRequest(ctx, usecase.CreateRequestInput{
		FarmerID: "f1", SellerID: "s404", Crop: "Rice", Region: "Kolkata", Price: "10",
	})
	assert.True(t, errors.Is(err, errors.CodeValidation), "unknown seller without a name")
}

func TestClientNetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).ActiveChats(context.Background())
	assert.True(t, errors.Is(err, errors.CodeTransient))
	assert.True(t, errors.IsRetryable(err))
}

func TestClientServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Me(context.Background())
	assert.True(t, errors.Is(err, errors.CodeTransient))
}

func TestClientPlainTextClientErrorsAreNotRetried(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := New(srv.URL, time.Second).ActiveChats(context.Background())
	assert.True(t, errors.Is(err, errors.CodeNotFound))
	assert.False(t, errors.IsRetryable(err))

	denied := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "blocked by proxy", http.StatusForbidden)
	}))
	defer denied.Close()

	_, err = New(denied.URL, time.Second).Me(context.Background())
	assert.True(t, errors.Is(err, errors.CodeForbidden))
	assert.False(t, errors.IsRetryable(err))
}

func TestChatRoundTrip(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	farmer, seller := acceptedPair(t, srv)

	room, err := seller.API().Channel(ctx, "F1")
	require.NoError(t, err)
	assert.Equal(t, "f1_s1", room)

	chats, err := farmer.API().ActiveChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, room, chats[0].ChannelID)
	assert.Equal(t, "s1", chats[0].PeerID)

	first, err := farmer.API().SendMessage(ctx, usecase.AppendMessageInput{Room: room, Sender: "f1", Receiver: "s1", Text: "Hello"})
	require.NoError(t, err)
	_, err = seller.API().SendMessage(ctx, usecase.AppendMessageInput{Room: room, Sender: "s1", Receiver: "f1", Text: "Hi"})
	require.NoError(t, err)

	all, err := seller.API().History(ctx, room, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Hello", all[0].Text)

	newer, err := seller.API().History(ctx, room, first.ID)
	require.NoError(t, err)
	require.Len(t, newer, 1)
	assert.Equal(t, "Hi", newer[0].Text)

	list, err := farmer.API().ListRequests(ctx, "farmer", "accepted")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, farmer.API().DeleteRequest(ctx, list[0].ID))
	assert.True(t, errors.Is(farmer.API().DeleteRequest(ctx, list[0].ID), errors.CodeNotFound))
}

func TestSearchReturnsEmptyList(t *testing.T) {
	srv := newServer(t)
	farmer := login(t, srv, "F1", "farmer", "Farmer One")

	results, err := farmer.API().Search(context.Background(), "saffron", "nowhere")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestHintsURL(t *testing.T) {
	c := New("https://agri.example.com/", time.Second)
	c.SetToken("abc")
	assert.Equal(t, "wss://agri.example.com/ws?token=abc", c.HintsURL())

	c = New("http://localhost:8080", time.Second)
	assert.Equal(t, "ws://localhost:8080/ws?token=", c.HintsURL())
}

func TestSyncerRefreshesChatsAndMessages(t *testing.T) {
	srv := newServer(t)
	farmer, seller := acceptedPair(t, srv)

	var mu sync.Mutex
	var delivered []string
	syncer, err := NewSyncer(seller, SyncerConfig{
		Interval: 20 * time.Millisecond,
		Hints:    true,
		OnMessages: func(room string, messages []*entity.ChatMessage) {
			mu.Lock()
			defer mu.Unlock()
			for _, m := range messages {
				delivered = append(delivered, room+":"+m.Text)
			}
		},
	})
	require.NoError(t, err)
	require.NoError(t, syncer.OpenRoom("f1_s1"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- syncer.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(syncer.Chats()) == 1 }, 2*time.Second, 10*time.Millisecond)

	for _, text := range []string{"one", "two"} {
		_, err := farmer.API().SendMessage(context.Background(), usecase.AppendMessageInput{
			Room: "f1_s1", Sender: "f1", Receiver: "s1", Text: text,
		})
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool { return len(syncer.Messages("f1_s1")) == 2 }, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"f1_s1:one", "f1_s1:two"}, delivered)
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("syncer did not stop")
	}
}

func TestSyncerStopsOnLogout(t *testing.T) {
	srv := newServer(t)
	_, seller := acceptedPair(t, srv)

	// the interval is far longer than the test, so only the logout can stop the loop
	syncer, err := NewSyncer(seller, SyncerConfig{Interval: time.Hour})
	require.NoError(t, err)
	require.NoError(t, syncer.OpenRoom("f1_s1"))

	done := make(chan error, 1)
	go func() { done <- syncer.Run(context.Background()) }()
	assert.Eventually(t, func() bool { return len(syncer.Chats()) == 1 }, 2*time.Second, 5*time.Millisecond)

	seller.Logout()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("syncer kept running after logout")
	}

	err = syncer.Run(context.Background())
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
}

func TestOpenRoomValidates(t *testing.T) {
	srv := newServer(t)
	session := login(t, srv, "F1", "farmer", "Farmer One")
	syncer, err := NewSyncer(session, SyncerConfig{Interval: time.Second})
	require.NoError(t, err)

	assert.True(t, errors.Is(syncer.OpenRoom("bad"), errors.CodeValidation))
	require.NoError(t, syncer.OpenRoom("f1_s1"))
	syncer.CloseRoom("f1_s1")
	assert.Empty(t, syncer.Messages("f1_s1"))
}

func TestSyncerReplacesRoomAfterCascadeDelete(t *testing.T) {
	srv := newServerWith(t, usecase.RequestOptions{CascadeDeleteMessages: true})
	farmer, seller := acceptedPair(t, srv)
	ctx := context.Background()

	syncer, err := NewSyncer(seller, SyncerConfig{Interval: 20 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, syncer.OpenRoom("f1_s1"))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = syncer.Run(runCtx) }()

	_, err = farmer.API().SendMessage(ctx, usecase.AppendMessageInput{Room: "f1_s1", Sender: "f1", Receiver: "s1", Text: "hello"})
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return len(syncer.Messages("f1_s1")) == 1 }, 2*time.Second, 10*time.Millisecond)

	list, err := farmer.API().ListRequests(ctx, "", "accepted")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, farmer.API().DeleteRequest(ctx, list[0].ID))

	history, err := seller.API().History(ctx, "f1_s1", 0)
	require.NoError(t, err)
	require.Empty(t, history)

	assert.Eventually(t, func() bool {
		return len(syncer.Messages("f1_s1")) == 0 && len(syncer.Chats()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSyncerShowsIncomingPendingRequest(t *testing.T) {
	srv := newServer(t)
	farmer := login(t, srv, "F1", "farmer", "Farmer One")
	seller := login(t, srv, "S1", "seller", "Seller One")

	var mu sync.Mutex
	var seen [][]*entity.MatchRequest
	syncer, err := NewSyncer(seller, SyncerConfig{
		Interval: 20 * time.Millisecond,
		Hints:    true,
		OnRequests: func(requests []*entity.MatchRequest) {
			mu.Lock()
			seen = append(seen, requests)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = syncer.Run(ctx) }()
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, syncer.Pending())

	created, err := farmer.API().CreateRequest(context.Background(), usecase.CreateRequestInput{
		FarmerID: "f1", SellerID: "s1", Crop: "Wheat", Region: "Alipurduar", Price: "2000",
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		pending := syncer.Pending()
		return len(pending) == 1 && pending[0].ID == created.ID
	}, 2*time.Second, 10*time.Millisecond)

	_, err = seller.API().Accept(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return len(syncer.Pending()) == 0 && len(syncer.Chats()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
