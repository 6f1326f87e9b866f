package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agriconnect/internal/adapter/api"
	"agriconnect/internal/adapter/repository"
	"agriconnect/internal/domain/service"
	"agriconnect/internal/infrastructure/identity"
	"agriconnect/internal/infrastructure/metrics"
	ws "agriconnect/internal/infrastructure/websocket"
	"agriconnect/internal/usecase"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	requests := repository.NewMemoryRequestRepository()
	messages := repository.NewMemoryMessageRepository()
	participants := repository.NewMemoryParticipantRepository()
	jwtResolver := identity.NewJWTResolver("test-secret", time.Hour, participants)
	cached := identity.NewCachedResolver(jwtResolver, 16, time.Minute)
	wsManager := ws.NewManager()
	wsManager.Start(ctx)
	m := metrics.New()

	collab := usecase.Collaborators{Notifier: wsManager, Recorder: m}
	e := api.NewServer(api.ServerDeps{
		Environment:     "development",
		Backend:         "memory",
		Resolver:        cached,
		IdentityUseCase: usecase.NewIdentityUseCase(participants, jwtResolver, cached),
		RequestUseCase:  usecase.NewRequestUseCase(requests, messages, participants, collab, usecase.RequestOptions{}),
		ChatUseCase:     usecase.NewChatUseCase(messages, requests, collab),
		MatchUseCase:    usecase.NewMatchUseCase(service.NewLocalMatcher(participants), "local", nil, m),
		WSManager:       wsManager,
		Metrics:         m,
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func register(t *testing.T, srv *httptest.Server, id, role, name string, extra map[string]interface{}) string {
	t.Helper()
	body := map[string]interface{}{"id": id, "role": role, "display_name": name}
	for k, v := range extra {
		body[k] = v
	}
	status, env := call(t, srv, http.MethodPost, "/v1/dev/token", "", body)
	require.Equal(t, http.StatusCreated, status)

	var tok usecase.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	return tok.Token
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "memory", body["store"])
}

func TestRequiresAuthentication(t *testing.T) {
	srv := newTestServer(t)

	status, env := call(t, srv, http.MethodGet, "/v1/requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, _ = call(t, srv, http.MethodGet, "/v1/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMatchChatFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	farmer := register(t, srv, "F1", "farmer", "Farmer One", nil)
	seller := register(t, srv, "S1", "fpc", "Green Valley FPC", map[string]interface{}{
		"district": "Alipurduar", "commodities": []string{"Wheat", "Rice"},
	})

	status, env := call(t, srv, http.MethodGet, "/v1/me", farmer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"id":"f1"`)

	status, env = call(t, srv, http.MethodPost, "/v1/match/search", farmer, map[string]string{"crop": "wheat", "region": "alipurduar"})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"seller_id":"s1"`)

	status, env = call(t, srv, http.MethodPost, "/v1/requests", farmer, map[string]interface{}{
		"farmer_id": "F1", "seller_id": "S1", "crop": "Wheat", "region": "Alipurduar", "price": 2000,
	})
	require.Equal(t, http.StatusCreated, status, "%+v", env.Error)
	var created struct {
		ID         int64  `json:"id"`
		Status     string `json:"status"`
		FarmerName string `json:"farmer_name"`
		SellerName string `json:"seller_name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "Farmer One", created.FarmerName)
	assert.Equal(t, "Green Valley FPC", created.SellerName)

	status, env = call(t, srv, http.MethodPost, "/v1/requests/1/accept", farmer, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, _ = call(t, srv, http.MethodPost, "/v1/requests/1/accept", seller, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = call(t, srv, http.MethodPost, "/v1/requests/1/reject", seller, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)

	status, env = call(t, srv, http.MethodGet, "/v1/channels?peer=F1", seller, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"room":"f1_s1"}`, string(env.Data))

	status, env = call(t, srv, http.MethodGet, "/v1/requests/active", farmer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"channel_id":"f1_s1"`)

	status, _ = call(t, srv, http.MethodPost, "/v1/chat/messages", farmer, map[string]string{
		"room": "f1_s1", "receiver": "s1", "text": "Hello",
	})
	require.Equal(t, http.StatusCreated, status)

	status, env = call(t, srv, http.MethodGet, "/v1/chat/messages?room=f1_s1", seller, nil)
	require.Equal(t, http.StatusOK, status)
	var history []struct {
		Text   string `json:"text"`
		Sender string `json:"sender"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "Hello", history[0].Text)
	assert.Equal(t, "f1", history[0].Sender)

	status, env = call(t, srv, http.MethodGet, "/v1/chat/messages?room=bad", seller, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	status, env = call(t, srv, http.MethodGet, "/v1/requests?page=1&limit=10", farmer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"total":1`)

	status, _ = call(t, srv, http.MethodDelete, "/v1/requests/1", farmer, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = call(t, srv, http.MethodDelete, "/v1/requests/1", farmer, nil)
	assert.Equal(t, http.StatusNotFound, status)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEmptyHistoryIsEmptyArray(t *testing.T) {
	srv := newTestServer(t)
	farmer := register(t, srv, "f2", "farmer", "Farmer Two", nil)

	status, env := call(t, srv, http.MethodGet, "/v1/chat/messages?room=f2_s9", farmer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "[]", string(env.Data))
}
