// Package client talks to the AgriConnect HTTP API and keeps client-side views fresh by polling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"agriconnect/internal/domain/entity"
	"agriconnect/internal/usecase"
	"agriconnect/pkg/errors"
)

// Client is a typed wrapper around the /v1 routes. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Validation("cannot encode request body", err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.Validation("cannot build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Transient(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Transient("cannot read response", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		switch {
		case resp.StatusCode >= http.StatusInternalServerError:
			return errors.Transient(fmt.Sprintf("server returned %d", resp.StatusCode), err)
		case resp.StatusCode >= http.StatusBadRequest:
			// proxies and unknown routes answer without the envelope
			return decodeError(resp.StatusCode, &envelope{})
		}
		return errors.Transient("malformed response", err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		return decodeError(resp.StatusCode, &env)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Transient("malformed response data", err)
	}
	return nil
}

// decodeError turns an error envelope back into the AppError the server raised.
func decodeError(status int, env *envelope) error {
	code, message := "", http.StatusText(status)
	if env.Error != nil {
		code = env.Error.Code
		if env.Error.Message != "" {
			message = env.Error.Message
		}
	}
	if status >= http.StatusInternalServerError {
		return errors.Transient(message, nil)
	}

	switch code {
	case errors.CodeValidation:
		return errors.Validation(message, nil)
	case errors.CodeNotFound:
		return errors.New(errors.CodeNotFound, message, http.StatusNotFound, nil)
	case errors.CodeInvalidTransition:
		return errors.InvalidTransition(message)
	case errors.CodeForbidden:
		return errors.Forbidden(message, nil)
	case errors.CodeUnauthorized:
		return errors.Unauthorized(message, nil)
	case errors.CodeConflict:
		return errors.Conflict(message)
	case errors.CodeTooManyRequests:
		return errors.TooManyRequests(message)
	case errors.CodeTransient:
		return errors.Transient(message, nil)
	}

	switch status {
	case http.StatusUnauthorized:
		return errors.Unauthorized(message, nil)
	case http.StatusForbidden:
		return errors.Forbidden(message, nil)
	case http.StatusNotFound:
		return errors.New(errors.CodeNotFound, message, http.StatusNotFound, nil)
	case http.StatusTooManyRequests:
		return errors.TooManyRequests(message)
	}
	return errors.Validation(message, nil)
}

// IssueDevToken registers a participant on a development server and returns its token.
func (c *Client) IssueDevToken(ctx context.Context, input usecase.RegisterInput) (*usecase.TokenResponse, error) {
	var out usecase.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/v1/dev/token", nil, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*entity.Participant, error) {
	var out entity.Participant
	if err := c.do(ctx, http.MethodGet, "/v1/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Search(ctx context.Context, crop, region string) ([]entity.Counterpart, error) {
	out := []entity.Counterpart{}
	err := c.do(ctx, http.MethodPost, "/v1/match/search", nil, usecase.SearchInput{Crop: crop, Region: region}, &out)
	return out, err
}

func (c *Client) CreateRequest(ctx context.Context, input usecase.CreateRequestInput) (*entity.MatchRequest, error) {
	var out entity.MatchRequest
	if err := c.do(ctx, http.MethodPost, "/v1/requests", nil, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRequests returns the caller's requests, newest first. Empty role or status match anything.
func (c *Client) ListRequests(ctx context.Context, role, status string) ([]*entity.MatchRequest, error) {
	query := url.Values{}
	if role != "" {
		query.Set("role", role)
	}
	if status != "" {
		query.Set("status", status)
	}
	out := []*entity.MatchRequest{}
	err := c.do(ctx, http.MethodGet, "/v1/requests", query, nil, &out)
	return out, err
}

func (c *Client) ActiveChats(ctx context.Context) ([]entity.ActiveChat, error) {
	out := []entity.ActiveChat{}
	err := c.do(ctx, http.MethodGet, "/v1/requests/active", nil, nil, &out)
	return out, err
}

func (c *Client) Accept(ctx context.Context, id int64) (*entity.MatchRequest, error) {
	return c.transition(ctx, id, "accept")
}

func (c *Client) Reject(ctx context.Context, id int64) (*entity.MatchRequest, error) {
	return c.transition(ctx, id, "reject")
}

func (c *Client) transition(ctx context.Context, id int64, action string) (*entity.MatchRequest, error) {
	var out entity.MatchRequest
	path := "/v1/requests/" + strconv.FormatInt(id, 10) + "/" + action
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteRequest(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/v1/requests/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// Channel asks the server for the room shared with peer.
func (c *Client) Channel(ctx context.Context, peer string) (string, error) {
	var out struct {
		Room string `json:"room"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/channels", url.Values{"peer": {peer}}, nil, &out); err != nil {
		return "", err
	}
	return out.Room, nil
}

func (c *Client) SendMessage(ctx context.Context, input usecase.AppendMessageInput) (*entity.ChatMessage, error) {
	var out entity.ChatMessage
	if err := c.do(ctx, http.MethodPost, "/v1/chat/messages", nil, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns room messages with id greater than afterID, oldest first.
func (c *Client) History(ctx context.Context, room string, afterID int64) ([]*entity.ChatMessage, error) {
	query := url.Values{"room": {room}}
	if afterID > 0 {
		query.Set("after", strconv.FormatInt(afterID, 10))
	}
	out := []*entity.ChatMessage{}
	err := c.do(ctx, http.MethodGet, "/v1/chat/messages", query, nil, &out)
	return out, err
}

// HintsURL is the websocket endpoint carrying refresh hints for the current token.
func (c *Client) HintsURL() string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws?" + url.Values{"token": {c.Token()}}.Encode()
}
