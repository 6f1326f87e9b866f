package websocket

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"agriconnect/internal/domain/entity"
	"agriconnect/pkg/logger"
)

// Hint types pushed to participants. Hints only say "refetch"; clients always reload state over HTTP.
const (
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
	MessageTypeError           = "error"
	MessageTypeRequestUpdated  = "request_updated"
	MessageTypeMessageAppended = "message_appended"
)

type WSMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Room      string `json:"room,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HandleClientMessage answers client frames. Only ping is understood.
func (m *Manager) HandleClientMessage(client *Client, messageBytes []byte) {
	var msg WSMessage
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		m.sendToClient(client, WSMessage{Type: MessageTypeError, Error: "invalid message format"})
		return
	}

	switch msg.Type {
	case MessageTypePing:
		m.sendToClient(client, WSMessage{Type: MessageTypePong})
	default:
		m.sendToClient(client, WSMessage{Type: MessageTypeError, Error: "unknown message type"})
	}
}

func (m *Manager) sendToClient(client *Client, msg WSMessage) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("websocket: failed to marshal %s: %v", msg.Type, err)
		return
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if _, live := m.clients[client.UserID][client]; !live {
		return
	}
	select {
	case client.Send <- data:
	default:
	}
}

func (m *Manager) broadcastTo(msg WSMessage, userIDs ...string) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("websocket: failed to marshal %s: %v", msg.Type, err)
		return
	}
	for _, id := range userIDs {
		m.SendToUser(id, data)
	}
}

// RequestChanged tells both parties of a request to refetch their request lists.
func (m *Manager) RequestChanged(_ context.Context, req *entity.MatchRequest) {
	m.broadcastTo(WSMessage{
		Type:      MessageTypeRequestUpdated,
		RequestID: strconv.FormatInt(req.ID, 10),
		Status:    string(req.Status),
	}, req.FarmerID, req.SellerID)
}

// MessageAppended tells both room members to refetch the room history.
func (m *Manager) MessageAppended(_ context.Context, msg *entity.ChatMessage) {
	m.broadcastTo(WSMessage{
		Type:      MessageTypeMessageAppended,
		Room:      msg.Room,
		MessageID: strconv.FormatInt(msg.ID, 10),
	}, msg.Sender, msg.Receiver)
}
