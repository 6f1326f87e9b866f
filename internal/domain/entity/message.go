package entity

import "time"

// ChatMessage is an entry of a room's append-only log.
type ChatMessage struct {
	ID        int64     `json:"id" firestore:"id"`
	Room      string    `json:"room" firestore:"room"`
	Sender    string    `json:"sender" firestore:"sender"`
	Receiver  string    `json:"receiver" firestore:"receiver"`
	Text      string    `json:"text" firestore:"text"`
	CreatedAt time.Time `json:"timestamp" firestore:"createdAt"`
}

func (m *ChatMessage) Clone() *ChatMessage {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}
