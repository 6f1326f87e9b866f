package repository

import (
	"context"

	"agriconnect/internal/domain/entity"
)

type MessageRepository interface {
	// Append assigns a monotonic ID and CreatedAt.
	Append(ctx context.Context, message *entity.ChatMessage) error
	// History returns messages of room with ID > afterID in ascending order. Never nil.
	History(ctx context.Context, room string, afterID int64) ([]*entity.ChatMessage, error)
	DeleteRoom(ctx context.Context, room string) (int, error)
}
