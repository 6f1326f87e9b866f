package repository

import (
	"context"
	"database/sql"
	"time"

	"agriconnect/internal/domain/entity"
	"agriconnect/internal/domain/repository"
	apperrors "agriconnect/pkg/errors"
)

type mysqlMessageRepository struct {
	db *sql.DB
}

func NewMySQLMessageRepository(db *sql.DB) repository.MessageRepository {
	return &mysqlMessageRepository{db: db}
}

func (r *mysqlMessageRepository) Append(ctx context.Context, message *entity.ChatMessage) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_messages (room, sender, receiver, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		message.Room, message.Sender, message.Receiver, message.Text, now)
	if err != nil {
		return apperrors.Internal("Failed to create message", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperrors.Internal("Failed to read message id", err)
	}
	message.ID = id
	message.CreatedAt = now
	return nil
}

func (r *mysqlMessageRepository) History(ctx context.Context, room string, afterID int64) ([]*entity.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, room, sender, receiver, text, created_at FROM chat_messages WHERE room = ? AND id > ? ORDER BY id ASC`,
		room, afterID)
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch messages", err)
	}
	defer rows.Close()

	messages := make([]*entity.ChatMessage, 0)
	for rows.Next() {
		var m entity.ChatMessage
		if err := rows.Scan(&m.ID, &m.Room, &m.Sender, &m.Receiver, &m.Text, &m.CreatedAt); err != nil {
			return nil, apperrors.Internal("Failed to parse message row", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("Failed to fetch messages", err)
	}
	return messages, nil
}

func (r *mysqlMessageRepository) DeleteRoom(ctx context.Context, room string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE room = ?`, room)
	if err != nil {
		return 0, apperrors.Internal("Failed to delete room messages", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Internal("Failed to delete room messages", err)
	}
	return int(n), nil
}
