package repository

import (
	"context"
	"sync"
	"time"

	"agriconnect/internal/domain/entity"
	"agriconnect/internal/domain/repository"
)

type memoryMessageRepository struct {
	mu     sync.RWMutex
	rooms  map[string][]*entity.ChatMessage
	nextID int64
	nowFn  func() time.Time
}

func NewMemoryMessageRepository() repository.MessageRepository {
	return &memoryMessageRepository{
		rooms: make(map[string][]*entity.ChatMessage),
		nowFn: time.Now,
	}
}

func (r *memoryMessageRepository) Append(ctx context.Context, message *entity.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	message.ID = r.nextID
	message.CreatedAt = r.nowFn()
	r.rooms[message.Room] = append(r.rooms[message.Room], message.Clone())
	return nil
}

func (r *memoryMessageRepository) History(ctx context.Context, room string, afterID int64) ([]*entity.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// IDs are assigned under the lock, so each room's slice is already in ascending order.
	result := make([]*entity.ChatMessage, 0)
	for _, m := range r.rooms[room] {
		if m.ID > afterID {
			result = append(result, m.Clone())
		}
	}
	return result, nil
}

func (r *memoryMessageRepository) DeleteRoom(ctx context.Context, room string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.rooms[room])
	delete(r.rooms, room)
	return n, nil
}
