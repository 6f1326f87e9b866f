package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"agriconnect/internal/domain/entity"
	"agriconnect/internal/domain/repository"
	"agriconnect/internal/domain/service"
	"agriconnect/internal/infrastructure/ratelimit"
	"agriconnect/pkg/errors"
	"agriconnect/pkg/logger"
)

const maxMessageLength = 2000

type ChatUseCase struct {
	messageRepo repository.MessageRepository
	requestRepo repository.RequestRepository
	collab      Collaborators
}

func NewChatUseCase(
	messageRepo repository.MessageRepository,
	requestRepo repository.RequestRepository,
	collab Collaborators,
) *ChatUseCase {
	return &ChatUseCase{
		messageRepo: messageRepo,
		requestRepo: requestRepo,
		collab:      collab.withDefaults(),
	}
}

type AppendMessageInput struct {
	Room     string `json:"room" validate:"required"`
	Sender   string `json:"sender" validate:"required"`
	Receiver string `json:"receiver" validate:"required"`
	Text     string `json:"text"`
}

// Append stores a message in a room. The room must be the one the sender and receiver derive,
// and an accepted request must link them.
func (uc *ChatUseCase) Append(ctx context.Context, actorID string, input AppendMessageInput) (*entity.ChatMessage, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, errors.Validation("message text is required", nil)
	}
	if utf8.RuneCountInString(text) > maxMessageLength {
		return nil, errors.Validation(fmt.Sprintf("message text exceeds %d characters", maxMessageLength), nil)
	}

	if err := service.ValidateChannelID(input.Room); err != nil {
		return nil, err
	}
	expected, err := service.DeriveChannelID(input.Sender, input.Receiver)
	if err != nil {
		return nil, err
	}
	if expected != input.Room {
		return nil, errors.Validation(fmt.Sprintf("room %q does not belong to %s and %s", input.Room, input.Sender, input.Receiver), nil)
	}

	sender := strings.ToLower(strings.TrimSpace(input.Sender))
	receiver := strings.ToLower(strings.TrimSpace(input.Receiver))
	if !strings.EqualFold(sender, actorID) {
		return nil, errors.Forbidden("you can only send messages as yourself", nil)
	}

	if allowed, wait := uc.collab.Limiter.Allow(sender, ratelimit.ActionSendMessage); !allowed {
		logger.Warn("append rate limited: %s must wait %v", sender, wait)
		return nil, errors.TooManyRequests(fmt.Sprintf("too many messages, retry in %s", wait.Round(time.Second)))
	}

	linked, err := uc.linked(ctx, sender, receiver)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, errors.Forbidden("no accepted request links these participants", nil)
	}

	message := &entity.ChatMessage{
		Room:     input.Room,
		Sender:   sender,
		Receiver: receiver,
		Text:     text,
	}
	if err := uc.messageRepo.Append(ctx, message); err != nil {
		return nil, err
	}

	uc.collab.Recorder.MessageAppended()
	uc.collab.Notifier.MessageAppended(ctx, message)
	return message, nil
}

func (uc *ChatUseCase) linked(ctx context.Context, a, b string) (bool, error) {
	accepted, err := uc.requestRepo.List(ctx, entity.RequestFilter{ParticipantID: a, Status: entity.StatusAccepted})
	if err != nil {
		return false, err
	}
	for _, r := range accepted {
		if strings.EqualFold(r.Counterpart(a), b) {
			return true, nil
		}
	}
	return false, nil
}

// History returns the room's messages with id > afterID in ascending order. A room without
// messages yields an empty, non-nil slice.
func (uc *ChatUseCase) History(ctx context.Context, actorID, room string, afterID int64) ([]*entity.ChatMessage, error) {
	if err := service.ValidateChannelID(room); err != nil {
		return nil, err
	}
	if afterID < 0 {
		return nil, errors.Validation("after must not be negative", nil)
	}
	if !service.IsChannelMember(room, actorID) {
		return nil, errors.Forbidden("you are not a member of this room", nil)
	}

	messages, err := uc.messageRepo.History(ctx, room, afterID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*entity.ChatMessage{}
	}
	return messages, nil
}
