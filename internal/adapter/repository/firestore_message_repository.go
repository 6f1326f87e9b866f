package repository

import (
	"context"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"agriconnect/internal/domain/entity"
	"agriconnect/internal/domain/repository"
	"agriconnect/pkg/errors"
	"agriconnect/pkg/logger"
)

const (
	roomsCollection    = "rooms"
	messagesCollection = "messages"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) messages(room string) *firestore.CollectionRef {
	return r.client.Collection(roomsCollection).Doc(room).Collection(messagesCollection)
}

func (r *firestoreMessageRepository) Append(ctx context.Context, message *entity.ChatMessage) error {
	counter := r.client.Collection(countersCollection).Doc("chat_messages")

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		id, err := nextSequence(tx, counter)
		if err != nil {
			return err
		}
		message.ID = id
		message.CreatedAt = time.Now()
		return tx.Create(r.messages(message.Room).Doc(strconv.FormatInt(id, 10)), message)
	})
	if err != nil {
		return errors.Internal("Failed to create message", err)
	}
	return nil
}

func (r *firestoreMessageRepository) History(ctx context.Context, room string, afterID int64) ([]*entity.ChatMessage, error) {
	query := r.messages(room).Where("id", ">", afterID).OrderBy("id", firestore.Asc)

	iter := query.Documents(ctx)
	defer iter.Stop()

	messages := make([]*entity.ChatMessage, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("firestore error while iterating messages for room %s: %v", room, err)
			return nil, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.ChatMessage
		if err := doc.DataTo(&message); err != nil {
			logger.Error("cannot parse message %s in room %s: %v", doc.Ref.ID, room, err)
			return nil, errors.Internal("Failed to parse message data", err)
		}
		messages = append(messages, &message)
	}
	return messages, nil
}

func (r *firestoreMessageRepository) DeleteRoom(ctx context.Context, room string) (int, error) {
	refs, err := r.messages(room).DocumentRefs(ctx).GetAll()
	if err != nil {
		return 0, errors.Internal("Failed to list room messages", err)
	}
	if len(refs) == 0 {
		return 0, nil
	}

	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(refs))
	for _, ref := range refs {
		job, err := bw.Delete(ref)
		if err != nil {
			bw.End()
			return 0, errors.Internal("Failed to queue message delete", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	deleted := 0
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			logger.Warn("failed to delete message in room %s: %v", room, err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
