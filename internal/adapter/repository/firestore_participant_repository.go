package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"agriconnect/internal/domain/entity"
	"agriconnect/internal/domain/repository"
	"agriconnect/pkg/errors"
)

const participantsCollection = "participants"

type firestoreParticipantRepository struct {
	client *firestore.Client
}

func NewFirestoreParticipantRepository(client *firestore.Client) repository.ParticipantRepository {
	return &firestoreParticipantRepository{
		client: client,
	}
}

func (r *firestoreParticipantRepository) Upsert(ctx context.Context, participant *entity.Participant) error {
	ref := r.client.Collection(participantsCollection).Doc(participant.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err == nil && doc.Exists() {
			var existing entity.Participant
			if err := doc.DataTo(&existing); err == nil {
				participant.CreatedAt = existing.CreatedAt
			}
		} else if participant.CreatedAt.IsZero() {
			participant.CreatedAt = time.Now()
		}
		return tx.Set(ref, participant)
	})
	if err != nil {
		return errors.Internal("Failed to save participant", err)
	}
	return nil
}

func (r *firestoreParticipantRepository) GetByID(ctx context.Context, id string) (*entity.Participant, error) {
	doc, err := r.client.Collection(participantsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Participant", err)
		}
		return nil, errors.Internal("Failed to get participant", err)
	}

	var participant entity.Participant
	if err := doc.DataTo(&participant); err != nil {
		return nil, errors.Internal("Failed to parse participant data", err)
	}
	return &participant, nil
}

func (r *firestoreParticipantRepository) ListByRole(ctx context.Context, role entity.Role) ([]*entity.Participant, error) {
	docs, err := r.client.Collection(participantsCollection).Where("role", "==", string(role)).Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to query participants", err)
	}

	participants := make([]*entity.Participant, 0, len(docs))
	for _, doc := range docs {
		var participant entity.Participant
		if err := doc.DataTo(&participant); err != nil {
			continue // Skip malformed documents
		}
		participants = append(participants, &participant)
	}
	return participants, nil
}
