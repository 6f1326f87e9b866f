package repository

import (
	"context"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"agriconnect/internal/domain/entity"
	"agriconnect/internal/domain/repository"
	"agriconnect/pkg/errors"
	"agriconnect/pkg/logger"
)

const requestsCollection = "match_requests"

type firestoreRequestRepository struct {
	client *firestore.Client
}

func NewFirestoreRequestRepository(client *firestore.Client) repository.RequestRepository {
	return &firestoreRequestRepository{
		client: client,
	}
}

func (r *firestoreRequestRepository) doc(id int64) *firestore.DocumentRef {
	return r.client.Collection(requestsCollection).Doc(strconv.FormatInt(id, 10))
}

func (r *firestoreRequestRepository) Create(ctx context.Context, request *entity.MatchRequest) error {
	counter := r.client.Collection(countersCollection).Doc(requestsCollection)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		id, err := nextSequence(tx, counter)
		if err != nil {
			return err
		}

		now := time.Now()
		request.ID = id
		request.CreatedAt = now
		request.UpdatedAt = now
		return tx.Create(r.doc(id), request)
	})
	if err != nil {
		return errors.Internal("Failed to create request", err)
	}
	return nil
}

func (r *firestoreRequestRepository) GetByID(ctx context.Context, id int64) (*entity.MatchRequest, error) {
	doc, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Request", err)
		}
		return nil, errors.Internal("Failed to get request", err)
	}

	var request entity.MatchRequest
	if err := doc.DataTo(&request); err != nil {
		return nil, errors.Internal("Failed to parse request data", err)
	}
	return &request, nil
}

func (r *firestoreRequestRepository) Update(ctx context.Context, id int64, mutate func(*entity.MatchRequest) error) (*entity.MatchRequest, error) {
	var updated entity.MatchRequest
	var mutateErr error

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := r.doc(id)
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				mutateErr = errors.NotFound("Request", err)
				return mutateErr
			}
			return err
		}

		var request entity.MatchRequest
		if err := doc.DataTo(&request); err != nil {
			return err
		}

		// The closure may run again on contention, so the guard sees the latest stored state.
		if err := mutate(&request); err != nil {
			mutateErr = err
			return err
		}
		request.ID = id
		request.UpdatedAt = time.Now()
		updated = request
		return tx.Set(ref, &request)
	})
	if err != nil {
		if mutateErr != nil {
			return nil, mutateErr
		}
		return nil, errors.Internal("Failed to update request", err)
	}
	return &updated, nil
}

func (r *firestoreRequestRepository) Delete(ctx context.Context, id int64) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := r.doc(id)
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Delete(ref)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Request", err)
		}
		return errors.Internal("Failed to delete request", err)
	}
	return nil
}

func (r *firestoreRequestRepository) List(ctx context.Context, filter entity.RequestFilter) ([]*entity.MatchRequest, error) {
	var queries []firestore.Query
	requests := r.client.Collection(requestsCollection)
	switch filter.Role {
	case entity.RoleFarmer:
		queries = append(queries, requests.Where("farmerId", "==", filter.ParticipantID))
	case entity.RoleSeller:
		queries = append(queries, requests.Where("sellerId", "==", filter.ParticipantID))
	default:
		queries = append(queries,
			requests.Where("farmerId", "==", filter.ParticipantID),
			requests.Where("sellerId", "==", filter.ParticipantID),
		)
	}

	seen := make(map[int64]struct{})
	result := make([]*entity.MatchRequest, 0)
	for _, query := range queries {
		iter := query.Documents(ctx)
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				logger.Error("firestore error while listing requests for %s: %v", filter.ParticipantID, err)
				return nil, errors.Internal("Failed to list requests", err)
			}

			request, ok := decodeRequest(doc.Ref.ID, doc.DataTo)
			if !ok {
				continue
			}
			if _, dup := seen[request.ID]; dup || !filter.Matches(request) {
				continue
			}
			seen[request.ID] = struct{}{}
			result = append(result, request)
		}
		iter.Stop()
	}

	sortRequestsNewestFirst(result)
	return result, nil
}

func (r *firestoreRequestRepository) ExistsPending(ctx context.Context, farmerID, sellerID string) (bool, error) {
	iter := r.client.Collection(requestsCollection).
		Where("farmerId", "==", farmerID).
		Where("sellerId", "==", sellerID).
		Where("status", "==", string(entity.StatusPending)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, errors.Internal("Failed to query pending requests", err)
	}
	return true, nil
}

// decodeRequest reads one stored request. Unreadable documents are logged and skipped so one bad
// record does not hide the rest of the list.
func decodeRequest(docID string, dataTo func(interface{}) error) (*entity.MatchRequest, bool) {
	var request entity.MatchRequest
	if err := dataTo(&request); err != nil {
		logger.Warn("skipping unreadable request document %s: %v", docID, err)
		return nil, false
	}
	return &request, true
}
