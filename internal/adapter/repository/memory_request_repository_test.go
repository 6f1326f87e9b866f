package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agriconnect/internal/domain/entity"
	"agriconnect/pkg/errors"
)

func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newRequest(farmer, seller string) *entity.MatchRequest {
	return &entity.MatchRequest{
		FarmerID: farmer, FarmerName: farmer,
		SellerID: seller, SellerName: seller,
		Crop: "Wheat", Region: "Alipurduar", Price: 2000,
		Status: entity.StatusPending,
	}
}

func TestMemoryRequestRepositoryAssignsMonotonicIDs(t *testing.T) {
	repo := newMemoryRequestRepository(steppingClock())
	ctx := context.Background()

	first := newRequest("f1", "s1")
	second := newRequest("f1", "s2")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.True(t, second.CreatedAt.After(first.CreatedAt))
}

func TestMemoryRequestRepositoryListOrderAndFilter(t *testing.T) {
	repo := newMemoryRequestRepository(steppingClock())
	ctx := context.Background()

	for _, seller := range []string{"s1", "s2", "s3"} {
		require.NoError(t, repo.Create(ctx, newRequest("f1", seller)))
	}
	require.NoError(t, repo.Create(ctx, newRequest("f2", "s1")))

	_, err := repo.Update(ctx, 2, func(r *entity.MatchRequest) error { return r.TransitionTo(entity.StatusAccepted) })
	require.NoError(t, err)

	all, err := repo.List(ctx, entity.RequestFilter{ParticipantID: "f1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{all[0].ID, all[1].ID, all[2].ID})

	accepted, err := repo.List(ctx, entity.RequestFilter{ParticipantID: "f1", Status: entity.StatusAccepted})
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, "s2", accepted[0].SellerID)

	asSeller, err := repo.List(ctx, entity.RequestFilter{ParticipantID: "s1", Role: entity.RoleSeller})
	require.NoError(t, err)
	assert.Len(t, asSeller, 2)

	asFarmer, err := repo.List(ctx, entity.RequestFilter{ParticipantID: "s1", Role: entity.RoleFarmer})
	require.NoError(t, err)
	assert.Empty(t, asFarmer)
}

func TestMemoryRequestRepositoryUpdateLeavesStateOnError(t *testing.T) {
	repo := newMemoryRequestRepository(steppingClock())
	ctx := context.Background()
	req := newRequest("f1", "s1")
	require.NoError(t, repo.Create(ctx, req))

	_, err := repo.Update(ctx, req.ID, func(r *entity.MatchRequest) error {
		r.Crop = "Rice"
		return errors.Forbidden("nope", nil)
	})
	require.Error(t, err)

	stored, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wheat", stored.Crop)

	_, err = repo.Update(ctx, 99, func(*entity.MatchRequest) error { return nil })
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestMemoryRequestRepositoryReturnsCopies(t *testing.T) {
	repo := newMemoryRequestRepository(steppingClock())
	ctx := context.Background()
	req := newRequest("f1", "s1")
	require.NoError(t, repo.Create(ctx, req))

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	got.Status = entity.StatusAccepted

	again, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, again.Status)
}

func TestMemoryRequestRepositoryDeleteAndExistsPending(t *testing.T) {
	repo := newMemoryRequestRepository(steppingClock())
	ctx := context.Background()
	req := newRequest("f1", "s1")
	require.NoError(t, repo.Create(ctx, req))

	exists, err := repo.ExistsPending(ctx, "f1", "s1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(ctx, req.ID))
	assert.True(t, errors.Is(repo.Delete(ctx, req.ID), errors.CodeNotFound))

	exists, err = repo.ExistsPending(ctx, "f1", "s1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryMessageRepositoryHistory(t *testing.T) {
	repo := NewMemoryMessageRepository()
	ctx := context.Background()

	empty, err := repo.History(ctx, "f1_s1", 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, repo.Append(ctx, &entity.ChatMessage{Room: "f1_s1", Sender: "f1", Receiver: "s1", Text: text}))
	}
	require.NoError(t, repo.Append(ctx, &entity.ChatMessage{Room: "f2_s1", Sender: "f2", Receiver: "s1", Text: "other"}))

	history, err := repo.History(ctx, "f1_s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "one", history[0].Text)
	assert.Equal(t, "three", history[2].Text)

	tail, err := repo.History(ctx, "f1_s1", history[0].ID)
	require.NoError(t, err)
	assert.Len(t, tail, 2)

	n, err := repo.DeleteRoom(ctx, "f1_s1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
