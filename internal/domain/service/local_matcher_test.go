package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agriconnect/internal/domain/entity"
)

type stubDirectory struct {
	participants []*entity.Participant
}

func (s *stubDirectory) Upsert(context.Context, *entity.Participant) error { return nil }

func (s *stubDirectory) GetByID(context.Context, string) (*entity.Participant, error) { return nil, nil }

func (s *stubDirectory) ListByRole(_ context.Context, role entity.Role) ([]*entity.Participant, error) {
	var out []*entity.Participant
	for _, p := range s.participants {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out, nil
}

func ptr(v float64) *float64 { return &v }

func TestLocalMatcherRanksSellers(t *testing.T) {
	dir := &stubDirectory{participants: []*entity.Participant{
		{ID: "s1", Role: entity.RoleSeller, DisplayName: "Alipurduar FPC", District: "Alipurduar", Commodities: []string{"Wheat", "Rice"}, Rating: ptr(4.5)},
		{ID: "s2", Role: entity.RoleSeller, DisplayName: "North Alipurduar FPC", District: "North Alipurduar", Commodities: []string{"Wheat"}, Rating: ptr(3)},
		{ID: "s3", Role: entity.RoleSeller, DisplayName: "Jalpaiguri FPC", District: "Jalpaiguri", Commodities: []string{"Tea"}},
		{ID: "f1", Role: entity.RoleFarmer, DisplayName: "Farmer"},
	}}

	results, err := NewLocalMatcher(dir).Search(context.Background(), "wheat", "alipurduar")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "s1", results[0].SellerID)
	assert.Equal(t, "s2", results[1].SellerID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestLocalMatcherNoResultsIsEmpty(t *testing.T) {
	results, err := NewLocalMatcher(&stubDirectory{}).Search(context.Background(), "saffron", "nowhere")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestScoringHelpers(t *testing.T) {
	assert.Equal(t, 1.0, DistrictSimilarity("Alipurduar", "alipurduar"))
	assert.Equal(t, 0.7, DistrictSimilarity("Alipurduar", "North Alipurduar"))
	assert.Equal(t, 0.3, DistrictSimilarity("Alipurduar", "Malda"))
	assert.Equal(t, 0.3, DistrictSimilarity("", "Malda"))

	assert.Equal(t, 0.5, CommodityMatch("", []string{"Wheat"}))
	assert.Equal(t, 1.0, CommodityMatch("wheat", []string{"Wheat", "Rice"}))
	assert.Equal(t, 0.5, CommodityMatch("wheat, jute", []string{"Wheat", "Rice"}))
}
