package usecase

import (
	"context"
	"strings"

	"agriconnect/internal/domain/entity"
	"agriconnect/pkg/errors"
	"agriconnect/pkg/logger"
)

// MatchUseCase answers counterpart searches from the primary query, falling back to a local
// ranking when the primary is unavailable.
type MatchUseCase struct {
	primary  MatchingQuery
	fallback MatchingQuery
	backend  string
	recorder Recorder
}

// NewMatchUseCase builds the search use case. fallback may be nil.
func NewMatchUseCase(primary MatchingQuery, backend string, fallback MatchingQuery, recorder Recorder) *MatchUseCase {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &MatchUseCase{
		primary:  primary,
		fallback: fallback,
		backend:  backend,
		recorder: recorder,
	}
}

type SearchInput struct {
	Crop   string `json:"crop"`
	Region string `json:"region"`
}

func (uc *MatchUseCase) Search(ctx context.Context, input SearchInput) ([]entity.Counterpart, error) {
	crop := strings.TrimSpace(input.Crop)
	region := strings.TrimSpace(input.Region)

	results, err := uc.primary.Search(ctx, crop, region)
	uc.recorder.SearchCompleted(uc.backend, err)
	if err != nil {
		if uc.fallback == nil || !errors.IsRetryable(err) {
			return nil, err
		}
		logger.Warn("matching backend %s unavailable, using local ranking: %v", uc.backend, err)
		results, err = uc.fallback.Search(ctx, crop, region)
		uc.recorder.SearchCompleted("local", err)
		if err != nil {
			return nil, err
		}
	}

	if results == nil {
		results = []entity.Counterpart{}
	}
	return results, nil
}
