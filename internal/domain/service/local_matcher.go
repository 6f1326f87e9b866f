package service

import (
	"context"
	"sort"
	"strings"

	"agriconnect/internal/domain/entity"
	"agriconnect/internal/domain/repository"
)

const (
	districtWeight   = 0.4
	commodityWeight  = 0.4
	ratingWeight     = 0.1
	experienceWeight = 0.1

	defaultRating     = 5.0
	defaultExperience = 5.0
)

// LocalMatcher ranks sellers from the participant directory. It is the fallback when no
// external scoring service is configured.
type LocalMatcher struct {
	participants repository.ParticipantRepository
}

func NewLocalMatcher(participants repository.ParticipantRepository) *LocalMatcher {
	return &LocalMatcher{participants: participants}
}

func (m *LocalMatcher) Search(ctx context.Context, crop, region string) ([]entity.Counterpart, error) {
	sellers, err := m.participants.ListByRole(ctx, entity.RoleSeller)
	if err != nil {
		return nil, err
	}

	crop = strings.TrimSpace(crop)
	region = strings.TrimSpace(region)

	candidates := make([]*entity.Participant, 0, len(sellers))
	for _, s := range sellers {
		if crop != "" && !containsFold(strings.Join(s.Commodities, ", "), crop) {
			continue
		}
		if region != "" && !containsFold(s.District, region) {
			continue
		}
		candidates = append(candidates, s)
	}

	minRating, maxRating := bounds(candidates, func(p *entity.Participant) float64 { return valueOr(p.Rating, defaultRating) })
	minExp, maxExp := bounds(candidates, func(p *entity.Participant) float64 { return valueOr(p.ExperienceYears, defaultExperience) })

	results := make([]entity.Counterpart, 0, len(candidates))
	for _, s := range candidates {
		score := districtWeight*DistrictSimilarity(region, s.District) +
			commodityWeight*CommodityMatch(crop, s.Commodities) +
			ratingWeight*normalize(valueOr(s.Rating, defaultRating), minRating, maxRating) +
			experienceWeight*normalize(valueOr(s.ExperienceYears, defaultExperience), minExp, maxExp)

		name := s.DisplayName
		if name == "" {
			name = s.ID
		}
		results = append(results, entity.Counterpart{
			SellerID:        s.ID,
			DisplayName:     name,
			District:        s.District,
			Commodities:     append([]string(nil), s.Commodities...),
			Rating:          s.Rating,
			ExperienceYears: s.ExperienceYears,
			Score:           score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].SellerID < results[j].SellerID
	})
	return results, nil
}

// DistrictSimilarity is 1 for the same district, 0.7 when one contains the other and 0.3 otherwise.
func DistrictSimilarity(wanted, district string) float64 {
	wanted = strings.ToLower(strings.TrimSpace(wanted))
	district = strings.ToLower(strings.TrimSpace(district))
	if wanted == "" || district == "" {
		return 0.3
	}
	if wanted == district {
		return 1.0
	}
	if strings.Contains(wanted, district) || strings.Contains(district, wanted) {
		return 0.7
	}
	return 0.3
}

// CommodityMatch is the share of comma-separated crops found among the seller's commodities.
func CommodityMatch(crops string, commodities []string) float64 {
	var wanted []string
	for _, c := range strings.Split(crops, ",") {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			wanted = append(wanted, c)
		}
	}
	if len(wanted) == 0 {
		return 0.5
	}
	haystack := strings.ToLower(strings.Join(commodities, ", "))
	matches := 0
	for _, c := range wanted {
		if strings.Contains(haystack, c) {
			matches++
		}
	}
	return float64(matches) / float64(len(wanted))
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func bounds(ps []*entity.Participant, value func(*entity.Participant) float64) (float64, float64) {
	if len(ps) == 0 {
		return 0, 0
	}
	lo, hi := value(ps[0]), value(ps[0])
	for _, p := range ps[1:] {
		v := value(p)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func normalize(v, lo, hi float64) float64 {
	if hi == lo {
		return 0.5
	}
	return (v - lo) / (hi - lo)
}
