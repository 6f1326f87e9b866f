package matching

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agriconnect/internal/domain/entity"
	"agriconnect/pkg/errors"
	"agriconnect/pkg/logger"
)

// Client queries an external scoring service for sellers matching a crop and region.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	Crop   string `json:"crop"`
	Region string `json:"region"`
}

// searchResult accepts both the legacy recommend payload and the scored one.
type searchResult struct {
	SellerID        string      `json:"fpc_id"`
	SellerName      string      `json:"fpc_name"`
	LegacyName      string      `json:"FPC_Name"`
	District        string      `json:"district"`
	LegacyDistrict  string      `json:"District"`
	Commodities     commodities `json:"commodities"`
	LegacyCommodity commodities `json:"Commodities"`
	Rating          *float64    `json:"rating"`
	ExperienceYears *float64    `json:"experience"`
	Score           float64     `json:"score"`
}

// commodities decodes either a JSON list or a comma separated string.
type commodities []string

func (c *commodities) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*c = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	for _, part := range strings.Split(joined, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*c = append(*c, part)
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (c *Client) Search(ctx context.Context, crop, region string) ([]entity.Counterpart, error) {
	payload, err := json.Marshal(searchRequest{Crop: crop, Region: region})
	if err != nil {
		return nil, errors.Internal("failed to encode search request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Internal("failed to create search request", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Transient("matching service unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Transient("failed to read matching response", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return []entity.Counterpart{}, nil
	case resp.StatusCode >= 500:
		return nil, errors.Transient(fmt.Sprintf("matching service returned %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		logger.Warn("matching service rejected search crop=%q region=%q: %s", crop, region, string(body))
		return nil, errors.Validation(fmt.Sprintf("matching service returned %d", resp.StatusCode), nil)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return []entity.Counterpart{}, nil
	}

	var raw []searchResult
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Transient("malformed matching response", err)
	}

	results := make([]entity.Counterpart, 0, len(raw))
	for _, r := range raw {
		id := entity.NormalizeParticipantID(r.SellerID)
		if id == "" {
			continue
		}
		comms := r.Commodities
		if len(comms) == 0 {
			comms = r.LegacyCommodity
		}
		results = append(results, entity.Counterpart{
			SellerID:        id,
			DisplayName:     firstNonEmpty(r.SellerName, r.LegacyName, id),
			District:        firstNonEmpty(r.District, r.LegacyDistrict),
			Commodities:     []string(comms),
			Rating:          r.Rating,
			ExperienceYears: r.ExperienceYears,
			Score:           r.Score,
		})
	}
	return results, nil
}
