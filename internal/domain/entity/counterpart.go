package entity

// Counterpart is one ranked seller returned by a matching query.
type Counterpart struct {
	SellerID        string   `json:"seller_id"`
	DisplayName     string   `json:"display_name"`
	District        string   `json:"district"`
	Commodities     []string `json:"commodities"`
	Rating          *float64 `json:"rating,omitempty"`
	ExperienceYears *float64 `json:"experience_years,omitempty"`
	Score           float64  `json:"score"`
}
