package entity

import (
	"strings"
	"time"
	"unicode"
)

type Role string

const (
	RoleFarmer Role = "farmer"
	RoleSeller Role = "seller"
)

func (r Role) Valid() bool {
	return r == RoleFarmer || r == RoleSeller
}

// ParseRole accepts the role case-insensitively; "fpc" is an alias for seller.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "farmer", "buyer":
		return RoleFarmer, true
	case "seller", "fpc":
		return RoleSeller, true
	}
	return "", false
}

type Participant struct {
	ID              string    `json:"id" firestore:"id"`
	Role            Role      `json:"role" firestore:"role"`
	DisplayName     string    `json:"display_name" firestore:"displayName"`
	District        string    `json:"district,omitempty" firestore:"district,omitempty"`
	Commodities     []string  `json:"commodities,omitempty" firestore:"commodities,omitempty"`
	Rating          *float64  `json:"rating,omitempty" firestore:"rating,omitempty"`
	ExperienceYears *float64  `json:"experience_years,omitempty" firestore:"experienceYears,omitempty"`
	CreatedAt       time.Time `json:"created_at" firestore:"createdAt"`
}

// NormalizeParticipantID lower-cases the id and drops everything but letters and digits,
// so ids never contain the channel separator.
func NormalizeParticipantID(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
