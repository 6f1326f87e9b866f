package entity

import (
	"fmt"
	"strings"
	"time"

	"agriconnect/pkg/errors"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further status change is allowed.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

type MatchRequest struct {
	ID         int64         `json:"id" firestore:"id"`
	FarmerID   string        `json:"farmer_id" firestore:"farmerId"`
	FarmerName string        `json:"farmer_name" firestore:"farmerName"`
	SellerID   string        `json:"seller_id" firestore:"sellerId"`
	SellerName string        `json:"seller_name" firestore:"sellerName"`
	Crop       string        `json:"crop" firestore:"crop"`
	Region     string        `json:"region" firestore:"region"`
	Price      float64       `json:"price" firestore:"price"`
	Status     RequestStatus `json:"status" firestore:"status"`
	CreatedAt  time.Time     `json:"created_at" firestore:"createdAt"`
	UpdatedAt  time.Time     `json:"updated_at" firestore:"updatedAt"`
}

// TransitionTo moves a pending request into a terminal status.
func (r *MatchRequest) TransitionTo(target RequestStatus) error {
	if !target.IsTerminal() {
		return errors.InvalidTransition(fmt.Sprintf("cannot move request to %q", target))
	}
	if r.Status != StatusPending {
		return errors.InvalidTransition(fmt.Sprintf("request %d is already %s", r.ID, r.Status))
	}
	r.Status = target
	return nil
}

func (r *MatchRequest) IsFarmer(participantID string) bool {
	return participantID != "" && strings.EqualFold(r.FarmerID, participantID)
}

func (r *MatchRequest) IsSeller(participantID string) bool {
	return participantID != "" && strings.EqualFold(r.SellerID, participantID)
}

func (r *MatchRequest) InvolvesParticipant(participantID string) bool {
	return r.IsFarmer(participantID) || r.IsSeller(participantID)
}

// Counterpart returns the other party's id, or "" if participantID is not on the request.
func (r *MatchRequest) Counterpart(participantID string) string {
	switch {
	case r.IsFarmer(participantID):
		return r.SellerID
	case r.IsSeller(participantID):
		return r.FarmerID
	}
	return ""
}

func (r *MatchRequest) Clone() *MatchRequest {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// RequestFilter selects requests for a participant. Empty Role matches either side,
// empty Status matches any status.
type RequestFilter struct {
	ParticipantID string
	Role          Role
	Status        RequestStatus
}

func (f RequestFilter) Matches(r *MatchRequest) bool {
	switch f.Role {
	case RoleFarmer:
		if !r.IsFarmer(f.ParticipantID) {
			return false
		}
	case RoleSeller:
		if !r.IsSeller(f.ParticipantID) {
			return false
		}
	default:
		if !r.InvolvesParticipant(f.ParticipantID) {
			return false
		}
	}
	return f.Status == "" || r.Status == f.Status
}
