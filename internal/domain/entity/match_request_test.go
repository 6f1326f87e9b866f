package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agriconnect/pkg/errors"
)

func TestTransitionFromPending(t *testing.T) {
	for _, target := range []RequestStatus{StatusAccepted, StatusRejected} {
		r := &MatchRequest{ID: 1, Status: StatusPending}
		require.NoError(t, r.TransitionTo(target))
		assert.Equal(t, target, r.Status)
	}
}

func TestTerminalStatusesAreFinal(t *testing.T) {
	for _, from := range []RequestStatus{StatusAccepted, StatusRejected} {
		for _, to := range []RequestStatus{StatusAccepted, StatusRejected, StatusPending} {
			r := &MatchRequest{ID: 1, Status: from}
			err := r.TransitionTo(to)
			assert.True(t, errors.Is(err, errors.CodeInvalidTransition), "%s -> %s", from, to)
			assert.Equal(t, from, r.Status)
		}
	}
}

func TestPendingCannotMoveToPending(t *testing.T) {
	r := &MatchRequest{ID: 1, Status: StatusPending}
	assert.True(t, errors.Is(r.TransitionTo(StatusPending), errors.CodeInvalidTransition))
}

func TestParties(t *testing.T) {
	r := &MatchRequest{FarmerID: "f1", SellerID: "s1"}

	assert.True(t, r.IsFarmer("F1"))
	assert.True(t, r.IsSeller("s1"))
	assert.False(t, r.IsSeller(""))
	assert.Equal(t, "s1", r.Counterpart("f1"))
	assert.Equal(t, "f1", r.Counterpart("s1"))
	assert.Equal(t, "", r.Counterpart("x9"))
}

func TestRequestFilter(t *testing.T) {
	r := &MatchRequest{FarmerID: "f1", SellerID: "s1", Status: StatusAccepted}

	assert.True(t, RequestFilter{ParticipantID: "f1"}.Matches(r))
	assert.True(t, RequestFilter{ParticipantID: "s1", Role: RoleSeller, Status: StatusAccepted}.Matches(r))
	assert.False(t, RequestFilter{ParticipantID: "f1", Role: RoleSeller}.Matches(r))
	assert.False(t, RequestFilter{ParticipantID: "f1", Status: StatusPending}.Matches(r))
	assert.False(t, RequestFilter{ParticipantID: "x9"}.Matches(r))
}

func TestNormalizeParticipantID(t *testing.T) {
	assert.Equal(t, "fpc42", NormalizeParticipantID(" FPC-42 "))
	assert.Equal(t, "", NormalizeParticipantID("__"))

	role, ok := ParseRole("FPC")
	assert.True(t, ok)
	assert.Equal(t, RoleSeller, role)
	_, ok = ParseRole("admin")
	assert.False(t, ok)
}
