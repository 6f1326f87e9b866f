package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesWrappedCodes(t *testing.T) {
	err := fmt.Errorf("loading request: %w", NotFound("Request", nil))

	assert.True(t, Is(err, CodeNotFound))
	assert.False(t, Is(err, CodeForbidden))
	assert.False(t, Is(context.Canceled, CodeNotFound))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unclassified", context.DeadlineExceeded, true},
		{"transient", Transient("store unavailable", nil), true},
		{"internal", Internal("boom", nil), true},
		{"rate limited", TooManyRequests("slow down"), true},
		{"validation", Validation("bad room", nil), false},
		{"not found", NotFound("Request", nil), false},
		{"invalid transition", InvalidTransition("already accepted"), false},
		{"forbidden", Forbidden("not the seller", nil), false},
		{"unauthorized", Unauthorized("bad token", nil), false},
		{"conflict", Conflict("duplicate"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestStatusCodes(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Validation("x", nil).Status)
	assert.Equal(t, http.StatusConflict, InvalidTransition("x").Status)
	assert.Equal(t, http.StatusServiceUnavailable, Transient("x", nil).Status)
	assert.Equal(t, "Request not found", NotFound("Request", nil).Message)
}

func TestErrorUnwraps(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := Transient("store unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "TRANSIENT_IO: store unavailable: dial tcp: refused", err.Error())
}
