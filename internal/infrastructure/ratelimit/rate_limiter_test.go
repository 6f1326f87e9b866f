package ratelimit

import (
	"testing"
	"time"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBurstThenRefill(t *testing.T) {
	mock := clock.NewMock()
	rl := NewRateLimiter(60, mock)

	// 60/min gives a burst of 10 and one token per second
	for i := 0; i < 10; i++ {
		ok, _ := rl.Allow("f1", ActionSendMessage)
		assert.True(t, ok, "message %d", i)
	}
	ok, wait := rl.Allow("f1", ActionSendMessage)
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	mock.Add(time.Second)
	ok, _ = rl.Allow("f1", ActionSendMessage)
	assert.True(t, ok)
}

func TestRateLimiterKeysByParticipantAndAction(t *testing.T) {
	mock := clock.NewMock()
	rl := NewRateLimiter(6, mock)

	ok, _ := rl.Allow("f1", ActionSendMessage)
	assert.True(t, ok)
	ok, _ = rl.Allow("f1", ActionSendMessage)
	assert.False(t, ok)

	ok, _ = rl.Allow("f2", ActionSendMessage)
	assert.True(t, ok)
	ok, _ = rl.Allow("f1", ActionSearch)
	assert.True(t, ok)
}

func TestRateLimiterCleanup(t *testing.T) {
	mock := clock.NewMock()
	rl := NewRateLimiter(60, mock)
	rl.Allow("f1", ActionSendMessage)

	mock.Add(2 * time.Hour)
	rl.Cleanup()

	tokens, burst := rl.Tokens("f1", ActionSendMessage)
	assert.Zero(t, tokens)
	assert.Zero(t, burst)
}
