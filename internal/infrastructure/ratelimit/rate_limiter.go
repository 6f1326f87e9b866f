package ratelimit

import (
	"sync"
	"time"

	"github.com/raulk/clock"
	"golang.org/x/time/rate"
)

const (
	ActionSendMessage   = "send_message"
	ActionCreateRequest = "create_request"
	ActionSearch        = "search"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per participant and action.
type RateLimiter struct {
	perMinute int
	clock     clock.Clock
	buckets   map[string]*bucket
	mutex     sync.Mutex
}

// NewRateLimiter allows perMinute actions per participant for chat sends; other actions
// are derived from it. A nil clock uses wall time.
func NewRateLimiter(perMinute int, clk clock.Clock) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if clk == nil {
		clk = clock.New()
	}
	return &RateLimiter{
		perMinute: perMinute,
		clock:     clk,
		buckets:   make(map[string]*bucket),
	}
}

func (rl *RateLimiter) newLimiter(action string) *rate.Limiter {
	perMinute := rl.perMinute
	switch action {
	case ActionCreateRequest:
		// request creation is rarer than chatting
		perMinute = max(perMinute/6, 1)
	case ActionSearch:
		perMinute = max(perMinute/2, 1)
	}
	burst := max(perMinute/6, 1)
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
}

// Allow consumes a token for userID:action. When denied it reports how long until the next token.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := rl.clock.Now()

	rl.mutex.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{limiter: rl.newLimiter(action)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mutex.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Minute
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Tokens returns the tokens currently available for userID:action, and the burst size.
func (rl *RateLimiter) Tokens(userID, action string) (float64, int) {
	rl.mutex.Lock()
	b, exists := rl.buckets[userID+":"+action]
	rl.mutex.Unlock()
	if !exists {
		return 0, 0
	}
	return b.limiter.TokensAt(rl.clock.Now()), b.limiter.Burst()
}

// Cleanup removes buckets idle for more than an hour.
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.clock.Now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > time.Hour {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine runs Cleanup every 30 minutes until done is closed.
func (rl *RateLimiter) StartCleanupRoutine(done <-chan struct{}) {
	go func() {
		ticker := rl.clock.Ticker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}
