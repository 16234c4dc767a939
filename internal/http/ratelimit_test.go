package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/adminauth/internal/config"
)

func newTestLimiter(now *time.Time) *RateLimiter {
	rl := NewRateLimiter(config.Auth{MaxAttempts: 3, RateLimitWindow: time.Minute, LockoutDuration: 5 * time.Minute})
	rl.now = func() time.Time { return *now }
	return rl
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(config.Auth{})
	assert.Equal(t, 5, rl.max)
	assert.Equal(t, 15*time.Minute, rl.window)
	assert.Equal(t, 30*time.Minute, rl.lockout)
}

func TestRateLimiter_LocksOutAfterMax(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(&now)

	assert.False(t, rl.RecordFailure("1.2.3.4", "kai@doe.com"))
	assert.False(t, rl.RecordFailure("1.2.3.4", "kai@doe.com"))
	allowed, _ := rl.Allow("1.2.3.4", "kai@doe.com")
	assert.True(t, allowed)

	assert.True(t, rl.RecordFailure("1.2.3.4", "kai@doe.com"))
	allowed, wait := rl.Allow("1.2.3.4", "kai@doe.com")
	assert.False(t, allowed)
	assert.Equal(t, 5*time.Minute, wait)

	allowed, _ = rl.Allow("1.2.3.4", "other@doe.com")
	assert.True(t, allowed, "other identities are unaffected")
	allowed, _ = rl.Allow("5.6.7.8", "kai@doe.com")
	assert.True(t, allowed, "other clients are unaffected")

	now = now.Add(5*time.Minute + time.Second)
	allowed, _ = rl.Allow("1.2.3.4", "kai@doe.com")
	assert.True(t, allowed)
}

func TestRateLimiter_WindowResets(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(&now)

	rl.RecordFailure("ip", "id")
	rl.RecordFailure("ip", "id")
	now = now.Add(2 * time.Minute)

	assert.False(t, rl.RecordFailure("ip", "id"), "count restarts after the window")
}

func TestRateLimiter_SuccessClears(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(&now)

	rl.RecordFailure("ip", "id")
	rl.RecordFailure("ip", "id")
	rl.RecordSuccess("ip", "id")

	assert.False(t, rl.RecordFailure("ip", "id"))
	assert.False(t, rl.RecordFailure("ip", "id"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(&now)

	rl.RecordFailure("a", "x")
	for i := 0; i < 3; i++ {
		rl.RecordFailure("b", "y")
	}

	now = now.Add(2 * time.Minute)
	rl.cleanup()

	rl.mu.Lock()
	_, hasA := rl.attempts[limiterKey("a", "x")]
	_, hasB := rl.attempts[limiterKey("b", "y")]
	rl.mu.Unlock()
	assert.False(t, hasA)
	assert.True(t, hasB, "locked records survive until the lockout ends")
}
