package http

import (
	"context"
	"sync"
	"time"

	"github.com/mrlokans/adminauth/internal/config"
)

// RateLimiter counts failed auth submits per client and identity using a
// fixed window, locking the pair out once the limit is reached.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptRecord
	max      int
	window   time.Duration
	lockout  time.Duration
	now      func() time.Time
}

type attemptRecord struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// NewRateLimiter creates a rate limiter. Zero settings fall back to 5
// attempts per 15 minutes with a 30 minute lockout.
func NewRateLimiter(cfg config.Auth) *RateLimiter {
	rl := &RateLimiter{
		attempts: make(map[string]*attemptRecord),
		max:      cfg.MaxAttempts,
		window:   cfg.RateLimitWindow,
		lockout:  cfg.LockoutDuration,
		now:      time.Now,
	}
	if rl.max <= 0 {
		rl.max = 5
	}
	if rl.window <= 0 {
		rl.window = 15 * time.Minute
	}
	if rl.lockout <= 0 {
		rl.lockout = 30 * time.Minute
	}
	return rl
}

func limiterKey(ip, identity string) string {
	return ip + "|" + identity
}

// Allow reports whether another attempt is permitted and, if not, how long
// the caller must wait.
func (rl *RateLimiter) Allow(ip, identity string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, ok := rl.attempts[limiterKey(ip, identity)]
	if !ok {
		return true, 0
	}
	if now.Before(record.lockedUntil) {
		return false, record.lockedUntil.Sub(now)
	}
	if now.Sub(record.firstAttempt) > rl.window || record.count < rl.max {
		return true, 0
	}
	return false, rl.lockout
}

// RecordFailure counts a failed attempt and reports whether it triggered a
// lockout.
func (rl *RateLimiter) RecordFailure(ip, identity string) bool {
	now := rl.now()
	key := limiterKey(ip, identity)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, ok := rl.attempts[key]
	if !ok || now.Sub(record.firstAttempt) > rl.window {
		record = &attemptRecord{firstAttempt: now}
		rl.attempts[key] = record
	}
	record.count++
	if record.count >= rl.max {
		record.lockedUntil = now.Add(rl.lockout)
		return true
	}
	return false
}

// RecordSuccess clears the failure record.
func (rl *RateLimiter) RecordSuccess(ip, identity string) {
	rl.mu.Lock()
	delete(rl.attempts, limiterKey(ip, identity))
	rl.mu.Unlock()
}

// Run removes expired records every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-ctx.Done():
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, record := range rl.attempts {
		if now.Sub(record.firstAttempt) > rl.window && !now.Before(record.lockedUntil) {
			delete(rl.attempts, key)
		}
	}
}
