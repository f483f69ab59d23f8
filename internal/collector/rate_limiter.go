package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/kurihiro0119/github-portfolio/internal/errors"
)

// RateLimiter paces GitHub API calls against the quota the API reports
type RateLimiter interface {
	Wait(ctx context.Context) error
	CheckLimit() (remaining int, resetTime time.Time)
	UpdateLimit(remaining int, resetTime time.Time)
}

// githubRateLimiter hands out request slots at least minDelay apart.
// remaining is -1 while the quota is unknown.
type githubRateLimiter struct {
	mu        sync.Mutex
	remaining int
	resetTime time.Time
	nextSlot  time.Time
	minDelay  time.Duration
	maxWait   time.Duration
	logger    *zap.Logger
}

// NewRateLimiter creates a new rate limiter. When the quota is exhausted Wait
// sleeps until the reset, unless that is further away than maxWait, in which
// case it fails with a RATE_LIMITED error.
func NewRateLimiter(minDelay, maxWait time.Duration, logger *zap.Logger) RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &githubRateLimiter{
		remaining: -1,
		minDelay:  minDelay,
		maxWait:   maxWait,
		logger:    logger,
	}
}

// Wait blocks until the caller's slot comes up or ctx is done
func (r *githubRateLimiter) Wait(ctx context.Context) error {
	delay, err := r.reserve(time.Now())
	if err != nil {
		return err
	}
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reserve claims the next slot and returns how long until it starts
func (r *githubRateLimiter) reserve(now time.Time) (time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot := now
	if r.nextSlot.After(slot) {
		slot = r.nextSlot
	}

	if r.remaining == 0 && r.resetTime.After(slot) {
		untilReset := r.resetTime.Sub(now)
		if untilReset > r.maxWait {
			return 0, apperrors.NewRateLimitedError(
				fmt.Sprintf("GitHub API quota exhausted until %s", r.resetTime.Format(time.RFC3339)), nil)
		}
		r.logger.Info("Rate limit exhausted, waiting for reset",
			zap.Duration("wait", untilReset.Round(time.Second)),
			zap.Time("reset", r.resetTime))
		slot = r.resetTime
	}
	if r.remaining == 0 {
		// the quota is unknown again once the window has rolled over
		r.remaining = -1
	}

	r.nextSlot = slot.Add(r.minDelay)
	return slot.Sub(now), nil
}

// CheckLimit returns the last reported quota
func (r *githubRateLimiter) CheckLimit() (remaining int, resetTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining, r.resetTime
}

// UpdateLimit records the quota reported by an API response
func (r *githubRateLimiter) UpdateLimit(remaining int, resetTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = remaining
	r.resetTime = resetTime
}
