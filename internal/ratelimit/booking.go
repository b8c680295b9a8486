package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/talentflow/internal/config"
)

const keyBookingCandidate = "interview:booking:candidate:%s"

// BookingLimiter throttles slot booking attempts per candidate so a client
// hammering popular slots cannot starve others.
type BookingLimiter struct {
	bucket *TokenBucket
	rule   Bucket
}

func NewBookingLimiter(client *redis.Client, cfg config.Config) *BookingLimiter {
	if client == nil {
		return nil
	}
	perMinute := cfg.Booking.RatePerMinute
	burst := cfg.Booking.Burst
	if perMinute <= 0 || burst <= 0 {
		return nil
	}
	return &BookingLimiter{
		bucket: NewTokenBucket(client),
		rule:   Bucket{Rate: perMinute / 60, Burst: burst},
	}
}

func (l *BookingLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow consumes one token for the candidate. A disabled limiter always
// allows.
func (l *BookingLimiter) Allow(ctx context.Context, candidateID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyBookingCandidate, strings.TrimSpace(candidateID))
	return l.bucket.Take(ctx, key, l.rule)
}

// RetryAfterSeconds rounds the wait up to whole seconds for the Retry-After
// header.
func (r *RateLimitResult) RetryAfterSeconds() int {
	if r == nil || r.RetryAfter <= 0 {
		return 0
	}
	secs := int(r.RetryAfter / time.Second)
	if r.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}
