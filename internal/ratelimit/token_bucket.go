package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Refills by elapsed server time, then takes one token. Remaining tokens are
// returned as a string because redis truncates lua numbers to integers.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local t = redis.call("TIME")
local now = (t[1] * 1000) + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now

local elapsed = math.max(0, now - ts)
tokens = math.min(burst, tokens + (elapsed / 1000) * rate)

local granted = 0
if tokens >= 1 then
  granted = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {granted, tostring(tokens), now}
`

var ErrLimiterUnavailable = errors.New("rate limiter not configured")

// Bucket describes a refill rate in tokens per second and a capacity.
type Bucket struct {
	Rate  float64
	Burst int
}

func (b Bucket) validate() error {
	if b.Rate <= 0 {
		return errors.New("bucket rate must be positive")
	}
	if b.Burst <= 0 {
		return errors.New("bucket burst must be positive")
	}
	return nil
}

// idleTTL keeps an untouched bucket around for twice its full refill time.
func (b Bucket) idleTTL() time.Duration {
	if b.Rate <= 0 || b.Burst <= 0 {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(float64(b.Burst)/b.Rate*2))
	return time.Duration(seconds) * time.Second
}

type TokenBucket struct {
	client *redis.Client
	script *redis.Script
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

func (t *TokenBucket) Take(ctx context.Context, key string, bucket Bucket) (*RateLimitResult, error) {
	if t == nil || t.client == nil {
		return nil, ErrLimiterUnavailable
	}
	if key == "" {
		return nil, errors.New("bucket key is empty")
	}
	if err := bucket.validate(); err != nil {
		return nil, err
	}

	raw, err := t.script.Run(ctx, t.client, []string{key},
		bucket.Rate, bucket.Burst, bucket.idleTTL().Milliseconds(),
	).Slice()
	if err != nil {
		return nil, err
	}
	return decodeBucketReply(raw, bucket)
}

func decodeBucketReply(raw []interface{}, bucket Bucket) (*RateLimitResult, error) {
	if len(raw) != 3 {
		return nil, fmt.Errorf("token bucket: unexpected reply length %d", len(raw))
	}
	granted, ok := raw[0].(int64)
	if !ok {
		return nil, fmt.Errorf("token bucket: unexpected granted %T", raw[0])
	}
	tokensText, ok := raw[1].(string)
	if !ok {
		return nil, fmt.Errorf("token bucket: unexpected tokens %T", raw[1])
	}
	tokens, err := strconv.ParseFloat(tokensText, 64)
	if err != nil {
		return nil, fmt.Errorf("token bucket: parse tokens: %w", err)
	}
	nowMillis, ok := raw[2].(int64)
	if !ok {
		return nil, fmt.Errorf("token bucket: unexpected timestamp %T", raw[2])
	}

	result := &RateLimitResult{
		Allowed:   granted == 1,
		Limit:     bucket.Burst,
		Remaining: int(tokens),
		ResetTime: time.UnixMilli(nowMillis),
	}
	if !result.Allowed {
		result.RetryAfter = time.Duration((1 - tokens) / bucket.Rate * float64(time.Second))
		result.ResetTime = result.ResetTime.Add(result.RetryAfter)
	}
	return result, nil
}
