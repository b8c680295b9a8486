package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const leaseKeyPrefix = "talentflow:lease:"

// Deletes or extends the key only while it still holds our holder id.
const (
	leaseReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`
	leaseExtendScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`
)

var ErrLeaseUnavailable = errors.New("lease backend not configured")

// Leaser hands out short exclusive leases so that only one replica runs a
// periodic job at a time.
type Leaser struct {
	client  *redis.Client
	release *redis.Script
	extend  *redis.Script
}

// Lease is a held lease. The zero value is not held.
type Lease struct {
	leaser *Leaser
	key    string
	holder string
	ttl    time.Duration
}

func NewLeaser(client *redis.Client) *Leaser {
	if client == nil {
		return nil
	}
	return &Leaser{
		client:  client,
		release: redis.NewScript(leaseReleaseScript),
		extend:  redis.NewScript(leaseExtendScript),
	}
}

// Acquire returns nil, nil when another holder owns the lease.
func (l *Leaser) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	if l == nil || l.client == nil {
		return nil, ErrLeaseUnavailable
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("lease name is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("lease ttl must be positive")
	}

	lease := &Lease{leaser: l, key: leaseKeyPrefix + name, holder: uuid.NewString(), ttl: ttl}
	ok, err := l.client.SetNX(ctx, lease.key, lease.holder, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return lease, nil
}

// Extend pushes the expiry out by another ttl. It reports false once the
// lease has been lost.
func (le *Lease) Extend(ctx context.Context) (bool, error) {
	if le == nil || le.leaser == nil {
		return false, nil
	}
	n, err := le.leaser.extend.Run(ctx, le.leaser.client, []string{le.key}, le.holder, le.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (le *Lease) Release(ctx context.Context) error {
	if le == nil || le.leaser == nil {
		return nil
	}
	return le.leaser.release.Run(ctx, le.leaser.client, []string{le.key}, le.holder).Err()
}
