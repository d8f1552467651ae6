package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*Lock)(nil)

// ErrLockNotHeld is returned by Extend once the lock expired or changed hands.
var ErrLockNotHeld = fmt.Errorf("%w: lock not held", domain.ErrConflict)

// ownedScript runs DEL (no TTL argument) or PEXPIRE on KEYS[1] only while
// its value is still ARGV[1], and returns 0 otherwise.
var ownedScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
if ARGV[2] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return redis.call("DEL", KEYS[1])
`)

// Lock is a non-reentrant lease on a Redis key. The key holds the owner
// ID, so one instance can never release or extend another's lease.
type Lock struct {
	client  *redis.Client
	ownerID string
}

func NewLock(client *redis.Client) *Lock {
	host, _ := os.Hostname()
	return &Lock{
		client:  client,
		ownerID: fmt.Sprintf("%s:%d:%s", host, os.Getpid(), uuid.NewString()),
	}
}

func (l *Lock) key(name string) string { return "sercha-rag:lock:" + name }

// Acquire reports false while anyone, this instance included, holds name.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	err := l.client.SetArgs(ctx, l.key(name), l.ownerID, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return true, nil
}

// Release is a no-op unless this instance holds name.
func (l *Lock) Release(ctx context.Context, name string) error {
	if err := ownedScript.Run(ctx, l.client, []string{l.key(name)}, l.ownerID).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	n, err := ownedScript.Run(ctx, l.client, []string{l.key(name)}, l.ownerID, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("extend lock %s: %w", name, ErrLockNotHeld)
	}
	return nil
}

func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID is the value written under held keys.
func (l *Lock) OwnerID() string { return l.ownerID }
