package driven

import (
	"context"
	"time"
)

// DistributedLock elects one process for work that must not run twice, such
// as enqueuing a scheduled maintenance job. Redis and PostgreSQL advisory
// locks implement it.
type DistributedLock interface {
	// Acquire returns false without error when another holder has name.
	// The lock lapses after ttl where the backend supports expiry.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release drops name. Releasing a lock that is not held is not an error.
	Release(ctx context.Context, name string) error

	// Extend pushes the expiry of a lock this process holds. Backends
	// without expiry treat it as a holder check.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	Ping(ctx context.Context) error
}
