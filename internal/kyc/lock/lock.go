// Package lock provides short leases keyed by application so only one
// process runs pre-review evidence gathering for an application at a time.
// The store's row lock still guards every state change; the lease only
// keeps duplicate provider calls from piling up.
package lock

import (
	"context"
	"time"
)

// Release gives a lease back. Releasing an expired or stolen lease is a no-op.
type Release = func(ctx context.Context) error

const keyPrefix = "kyc:lock:"

func key(name string) string { return keyPrefix + name }

func noopRelease(context.Context) error { return nil }

// Noop never contends. It is the default when no lock backend is configured.
type Noop struct{}

func (Noop) Acquire(context.Context, string, time.Duration) (Release, error) {
	return noopRelease, nil
}
