package lock

import (
	"context"
	"sync"
	"time"

	"kycflow/pkg/platform/sentinel"
)

type lease struct {
	token     uint64
	expiresAt time.Time
}

// InMemory is a process-local lease table for single-instance deployments
// and tests.
type InMemory struct {
	mu     sync.Mutex
	leases map[string]lease
	next   uint64
	now    func() time.Time
}

type InMemoryOption func(*InMemory)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) InMemoryOption {
	return func(l *InMemory) { l.now = now }
}

func NewInMemory(opts ...InMemoryOption) *InMemory {
	l := &InMemory{leases: make(map[string]lease), now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *InMemory) Acquire(_ context.Context, name string, ttl time.Duration) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.leases[name]; ok && now.Before(held.expiresAt) {
		return nil, sentinel.ErrLocked
	}
	l.next++
	token := l.next
	l.leases[name] = lease{token: token, expiresAt: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if held, ok := l.leases[name]; ok && held.token == token {
			delete(l.leases, name)
		}
		return nil
	}, nil
}
