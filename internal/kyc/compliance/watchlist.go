package compliance

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"kycflow/internal/kyc/ports"
)

const (
	identityListKey    = "kyc:watchlist:identity"
	nationalityListKey = "kyc:watchlist:nationality"
)

// RedisWatchlist screens against two Redis sets: blind-index digests of
// listed identity numbers and embargoed nationality codes. Both sets are
// maintained by the compliance team outside this service.
type RedisWatchlist struct {
	client redis.UniversalClient
}

func NewRedisWatchlist(client redis.UniversalClient) *RedisWatchlist {
	return &RedisWatchlist{client: client}
}

func (w *RedisWatchlist) Listed(ctx context.Context, applicant ports.Applicant) (bool, error) {
	pipe := w.client.Pipeline()
	identity := pipe.SIsMember(ctx, identityListKey, applicant.IdentityDigest)
	nationality := pipe.SIsMember(ctx, nationalityListKey, strings.ToUpper(applicant.Nationality))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return identity.Val() || nationality.Val(), nil
}

// AddIdentity lists an identity digest.
func (w *RedisWatchlist) AddIdentity(ctx context.Context, digest string) error {
	return w.client.SAdd(ctx, identityListKey, digest).Err()
}

// AddNationality embargoes a nationality code.
func (w *RedisWatchlist) AddNationality(ctx context.Context, code string) error {
	return w.client.SAdd(ctx, nationalityListKey, strings.ToUpper(code)).Err()
}

// MemoryWatchlist is the in-process variant used when Redis is not configured.
type MemoryWatchlist struct {
	mu            sync.RWMutex
	identities    map[string]struct{}
	nationalities map[string]struct{}
}

func NewMemoryWatchlist() *MemoryWatchlist {
	return &MemoryWatchlist{
		identities:    make(map[string]struct{}),
		nationalities: make(map[string]struct{}),
	}
}

func (w *MemoryWatchlist) Listed(_ context.Context, applicant ports.Applicant) (bool, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, byIdentity := w.identities[applicant.IdentityDigest]
	_, byNationality := w.nationalities[strings.ToUpper(applicant.Nationality)]
	return byIdentity || byNationality, nil
}

func (w *MemoryWatchlist) AddIdentity(_ context.Context, digest string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.identities[digest] = struct{}{}
	return nil
}

func (w *MemoryWatchlist) AddNationality(_ context.Context, code string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nationalities[strings.ToUpper(code)] = struct{}{}
	return nil
}
