package compliance

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"kycflow/internal/kyc/ports"
)

const (
	amlIdentityKey = "kyc:aml:identity"
	amlCountryKey  = "kyc:aml:country"
)

// RedisAMLList screens for AML hits against two Redis sets: identity digests
// reported by the AML desk and residence countries under enhanced due
// diligence.
type RedisAMLList struct {
	client redis.UniversalClient
}

func NewRedisAMLList(client redis.UniversalClient) *RedisAMLList {
	return &RedisAMLList{client: client}
}

func (l *RedisAMLList) Screen(ctx context.Context, applicant ports.Applicant) (bool, error) {
	pipe := l.client.Pipeline()
	identity := pipe.SIsMember(ctx, amlIdentityKey, applicant.IdentityDigest)
	country := pipe.SIsMember(ctx, amlCountryKey, strings.ToUpper(applicant.Country))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return identity.Val() || country.Val(), nil
}

// AddIdentity reports an identity digest as an AML hit.
func (l *RedisAMLList) AddIdentity(ctx context.Context, digest string) error {
	return l.client.SAdd(ctx, amlIdentityKey, digest).Err()
}

// AddCountry flags a residence country.
func (l *RedisAMLList) AddCountry(ctx context.Context, code string) error {
	return l.client.SAdd(ctx, amlCountryKey, strings.ToUpper(code)).Err()
}

// MemoryAMLList is the in-process variant used when Redis is not configured.
type MemoryAMLList struct {
	mu         sync.RWMutex
	identities map[string]struct{}
	countries  map[string]struct{}
}

func NewMemoryAMLList() *MemoryAMLList {
	return &MemoryAMLList{
		identities: make(map[string]struct{}),
		countries:  make(map[string]struct{}),
	}
}

func (l *MemoryAMLList) Screen(_ context.Context, applicant ports.Applicant) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, byIdentity := l.identities[applicant.IdentityDigest]
	_, byCountry := l.countries[strings.ToUpper(applicant.Country)]
	return byIdentity || byCountry, nil
}

func (l *MemoryAMLList) AddIdentity(_ context.Context, digest string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.identities[digest] = struct{}{}
	return nil
}

func (l *MemoryAMLList) AddCountry(_ context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.countries[strings.ToUpper(code)] = struct{}{}
	return nil
}
