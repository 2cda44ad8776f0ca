package workflow

import (
	"context"
	"time"

	"kycflow/internal/kyc/lock"
	"kycflow/internal/kyc/models"
	id "kycflow/pkg/domain"
)

// Store persists applications. Execute runs fn against the locked current
// row and commits the returned transition atomically; sentinel.ErrConflict
// means another writer won and the caller may retry.
type Store interface {
	FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	Execute(ctx context.Context, appID id.ApplicationID, fn func(current models.Application) (models.Transition, error)) (models.Transition, error)
	ListStalled(ctx context.Context, startedBefore time.Time, limit int) ([]id.ApplicationID, error)
	Records(ctx context.Context, appID id.ApplicationID) ([]models.ReviewRecord, error)
	Assessments(ctx context.Context, appID id.ApplicationID) ([]models.RiskAssessment, error)
	Statistics(ctx context.Context) (models.Statistics, error)
}

// Locker hands out per-application leases. Acquire returns
// sentinel.ErrLocked when the lease is busy.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (lock.Release, error)
}

// Resubmitter reopens an application that was sent back for supplements.
type Resubmitter interface {
	Resubmit(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
}
