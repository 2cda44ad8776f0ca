package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"kycflow/internal/kyc/models"
	id "kycflow/pkg/domain"
	dErrors "kycflow/pkg/domain-errors"
	"kycflow/pkg/platform/sentinel"
)

// numShards spreads per-application locks so unrelated applications do not
// contend on the same mutex.
const numShards = 128

// InMemory is a process-local store used by tests and single-node
// deployments without Postgres. Execute serialises mutations per application
// with sharded mutexes and rejects stale writes by version.
type InMemory struct {
	mu          sync.RWMutex
	apps        map[id.ApplicationID]models.Application
	byApplicant map[id.ApplicantID]id.ApplicationID
	records     map[id.ApplicationID][]models.ReviewRecord
	assessments map[id.ApplicationID][]models.RiskAssessment

	appShards       [numShards]sync.Mutex
	applicantShards [numShards]sync.Mutex
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		apps:        make(map[id.ApplicationID]models.Application),
		byApplicant: make(map[id.ApplicantID]id.ApplicationID),
		records:     make(map[id.ApplicationID][]models.ReviewRecord),
		assessments: make(map[id.ApplicationID][]models.RiskAssessment),
	}
}

func (s *InMemory) FindByID(_ context.Context, appID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &app, nil
}

func (s *InMemory) FindByApplicant(_ context.Context, applicantID id.ApplicantID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appID, ok := s.byApplicant[applicantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	app := s.apps[appID]
	return &app, nil
}

// Execute loads the application, hands a snapshot to fn and commits the
// returned transition if nobody else committed in between.
func (s *InMemory) Execute(ctx context.Context, appID id.ApplicationID, fn func(current models.Application) (models.Transition, error)) (models.Transition, error) {
	if err := ctx.Err(); err != nil {
		return models.Transition{}, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	shard := &s.appShards[shardOf(appID.String())]
	shard.Lock()
	defer shard.Unlock()

	current, err := s.FindByID(ctx, appID)
	if err != nil {
		return models.Transition{}, err
	}
	t, err := fn(*current)
	if err != nil {
		return models.Transition{}, err
	}
	return s.commit(current.Version, t, false)
}

// ExecuteForApplicant is Execute keyed by applicant. fn receives nil when the
// applicant has no application yet; the returned application is inserted.
func (s *InMemory) ExecuteForApplicant(ctx context.Context, applicantID id.ApplicantID, fn func(current *models.Application) (models.Transition, error)) (models.Transition, error) {
	if err := ctx.Err(); err != nil {
		return models.Transition{}, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	applicantShard := &s.applicantShards[shardOf(applicantID.String())]
	applicantShard.Lock()
	defer applicantShard.Unlock()

	current, err := s.FindByApplicant(ctx, applicantID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return models.Transition{}, err
	}
	if current == nil {
		t, err := fn(nil)
		if err != nil {
			return models.Transition{}, err
		}
		return s.commit(0, t, true)
	}

	appShard := &s.appShards[shardOf(current.ID.String())]
	appShard.Lock()
	defer appShard.Unlock()

	// Re-read under the application lock; a workflow mutation may have landed.
	current, err = s.FindByID(ctx, current.ID)
	if err != nil {
		return models.Transition{}, err
	}
	t, err := fn(current)
	if err != nil {
		return models.Transition{}, err
	}
	return s.commit(current.Version, t, false)
}

func (s *InMemory) commit(expectedVersion int, t models.Transition, insert bool) (models.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app := t.Application
	if insert {
		if _, exists := s.byApplicant[app.ApplicantID]; exists {
			return models.Transition{}, sentinel.ErrConflict
		}
	} else {
		stored, ok := s.apps[app.ID]
		if !ok {
			return models.Transition{}, sentinel.ErrNotFound
		}
		if stored.Version != expectedVersion {
			return models.Transition{}, sentinel.ErrConflict
		}
	}

	app.Version = expectedVersion + 1
	s.apps[app.ID] = app
	s.byApplicant[app.ApplicantID] = app.ID
	if t.Assessment != nil {
		s.assessments[app.ID] = append(s.assessments[app.ID], *t.Assessment)
	}
	s.records[app.ID] = append(s.records[app.ID], t.Records...)

	t.Application = app
	return t, nil
}

// ListStalled returns applications whose current step has been IN_PROGRESS
// since before the cutoff, oldest first. A step escalated by an earlier sweep
// counts from its escalation.
func (s *InMemory) ListStalled(_ context.Context, startedBefore time.Time, limit int) ([]id.ApplicationID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type stalled struct {
		id      id.ApplicationID
		started time.Time
	}
	var found []stalled
	for _, app := range s.apps {
		if app.Status != models.StatusUnderReview {
			continue
		}
		step := app.CurrentStepState()
		since := step.TimerStart()
		if step.Status == models.StepInProgress && since != nil && since.Before(startedBefore) {
			found = append(found, stalled{app.ID, *since})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].started.Before(found[j].started) })

	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	ids := make([]id.ApplicationID, len(found))
	for i, f := range found {
		ids[i] = f.id
	}
	return ids, nil
}

// Records returns the review trail of an application in append order.
func (s *InMemory) Records(_ context.Context, appID id.ApplicationID) ([]models.ReviewRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.apps[appID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]models.ReviewRecord(nil), s.records[appID]...), nil
}

// Assessments returns every risk assessment computed for an application.
func (s *InMemory) Assessments(_ context.Context, appID id.ApplicationID) ([]models.RiskAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.apps[appID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]models.RiskAssessment(nil), s.assessments[appID]...), nil
}

// Statistics counts applications by status and by assessed risk level.
func (s *InMemory) Statistics(_ context.Context) (models.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.Statistics{
		ByStatus:    make(map[models.ApplicationStatus]int),
		ByRiskLevel: make(map[int]int),
	}
	for _, app := range s.apps {
		stats.Total++
		stats.ByStatus[app.Status]++
		if app.RiskLevel > 0 {
			stats.ByRiskLevel[app.RiskLevel]++
		}
	}
	return stats, nil
}

// ApprovedIdentityExists reports whether another applicant holds an approved
// application with the same identity blind index.
func (s *InMemory) ApprovedIdentityExists(_ context.Context, digest string, exclude id.ApplicantID) (bool, error) {
	if digest == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, app := range s.apps {
		if app.ApplicantID != exclude && app.Status == models.StatusApproved && app.IdentityDigest == digest {
			return true, nil
		}
	}
	return false, nil
}

// shardOf uses FNV-1a to pick a lock shard for a key.
func shardOf(key string) int {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= fnvPrime
	}
	return int(h % numShards)
}
