package review

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycflow/internal/kyc/models"
	"kycflow/internal/kyc/workflow"
	id "kycflow/pkg/domain"
	dErrors "kycflow/pkg/domain-errors"
)

// stubDecider approves everything except ids in conflicts.
type stubDecider struct {
	mu        sync.Mutex
	conflicts map[id.ApplicationID]bool
	calls     []workflow.Verdict
	inFlight  atomic.Int32
	peak      atomic.Int32
}

func (d *stubDecider) Decide(_ context.Context, appID id.ApplicationID, v workflow.Verdict) (*models.Application, error) {
	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	d.mu.Lock()
	d.calls = append(d.calls, v)
	conflict := d.conflicts[appID]
	d.mu.Unlock()
	if conflict {
		return nil, dErrors.New(dErrors.CodeStateConflict, "no manual review in progress")
	}
	return &models.Application{ID: appID, Status: models.StatusUnderReview}, nil
}

func newHandler(t *testing.T, d Decider, opts ...Option) *Handler {
	t.Helper()
	h, err := New(d, opts...)
	require.NoError(t, err)
	return h
}

func TestReview(t *testing.T) {
	reviewer := id.ReviewerID(uuid.New())
	appID := id.NewApplicationID()

	t.Run("passes the verdict through", func(t *testing.T) {
		d := &stubDecider{}
		_, err := newHandler(t, d).Review(context.Background(), ReviewRequest{
			ApplicationID:         appID,
			ReviewerID:            reviewer,
			Result:                models.ResultRequiresSupplement,
			Comment:               "address proof expired",
			SupplementRequirement: "upload a utility bill from the last 3 months",
		})
		require.NoError(t, err)
		require.Len(t, d.calls, 1)
		assert.Equal(t, reviewer, d.calls[0].ReviewerID)
		assert.Equal(t, "upload a utility bill from the last 3 months", d.calls[0].Requirement)
	})

	t.Run("rejects system results", func(t *testing.T) {
		for _, r := range []models.ReviewResult{models.ResultAutoApproved, models.ResultTimedOut, "MAYBE"} {
			_, err := newHandler(t, &stubDecider{}).Review(context.Background(), ReviewRequest{
				ApplicationID: appID, ReviewerID: reviewer, Result: r,
			})
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidResult), "result %s", r)
		}
	})

	t.Run("requires a reviewer", func(t *testing.T) {
		_, err := newHandler(t, &stubDecider{}).Review(context.Background(), ReviewRequest{
			ApplicationID: appID, Result: models.ResultApproved,
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("surfaces state conflicts", func(t *testing.T) {
		d := &stubDecider{conflicts: map[id.ApplicationID]bool{appID: true}}
		_, err := newHandler(t, d).Review(context.Background(), ReviewRequest{
			ApplicationID: appID, ReviewerID: reviewer, Result: models.ResultApproved,
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStateConflict))
	})
}

func TestBatchReview(t *testing.T) {
	reviewer := id.ReviewerID(uuid.New())

	t.Run("reports per-application failures", func(t *testing.T) {
		ok, stuck := id.NewApplicationID(), id.NewApplicationID()
		d := &stubDecider{conflicts: map[id.ApplicationID]bool{stuck: true}}

		res, err := newHandler(t, d).BatchReview(context.Background(),
			[]id.ApplicationID{ok, stuck}, reviewer, models.ResultApproved, "bulk approve")
		require.NoError(t, err)
		assert.Equal(t, 2, res.Total)
		assert.Equal(t, 1, res.SuccessCount)
		assert.Equal(t, 1, res.FailCount)
		require.Len(t, res.Failures, 1)
		assert.Equal(t, stuck, res.Failures[0].ApplicationID)
		assert.Equal(t, dErrors.CodeStateConflict, res.Failures[0].Code)
	})

	t.Run("bounds parallelism and skips duplicates", func(t *testing.T) {
		d := &stubDecider{}
		ids := make([]id.ApplicationID, 0, 12)
		for range 10 {
			ids = append(ids, id.NewApplicationID())
		}
		ids = append(ids, ids[0], ids[1])

		res, err := newHandler(t, d, WithConcurrency(3)).BatchReview(context.Background(),
			ids, reviewer, models.ResultApproved, "")
		require.NoError(t, err)
		assert.Equal(t, 10, res.Total)
		assert.Equal(t, 10, res.SuccessCount)
		assert.LessOrEqual(t, d.peak.Load(), int32(3))
	})

	t.Run("invalid verdict fails the whole batch up front", func(t *testing.T) {
		d := &stubDecider{}
		_, err := newHandler(t, d).BatchReview(context.Background(),
			[]id.ApplicationID{id.NewApplicationID()}, reviewer, models.ResultPendingHigherReview, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidResult))
		assert.Empty(t, d.calls)
	})

	t.Run("empty batch", func(t *testing.T) {
		res, err := newHandler(t, &stubDecider{}).BatchReview(context.Background(), nil, reviewer, models.ResultApproved, "")
		require.NoError(t, err)
		assert.Equal(t, BatchResult{}, res)
	})
}
