package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "kycflow/pkg/domain"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestSteps(t *testing.T) {
	t.Run("a new pass has four pending steps in order", func(t *testing.T) {
		steps := NewSteps()
		for i := StepPreReview; i <= StepFinalSignOff; i++ {
			assert.Equal(t, i, steps.At(i).Number)
			assert.Equal(t, StepPending, steps.At(i).Status)
		}
		assert.True(t, steps.Created())
		assert.False(t, Steps{}.Created())
	})

	t.Run("only the pre-review runs without a reviewer", func(t *testing.T) {
		steps := NewSteps()
		assert.False(t, steps.At(StepPreReview).RequiresManualIntervention())
		assert.True(t, steps.At(StepJuniorReview).RequiresManualIntervention())
		assert.True(t, steps.At(StepFinalSignOff).RequiresManualIntervention())
	})

	t.Run("completion records processing minutes", func(t *testing.T) {
		reviewer := id.ReviewerID(uuid.New())
		step := NewSteps().At(StepJuniorReview).Begin(t0)
		done := step.Complete(ResultApproved, &reviewer, "documents match", t0.Add(95*time.Minute))

		assert.Equal(t, StepCompleted, done.Status)
		assert.Equal(t, 95, done.ProcessingMinutes)
		assert.Equal(t, &reviewer, done.ActualReviewerID)
		assert.Equal(t, StepInProgress, step.Status, "original value is untouched")
	})

	t.Run("skipping only closes pending steps", func(t *testing.T) {
		steps := NewSteps()
		steps = steps.With(StepJuniorReview, steps.At(StepJuniorReview).Begin(t0))
		steps = steps.SkipFrom(StepJuniorReview, t0.Add(time.Hour))

		assert.Equal(t, StepInProgress, steps.At(StepJuniorReview).Status)
		assert.Equal(t, StepSkipped, steps.At(StepSeniorReview).Status)
		assert.Equal(t, StepSkipped, steps.At(StepFinalSignOff).Status)
	})

	t.Run("invalid indexes are ignored", func(t *testing.T) {
		steps := NewSteps()
		assert.Equal(t, steps, steps.With(StepIndex(9), WorkflowStep{Status: StepCompleted}))
		assert.Equal(t, WorkflowStep{}, steps.At(0))
	})
}

func TestApplication(t *testing.T) {
	t.Run("progress follows the current step", func(t *testing.T) {
		app := Application{CurrentStep: StepSeniorReview, TotalSteps: TotalSteps}
		assert.Equal(t, 75, app.ProgressPercentage())
		assert.Equal(t, 0, Application{}.ProgressPercentage())
	})

	t.Run("effective level requires an unexpired approval", func(t *testing.T) {
		expires := t0.AddDate(1, 0, 0)
		app := Application{Status: StatusApproved, KYCLevel: 2, ExpiresAt: &expires}

		assert.Equal(t, 2, app.EffectiveLevel(t0))
		assert.Equal(t, 0, app.EffectiveLevel(expires.Add(time.Second)))

		app.Status = StatusUnderReview
		assert.Equal(t, 0, app.EffectiveLevel(t0))
	})

	t.Run("manual review needs an in-progress manual step", func(t *testing.T) {
		app := Application{Status: StatusUnderReview, CurrentStep: StepJuniorReview, Steps: NewSteps()}
		assert.False(t, app.AwaitingManualReview())

		app = app.WithStep(StepJuniorReview, app.Steps.At(StepJuniorReview).Begin(t0))
		assert.True(t, app.AwaitingManualReview())

		app.Status = StatusApproved
		assert.False(t, app.AwaitingManualReview())
	})

	t.Run("terminal statuses", func(t *testing.T) {
		assert.True(t, StatusApproved.IsTerminal())
		assert.True(t, StatusRejected.IsTerminal())
		assert.False(t, StatusRequiresResubmit.IsTerminal())
		assert.False(t, ApplicationStatus("ARCHIVED").IsValid())
	})
}

func TestCheckResults(t *testing.T) {
	t.Run("unreported checks count as unknown", func(t *testing.T) {
		var checks CheckResults
		assert.True(t, checks.AnyUnknown())
		assert.False(t, checks.AllPass())
	})

	t.Run("set replaces one check", func(t *testing.T) {
		checks := CheckResults{CheckPass, CheckPass, CheckPass, CheckPass}
		assert.True(t, checks.AllPass())

		failed := checks.Set(CheckAML, CheckFail)
		assert.True(t, failed.AnyFail())
		assert.True(t, checks.AllPass())
	})

	t.Run("stored form parses back", func(t *testing.T) {
		for _, r := range []CheckResult{CheckPass, CheckFail, CheckUnknown} {
			parsed, err := ParseCheckResult(r.String())
			require.NoError(t, err)
			assert.Equal(t, r, parsed)
		}
		_, err := ParseCheckResult("MAYBE")
		assert.Error(t, err)
	})
}
