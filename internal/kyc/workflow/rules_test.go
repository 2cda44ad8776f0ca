package workflow

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycflow/internal/kyc/models"
	id "kycflow/pkg/domain"
	dErrors "kycflow/pkg/domain-errors"
)

var t0 = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func pending() models.Application {
	return models.Application{
		ID:              id.NewApplicationID(),
		ApplicantID:     id.ApplicantID(uuid.New()),
		Status:          models.StatusPending,
		KYCLevel:        1,
		CurrentStep:     models.StepPreReview,
		TotalSteps:      models.TotalSteps,
		SubmissionCount: 1,
	}
}

func underPreReview(t *testing.T) models.Application {
	t.Helper()
	tr, err := BeginPass(pending(), t0)
	require.NoError(t, err)
	return tr.Application
}

func assessment(score string, checks models.CheckResults) models.RiskAssessment {
	return models.RiskAssessment{
		Score:          decimal.RequireFromString(score),
		RiskLevel:      2,
		Checks:         checks,
		Recommendation: "recommendation",
	}
}

func passAll() models.CheckResults {
	return models.CheckResults{
		Blacklist: models.CheckPass, Duplicate: models.CheckPass,
		AML: models.CheckPass, IdentityDocuments: models.CheckPass,
	}
}

func TestRoute(t *testing.T) {
	cfg := DefaultConfig()
	disabled := cfg
	disabled.EnableAutoReview = false
	lenient := cfg
	lenient.FailedCheckForcesRejection = false

	amlFail := passAll()
	amlFail.AML = models.CheckFail
	amlUnknown := passAll()
	amlUnknown.AML = models.CheckUnknown
	failAndUnknown := amlUnknown
	failAndUnknown.Blacklist = models.CheckFail

	tests := []struct {
		name   string
		cfg    Config
		a      models.RiskAssessment
		expect Outcome
	}{
		{"low score all pass approves", cfg, assessment("3.6", passAll()), OutcomeAutoApproved},
		{"approval threshold is inclusive", cfg, assessment("30", passAll()), OutcomeAutoApproved},
		{"between thresholds escalates", cfg, assessment("30.01", passAll()), OutcomeEscalated},
		{"rejection threshold is inclusive", cfg, assessment("70", passAll()), OutcomeAutoRejected},
		{"failed check rejects regardless of score", cfg, assessment("10", amlFail), OutcomeAutoRejected},
		{"fail outranks unknown", cfg, assessment("10", failAndUnknown), OutcomeAutoRejected},
		{"unknown check rejects like a failure", cfg, assessment("63.6", amlUnknown), OutcomeAutoRejected},
		{"unknown check rejects even at a low score", cfg, assessment("4.6", amlUnknown), OutcomeAutoRejected},
		{"disabled auto review always escalates", disabled, assessment("3.6", passAll()), OutcomeEscalated},
		{"disabled auto review escalates rejections too", disabled, assessment("95", amlFail), OutcomeEscalated},
		{"lenient config escalates low-score failure", lenient, assessment("10", amlFail), OutcomeEscalated},
		{"lenient config escalates unknown check", lenient, assessment("10", amlUnknown), OutcomeEscalated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, Route(tt.cfg, tt.a))
		})
	}

	t.Run("manual review flag blocks approval", func(t *testing.T) {
		a := assessment("20", passAll())
		a.RequiresManualReview = true
		assert.Equal(t, OutcomeEscalated, Route(cfg, a))
	})
}

func TestBeginPass(t *testing.T) {
	tr, err := BeginPass(pending(), t0)
	require.NoError(t, err)
	app := tr.Application

	assert.Equal(t, models.StatusUnderReview, app.Status)
	assert.Equal(t, models.StepPreReview, app.CurrentStep)
	assert.Equal(t, models.StepInProgress, app.Steps.At(models.StepPreReview).Status)
	for _, i := range []models.StepIndex{models.StepJuniorReview, models.StepSeniorReview, models.StepFinalSignOff} {
		assert.Equal(t, models.StepPending, app.Steps.At(i).Status)
	}
	assert.Equal(t, t0, *app.ReviewStartedAt)

	for _, status := range []models.ApplicationStatus{
		models.StatusUnderReview, models.StatusApproved, models.StatusRejected, models.StatusRequiresResubmit,
	} {
		app := pending()
		app.Status = status
		_, err := BeginPass(app, t0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStateConflict), status)
	}
}

func TestApplyPreReview(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("auto approval closes the pass", func(t *testing.T) {
		tr, outcome, err := ApplyPreReview(cfg, underPreReview(t), assessment("3.6", passAll()), t0)
		require.NoError(t, err)
		app := tr.Application

		assert.Equal(t, OutcomeAutoApproved, outcome)
		assert.Equal(t, models.StatusApproved, app.Status)
		assert.True(t, app.AutoApproved)
		assert.Equal(t, models.StepFinalSignOff, app.CurrentStep)
		assert.Equal(t, models.ResultAutoApproved, app.Steps.At(models.StepPreReview).Result)
		assert.Equal(t, models.StepSkipped, app.Steps.At(models.StepJuniorReview).Status)
		assert.Equal(t, t0.Add(cfg.ApprovalValidity), *app.ExpiresAt)
		require.NotNil(t, tr.Assessment)
		require.Len(t, tr.Records, 1)
		assert.True(t, tr.Records[0].IsSystem())
		require.Len(t, tr.Events, 1)
		assert.Equal(t, models.EventAutoApproved, tr.Events[0].Type)
	})

	t.Run("auto rejection counts once", func(t *testing.T) {
		tr, _, err := ApplyPreReview(cfg, underPreReview(t), assessment("80", passAll()), t0)
		require.NoError(t, err)
		app := tr.Application

		assert.Equal(t, models.StatusRejected, app.Status)
		assert.Equal(t, 1, app.RejectionCount)
		assert.Equal(t, models.StepRejected, app.Steps.At(models.StepPreReview).Status)
		assert.Equal(t, models.StepPreReview, app.CurrentStep)
		assert.Equal(t, models.EventAutoRejected, tr.Events[0].Type)
	})

	t.Run("escalation starts junior review", func(t *testing.T) {
		tr, _, err := ApplyPreReview(cfg, underPreReview(t), assessment("45", passAll()), t0)
		require.NoError(t, err)
		app := tr.Application

		assert.Equal(t, models.StatusUnderReview, app.Status)
		assert.Equal(t, models.StepJuniorReview, app.CurrentStep)
		assert.Equal(t, models.ResultRequiresManual, app.Steps.At(models.StepPreReview).Result)
		assert.Equal(t, models.StepInProgress, app.Steps.At(models.StepJuniorReview).Status)
		assert.Equal(t, models.EventEscalated, tr.Events[0].Type)
	})

	t.Run("refuses once pre-review has moved on", func(t *testing.T) {
		tr, _, err := ApplyPreReview(cfg, underPreReview(t), assessment("45", passAll()), t0)
		require.NoError(t, err)
		_, _, err = ApplyPreReview(cfg, tr.Application, assessment("3.6", passAll()), t0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStateConflict))
	})
}

func TestEscalateUnassessed(t *testing.T) {
	tr, err := EscalateUnassessed(underPreReview(t), "engine unavailable", t0)
	require.NoError(t, err)

	step := tr.Application.Steps.At(models.StepPreReview)
	assert.True(t, step.NeedsAttention)
	assert.Equal(t, "engine unavailable", step.AttentionReason)
	assert.Equal(t, models.StepJuniorReview, tr.Application.CurrentStep)
	assert.Nil(t, tr.Assessment)
}

func escalated(t *testing.T) models.Application {
	t.Helper()
	tr, _, err := ApplyPreReview(DefaultConfig(), underPreReview(t), assessment("45", passAll()), t0)
	require.NoError(t, err)
	return tr.Application
}

func TestApplyVerdict(t *testing.T) {
	cfg := DefaultConfig()
	reviewer := id.ReviewerID(uuid.New())
	verdict := func(r models.ReviewResult) Verdict {
		return Verdict{ReviewerID: reviewer, Result: r, Comment: "checked"}
	}

	t.Run("approvals advance until final sign-off", func(t *testing.T) {
		app := escalated(t)
		for _, want := range []models.StepIndex{models.StepSeniorReview, models.StepFinalSignOff} {
			tr, err := ApplyVerdict(cfg, app, verdict(models.ResultApproved), t0)
			require.NoError(t, err)
			app = tr.Application
			assert.Equal(t, want, app.CurrentStep)
			assert.Equal(t, models.StatusUnderReview, app.Status)
			assert.Empty(t, tr.Events)
		}

		tr, err := ApplyVerdict(cfg, app, verdict(models.ResultApproved), t0.Add(time.Hour))
		require.NoError(t, err)
		app = tr.Application
		assert.Equal(t, models.StatusApproved, app.Status)
		assert.Equal(t, &reviewer, app.LastReviewerID)
		assert.Equal(t, models.EventApproved, tr.Events[0].Type)
		assert.Equal(t, &reviewer, app.Steps.At(models.StepFinalSignOff).ActualReviewerID)
		assert.False(t, app.AutoApproved)
	})

	t.Run("rejection skips remaining steps", func(t *testing.T) {
		tr, err := ApplyVerdict(cfg, escalated(t), verdict(models.ResultRejected), t0)
		require.NoError(t, err)
		app := tr.Application
		assert.Equal(t, models.StatusRejected, app.Status)
		assert.Equal(t, 1, app.RejectionCount)
		assert.Equal(t, "checked", app.RejectionReason)
		assert.Equal(t, models.StepRejected, app.Steps.At(models.StepJuniorReview).Status)
		assert.Equal(t, models.StepSkipped, app.Steps.At(models.StepSeniorReview).Status)
		assert.Equal(t, models.StepSkipped, app.Steps.At(models.StepFinalSignOff).Status)
	})

	t.Run("supplement request leaves steps untouched", func(t *testing.T) {
		before := escalated(t)
		v := verdict(models.ResultRequiresSupplement)
		v.Requirement = "upload a clearer selfie"
		tr, err := ApplyVerdict(cfg, before, v, t0)
		require.NoError(t, err)
		app := tr.Application
		assert.Equal(t, models.StatusRequiresResubmit, app.Status)
		assert.True(t, app.RequiresSupplement)
		assert.Equal(t, "upload a clearer selfie", app.SupplementRequirement)
		assert.Equal(t, before.Steps, app.Steps)
		assert.Equal(t, models.EventSupplementRequired, tr.Events[0].Type)
	})

	t.Run("supplement requirement defaults to the comment", func(t *testing.T) {
		tr, err := ApplyVerdict(cfg, escalated(t), verdict(models.ResultRequiresSupplement), t0)
		require.NoError(t, err)
		assert.Equal(t, "checked", tr.Application.SupplementRequirement)
	})

	t.Run("system results are not verdicts", func(t *testing.T) {
		for _, r := range []models.ReviewResult{models.ResultAutoApproved, models.ResultTimedOut, "MAYBE"} {
			_, err := ApplyVerdict(cfg, escalated(t), verdict(r), t0)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidResult), r)
		}
	})

	t.Run("no manual step in progress is a state conflict", func(t *testing.T) {
		_, err := ApplyVerdict(cfg, underPreReview(t), verdict(models.ResultApproved), t0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStateConflict))

		tr, err := ApplyVerdict(cfg, escalated(t), verdict(models.ResultRejected), t0)
		require.NoError(t, err)
		_, err = ApplyVerdict(cfg, tr.Application, verdict(models.ResultApproved), t0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	t.Run("reviewer is required", func(t *testing.T) {
		_, err := ApplyVerdict(cfg, escalated(t), Verdict{Result: models.ResultApproved}, t0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestApplyTimeout(t *testing.T) {
	cfg := DefaultConfig()
	late := t0.Add(cfg.ReviewTimeout + time.Minute)

	t.Run("not yet overdue", func(t *testing.T) {
		_, _, ok := ApplyTimeout(cfg, escalated(t), t0.Add(time.Hour))
		assert.False(t, ok)
	})

	t.Run("stalled pre-review escalates with attention flag", func(t *testing.T) {
		tr, action, ok := ApplyTimeout(cfg, underPreReview(t), late)
		require.True(t, ok)
		assert.Equal(t, StallEscalated, action)
		assert.Equal(t, models.StepJuniorReview, tr.Application.CurrentStep)
		assert.True(t, tr.Application.Steps.At(models.StepPreReview).NeedsAttention)
	})

	t.Run("stalled junior review is skipped", func(t *testing.T) {
		tr, action, ok := ApplyTimeout(cfg, escalated(t), late)
		require.True(t, ok)
		assert.Equal(t, StallSkipped, action)
		junior := tr.Application.Steps.At(models.StepJuniorReview)
		assert.Equal(t, models.StepSkipped, junior.Status)
		assert.Equal(t, models.ResultTimedOut, junior.Result)
		assert.Equal(t, models.StepSeniorReview, tr.Application.CurrentStep)
		assert.Equal(t, late, *tr.Application.CurrentStepState().StartedAt)
		assert.Equal(t, models.EventEscalated, tr.Events[0].Type)
		assert.Equal(t, models.ResultTimedOut, tr.Records[0].Result)
	})

	t.Run("stalled final sign-off is flagged and restarted", func(t *testing.T) {
		app := escalated(t)
		reviewer := id.ReviewerID(uuid.New())
		for i := 0; i < 2; i++ {
			tr, err := ApplyVerdict(cfg, app, Verdict{ReviewerID: reviewer, Result: models.ResultApproved}, t0)
			require.NoError(t, err)
			app = tr.Application
		}
		require.Equal(t, models.StepFinalSignOff, app.CurrentStep)

		tr, action, ok := ApplyTimeout(cfg, app, late)
		require.True(t, ok)
		assert.Equal(t, StallFlagged, action)
		final := tr.Application.CurrentStepState()
		assert.Equal(t, models.StepInProgress, final.Status)
		assert.True(t, final.NeedsAttention)
		assert.Equal(t, t0, *final.StartedAt, "start of the step is kept")
		require.NotNil(t, final.EscalatedAt)
		assert.Equal(t, late, *final.EscalatedAt)

		_, _, ok = ApplyTimeout(cfg, tr.Application, late.Add(time.Minute))
		assert.False(t, ok, "restarted timer is not overdue")
		_, _, ok = ApplyTimeout(cfg, tr.Application, late.Add(cfg.ReviewTimeout+time.Minute))
		assert.True(t, ok, "escalated step can stall again")

		signedOff := late.Add(time.Hour)
		done, err := ApplyVerdict(cfg, tr.Application, Verdict{ReviewerID: reviewer, Result: models.ResultApproved}, signedOff)
		require.NoError(t, err)
		minutes := int(signedOff.Sub(t0).Minutes())
		assert.Equal(t, minutes, done.Application.Steps.At(models.StepFinalSignOff).ProcessingMinutes)
	})

	t.Run("non-review statuses are ignored", func(t *testing.T) {
		_, _, ok := ApplyTimeout(cfg, pending(), late)
		assert.False(t, ok)
	})
}
