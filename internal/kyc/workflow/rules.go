package workflow

import (
	"fmt"
	"time"

	"kycflow/internal/kyc/models"
	id "kycflow/pkg/domain"
	dErrors "kycflow/pkg/domain-errors"
)

// Transition rules in this file are pure domain logic - no I/O. Each takes
// the locked current application and returns the next state plus the
// records and events to commit with it.

// Outcome is the routing decision of the automated pre-review.
type Outcome string

const (
	OutcomeAutoApproved Outcome = "auto_approved"
	OutcomeAutoRejected Outcome = "auto_rejected"
	OutcomeEscalated    Outcome = "escalated"
)

// Route applies the pre-review decision precedence to an assessment.
func Route(cfg Config, a models.RiskAssessment) Outcome {
	if !cfg.EnableAutoReview {
		return OutcomeEscalated
	}
	// An UNKNOWN check never counts as passing.
	if cfg.FailedCheckForcesRejection && (a.Checks.AnyFail() || a.Checks.AnyUnknown()) {
		return OutcomeAutoRejected
	}
	if a.Score.GreaterThanOrEqual(cfg.AutoRejectionThreshold) {
		return OutcomeAutoRejected
	}
	if a.Checks.AnyUnknown() || a.RequiresManualReview {
		return OutcomeEscalated
	}
	if a.Score.LessThanOrEqual(cfg.AutoApprovalThreshold) && a.Checks.AllPass() {
		return OutcomeAutoApproved
	}
	return OutcomeEscalated
}

// BeginPass opens a review pass: four fresh steps, step 1 in progress.
func BeginPass(app models.Application, now time.Time) (models.Transition, error) {
	if app.Status != models.StatusPending {
		return models.Transition{}, dErrors.Newf(dErrors.CodeStateConflict,
			"application is %s, only PENDING applications can start review", app.Status)
	}
	app.Status = models.StatusUnderReview
	app.TotalSteps = models.TotalSteps
	app.CurrentStep = models.StepPreReview
	app.Steps = models.NewSteps()
	app = app.WithStep(models.StepPreReview, app.Steps.At(models.StepPreReview).Begin(now))
	app.ReviewStartedAt = &now
	app.UpdatedAt = now
	return models.Transition{Application: app}, nil
}

func awaitingPreReview(app models.Application) error {
	if app.Status != models.StatusUnderReview || app.CurrentStep != models.StepPreReview ||
		app.CurrentStepState().Status != models.StepInProgress {
		return dErrors.Newf(dErrors.CodeStateConflict,
			"application is %s at step %d, pre-review no longer pending", app.Status, app.CurrentStep)
	}
	return nil
}

// ApplyPreReview records the assessment and routes the application.
func ApplyPreReview(cfg Config, app models.Application, a models.RiskAssessment, now time.Time) (models.Transition, Outcome, error) {
	if err := awaitingPreReview(app); err != nil {
		return models.Transition{}, "", err
	}
	app.RiskScore = a.Score
	app.RiskLevel = a.RiskLevel
	app.UpdatedAt = now

	outcome := Route(cfg, a)
	step := app.CurrentStepState()
	var t models.Transition

	switch outcome {
	case OutcomeAutoApproved:
		app = app.WithStep(models.StepPreReview, step.Complete(models.ResultAutoApproved, nil, a.Recommendation, now))
		app.Steps = app.Steps.SkipFrom(models.StepJuniorReview, now)
		app.CurrentStep = models.StepFinalSignOff
		app = approve(cfg, app, now)
		app.AutoApproved = true
		t = transition(app,
			systemRecord(app.ID, models.StepPreReview, models.ResultAutoApproved, a.Recommendation, now),
			models.NewEvent(models.EventAutoApproved, app, nil, a.Recommendation, now))

	case OutcomeAutoRejected:
		app = app.WithStep(models.StepPreReview, step.Reject(models.ResultAutoRejected, nil, a.Recommendation, now))
		app.Steps = app.Steps.SkipFrom(models.StepJuniorReview, now)
		app = reject(app, a.Recommendation, now)
		t = transition(app,
			systemRecord(app.ID, models.StepPreReview, models.ResultAutoRejected, a.Recommendation, now),
			models.NewEvent(models.EventAutoRejected, app, nil, a.Recommendation, now))

	default:
		note := a.Recommendation
		if !cfg.EnableAutoReview {
			note = "automatic review disabled; " + note
		}
		app = app.WithStep(models.StepPreReview, step.Complete(models.ResultRequiresManual, nil, note, now))
		app = advance(app, now)
		t = transition(app,
			systemRecord(app.ID, models.StepPreReview, models.ResultRequiresManual, note, now),
			models.NewEvent(models.EventEscalated, app, nil, note, now))
	}
	t.Assessment = &a
	return t, outcome, nil
}

// EscalateUnassessed routes to manual review when the pre-review could not
// produce an assessment. Step 1 is flagged for operator attention.
func EscalateUnassessed(app models.Application, reason string, now time.Time) (models.Transition, error) {
	if err := awaitingPreReview(app); err != nil {
		return models.Transition{}, err
	}
	step := app.CurrentStepState().
		Complete(models.ResultRequiresManual, nil, reason, now).
		Flag(reason)
	app = app.WithStep(models.StepPreReview, step)
	app = advance(app, now)
	app.UpdatedAt = now
	return transition(app,
		systemRecord(app.ID, models.StepPreReview, models.ResultRequiresManual, reason, now),
		models.NewEvent(models.EventEscalated, app, nil, reason, now)), nil
}

// Verdict is a reviewer's decision on the current manual step.
type Verdict struct {
	ReviewerID id.ReviewerID
	Result     models.ReviewResult
	Comment    string
	// Requirement is shown to the applicant on REQUIRES_SUPPLEMENT; the
	// comment is used when empty.
	Requirement string
}

// ApplyVerdict applies a manual verdict to the current step.
func ApplyVerdict(cfg Config, app models.Application, v Verdict, now time.Time) (models.Transition, error) {
	if !v.Result.IsManualVerdict() {
		return models.Transition{}, dErrors.Newf(dErrors.CodeInvalidResult, "result %q is not a reviewer verdict", v.Result)
	}
	if v.ReviewerID.IsNil() {
		return models.Transition{}, dErrors.New(dErrors.CodeValidation, "reviewer id is required")
	}
	if !app.AwaitingManualReview() {
		return models.Transition{}, dErrors.Newf(dErrors.CodeStateConflict,
			"application is %s at step %d, no manual review in progress", app.Status, app.CurrentStep)
	}

	reviewer := v.ReviewerID
	current := app.CurrentStep
	step := app.CurrentStepState()
	app.LastReviewerID = &reviewer
	app.UpdatedAt = now
	record := models.ReviewRecord{
		ID:            id.NewRecordID(),
		ApplicationID: app.ID,
		ReviewerID:    &reviewer,
		Step:          current,
		Result:        v.Result,
		Note:          v.Comment,
		CreatedAt:     now,
	}

	switch v.Result {
	case models.ResultApproved:
		app = app.WithStep(current, step.Complete(models.ResultApproved, &reviewer, v.Comment, now))
		if current.IsLast() {
			app = approve(cfg, app, now)
			return transition(app, record, models.NewEvent(models.EventApproved, app, &reviewer, v.Comment, now)), nil
		}
		app = advance(app, now)
		return models.Transition{Application: app, Records: []models.ReviewRecord{record}}, nil

	case models.ResultRejected:
		app = app.WithStep(current, step.Reject(models.ResultRejected, &reviewer, v.Comment, now))
		app.Steps = app.Steps.SkipFrom(current+1, now)
		app = reject(app, v.Comment, now)
		return transition(app, record, models.NewEvent(models.EventRejected, app, &reviewer, v.Comment, now)), nil

	default:
		requirement := v.Requirement
		if requirement == "" {
			requirement = v.Comment
		}
		app.Status = models.StatusRequiresResubmit
		app.RequiresSupplement = true
		app.SupplementRequirement = requirement
		return transition(app, record, models.NewEvent(models.EventSupplementRequired, app, &reviewer, requirement, now)), nil
	}
}

// StallAction is what the sweep did to an overdue step.
type StallAction string

const (
	StallEscalated StallAction = "escalated"
	StallSkipped   StallAction = "skipped"
	StallFlagged   StallAction = "flagged"
)

// ApplyTimeout force-escalates an application whose current step has been
// in progress longer than the review timeout. ok is false when the
// application is no longer overdue.
func ApplyTimeout(cfg Config, app models.Application, now time.Time) (t models.Transition, action StallAction, ok bool) {
	if app.Status != models.StatusUnderReview {
		return t, "", false
	}
	current := app.CurrentStep
	step := app.CurrentStepState()
	since := step.TimerStart()
	if step.Status != models.StepInProgress || since == nil || now.Sub(*since) < cfg.ReviewTimeout {
		return t, "", false
	}

	reason := fmt.Sprintf("%s exceeded review timeout of %s", current.Name(), cfg.ReviewTimeout)
	app.UpdatedAt = now

	switch {
	case current == models.StepPreReview:
		app = app.WithStep(current, step.Complete(models.ResultRequiresManual, nil, reason, now).Flag(reason))
		app = advance(app, now)
		action = StallEscalated
	case current.IsLast():
		app = app.WithStep(current, step.Escalate(reason, now))
		action = StallFlagged
	default:
		app = app.WithStep(current, step.Skip(models.ResultTimedOut, reason, now))
		app = advance(app, now)
		action = StallSkipped
	}

	return transition(app,
		systemRecord(app.ID, current, models.ResultTimedOut, reason, now),
		models.NewEvent(models.EventEscalated, app, nil, reason, now)), action, true
}

// advance moves to the next step and starts it.
func advance(app models.Application, now time.Time) models.Application {
	app.CurrentStep++
	return app.WithStep(app.CurrentStep, app.CurrentStepState().Begin(now))
}

func approve(cfg Config, app models.Application, now time.Time) models.Application {
	expires := now.Add(cfg.ApprovalValidity)
	app.Status = models.StatusApproved
	app.VerifiedAt = &now
	app.ExpiresAt = &expires
	app.RequiresSupplement = false
	app.SupplementRequirement = ""
	app.RejectionReason = ""
	return app
}

func reject(app models.Application, reason string, now time.Time) models.Application {
	app.Status = models.StatusRejected
	app.RejectionCount++
	app.RejectionReason = reason
	app.UpdatedAt = now
	return app
}

func systemRecord(appID id.ApplicationID, step models.StepIndex, result models.ReviewResult, note string, now time.Time) models.ReviewRecord {
	return models.ReviewRecord{
		ID:            id.NewRecordID(),
		ApplicationID: appID,
		Step:          step,
		Result:        result,
		Note:          note,
		CreatedAt:     now,
	}
}

func transition(app models.Application, record models.ReviewRecord, event models.Event) models.Transition {
	return models.Transition{
		Application: app,
		Records:     []models.ReviewRecord{record},
		Events:      []models.Event{event},
	}
}
