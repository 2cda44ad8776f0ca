package workflow

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"kycflow/internal/kyc/models"
	id "kycflow/pkg/domain"
	"kycflow/pkg/requestcontext"
)

// StatusSummary is the read model returned by GetStatus.
type StatusSummary struct {
	ApplicationID id.ApplicationID
	ApplicantID   id.ApplicantID
	Status        models.ApplicationStatus

	KYCLevel int
	// EffectiveLevel is the level downstream systems may rely on now:
	// zero unless approved and unexpired.
	EffectiveLevel int

	RiskScore decimal.Decimal
	RiskLevel int

	CurrentStep        models.StepIndex
	CurrentStepName    string
	TotalSteps         int
	ProgressPercentage int
	Steps              models.Steps
	NeedsAttention     bool

	SubmissionCount       int
	RemainingSubmissions  int
	RejectionCount        int
	RequiresSupplement    bool
	SupplementRequirement string
	RejectionReason       string
	AutoApproved          bool

	LatestAssessment *models.RiskAssessment

	LastSubmittedAt time.Time
	VerifiedAt      *time.Time
	ExpiresAt       *time.Time
}

// GetStatus returns the current state of an application.
func (o *Orchestrator) GetStatus(ctx context.Context, appID id.ApplicationID) (StatusSummary, error) {
	app, err := o.store.FindByID(ctx, appID)
	if err != nil {
		return StatusSummary{}, translate(err)
	}
	assessments, err := o.store.Assessments(ctx, appID)
	if err != nil {
		return StatusSummary{}, translate(err)
	}

	summary := Summarize(o.cfg, *app, requestcontext.Now(ctx))
	if n := len(assessments); n > 0 {
		latest := assessments[n-1]
		summary.LatestAssessment = &latest
	}
	return summary, nil
}

// Summarize builds the status read model of an application at now.
func Summarize(cfg Config, app models.Application, now time.Time) StatusSummary {
	var attention bool
	for _, step := range app.Steps {
		attention = attention || step.NeedsAttention
	}
	remaining := cfg.MaxSubmissions - app.SubmissionCount
	if remaining < 0 {
		remaining = 0
	}
	return StatusSummary{
		ApplicationID:         app.ID,
		ApplicantID:           app.ApplicantID,
		Status:                app.Status,
		KYCLevel:              app.KYCLevel,
		EffectiveLevel:        app.EffectiveLevel(now),
		RiskScore:             app.RiskScore,
		RiskLevel:             app.RiskLevel,
		CurrentStep:           app.CurrentStep,
		CurrentStepName:       app.CurrentStep.Name(),
		TotalSteps:            app.TotalSteps,
		ProgressPercentage:    app.ProgressPercentage(),
		Steps:                 app.Steps,
		NeedsAttention:        attention,
		SubmissionCount:       app.SubmissionCount,
		RemainingSubmissions:  remaining,
		RejectionCount:        app.RejectionCount,
		RequiresSupplement:    app.RequiresSupplement,
		SupplementRequirement: app.SupplementRequirement,
		RejectionReason:       app.RejectionReason,
		AutoApproved:          app.AutoApproved,
		LastSubmittedAt:       app.LastSubmittedAt,
		VerifiedAt:            app.VerifiedAt,
		ExpiresAt:             app.ExpiresAt,
	}
}

// History returns the review records of an application in the order they
// were written.
func (o *Orchestrator) History(ctx context.Context, appID id.ApplicationID) ([]models.ReviewRecord, error) {
	records, err := o.store.Records(ctx, appID)
	if err != nil {
		return nil, translate(err)
	}
	return records, nil
}

// Statistics counts applications by status and risk level.
func (o *Orchestrator) Statistics(ctx context.Context) (models.Statistics, error) {
	stats, err := o.store.Statistics(ctx)
	if err != nil {
		return models.Statistics{}, translate(err)
	}
	return stats, nil
}
