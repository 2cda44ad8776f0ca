package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "kycflow/pkg/domain"
)

// ApplicationStatus is the lifecycle state of a KYC application.
type ApplicationStatus string

const (
	StatusPending          ApplicationStatus = "PENDING"
	StatusUnderReview      ApplicationStatus = "UNDER_REVIEW"
	StatusApproved         ApplicationStatus = "APPROVED"
	StatusRejected         ApplicationStatus = "REJECTED"
	StatusRequiresResubmit ApplicationStatus = "REQUIRES_RESUBMIT"
)

// IsTerminal reports whether the status ends a lifecycle pass.
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s ApplicationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected, StatusRequiresResubmit:
		return true
	}
	return false
}

func (s ApplicationStatus) String() string { return string(s) }

// IDType selects the identity-number scheme used at intake.
type IDType string

const (
	IDTypeNationalID IDType = "NATIONAL_ID"
	IDTypePassport   IDType = "PASSPORT"
)

// Profile holds the non-identifying fields derived at intake. These are the
// only applicant attributes that reach the risk engine.
type Profile struct {
	IDType        IDType
	BirthDate     *time.Time
	Nationality   string
	Country       string
	Occupation    string
	IncomeBracket string
}

// EncryptedPII holds codec ciphertexts. The workflow stores and forwards
// these values but never decrypts them.
type EncryptedPII struct {
	RealName       string
	IdentityNumber string
	Address        string
	PhoneNumber    string
	Email          string
	BankAccount    string
}

// SubmissionMetadata records where the latest submission came from.
type SubmissionMetadata struct {
	ClientIP  string
	UserAgent string
	Device    string
}

// Application is one applicant's KYC record. An applicant has at most one
// Application; resubmissions reuse it and start a new pass.
type Application struct {
	ID          id.ApplicationID
	ApplicantID id.ApplicantID
	Status      ApplicationStatus
	KYCLevel    int

	RiskScore decimal.Decimal
	RiskLevel int

	CurrentStep StepIndex
	TotalSteps  int
	Steps       Steps

	SubmissionCount       int
	RejectionCount        int
	RequiresSupplement    bool
	SupplementRequirement string
	RejectionReason       string
	AutoApproved          bool

	Profile        Profile
	PII            EncryptedPII
	IdentityDigest string
	Submission     SubmissionMetadata
	LastReviewerID *id.ReviewerID

	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastSubmittedAt time.Time
	ReviewStartedAt *time.Time
	VerifiedAt      *time.Time
	ExpiresAt       *time.Time

	// Version increases on every persisted change.
	Version int
}

// CurrentStepState returns the step the application is positioned on.
func (a Application) CurrentStepState() WorkflowStep {
	return a.Steps.At(a.CurrentStep)
}

// WithStep returns a copy of the application with step i replaced.
func (a Application) WithStep(i StepIndex, step WorkflowStep) Application {
	a.Steps = a.Steps.With(i, step)
	return a
}

// AwaitingManualReview reports whether a reviewer verdict can be applied.
func (a Application) AwaitingManualReview() bool {
	if a.Status != StatusUnderReview || !a.CurrentStep.IsManual() {
		return false
	}
	return a.CurrentStepState().Status == StepInProgress
}

// ProgressPercentage is currentStep over totalSteps, as a whole percentage.
func (a Application) ProgressPercentage() int {
	if a.TotalSteps <= 0 {
		return 0
	}
	return int(a.CurrentStep) * 100 / a.TotalSteps
}

// IsExpired reports whether an approval has lapsed at now.
func (a Application) IsExpired(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

// EffectiveLevel is the KYC level downstream systems may rely on at now:
// the approved level, or 0 while unapproved or expired.
func (a Application) EffectiveLevel(now time.Time) int {
	if a.Status != StatusApproved || a.IsExpired(now) {
		return 0
	}
	return a.KYCLevel
}

// Statistics aggregates applications by status and assessed risk level.
type Statistics struct {
	Total       int
	ByStatus    map[ApplicationStatus]int
	ByRiskLevel map[int]int
}
