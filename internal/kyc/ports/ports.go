// Package ports declares the collaborators the KYC workflow depends on.
// Production adapters live next to the workflow (compliance, documents, pii,
// notify); tests use the generated mocks.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"kycflow/internal/kyc/models"
	id "kycflow/pkg/domain"
)

// Applicant is what compliance providers receive. Identifying fields are
// ciphertext or blind indexes; providers that need plaintext hold their own
// codec access.
type Applicant struct {
	ApplicationID           id.ApplicationID
	ApplicantID             id.ApplicantID
	Nationality             string
	Country                 string
	BirthDate               *time.Time
	IdentityDigest          string
	EncryptedRealName       string
	EncryptedIdentityNumber string
}

// ApplicantOf builds the provider view of an application.
func ApplicantOf(app models.Application) Applicant {
	return Applicant{
		ApplicationID:           app.ID,
		ApplicantID:             app.ApplicantID,
		Nationality:             app.Profile.Nationality,
		Country:                 app.Profile.Country,
		BirthDate:               app.Profile.BirthDate,
		IdentityDigest:          app.IdentityDigest,
		EncryptedRealName:       app.PII.RealName,
		EncryptedIdentityNumber: app.PII.IdentityNumber,
	}
}

// DocumentRegistry answers whether an application has the identity
// documents the pre-review needs.
type DocumentRegistry interface {
	HasRequiredDocuments(ctx context.Context, applicationID id.ApplicationID) (bool, error)
}

// ComplianceCheckProvider screens an applicant. Each check returns PASS or
// FAIL; an error means the outcome is unknown.
type ComplianceCheckProvider interface {
	CheckBlacklist(ctx context.Context, applicant Applicant) (models.CheckResult, error)
	CheckDuplicate(ctx context.Context, applicant Applicant) (models.CheckResult, error)
	CheckAML(ctx context.Context, applicant Applicant) (models.CheckResult, error)
}

// PIIField names a protected field. Codecs may bind it into the ciphertext
// so a value cannot be moved between fields.
type PIIField string

const (
	FieldRealName       PIIField = "real_name"
	FieldIdentityNumber PIIField = "identity_number"
	FieldAddress        PIIField = "address"
	FieldPhoneNumber    PIIField = "phone_number"
	FieldEmail          PIIField = "email"
	FieldBankAccount    PIIField = "bank_account"
)

// PIICodec encrypts personal data before it is persisted.
type PIICodec interface {
	Encrypt(field PIIField, plaintext string) (string, error)
	Decrypt(field PIIField, ciphertext string) (string, error)
	// BlindIndex returns a keyed, deterministic digest usable for equality
	// lookups without decryption.
	BlindIndex(field PIIField, plaintext string) string
}

// NotificationDispatcher delivers workflow events. Callers treat delivery as
// fire-and-forget relative to the committed state change.
type NotificationDispatcher interface {
	Notify(ctx context.Context, event models.Event) error
}
