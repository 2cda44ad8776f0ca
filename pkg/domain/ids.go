// Package domain holds typed identifiers shared across the KYC modules.
//
// Each identifier wraps a UUID but is a distinct type, so an ApplicantID can
// never be passed where an ApplicationID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "kycflow/pkg/domain-errors"
)

type (
	ApplicationID uuid.UUID
	ApplicantID   uuid.UUID
	ReviewerID    uuid.UUID
	RecordID      uuid.UUID
	AssessmentID  uuid.UUID
)

// NewApplicationID returns a random application identifier.
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

// NewRecordID returns a random review record identifier.
func NewRecordID() RecordID { return RecordID(uuid.New()) }

// NewAssessmentID returns a random assessment identifier.
func NewAssessmentID() AssessmentID { return AssessmentID(uuid.New()) }

func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id ApplicantID) String() string   { return uuid.UUID(id).String() }
func (id ReviewerID) String() string    { return uuid.UUID(id).String() }
func (id RecordID) String() string      { return uuid.UUID(id).String() }
func (id AssessmentID) String() string  { return uuid.UUID(id).String() }

func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ApplicantID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ReviewerID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// ParseApplicationID parses a non-nil application identifier.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s, "application")
	return ApplicationID(u), err
}

// ParseApplicantID parses a non-nil applicant identifier.
func ParseApplicantID(s string) (ApplicantID, error) {
	u, err := parseUUID(s, "applicant")
	return ApplicantID(u), err
}

// ParseReviewerID parses a non-nil reviewer identifier.
func ParseReviewerID(s string) (ReviewerID, error) {
	u, err := parseUUID(s, "reviewer")
	return ReviewerID(u), err
}

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be nil")
	}
	return u, nil
}
