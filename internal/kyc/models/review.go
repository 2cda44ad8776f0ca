package models

import (
	"time"

	id "kycflow/pkg/domain"
)

// ReviewResult is the verdict recorded on a step or review record.
type ReviewResult string

const (
	ResultApproved            ReviewResult = "APPROVED"
	ResultRejected            ReviewResult = "REJECTED"
	ResultRequiresSupplement  ReviewResult = "REQUIRES_SUPPLEMENT"
	ResultPendingHigherReview ReviewResult = "PENDING_HIGHER_REVIEW"
	ResultAutoApproved        ReviewResult = "AUTO_APPROVED"
	ResultAutoRejected        ReviewResult = "AUTO_REJECTED"
	ResultRequiresManual      ReviewResult = "REQUIRES_MANUAL_REVIEW"
	ResultTimedOut            ReviewResult = "TIMED_OUT"
)

// IsManualVerdict reports whether a reviewer may submit the result.
func (r ReviewResult) IsManualVerdict() bool {
	switch r {
	case ResultApproved, ResultRejected, ResultRequiresSupplement:
		return true
	}
	return false
}

// ReviewRecord is one append-only entry of the decision trail.
// ReviewerID is nil for system decisions.
type ReviewRecord struct {
	ID            id.RecordID
	ApplicationID id.ApplicationID
	ReviewerID    *id.ReviewerID
	Step          StepIndex
	Result        ReviewResult
	Note          string
	CreatedAt     time.Time
}

// IsSystem reports whether the record was written by the workflow itself.
func (r ReviewRecord) IsSystem() bool { return r.ReviewerID == nil }
