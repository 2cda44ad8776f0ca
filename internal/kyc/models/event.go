package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "kycflow/pkg/domain"
)

// EventType names a workflow event published to the notification dispatcher.
type EventType string

const (
	EventSubmitted          EventType = "SUBMITTED"
	EventAutoApproved       EventType = "AUTO_APPROVED"
	EventAutoRejected       EventType = "AUTO_REJECTED"
	EventEscalated          EventType = "ESCALATED"
	EventApproved           EventType = "APPROVED"
	EventRejected           EventType = "REJECTED"
	EventSupplementRequired EventType = "SUPPLEMENT_REQUIRED"
)

// Event describes a committed state change.
type Event struct {
	Type          EventType
	ApplicationID id.ApplicationID
	ApplicantID   id.ApplicantID
	Status        ApplicationStatus
	Step          StepIndex
	RiskScore     decimal.Decimal
	RiskLevel     int
	ReviewerID    *id.ReviewerID
	Reason        string
	Resubmission  bool
	OccurredAt    time.Time
}

// NewEvent builds an event from the application state after a transition.
func NewEvent(t EventType, app Application, reviewer *id.ReviewerID, reason string, now time.Time) Event {
	return Event{
		Type:          t,
		ApplicationID: app.ID,
		ApplicantID:   app.ApplicantID,
		Status:        app.Status,
		Step:          app.CurrentStep,
		RiskScore:     app.RiskScore,
		RiskLevel:     app.RiskLevel,
		ReviewerID:    reviewer,
		Reason:        reason,
		OccurredAt:    now,
	}
}
