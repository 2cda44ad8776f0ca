package notify

import (
	"time"

	"kycflow/internal/kyc/models"
)

// Message is the JSON wire form of a workflow event.
type Message struct {
	Type          string    `json:"type"`
	ApplicationID string    `json:"application_id"`
	ApplicantID   string    `json:"applicant_id"`
	Status        string    `json:"status"`
	Step          int       `json:"step"`
	RiskScore     string    `json:"risk_score"`
	RiskLevel     int       `json:"risk_level"`
	ReviewerID    string    `json:"reviewer_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Resubmission  bool      `json:"resubmission,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// MessageOf converts an event to its wire form. Scores are sent as decimal
// strings so consumers do not lose precision.
func MessageOf(e models.Event) Message {
	msg := Message{
		Type:          string(e.Type),
		ApplicationID: e.ApplicationID.String(),
		ApplicantID:   e.ApplicantID.String(),
		Status:        string(e.Status),
		Step:          int(e.Step),
		RiskScore:     e.RiskScore.StringFixed(2),
		RiskLevel:     e.RiskLevel,
		Reason:        e.Reason,
		Resubmission:  e.Resubmission,
		OccurredAt:    e.OccurredAt.UTC(),
	}
	if e.ReviewerID != nil {
		msg.ReviewerID = e.ReviewerID.String()
	}
	return msg
}
