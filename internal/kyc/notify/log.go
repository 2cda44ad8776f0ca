package notify

import (
	"context"
	"log/slog"

	"kycflow/internal/kyc/models"
	"kycflow/internal/kyc/ports"
)

// Log writes events to the structured log. It is the fallback transport
// when no broker is configured.
type Log struct {
	logger *slog.Logger
}

var _ ports.NotificationDispatcher = (*Log)(nil)

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, event models.Event) error {
	l.logger.InfoContext(ctx, "kyc event",
		"event_type", event.Type,
		"application_id", event.ApplicationID.String(),
		"applicant_id", event.ApplicantID.String(),
		"status", event.Status,
		"step", int(event.Step),
		"risk_level", event.RiskLevel,
		"reason", event.Reason,
	)
	return nil
}
