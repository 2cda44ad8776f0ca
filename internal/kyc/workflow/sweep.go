package workflow

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"kycflow/internal/kyc/models"
	id "kycflow/pkg/domain"
	dErrors "kycflow/pkg/domain-errors"
	"kycflow/pkg/requestcontext"
)

var errNotStalled = errors.New("application is no longer stalled")

// SweepResult summarises one EscalateStalled run.
type SweepResult struct {
	Scanned   int
	Escalated int
	Skipped   int
	Flagged   int
	// Busy counts applications another operation held; the next sweep
	// picks them up again.
	Busy   int
	Failed int
}

// EscalateStalled force-escalates reviews whose current step has exceeded
// the review timeout. It is called periodically by an external scheduler.
// Per-application failures are logged and counted, not returned.
func (o *Orchestrator) EscalateStalled(ctx context.Context) (SweepResult, error) {
	ctx, span := o.tracer.Start(ctx, "kyc.escalate_stalled")
	defer span.End()

	now := requestcontext.Now(ctx)
	ids, err := o.store.ListStalled(ctx, now.Add(-o.cfg.ReviewTimeout), o.cfg.SweepBatchSize)
	if err != nil {
		return SweepResult{}, recordSpanError(span, translate(err))
	}

	result := SweepResult{Scanned: len(ids)}
	for _, appID := range ids {
		if ctx.Err() != nil {
			break
		}
		action, err := o.escalateOne(ctx, appID)
		switch {
		case err == nil:
			switch action {
			case StallEscalated:
				result.Escalated++
			case StallSkipped:
				result.Skipped++
			case StallFlagged:
				result.Flagged++
			}
			o.metrics.IncrementStalled(string(action))
		case errors.Is(err, errNotStalled):
		case dErrors.HasCode(err, dErrors.CodeConflict):
			result.Busy++
		default:
			result.Failed++
			o.logger.ErrorContext(ctx, "stalled review escalation failed",
				"application_id", appID.String(),
				"error", err,
			)
		}
	}

	span.SetAttributes(
		attribute.Int("scanned", result.Scanned),
		attribute.Int("escalated", result.Escalated+result.Skipped+result.Flagged),
	)
	if result.Scanned > 0 {
		o.logger.InfoContext(ctx, "stalled review sweep complete",
			"scanned", result.Scanned,
			"escalated", result.Escalated,
			"skipped", result.Skipped,
			"flagged", result.Flagged,
			"busy", result.Busy,
			"failed", result.Failed,
		)
	}
	return result, nil
}

func (o *Orchestrator) escalateOne(ctx context.Context, appID id.ApplicationID) (StallAction, error) {
	unlock, err := o.acquire(ctx, appID)
	if err != nil {
		return "", err
	}
	defer unlock()

	now := requestcontext.Now(ctx)
	var action StallAction
	_, err = o.execute(ctx, appID, func(current models.Application) (models.Transition, error) {
		t, a, ok := ApplyTimeout(o.cfg, current, now)
		if !ok {
			return models.Transition{}, errNotStalled
		}
		action = a
		return t, nil
	})
	return action, err
}
