// Package workflow drives KYC applications through the four-step review:
// automated pre-review, junior review, senior review and final sign-off.
//
// Every state change is computed by a pure rule (rules.go) against the
// locked current row and committed through Store.Execute together with its
// review records and assessment. Events are dispatched after commit.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kycflow/internal/kyc/lock"
	"kycflow/internal/kyc/metrics"
	"kycflow/internal/kyc/models"
	"kycflow/internal/kyc/ports"
	"kycflow/internal/kyc/risk"
	id "kycflow/pkg/domain"
	dErrors "kycflow/pkg/domain-errors"
	"kycflow/pkg/platform/sentinel"
	"kycflow/pkg/requestcontext"
)

const lockRetryInterval = 25 * time.Millisecond

// Assessor scores a snapshot. *risk.Engine is the production implementation.
type Assessor interface {
	Assess(s risk.Snapshot, checks models.CheckResults) models.RiskAssessment
}

type Orchestrator struct {
	store      Store
	assessor   Assessor
	documents  ports.DocumentRegistry
	compliance ports.ComplianceCheckProvider
	cfg        Config

	intake     Resubmitter
	locker     Locker
	dispatcher ports.NotificationDispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

func WithLocker(l Locker) Option {
	return func(o *Orchestrator) { o.locker = l }
}

func WithDispatcher(d ports.NotificationDispatcher) Option {
	return func(o *Orchestrator) { o.dispatcher = d }
}

// WithResubmitter enables Resubmit.
func WithResubmitter(r Resubmitter) Option {
	return func(o *Orchestrator) { o.intake = r }
}

func New(
	store Store,
	assessor Assessor,
	documents ports.DocumentRegistry,
	compliance ports.ComplianceCheckProvider,
	cfg Config,
	opts ...Option,
) (*Orchestrator, error) {
	if store == nil || assessor == nil || documents == nil || compliance == nil {
		return nil, errors.New("workflow: store, assessor, document registry and compliance provider are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		store:      store,
		assessor:   assessor,
		documents:  documents,
		compliance: compliance,
		cfg:        cfg,
		locker:     lock.NewInMemory(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("kycflow/workflow"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

// Config returns the workflow configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// Start runs the automated pre-review of a PENDING application and routes
// it to approval, rejection or manual review.
func (o *Orchestrator) Start(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	ctx, span := o.startSpan(ctx, "kyc.start", appID)
	defer span.End()

	unlock, err := o.acquire(ctx, appID)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	defer unlock()

	app, err := o.start(ctx, appID)
	return app, recordSpanError(span, err)
}

func (o *Orchestrator) start(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	began := time.Now()
	now := requestcontext.Now(ctx)

	opened, err := o.execute(ctx, appID, func(current models.Application) (models.Transition, error) {
		return BeginPass(current, now)
	})
	if err != nil {
		return nil, err
	}

	checks := o.gatherChecks(ctx, opened.Application)
	assessment, assessErr := o.assess(opened.Application, checks, now)

	var outcome Outcome
	var t models.Transition
	if assessErr != nil {
		o.logger.ErrorContext(ctx, "pre-review failed, escalating to manual review",
			"application_id", appID.String(),
			"error", assessErr,
		)
		outcome = OutcomeEscalated
		t, err = o.execute(ctx, appID, func(current models.Application) (models.Transition, error) {
			return EscalateUnassessed(current, "automated pre-review failed: "+assessErr.Error(), now)
		})
	} else {
		t, err = o.execute(ctx, appID, func(current models.Application) (models.Transition, error) {
			next, routed, err := ApplyPreReview(o.cfg, current, assessment, now)
			outcome = routed
			return next, err
		})
	}
	if err != nil {
		return nil, err
	}

	o.metrics.IncrementDecision(string(outcome))
	o.metrics.ObservePreReviewLatency(time.Since(began))
	if assessErr == nil {
		o.metrics.ObserveRiskScore(assessment.Score.InexactFloat64())
	}
	o.logger.InfoContext(ctx, "pre-review complete",
		"application_id", appID.String(),
		"outcome", outcome,
		"risk_score", t.Application.RiskScore.String(),
		"risk_level", t.Application.RiskLevel,
	)
	return &t.Application, nil
}

func (o *Orchestrator) assess(app models.Application, checks models.CheckResults, now time.Time) (a models.RiskAssessment, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("risk assessment panicked: %v", r)
		}
	}()
	a = o.assessor.Assess(risk.SnapshotOf(app, now), checks)
	a.ID = id.NewAssessmentID()
	a.ApplicationID = app.ID
	return a, nil
}

// Decide applies a reviewer verdict to the current manual step.
func (o *Orchestrator) Decide(ctx context.Context, appID id.ApplicationID, v Verdict) (*models.Application, error) {
	ctx, span := o.startSpan(ctx, "kyc.decide", appID)
	defer span.End()
	span.SetAttributes(attribute.String("result", string(v.Result)))

	unlock, err := o.acquire(ctx, appID)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	defer unlock()

	now := requestcontext.Now(ctx)
	t, err := o.execute(ctx, appID, func(current models.Application) (models.Transition, error) {
		return ApplyVerdict(o.cfg, current, v, now)
	})
	if err != nil {
		return nil, recordSpanError(span, err)
	}

	step := t.Records[0].Step
	o.metrics.IncrementReview(fmt.Sprint(int(step)), string(v.Result))
	o.logger.InfoContext(ctx, "review verdict applied",
		"application_id", appID.String(),
		"reviewer_id", v.ReviewerID.String(),
		"step", int(step),
		"result", v.Result,
		"status", t.Application.Status,
	)
	return &t.Application, nil
}

// Resubmit reopens an application sent back for supplements and runs a
// fresh pre-review.
func (o *Orchestrator) Resubmit(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	ctx, span := o.startSpan(ctx, "kyc.resubmit", appID)
	defer span.End()

	if o.intake == nil {
		return nil, recordSpanError(span, dErrors.New(dErrors.CodeInternal, "resubmission is not configured"))
	}

	unlock, err := o.acquire(ctx, appID)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	defer unlock()

	if _, err := o.intake.Resubmit(ctx, appID); err != nil {
		return nil, recordSpanError(span, err)
	}
	app, err := o.start(ctx, appID)
	return app, recordSpanError(span, err)
}

// execute commits fn through the store, retrying once when another writer
// won the race, then dispatches the committed events.
func (o *Orchestrator) execute(
	ctx context.Context,
	appID id.ApplicationID,
	fn func(current models.Application) (models.Transition, error),
) (models.Transition, error) {
	t, err := o.store.Execute(ctx, appID, fn)
	if errors.Is(err, sentinel.ErrConflict) {
		o.metrics.IncrementConflictRetry()
		o.logger.DebugContext(ctx, "write conflict, retrying transition",
			"application_id", appID.String(),
		)
		t, err = o.store.Execute(ctx, appID, fn)
	}
	if err != nil {
		return models.Transition{}, translate(err)
	}
	o.dispatch(ctx, t.Events)
	return t, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, events []models.Event) {
	if o.dispatcher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, e := range events {
		if err := o.dispatcher.Notify(ctx, e); err != nil {
			o.metrics.IncrementNotification("failed")
			o.logger.WarnContext(ctx, "event dispatch failed",
				"event_type", e.Type,
				"application_id", e.ApplicationID.String(),
				"error", err,
			)
		}
	}
}

// acquire takes the application lease, waiting up to LockWait.
func (o *Orchestrator) acquire(ctx context.Context, appID id.ApplicationID) (func(), error) {
	deadline := time.Now().Add(o.cfg.LockWait)
	for {
		release, err := o.locker.Acquire(ctx, appID.String(), o.cfg.LockTTL)
		if err == nil {
			return func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					o.logger.WarnContext(ctx, "release application lock failed",
						"application_id", appID.String(),
						"error", err,
					)
				}
			}, nil
		}
		if !errors.Is(err, sentinel.ErrLocked) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "acquire application lock")
		}
		if !time.Now().Before(deadline) {
			return nil, dErrors.New(dErrors.CodeConflict, "application is being processed by another operation")
		}
		select {
		case <-ctx.Done():
			return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "waiting for application lock")
		case <-time.After(lockRetryInterval):
		}
	}
}

// translate maps store sentinels to domain codes. Domain errors from rules
// pass through.
func translate(err error) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "application not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "application was modified concurrently")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation cancelled")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist application")
	}
}

func (o *Orchestrator) startSpan(ctx context.Context, name string, appID id.ApplicationID) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("application_id", appID.String())))
}

func recordSpanError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	return err
}
