package compliance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kycflow/internal/kyc/metrics"
	"kycflow/internal/kyc/models"
	"kycflow/internal/kyc/ports"
	"kycflow/pkg/platform/circuit"
)

// ErrCircuitOpen is returned while a check's breaker is open.
var ErrCircuitOpen = errors.New("compliance: circuit open")

// Guarded wraps a provider with one circuit breaker per check. While a
// breaker is open the check is not called and reports UNKNOWN.
type Guarded struct {
	next     ports.ComplianceCheckProvider
	breakers map[models.CheckName]*circuit.Breaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

var _ ports.ComplianceCheckProvider = (*Guarded)(nil)

type GuardedOption func(*Guarded)

func WithLogger(logger *slog.Logger) GuardedOption {
	return func(g *Guarded) { g.logger = logger }
}

func WithMetrics(m *metrics.Metrics) GuardedOption {
	return func(g *Guarded) { g.metrics = m }
}

// NewGuarded builds a Guarded provider. Breaker options apply to every check.
func NewGuarded(next ports.ComplianceCheckProvider, breakerOpts []circuit.Option, opts ...GuardedOption) *Guarded {
	g := &Guarded{
		next:     next,
		breakers: make(map[models.CheckName]*circuit.Breaker, 3),
		logger:   slog.Default(),
	}
	for _, name := range []models.CheckName{models.CheckBlacklist, models.CheckDuplicate, models.CheckAML} {
		g.breakers[name] = circuit.New(string(name), breakerOpts...)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *Guarded) CheckBlacklist(ctx context.Context, applicant ports.Applicant) (models.CheckResult, error) {
	return g.call(ctx, models.CheckBlacklist, applicant, g.next.CheckBlacklist)
}

func (g *Guarded) CheckDuplicate(ctx context.Context, applicant ports.Applicant) (models.CheckResult, error) {
	return g.call(ctx, models.CheckDuplicate, applicant, g.next.CheckDuplicate)
}

func (g *Guarded) CheckAML(ctx context.Context, applicant ports.Applicant) (models.CheckResult, error) {
	return g.call(ctx, models.CheckAML, applicant, g.next.CheckAML)
}

// State exposes a check's breaker state for health reporting.
func (g *Guarded) State(name models.CheckName) circuit.State {
	if b, ok := g.breakers[name]; ok {
		return b.State()
	}
	return circuit.StateClosed
}

func (g *Guarded) call(
	ctx context.Context,
	name models.CheckName,
	applicant ports.Applicant,
	fn func(context.Context, ports.Applicant) (models.CheckResult, error),
) (models.CheckResult, error) {
	b := g.breakers[name]
	if !b.Allow() {
		return models.CheckUnknown, ErrCircuitOpen
	}

	start := time.Now()
	result, err := fn(ctx, applicant)
	if err != nil {
		// cancellation is the caller's doing, not a provider fault
		if ctx.Err() == nil {
			if _, change := b.RecordFailure(); change.Opened {
				g.logger.WarnContext(ctx, "compliance check circuit opened",
					"check", name,
					"error", err,
				)
				g.metrics.IncrementBreakerTransition(string(name), circuit.StateOpen.String())
			}
		}
		return models.CheckUnknown, err
	}
	if _, change := b.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "compliance check circuit closed",
			"check", name,
			"latency_ms", time.Since(start).Milliseconds(),
		)
		g.metrics.IncrementBreakerTransition(string(name), circuit.StateClosed.String())
	}
	return result, nil
}
