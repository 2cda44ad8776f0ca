package workflow

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"kycflow/internal/kyc/models"
	"kycflow/internal/kyc/ports"
)

// gatherChecks runs the compliance and document checks in parallel. It never
// fails: a check that errors, times out or panics is UNKNOWN.
func (o *Orchestrator) gatherChecks(ctx context.Context, app models.Application) models.CheckResults {
	ctx, span := o.tracer.Start(ctx, "kyc.gather_checks")
	defer span.End()

	applicant := ports.ApplicantOf(app)
	var (
		mu      sync.Mutex
		results models.CheckResults
	)
	set := func(name models.CheckName, r models.CheckResult) {
		mu.Lock()
		results = results.Set(name, r)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	run := func(name models.CheckName, enabled bool, fn func(context.Context) (models.CheckResult, error)) {
		if !enabled {
			set(name, models.CheckPass)
			return
		}
		g.Go(func() error {
			set(name, o.runCheck(gctx, app, name, fn))
			return nil
		})
	}

	run(models.CheckBlacklist, o.cfg.EnableBlacklistCheck, func(ctx context.Context) (models.CheckResult, error) {
		return o.compliance.CheckBlacklist(ctx, applicant)
	})
	run(models.CheckDuplicate, o.cfg.EnableDuplicateCheck, func(ctx context.Context) (models.CheckResult, error) {
		return o.compliance.CheckDuplicate(ctx, applicant)
	})
	run(models.CheckAML, o.cfg.EnableAMLCheck, func(ctx context.Context) (models.CheckResult, error) {
		return o.compliance.CheckAML(ctx, applicant)
	})
	run(models.CheckIdentityDocuments, true, func(ctx context.Context) (models.CheckResult, error) {
		ok, err := o.documents.HasRequiredDocuments(ctx, app.ID)
		if err != nil {
			return models.CheckUnknown, err
		}
		return models.CheckFromBool(ok), nil
	})

	// goroutines only ever return nil
	_ = g.Wait()

	for _, nc := range results.All() {
		span.SetAttributes(attribute.String("check."+string(nc.Name), nc.Result.String()))
	}
	return results
}

func (o *Orchestrator) runCheck(
	ctx context.Context,
	app models.Application,
	name models.CheckName,
	fn func(context.Context) (models.CheckResult, error),
) (result models.CheckResult) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.CheckTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.logger.ErrorContext(ctx, "compliance check panicked",
				"check", name,
				"application_id", app.ID.String(),
				"panic", r,
			)
			result = models.CheckUnknown
		}
		o.metrics.ObserveCheck(string(name), result.String(), time.Since(start))
	}()

	result, err := fn(ctx)
	if err != nil {
		o.logger.WarnContext(ctx, "compliance check failed, treating as unknown",
			"check", name,
			"application_id", app.ID.String(),
			"error", err,
		)
		return models.CheckUnknown
	}
	if result != models.CheckPass && result != models.CheckFail {
		return models.CheckUnknown
	}
	return result
}
