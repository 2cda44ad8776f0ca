// Package review applies reviewer verdicts to applications awaiting manual
// review, one at a time or in batches.
package review

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"kycflow/internal/kyc/models"
	"kycflow/internal/kyc/workflow"
	id "kycflow/pkg/domain"
	dErrors "kycflow/pkg/domain-errors"
)

const defaultConcurrency = 4

// Decider applies a verdict to the current manual step.
type Decider interface {
	Decide(ctx context.Context, appID id.ApplicationID, v workflow.Verdict) (*models.Application, error)
}

// ReviewRequest is one reviewer decision.
type ReviewRequest struct {
	ApplicationID id.ApplicationID
	ReviewerID    id.ReviewerID
	Result        models.ReviewResult
	Comment       string
	// SupplementRequirement is shown to the applicant on
	// REQUIRES_SUPPLEMENT. Defaults to Comment.
	SupplementRequirement string
}

// Failure is one application a batch could not review.
type Failure struct {
	ApplicationID id.ApplicationID
	Code          dErrors.Code
	Err           error
}

// BatchResult summarises a BatchReview.
type BatchResult struct {
	Total        int
	SuccessCount int
	FailCount    int
	Failures     []Failure
}

type Handler struct {
	decider     Decider
	concurrency int
	logger      *slog.Logger
	tracer      trace.Tracer
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithConcurrency bounds how many applications a batch reviews at once.
func WithConcurrency(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.concurrency = n
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(h *Handler) { h.tracer = t }
}

func New(decider Decider, opts ...Option) (*Handler, error) {
	if decider == nil {
		return nil, errors.New("review: decider is required")
	}
	h := &Handler{
		decider:     decider,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
		tracer:      otel.Tracer("kycflow/review"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Review validates a single decision and applies it.
func (h *Handler) Review(ctx context.Context, req ReviewRequest) (*models.Application, error) {
	if err := validateRequest(req.ApplicationID, req.ReviewerID, req.Result); err != nil {
		return nil, err
	}
	return h.decider.Decide(ctx, req.ApplicationID, workflow.Verdict{
		ReviewerID:  req.ReviewerID,
		Result:      req.Result,
		Comment:     req.Comment,
		Requirement: req.SupplementRequirement,
	})
}

// BatchReview applies the same verdict to many applications. Each
// application commits on its own; one failure does not affect the others.
// Duplicate ids are reviewed once.
func (h *Handler) BatchReview(
	ctx context.Context,
	appIDs []id.ApplicationID,
	reviewerID id.ReviewerID,
	result models.ReviewResult,
	comment string,
) (BatchResult, error) {
	if reviewerID.IsNil() {
		return BatchResult{}, dErrors.New(dErrors.CodeValidation, "reviewer id is required")
	}
	if !result.IsManualVerdict() {
		return BatchResult{}, dErrors.Newf(dErrors.CodeInvalidResult, "result %q is not a reviewer verdict", result)
	}

	ids := dedupe(appIDs)
	ctx, span := h.tracer.Start(ctx, "kyc.batch_review", trace.WithAttributes(
		attribute.Int("batch_size", len(ids)),
		attribute.String("result", string(result)),
	))
	defer span.End()

	var (
		mu  sync.Mutex
		out = BatchResult{Total: len(ids)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)
	for _, appID := range ids {
		g.Go(func() error {
			_, err := h.Review(gctx, ReviewRequest{
				ApplicationID: appID,
				ReviewerID:    reviewerID,
				Result:        result,
				Comment:       comment,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.FailCount++
				out.Failures = append(out.Failures, Failure{ApplicationID: appID, Code: dErrors.CodeOf(err), Err: err})
				return nil
			}
			out.SuccessCount++
			return nil
		})
	}
	// workers only ever return nil
	_ = g.Wait()

	span.SetAttributes(attribute.Int("succeeded", out.SuccessCount), attribute.Int("failed", out.FailCount))
	if out.FailCount > 0 {
		span.SetStatus(codes.Error, "partial batch failure")
	}
	h.logger.InfoContext(ctx, "batch review complete",
		"reviewer_id", reviewerID.String(),
		"result", result,
		"total", out.Total,
		"succeeded", out.SuccessCount,
		"failed", out.FailCount,
	)
	return out, nil
}

func validateRequest(appID id.ApplicationID, reviewerID id.ReviewerID, result models.ReviewResult) error {
	if appID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "application id is required")
	}
	if reviewerID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "reviewer id is required")
	}
	if !result.IsManualVerdict() {
		return dErrors.Newf(dErrors.CodeInvalidResult, "result %q is not a reviewer verdict", result)
	}
	return nil
}

func dedupe(ids []id.ApplicationID) []id.ApplicationID {
	seen := make(map[id.ApplicationID]struct{}, len(ids))
	out := make([]id.ApplicationID, 0, len(ids))
	for _, appID := range ids {
		if _, ok := seen[appID]; ok {
			continue
		}
		seen[appID] = struct{}{}
		out = append(out, appID)
	}
	return out
}
