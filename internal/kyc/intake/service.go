// Package intake accepts KYC submissions: it validates the payload, encrypts
// personal data and persists the applicant's single application as PENDING.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mssola/useragent"
	"github.com/shopspring/decimal"

	"kycflow/internal/kyc/models"
	"kycflow/internal/kyc/ports"
	id "kycflow/pkg/domain"
	dErrors "kycflow/pkg/domain-errors"
	"kycflow/pkg/platform/sentinel"
	"kycflow/pkg/requestcontext"
)

// Store is the persistence intake needs. ExecuteForApplicant passes nil when
// the applicant has no application yet.
type Store interface {
	ExecuteForApplicant(ctx context.Context, applicantID id.ApplicantID, fn func(current *models.Application) (models.Transition, error)) (models.Transition, error)
	Execute(ctx context.Context, appID id.ApplicationID, fn func(current models.Application) (models.Transition, error)) (models.Transition, error)
}

type Service struct {
	store      Store
	codec      ports.PIICodec
	cfg        Config
	dispatcher ports.NotificationDispatcher
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithDispatcher(d ports.NotificationDispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

func NewService(store Store, codec ports.PIICodec, cfg Config, opts ...Option) (*Service, error) {
	if store == nil || codec == nil {
		return nil, errors.New("intake: store and pii codec are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		store:  store,
		codec:  codec,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Accept validates a submission and creates or reopens the applicant's
// application in PENDING.
func (s *Service) Accept(ctx context.Context, applicantID id.ApplicantID, p Payload) (*models.Application, error) {
	if applicantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "applicant id is required")
	}
	now := requestcontext.Now(ctx)

	v, err := validate(p, s.cfg, now)
	if err != nil {
		return nil, err
	}
	pii, err := s.encrypt(v.Payload)
	if err != nil {
		return nil, err
	}
	digest := s.codec.BlindIndex(ports.FieldIdentityNumber, v.IdentityNumber)
	meta := submissionMetadata(ctx)

	fn := func(current *models.Application) (models.Transition, error) {
		var app models.Application
		if current == nil {
			app = models.Application{
				ID:          id.NewApplicationID(),
				ApplicantID: applicantID,
				CreatedAt:   now,
			}
		} else {
			app = *current
			if err := s.checkResubmittable(app, now); err != nil {
				return models.Transition{}, err
			}
		}
		if app.SubmissionCount+1 > s.cfg.MaxSubmissions {
			return models.Transition{}, dErrors.Newf(dErrors.CodeSubmissionLimit,
				"submission limit of %d reached", s.cfg.MaxSubmissions)
		}

		app = reopen(app, now)
		app.KYCLevel = v.KYCLevel
		app.Profile = v.profile
		app.PII = pii
		app.IdentityDigest = digest
		app.Submission = meta
		app.RiskScore = decimal.Zero
		app.RiskLevel = 0
		app.AutoApproved = false
		app.RejectionReason = ""
		app.VerifiedAt = nil
		app.ExpiresAt = nil
		app.LastReviewerID = nil

		return models.Transition{
			Application: app,
			Events:      []models.Event{submitted(app, now)},
		}, nil
	}

	t, err := s.store.ExecuteForApplicant(ctx, applicantID, fn)
	if errors.Is(err, sentinel.ErrConflict) {
		t, err = s.store.ExecuteForApplicant(ctx, applicantID, fn)
	}
	if err != nil {
		return nil, translate(err)
	}

	s.logger.InfoContext(ctx, "kyc submission accepted",
		"application_id", t.Application.ID.String(),
		"applicant_id", applicantID.String(),
		"submission_count", t.Application.SubmissionCount,
		"device", meta.Device,
	)
	s.dispatch(ctx, t.Events)
	return &t.Application, nil
}

// Resubmit reopens an application that a reviewer sent back for
// supplements. It does not start the pre-review.
func (s *Service) Resubmit(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	now := requestcontext.Now(ctx)
	fn := func(current models.Application) (models.Transition, error) {
		if current.Status != models.StatusRequiresResubmit {
			return models.Transition{}, dErrors.Newf(dErrors.CodeStateConflict,
				"application is %s, only REQUIRES_RESUBMIT applications can be resubmitted", current.Status)
		}
		if current.SubmissionCount+1 > s.cfg.MaxSubmissions {
			return models.Transition{}, dErrors.Newf(dErrors.CodeSubmissionLimit,
				"submission limit of %d reached", s.cfg.MaxSubmissions)
		}
		app := reopen(current, now)
		return models.Transition{
			Application: app,
			Events:      []models.Event{submitted(app, now)},
		}, nil
	}

	t, err := s.store.Execute(ctx, appID, fn)
	if errors.Is(err, sentinel.ErrConflict) {
		t, err = s.store.Execute(ctx, appID, fn)
	}
	if err != nil {
		return nil, translate(err)
	}
	s.logger.InfoContext(ctx, "kyc application resubmitted",
		"application_id", appID.String(),
		"submission_count", t.Application.SubmissionCount,
	)
	s.dispatch(ctx, t.Events)
	return &t.Application, nil
}

func (s *Service) checkResubmittable(app models.Application, now time.Time) error {
	switch app.Status {
	case models.StatusApproved:
		if !app.IsExpired(now) {
			return dErrors.New(dErrors.CodeDuplicateApplication, "applicant already holds an approved application")
		}
	case models.StatusUnderReview:
		return dErrors.New(dErrors.CodeStateConflict, "application is under review")
	}
	return nil
}

func (s *Service) encrypt(p Payload) (models.EncryptedPII, error) {
	var out models.EncryptedPII
	for _, f := range []struct {
		field ports.PIIField
		value string
		dst   *string
	}{
		{ports.FieldRealName, p.RealName, &out.RealName},
		{ports.FieldIdentityNumber, p.IdentityNumber, &out.IdentityNumber},
		{ports.FieldAddress, p.Address, &out.Address},
		{ports.FieldPhoneNumber, p.PhoneNumber, &out.PhoneNumber},
		{ports.FieldEmail, p.Email, &out.Email},
		{ports.FieldBankAccount, p.BankAccount, &out.BankAccount},
	} {
		if f.value == "" {
			continue
		}
		ct, err := s.codec.Encrypt(f.field, f.value)
		if err != nil {
			return models.EncryptedPII{}, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("encrypt %s", f.field))
		}
		*f.dst = ct
	}
	return out, nil
}

func (s *Service) dispatch(ctx context.Context, events []models.Event) {
	if s.dispatcher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, e := range events {
		if err := s.dispatcher.Notify(ctx, e); err != nil {
			s.logger.WarnContext(ctx, "event dispatch failed",
				"event_type", e.Type,
				"application_id", e.ApplicationID.String(),
				"error", err,
			)
		}
	}
}

// reopen puts the application back at the start of a fresh pass.
func reopen(app models.Application, now time.Time) models.Application {
	app.Status = models.StatusPending
	app.SubmissionCount++
	app.LastSubmittedAt = now
	app.UpdatedAt = now
	app.CurrentStep = models.StepPreReview
	app.TotalSteps = models.TotalSteps
	app.Steps = models.NewSteps()
	app.ReviewStartedAt = nil
	app.RequiresSupplement = false
	app.SupplementRequirement = ""
	return app
}

func submitted(app models.Application, now time.Time) models.Event {
	e := models.NewEvent(models.EventSubmitted, app, nil, "", now)
	e.Resubmission = app.SubmissionCount > 1
	return e
}

// submissionMetadata reads the caller's network details from the context.
func submissionMetadata(ctx context.Context) models.SubmissionMetadata {
	meta := models.SubmissionMetadata{
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	}
	if meta.UserAgent != "" {
		meta.Device = describeDevice(meta.UserAgent)
	}
	return meta
}

func describeDevice(raw string) string {
	ua := useragent.New(raw)
	if ua.Bot() {
		return "bot"
	}
	browser, version := ua.Browser()
	parts := make([]string, 0, 3)
	if browser != "" {
		if major, _, ok := strings.Cut(version, "."); ok {
			version = major
		}
		parts = append(parts, strings.TrimSpace(browser+" "+version))
	}
	if osName := ua.OS(); osName != "" {
		parts = append(parts, osName)
	}
	if ua.Mobile() {
		parts = append(parts, "mobile")
	}
	return strings.Join(parts, " / ")
}

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
