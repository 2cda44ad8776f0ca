package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kycflow/internal/kyc/models"
	"kycflow/internal/kyc/ports"
	"kycflow/internal/kyc/ports/mocks"
	"kycflow/internal/kyc/store"
	id "kycflow/pkg/domain"
	dErrors "kycflow/pkg/domain-errors"
	"kycflow/pkg/requestcontext"
	"kycflow/pkg/testutil"
)

const chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	codec      *mocks.MockPIICodec
	dispatcher *mocks.MockNotificationDispatcher
	store      *store.InMemory
	service    *Service
	clock      *testutil.Clock
	applicant  id.ApplicantID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.codec = mocks.NewMockPIICodec(s.ctrl)
	s.dispatcher = mocks.NewMockNotificationDispatcher(s.ctrl)
	s.store = store.NewInMemory()
	s.clock = testutil.NewClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	s.applicant = id.ApplicantID(uuid.New())

	s.codec.EXPECT().Encrypt(gomock.Any(), gomock.Any()).DoAndReturn(
		func(field ports.PIIField, plaintext string) (string, error) {
			return "enc:" + string(field), nil
		}).AnyTimes()
	s.codec.EXPECT().BlindIndex(ports.FieldIdentityNumber, gomock.Any()).Return("digest-1").AnyTimes()

	var err error
	s.service, err = NewService(s.store, s.codec, DefaultConfig(), WithDispatcher(s.dispatcher))
	s.Require().NoError(err)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) ctx() context.Context {
	return s.clock.Context(context.Background())
}

func (s *ServiceSuite) expectSubmitted(resubmission bool) {
	s.dispatcher.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e models.Event) error {
			s.Equal(models.EventSubmitted, e.Type)
			s.Equal(resubmission, e.Resubmission)
			return nil
		})
}

func (s *ServiceSuite) setStatus(appID id.ApplicationID, status models.ApplicationStatus, mutate func(*models.Application)) {
	_, err := s.store.Execute(context.Background(), appID, func(current models.Application) (models.Transition, error) {
		current.Status = status
		if mutate != nil {
			mutate(&current)
		}
		return models.Transition{Application: current}, nil
	})
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestAccept() {
	s.Run("first submission creates a pending application", func() {
		s.SetupTest()
		s.expectSubmitted(false)

		ctx := requestcontext.WithClientMetadata(s.ctx(), "203.0.113.9", chromeMac)
		app, err := s.service.Accept(ctx, s.applicant, validPayload())
		s.Require().NoError(err)

		s.Equal(models.StatusPending, app.Status)
		s.Equal(1, app.SubmissionCount)
		s.Equal(s.clock.Now(), app.LastSubmittedAt)
		s.Equal(models.StepPreReview, app.CurrentStep)
		s.True(app.Steps.Created())
		s.Equal("enc:real_name", app.PII.RealName)
		s.Equal("enc:bank_account", app.PII.BankAccount)
		s.Equal("digest-1", app.IdentityDigest)
		s.Equal("203.0.113.9", app.Submission.ClientIP)
		s.Contains(app.Submission.Device, "Chrome 120")
		s.Equal(1, app.KYCLevel)
	})

	s.Run("plaintext never reaches the stored application", func() {
		s.SetupTest()
		s.expectSubmitted(false)
		app, err := s.service.Accept(s.ctx(), s.applicant, validPayload())
		s.Require().NoError(err)
		stored, err := s.store.FindByID(context.Background(), app.ID)
		s.Require().NoError(err)
		s.NotContains(stored.PII.RealName, "Li Wei")
		s.NotContains(stored.PII.IdentityNumber, "44030419900307123X")
	})

	s.Run("invalid payload is rejected before persistence", func() {
		s.SetupTest()
		p := validPayload()
		p.Address = ""
		_, err := s.service.Accept(s.ctx(), s.applicant, p)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.store.FindByApplicant(context.Background(), s.applicant)
		s.Error(err)
	})

	s.Run("resubmitting after rejection reuses the application", func() {
		s.SetupTest()
		s.expectSubmitted(false)
		first, err := s.service.Accept(s.ctx(), s.applicant, validPayload())
		s.Require().NoError(err)
		s.setStatus(first.ID, models.StatusRejected, func(a *models.Application) { a.RejectionReason = "blacklisted" })

		s.clock.Advance(time.Hour)
		s.expectSubmitted(true)
		second, err := s.service.Accept(s.ctx(), s.applicant, validPayload())
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)
		s.Equal(2, second.SubmissionCount)
		s.Equal(models.StatusPending, second.Status)
		s.Empty(second.RejectionReason)
	})

	s.Run("approved applicant cannot submit again", func() {
		s.SetupTest()
		s.expectSubmitted(false)
		app, err := s.service.Accept(s.ctx(), s.applicant, validPayload())
		s.Require().NoError(err)
		expires := s.clock.Now().Add(365 * 24 * time.Hour)
		s.setStatus(app.ID, models.StatusApproved, func(a *models.Application) { a.ExpiresAt = &expires })

		_, err = s.service.Accept(s.ctx(), s.applicant, validPayload())
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateApplication))
	})

	s.Run("expired approval may be renewed", func() {
		s.SetupTest()
		s.expectSubmitted(false)
		app, err := s.service.Accept(s.ctx(), s.applicant, validPayload())
		s.Require().NoError(err)
		expires := s.clock.Now().Add(time.Hour)
		s.setStatus(app.ID, models.StatusApproved, func(a *models.Application) { a.ExpiresAt = &expires })

		s.clock.Advance(2 * time.Hour)
		s.expectSubmitted(true)
		renewed, err := s.service.Accept(s.ctx(), s.applicant, validPayload())
		s.Require().NoError(err)
		s.Equal(models.StatusPending, renewed.Status)
		s.Nil(renewed.ExpiresAt)
	})

	s.Run("application under review cannot be replaced", func() {
		s.SetupTest()
		s.expectSubmitted(false)
		app, err := s.service.Accept(s.ctx(), s.applicant, validPayload())
		s.Require().NoError(err)
		s.setStatus(app.ID, models.StatusUnderReview, nil)

		_, err = s.service.Accept(s.ctx(), s.applicant, validPayload())
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("submission limit is enforced", func() {
		s.SetupTest()
		s.dispatcher.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).Times(3)
		var appID id.ApplicationID
		for range 3 {
			app, err := s.service.Accept(s.ctx(), s.applicant, validPayload())
			s.Require().NoError(err)
			appID = app.ID
			s.setStatus(appID, models.StatusRejected, nil)
		}
		_, err := s.service.Accept(s.ctx(), s.applicant, validPayload())
		s.True(dErrors.HasCode(err, dErrors.CodeSubmissionLimit))

		stored, err := s.store.FindByID(context.Background(), appID)
		s.Require().NoError(err)
		s.Equal(3, stored.SubmissionCount)
	})

	s.Run("dispatch failure does not fail the submission", func() {
		s.SetupTest()
		s.dispatcher.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
		app, err := s.service.Accept(s.ctx(), s.applicant, validPayload())
		s.Require().NoError(err)
		s.Equal(models.StatusPending, app.Status)
	})

	s.Run("encryption failure surfaces as internal error", func() {
		s.SetupTest()
		codec := mocks.NewMockPIICodec(s.ctrl)
		codec.EXPECT().Encrypt(gomock.Any(), gomock.Any()).Return("", errors.New("key unavailable"))
		svc, err := NewService(s.store, codec, DefaultConfig())
		s.Require().NoError(err)

		_, err = svc.Accept(s.ctx(), s.applicant, validPayload())
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestResubmit() {
	s.Run("reopens a supplement request as a new pass", func() {
		s.SetupTest()
		s.expectSubmitted(false)
		app, err := s.service.Accept(s.ctx(), s.applicant, validPayload())
		s.Require().NoError(err)
		s.setStatus(app.ID, models.StatusRequiresResubmit, func(a *models.Application) {
			a.RequiresSupplement = true
			a.SupplementRequirement = "clearer selfie"
			a.CurrentStep = models.StepSeniorReview
		})

		s.expectSubmitted(true)
		reopened, err := s.service.Resubmit(s.ctx(), app.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, reopened.Status)
		s.Equal(2, reopened.SubmissionCount)
		s.False(reopened.RequiresSupplement)
		s.Empty(reopened.SupplementRequirement)
		s.Equal(models.StepPreReview, reopened.CurrentStep)
		for i := models.StepPreReview; i <= models.StepFinalSignOff; i++ {
			s.Equal(models.StepPending, reopened.Steps.At(i).Status)
		}
	})

	s.Run("only REQUIRES_RESUBMIT applications can be resubmitted", func() {
		s.SetupTest()
		s.expectSubmitted(false)
		app, err := s.service.Accept(s.ctx(), s.applicant, validPayload())
		s.Require().NoError(err)

		_, err = s.service.Resubmit(s.ctx(), app.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("limit applies to resubmission", func() {
		s.SetupTest()
		s.expectSubmitted(false)
		app, err := s.service.Accept(s.ctx(), s.applicant, validPayload())
		s.Require().NoError(err)
		s.setStatus(app.ID, models.StatusRequiresResubmit, func(a *models.Application) { a.SubmissionCount = 3 })

		_, err = s.service.Resubmit(s.ctx(), app.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeSubmissionLimit))
	})

	s.Run("unknown application", func() {
		s.SetupTest()
		_, err := s.service.Resubmit(s.ctx(), id.NewApplicationID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestDescribeDevice(t *testing.T) {
	assert.Contains(t, describeDevice(chromeMac), "Chrome 120")
	assert.Contains(t, describeDevice(chromeMac), "Mac OS X")
	assert.Equal(t, "bot", describeDevice("Googlebot/2.1 (+http://www.google.com/bot.html)"))
}
