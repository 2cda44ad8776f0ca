package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"kycflow/internal/kyc/models"
	id "kycflow/pkg/domain"
	"kycflow/pkg/platform/sentinel"
	txcontext "kycflow/pkg/platform/tx"
)

// Postgres persists applications, steps, assessments and review records.
// Execute takes a row lock on the application (SELECT ... FOR UPDATE) and
// rejects stale writes through the version column.
type Postgres struct {
	db        *sql.DB
	txTimeout time.Duration
}

// NewPostgres creates a Postgres store over a database/sql handle opened
// with the pgx stdlib driver.
func NewPostgres(db *sql.DB, txTimeout time.Duration) *Postgres {
	return &Postgres{db: db, txTimeout: txTimeout}
}

var applicationColumns = []string{
	"id", "applicant_id", "status", "kyc_level", "risk_score", "risk_level",
	"current_step", "total_steps", "submission_count", "rejection_count",
	"requires_supplement", "supplement_requirement", "rejection_reason", "auto_approved",
	"id_type", "birth_date", "nationality", "country", "occupation", "income_bracket",
	"pii_real_name", "pii_identity_number", "pii_address", "pii_phone_number", "pii_email", "pii_bank_account",
	"identity_digest", "client_ip", "user_agent", "device", "last_reviewer_id",
	"created_at", "updated_at", "last_submitted_at", "review_started_at", "verified_at", "expires_at",
	"version",
}

var (
	selectApplicationSQL = "SELECT " + strings.Join(applicationColumns, ", ") + " FROM kyc_applications"
	insertApplicationSQL = insertStatement("kyc_applications", applicationColumns)
	updateApplicationSQL = updateStatement("kyc_applications", applicationColumns)
)

const upsertStepSQL = `
	INSERT INTO kyc_workflow_steps (
		application_id, step_number, status, assigned_reviewer_id, actual_reviewer_id,
		result, comment, started_at, completed_at, escalated_at, processing_minutes,
		needs_attention, attention_reason
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (application_id, step_number) DO UPDATE SET
		status = EXCLUDED.status,
		assigned_reviewer_id = EXCLUDED.assigned_reviewer_id,
		actual_reviewer_id = EXCLUDED.actual_reviewer_id,
		result = EXCLUDED.result,
		comment = EXCLUDED.comment,
		started_at = EXCLUDED.started_at,
		completed_at = EXCLUDED.completed_at,
		escalated_at = EXCLUDED.escalated_at,
		processing_minutes = EXCLUDED.processing_minutes,
		needs_attention = EXCLUDED.needs_attention,
		attention_reason = EXCLUDED.attention_reason
`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Postgres) q(ctx context.Context) queryer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	return s.load(ctx, s.q(ctx), " WHERE id = $1", uuid.UUID(appID))
}

func (s *Postgres) FindByApplicant(ctx context.Context, applicantID id.ApplicantID) (*models.Application, error) {
	return s.load(ctx, s.q(ctx), " WHERE applicant_id = $1", uuid.UUID(applicantID))
}

func (s *Postgres) Execute(ctx context.Context, appID id.ApplicationID, fn func(current models.Application) (models.Transition, error)) (models.Transition, error) {
	var committed models.Transition
	err := txcontext.Run(ctx, s.db, s.txTimeout, func(ctx context.Context, tx *sql.Tx) error {
		current, err := s.load(ctx, tx, " WHERE id = $1 FOR UPDATE", uuid.UUID(appID))
		if err != nil {
			return err
		}
		t, err := fn(*current)
		if err != nil {
			return err
		}
		committed, err = s.persist(ctx, tx, current.Version, t, false)
		return err
	})
	if err != nil {
		return models.Transition{}, mapError(err)
	}
	return committed, nil
}

func (s *Postgres) ExecuteForApplicant(ctx context.Context, applicantID id.ApplicantID, fn func(current *models.Application) (models.Transition, error)) (models.Transition, error) {
	var committed models.Transition
	err := txcontext.Run(ctx, s.db, s.txTimeout, func(ctx context.Context, tx *sql.Tx) error {
		current, err := s.load(ctx, tx, " WHERE applicant_id = $1 FOR UPDATE", uuid.UUID(applicantID))
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		t, err := fn(current)
		if err != nil {
			return err
		}
		if current == nil {
			committed, err = s.persist(ctx, tx, 0, t, true)
			return err
		}
		committed, err = s.persist(ctx, tx, current.Version, t, false)
		return err
	})
	if err != nil {
		return models.Transition{}, mapError(err)
	}
	return committed, nil
}

func (s *Postgres) persist(ctx context.Context, tx *sql.Tx, expectedVersion int, t models.Transition, insert bool) (models.Transition, error) {
	app := t.Application
	app.Version = expectedVersion + 1

	if insert {
		if _, err := tx.ExecContext(ctx, insertApplicationSQL, applicationArgs(app)...); err != nil {
			return models.Transition{}, fmt.Errorf("insert application: %w", err)
		}
	} else {
		args := append(applicationArgs(app), expectedVersion)
		res, err := tx.ExecContext(ctx, updateApplicationSQL, args...)
		if err != nil {
			return models.Transition{}, fmt.Errorf("update application: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return models.Transition{}, fmt.Errorf("update application: %w", err)
		}
		if n == 0 {
			return models.Transition{}, sentinel.ErrConflict
		}
	}

	if app.Steps.Created() {
		for _, step := range app.Steps {
			_, err := tx.ExecContext(ctx, upsertStepSQL,
				uuid.UUID(app.ID), int(step.Number), string(step.Status),
				nullReviewer(step.AssignedReviewerID), nullReviewer(step.ActualReviewerID),
				string(step.Result), step.Comment,
				nullTime(step.StartedAt), nullTime(step.CompletedAt), nullTime(step.EscalatedAt), step.ProcessingMinutes,
				step.NeedsAttention, step.AttentionReason,
			)
			if err != nil {
				return models.Transition{}, fmt.Errorf("upsert step %d: %w", step.Number, err)
			}
		}
	}

	if a := t.Assessment; a != nil {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kyc_risk_assessments (
				id, application_id, age_score, location_score, occupation_score, income_score,
				blacklist_check, duplicate_check, aml_check, documents_check,
				base_score, penalty, score, risk_level, recommendation,
				requires_manual_review, assessed_at, model_version
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			uuid.UUID(a.ID), uuid.UUID(app.ID), a.AgeScore, a.LocationScore, a.OccupationScore, a.IncomeScore,
			a.Checks.Blacklist.String(), a.Checks.Duplicate.String(), a.Checks.AML.String(), a.Checks.IdentityDocuments.String(),
			a.BaseScore, a.Penalty, a.Score, a.RiskLevel, a.Recommendation,
			a.RequiresManualReview, a.AssessedAt, a.ModelVersion,
		)
		if err != nil {
			return models.Transition{}, fmt.Errorf("insert assessment: %w", err)
		}
	}

	for _, r := range t.Records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kyc_review_records (id, application_id, reviewer_id, step_number, result, note, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.UUID(r.ID), uuid.UUID(r.ApplicationID), nullReviewer(r.ReviewerID),
			int(r.Step), string(r.Result), r.Note, r.CreatedAt,
		)
		if err != nil {
			return models.Transition{}, fmt.Errorf("insert review record: %w", err)
		}
	}

	t.Application = app
	return t, nil
}

func (s *Postgres) load(ctx context.Context, q queryer, where string, arg any) (*models.Application, error) {
	app, err := scanApplication(q.QueryRowContext(ctx, selectApplicationSQL+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load application: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT step_number, status, assigned_reviewer_id, actual_reviewer_id, result, comment,
			started_at, completed_at, escalated_at, processing_minutes, needs_attention, attention_reason
		FROM kyc_workflow_steps
		WHERE application_id = $1
		ORDER BY step_number`, uuid.UUID(app.ID))
	if err != nil {
		return nil, fmt.Errorf("load steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			step               models.WorkflowStep
			number             int
			status, result     string
			assigned, actual   uuid.NullUUID
			started, completed sql.NullTime
			escalated          sql.NullTime
		)
		if err := rows.Scan(&number, &status, &assigned, &actual, &result, &step.Comment,
			&started, &completed, &escalated, &step.ProcessingMinutes, &step.NeedsAttention, &step.AttentionReason); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		step.Status = models.StepStatus(status)
		step.Result = models.ReviewResult(result)
		step.AssignedReviewerID = reviewerPtr(assigned)
		step.ActualReviewerID = reviewerPtr(actual)
		step.StartedAt = timePtr(started)
		step.CompletedAt = timePtr(completed)
		step.EscalatedAt = timePtr(escalated)
		app.Steps = app.Steps.With(models.StepIndex(number), step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return app, nil
}

func scanApplication(row *sql.Row) (*models.Application, error) {
	var (
		app                                  models.Application
		appID, applicantID                   uuid.UUID
		status, idType                       string
		currentStep                          int
		birthDate                            sql.NullTime
		lastReviewer                         uuid.NullUUID
		reviewStarted, verifiedAt, expiresAt sql.NullTime
	)
	err := row.Scan(
		&appID, &applicantID, &status, &app.KYCLevel, &app.RiskScore, &app.RiskLevel,
		&currentStep, &app.TotalSteps, &app.SubmissionCount, &app.RejectionCount,
		&app.RequiresSupplement, &app.SupplementRequirement, &app.RejectionReason, &app.AutoApproved,
		&idType, &birthDate, &app.Profile.Nationality, &app.Profile.Country, &app.Profile.Occupation, &app.Profile.IncomeBracket,
		&app.PII.RealName, &app.PII.IdentityNumber, &app.PII.Address, &app.PII.PhoneNumber, &app.PII.Email, &app.PII.BankAccount,
		&app.IdentityDigest, &app.Submission.ClientIP, &app.Submission.UserAgent, &app.Submission.Device, &lastReviewer,
		&app.CreatedAt, &app.UpdatedAt, &app.LastSubmittedAt, &reviewStarted, &verifiedAt, &expiresAt,
		&app.Version,
	)
	if err != nil {
		return nil, err
	}
	app.ID = id.ApplicationID(appID)
	app.ApplicantID = id.ApplicantID(applicantID)
	app.Status = models.ApplicationStatus(status)
	app.CurrentStep = models.StepIndex(currentStep)
	app.Profile.IDType = models.IDType(idType)
	app.Profile.BirthDate = timePtr(birthDate)
	app.LastReviewerID = reviewerPtr(lastReviewer)
	app.ReviewStartedAt = timePtr(reviewStarted)
	app.VerifiedAt = timePtr(verifiedAt)
	app.ExpiresAt = timePtr(expiresAt)
	return &app, nil
}

// applicationArgs must follow applicationColumns order.
func applicationArgs(app models.Application) []any {
	return []any{
		uuid.UUID(app.ID), uuid.UUID(app.ApplicantID), string(app.Status), app.KYCLevel, app.RiskScore, app.RiskLevel,
		int(app.CurrentStep), app.TotalSteps, app.SubmissionCount, app.RejectionCount,
		app.RequiresSupplement, app.SupplementRequirement, app.RejectionReason, app.AutoApproved,
		string(app.Profile.IDType), nullTime(app.Profile.BirthDate), app.Profile.Nationality, app.Profile.Country, app.Profile.Occupation, app.Profile.IncomeBracket,
		app.PII.RealName, app.PII.IdentityNumber, app.PII.Address, app.PII.PhoneNumber, app.PII.Email, app.PII.BankAccount,
		app.IdentityDigest, app.Submission.ClientIP, app.Submission.UserAgent, app.Submission.Device, nullReviewer(app.LastReviewerID),
		app.CreatedAt, app.UpdatedAt, app.LastSubmittedAt, nullTime(app.ReviewStartedAt), nullTime(app.VerifiedAt), nullTime(app.ExpiresAt),
		app.Version,
	}
}

func (s *Postgres) ListStalled(ctx context.Context, startedBefore time.Time, limit int) ([]id.ApplicationID, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT a.id
		FROM kyc_applications a
		JOIN kyc_workflow_steps st ON st.application_id = a.id AND st.step_number = a.current_step
		WHERE a.status = $1 AND st.status = $2 AND COALESCE(st.escalated_at, st.started_at) < $3
		ORDER BY COALESCE(st.escalated_at, st.started_at)
		LIMIT $4`,
		string(models.StatusUnderReview), string(models.StepInProgress), startedBefore, limitArg)
	if err != nil {
		return nil, fmt.Errorf("list stalled: %w", err)
	}
	defer rows.Close()

	var ids []id.ApplicationID
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan stalled id: %w", err)
		}
		ids = append(ids, id.ApplicationID(u))
	}
	return ids, rows.Err()
}

func (s *Postgres) Records(ctx context.Context, appID id.ApplicationID) ([]models.ReviewRecord, error) {
	if err := s.exists(ctx, appID); err != nil {
		return nil, err
	}
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, reviewer_id, step_number, result, note, created_at
		FROM kyc_review_records
		WHERE application_id = $1
		ORDER BY seq`, uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("list review records: %w", err)
	}
	defer rows.Close()

	var records []models.ReviewRecord
	for rows.Next() {
		var (
			r        models.ReviewRecord
			recordID uuid.UUID
			reviewer uuid.NullUUID
			step     int
			result   string
		)
		if err := rows.Scan(&recordID, &reviewer, &step, &result, &r.Note, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review record: %w", err)
		}
		r.ID = id.RecordID(recordID)
		r.ApplicationID = appID
		r.ReviewerID = reviewerPtr(reviewer)
		r.Step = models.StepIndex(step)
		r.Result = models.ReviewResult(result)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Postgres) Assessments(ctx context.Context, appID id.ApplicationID) ([]models.RiskAssessment, error) {
	if err := s.exists(ctx, appID); err != nil {
		return nil, err
	}
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, age_score, location_score, occupation_score, income_score,
			blacklist_check, duplicate_check, aml_check, documents_check,
			base_score, penalty, score, risk_level, recommendation,
			requires_manual_review, assessed_at, model_version
		FROM kyc_risk_assessments
		WHERE application_id = $1
		ORDER BY seq`, uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	var out []models.RiskAssessment
	for rows.Next() {
		var (
			a                                    models.RiskAssessment
			assessmentID                         uuid.UUID
			blacklist, duplicate, aml, documents string
		)
		if err := rows.Scan(&assessmentID, &a.AgeScore, &a.LocationScore, &a.OccupationScore, &a.IncomeScore,
			&blacklist, &duplicate, &aml, &documents,
			&a.BaseScore, &a.Penalty, &a.Score, &a.RiskLevel, &a.Recommendation,
			&a.RequiresManualReview, &a.AssessedAt, &a.ModelVersion); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		a.ID = id.AssessmentID(assessmentID)
		a.ApplicationID = appID
		if a.Checks, err = parseChecks(blacklist, duplicate, aml, documents); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Postgres) Statistics(ctx context.Context) (models.Statistics, error) {
	stats := models.Statistics{
		ByStatus:    make(map[models.ApplicationStatus]int),
		ByRiskLevel: make(map[int]int),
	}

	rows, err := s.q(ctx).QueryContext(ctx, `SELECT status, COUNT(*) FROM kyc_applications GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return stats, fmt.Errorf("scan status count: %w", err)
		}
		stats.ByStatus[models.ApplicationStatus(status)] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	levels, err := s.q(ctx).QueryContext(ctx, `SELECT risk_level, COUNT(*) FROM kyc_applications WHERE risk_level > 0 GROUP BY risk_level`)
	if err != nil {
		return stats, fmt.Errorf("count by risk level: %w", err)
	}
	defer levels.Close()
	for levels.Next() {
		var level, n int
		if err := levels.Scan(&level, &n); err != nil {
			return stats, fmt.Errorf("scan risk level count: %w", err)
		}
		stats.ByRiskLevel[level] = n
	}
	return stats, levels.Err()
}

func (s *Postgres) ApprovedIdentityExists(ctx context.Context, digest string, exclude id.ApplicantID) (bool, error) {
	if digest == "" {
		return false, nil
	}
	var exists bool
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM kyc_applications
			WHERE identity_digest = $1 AND status = $2 AND applicant_id <> $3
		)`, digest, string(models.StatusApproved), uuid.UUID(exclude)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("approved identity lookup: %w", err)
	}
	return exists, nil
}

func (s *Postgres) exists(ctx context.Context, appID id.ApplicationID) error {
	var found bool
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM kyc_applications WHERE id = $1)`, uuid.UUID(appID)).Scan(&found)
	if err != nil {
		return fmt.Errorf("application lookup: %w", err)
	}
	if !found {
		return sentinel.ErrNotFound
	}
	return nil
}

// mapError turns Postgres concurrency failures into sentinel.ErrConflict so
// the workflow can retry once.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505":
			return fmt.Errorf("%w: %s", sentinel.ErrConflict, pgErr.Message)
		}
	}
	return err
}

func parseChecks(values ...string) (models.CheckResults, error) {
	var parsed [4]models.CheckResult
	for i, v := range values {
		r, err := models.ParseCheckResult(v)
		if err != nil {
			return models.CheckResults{}, err
		}
		parsed[i] = r
	}
	return models.CheckResults{
		Blacklist:         parsed[0],
		Duplicate:         parsed[1],
		AML:               parsed[2],
		IdentityDocuments: parsed[3],
	}, nil
}

func insertStatement(table string, cols []string) string {
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

// updateStatement sets every column but id; $1 is the id and the last
// placeholder is the expected current version.
func updateStatement(table string, cols []string) string {
	sets := make([]string, 0, len(cols)-1)
	for i, c := range cols {
		if c == "id" {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", c, i+1))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 AND version = $%d", table, strings.Join(sets, ", "), len(cols)+1)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullReviewer(r *id.ReviewerID) any {
	if r == nil {
		return nil
	}
	return uuid.UUID(*r)
}

func reviewerPtr(u uuid.NullUUID) *id.ReviewerID {
	if !u.Valid {
		return nil
	}
	r := id.ReviewerID(u.UUID)
	return &r
}
