package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrations creates the KYC workflow schema. Statements are idempotent and
// run in order on every start.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS kyc_applications (
		id UUID PRIMARY KEY,
		applicant_id UUID NOT NULL UNIQUE,
		status VARCHAR(32) NOT NULL,
		kyc_level INTEGER NOT NULL DEFAULT 1,
		risk_score NUMERIC(10, 2) NOT NULL DEFAULT 0,
		risk_level INTEGER NOT NULL DEFAULT 0,
		current_step INTEGER NOT NULL DEFAULT 1,
		total_steps INTEGER NOT NULL DEFAULT 4,
		submission_count INTEGER NOT NULL DEFAULT 0,
		rejection_count INTEGER NOT NULL DEFAULT 0,
		requires_supplement BOOLEAN NOT NULL DEFAULT FALSE,
		supplement_requirement TEXT NOT NULL DEFAULT '',
		rejection_reason TEXT NOT NULL DEFAULT '',
		auto_approved BOOLEAN NOT NULL DEFAULT FALSE,
		id_type VARCHAR(16) NOT NULL,
		birth_date DATE,
		nationality VARCHAR(64) NOT NULL,
		country VARCHAR(8) NOT NULL,
		occupation VARCHAR(128) NOT NULL DEFAULT '',
		income_bracket VARCHAR(32) NOT NULL DEFAULT '',
		pii_real_name TEXT NOT NULL,
		pii_identity_number TEXT NOT NULL,
		pii_address TEXT NOT NULL,
		pii_phone_number TEXT NOT NULL DEFAULT '',
		pii_email TEXT NOT NULL DEFAULT '',
		pii_bank_account TEXT NOT NULL DEFAULT '',
		identity_digest VARCHAR(64) NOT NULL DEFAULT '',
		client_ip VARCHAR(64) NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		device VARCHAR(128) NOT NULL DEFAULT '',
		last_reviewer_id UUID,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		last_submitted_at TIMESTAMPTZ NOT NULL,
		review_started_at TIMESTAMPTZ,
		verified_at TIMESTAMPTZ,
		expires_at TIMESTAMPTZ,
		version INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE INDEX IF NOT EXISTS idx_kyc_applications_status ON kyc_applications (status)`,
	`CREATE INDEX IF NOT EXISTS idx_kyc_applications_identity_digest ON kyc_applications (identity_digest) WHERE identity_digest <> ''`,

	`CREATE TABLE IF NOT EXISTS kyc_workflow_steps (
		application_id UUID NOT NULL REFERENCES kyc_applications (id),
		step_number INTEGER NOT NULL CHECK (step_number BETWEEN 1 AND 4),
		status VARCHAR(16) NOT NULL,
		assigned_reviewer_id UUID,
		actual_reviewer_id UUID,
		result VARCHAR(32) NOT NULL DEFAULT '',
		comment TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		escalated_at TIMESTAMPTZ,
		processing_minutes INTEGER NOT NULL DEFAULT 0,
		needs_attention BOOLEAN NOT NULL DEFAULT FALSE,
		attention_reason TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (application_id, step_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_kyc_workflow_steps_in_progress ON kyc_workflow_steps (COALESCE(escalated_at, started_at)) WHERE status = 'IN_PROGRESS'`,

	`CREATE TABLE IF NOT EXISTS kyc_risk_assessments (
		seq BIGSERIAL,
		id UUID PRIMARY KEY,
		application_id UUID NOT NULL REFERENCES kyc_applications (id),
		age_score NUMERIC(10, 2) NOT NULL,
		location_score NUMERIC(10, 2) NOT NULL,
		occupation_score NUMERIC(10, 2) NOT NULL,
		income_score NUMERIC(10, 2) NOT NULL,
		blacklist_check VARCHAR(8) NOT NULL,
		duplicate_check VARCHAR(8) NOT NULL,
		aml_check VARCHAR(8) NOT NULL,
		documents_check VARCHAR(8) NOT NULL,
		base_score NUMERIC(10, 2) NOT NULL,
		penalty NUMERIC(10, 2) NOT NULL,
		score NUMERIC(10, 2) NOT NULL,
		risk_level INTEGER NOT NULL,
		recommendation TEXT NOT NULL,
		requires_manual_review BOOLEAN NOT NULL,
		assessed_at TIMESTAMPTZ NOT NULL,
		model_version VARCHAR(16) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_kyc_risk_assessments_application ON kyc_risk_assessments (application_id, seq)`,

	`CREATE TABLE IF NOT EXISTS kyc_review_records (
		seq BIGSERIAL,
		id UUID PRIMARY KEY,
		application_id UUID NOT NULL REFERENCES kyc_applications (id),
		reviewer_id UUID,
		step_number INTEGER NOT NULL,
		result VARCHAR(32) NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_kyc_review_records_application ON kyc_review_records (application_id, seq)`,
	`CREATE OR REPLACE RULE kyc_review_records_no_update AS ON UPDATE TO kyc_review_records DO INSTEAD NOTHING`,
	`CREATE OR REPLACE RULE kyc_review_records_no_delete AS ON DELETE TO kyc_review_records DO INSTEAD NOTHING`,

	`CREATE TABLE IF NOT EXISTS kyc_documents (
		id UUID PRIMARY KEY,
		application_id UUID NOT NULL REFERENCES kyc_applications (id),
		document_type VARCHAR(32) NOT NULL,
		storage_ref TEXT NOT NULL DEFAULT '',
		uploaded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_kyc_documents_application ON kyc_documents (application_id, document_type)`,
}

// Migrate applies Migrations in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
