package workflow

import (
	"time"

	"github.com/shopspring/decimal"

	dErrors "kycflow/pkg/domain-errors"
)

// Config holds the workflow thresholds and limits. It is immutable once the
// orchestrator is built.
type Config struct {
	// Scores at or below this are approved when every check passes.
	AutoApprovalThreshold decimal.Decimal
	// Scores at or above this are rejected automatically.
	AutoRejectionThreshold decimal.Decimal

	EnableAutoReview bool
	// When set, any FAIL check rejects regardless of score.
	FailedCheckForcesRejection bool

	MaxSubmissions   int
	ReviewTimeout    time.Duration
	ApprovalValidity time.Duration

	// Disabled checks are recorded as PASS without calling the provider.
	EnableBlacklistCheck bool
	EnableDuplicateCheck bool
	EnableAMLCheck       bool

	// CheckTimeout bounds each compliance or document call.
	CheckTimeout time.Duration
	// LockTTL bounds how long one operation may hold an application lease.
	LockTTL time.Duration
	// LockWait is how long an operation waits for a busy lease.
	LockWait time.Duration

	BatchConcurrency int
	SweepBatchSize   int
}

func DefaultConfig() Config {
	return Config{
		AutoApprovalThreshold:      decimal.NewFromInt(30),
		AutoRejectionThreshold:     decimal.NewFromInt(70),
		EnableAutoReview:           true,
		FailedCheckForcesRejection: true,
		MaxSubmissions:             3,
		ReviewTimeout:              24 * time.Hour,
		ApprovalValidity:           365 * 24 * time.Hour,
		EnableBlacklistCheck:       true,
		EnableDuplicateCheck:       true,
		EnableAMLCheck:             true,
		CheckTimeout:               5 * time.Second,
		LockTTL:                    30 * time.Second,
		LockWait:                   2 * time.Second,
		BatchConcurrency:           4,
		SweepBatchSize:             100,
	}
}

// Validate rejects configurations that would make routing ambiguous.
func (c Config) Validate() error {
	if c.AutoApprovalThreshold.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "auto approval threshold must not be negative")
	}
	if !c.AutoApprovalThreshold.LessThan(c.AutoRejectionThreshold) {
		return dErrors.New(dErrors.CodeValidation, "auto approval threshold must be below auto rejection threshold")
	}
	if c.MaxSubmissions < 1 {
		return dErrors.New(dErrors.CodeValidation, "max submissions must be at least 1")
	}
	if c.ReviewTimeout <= 0 {
		return dErrors.New(dErrors.CodeValidation, "review timeout must be positive")
	}
	if c.ApprovalValidity <= 0 {
		return dErrors.New(dErrors.CodeValidation, "approval validity must be positive")
	}
	if c.CheckTimeout <= 0 || c.LockTTL <= 0 {
		return dErrors.New(dErrors.CodeValidation, "check timeout and lock ttl must be positive")
	}
	if c.BatchConcurrency < 1 {
		return dErrors.New(dErrors.CodeValidation, "batch concurrency must be at least 1")
	}
	return nil
}
