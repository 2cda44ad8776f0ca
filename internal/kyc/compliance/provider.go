// Package compliance holds the production ComplianceCheckProvider: a
// watchlist screen for blacklist hits, a blind-index lookup for duplicate
// identities, and a pluggable AML screener. Guarded wraps any provider with
// per-check circuit breakers.
package compliance

import (
	"context"
	"errors"
	"fmt"

	"kycflow/internal/kyc/models"
	"kycflow/internal/kyc/ports"
	id "kycflow/pkg/domain"
)

var (
	// ErrAMLNotConfigured leaves the AML check UNKNOWN.
	ErrAMLNotConfigured = errors.New("compliance: no AML screener configured")
	ErrMissingDigest    = errors.New("compliance: applicant has no identity digest")
)

// Watchlist reports whether an applicant is on a blacklist.
type Watchlist interface {
	Listed(ctx context.Context, applicant ports.Applicant) (bool, error)
}

// IdentityIndex finds other approved applicants with the same identity.
type IdentityIndex interface {
	ApprovedIdentityExists(ctx context.Context, digest string, exclude id.ApplicantID) (bool, error)
}

// AMLScreener reports whether an applicant is an AML hit.
type AMLScreener interface {
	Screen(ctx context.Context, applicant ports.Applicant) (hit bool, err error)
}

// Provider implements ports.ComplianceCheckProvider from its parts.
type Provider struct {
	watchlist  Watchlist
	identities IdentityIndex
	aml        AMLScreener
}

var _ ports.ComplianceCheckProvider = (*Provider)(nil)

type Option func(*Provider)

func WithAMLScreener(aml AMLScreener) Option {
	return func(p *Provider) { p.aml = aml }
}

func NewProvider(watchlist Watchlist, identities IdentityIndex, opts ...Option) *Provider {
	p := &Provider{watchlist: watchlist, identities: identities}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Provider) CheckBlacklist(ctx context.Context, applicant ports.Applicant) (models.CheckResult, error) {
	listed, err := p.watchlist.Listed(ctx, applicant)
	if err != nil {
		return models.CheckUnknown, fmt.Errorf("watchlist lookup: %w", err)
	}
	return models.CheckFromBool(!listed), nil
}

func (p *Provider) CheckDuplicate(ctx context.Context, applicant ports.Applicant) (models.CheckResult, error) {
	if applicant.IdentityDigest == "" {
		return models.CheckUnknown, ErrMissingDigest
	}
	exists, err := p.identities.ApprovedIdentityExists(ctx, applicant.IdentityDigest, applicant.ApplicantID)
	if err != nil {
		return models.CheckUnknown, fmt.Errorf("identity lookup: %w", err)
	}
	return models.CheckFromBool(!exists), nil
}

func (p *Provider) CheckAML(ctx context.Context, applicant ports.Applicant) (models.CheckResult, error) {
	if p.aml == nil {
		return models.CheckUnknown, ErrAMLNotConfigured
	}
	hit, err := p.aml.Screen(ctx, applicant)
	if err != nil {
		return models.CheckUnknown, fmt.Errorf("aml screen: %w", err)
	}
	return models.CheckFromBool(!hit), nil
}
