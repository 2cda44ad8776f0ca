// Package risk computes the composite KYC risk score.
//
// Assess is pure domain logic: no I/O, no clock reads, no shared mutable
// state. The same snapshot and check results always produce the same
// assessment, which is what makes stored assessments replayable.
package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kycflow/internal/kyc/models"
	id "kycflow/pkg/domain"
)

// levelBreakpoints are the inclusive upper bounds of risk levels 1..7.
// Anything above the last bound is level 8.
var levelBreakpoints = []decimal.Decimal{
	decimal.NewFromInt(10),
	decimal.NewFromInt(20),
	decimal.NewFromInt(30),
	decimal.NewFromInt(40),
	decimal.NewFromInt(50),
	decimal.NewFromInt(60),
	decimal.NewFromInt(70),
}

// MaxRiskLevel is the highest level the engine assigns.
const MaxRiskLevel = 8

// manualReviewLevel is the lowest level that always needs a human.
const manualReviewLevel = 5

// Snapshot is the non-identifying applicant data the engine scores.
type Snapshot struct {
	ApplicationID id.ApplicationID
	BirthDate     *time.Time
	Country       string
	Occupation    string
	IncomeBracket string
	// AsOf is the evaluation instant; age is computed against it.
	AsOf time.Time
}

// SnapshotOf extracts the scoring snapshot of an application.
func SnapshotOf(app models.Application, asOf time.Time) Snapshot {
	return Snapshot{
		ApplicationID: app.ID,
		BirthDate:     app.Profile.BirthDate,
		Country:       app.Profile.Country,
		Occupation:    app.Profile.Occupation,
		IncomeBracket: app.Profile.IncomeBracket,
		AsOf:          asOf,
	}
}

// Engine scores snapshots against an immutable Config.
type Engine struct {
	cfg      Config
	lowRisk  map[string]struct{}
	highRisk map[string]struct{}
}

// New builds an engine. The config is copied; later changes to the caller's
// slices do not affect scoring.
func New(cfg Config) *Engine {
	if cfg.ModelVersion == "" {
		cfg.ModelVersion = ModelVersion
	}
	if cfg.MinimumAge <= 0 {
		cfg.MinimumAge = 18
	}
	return &Engine{
		cfg:      cfg,
		lowRisk:  countrySet(cfg.LowRiskCountries),
		highRisk: countrySet(cfg.HighRiskCountries),
	}
}

// Config returns the engine's scoring configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Assess scores a snapshot together with the compliance check outcomes.
// Checks that are UNKNOWN carry the same penalty as a failure and always
// require manual review.
func (e *Engine) Assess(s Snapshot, checks models.CheckResults) models.RiskAssessment {
	age, underage := ageScore(s.BirthDate, s.AsOf, e.cfg.MinimumAge)
	ageDec := decimal.NewFromInt(int64(age))
	locDec := decimal.NewFromInt(int64(e.locationScore(s.Country)))
	occDec := decimal.NewFromInt(int64(occupationScore(s.Occupation)))
	incDec := decimal.NewFromInt(int64(incomeScore(s.IncomeBracket)))

	w := e.cfg.Weights
	base := ageDec.Mul(w.Age).
		Add(locDec.Mul(w.Location)).
		Add(occDec.Mul(w.Occupation)).
		Add(incDec.Mul(w.Income))

	penalty := e.penalty(checks)
	if underage {
		penalty = penalty.Add(e.cfg.Penalties.Underage)
	}

	score := base.Add(penalty).Round(2)
	level := LevelFor(score)

	return models.RiskAssessment{
		ApplicationID:        s.ApplicationID,
		AgeScore:             ageDec,
		LocationScore:        locDec,
		OccupationScore:      occDec,
		IncomeScore:          incDec,
		Checks:               checks,
		BaseScore:            base.Round(2),
		Penalty:              penalty,
		Score:                score,
		RiskLevel:            level,
		Recommendation:       recommendation(level, checks, underage),
		RequiresManualReview: level >= manualReviewLevel || checks.AnyUnknown(),
		AssessedAt:           s.AsOf,
		ModelVersion:         e.cfg.ModelVersion,
	}
}

func (e *Engine) penalty(checks models.CheckResults) decimal.Decimal {
	p := e.cfg.Penalties
	total := decimal.Zero
	for _, nc := range checks.All() {
		if nc.Result == models.CheckPass {
			continue
		}
		switch nc.Name {
		case models.CheckBlacklist:
			total = total.Add(p.Blacklist)
		case models.CheckDuplicate:
			total = total.Add(p.Duplicate)
		case models.CheckAML:
			total = total.Add(p.AML)
		case models.CheckIdentityDocuments:
			total = total.Add(p.IdentityDocuments)
		}
	}
	return total
}

// LevelFor maps a composite score to risk levels 1..8.
func LevelFor(score decimal.Decimal) int {
	for i, bound := range levelBreakpoints {
		if score.LessThanOrEqual(bound) {
			return i + 1
		}
	}
	return MaxRiskLevel
}

func recommendation(level int, checks models.CheckResults, underage bool) string {
	var b strings.Builder
	switch {
	case level <= 3:
		b.WriteString("Low risk: eligible for automatic approval.")
	case level <= manualReviewLevel:
		b.WriteString("Medium risk: manual review recommended.")
	default:
		b.WriteString("High risk: detailed review required.")
	}
	if underage {
		b.WriteString(" Applicant is below the minimum age.")
	}
	for _, nc := range checks.All() {
		switch nc.Result {
		case models.CheckFail:
			fmt.Fprintf(&b, " %s check failed.", nc.Name)
		case models.CheckUnknown:
			fmt.Fprintf(&b, " %s check unavailable, verify manually.", nc.Name)
		}
	}
	return b.String()
}

func countrySet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return set
}
