package risk

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycflow/internal/kyc/models"
	id "kycflow/pkg/domain"
	"kycflow/pkg/testutil"
)

var asOf = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func allPass() models.CheckResults {
	return models.CheckResults{
		Blacklist:         models.CheckPass,
		Duplicate:         models.CheckPass,
		AML:               models.CheckPass,
		IdentityDocuments: models.CheckPass,
	}
}

func birth(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func lowRiskSnapshot() Snapshot {
	return Snapshot{
		ApplicationID: id.ApplicationID(uuid.New()),
		BirthDate:     birth(1990, time.May, 1),
		Country:       "US",
		Occupation:    "Government analyst",
		IncomeBracket: Income100KTo500K,
		AsOf:          asOf,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAssess_Scenarios(t *testing.T) {
	engine := New(DefaultConfig())

	testutil.Given(t, "a low-risk adult in a low-risk jurisdiction with clean checks", func(t *testing.T) {
		result := engine.Assess(lowRiskSnapshot(), allPass())

		testutil.Then(t, "the weighted sub-scores give a level 1 assessment", func(t *testing.T) {
			// 0.2*5 + 0.3*5 + 0.2*3 + 0.1*5
			assert.True(t, dec("3.6").Equal(result.Score), "score was %s", result.Score)
			assert.True(t, result.Penalty.IsZero())
			assert.Equal(t, 1, result.RiskLevel)
			assert.False(t, result.RequiresManualReview)
			assert.Contains(t, result.Recommendation, "Low risk")
			assert.Equal(t, ModelVersion, result.ModelVersion)
			assert.Equal(t, asOf, result.AssessedAt)
		})
	})

	testutil.Given(t, "a 17 year old applicant", func(t *testing.T) {
		snap := lowRiskSnapshot()
		snap.BirthDate = birth(2008, time.June, 1)
		result := engine.Assess(snap, allPass())

		testutil.Then(t, "the age sub-score is maximal and the composite exceeds 70", func(t *testing.T) {
			assert.True(t, dec("100").Equal(result.AgeScore))
			assert.True(t, result.Score.GreaterThan(dec("70")))
			assert.Equal(t, MaxRiskLevel, result.RiskLevel)
			assert.Contains(t, result.Recommendation, "below the minimum age")
		})
	})

	testutil.Given(t, "an AML provider outage", func(t *testing.T) {
		checks := allPass().Set(models.CheckAML, models.CheckUnknown)
		result := engine.Assess(lowRiskSnapshot(), checks)

		testutil.Then(t, "the unknown check costs the AML penalty and forces manual review", func(t *testing.T) {
			assert.True(t, dec("60").Equal(result.Penalty))
			assert.True(t, dec("63.6").Equal(result.Score))
			assert.Equal(t, 7, result.RiskLevel)
			assert.True(t, result.RequiresManualReview)
			assert.Contains(t, result.Recommendation, "aml check unavailable")
		})
	})

	testutil.Given(t, "every check failing", func(t *testing.T) {
		checks := models.CheckResults{
			Blacklist: models.CheckFail, Duplicate: models.CheckFail,
			AML: models.CheckFail, IdentityDocuments: models.CheckFail,
		}
		result := engine.Assess(lowRiskSnapshot(), checks)

		testutil.Then(t, "all four penalties are added", func(t *testing.T) {
			assert.True(t, dec("180").Equal(result.Penalty))
			assert.Equal(t, MaxRiskLevel, result.RiskLevel)
		})
	})
}

func TestAssess_Deterministic(t *testing.T) {
	engine := New(DefaultConfig())
	snap := lowRiskSnapshot()
	checks := allPass().Set(models.CheckDuplicate, models.CheckFail)

	first := engine.Assess(snap, checks)
	second := engine.Assess(snap, checks)

	assert.True(t, first.Score.Equal(second.Score))
	assert.Equal(t, first.RiskLevel, second.RiskLevel)
	assert.Equal(t, first.Recommendation, second.Recommendation)
}

func TestSubScores(t *testing.T) {
	engine := New(DefaultConfig())

	t.Run("age bands", func(t *testing.T) {
		tests := []struct {
			name  string
			birth *time.Time
			want  int
		}{
			{"unknown birth date", nil, ageUnknown},
			{"day before 18th birthday", birth(2008, time.March, 3), ageMinor},
			{"on 18th birthday", birth(2008, time.March, 2), ageYoung},
			{"twenty", birth(2006, time.January, 1), ageYoung},
			{"forty", birth(1986, time.January, 1), ageBaseline},
			{"eighty one", birth(1944, time.January, 1), ageElderly},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, _ := ageScore(tt.birth, asOf, 18)
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("jurisdiction buckets", func(t *testing.T) {
		assert.Equal(t, locationLow, engine.locationScore("sg"))
		assert.Equal(t, locationHigh, engine.locationScore("AF"))
		assert.Equal(t, locationMedium, engine.locationScore("DE"))
		assert.Equal(t, locationUnknown, engine.locationScore(" "))
	})

	t.Run("occupation keywords", func(t *testing.T) {
		assert.Equal(t, occupationPublic, occupationScore("Civil Servant"))
		assert.Equal(t, occupationStudent, occupationScore("PhD student"))
		assert.Equal(t, occupationIrregular, occupationScore("freelance designer"))
		assert.Equal(t, occupationBaseline, occupationScore("engineer"))
		assert.Equal(t, occupationUnknown, occupationScore(""))
	})

	t.Run("income brackets", func(t *testing.T) {
		assert.Equal(t, incomeLow, incomeScore(IncomeUnder100K))
		assert.Equal(t, incomeBaseline, incomeScore(Income500KTo1M))
		assert.Equal(t, incomeHigh, incomeScore(IncomeOver1M))
		assert.Equal(t, incomeUnknown, incomeScore(IncomeUndisclosed))
	})
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score string
		want  int
	}{
		{"0", 1},
		{"10", 1},
		{"10.01", 2},
		{"30", 3},
		{"45.5", 5},
		{"70", 7},
		{"70.01", 8},
		{"250", 8},
	}
	for _, tt := range tests {
		t.Run(tt.score, func(t *testing.T) {
			require.Equal(t, tt.want, LevelFor(dec(tt.score)))
		})
	}
}

func TestCustomWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights.Location = dec("1")
	cfg.HighRiskCountries = []string{"DE"}
	engine := New(cfg)

	snap := lowRiskSnapshot()
	snap.Country = "DE"
	result := engine.Assess(snap, allPass())

	// 1 + 80 + 0.6 + 0.5
	assert.True(t, dec("82.1").Equal(result.Score), "score was %s", result.Score)
}
