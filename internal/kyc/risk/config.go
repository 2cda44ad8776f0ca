package risk

import "github.com/shopspring/decimal"

// ModelVersion tags every assessment so replays can select the same rules.
const ModelVersion = "1.0"

// Weights scale each category sub-score into the base score.
type Weights struct {
	Age        decimal.Decimal
	Location   decimal.Decimal
	Occupation decimal.Decimal
	Income     decimal.Decimal
}

// Penalties are added to the base score for each check that did not pass.
type Penalties struct {
	Blacklist         decimal.Decimal
	Duplicate         decimal.Decimal
	AML               decimal.Decimal
	IdentityDocuments decimal.Decimal
	// Underage is added when the applicant is younger than MinimumAge. It is
	// large enough on its own to cross any sane rejection threshold.
	Underage decimal.Decimal
}

// Config is the immutable scoring configuration injected into the Engine.
type Config struct {
	Weights           Weights
	Penalties         Penalties
	MinimumAge        int
	LowRiskCountries  []string
	HighRiskCountries []string
	ModelVersion      string
}

// DefaultConfig returns the production scoring table.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Age:        decimal.RequireFromString("0.2"),
			Location:   decimal.RequireFromString("0.3"),
			Occupation: decimal.RequireFromString("0.2"),
			Income:     decimal.RequireFromString("0.1"),
		},
		Penalties: Penalties{
			Blacklist:         decimal.NewFromInt(50),
			Duplicate:         decimal.NewFromInt(40),
			AML:               decimal.NewFromInt(60),
			IdentityDocuments: decimal.NewFromInt(30),
			Underage:          decimal.NewFromInt(100),
		},
		MinimumAge:        18,
		LowRiskCountries:  []string{"CN", "US", "JP", "KR", "SG"},
		HighRiskCountries: []string{"AF", "SY", "IQ", "SO", "KP", "IR"},
		ModelVersion:      ModelVersion,
	}
}
