package intake

import dErrors "kycflow/pkg/domain-errors"

// Config bounds what intake accepts.
type Config struct {
	MinimumAge int
	// MaximumAge of zero disables the upper bound.
	MaximumAge      int
	MaxSubmissions  int
	DefaultKYCLevel int
	MaxKYCLevel     int
}

func DefaultConfig() Config {
	return Config{
		MinimumAge:      18,
		MaximumAge:      120,
		MaxSubmissions:  3,
		DefaultKYCLevel: 1,
		MaxKYCLevel:     3,
	}
}

func (c Config) Validate() error {
	if c.MinimumAge < 0 || (c.MaximumAge != 0 && c.MaximumAge < c.MinimumAge) {
		return dErrors.New(dErrors.CodeValidation, "age bounds are inconsistent")
	}
	if c.MaxSubmissions < 1 {
		return dErrors.New(dErrors.CodeValidation, "max submissions must be at least 1")
	}
	if c.DefaultKYCLevel < 1 || c.DefaultKYCLevel > c.MaxKYCLevel {
		return dErrors.New(dErrors.CodeValidation, "default kyc level must be within 1 and the max level")
	}
	return nil
}
