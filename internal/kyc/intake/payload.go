package intake

import (
	"regexp"
	"strings"
	"time"

	"kycflow/internal/kyc/models"
	"kycflow/internal/kyc/risk"
	dErrors "kycflow/pkg/domain-errors"
)

var (
	bankAccountPattern = regexp.MustCompile(`^\d{10,25}$`)
	phonePattern       = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	countryPattern     = regexp.MustCompile(`^[A-Z]{2}$`)
	emailPattern       = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// Payload is what an applicant submits.
type Payload struct {
	IDType         models.IDType
	RealName       string
	IdentityNumber string
	// BirthDate is required for passports; national ids encode it.
	BirthDate     *time.Time
	Nationality   string
	Country       string
	Address       string
	PhoneNumber   string
	Email         string
	BankAccount   string
	Occupation    string
	IncomeBracket string
	// KYCLevel is the level applied for; zero means the configured default.
	KYCLevel int
}

// validated is a payload that passed validation, normalised.
type validated struct {
	Payload
	profile models.Profile
}

// validate checks a payload without touching persistence.
func validate(p Payload, cfg Config, now time.Time) (validated, error) {
	p.RealName = strings.TrimSpace(p.RealName)
	p.IdentityNumber = NormalizeIdentityNumber(p.IdentityNumber)
	p.Nationality = strings.ToUpper(strings.TrimSpace(p.Nationality))
	p.Country = strings.ToUpper(strings.TrimSpace(p.Country))
	p.Address = strings.TrimSpace(p.Address)
	p.PhoneNumber = strings.ReplaceAll(strings.TrimSpace(p.PhoneNumber), " ", "")
	p.Email = strings.TrimSpace(p.Email)
	p.BankAccount = strings.TrimSpace(p.BankAccount)
	p.Occupation = strings.TrimSpace(p.Occupation)
	p.IncomeBracket = strings.TrimSpace(p.IncomeBracket)
	if p.IDType == "" {
		p.IDType = models.IDTypeNationalID
	}

	for _, f := range []struct{ name, value string }{
		{"real name", p.RealName},
		{"identity number", p.IdentityNumber},
		{"nationality", p.Nationality},
		{"address", p.Address},
		{"country", p.Country},
	} {
		if f.value == "" {
			return validated{}, dErrors.Newf(dErrors.CodeValidation, "%s is required", f.name)
		}
	}
	if !countryPattern.MatchString(p.Country) {
		return validated{}, dErrors.New(dErrors.CodeValidation, "country must be an ISO 3166 alpha-2 code")
	}

	var birth time.Time
	switch p.IDType {
	case models.IDTypeNationalID:
		encoded, err := ParseNationalID(p.IdentityNumber)
		if err != nil {
			return validated{}, err
		}
		if p.BirthDate != nil && !sameDay(*p.BirthDate, encoded) {
			return validated{}, dErrors.New(dErrors.CodeValidation, "birth date does not match identity number")
		}
		birth = encoded
	case models.IDTypePassport:
		if err := ValidatePassport(p.IdentityNumber); err != nil {
			return validated{}, err
		}
		if p.BirthDate == nil {
			return validated{}, dErrors.New(dErrors.CodeValidation, "birth date is required for passports")
		}
		birth = *p.BirthDate
	default:
		return validated{}, dErrors.Newf(dErrors.CodeValidation, "unsupported id type %q", p.IDType)
	}

	if birth.After(now) {
		return validated{}, dErrors.New(dErrors.CodeValidation, "birth date is in the future")
	}
	age := risk.AgeAt(birth, now)
	if age < cfg.MinimumAge {
		return validated{}, dErrors.Newf(dErrors.CodeValidation, "applicant must be at least %d years old", cfg.MinimumAge)
	}
	if cfg.MaximumAge > 0 && age > cfg.MaximumAge {
		return validated{}, dErrors.Newf(dErrors.CodeValidation, "applicant age exceeds %d", cfg.MaximumAge)
	}

	if p.BankAccount != "" && !bankAccountPattern.MatchString(p.BankAccount) {
		return validated{}, dErrors.New(dErrors.CodeValidation, "bank account must be 10 to 25 digits")
	}
	if p.PhoneNumber != "" && !phonePattern.MatchString(p.PhoneNumber) {
		return validated{}, dErrors.New(dErrors.CodeValidation, "phone number format is invalid")
	}
	if p.Email != "" && !emailPattern.MatchString(p.Email) {
		return validated{}, dErrors.New(dErrors.CodeValidation, "email format is invalid")
	}

	if p.KYCLevel == 0 {
		p.KYCLevel = cfg.DefaultKYCLevel
	}
	if p.KYCLevel < 1 || p.KYCLevel > cfg.MaxKYCLevel {
		return validated{}, dErrors.Newf(dErrors.CodeValidation, "kyc level must be between 1 and %d", cfg.MaxKYCLevel)
	}

	b := time.Date(birth.Year(), birth.Month(), birth.Day(), 0, 0, 0, 0, time.UTC)
	return validated{
		Payload: p,
		profile: models.Profile{
			IDType:        p.IDType,
			BirthDate:     &b,
			Nationality:   p.Nationality,
			Country:       p.Country,
			Occupation:    p.Occupation,
			IncomeBracket: p.IncomeBracket,
		},
	}, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
