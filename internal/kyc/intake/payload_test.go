package intake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycflow/internal/kyc/models"
	dErrors "kycflow/pkg/domain-errors"
)

var validateNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func validPayload() Payload {
	return Payload{
		IDType:         models.IDTypeNationalID,
		RealName:       "Li Wei",
		IdentityNumber: "44030419900307123X",
		Nationality:    "cn",
		Country:        "cn",
		Address:        "1 Harbour Road",
		PhoneNumber:    "+8613800000000",
		Email:          "li.wei@example.com",
		BankAccount:    "6222020200112233445",
		Occupation:     "Software Engineer",
		IncomeBracket:  "100k_500k",
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("normalises and derives the profile", func(t *testing.T) {
		v, err := validate(validPayload(), cfg, validateNow)
		require.NoError(t, err)
		assert.Equal(t, "CN", v.profile.Nationality)
		assert.Equal(t, "CN", v.profile.Country)
		require.NotNil(t, v.profile.BirthDate)
		assert.Equal(t, time.Date(1990, 3, 7, 0, 0, 0, 0, time.UTC), *v.profile.BirthDate)
		assert.Equal(t, cfg.DefaultKYCLevel, v.KYCLevel)
	})

	t.Run("passport needs an explicit birth date", func(t *testing.T) {
		p := validPayload()
		p.IDType = models.IDTypePassport
		p.IdentityNumber = "E12345678"
		_, err := validate(p, cfg, validateNow)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		birth := time.Date(1985, 6, 1, 0, 0, 0, 0, time.UTC)
		p.BirthDate = &birth
		v, err := validate(p, cfg, validateNow)
		require.NoError(t, err)
		assert.Equal(t, birth, *v.profile.BirthDate)
	})

	t.Run("explicit birth date must match the national id", func(t *testing.T) {
		p := validPayload()
		other := time.Date(1991, 3, 7, 0, 0, 0, 0, time.UTC)
		p.BirthDate = &other
		_, err := validate(p, cfg, validateNow)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	rejects := []struct {
		name   string
		mutate func(p *Payload)
	}{
		{"missing real name", func(p *Payload) { p.RealName = "  " }},
		{"missing identity number", func(p *Payload) { p.IdentityNumber = "" }},
		{"missing nationality", func(p *Payload) { p.Nationality = "" }},
		{"missing address", func(p *Payload) { p.Address = "" }},
		{"missing country", func(p *Payload) { p.Country = "" }},
		{"country not alpha-2", func(p *Payload) { p.Country = "CHN" }},
		{"bad checksum", func(p *Payload) { p.IdentityNumber = "440304199003071231" }},
		{"under minimum age", func(p *Payload) { p.IdentityNumber = "110105201006150012" }},
		{"short bank account", func(p *Payload) { p.BankAccount = "12345" }},
		{"non-digit bank account", func(p *Payload) { p.BankAccount = "62220202-00112233" }},
		{"malformed email", func(p *Payload) { p.Email = "li.wei@" }},
		{"malformed phone", func(p *Payload) { p.PhoneNumber = "0800-FLOWERS" }},
		{"unknown id type", func(p *Payload) { p.IDType = "DRIVING_LICENCE" }},
		{"kyc level out of range", func(p *Payload) { p.KYCLevel = 9 }},
	}
	for _, tt := range rejects {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(&p)
			_, err := validate(p, cfg, validateNow)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
		})
	}

	t.Run("optional fields may be empty", func(t *testing.T) {
		p := validPayload()
		p.PhoneNumber, p.Email, p.BankAccount = "", "", ""
		_, err := validate(p, cfg, validateNow)
		assert.NoError(t, err)
	})
}
