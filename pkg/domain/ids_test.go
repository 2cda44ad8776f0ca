package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kycflow/pkg/domain-errors"
)

func TestParseApplicationID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseApplicationID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseApplicationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		parsed, err := ParseApplicationID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, ApplicationID(valid), parsed)
		assert.Equal(t, valid.String(), parsed.String())
	})
}

func TestParseID_RejectsHostileInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"SQL injection attempt", "'; DROP TABLE kyc_applications;--"},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000"},
		{"Oversized input", strings.Repeat("a", 1000)},
		{"Whitespace only", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errApp := ParseApplicationID(tt.input)
			_, errApplicant := ParseApplicantID(tt.input)
			_, errReviewer := ParseReviewerID(tt.input)

			assert.True(t, dErrors.HasCode(errApp, dErrors.CodeInvalidInput))
			assert.True(t, dErrors.HasCode(errApplicant, dErrors.CodeInvalidInput))
			assert.True(t, dErrors.HasCode(errReviewer, dErrors.CodeInvalidInput))
		})
	}
}

func TestIsNil(t *testing.T) {
	assert.True(t, ReviewerID{}.IsNil())
	assert.False(t, NewApplicationID().IsNil())
}
