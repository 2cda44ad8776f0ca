package strings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name      string
		input     []string
		normalize func(string) string
		expected  []string
	}{
		{"nil slice", nil, nil, nil},
		{"drops blanks and repeats", []string{" us", "US ", "", "  ", "us"}, nil, []string{"us", "US"}},
		{"normalises before comparing", []string{" us", "US ", "sg"}, strings.ToUpper, []string{"US", "SG"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input, tt.normalize))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList("", nil))
	assert.Equal(t, []string{"KP", "IR"}, SplitList("kp, ir,,KP", strings.ToUpper))
}
