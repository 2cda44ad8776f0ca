package intake

import (
	"regexp"
	"strings"
	"time"

	dErrors "kycflow/pkg/domain-errors"
)

var (
	nationalIDPattern = regexp.MustCompile(`^[1-9]\d{5}(18|19|20)\d{2}(0[1-9]|1[0-2])(0[1-9]|[12]\d|3[01])\d{3}[0-9X]$`)
	passportPattern   = regexp.MustCompile(`^([A-Z]\d{8}|[A-Z]{2}\d{7})$`)

	mod112Weights = [17]int{7, 9, 10, 5, 8, 4, 2, 1, 6, 3, 7, 9, 10, 5, 8, 4, 2}
	mod112Check   = "10X98765432"
)

// NormalizeIdentityNumber trims and upper-cases an identity number so the
// blind index is stable across input variations.
func NormalizeIdentityNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ParseNationalID validates an 18-character national identity number
// (ISO 7064 MOD 11-2 check digit) and returns the birth date it encodes.
func ParseNationalID(number string) (time.Time, error) {
	number = NormalizeIdentityNumber(number)
	if !nationalIDPattern.MatchString(number) {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "identity number format is invalid")
	}

	sum := 0
	for i, w := range mod112Weights {
		sum += int(number[i]-'0') * w
	}
	if number[17] != mod112Check[sum%11] {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "identity number checksum is invalid")
	}

	birth, err := time.Parse("20060102", number[6:14])
	if err != nil {
		// the pattern admits dates like 0231
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "identity number encodes an invalid birth date")
	}
	return birth, nil
}

// ValidatePassport checks the passport number format.
func ValidatePassport(number string) error {
	if !passportPattern.MatchString(NormalizeIdentityNumber(number)) {
		return dErrors.New(dErrors.CodeValidation, "passport number format is invalid")
	}
	return nil
}
