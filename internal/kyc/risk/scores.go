package risk

import (
	"strings"
	"time"
)

// Category sub-scores, 0 (no risk) to 100.
const (
	ageUnknown  = 20
	ageMinor    = 100
	ageYoung    = 30
	ageElderly  = 25
	ageBaseline = 5

	locationUnknown = 30
	locationLow     = 5
	locationHigh    = 80
	locationMedium  = 15

	occupationUnknown    = 20
	occupationPublic     = 3
	occupationStudent    = 10
	occupationIrregular  = 25
	occupationBaseline   = 8
	incomeUnknown        = 25
	incomeLow            = 15
	incomeHigh           = 30
	incomeBaseline       = 5
	youngAdultAgeCeiling = 21
	elderlyAgeFloor      = 80
)

// Income brackets accepted at intake.
const (
	IncomeUnder100K   = "under_100k"
	Income100KTo500K  = "100k_500k"
	Income500KTo1M    = "500k_1m"
	IncomeOver1M      = "over_1m"
	IncomeUndisclosed = ""
)

var (
	publicSectorKeywords = []string{"government", "public sector", "civil servant", "public servant"}
	studentKeywords      = []string{"student"}
	irregularKeywords    = []string{"unemployed", "freelance", "freelancer"}
)

// AgeAt returns full years between birth and asOf.
func AgeAt(birth, asOf time.Time) int {
	years := asOf.Year() - birth.Year()
	if asOf.Month() < birth.Month() || (asOf.Month() == birth.Month() && asOf.Day() < birth.Day()) {
		years--
	}
	return years
}

func ageScore(birth *time.Time, asOf time.Time, minimumAge int) (score int, underage bool) {
	if birth == nil {
		return ageUnknown, false
	}
	age := AgeAt(*birth, asOf)
	switch {
	case age < minimumAge:
		return ageMinor, true
	case age < youngAdultAgeCeiling:
		return ageYoung, false
	case age > elderlyAgeFloor:
		return ageElderly, false
	default:
		return ageBaseline, false
	}
}

func (e *Engine) locationScore(country string) int {
	code := strings.ToUpper(strings.TrimSpace(country))
	if code == "" {
		return locationUnknown
	}
	if _, ok := e.lowRisk[code]; ok {
		return locationLow
	}
	if _, ok := e.highRisk[code]; ok {
		return locationHigh
	}
	return locationMedium
}

func occupationScore(occupation string) int {
	o := strings.ToLower(strings.TrimSpace(occupation))
	switch {
	case o == "":
		return occupationUnknown
	case containsAny(o, publicSectorKeywords):
		return occupationPublic
	case containsAny(o, studentKeywords):
		return occupationStudent
	case containsAny(o, irregularKeywords):
		return occupationIrregular
	default:
		return occupationBaseline
	}
}

func incomeScore(bracket string) int {
	switch strings.ToLower(strings.TrimSpace(bracket)) {
	case IncomeUndisclosed:
		return incomeUnknown
	case IncomeUnder100K:
		return incomeLow
	case IncomeOver1M:
		return incomeHigh
	default:
		return incomeBaseline
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
