package models

import "fmt"

// CheckResult is the outcome of one compliance or document check. The zero
// value is UNKNOWN so a check that never reported counts against the applicant.
type CheckResult uint8

const (
	CheckUnknown CheckResult = iota
	CheckPass
	CheckFail
)

func (c CheckResult) String() string {
	switch c {
	case CheckPass:
		return "PASS"
	case CheckFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// ParseCheckResult reads the stored form of a check result.
func ParseCheckResult(s string) (CheckResult, error) {
	switch s {
	case "PASS":
		return CheckPass, nil
	case "FAIL":
		return CheckFail, nil
	case "UNKNOWN":
		return CheckUnknown, nil
	}
	return CheckUnknown, fmt.Errorf("unknown check result %q", s)
}

// CheckFromBool maps a provider verdict to a result.
func CheckFromBool(passed bool) CheckResult {
	if passed {
		return CheckPass
	}
	return CheckFail
}

// CheckName identifies a check in logs, metrics and recommendations.
type CheckName string

const (
	CheckBlacklist         CheckName = "blacklist"
	CheckDuplicate         CheckName = "duplicate"
	CheckAML               CheckName = "aml"
	CheckIdentityDocuments CheckName = "identity_documents"
)

// CheckResults holds the four check outcomes fed to the risk engine.
type CheckResults struct {
	Blacklist         CheckResult
	Duplicate         CheckResult
	AML               CheckResult
	IdentityDocuments CheckResult
}

// NamedCheck pairs a check with its outcome.
type NamedCheck struct {
	Name   CheckName
	Result CheckResult
}

// All returns the checks in a fixed order.
func (c CheckResults) All() []NamedCheck {
	return []NamedCheck{
		{CheckBlacklist, c.Blacklist},
		{CheckDuplicate, c.Duplicate},
		{CheckAML, c.AML},
		{CheckIdentityDocuments, c.IdentityDocuments},
	}
}

func (c CheckResults) AllPass() bool {
	for _, nc := range c.All() {
		if nc.Result != CheckPass {
			return false
		}
	}
	return true
}

func (c CheckResults) AnyFail() bool { return c.any(CheckFail) }

func (c CheckResults) AnyUnknown() bool { return c.any(CheckUnknown) }

func (c CheckResults) any(r CheckResult) bool {
	for _, nc := range c.All() {
		if nc.Result == r {
			return true
		}
	}
	return false
}

// Set returns a copy with the named check replaced.
func (c CheckResults) Set(name CheckName, r CheckResult) CheckResults {
	switch name {
	case CheckBlacklist:
		c.Blacklist = r
	case CheckDuplicate:
		c.Duplicate = r
	case CheckAML:
		c.AML = r
	case CheckIdentityDocuments:
		c.IdentityDocuments = r
	}
	return c
}
