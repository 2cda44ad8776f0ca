package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "kycflow/pkg/domain"
)

// RiskAssessment is the scored output of one Step 1 run.
type RiskAssessment struct {
	ID            id.AssessmentID
	ApplicationID id.ApplicationID

	AgeScore        decimal.Decimal
	LocationScore   decimal.Decimal
	OccupationScore decimal.Decimal
	IncomeScore     decimal.Decimal

	Checks CheckResults

	BaseScore decimal.Decimal
	Penalty   decimal.Decimal
	Score     decimal.Decimal
	RiskLevel int

	Recommendation       string
	RequiresManualReview bool
	AssessedAt           time.Time
	ModelVersion         string
}
