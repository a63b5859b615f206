package claim

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/errors"
)

// Claim represents an insurance claim as stored in the graph
type Claim struct {
	ID                   string          `json:"claim_id"`
	ClaimNumber          string          `json:"claim_number"`
	ClaimantID           string          `json:"claimant_id"`
	VehicleID            string          `json:"vehicle_id,omitempty"`
	LocationID           string          `json:"location_id,omitempty"`
	AccidentDate         time.Time       `json:"accident_date"`
	ReportDate           time.Time       `json:"report_date"`
	TotalAmount          decimal.Decimal `json:"total_claim_amount"`
	PropertyDamageAmount decimal.Decimal `json:"property_damage_amount"`
	BodilyInjuryAmount   decimal.Decimal `json:"bodily_injury_amount"`
	AccidentType         AccidentType    `json:"accident_type"`
	InjuryType           InjuryType      `json:"injury_type"`
	WitnessCount         int             `json:"witness_count"`
	PoliceReport         bool            `json:"police_report"`
	Status               Status          `json:"status"`
	RiskScore            float64         `json:"risk_score"`
}

// NewClaim validates and constructs a claim. Report date must not
// precede the accident date and amounts must be non-negative.
func NewClaim(id, claimNumber, claimantID string, accidentDate, reportDate time.Time, totalAmount decimal.Decimal) (*Claim, error) {
	if id == "" {
		return nil, errors.NewValidationError("INVALID_CLAIM_ID", "claim id is required")
	}
	if claimantID == "" {
		return nil, errors.NewValidationError("INVALID_CLAIMANT_ID", "claimant id is required")
	}
	if totalAmount.IsNegative() {
		return nil, errors.ErrInvalidClaimAmount
	}
	if reportDate.Before(accidentDate) {
		return nil, errors.ErrInvalidDateOrder
	}

	return &Claim{
		ID:           id,
		ClaimNumber:  claimNumber,
		ClaimantID:   claimantID,
		AccidentDate: accidentDate,
		ReportDate:   reportDate,
		TotalAmount:  totalAmount,
		Status:       StatusOpen,
	}, nil
}

// DaysToReport returns whole days between accident and report dates.
func (c *Claim) DaysToReport() int {
	return int(c.ReportDate.Sub(c.AccidentDate).Hours() / 24)
}

// SameDayReport reports whether the claim was filed the day of the accident.
func (c *Claim) SameDayReport() bool {
	return c.DaysToReport() == 0
}

// DelayedReport reports whether filing took more than 30 days.
func (c *Claim) DelayedReport() bool {
	return c.DaysToReport() > 30
}

// InjuryToPropertyRatio divides bodily injury by property damage,
// clamping the denominator to 1 so zero-property claims still produce
// a meaningful ratio.
func (c *Claim) InjuryToPropertyRatio() float64 {
	property := c.PropertyDamageAmount.InexactFloat64()
	if property < 1 {
		property = 1
	}
	return c.BodilyInjuryAmount.InexactFloat64() / property
}

// HasBodilyInjury reports whether any bodily injury amount was claimed.
func (c *Claim) HasBodilyInjury() bool {
	return c.BodilyInjuryAmount.IsPositive()
}

// IsHighValue reports whether the claim total exceeds $50,000.
func (c *Claim) IsHighValue() bool {
	return c.TotalAmount.GreaterThan(decimal.NewFromInt(50000))
}

// IsVeryHighValue reports whether the claim total exceeds $100,000.
func (c *Claim) IsVeryHighValue() bool {
	return c.TotalAmount.GreaterThan(decimal.NewFromInt(100000))
}

// AccidentDayOfWeek returns the accident weekday with Monday as 0.
func (c *Claim) AccidentDayOfWeek() int {
	return (int(c.AccidentDate.Weekday()) + 6) % 7
}

// AccidentOnWeekend reports whether the accident fell on Saturday or Sunday.
func (c *Claim) AccidentOnWeekend() bool {
	return c.AccidentDayOfWeek() >= 5
}

// IsHighRisk reports whether the stored risk score is in the high band.
func (c *Claim) IsHighRisk() bool {
	return c.RiskScore >= 70
}
