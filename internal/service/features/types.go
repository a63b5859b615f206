package features

import (
	"time"

	"github.com/shopspring/decimal"
)

// BasicFeatures are the claim's own attributes.
type BasicFeatures struct {
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PropertyDamage decimal.Decimal `json:"property_damage"`
	BodilyInjury   decimal.Decimal `json:"bodily_injury"`
	AccidentType   string          `json:"accident_type"`
	InjuryType     string          `json:"injury_type"`
	Status         string          `json:"status"`
	RiskScore      float64         `json:"risk_score"`
}

// TemporalFeatures describe when the accident happened and how quickly
// it was reported. DayOfWeek is zero-based on Monday.
type TemporalFeatures struct {
	DaysToReport      int  `json:"days_to_report"`
	SameDayReport     bool `json:"same_day_report"`
	DelayedReport     bool `json:"delayed_report"`
	AccidentDayOfWeek int  `json:"accident_day_of_week"`
	AccidentIsWeekend bool `json:"accident_is_weekend"`
	AccidentMonth     int  `json:"accident_month"`
}

type FinancialFeatures struct {
	InjuryToPropertyRatio float64 `json:"injury_to_property_ratio"`
	HasBodilyInjury       bool    `json:"has_bodily_injury"`
	HighValueClaim        bool    `json:"high_value_claim"`
	VeryHighValueClaim    bool    `json:"very_high_value_claim"`
}

type NetworkFeatures struct {
	ClaimantOtherClaims     int  `json:"claimant_other_claims"`
	FraudRingMember         bool `json:"fraud_ring_member"`
	SharedBodyShopClaimants int  `json:"shared_body_shop_claimants"`
}

type EntityFeatures struct {
	HasBodyShop           bool `json:"has_body_shop"`
	HasMedicalProvider    bool `json:"has_medical_provider"`
	HasAttorney           bool `json:"has_attorney"`
	HasTowCompany         bool `json:"has_tow_company"`
	HasWitness            bool `json:"has_witness"`
	BodyShopVolume        int  `json:"body_shop_volume"`
	MedicalProviderVolume int  `json:"medical_provider_volume"`
	AttorneyVolume        int  `json:"attorney_volume"`
}

type HistoricalFeatures struct {
	ClaimantClaimCount   int             `json:"claimant_claim_count"`
	ClaimantTotalClaimed decimal.Decimal `json:"claimant_total_claimed"`
	ClaimantAvgRisk      float64         `json:"claimant_avg_risk"`
	FrequentClaimant     bool            `json:"frequent_claimant"`
}

type LocationFeatures struct {
	HasLocation           bool `json:"has_location"`
	LocationAccidentCount int  `json:"location_accident_count"`
	AccidentHotspot       bool `json:"accident_hotspot"`
}

// ClaimFeatures is the full engineered vector for one claim.
type ClaimFeatures struct {
	ClaimID    string             `json:"claim_id"`
	Basic      BasicFeatures      `json:"basic"`
	Temporal   TemporalFeatures   `json:"temporal"`
	Financial  FinancialFeatures  `json:"financial"`
	Network    NetworkFeatures    `json:"network"`
	Entity     EntityFeatures     `json:"entity"`
	Historical HistoricalFeatures `json:"historical"`
	Location   LocationFeatures   `json:"location"`
}

// Map flattens the vector into scalar columns. Booleans become 0/1 and
// amounts become floats so the result is directly usable as a model
// input row.
func (f *ClaimFeatures) Map() map[string]any {
	return map[string]any{
		"total_amount":               f.Basic.TotalAmount.InexactFloat64(),
		"property_damage":            f.Basic.PropertyDamage.InexactFloat64(),
		"bodily_injury":              f.Basic.BodilyInjury.InexactFloat64(),
		"accident_type":              f.Basic.AccidentType,
		"injury_type":                f.Basic.InjuryType,
		"status":                     f.Basic.Status,
		"risk_score":                 f.Basic.RiskScore,
		"days_to_report":             f.Temporal.DaysToReport,
		"same_day_report":            b2i(f.Temporal.SameDayReport),
		"delayed_report":             b2i(f.Temporal.DelayedReport),
		"accident_day_of_week":       f.Temporal.AccidentDayOfWeek,
		"accident_is_weekend":        b2i(f.Temporal.AccidentIsWeekend),
		"accident_month":             f.Temporal.AccidentMonth,
		"injury_to_property_ratio":   f.Financial.InjuryToPropertyRatio,
		"has_bodily_injury":          b2i(f.Financial.HasBodilyInjury),
		"high_value_claim":           b2i(f.Financial.HighValueClaim),
		"very_high_value_claim":      b2i(f.Financial.VeryHighValueClaim),
		"claimant_other_claims":      f.Network.ClaimantOtherClaims,
		"fraud_ring_member":          b2i(f.Network.FraudRingMember),
		"shared_body_shop_claimants": f.Network.SharedBodyShopClaimants,
		"has_body_shop":              b2i(f.Entity.HasBodyShop),
		"has_medical_provider":       b2i(f.Entity.HasMedicalProvider),
		"has_attorney":               b2i(f.Entity.HasAttorney),
		"has_tow_company":            b2i(f.Entity.HasTowCompany),
		"has_witness":                b2i(f.Entity.HasWitness),
		"body_shop_volume":           f.Entity.BodyShopVolume,
		"medical_provider_volume":    f.Entity.MedicalProviderVolume,
		"attorney_volume":            f.Entity.AttorneyVolume,
		"claimant_claim_count":       f.Historical.ClaimantClaimCount,
		"claimant_total_claimed":     f.Historical.ClaimantTotalClaimed.InexactFloat64(),
		"claimant_avg_risk":          f.Historical.ClaimantAvgRisk,
		"frequent_claimant":          b2i(f.Historical.FrequentClaimant),
		"has_location":               b2i(f.Location.HasLocation),
		"location_accident_count":    f.Location.LocationAccidentCount,
		"accident_hotspot":           b2i(f.Location.AccidentHotspot),
	}
}

// ClaimantFeatures aggregate a claimant's filing history. Reuse ratios
// are 1 minus unique entities over claim count, so a claimant using the
// same body shop for every claim scores 1 minus 1/n.
type ClaimantFeatures struct {
	ClaimantID                string          `json:"claimant_id"`
	ClaimCount                int             `json:"claim_count"`
	TotalClaimed              decimal.Decimal `json:"total_claimed"`
	AvgClaimAmount            decimal.Decimal `json:"avg_claim_amount"`
	AvgRiskScore              float64         `json:"avg_risk_score"`
	FraudRingMember           bool            `json:"fraud_ring_member"`
	FraudRingCount            int             `json:"fraud_ring_count"`
	UniqueBodyShops           int             `json:"unique_body_shops"`
	UniqueMedicalProviders    int             `json:"unique_medical_providers"`
	UniqueAttorneys           int             `json:"unique_attorneys"`
	UniqueVehicles            int             `json:"unique_vehicles"`
	BodyShopReuseRatio        float64         `json:"body_shop_reuse_ratio"`
	MedicalProviderReuseRatio float64         `json:"medical_provider_reuse_ratio"`
	AttorneyReuseRatio        float64         `json:"attorney_reuse_ratio"`
	DaysActive                int             `json:"days_active"`
	ClaimsPerYear             float64         `json:"claims_per_year"`
}

func (f *ClaimantFeatures) Map() map[string]any {
	return map[string]any{
		"claim_count":                  f.ClaimCount,
		"total_claimed":                f.TotalClaimed.InexactFloat64(),
		"avg_claim_amount":             f.AvgClaimAmount.InexactFloat64(),
		"avg_risk_score":               f.AvgRiskScore,
		"fraud_ring_member":            b2i(f.FraudRingMember),
		"fraud_ring_count":             f.FraudRingCount,
		"unique_body_shops":            f.UniqueBodyShops,
		"unique_medical_providers":     f.UniqueMedicalProviders,
		"unique_attorneys":             f.UniqueAttorneys,
		"unique_vehicles":              f.UniqueVehicles,
		"body_shop_reuse_ratio":        f.BodyShopReuseRatio,
		"medical_provider_reuse_ratio": f.MedicalProviderReuseRatio,
		"attorney_reuse_ratio":         f.AttorneyReuseRatio,
		"days_active":                  f.DaysActive,
		"claims_per_year":              f.ClaimsPerYear,
	}
}

// BulkFeatureRow is one claim's row in a bulk extraction table.
type BulkFeatureRow struct {
	ClaimID                  string          `json:"claim_id"`
	ClaimNumber              string          `json:"claim_number"`
	TotalAmount              decimal.Decimal `json:"total_amount"`
	PropertyDamage           decimal.Decimal `json:"property_damage"`
	BodilyInjury             decimal.Decimal `json:"bodily_injury"`
	AccidentDate             time.Time       `json:"accident_date"`
	ReportDate               time.Time       `json:"report_date"`
	RiskScore                float64         `json:"risk_score"`
	AccidentType             string          `json:"accident_type"`
	InjuryType               string          `json:"injury_type"`
	ClaimantOtherClaims      int             `json:"claimant_other_claims"`
	ClaimantTotalOtherClaims decimal.Decimal `json:"claimant_total_other_claims"`
	VehicleOtherAccidents    int             `json:"vehicle_other_accidents"`
	HasVehicle               bool            `json:"has_vehicle"`
	HasBodyShop              bool            `json:"has_body_shop"`
	HasMedicalProvider       bool            `json:"has_medical_provider"`
	HasAttorney              bool            `json:"has_attorney"`
	HasTowCompany            bool            `json:"has_tow_company"`
	HasWitness               bool            `json:"has_witness"`
	FraudRingMember          bool            `json:"fraud_ring_member"`

	DaysToReport            int     `json:"days_to_report"`
	SameDayReport           bool    `json:"same_day_report"`
	DelayedReport           bool    `json:"delayed_report"`
	InjuryToPropertyRatio   float64 `json:"injury_to_property_ratio"`
	HasBodilyInjury         bool    `json:"has_bodily_injury"`
	HighValueClaim          bool    `json:"high_value_claim"`
	VeryHighValueClaim      bool    `json:"very_high_value_claim"`
	FrequentClaimant        bool    `json:"frequent_claimant"`
	MultipleAccidentVehicle bool    `json:"multiple_accident_vehicle"`
}

func (r *BulkFeatureRow) Map() map[string]any {
	return map[string]any{
		"total_amount":                r.TotalAmount.InexactFloat64(),
		"property_damage":             r.PropertyDamage.InexactFloat64(),
		"bodily_injury":               r.BodilyInjury.InexactFloat64(),
		"risk_score":                  r.RiskScore,
		"accident_type":               r.AccidentType,
		"injury_type":                 r.InjuryType,
		"claimant_other_claims":       r.ClaimantOtherClaims,
		"claimant_total_other_claims": r.ClaimantTotalOtherClaims.InexactFloat64(),
		"vehicle_other_accidents":     r.VehicleOtherAccidents,
		"has_vehicle":                 b2i(r.HasVehicle),
		"has_body_shop":               b2i(r.HasBodyShop),
		"has_medical_provider":        b2i(r.HasMedicalProvider),
		"has_attorney":                b2i(r.HasAttorney),
		"has_tow_company":             b2i(r.HasTowCompany),
		"has_witness":                 b2i(r.HasWitness),
		"fraud_ring_member":           b2i(r.FraudRingMember),
		"days_to_report":              r.DaysToReport,
		"same_day_report":             b2i(r.SameDayReport),
		"delayed_report":              b2i(r.DelayedReport),
		"injury_to_property_ratio":    r.InjuryToPropertyRatio,
		"has_bodily_injury":           b2i(r.HasBodilyInjury),
		"high_value_claim":            b2i(r.HighValueClaim),
		"very_high_value_claim":       b2i(r.VeryHighValueClaim),
		"frequent_claimant":           b2i(r.FrequentClaimant),
		"multiple_accident_vehicle":   b2i(r.MultipleAccidentVehicle),
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
