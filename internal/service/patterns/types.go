package patterns

import (
	"time"

	"github.com/shopspring/decimal"
)

// Name identifies one of the detection rules in the catalog.
type Name string

const (
	NameStagedAccident      Name = "staged_accident"
	NameBodyShopFraud       Name = "body_shop_fraud"
	NameMedicalMill         Name = "medical_mill"
	NameAttorneyOrganized   Name = "attorney_organized"
	NamePhantomPassenger    Name = "phantom_passenger"
	NameTowKickback         Name = "tow_truck_kickback"
	NameAccidentHotspot     Name = "accident_hotspot"
	NameProfessionalWitness Name = "professional_witness"
	NameVehicleRecycling    Name = "vehicle_recycling"
)

// AllNames lists the detection rules in catalog order.
func AllNames() []Name {
	return []Name{
		NameStagedAccident,
		NameBodyShopFraud,
		NameMedicalMill,
		NameAttorneyOrganized,
		NamePhantomPassenger,
		NameTowKickback,
		NameAccidentHotspot,
		NameProfessionalWitness,
		NameVehicleRecycling,
	}
}

// StagedAccident is a high-value claim reported the day of the accident,
// with repeat witnesses at a location that has seen other claims.
type StagedAccident struct {
	ClaimID            string          `json:"claim_id"`
	ClaimNumber        string          `json:"claim_number"`
	ClaimantName       string          `json:"claimant_name"`
	AccidentDate       time.Time       `json:"accident_date"`
	Amount             decimal.Decimal `json:"amount"`
	Location           string          `json:"location"`
	WitnessNames       []string        `json:"witness_names"`
	WitnessCount       int             `json:"witness_count"`
	LocationClaimCount int             `json:"location_claim_count"`
	Confidence         float64         `json:"confidence"`
	Indicators         []string        `json:"indicators"`
}

// BodyShopFraud is a shop with a high-risk book of repairs fed by the
// same claimants over and over.
type BodyShopFraud struct {
	BodyShopID      string          `json:"body_shop_id"`
	Name            string          `json:"name"`
	City            string          `json:"city"`
	ClaimCount      int             `json:"claim_count"`
	UniqueClaimants int             `json:"unique_claimants"`
	AvgRisk         float64         `json:"avg_risk"`
	TotalRepairs    decimal.Decimal `json:"total_repairs"`
	AvgRepairCost   decimal.Decimal `json:"avg_repair_cost"`
	RepeatClaimants int             `json:"repeat_claimants"`
	Confidence      float64         `json:"confidence"`
	Indicators      []string        `json:"indicators"`
}

// MedicalMill is a provider billing large soft-tissue injury claims for
// a recurring set of patients.
type MedicalMill struct {
	ProviderID        string          `json:"provider_id"`
	Name              string          `json:"name"`
	ProviderType      string          `json:"provider_type"`
	City              string          `json:"city"`
	ClaimCount        int             `json:"claim_count"`
	UniquePatients    int             `json:"unique_patients"`
	AvgInjuryAmount   decimal.Decimal `json:"avg_injury_amount"`
	AvgRisk           float64         `json:"avg_risk"`
	TotalInjuryClaims decimal.Decimal `json:"total_injury_claims"`
	RepeatPatients    int             `json:"repeat_patients"`
	SoftTissueRatio   float64         `json:"soft_tissue_ratio"`
	Confidence        float64         `json:"confidence"`
	Indicators        []string        `json:"indicators"`
}

// AttorneyFraud is an attorney steering a large, high-risk caseload
// through a narrow set of body shops or medical providers.
type AttorneyFraud struct {
	AttorneyID             string          `json:"attorney_id"`
	Name                   string          `json:"name"`
	Firm                   string          `json:"firm"`
	City                   string          `json:"city"`
	CaseCount              int             `json:"case_count"`
	UniqueClients          int             `json:"unique_clients"`
	AvgRisk                float64         `json:"avg_risk"`
	TotalRepresented       decimal.Decimal `json:"total_represented"`
	UniqueBodyShops        int             `json:"unique_body_shops"`
	UniqueMedicalProviders int             `json:"unique_medical_providers"`
	Confidence             float64         `json:"confidence"`
	Indicators             []string        `json:"indicators"`
}

// PhantomPassenger is an injury claim far out of proportion to the
// physical damage on the vehicle.
type PhantomPassenger struct {
	ClaimID                   string          `json:"claim_id"`
	ClaimNumber               string          `json:"claim_number"`
	ClaimantName              string          `json:"claimant_name"`
	AccidentDate              time.Time       `json:"accident_date"`
	BodilyInjury              decimal.Decimal `json:"bodily_injury"`
	PropertyDamage            decimal.Decimal `json:"property_damage"`
	InjuryType                string          `json:"injury_type"`
	Vehicle                   string          `json:"vehicle"`
	OtherClaimantsSameVehicle int             `json:"other_claimants_same_vehicle"`
	Confidence                float64         `json:"confidence"`
	Indicators                []string        `json:"indicators"`
}

// Referral is one body shop a tow company delivers claims to.
type Referral struct {
	BodyShopID   string `json:"body_shop_id"`
	BodyShop     string `json:"body_shop"`
	SharedClaims int    `json:"shared_claims"`
}

// TowKickback is a tow company funneling most of its tows to a single
// body shop.
type TowKickback struct {
	TowCompanyID       string     `json:"tow_company_id"`
	Name               string     `json:"name"`
	City               string     `json:"city"`
	TotalTows          int        `json:"total_tows"`
	TopBodyShop        *Referral  `json:"top_body_shop,omitempty"`
	Referrals          []Referral `json:"referrals"`
	ConcentrationRatio float64    `json:"concentration_ratio"`
	Confidence         float64    `json:"confidence"`
	Indicators         []string   `json:"indicators"`
}

// AccidentHotspot is a location with an unusual concentration of
// accidents.
type AccidentHotspot struct {
	LocationID      string          `json:"location_id"`
	Intersection    string          `json:"intersection"`
	City            string          `json:"city"`
	AccidentCount   int             `json:"accident_count"`
	UniqueClaimants int             `json:"unique_claimants"`
	AvgAmount       decimal.Decimal `json:"avg_amount"`
	AvgRisk         float64         `json:"avg_risk"`
	WitnessCount    int             `json:"witness_count"`
	Confidence      float64         `json:"confidence"`
	Indicators      []string        `json:"indicators"`
}

// ProfessionalWitness is a witness who keeps turning up at accidents.
type ProfessionalWitness struct {
	WitnessID       string   `json:"witness_id"`
	Name            string   `json:"name"`
	Phone           string   `json:"phone"`
	WitnessedCount  int      `json:"witnessed_count"`
	UniqueClaimants int      `json:"unique_claimants"`
	AvgRisk         float64  `json:"avg_risk"`
	RingConnections int      `json:"ring_connections"`
	Confidence      float64  `json:"confidence"`
	Indicators      []string `json:"indicators"`
}

// VehicleRecycling is a vehicle reused across accidents by different
// claimants.
type VehicleRecycling struct {
	VehicleID       string          `json:"vehicle_id"`
	VehicleInfo     string          `json:"vehicle_info"`
	VIN             string          `json:"vin"`
	LicensePlate    string          `json:"license_plate"`
	AccidentCount   int             `json:"accident_count"`
	UniqueClaimants int             `json:"unique_claimants"`
	TotalDamage     decimal.Decimal `json:"total_damage"`
	AvgRisk         float64         `json:"avg_risk"`
	ClaimantNames   []string        `json:"claimant_names"`
	Confidence      float64         `json:"confidence"`
	Indicators      []string        `json:"indicators"`
}

// CatalogReport is the result of running every detection rule. Rules
// that failed are listed in Failed with their error message; the rest
// of the report still holds whatever the other rules found.
type CatalogReport struct {
	StagedAccidents       []StagedAccident      `json:"staged_accidents"`
	BodyShopFraud         []BodyShopFraud       `json:"body_shop_fraud"`
	MedicalMills          []MedicalMill         `json:"medical_mills"`
	AttorneyOrganized     []AttorneyFraud       `json:"attorney_organized"`
	PhantomPassengers     []PhantomPassenger    `json:"phantom_passengers"`
	TowKickbacks          []TowKickback         `json:"tow_truck_kickbacks"`
	AccidentHotspots      []AccidentHotspot     `json:"accident_hotspots"`
	ProfessionalWitnesses []ProfessionalWitness `json:"professional_witnesses"`
	VehicleRecycling      []VehicleRecycling    `json:"vehicle_recycling"`
	TotalPatterns         int                   `json:"total_patterns"`
	Failed                map[string]string     `json:"failed,omitempty"`
}
