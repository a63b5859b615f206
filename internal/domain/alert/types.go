package alert

// Severity orders alerts for triage.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// Rank returns the triage order, critical first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 1
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 4
	default:
		return 5
	}
}

// Status is the alert investigation lifecycle.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusAssigned  Status = "ASSIGNED"
	StatusResolved  Status = "RESOLVED"
	StatusDismissed Status = "DISMISSED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusAssigned, StatusResolved, StatusDismissed:
		return true
	}
	return false
}

// Type names what the alert flags.
type Type string

const (
	TypeStagedAccident      Type = "Staged Accident"
	TypeBodyShopFraud       Type = "Body Shop Fraud"
	TypeMedicalMill         Type = "Medical Mill"
	TypeAttorneyOrganized   Type = "Attorney Organized Fraud"
	TypePhantomPassenger    Type = "Phantom Passenger"
	TypeTowKickback         Type = "Tow Truck Kickback"
	TypeAccidentHotspot     Type = "Accident Hotspot"
	TypeProfessionalWitness Type = "Professional Witness"
	TypeVehicleRecycling    Type = "Vehicle Recycling"
	TypeFraudRingDetected   Type = "Fraud Ring Detected"
	TypeHighRiskClaim       Type = "High Risk Claim"
	TypeRepeatClaimant      Type = "Repeat Claimant"
	TypeSuspiciousPattern   Type = "Suspicious Pattern"
)

// EntityLabel is the graph node label an alert points at.
type EntityLabel string

const (
	EntityClaim            EntityLabel = "Claim"
	EntityClaimant         EntityLabel = "Claimant"
	EntityVehicle          EntityLabel = "Vehicle"
	EntityBodyShop         EntityLabel = "BodyShop"
	EntityMedicalProvider  EntityLabel = "MedicalProvider"
	EntityAttorney         EntityLabel = "Attorney"
	EntityTowCompany       EntityLabel = "TowCompany"
	EntityWitness          EntityLabel = "Witness"
	EntityAccidentLocation EntityLabel = "AccidentLocation"
	EntityFraudRing        EntityLabel = "FraudRing"
)

// IDField returns the node property holding the entity's identifier.
func (l EntityLabel) IDField() (string, bool) {
	switch l {
	case EntityClaim:
		return "claim_id", true
	case EntityClaimant:
		return "claimant_id", true
	case EntityVehicle:
		return "vehicle_id", true
	case EntityBodyShop:
		return "body_shop_id", true
	case EntityMedicalProvider:
		return "provider_id", true
	case EntityAttorney:
		return "attorney_id", true
	case EntityTowCompany:
		return "tow_company_id", true
	case EntityWitness:
		return "witness_id", true
	case EntityAccidentLocation:
		return "location_id", true
	case EntityFraudRing:
		return "ring_id", true
	}
	return "", false
}
