package claim

// Status is the claim lifecycle state
type Status string

const (
	StatusOpen               Status = "OPEN"
	StatusUnderInvestigation Status = "UNDER_INVESTIGATION"
	StatusApproved           Status = "APPROVED"
	StatusDenied             Status = "DENIED"
	StatusClosed             Status = "CLOSED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusUnderInvestigation, StatusApproved, StatusDenied, StatusClosed:
		return true
	}
	return false
}

// AccidentType categorizes the reported accident
type AccidentType string

const (
	AccidentRearEnd       AccidentType = "Rear-End Collision"
	AccidentSideImpact    AccidentType = "Side Impact"
	AccidentHeadOn        AccidentType = "Head-On Collision"
	AccidentSingleVehicle AccidentType = "Single Vehicle"
	AccidentMultiVehicle  AccidentType = "Multi-Vehicle"
	AccidentParkingLot    AccidentType = "Parking Lot"
	AccidentHitAndRun     AccidentType = "Hit and Run"
)

// InjuryType categorizes the reported injury
type InjuryType string

const (
	InjuryWhiplash   InjuryType = "Whiplash"
	InjuryBackPain   InjuryType = "Back Pain"
	InjuryNeckPain   InjuryType = "Neck Pain"
	InjurySoftTissue InjuryType = "Soft Tissue Injury"
	InjuryFracture   InjuryType = "Fracture"
	InjuryConcussion InjuryType = "Concussion"
	InjuryNone       InjuryType = "No Injury"
)

// IsSoftTissue reports whether the injury is in the hard-to-disprove
// category used by medical mill detection.
func (t InjuryType) IsSoftTissue() bool {
	switch t {
	case InjuryWhiplash, InjuryBackPain, InjuryNeckPain, InjurySoftTissue:
		return true
	}
	return false
}

// EntityType identifies a service provider node in the graph
type EntityType string

const (
	EntityBodyShop        EntityType = "BodyShop"
	EntityMedicalProvider EntityType = "MedicalProvider"
	EntityAttorney        EntityType = "Attorney"
	EntityTowCompany      EntityType = "TowCompany"
)

// Relationship returns the claim relationship and id property used to
// reach entities of this type in the graph.
func (t EntityType) Relationship() (rel, idField string, ok bool) {
	switch t {
	case EntityBodyShop:
		return "REPAIRED_AT", "body_shop_id", true
	case EntityMedicalProvider:
		return "TREATED_BY", "provider_id", true
	case EntityAttorney:
		return "REPRESENTED_BY", "attorney_id", true
	case EntityTowCompany:
		return "TOWED_BY", "tow_company_id", true
	}
	return "", "", false
}
