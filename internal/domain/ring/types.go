package ring

// Type distinguishes rings found by the detector from rings entered
// by investigators.
type Type string

const (
	TypeDiscovered Type = "DISCOVERED"
	TypeReported   Type = "REPORTED"
)

// Status is the ring review lifecycle
type Status string

const (
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusConfirmed   Status = "CONFIRMED"
	StatusDismissed   Status = "DISMISSED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusUnderReview, StatusConfirmed, StatusDismissed:
		return true
	}
	return false
}

// Pattern names the signal family that connected the ring members. A
// ring whose members were joined through more than one family is mixed.
type Pattern string

const (
	PatternSharedEntity    Pattern = "shared_entity"
	PatternAccidentPattern Pattern = "accident_pattern"
	PatternWitnessNetwork  Pattern = "witness_network"
	PatternVehicleSharing  Pattern = "vehicle_sharing"
	PatternMixed           Pattern = "mixed"
)

func (p Pattern) IsValid() bool {
	switch p {
	case PatternSharedEntity, PatternAccidentPattern, PatternWitnessNetwork, PatternVehicleSharing, PatternMixed:
		return true
	}
	return false
}

// IDPrefix returns the ring id prefix for the pattern.
func (p Pattern) IDPrefix() string {
	switch p {
	case PatternSharedEntity:
		return "SHARED_ENTITY_RING"
	case PatternAccidentPattern:
		return "ACCIDENT_PATTERN_RING"
	case PatternWitnessNetwork:
		return "WITNESS_NETWORK_RING"
	case PatternVehicleSharing:
		return "VEHICLE_SHARING_RING"
	default:
		return "MIXED_RING"
	}
}
