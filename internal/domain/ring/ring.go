package ring

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/errors"
)

// FraudRing is a group of claimants connected by shared entities,
// accident patterns, witnesses or vehicles.
type FraudRing struct {
	ID           string          `json:"ring_id"`
	Type         Type            `json:"ring_type"`
	Pattern      Pattern         `json:"pattern"`
	Status       Status          `json:"status"`
	MemberIDs    []string        `json:"member_ids"`
	MemberNames  []string        `json:"member_names"`
	MemberCount  int             `json:"member_count"`
	TotalClaims  int             `json:"total_claims"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	AvgRiskScore float64         `json:"avg_risk_score"`
	Confidence   float64         `json:"confidence"`
	DiscoveredBy string          `json:"discovered_by"`
	DiscoveredAt time.Time       `json:"discovered_at"`
}

// NewDiscoveredRing constructs a ring produced by the detector. The id
// embeds the pattern prefix followed by eight hex characters so that
// re-persisting the same ring object stays idempotent.
func NewDiscoveredRing(pattern Pattern, memberIDs, memberNames []string, totalClaims int, totalAmount decimal.Decimal, avgRisk float64) (*FraudRing, error) {
	if len(memberIDs) < 2 {
		return nil, errors.NewValidationError("RING_TOO_SMALL", "a ring requires at least two members")
	}
	if !pattern.IsValid() {
		return nil, errors.NewValidationError("INVALID_RING_PATTERN", "unknown ring pattern")
	}

	return &FraudRing{
		ID:           pattern.IDPrefix() + "_" + uuid.New().String()[:8],
		Type:         TypeDiscovered,
		Pattern:      pattern,
		Status:       StatusUnderReview,
		MemberIDs:    memberIDs,
		MemberNames:  memberNames,
		MemberCount:  len(memberIDs),
		TotalClaims:  totalClaims,
		TotalAmount:  totalAmount,
		AvgRiskScore: avgRisk,
		DiscoveredBy: "RingDetector",
		DiscoveredAt: time.Now().UTC(),
	}, nil
}

// Confirm moves a ring under review to confirmed.
func (r *FraudRing) Confirm() error {
	if r.Status != StatusUnderReview {
		return errors.NewBusinessError("INVALID_RING_TRANSITION", "only rings under review can be confirmed")
	}
	r.Status = StatusConfirmed
	return nil
}

// Dismiss marks a ring under review as a false positive.
func (r *FraudRing) Dismiss() error {
	if r.Status != StatusUnderReview {
		return errors.NewBusinessError("INVALID_RING_TRANSITION", "only rings under review can be dismissed")
	}
	r.Status = StatusDismissed
	return nil
}

// HasMember reports whether the claimant belongs to the ring.
func (r *FraudRing) HasMember(claimantID string) bool {
	for _, id := range r.MemberIDs {
		if id == claimantID {
			return true
		}
	}
	return false
}
