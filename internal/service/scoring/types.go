package scoring

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Level is the qualitative risk band for a score on the 0-100 scale.
type Level string

const (
	LevelHigh   Level = "HIGH"
	LevelMedium Level = "MEDIUM"
	LevelLow    Level = "LOW"
)

// ScoreCache holds recently computed claim scores. Satisfied by the
// redis cache; a nil cache disables caching.
type ScoreCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// FactorScore is one factor's contribution to a claim risk score.
type FactorScore struct {
	RawScore      float64 `json:"raw_score"`
	Weight        float64 `json:"weight"`
	WeightedScore float64 `json:"weighted_score"`
}

// TopFactor is a display-ready entry of the highest contributing factors.
type TopFactor struct {
	Factor   string  `json:"factor"`
	Score    float64 `json:"score"`
	RawScore float64 `json:"raw_score"`
}

// ClaimRiskResult is the full scoring breakdown for a claim.
type ClaimRiskResult struct {
	ClaimID           string                 `json:"claim_id"`
	ClaimNumber       string                 `json:"claim_number"`
	TotalRiskScore    float64                `json:"total_risk_score"`
	RiskLevel         Level                  `json:"risk_level"`
	ThresholdsVersion string                 `json:"thresholds_version"`
	RiskFactors       map[string]FactorScore `json:"risk_factors"`
	Explanation       string                 `json:"explanation"`
	TopRiskFactors    []TopFactor            `json:"top_risk_factors"`
}

// ClaimantRiskResult scores a claimant's filing history on a 0-100
// point scale.
type ClaimantRiskResult struct {
	ClaimantID   string             `json:"claimant_id"`
	Name         string             `json:"name"`
	RiskScore    float64            `json:"risk_score"`
	RiskLevel    Level              `json:"risk_level"`
	ClaimCount   int                `json:"claim_count"`
	TotalClaimed decimal.Decimal    `json:"total_claimed"`
	AvgClaimRisk float64            `json:"avg_claim_risk"`
	FraudRings   int                `json:"fraud_rings"`
	RiskFactors  map[string]float64 `json:"risk_factors"`
}

// VehicleRiskResult scores a vehicle's accident history.
type VehicleRiskResult struct {
	VehicleID       string             `json:"vehicle_id"`
	VehicleInfo     string             `json:"vehicle_info"`
	VIN             string             `json:"vin"`
	RiskScore       float64            `json:"risk_score"`
	RiskLevel       Level              `json:"risk_level"`
	AccidentCount   int                `json:"accident_count"`
	UniqueClaimants int                `json:"unique_claimants"`
	TotalDamage     decimal.Decimal    `json:"total_damage"`
	RiskFactors     map[string]float64 `json:"risk_factors"`
}

// EntityRiskResult scores a service provider (body shop, medical
// provider, attorney or tow company).
type EntityRiskResult struct {
	EntityType      string             `json:"entity_type"`
	EntityID        string             `json:"entity_id"`
	Name            string             `json:"name"`
	RiskScore       float64            `json:"risk_score"`
	RiskLevel       Level              `json:"risk_level"`
	ClaimCount      int                `json:"claim_count"`
	UniqueClaimants int                `json:"unique_claimants"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	AvgClaimRisk    float64            `json:"avg_claim_risk"`
	RingConnections int                `json:"ring_connections"`
	RiskFactors     map[string]float64 `json:"risk_factors"`
}

// displayName renders a factor key for explanations, e.g.
// "fraud_ring_member" becomes "Fraud Ring Member".
func displayName(factor string) string {
	words := strings.Split(factor, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
