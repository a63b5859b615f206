package scoring

import (
	"context"
	"time"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/claim"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/graph"
)

// claimData is the base claim row every per-claim factor works from.
type claimData struct {
	claimNumber    string
	totalAmount    float64
	propertyDamage float64
	bodilyInjury   float64
	accidentDate   time.Time
	reportDate     time.Time
	accidentType   string
	injuryType     string
}

func claimDataFromRecord(rec graph.Record) claimData {
	return claimData{
		claimNumber:    rec.String("claim_number"),
		totalAmount:    rec.Float64("total_amount"),
		propertyDamage: rec.Float64("property_damage"),
		bodilyInjury:   rec.Float64("bodily_injury"),
		accidentDate:   rec.Date("accident_date"),
		reportDate:     rec.Date("report_date"),
		accidentType:   rec.String("accident_type"),
		injuryType:     rec.String("injury_type"),
	}
}

// scoreClaimAmount buckets the claim total on a 0-1 scale.
func scoreClaimAmount(data claimData) float64 {
	switch {
	case data.totalAmount >= 100000:
		return 1.0
	case data.totalAmount >= 75000:
		return 0.8
	case data.totalAmount >= 50000:
		return 0.6
	case data.totalAmount >= 30000:
		return 0.4
	case data.totalAmount >= 15000:
		return 0.2
	default:
		return 0.0
	}
}

// scoreReportingDelay flags both suspiciously fast and very delayed
// filings.
func scoreReportingDelay(data claimData) float64 {
	if data.accidentDate.IsZero() || data.reportDate.IsZero() {
		return 0.0
	}

	days := int(data.reportDate.Sub(data.accidentDate).Hours() / 24)
	switch {
	case days == 0:
		return 0.8
	case days > 60:
		return 1.0
	case days > 30:
		return 0.7
	case days > 14:
		return 0.3
	default:
		return 0.0
	}
}

// scoreInjuryConsistency compares bodily injury against property
// damage. Large injury claims with little physical damage, or injury
// payouts with no documented injury, score high.
func scoreInjuryConsistency(data claimData) float64 {
	if data.bodilyInjury > 0 && data.propertyDamage > 0 {
		ratio := data.bodilyInjury / data.propertyDamage
		switch {
		case ratio > 5:
			return 1.0
		case ratio > 3:
			return 0.7
		case ratio > 2:
			return 0.5
		default:
			return 0.0
		}
	}

	if data.injuryType == string(claim.InjuryNone) && data.bodilyInjury > 10000 {
		return 0.9
	}

	return 0.0
}

// scoreWitnessCredibility looks at how many claims the claim's most
// prolific witness has appeared in.
func (s *Service) scoreWitnessCredibility(ctx context.Context, claimID string) (float64, error) {
	rows, err := s.store.Query(ctx, queryWitnessCredibility, map[string]any{"claim_id": claimID})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0.0, nil
	}

	switch count := rows[0].Int64("witness_count"); {
	case count >= 5:
		return 1.0, nil
	case count >= 3:
		return 0.8, nil
	case count >= 2:
		return 0.5, nil
	default:
		return 0.0, nil
	}
}

// scoreLocationRisk scores how busy the accident location is.
func (s *Service) scoreLocationRisk(ctx context.Context, claimID string) (float64, error) {
	rows, err := s.store.Query(ctx, queryLocationRisk, map[string]any{"claim_id": claimID})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0.0, nil
	}

	switch count := rows[0].Int64("location_count"); {
	case count >= 10:
		return 1.0, nil
	case count >= 7:
		return 0.8, nil
	case count >= 5:
		return 0.6, nil
	case count >= 3:
		return 0.3, nil
	default:
		return 0.0, nil
	}
}

// scoreClaimEntityRisk scores the service entity attached to the claim
// by volume, average risk of its book and fraud ring proximity.
func (s *Service) scoreClaimEntityRisk(ctx context.Context, claimID string, entityType claim.EntityType) (float64, error) {
	rows, err := s.store.Query(ctx, claimEntityRiskQuery(entityType), map[string]any{"claim_id": claimID})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0.0, nil
	}

	rec := rows[0]
	claimCount := rec.Int64("entity_claim_count")
	avgRisk := rec.Float64("avg_risk")
	ringCount := rec.Int64("ring_count")

	var score float64
	switch {
	case claimCount >= 30:
		score += 0.4
	case claimCount >= 20:
		score += 0.3
	case claimCount >= 10:
		score += 0.2
	}

	switch {
	case avgRisk >= 70:
		score += 0.3
	case avgRisk >= 50:
		score += 0.2
	}

	switch {
	case ringCount >= 2:
		score += 0.3
	case ringCount >= 1:
		score += 0.2
	}

	if score > 1.0 {
		score = 1.0
	}
	return score, nil
}

// scoreRingMembership returns the strongest ring confidence attached to
// the claimant, or the maximum when they belong to several rings.
func (s *Service) scoreRingMembership(ctx context.Context, claimID string) (float64, error) {
	rows, err := s.store.Query(ctx, queryRingMembership, map[string]any{"claim_id": claimID})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0.0, nil
	}

	rec := rows[0]
	ringCount := rec.Int64("ring_count")
	if ringCount == 0 {
		return 0.0, nil
	}
	if ringCount >= 2 {
		return 1.0, nil
	}

	scores := rec.Float64Slice("confidence_scores")
	if len(scores) == 0 {
		return s.cfg.Scoring.DefaultRingConfidence, nil
	}
	maxConfidence := scores[0]
	for _, c := range scores[1:] {
		if c > maxConfidence {
			maxConfidence = c
		}
	}
	return maxConfidence, nil
}

// scoreRepeatEntities flags claimants who reuse the same body shops,
// providers and attorneys across claims.
func (s *Service) scoreRepeatEntities(ctx context.Context, claimID string) (float64, error) {
	rows, err := s.store.Query(ctx, queryRepeatEntities, map[string]any{"claim_id": claimID})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0.0, nil
	}

	rec := rows[0]
	if rec.Int64("other_claim_count") == 0 {
		return 0.0, nil
	}

	var score float64
	if rec.Int64("same_body_shops") >= 2 {
		score += 0.4
	}
	if rec.Int64("same_medical_providers") >= 2 {
		score += 0.3
	}
	if rec.Int64("same_attorneys") >= 2 {
		score += 0.3
	}

	if score > 1.0 {
		score = 1.0
	}
	return score, nil
}

// scoreVehicleHistory scores the accident count of the claim's vehicle.
func (s *Service) scoreVehicleHistory(ctx context.Context, claimID string) (float64, error) {
	rows, err := s.store.Query(ctx, queryVehicleHistory, map[string]any{"claim_id": claimID})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0.0, nil
	}

	switch count := rows[0].Int64("accident_count"); {
	case count >= 4:
		return 1.0, nil
	case count >= 3:
		return 0.8, nil
	case count >= 2:
		return 0.5, nil
	default:
		return 0.0, nil
	}
}
