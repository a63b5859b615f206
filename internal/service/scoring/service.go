package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/claim"
	"github.com/davidleathers/insurance-fraud-backend/internal/domain/errors"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/config"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/graph"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/telemetry"
)

// Service computes weighted risk scores for claims, claimants,
// vehicles and service entities from the claim graph.
type Service struct {
	store    graph.Store
	cache    ScoreCache
	cacheTTL time.Duration
	cfg      *config.DetectionConfig
	logger   *slog.Logger
}

// NewService creates the scoring service. cache may be nil to disable
// score caching.
func NewService(store graph.Store, cache ScoreCache, cacheTTL time.Duration, cfg *config.DetectionConfig, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		cfg:      cfg,
		logger:   logger,
	}
}

func scoreKey(claimID string) string {
	return "fraud:score:" + claimID
}

// ScoreClaim computes the full weighted risk breakdown for one claim.
// Factor queries that fail abort the computation; factors whose data is
// simply absent contribute zero.
func (s *Service) ScoreClaim(ctx context.Context, claimID string) (*ClaimRiskResult, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "scoring", "score_claim")
	defer span.End()

	if s.cache != nil {
		var cached ClaimRiskResult
		if err := s.cache.GetJSON(ctx, scoreKey(claimID), &cached); err == nil {
			return &cached, nil
		}
	}

	rows, err := s.store.Query(ctx, queryClaimData, map[string]any{"claim_id": claimID})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.ErrClaimNotFound
	}
	data := claimDataFromRecord(rows[0])

	raw := map[string]float64{
		"claim_amount":    scoreClaimAmount(data),
		"reporting_delay": scoreReportingDelay(data),
		"injury_severity": scoreInjuryConsistency(data),
	}

	queried := []struct {
		name  string
		score func(context.Context, string) (float64, error)
	}{
		{"witness_suspicious", s.scoreWitnessCredibility},
		{"location_hotspot", s.scoreLocationRisk},
		{"body_shop_risk", s.entityFactor(claim.EntityBodyShop)},
		{"medical_provider_risk", s.entityFactor(claim.EntityMedicalProvider)},
		{"attorney_risk", s.entityFactor(claim.EntityAttorney)},
		{"tow_company_risk", s.entityFactor(claim.EntityTowCompany)},
		{"fraud_ring_member", s.scoreRingMembership},
		{"repeat_entities", s.scoreRepeatEntities},
		{"vehicle_history", s.scoreVehicleHistory},
	}
	for _, factor := range queried {
		score, err := factor.score(ctx, claimID)
		if err != nil {
			telemetry.WithSpanError(span, err)
			return nil, fmt.Errorf("scoring %s for claim %s: %w", factor.name, claimID, err)
		}
		raw[factor.name] = score
	}

	var total float64
	weighted := make(map[string]FactorScore, len(raw))
	for name, score := range raw {
		weight := s.cfg.Scoring.Weights[name]
		weighted[name] = FactorScore{
			RawScore:      round2(score),
			Weight:        weight,
			WeightedScore: round2(score * weight),
		}
		total += score * weight
	}

	total = math.Min(total*100, 100)
	level := s.riskLevel(total)

	result := &ClaimRiskResult{
		ClaimID:           claimID,
		ClaimNumber:       data.claimNumber,
		TotalRiskScore:    round2(total),
		RiskLevel:         level,
		ThresholdsVersion: s.cfg.ThresholdsVersion,
		RiskFactors:       weighted,
		Explanation:       s.explain(weighted, total),
		TopRiskFactors:    topFactors(weighted, s.cfg.Scoring.TopFactorCount),
	}

	s.logger.InfoContext(ctx, "claim scored",
		slog.String("claim_id", claimID),
		slog.Float64("score", result.TotalRiskScore),
		slog.String("level", string(level)))

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, scoreKey(claimID), result, s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "score cache write failed",
				slog.String("claim_id", claimID),
				slog.String("error", err.Error()))
		}
	}

	return result, nil
}

func (s *Service) entityFactor(entityType claim.EntityType) func(context.Context, string) (float64, error) {
	return func(ctx context.Context, claimID string) (float64, error) {
		return s.scoreClaimEntityRisk(ctx, claimID, entityType)
	}
}

// PersistClaimScore writes the score back onto the claim node.
func (s *Service) PersistClaimScore(ctx context.Context, result *ClaimRiskResult) error {
	rec, err := s.store.Write(ctx, queryPersistScore, map[string]any{
		"claim_id":           result.ClaimID,
		"risk_score":         result.TotalRiskScore,
		"risk_level":         string(result.RiskLevel),
		"thresholds_version": result.ThresholdsVersion,
	})
	if err != nil {
		return err
	}
	if rec == nil {
		return errors.ErrClaimNotFound
	}
	return nil
}

// ScoreClaimant scores a claimant's filing history on a point scale.
func (s *Service) ScoreClaimant(ctx context.Context, claimantID string) (*ClaimantRiskResult, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "scoring", "score_claimant")
	defer span.End()

	rows, err := s.store.Query(ctx, queryClaimantRisk, map[string]any{"claimant_id": claimantID})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.ErrClaimantNotFound
	}
	rec := rows[0]

	claimCount := int(rec.Int64("claim_count"))
	totalClaimed := rec.Decimal("total_claimed")
	avgClaimRisk := rec.Float64("avg_claim_risk")

	var rings int
	for _, id := range rec.StringSlice("rings") {
		if id != "" {
			rings++
		}
	}

	factors := make(map[string]float64, 4)

	switch {
	case claimCount >= 5:
		factors["claim_frequency"] = 30
	case claimCount >= 3:
		factors["claim_frequency"] = 20
	case claimCount >= 2:
		factors["claim_frequency"] = 10
	default:
		factors["claim_frequency"] = 0
	}

	total := totalClaimed.InexactFloat64()
	switch {
	case total >= 200000:
		factors["total_amount"] = 20
	case total >= 100000:
		factors["total_amount"] = 15
	case total >= 50000:
		factors["total_amount"] = 10
	default:
		factors["total_amount"] = 0
	}

	factors["avg_claim_risk"] = math.Min(avgClaimRisk*0.3, 30)

	if rings > 0 {
		factors["fraud_ring_member"] = 40
	} else {
		factors["fraud_ring_member"] = 0
	}

	score := sumValues(factors)

	return &ClaimantRiskResult{
		ClaimantID:   claimantID,
		Name:         rec.String("name"),
		RiskScore:    round2(score),
		RiskLevel:    s.riskLevel(score),
		ClaimCount:   claimCount,
		TotalClaimed: totalClaimed,
		AvgClaimRisk: round2(avgClaimRisk),
		FraudRings:   rings,
		RiskFactors:  factors,
	}, nil
}

// ScoreVehicle scores a vehicle's accident history. Several claimants
// filing against the same vehicle is the strongest signal.
func (s *Service) ScoreVehicle(ctx context.Context, vehicleID string) (*VehicleRiskResult, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "scoring", "score_vehicle")
	defer span.End()

	rows, err := s.store.Query(ctx, queryVehicleRisk, map[string]any{"vehicle_id": vehicleID})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.ErrVehicleNotFound
	}
	rec := rows[0]

	accidentCount := int(rec.Int64("accident_count"))
	uniqueClaimants := int(rec.Int64("unique_claimants"))

	factors := make(map[string]float64, 3)

	switch {
	case accidentCount >= 4:
		factors["accident_frequency"] = 40
	case accidentCount >= 3:
		factors["accident_frequency"] = 30
	case accidentCount >= 2:
		factors["accident_frequency"] = 15
	default:
		factors["accident_frequency"] = 0
	}

	switch {
	case uniqueClaimants >= 3:
		factors["multiple_claimants"] = 30
	case uniqueClaimants >= 2:
		factors["multiple_claimants"] = 20
	default:
		factors["multiple_claimants"] = 0
	}

	factors["avg_claim_risk"] = math.Min(rec.Float64("avg_risk")*0.3, 30)

	score := sumValues(factors)

	return &VehicleRiskResult{
		VehicleID:       vehicleID,
		VehicleInfo:     rec.String("vehicle_info"),
		VIN:             rec.String("vin"),
		RiskScore:       round2(score),
		RiskLevel:       s.riskLevel(score),
		AccidentCount:   accidentCount,
		UniqueClaimants: uniqueClaimants,
		TotalDamage:     rec.Decimal("total_damage"),
		RiskFactors:     factors,
	}, nil
}

// ScoreEntity scores a body shop, medical provider, attorney or tow
// company by the book of claims that flows through it.
func (s *Service) ScoreEntity(ctx context.Context, entityType claim.EntityType, entityID string) (*EntityRiskResult, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "scoring", "score_entity")
	defer span.End()

	if _, _, ok := entityType.Relationship(); !ok {
		return nil, errors.ErrUnknownEntityType
	}

	rows, err := s.store.Query(ctx, entityRiskQuery(entityType), map[string]any{"entity_id": entityID})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.ErrEntityNotFound
	}
	rec := rows[0]

	claimCount := int(rec.Int64("claim_count"))
	uniqueClaimants := int(rec.Int64("unique_claimants"))
	avgRisk := rec.Float64("avg_risk")
	ringCount := int(rec.Int64("ring_count"))

	factors := make(map[string]float64, 4)

	switch {
	case claimCount >= 50:
		factors["high_volume"] = 25
	case claimCount >= 30:
		factors["high_volume"] = 20
	case claimCount >= 20:
		factors["high_volume"] = 15
	case claimCount >= 10:
		factors["high_volume"] = 10
	default:
		factors["high_volume"] = 0
	}

	factors["avg_claim_risk"] = math.Min(avgRisk*0.3, 30)

	switch {
	case ringCount >= 3:
		factors["ring_connections"] = 35
	case ringCount >= 2:
		factors["ring_connections"] = 25
	case ringCount >= 1:
		factors["ring_connections"] = 15
	default:
		factors["ring_connections"] = 0
	}

	factors["claimant_concentration"] = 0
	if claimCount > 0 && float64(uniqueClaimants)/float64(claimCount) < 0.5 {
		factors["claimant_concentration"] = 10
	}

	score := sumValues(factors)

	return &EntityRiskResult{
		EntityType:      string(entityType),
		EntityID:        entityID,
		Name:            rec.String("name"),
		RiskScore:       round2(score),
		RiskLevel:       s.riskLevel(score),
		ClaimCount:      claimCount,
		UniqueClaimants: uniqueClaimants,
		TotalAmount:     rec.Decimal("total_amount"),
		AvgClaimRisk:    round2(avgRisk),
		RingConnections: ringCount,
		RiskFactors:     factors,
	}, nil
}

func (s *Service) riskLevel(score float64) Level {
	switch {
	case score >= s.cfg.Scoring.HighRiskThreshold:
		return LevelHigh
	case score >= s.cfg.Scoring.MediumRiskThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

func (s *Service) explain(factors map[string]FactorScore, total float64) string {
	level := s.riskLevel(total)

	var b strings.Builder
	fmt.Fprintf(&b, "This claim has a %s risk score of %.1f. ", level, total)

	switch level {
	case LevelHigh:
		b.WriteString("Multiple fraud indicators detected. ")
	case LevelMedium:
		b.WriteString("Some fraud indicators present. ")
	default:
		b.WriteString("Few fraud indicators detected. ")
	}

	var names []string
	for _, f := range sortedFactors(factors) {
		if f.score.WeightedScore <= 0 {
			continue
		}
		names = append(names, displayName(f.name))
		if len(names) == 3 {
			break
		}
	}
	if len(names) > 0 {
		b.WriteString("Primary risk factors: ")
		b.WriteString(strings.Join(names, ", "))
		b.WriteString(".")
	}

	return b.String()
}

type namedFactor struct {
	name  string
	score FactorScore
}

// sortedFactors orders by weighted score descending, breaking ties by
// name so output is deterministic.
func sortedFactors(factors map[string]FactorScore) []namedFactor {
	out := make([]namedFactor, 0, len(factors))
	for name, fs := range factors {
		out = append(out, namedFactor{name: name, score: fs})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score.WeightedScore != out[j].score.WeightedScore {
			return out[i].score.WeightedScore > out[j].score.WeightedScore
		}
		return out[i].name < out[j].name
	})
	return out
}

func topFactors(factors map[string]FactorScore, n int) []TopFactor {
	sorted := sortedFactors(factors)

	out := make([]TopFactor, 0, n)
	for _, f := range sorted {
		if len(out) >= n {
			break
		}
		if f.score.WeightedScore <= 0 {
			continue
		}
		out = append(out, TopFactor{
			Factor:   displayName(f.name),
			Score:    f.score.WeightedScore,
			RawScore: f.score.RawScore,
		})
	}
	return out
}

func sumValues(m map[string]float64) float64 {
	var sum float64
	for _, v := range m {
		sum += v
	}
	return sum
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
