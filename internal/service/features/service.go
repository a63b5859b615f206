package features

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/errors"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/config"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/featurestore"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/graph"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/telemetry"
)

// Algorithm constants, not tunables. They define what the engineered
// flags mean.
const (
	highValueAmount         = 50000
	veryHighValueAmount     = 100000
	delayedReportDays       = 30
	frequentClaimantClaims  = 3
	multipleAccidentMinimum = 2
)

// FeatureSink receives exported feature snapshots.
type FeatureSink interface {
	SaveSnapshots(ctx context.Context, snapshots []featurestore.Snapshot) (int64, error)
}

// Service engineers model-ready feature vectors from the claim graph.
// The read path is pure; only ExportBulkFeatures writes, and it writes
// to the feature store rather than the graph.
type Service struct {
	store  graph.Store
	sink   FeatureSink
	cfg    *config.DetectionConfig
	logger *slog.Logger
}

// NewService builds the feature engineer. sink may be nil when no
// feature store is configured; ExportBulkFeatures then fails fast.
func NewService(store graph.Store, sink FeatureSink, cfg *config.DetectionConfig, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		sink:   sink,
		cfg:    cfg,
		logger: logger,
	}
}

// ExtractClaimFeatures assembles the full vector for one claim. Each
// sub-extractor queries its own graph neighborhood; neighborhoods with
// no data contribute zero values.
func (s *Service) ExtractClaimFeatures(ctx context.Context, claimID string) (*ClaimFeatures, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "features", "extract_claim_features")
	defer span.End()

	basic, found, err := s.extractBasic(ctx, claimID)
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}
	if !found {
		return nil, errors.ErrClaimNotFound
	}

	result := &ClaimFeatures{ClaimID: claimID, Basic: basic}

	if result.Temporal, err = s.extractTemporal(ctx, claimID); err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}
	if result.Financial, err = s.extractFinancial(ctx, claimID); err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}
	if result.Network, err = s.extractNetwork(ctx, claimID); err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}
	if result.Entity, err = s.extractEntity(ctx, claimID); err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}
	if result.Historical, err = s.extractHistorical(ctx, claimID); err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}
	if result.Location, err = s.extractLocation(ctx, claimID); err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}

	s.logger.DebugContext(ctx, "claim features extracted", slog.String("claim_id", claimID))
	return result, nil
}

func (s *Service) extractBasic(ctx context.Context, claimID string) (BasicFeatures, bool, error) {
	rows, err := s.store.Query(ctx, queryBasicFeatures, map[string]any{"claim_id": claimID})
	if err != nil {
		return BasicFeatures{}, false, err
	}
	if len(rows) == 0 {
		return BasicFeatures{}, false, nil
	}
	rec := rows[0]
	return BasicFeatures{
		TotalAmount:    rec.Decimal("total_amount"),
		PropertyDamage: rec.Decimal("property_damage"),
		BodilyInjury:   rec.Decimal("bodily_injury"),
		AccidentType:   rec.String("accident_type"),
		InjuryType:     rec.String("injury_type"),
		Status:         rec.String("status"),
		RiskScore:      rec.Float64("risk_score"),
	}, true, nil
}

func (s *Service) extractTemporal(ctx context.Context, claimID string) (TemporalFeatures, error) {
	rows, err := s.store.Query(ctx, queryTemporalFeatures, map[string]any{"claim_id": claimID})
	if err != nil {
		return TemporalFeatures{}, err
	}
	if len(rows) == 0 {
		return TemporalFeatures{}, nil
	}

	accident := rows[0].Date("accident_date")
	report := rows[0].Date("report_date")
	if accident.IsZero() || report.IsZero() {
		return TemporalFeatures{}, nil
	}

	days := int(report.Sub(accident).Hours() / 24)
	weekday := mondayBasedWeekday(accident)
	return TemporalFeatures{
		DaysToReport:      days,
		SameDayReport:     days == 0,
		DelayedReport:     days > delayedReportDays,
		AccidentDayOfWeek: weekday,
		AccidentIsWeekend: weekday >= 5,
		AccidentMonth:     int(accident.Month()),
	}, nil
}

func (s *Service) extractFinancial(ctx context.Context, claimID string) (FinancialFeatures, error) {
	rows, err := s.store.Query(ctx, queryFinancialFeatures, map[string]any{"claim_id": claimID})
	if err != nil {
		return FinancialFeatures{}, err
	}
	if len(rows) == 0 {
		return FinancialFeatures{}, nil
	}

	rec := rows[0]
	total := rec.Float64("total_amount")
	property := rec.Float64("property_damage")
	bodily := rec.Float64("bodily_injury")
	return FinancialFeatures{
		InjuryToPropertyRatio: bodily / math.Max(property, 1),
		HasBodilyInjury:       bodily > 0,
		HighValueClaim:        total > highValueAmount,
		VeryHighValueClaim:    total > veryHighValueAmount,
	}, nil
}

func (s *Service) extractNetwork(ctx context.Context, claimID string) (NetworkFeatures, error) {
	rows, err := s.store.Query(ctx, queryNetworkFeatures, map[string]any{"claim_id": claimID})
	if err != nil {
		return NetworkFeatures{}, err
	}
	if len(rows) == 0 {
		return NetworkFeatures{}, nil
	}

	rec := rows[0]
	return NetworkFeatures{
		ClaimantOtherClaims:     int(rec.Int64("claimant_other_claims")),
		FraudRingMember:         rec.Int64("fraud_ring_count") > 0,
		SharedBodyShopClaimants: int(rec.Int64("shared_body_shop_claimants")),
	}, nil
}

func (s *Service) extractEntity(ctx context.Context, claimID string) (EntityFeatures, error) {
	rows, err := s.store.Query(ctx, queryEntityFeatures, map[string]any{"claim_id": claimID})
	if err != nil {
		return EntityFeatures{}, err
	}
	if len(rows) == 0 {
		return EntityFeatures{}, nil
	}

	rec := rows[0]
	return EntityFeatures{
		HasBodyShop:           rec.Int64("has_body_shop") == 1,
		HasMedicalProvider:    rec.Int64("has_medical_provider") == 1,
		HasAttorney:           rec.Int64("has_attorney") == 1,
		HasTowCompany:         rec.Int64("has_tow_company") == 1,
		HasWitness:            rec.Int64("has_witness") == 1,
		BodyShopVolume:        int(rec.Int64("body_shop_claim_count")),
		MedicalProviderVolume: int(rec.Int64("medical_provider_claim_count")),
		AttorneyVolume:        int(rec.Int64("attorney_claim_count")),
	}, nil
}

func (s *Service) extractHistorical(ctx context.Context, claimID string) (HistoricalFeatures, error) {
	rows, err := s.store.Query(ctx, queryHistoricalFeatures, map[string]any{"claim_id": claimID})
	if err != nil {
		return HistoricalFeatures{}, err
	}
	if len(rows) == 0 {
		return HistoricalFeatures{}, nil
	}

	rec := rows[0]
	count := int(rec.Int64("total_claimant_claims"))
	return HistoricalFeatures{
		ClaimantClaimCount:   count,
		ClaimantTotalClaimed: rec.Decimal("total_claimant_amount"),
		ClaimantAvgRisk:      rec.Float64("avg_claimant_risk"),
		FrequentClaimant:     count >= frequentClaimantClaims,
	}, nil
}

func (s *Service) extractLocation(ctx context.Context, claimID string) (LocationFeatures, error) {
	rows, err := s.store.Query(ctx, queryLocationFeatures, map[string]any{"claim_id": claimID})
	if err != nil {
		return LocationFeatures{}, err
	}
	if len(rows) == 0 {
		return LocationFeatures{}, nil
	}

	rec := rows[0]
	count := int(rec.Int64("location_accident_count"))
	return LocationFeatures{
		HasLocation:           rec.Int64("has_location") == 1,
		LocationAccidentCount: count,
		AccidentHotspot:       count >= s.cfg.Features.HotspotThreshold,
	}, nil
}

// ExtractClaimantFeatures aggregates a claimant's filing history into
// one vector.
func (s *Service) ExtractClaimantFeatures(ctx context.Context, claimantID string) (*ClaimantFeatures, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "features", "extract_claimant_features")
	defer span.End()

	rows, err := s.store.Query(ctx, queryClaimantFeatures, map[string]any{"claimant_id": claimantID})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.ErrClaimantNotFound
	}

	rec := rows[0]
	count := int(rec.Int64("claim_count"))
	result := &ClaimantFeatures{
		ClaimantID:             claimantID,
		ClaimCount:             count,
		TotalClaimed:           rec.Decimal("total_claimed"),
		AvgClaimAmount:         rec.Decimal("avg_claim_amount"),
		AvgRiskScore:           rec.Float64("avg_risk_score"),
		FraudRingMember:        rec.Int64("fraud_ring_count") > 0,
		FraudRingCount:         int(rec.Int64("fraud_ring_count")),
		UniqueBodyShops:        int(rec.Int64("unique_body_shops")),
		UniqueMedicalProviders: int(rec.Int64("unique_medical_providers")),
		UniqueAttorneys:        int(rec.Int64("unique_attorneys")),
		UniqueVehicles:         int(rec.Int64("unique_vehicles")),
	}

	if count > 0 {
		result.BodyShopReuseRatio = 1 - float64(result.UniqueBodyShops)/float64(count)
		result.MedicalProviderReuseRatio = 1 - float64(result.UniqueMedicalProviders)/float64(count)
		result.AttorneyReuseRatio = 1 - float64(result.UniqueAttorneys)/float64(count)
	}

	first := rec.Date("first_accident_date")
	last := rec.Date("last_accident_date")
	if !first.IsZero() && !last.IsZero() && count > 1 {
		daysActive := int(last.Sub(first).Hours() / 24)
		result.DaysActive = daysActive
		result.ClaimsPerYear = float64(count) / math.Max(float64(daysActive), 1) * 365
	}

	return result, nil
}

// ExtractBulkFeatures builds a feature table for up to limit claims,
// newest accidents first.
func (s *Service) ExtractBulkFeatures(ctx context.Context, limit int) ([]BulkFeatureRow, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "features", "extract_bulk_features")
	defer span.End()

	if limit <= 0 {
		limit = s.cfg.Features.BulkLimit
	}

	rows, err := s.store.Query(ctx, queryBulkFeatures, map[string]any{"limit": limit})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}

	result := make([]BulkFeatureRow, 0, len(rows))
	for _, rec := range rows {
		row := BulkFeatureRow{
			ClaimID:                  rec.String("claim_id"),
			ClaimNumber:              rec.String("claim_number"),
			TotalAmount:              rec.Decimal("total_amount"),
			PropertyDamage:           rec.Decimal("property_damage"),
			BodilyInjury:             rec.Decimal("bodily_injury"),
			AccidentDate:             rec.Date("accident_date"),
			ReportDate:               rec.Date("report_date"),
			RiskScore:                rec.Float64("risk_score"),
			AccidentType:             rec.String("accident_type"),
			InjuryType:               rec.String("injury_type"),
			ClaimantOtherClaims:      int(rec.Int64("claimant_other_claims")),
			ClaimantTotalOtherClaims: rec.Decimal("claimant_total_other_claims"),
			VehicleOtherAccidents:    int(rec.Int64("vehicle_other_accidents")),
			HasVehicle:               rec.Int64("has_vehicle") == 1,
			HasBodyShop:              rec.Int64("has_body_shop") == 1,
			HasMedicalProvider:       rec.Int64("has_medical_provider") == 1,
			HasAttorney:              rec.Int64("has_attorney") == 1,
			HasTowCompany:            rec.Int64("has_tow_company") == 1,
			HasWitness:               rec.Int64("has_witness") == 1,
			FraudRingMember:          rec.Int64("fraud_ring_member") == 1,
		}
		deriveBulkFeatures(&row)
		result = append(result, row)
	}

	s.logger.InfoContext(ctx, "bulk features extracted", slog.Int("claims", len(result)))
	return result, nil
}

// ExportBulkFeatures extracts a bulk table and persists one snapshot
// per claim to the feature store. Returns the number of rows written.
func (s *Service) ExportBulkFeatures(ctx context.Context, limit int) (int64, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "features", "export_bulk_features")
	defer span.End()

	if s.sink == nil {
		return 0, errors.NewInternalError("feature store is not configured")
	}

	table, err := s.ExtractBulkFeatures(ctx, limit)
	if err != nil {
		telemetry.WithSpanError(span, err)
		return 0, err
	}
	if len(table) == 0 {
		return 0, nil
	}

	snapshots := make([]featurestore.Snapshot, 0, len(table))
	for i := range table {
		row := &table[i]
		snapshots = append(snapshots, featurestore.Snapshot{
			ClaimID:           row.ClaimID,
			ClaimNumber:       row.ClaimNumber,
			ThresholdsVersion: s.cfg.ThresholdsVersion,
			RiskScore:         row.RiskScore,
			Features:          row.Map(),
		})
	}

	written, err := s.sink.SaveSnapshots(ctx, snapshots)
	if err != nil {
		telemetry.WithSpanError(span, err)
		return 0, err
	}

	s.logger.InfoContext(ctx, "feature snapshots exported", slog.Int64("rows", written))
	return written, nil
}

func deriveBulkFeatures(row *BulkFeatureRow) {
	if !row.AccidentDate.IsZero() && !row.ReportDate.IsZero() {
		days := int(row.ReportDate.Sub(row.AccidentDate).Hours() / 24)
		row.DaysToReport = days
		row.SameDayReport = days == 0
		row.DelayedReport = days > delayedReportDays
	}

	property := row.PropertyDamage.InexactFloat64()
	bodily := row.BodilyInjury.InexactFloat64()
	row.InjuryToPropertyRatio = bodily / math.Max(property, 1)
	row.HasBodilyInjury = bodily > 0

	total := row.TotalAmount.InexactFloat64()
	row.HighValueClaim = total > highValueAmount
	row.VeryHighValueClaim = total > veryHighValueAmount

	row.FrequentClaimant = row.ClaimantOtherClaims >= frequentClaimantClaims
	row.MultipleAccidentVehicle = row.VehicleOtherAccidents >= multipleAccidentMinimum
}

// mondayBasedWeekday converts Go's Sunday-based weekday so Monday is 0
// and Sunday is 6.
func mondayBasedWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
