package patterns

import (
	"context"
	"log/slog"
	"math"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/errors"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/config"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/graph"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/telemetry"
)

// Service runs the fraud pattern catalog against the claims graph.
type Service struct {
	store  graph.Store
	cfg    *config.DetectionConfig
	logger *slog.Logger
}

func NewService(store graph.Store, cfg *config.DetectionConfig, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// DetectAll runs every rule in the catalog. A failing rule does not
// abort the run; its error message is recorded in the report.
func (s *Service) DetectAll(ctx context.Context) *CatalogReport {
	ctx, span := telemetry.StartDetectionSpan(ctx, "patterns", "detect_all")
	defer span.End()

	s.logger.InfoContext(ctx, "starting pattern detection sweep")

	report := &CatalogReport{Failed: make(map[string]string)}

	run := func(name Name, count int, err error) int {
		if err != nil {
			s.logger.ErrorContext(ctx, "pattern rule failed",
				slog.String("pattern", string(name)),
				slog.String("error", err.Error()),
			)
			report.Failed[string(name)] = err.Error()
			return 0
		}
		return count
	}

	var err error
	report.StagedAccidents, err = s.DetectStagedAccidents(ctx)
	report.TotalPatterns += run(NameStagedAccident, len(report.StagedAccidents), err)

	report.BodyShopFraud, err = s.DetectBodyShopFraud(ctx)
	report.TotalPatterns += run(NameBodyShopFraud, len(report.BodyShopFraud), err)

	report.MedicalMills, err = s.DetectMedicalMills(ctx)
	report.TotalPatterns += run(NameMedicalMill, len(report.MedicalMills), err)

	report.AttorneyOrganized, err = s.DetectAttorneyOrganized(ctx)
	report.TotalPatterns += run(NameAttorneyOrganized, len(report.AttorneyOrganized), err)

	report.PhantomPassengers, err = s.DetectPhantomPassengers(ctx)
	report.TotalPatterns += run(NamePhantomPassenger, len(report.PhantomPassengers), err)

	report.TowKickbacks, err = s.DetectTowKickbacks(ctx)
	report.TotalPatterns += run(NameTowKickback, len(report.TowKickbacks), err)

	report.AccidentHotspots, err = s.DetectAccidentHotspots(ctx)
	report.TotalPatterns += run(NameAccidentHotspot, len(report.AccidentHotspots), err)

	report.ProfessionalWitnesses, err = s.DetectProfessionalWitnesses(ctx)
	report.TotalPatterns += run(NameProfessionalWitness, len(report.ProfessionalWitnesses), err)

	report.VehicleRecycling, err = s.DetectVehicleRecycling(ctx)
	report.TotalPatterns += run(NameVehicleRecycling, len(report.VehicleRecycling), err)

	if len(report.Failed) == 0 {
		report.Failed = nil
	}

	s.logger.InfoContext(ctx, "pattern detection sweep complete",
		slog.Int("total_patterns", report.TotalPatterns),
	)

	return report
}

// DetectByName runs a single rule from the catalog.
func (s *Service) DetectByName(ctx context.Context, name Name) (any, error) {
	switch name {
	case NameStagedAccident:
		return s.DetectStagedAccidents(ctx)
	case NameBodyShopFraud:
		return s.DetectBodyShopFraud(ctx)
	case NameMedicalMill:
		return s.DetectMedicalMills(ctx)
	case NameAttorneyOrganized:
		return s.DetectAttorneyOrganized(ctx)
	case NamePhantomPassenger:
		return s.DetectPhantomPassengers(ctx)
	case NameTowKickback:
		return s.DetectTowKickbacks(ctx)
	case NameAccidentHotspot:
		return s.DetectAccidentHotspots(ctx)
	case NameProfessionalWitness:
		return s.DetectProfessionalWitnesses(ctx)
	case NameVehicleRecycling:
		return s.DetectVehicleRecycling(ctx)
	default:
		return nil, errors.NewValidationError("UNKNOWN_PATTERN", "unknown pattern name").
			WithDetail("pattern", string(name))
	}
}

// DetectStagedAccidents finds high-value same-day-reported claims with
// repeat witnesses at busy locations.
func (s *Service) DetectStagedAccidents(ctx context.Context) ([]StagedAccident, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "patterns", "staged_accidents")
	defer span.End()

	rows, err := s.store.Query(ctx, queryStagedAccidents, map[string]any{
		"min_amount":              s.cfg.Patterns.StagedMinClaimAmount,
		"max_days":                s.cfg.Patterns.StagedMaxDaysToReport,
		"min_witness_appearances": s.cfg.Patterns.StagedMinWitnessRepeats,
		"limit":                   s.cfg.Patterns.HighSeverityLimit,
	})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}

	results := make([]StagedAccident, 0, len(rows))
	for _, rec := range rows {
		p := StagedAccident{
			ClaimID:            rec.String("claim_id"),
			ClaimNumber:        rec.String("claim_number"),
			ClaimantName:       rec.String("claimant_name"),
			AccidentDate:       rec.Date("accident_date"),
			Amount:             rec.Decimal("amount"),
			Location:           rec.String("location"),
			WitnessNames:       rec.StringSlice("witness_names"),
			LocationClaimCount: int(rec.Int64("location_claim_count")),
		}
		p.WitnessCount = len(p.WitnessNames)

		confidence := 0.5
		amount := p.Amount.InexactFloat64()
		if amount > 50000 {
			confidence += 0.2
			p.Indicators = append(p.Indicators, "High claim amount")
		}
		p.Indicators = append(p.Indicators, "Same-day reporting")
		if p.WitnessCount >= 2 {
			confidence += 0.15
			p.Indicators = append(p.Indicators, "Multiple witnesses (potential staged)")
		}
		if p.LocationClaimCount >= 3 {
			confidence += 0.15
			p.Indicators = append(p.Indicators, "Accident hotspot location")
		}
		p.Confidence = math.Min(confidence, 1.0)

		results = append(results, p)
	}

	s.logger.InfoContext(ctx, "staged accident detection complete", slog.Int("found", len(results)))
	return results, nil
}

// DetectBodyShopFraud finds shops with high-risk claim volume fed by
// repeat claimants.
func (s *Service) DetectBodyShopFraud(ctx context.Context) ([]BodyShopFraud, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "patterns", "body_shop_fraud")
	defer span.End()

	rows, err := s.store.Query(ctx, queryBodyShopFraud, map[string]any{
		"min_claims":         s.cfg.Patterns.BodyShopMinClaims,
		"min_avg_risk":       s.cfg.Patterns.BodyShopMinAvgRisk,
		"min_same_claimants": s.cfg.Patterns.BodyShopMinRepeaters,
		"limit":              s.cfg.Patterns.DefaultLimit,
	})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}

	results := make([]BodyShopFraud, 0, len(rows))
	for _, rec := range rows {
		p := BodyShopFraud{
			BodyShopID:      rec.String("body_shop_id"),
			Name:            rec.String("name"),
			City:            rec.String("city"),
			ClaimCount:      int(rec.Int64("claim_count")),
			UniqueClaimants: int(rec.Int64("unique_claimants")),
			AvgRisk:         round2(rec.Float64("avg_risk")),
			TotalRepairs:    rec.Decimal("total_repairs"),
			AvgRepairCost:   rec.Decimal("avg_repair_cost").Round(2),
			RepeatClaimants: int(rec.Int64("repeat_claimants")),
		}

		confidence := 0.5
		if p.ClaimCount >= 30 {
			confidence += 0.10
			p.Indicators = append(p.Indicators, "High volume of claims")
		}
		if p.AvgRisk >= 70 {
			confidence += 0.25
			p.Indicators = append(p.Indicators, "High average risk score")
		}
		if p.RepeatClaimants >= 5 {
			confidence += 0.15
			p.Indicators = append(p.Indicators, "Multiple repeat claimants")
		}
		p.Confidence = math.Min(confidence, 1.0)

		results = append(results, p)
	}

	s.logger.InfoContext(ctx, "body shop fraud detection complete", slog.Int("found", len(results)))
	return results, nil
}

// DetectMedicalMills finds providers billing large soft-tissue claims
// for a recurring patient pool.
func (s *Service) DetectMedicalMills(ctx context.Context) ([]MedicalMill, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "patterns", "medical_mills")
	defer span.End()

	rows, err := s.store.Query(ctx, queryMedicalMills, map[string]any{
		"min_claims":         s.cfg.Patterns.MedicalMinClaims,
		"min_avg_injury":     s.cfg.Patterns.MedicalMinAvgInjury,
		"min_same_claimants": s.cfg.Patterns.MedicalMinRepeaters,
		"limit":              s.cfg.Patterns.DefaultLimit,
	})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}

	results := make([]MedicalMill, 0, len(rows))
	for _, rec := range rows {
		p := MedicalMill{
			ProviderID:        rec.String("provider_id"),
			Name:              rec.String("name"),
			ProviderType:      rec.String("provider_type"),
			City:              rec.String("city"),
			ClaimCount:        int(rec.Int64("claim_count")),
			UniquePatients:    int(rec.Int64("unique_patients")),
			AvgInjuryAmount:   rec.Decimal("avg_injury_amount").Round(2),
			AvgRisk:           round2(rec.Float64("avg_risk")),
			TotalInjuryClaims: rec.Decimal("total_injury_claims"),
			RepeatPatients:    int(rec.Int64("repeat_patients")),
			SoftTissueRatio:   round2(rec.Float64("soft_tissue_ratio")),
		}

		confidence := 0.5
		if p.ClaimCount >= 30 {
			p.Indicators = append(p.Indicators, "High volume of treatments")
		}
		if p.AvgRisk >= 70 {
			confidence += 0.2
			p.Indicators = append(p.Indicators, "High average risk score")
		}
		if p.RepeatPatients >= 6 {
			confidence += 0.15
			p.Indicators = append(p.Indicators, "Multiple repeat patients")
		}
		if p.SoftTissueRatio >= 0.7 {
			confidence += 0.15
			p.Indicators = append(p.Indicators, "High soft tissue injury ratio")
		}
		p.Confidence = math.Min(confidence, 1.0)

		results = append(results, p)
	}

	s.logger.InfoContext(ctx, "medical mill detection complete", slog.Int("found", len(results)))
	return results, nil
}

// DetectAttorneyOrganized finds attorneys steering large high-risk
// caseloads through a narrow set of service providers.
func (s *Service) DetectAttorneyOrganized(ctx context.Context) ([]AttorneyFraud, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "patterns", "attorney_organized")
	defer span.End()

	rows, err := s.store.Query(ctx, queryAttorneyOrganized, map[string]any{
		"min_cases":    s.cfg.Patterns.AttorneyMinCases,
		"min_avg_risk": s.cfg.Patterns.AttorneyMinAvgRisk,
		"limit":        s.cfg.Patterns.DefaultLimit,
	})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}

	results := make([]AttorneyFraud, 0, len(rows))
	for _, rec := range rows {
		p := AttorneyFraud{
			AttorneyID:             rec.String("attorney_id"),
			Name:                   rec.String("name"),
			Firm:                   rec.String("firm"),
			City:                   rec.String("city"),
			CaseCount:              int(rec.Int64("case_count")),
			UniqueClients:          int(rec.Int64("unique_clients")),
			AvgRisk:                round2(rec.Float64("avg_risk")),
			TotalRepresented:       rec.Decimal("total_represented"),
			UniqueBodyShops:        int(rec.Int64("unique_body_shops")),
			UniqueMedicalProviders: int(rec.Int64("unique_medical_providers")),
		}

		confidence := 0.5
		if p.CaseCount >= 40 {
			p.Indicators = append(p.Indicators, "High case volume")
		}
		if p.AvgRisk >= 70 {
			confidence += 0.25
			p.Indicators = append(p.Indicators, "High average risk score")
		}
		if p.UniqueBodyShops <= 2 {
			if p.CaseCount > 20 {
				confidence += 0.15
			}
			p.Indicators = append(p.Indicators, "Limited body shop referrals")
		}
		if p.UniqueMedicalProviders <= 2 {
			if p.CaseCount > 20 {
				confidence += 0.10
			}
			p.Indicators = append(p.Indicators, "Limited medical provider referrals")
		}
		p.Confidence = math.Min(confidence, 1.0)

		results = append(results, p)
	}

	s.logger.InfoContext(ctx, "attorney organized fraud detection complete", slog.Int("found", len(results)))
	return results, nil
}

// DetectPhantomPassengers finds injury claims far out of proportion to
// the physical damage.
func (s *Service) DetectPhantomPassengers(ctx context.Context) ([]PhantomPassenger, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "patterns", "phantom_passengers")
	defer span.End()

	rows, err := s.store.Query(ctx, queryPhantomPassengers, map[string]any{
		"min_injury":          s.cfg.Patterns.PhantomMinInjury,
		"max_property_damage": s.cfg.Patterns.PhantomMaxPropertyDamage,
		"limit":               s.cfg.Patterns.HighSeverityLimit,
	})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}

	results := make([]PhantomPassenger, 0, len(rows))
	for _, rec := range rows {
		p := PhantomPassenger{
			ClaimID:                   rec.String("claim_id"),
			ClaimNumber:               rec.String("claim_number"),
			ClaimantName:              rec.String("claimant_name"),
			AccidentDate:              rec.Date("accident_date"),
			BodilyInjury:              rec.Decimal("bodily_injury"),
			PropertyDamage:            rec.Decimal("property_damage"),
			InjuryType:                rec.String("injury_type"),
			Vehicle:                   rec.String("vehicle"),
			OtherClaimantsSameVehicle: int(rec.Int64("other_claimants_same_vehicle")),
		}

		confidence := 0.5
		ratio := p.BodilyInjury.InexactFloat64() / math.Max(p.PropertyDamage.InexactFloat64(), 1)
		if ratio > 10 {
			confidence += 0.3
		} else if ratio > 5 {
			confidence += 0.2
		}
		p.Indicators = append(p.Indicators, "High injury claim with minimal property damage")
		if p.OtherClaimantsSameVehicle >= 2 {
			confidence += 0.2
			p.Indicators = append(p.Indicators, "Multiple claimants using same vehicle")
		}
		if p.InjuryType == "" || p.InjuryType == "No Injury" {
			p.Indicators = append(p.Indicators, "No documented injury type")
		}
		p.Confidence = math.Min(confidence, 1.0)

		results = append(results, p)
	}

	s.logger.InfoContext(ctx, "phantom passenger detection complete", slog.Int("found", len(results)))
	return results, nil
}

// DetectTowKickbacks finds tow companies funneling most of their tows
// to one body shop.
func (s *Service) DetectTowKickbacks(ctx context.Context) ([]TowKickback, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "patterns", "tow_kickbacks")
	defer span.End()

	rows, err := s.store.Query(ctx, queryTowKickbacks, map[string]any{
		"min_tows":    s.cfg.Patterns.TowMinTows,
		"min_overlap": s.cfg.Patterns.TowMinConcentration,
		"limit":       s.cfg.Patterns.DefaultLimit,
	})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}

	results := make([]TowKickback, 0, len(rows))
	for _, rec := range rows {
		p := TowKickback{
			TowCompanyID:       rec.String("tow_company_id"),
			Name:               rec.String("name"),
			City:               rec.String("city"),
			TotalTows:          int(rec.Int64("total_tows")),
			ConcentrationRatio: round2(rec.Float64("concentration_ratio")),
		}
		for _, r := range rec.Records("body_shop_referrals") {
			p.Referrals = append(p.Referrals, Referral{
				BodyShopID:   r.String("body_shop_id"),
				BodyShop:     r.String("body_shop"),
				SharedClaims: int(r.Int64("shared_claims")),
			})
		}
		if len(p.Referrals) > 0 {
			p.TopBodyShop = &p.Referrals[0]
		}

		confidence := 0.5
		if p.ConcentrationRatio >= 0.9 {
			confidence += 0.3
			p.Indicators = append(p.Indicators, "Very high referral concentration to single body shop")
		} else if p.ConcentrationRatio >= 0.8 {
			confidence += 0.2
			p.Indicators = append(p.Indicators, "High referral concentration")
		}
		if p.TotalTows >= 30 {
			confidence += 0.2
			p.Indicators = append(p.Indicators, "High volume of tows")
		}
		p.Confidence = math.Min(confidence, 1.0)

		results = append(results, p)
	}

	s.logger.InfoContext(ctx, "tow kickback detection complete", slog.Int("found", len(results)))
	return results, nil
}

// DetectAccidentHotspots finds locations with unusual accident
// concentration.
func (s *Service) DetectAccidentHotspots(ctx context.Context) ([]AccidentHotspot, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "patterns", "accident_hotspots")
	defer span.End()

	rows, err := s.store.Query(ctx, queryAccidentHotspots, map[string]any{
		"min_accidents": s.cfg.Patterns.HotspotMinAccidents,
		"limit":         s.cfg.Patterns.DefaultLimit,
	})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}

	results := make([]AccidentHotspot, 0, len(rows))
	for _, rec := range rows {
		p := AccidentHotspot{
			LocationID:      rec.String("location_id"),
			Intersection:    rec.String("intersection"),
			City:            rec.String("city"),
			AccidentCount:   int(rec.Int64("accident_count")),
			UniqueClaimants: int(rec.Int64("unique_claimants")),
			AvgAmount:       rec.Decimal("avg_amount").Round(2),
			AvgRisk:         round2(rec.Float64("avg_risk")),
			WitnessCount:    int(rec.Int64("witness_count")),
		}

		confidence := 0.5
		if p.AccidentCount >= 10 {
			confidence += 0.3
			p.Indicators = append(p.Indicators, "Major accident hotspot")
		} else if p.AccidentCount >= 7 {
			confidence += 0.2
			p.Indicators = append(p.Indicators, "Accident hotspot")
		}
		if p.AvgRisk >= 60 {
			confidence += 0.2
			p.Indicators = append(p.Indicators, "High average risk score")
		}
		if p.WitnessCount >= 3 {
			p.Indicators = append(p.Indicators, "Multiple witnesses across accidents")
		}
		p.Confidence = math.Min(confidence, 1.0)

		results = append(results, p)
	}

	s.logger.InfoContext(ctx, "accident hotspot detection complete", slog.Int("found", len(results)))
	return results, nil
}

// DetectProfessionalWitnesses finds witnesses who keep turning up at
// accidents.
func (s *Service) DetectProfessionalWitnesses(ctx context.Context) ([]ProfessionalWitness, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "patterns", "professional_witnesses")
	defer span.End()

	rows, err := s.store.Query(ctx, queryProfessionalWitnesses, map[string]any{
		"min_appearances": s.cfg.Patterns.WitnessMinAppearances,
		"limit":           s.cfg.Patterns.DefaultLimit,
	})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}

	results := make([]ProfessionalWitness, 0, len(rows))
	for _, rec := range rows {
		p := ProfessionalWitness{
			WitnessID:       rec.String("witness_id"),
			Name:            rec.String("name"),
			Phone:           rec.String("phone"),
			WitnessedCount:  int(rec.Int64("witnessed_count")),
			UniqueClaimants: int(rec.Int64("unique_claimants")),
			AvgRisk:         round2(rec.Float64("avg_risk")),
			RingConnections: int(rec.Int64("ring_connections")),
		}

		confidence := 0.5
		if p.WitnessedCount >= 5 {
			confidence += 0.3
			p.Indicators = append(p.Indicators, "Witnessed 5+ accidents (professional witness)")
		} else if p.WitnessedCount >= 4 {
			confidence += 0.2
			p.Indicators = append(p.Indicators, "Multiple accident witnesses")
		} else if p.WitnessedCount >= 3 {
			p.Indicators = append(p.Indicators, "Multiple accident witnesses")
		}
		if p.RingConnections >= 1 {
			confidence += 0.2
			p.Indicators = append(p.Indicators, "Connected to fraud ring(s)")
		}
		if p.AvgRisk >= 60 {
			p.Indicators = append(p.Indicators, "High average claim risk")
		}
		p.Confidence = math.Min(confidence, 1.0)

		results = append(results, p)
	}

	s.logger.InfoContext(ctx, "professional witness detection complete", slog.Int("found", len(results)))
	return results, nil
}

// DetectVehicleRecycling finds vehicles reused across accidents by
// different claimants.
func (s *Service) DetectVehicleRecycling(ctx context.Context) ([]VehicleRecycling, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "patterns", "vehicle_recycling")
	defer span.End()

	rows, err := s.store.Query(ctx, queryVehicleRecycling, map[string]any{
		"min_accidents": s.cfg.Patterns.VehicleMinAccidents,
		"min_claimants": s.cfg.Patterns.VehicleMinClaimants,
		"limit":         s.cfg.Patterns.DefaultLimit,
	})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}

	results := make([]VehicleRecycling, 0, len(rows))
	for _, rec := range rows {
		p := VehicleRecycling{
			VehicleID:       rec.String("vehicle_id"),
			VehicleInfo:     rec.String("vehicle_info"),
			VIN:             rec.String("vin"),
			LicensePlate:    rec.String("license_plate"),
			AccidentCount:   int(rec.Int64("accident_count")),
			UniqueClaimants: int(rec.Int64("unique_claimants")),
			TotalDamage:     rec.Decimal("total_damage"),
			AvgRisk:         round2(rec.Float64("avg_risk")),
			ClaimantNames:   rec.StringSlice("claimant_names"),
		}

		confidence := 0.5
		if p.AccidentCount >= 4 {
			confidence += 0.15
			p.Indicators = append(p.Indicators, "Multiple accidents (4+)")
		}
		if p.UniqueClaimants >= 3 {
			confidence += 0.25
			p.Indicators = append(p.Indicators, "3+ different claimants")
		}
		if p.AvgRisk >= 60 {
			confidence += 0.10
		}
		if p.TotalDamage.InexactFloat64() > 100000 {
			p.Indicators = append(p.Indicators, "High total damage amount")
		}
		p.Confidence = math.Min(confidence, 1.0)

		results = append(results, p)
	}

	s.logger.InfoContext(ctx, "vehicle recycling detection complete", slog.Int("found", len(results)))
	return results, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
