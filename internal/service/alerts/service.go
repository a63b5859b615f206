package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/alert"
	"github.com/davidleathers/insurance-fraud-backend/internal/domain/errors"
	"github.com/davidleathers/insurance-fraud-backend/internal/domain/ring"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/config"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/graph"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/insurance-fraud-backend/internal/service/patterns"
)

// Service generates, stores and manages fraud alerts.
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

// CreateAlert persists the alert node and its ALERTS edge in one
// transaction.
func (s *Service) CreateAlert(ctx context.Context, a *alert.Alert) error {
	idField, ok := a.EntityType.IDField()
	if !ok {
		return errors.NewValidationError("INVALID_ENTITY_TYPE", "unknown alert entity type")
	}

	err := s.store.WriteTx(ctx, func(tx graph.Tx) error {
		if _, err := tx.Write(queryCreateAlert, map[string]any{
			"alert_id":    a.ID,
			"alert_type":  string(a.Type),
			"severity":    string(a.Severity),
			"title":       a.Title,
			"description": a.Description,
			"entity_id":   a.EntityID,
			"entity_type": string(a.EntityType),
			"created_at":  a.CreatedAt.Format(time.RFC3339),
			"updated_at":  a.UpdatedAt.Format(time.RFC3339),
		}); err != nil {
			return err
		}
		_, err := tx.Write(linkAlertQuery(string(a.EntityType), idField), map[string]any{
			"alert_id":  a.ID,
			"entity_id": a.EntityID,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "alert created",
		slog.String("alert_id", a.ID),
		slog.String("alert_type", string(a.Type)),
		slog.String("severity", string(a.Severity)),
	)
	return nil
}

// severityByRisk maps a 0-100 risk score to an alert severity.
func (s *Service) severityByRisk(risk float64) alert.Severity {
	switch {
	case risk >= s.cfg.Alerts.CriticalRiskScore:
		return alert.SeverityCritical
	case risk >= s.cfg.Alerts.HighRiskScore:
		return alert.SeverityHigh
	case risk >= s.cfg.Alerts.MediumRiskScore:
		return alert.SeverityMedium
	default:
		return alert.SeverityLow
	}
}

// escalateByAmount bumps severity for claims whose amount alone
// warrants attention.
func (s *Service) escalateByAmount(severity alert.Severity, amount float64) alert.Severity {
	if amount >= s.cfg.Alerts.CriticalClaimAmount {
		return alert.SeverityCritical
	}
	if amount >= s.cfg.Alerts.HighClaimAmount && severity.Rank() > alert.SeverityHigh.Rank() {
		return alert.SeverityHigh
	}
	return severity
}

// MonitorHighRiskClaims alerts on scored claims above the high risk
// threshold that have no open high-risk alert yet.
func (s *Service) MonitorHighRiskClaims(ctx context.Context) ([]string, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "alerts", "monitor_high_risk_claims")
	defer span.End()

	rows, err := s.store.Query(ctx, queryHighRiskClaims, map[string]any{
		"high_risk_score": s.cfg.Alerts.HighRiskScore,
	})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}

	var created []string
	for _, rec := range rows {
		risk := rec.Float64("risk_score")
		amount := rec.Decimal("amount")
		severity := s.escalateByAmount(s.severityByRisk(risk), amount.InexactFloat64())

		a, err := alert.New(
			alert.TypeHighRiskClaim,
			severity,
			fmt.Sprintf("High Risk Claim Detected: %s", rec.String("claim_number")),
			fmt.Sprintf("Claim filed by %s has risk score of %.1f. Accident type: %s, Amount: $%s",
				rec.String("claimant_name"), risk, rec.String("accident_type"), formatMoney(amount)),
			rec.String("claim_id"),
			alert.EntityClaim,
		)
		if err != nil {
			continue
		}
		if err := s.CreateAlert(ctx, a); err != nil {
			s.logger.WarnContext(ctx, "failed to create high risk claim alert",
				slog.String("claim_id", rec.String("claim_id")),
				slog.String("error", err.Error()),
			)
			continue
		}
		created = append(created, a.ID)
	}

	s.logger.InfoContext(ctx, "high risk claim monitoring complete", slog.Int("alerts", len(created)))
	return created, nil
}

// MonitorRepeatClaimants alerts on claimants filing at or above the
// repeat threshold.
func (s *Service) MonitorRepeatClaimants(ctx context.Context) ([]string, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "alerts", "monitor_repeat_claimants")
	defer span.End()

	rows, err := s.store.Query(ctx, queryRepeatClaimants, map[string]any{
		"threshold": s.cfg.Alerts.RepeatClaimantClaims,
	})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}

	var created []string
	for _, rec := range rows {
		name := rec.String("name")
		avgRisk := rec.Float64("avg_risk")

		a, err := alert.New(
			alert.TypeRepeatClaimant,
			s.severityByRisk(avgRisk),
			fmt.Sprintf("Repeat Claimant Detected: %s", name),
			fmt.Sprintf("%s has filed %d claims totaling $%s. Average risk score: %.1f",
				name, rec.Int64("claim_count"), formatMoney(rec.Decimal("total_claimed")), avgRisk),
			rec.String("claimant_id"),
			alert.EntityClaimant,
		)
		if err != nil {
			continue
		}
		if err := s.CreateAlert(ctx, a); err != nil {
			s.logger.WarnContext(ctx, "failed to create repeat claimant alert",
				slog.String("claimant_id", rec.String("claimant_id")),
				slog.String("error", err.Error()),
			)
			continue
		}
		created = append(created, a.ID)
	}

	s.logger.InfoContext(ctx, "repeat claimant monitoring complete", slog.Int("alerts", len(created)))
	return created, nil
}

// MonitorProfessionalWitnesses alerts on witnesses appearing in
// several claims.
func (s *Service) MonitorProfessionalWitnesses(ctx context.Context) ([]string, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "alerts", "monitor_professional_witnesses")
	defer span.End()

	rows, err := s.store.Query(ctx, queryProfessionalWitnesses, map[string]any{
		"threshold": s.cfg.Alerts.ProfessionalWitness,
	})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}

	var created []string
	for _, rec := range rows {
		name := rec.String("name")
		witnessed := rec.Int64("witnessed_count")

		severity := alert.SeverityMedium
		if witnessed >= 5 {
			severity = alert.SeverityHigh
		}

		a, err := alert.New(
			alert.TypeProfessionalWitness,
			severity,
			fmt.Sprintf("Professional Witness Detected: %s", name),
			fmt.Sprintf("%s has witnessed %d accidents involving %d different claimants. Average claim risk: %.1f",
				name, witnessed, rec.Int64("unique_claimants"), rec.Float64("avg_risk")),
			rec.String("witness_id"),
			alert.EntityWitness,
		)
		if err != nil {
			continue
		}
		if err := s.CreateAlert(ctx, a); err != nil {
			s.logger.WarnContext(ctx, "failed to create professional witness alert",
				slog.String("witness_id", rec.String("witness_id")),
				slog.String("error", err.Error()),
			)
			continue
		}
		created = append(created, a.ID)
	}

	s.logger.InfoContext(ctx, "professional witness monitoring complete", slog.Int("alerts", len(created)))
	return created, nil
}

// MonitorAccidentHotspots alerts on locations with repeated accidents.
func (s *Service) MonitorAccidentHotspots(ctx context.Context) ([]string, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "alerts", "monitor_accident_hotspots")
	defer span.End()

	rows, err := s.store.Query(ctx, queryAccidentHotspots, map[string]any{
		"threshold": s.cfg.Alerts.HotspotClaims,
	})
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}

	var created []string
	for _, rec := range rows {
		accidents := rec.Int64("accident_count")

		severity := alert.SeverityMedium
		if accidents >= 10 {
			severity = alert.SeverityHigh
		}

		a, err := alert.New(
			alert.TypeAccidentHotspot,
			severity,
			fmt.Sprintf("Accident Hotspot: %s", rec.String("intersection")),
			fmt.Sprintf("%d accidents at %s, %s. Total claims: $%s. Average risk: %.1f",
				accidents, rec.String("intersection"), rec.String("city"),
				formatMoney(rec.Decimal("total_amount")), rec.Float64("avg_risk")),
			rec.String("location_id"),
			alert.EntityAccidentLocation,
		)
		if err != nil {
			continue
		}
		if err := s.CreateAlert(ctx, a); err != nil {
			s.logger.WarnContext(ctx, "failed to create accident hotspot alert",
				slog.String("location_id", rec.String("location_id")),
				slog.String("error", err.Error()),
			)
			continue
		}
		created = append(created, a.ID)
	}

	s.logger.InfoContext(ctx, "accident hotspot monitoring complete", slog.Int("alerts", len(created)))
	return created, nil
}

// RunAllMonitors runs every graph-driven monitor. A failing monitor is
// reported as an empty result.
func (s *Service) RunAllMonitors(ctx context.Context) map[string][]string {
	ctx, span := telemetry.StartDetectionSpan(ctx, "alerts", "run_all_monitors")
	defer span.End()

	monitors := []struct {
		name string
		run  func(context.Context) ([]string, error)
	}{
		{"high_risk_claims", s.MonitorHighRiskClaims},
		{"repeat_claimants", s.MonitorRepeatClaimants},
		{"professional_witnesses", s.MonitorProfessionalWitnesses},
		{"accident_hotspots", s.MonitorAccidentHotspots},
	}

	results := make(map[string][]string, len(monitors))
	total := 0
	for _, m := range monitors {
		ids, err := m.run(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "alert monitor failed",
				slog.String("monitor", m.name),
				slog.String("error", err.Error()),
			)
			ids = nil
		}
		results[m.name] = ids
		total += len(ids)
	}

	s.logger.InfoContext(ctx, "alert monitoring complete", slog.Int("total_alerts", total))
	return results
}

// FromPatterns raises alerts for high-confidence catalog findings.
// Staged accidents are critical; entity-level schemes are high.
func (s *Service) FromPatterns(ctx context.Context, report *patterns.CatalogReport) []string {
	ctx, span := telemetry.StartDetectionSpan(ctx, "alerts", "from_patterns")
	defer span.End()

	minConfidence := s.cfg.Alerts.MinPatternConfidence
	var created []string

	for _, p := range report.StagedAccidents {
		if p.Confidence < minConfidence {
			continue
		}
		a, err := alert.New(
			alert.TypeStagedAccident,
			alert.SeverityCritical,
			fmt.Sprintf("Staged Accident: %s", p.ClaimNumber),
			fmt.Sprintf("Potential staged accident detected. Confidence: %.2f%%. Indicators: %s",
				p.Confidence*100, strings.Join(p.Indicators, ", ")),
			p.ClaimID,
			alert.EntityClaim,
		)
		if err == nil && s.CreateAlert(ctx, a) == nil {
			created = append(created, a.ID)
		}
	}

	for _, p := range report.BodyShopFraud {
		if p.Confidence < minConfidence {
			continue
		}
		a, err := alert.New(
			alert.TypeBodyShopFraud,
			alert.SeverityHigh,
			fmt.Sprintf("Body Shop Fraud: %s", p.Name),
			fmt.Sprintf("Suspicious body shop activity. %d claims, %d repeat customers. Avg risk: %.1f",
				p.ClaimCount, p.RepeatClaimants, p.AvgRisk),
			p.BodyShopID,
			alert.EntityBodyShop,
		)
		if err == nil && s.CreateAlert(ctx, a) == nil {
			created = append(created, a.ID)
		}
	}

	for _, p := range report.MedicalMills {
		if p.Confidence < minConfidence {
			continue
		}
		a, err := alert.New(
			alert.TypeMedicalMill,
			alert.SeverityHigh,
			fmt.Sprintf("Medical Mill: %s", p.Name),
			fmt.Sprintf("Suspicious medical provider. %d treatments, %d repeat patients. Soft tissue ratio: %.1f%%",
				p.ClaimCount, p.RepeatPatients, p.SoftTissueRatio*100),
			p.ProviderID,
			alert.EntityMedicalProvider,
		)
		if err == nil && s.CreateAlert(ctx, a) == nil {
			created = append(created, a.ID)
		}
	}

	for _, p := range report.TowKickbacks {
		if p.Confidence < minConfidence {
			continue
		}
		a, err := alert.New(
			alert.TypeTowKickback,
			alert.SeverityHigh,
			fmt.Sprintf("Tow Kickback Scheme: %s", p.Name),
			fmt.Sprintf("Suspicious tow company referral pattern. Concentration ratio: %.1f%%. Total tows: %d",
				p.ConcentrationRatio*100, p.TotalTows),
			p.TowCompanyID,
			alert.EntityTowCompany,
		)
		if err == nil && s.CreateAlert(ctx, a) == nil {
			created = append(created, a.ID)
		}
	}

	s.logger.InfoContext(ctx, "pattern alerts created", slog.Int("alerts", len(created)))
	return created
}

// FromRings raises a critical alert for every high-confidence ring.
func (s *Service) FromRings(ctx context.Context, rings []*ring.FraudRing) []string {
	ctx, span := telemetry.StartDetectionSpan(ctx, "alerts", "from_rings")
	defer span.End()

	var created []string
	for _, r := range rings {
		if r.Confidence < s.cfg.Alerts.MinPatternConfidence {
			continue
		}
		a, err := alert.New(
			alert.TypeFraudRingDetected,
			alert.SeverityCritical,
			fmt.Sprintf("Fraud Ring Detected: %s", r.Pattern),
			fmt.Sprintf("Fraud ring with %d members detected. Pattern: %s. Estimated fraud: $%s. Confidence: %.2f%%",
				r.MemberCount, r.Pattern, formatMoney(r.TotalAmount), r.Confidence*100),
			r.ID,
			alert.EntityFraudRing,
		)
		if err == nil && s.CreateAlert(ctx, a) == nil {
			created = append(created, a.ID)
		}
	}

	s.logger.InfoContext(ctx, "ring alerts created", slog.Int("alerts", len(created)))
	return created
}

// GetAlert loads one alert.
func (s *Service) GetAlert(ctx context.Context, alertID string) (*alert.Alert, error) {
	rows, err := s.store.Query(ctx, queryGetAlert, map[string]any{"alert_id": alertID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.ErrAlertNotFound
	}
	return recordToAlert(rows[0]), nil
}

// ListAlerts returns alerts filtered by status and severity, critical
// first.
func (s *Service) ListAlerts(ctx context.Context, status alert.Status, severity alert.Severity, limit int) ([]*alert.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.store.Query(ctx, queryListAlerts, map[string]any{
		"status":   string(status),
		"severity": string(severity),
		"limit":    limit,
	})
	if err != nil {
		return nil, err
	}

	result := make([]*alert.Alert, 0, len(rows))
	for _, rec := range rows {
		result = append(result, recordToAlert(rec))
	}
	return result, nil
}

// AssignAlert hands an alert to an investigator.
func (s *Service) AssignAlert(ctx context.Context, alertID, assignee string) (*alert.Alert, error) {
	a, err := s.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if err := a.Assign(assignee); err != nil {
		return nil, err
	}

	rec, err := s.store.Write(ctx, queryAssignAlert, map[string]any{
		"alert_id":   alertID,
		"assignee":   assignee,
		"updated_at": a.UpdatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.ErrAlertNotFound
	}

	s.logger.InfoContext(ctx, "alert assigned",
		slog.String("alert_id", alertID),
		slog.String("assignee", assignee),
	)
	return a, nil
}

// ResolveAlert closes an alert with investigation notes.
func (s *Service) ResolveAlert(ctx context.Context, alertID, notes string) (*alert.Alert, error) {
	return s.closeAlert(ctx, alertID, notes, (*alert.Alert).Resolve)
}

// DismissAlert closes an alert as a false positive.
func (s *Service) DismissAlert(ctx context.Context, alertID, reason string) (*alert.Alert, error) {
	return s.closeAlert(ctx, alertID, reason, (*alert.Alert).Dismiss)
}

func (s *Service) closeAlert(ctx context.Context, alertID, notes string, transition func(*alert.Alert, string) error) (*alert.Alert, error) {
	a, err := s.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if err := transition(a, notes); err != nil {
		return nil, err
	}

	rec, err := s.store.Write(ctx, queryResolveAlert, map[string]any{
		"alert_id":   alertID,
		"status":     string(a.Status),
		"notes":      notes,
		"updated_at": a.UpdatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.ErrAlertNotFound
	}

	s.logger.InfoContext(ctx, "alert closed",
		slog.String("alert_id", alertID),
		slog.String("status", string(a.Status)),
	)
	return a, nil
}

// Statistics summarizes the alert queue.
type Statistics struct {
	TotalAlerts     int `json:"total_alerts"`
	OpenAlerts      int `json:"open_alerts"`
	AssignedAlerts  int `json:"assigned_alerts"`
	ResolvedAlerts  int `json:"resolved_alerts"`
	DismissedAlerts int `json:"dismissed_alerts"`
	CriticalAlerts  int `json:"critical_alerts"`
	HighAlerts      int `json:"high_alerts"`
	MediumAlerts    int `json:"medium_alerts"`
	LowAlerts       int `json:"low_alerts"`
}

// GetStatistics counts alerts by status and severity.
func (s *Service) GetStatistics(ctx context.Context) (*Statistics, error) {
	rows, err := s.store.Query(ctx, queryAlertStatistics, nil)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &Statistics{}, nil
	}
	rec := rows[0]
	return &Statistics{
		TotalAlerts:     int(rec.Int64("total_alerts")),
		OpenAlerts:      int(rec.Int64("open_alerts")),
		AssignedAlerts:  int(rec.Int64("assigned_alerts")),
		ResolvedAlerts:  int(rec.Int64("resolved_alerts")),
		DismissedAlerts: int(rec.Int64("dismissed_alerts")),
		CriticalAlerts:  int(rec.Int64("critical_alerts")),
		HighAlerts:      int(rec.Int64("high_alerts")),
		MediumAlerts:    int(rec.Int64("medium_alerts")),
		LowAlerts:       int(rec.Int64("low_alerts")),
	}, nil
}

func recordToAlert(rec graph.Record) *alert.Alert {
	return &alert.Alert{
		ID:              rec.String("alert_id"),
		Type:            alert.Type(rec.String("alert_type")),
		Severity:        alert.Severity(rec.String("severity")),
		Title:           rec.String("title"),
		Description:     rec.String("description"),
		EntityID:        rec.String("entity_id"),
		EntityType:      alert.EntityLabel(rec.String("entity_type")),
		Status:          alert.Status(rec.String("status")),
		AssignedTo:      rec.String("assigned_to"),
		Resolved:        rec.Bool("resolved"),
		ResolutionNotes: rec.String("resolution_notes"),
		CreatedAt:       rec.Date("created_at"),
		UpdatedAt:       rec.Date("updated_at"),
	}
}

// formatMoney renders a decimal with thousands separators and two
// decimal places, e.g. 420000 becomes 420,000.00.
func formatMoney(d decimal.Decimal) string {
	fixed := d.StringFixed(2)

	neg := strings.HasPrefix(fixed, "-")
	if neg {
		fixed = fixed[1:]
	}

	intPart, fracPart, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}

	out := b.String() + "." + fracPart
	if neg {
		out = "-" + out
	}
	return out
}
