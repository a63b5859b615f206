package rings

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/errors"
	"github.com/davidleathers/insurance-fraud-backend/internal/domain/ring"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/config"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/graph"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/telemetry"
)

// Service detects fraud rings by folding pairwise claimant connections
// into connected components, then persists them to the graph.
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

type signalPass struct {
	name    string
	pattern ring.Pattern
	query   string
	params  map[string]any
}

func (s *Service) passes() []signalPass {
	rc := s.cfg.Rings
	return []signalPass{
		{
			name:    "shared_entities",
			pattern: ring.PatternSharedEntity,
			query:   querySharedEntityPairs,
			params: map[string]any{
				"min_shared": rc.MinSharedConnections,
				"limit":      rc.PassLimit,
			},
		},
		{
			name:    "accident_patterns",
			pattern: ring.PatternAccidentPattern,
			query:   queryAccidentPatternPairs,
			params: map[string]any{
				"window_days":  rc.LocationWindowDays,
				"min_avg_risk": rc.MinMemberAvgRisk,
				"limit":        rc.PassLimit,
			},
		},
		{
			name:    "witness_networks",
			pattern: ring.PatternWitnessNetwork,
			query:   queryWitnessNetworkPairs,
			params: map[string]any{
				"limit": rc.PassLimit,
			},
		},
		{
			name:    "vehicle_sharing",
			pattern: ring.PatternVehicleSharing,
			query:   queryVehicleSharingPairs,
			params: map[string]any{
				"min_avg_risk": rc.MinMemberAvgRisk,
				"limit":        rc.PassLimit,
			},
		},
	}
}

// DetectRings runs all four signal passes, merges overlapping
// components and returns the rings above the confidence floor. A
// failing pass is logged and skipped so one bad query does not lose
// the rest of the sweep.
func (s *Service) DetectRings(ctx context.Context) ([]*ring.FraudRing, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "rings", "detect")
	defer span.End()

	s.logger.InfoContext(ctx, "starting fraud ring detection")

	var all []*ring.FraudRing
	for _, pass := range s.passes() {
		found, err := s.runPass(ctx, pass)
		if err != nil {
			if ctx.Err() != nil {
				telemetry.WithSpanError(span, err)
				return nil, err
			}
			s.logger.ErrorContext(ctx, "ring signal pass failed",
				slog.String("pass", pass.name),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.logger.InfoContext(ctx, "ring signal pass complete",
			slog.String("pass", pass.name),
			slog.Int("rings", len(found)),
		)
		all = append(all, found...)
	}

	merged := mergeOverlapping(all, s.cfg.Rings.MergeOverlapThreshold)

	result := make([]*ring.FraudRing, 0, len(merged))
	for _, r := range merged {
		r.Confidence = ringConfidence(r)
		if r.Confidence >= s.cfg.Rings.MinConfidence {
			result = append(result, r)
		}
	}

	s.logger.InfoContext(ctx, "fraud ring detection complete",
		slog.Int("candidates", len(all)),
		slog.Int("merged", len(merged)),
		slog.Int("high_confidence", len(result)),
	)

	return result, nil
}

func (s *Service) runPass(ctx context.Context, pass signalPass) ([]*ring.FraudRing, error) {
	rows, err := s.store.Query(ctx, pass.query, pass.params)
	if err != nil {
		return nil, err
	}

	uf := newUnionFind()
	for _, rec := range rows {
		c1, c2 := rec.String("claimant1_id"), rec.String("claimant2_id")
		if c1 == "" || c2 == "" {
			continue
		}
		uf.union(c1, c2)
	}

	var found []*ring.FraudRing
	for _, members := range uf.components() {
		if len(members) < s.cfg.Rings.MinRingMembers {
			continue
		}
		r, err := s.buildRing(ctx, pass.pattern, members)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to materialize ring",
				slog.String("pass", pass.name),
				slog.Int("members", len(members)),
				slog.String("error", err.Error()),
			)
			continue
		}
		found = append(found, r)
	}
	return found, nil
}

func (s *Service) buildRing(ctx context.Context, pattern ring.Pattern, members []string) (*ring.FraudRing, error) {
	rows, err := s.store.Query(ctx, queryRingMembers, map[string]any{"claimant_ids": members})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.NewInternalError("ring members query returned no rows")
	}
	rec := rows[0]

	memberIDs := rec.StringSlice("member_ids")
	if len(memberIDs) == 0 {
		memberIDs = members
	}

	return ring.NewDiscoveredRing(
		pattern,
		memberIDs,
		rec.StringSlice("member_names"),
		int(rec.Int64("total_claims")),
		rec.Decimal("total_amount"),
		round2(rec.Float64("avg_risk")),
	)
}

// mergeOverlapping folds rings whose member overlap against the
// smaller ring exceeds the threshold. A merge across different signal
// families produces a mixed ring.
func mergeOverlapping(all []*ring.FraudRing, threshold float64) []*ring.FraudRing {
	if len(all) == 0 {
		return nil
	}

	memberSets := make([]map[string]struct{}, len(all))
	for i, r := range all {
		set := make(map[string]struct{}, len(r.MemberIDs))
		for _, id := range r.MemberIDs {
			set[id] = struct{}{}
		}
		memberSets[i] = set
	}

	used := make(map[int]bool, len(all))
	var merged []*ring.FraudRing

	for i, r1 := range all {
		if used[i] {
			continue
		}
		used[i] = true

		combined := make(map[string]struct{}, len(memberSets[i]))
		for id := range memberSets[i] {
			combined[id] = struct{}{}
		}
		out := *r1

		for j := i + 1; j < len(all); j++ {
			if used[j] {
				continue
			}
			overlap := 0
			for id := range memberSets[j] {
				if _, ok := memberSets[i][id]; ok {
					overlap++
				}
			}
			smaller := len(memberSets[i])
			if len(memberSets[j]) < smaller {
				smaller = len(memberSets[j])
			}
			if smaller == 0 || float64(overlap)/float64(smaller) <= threshold {
				continue
			}

			for id := range memberSets[j] {
				combined[id] = struct{}{}
			}
			if out.Pattern != all[j].Pattern {
				out.Pattern = ring.PatternMixed
			}
			used[j] = true
		}

		ids := make([]string, 0, len(combined))
		for id := range combined {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out.MemberIDs = ids
		out.MemberCount = len(ids)

		merged = append(merged, &out)
	}

	return merged
}

// ringConfidence scores a ring by member count, member risk and claim
// volume.
func ringConfidence(r *ring.FraudRing) float64 {
	confidence := 0.5

	switch {
	case r.MemberCount >= 10:
		confidence += 0.2
	case r.MemberCount >= 5:
		confidence += 0.15
	case r.MemberCount >= 3:
		confidence += 0.1
	}

	switch {
	case r.AvgRiskScore >= 70:
		confidence += 0.2
	case r.AvgRiskScore >= 60:
		confidence += 0.15
	case r.AvgRiskScore >= 50:
		confidence += 0.1
	}

	switch {
	case r.TotalClaims >= 15:
		confidence += 0.1
	case r.TotalClaims >= 10:
		confidence += 0.05
	}

	return math.Min(confidence, 1.0)
}

// PersistRings upserts ring nodes and MEMBER_OF edges. Each ring is
// written in its own transaction; a failed ring is logged and skipped.
func (s *Service) PersistRings(ctx context.Context, rs []*ring.FraudRing) (int, error) {
	ctx, span := telemetry.StartDetectionSpan(ctx, "rings", "persist")
	defer span.End()

	created := 0
	for _, r := range rs {
		if err := ctx.Err(); err != nil {
			return created, errors.NewTimeoutError("persist_rings", "ring persistence interrupted").WithCause(err)
		}

		txCtx, cancel := context.WithTimeout(ctx, s.cfg.Rings.PersistTimeout)
		err := s.store.WriteTx(txCtx, func(tx graph.Tx) error {
			if _, err := tx.Write(queryMergeRing, map[string]any{
				"ring_id":                r.ID,
				"ring_type":              string(r.Type),
				"pattern_type":           string(r.Pattern),
				"status":                 string(r.Status),
				"confidence_score":       r.Confidence,
				"member_count":           r.MemberCount,
				"total_claims":           r.TotalClaims,
				"estimated_fraud_amount": r.TotalAmount.InexactFloat64(),
				"avg_risk_score":         r.AvgRiskScore,
				"discovered_date":        r.DiscoveredAt.Format("2006-01-02"),
				"discovered_by":          r.DiscoveredBy,
			}); err != nil {
				return err
			}
			for _, memberID := range r.MemberIDs {
				if _, err := tx.Write(queryLinkRingMember, map[string]any{
					"claimant_id": memberID,
					"ring_id":     r.ID,
				}); err != nil {
					return err
				}
			}
			return nil
		})
		cancel()
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to persist fraud ring",
				slog.String("ring_id", r.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		created++
	}

	s.logger.InfoContext(ctx, "fraud ring persistence complete",
		slog.Int("created", created),
		slog.Int("requested", len(rs)),
	)
	return created, nil
}

// GetRing loads one ring with its members.
func (s *Service) GetRing(ctx context.Context, ringID string) (*ring.FraudRing, error) {
	rows, err := s.store.Query(ctx, queryGetRing, map[string]any{"ring_id": ringID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0].String("ring_id") == "" {
		return nil, errors.ErrRingNotFound
	}
	return recordToRing(rows[0]), nil
}

// ListRings returns persisted rings, optionally filtered by status,
// ordered by confidence.
func (s *Service) ListRings(ctx context.Context, status ring.Status, limit int) ([]*ring.FraudRing, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.store.Query(ctx, queryListRings, map[string]any{
		"status": string(status),
		"limit":  limit,
	})
	if err != nil {
		return nil, err
	}

	result := make([]*ring.FraudRing, 0, len(rows))
	for _, rec := range rows {
		result = append(result, recordToRing(rec))
	}
	return result, nil
}

// ConfirmRing moves a ring under review to confirmed.
func (s *Service) ConfirmRing(ctx context.Context, ringID string) (*ring.FraudRing, error) {
	return s.transitionRing(ctx, ringID, (*ring.FraudRing).Confirm)
}

// DismissRing marks a ring under review as a false positive.
func (s *Service) DismissRing(ctx context.Context, ringID string) (*ring.FraudRing, error) {
	return s.transitionRing(ctx, ringID, (*ring.FraudRing).Dismiss)
}

func (s *Service) transitionRing(ctx context.Context, ringID string, transition func(*ring.FraudRing) error) (*ring.FraudRing, error) {
	r, err := s.GetRing(ctx, ringID)
	if err != nil {
		return nil, err
	}
	if err := transition(r); err != nil {
		return nil, err
	}

	rec, err := s.store.Write(ctx, queryUpdateRingStatus, map[string]any{
		"ring_id": ringID,
		"status":  string(r.Status),
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.ErrRingNotFound
	}

	s.logger.InfoContext(ctx, "ring status updated",
		slog.String("ring_id", ringID),
		slog.String("status", string(r.Status)),
	)
	return r, nil
}

func recordToRing(rec graph.Record) *ring.FraudRing {
	return &ring.FraudRing{
		ID:           rec.String("ring_id"),
		Type:         ring.Type(rec.String("ring_type")),
		Pattern:      ring.Pattern(rec.String("pattern_type")),
		Status:       ring.Status(rec.String("status")),
		MemberIDs:    rec.StringSlice("member_ids"),
		MemberNames:  rec.StringSlice("member_names"),
		MemberCount:  int(rec.Int64("member_count")),
		TotalClaims:  int(rec.Int64("total_claims")),
		TotalAmount:  rec.Decimal("estimated_fraud_amount"),
		AvgRiskScore: rec.Float64("avg_risk_score"),
		Confidence:   rec.Float64("confidence_score"),
		DiscoveredBy: rec.String("discovered_by"),
		DiscoveredAt: rec.Date("discovered_date"),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
