package rings

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/errors"
	"github.com/davidleathers/insurance-fraud-backend/internal/domain/ring"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/config"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/graph"
	"github.com/davidleathers/insurance-fraud-backend/internal/testutil/mocks"
)

func newTestService(store graph.Store) *Service {
	cfg := config.Defaults()
	return NewService(store, &cfg.Detection, slog.New(slog.DiscardHandler))
}

func pairRow(c1, c2 string) graph.Record {
	return graph.Record{"claimant1_id": c1, "claimant2_id": c2}
}

func membersRow(ids, names []string, claims int64, amount, avgRisk float64) []graph.Record {
	toAny := func(ss []string) []any {
		out := make([]any, len(ss))
		for i, s := range ss {
			out[i] = s
		}
		return out
	}
	return []graph.Record{{
		"member_ids":   toAny(ids),
		"member_names": toAny(names),
		"total_claims": claims,
		"total_amount": amount,
		"avg_risk":     avgRisk,
	}}
}

func TestDetectRingsSingleSharedEntityRing(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, querySharedEntityPairs, mock.Anything).
		Return([]graph.Record{
			pairRow("CLMT_A", "CLMT_B"),
			pairRow("CLMT_B", "CLMT_C"),
		}, nil)
	store.On("Query", mock.Anything, queryAccidentPatternPairs, mock.Anything).Return([]graph.Record{}, nil)
	store.On("Query", mock.Anything, queryWitnessNetworkPairs, mock.Anything).Return([]graph.Record{}, nil)
	store.On("Query", mock.Anything, queryVehicleSharingPairs, mock.Anything).Return([]graph.Record{}, nil)
	store.On("Query", mock.Anything, queryRingMembers, mock.Anything).
		Return(membersRow(
			[]string{"CLMT_A", "CLMT_B", "CLMT_C"},
			[]string{"Maria Santos", "Dan Wu", "Lee Park"},
			11, 420000, 66.6,
		), nil)

	svc := newTestService(store)
	found, err := svc.DetectRings(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)

	r := found[0]
	assert.True(t, strings.HasPrefix(r.ID, "SHARED_ENTITY_RING_"))
	assert.Equal(t, ring.PatternSharedEntity, r.Pattern)
	assert.Equal(t, ring.TypeDiscovered, r.Type)
	assert.Equal(t, ring.StatusUnderReview, r.Status)
	assert.Equal(t, 3, r.MemberCount)
	assert.Equal(t, 11, r.TotalClaims)
	assert.Equal(t, 66.6, r.AvgRiskScore)
	// 0.5 + 0.1 members + 0.15 risk + 0.05 claims
	assert.InDelta(t, 0.8, r.Confidence, 0.0001)
}

func TestDetectRingsSkipsSmallComponents(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, querySharedEntityPairs, mock.Anything).
		Return([]graph.Record{pairRow("CLMT_A", "CLMT_B")}, nil)
	store.On("Query", mock.Anything, queryAccidentPatternPairs, mock.Anything).Return([]graph.Record{}, nil)
	store.On("Query", mock.Anything, queryWitnessNetworkPairs, mock.Anything).Return([]graph.Record{}, nil)
	store.On("Query", mock.Anything, queryVehicleSharingPairs, mock.Anything).Return([]graph.Record{}, nil)

	svc := newTestService(store)
	found, err := svc.DetectRings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, found)
	store.AssertNotCalled(t, "Query", mock.Anything, queryRingMembers, mock.Anything)
}

func TestDetectRingsMergesOverlappingPasses(t *testing.T) {
	// Shared entities connect A-B-C, vehicle sharing connects B-C-D.
	// Overlap of the two components is 2 of 3 members, so they merge
	// into one mixed ring of four.
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, querySharedEntityPairs, mock.Anything).
		Return([]graph.Record{
			pairRow("CLMT_A", "CLMT_B"),
			pairRow("CLMT_B", "CLMT_C"),
		}, nil)
	store.On("Query", mock.Anything, queryAccidentPatternPairs, mock.Anything).Return([]graph.Record{}, nil)
	store.On("Query", mock.Anything, queryWitnessNetworkPairs, mock.Anything).Return([]graph.Record{}, nil)
	store.On("Query", mock.Anything, queryVehicleSharingPairs, mock.Anything).
		Return([]graph.Record{
			pairRow("CLMT_B", "CLMT_C"),
			pairRow("CLMT_C", "CLMT_D"),
		}, nil)
	store.On("Query", mock.Anything, queryRingMembers, mock.MatchedBy(func(params map[string]any) bool {
		ids := params["claimant_ids"].([]string)
		return len(ids) == 3 && ids[0] == "CLMT_A"
	})).Return(membersRow(
		[]string{"CLMT_A", "CLMT_B", "CLMT_C"},
		[]string{"Maria Santos", "Dan Wu", "Lee Park"},
		12, 300000, 72,
	), nil)
	store.On("Query", mock.Anything, queryRingMembers, mock.MatchedBy(func(params map[string]any) bool {
		ids := params["claimant_ids"].([]string)
		return len(ids) == 3 && ids[0] == "CLMT_B"
	})).Return(membersRow(
		[]string{"CLMT_B", "CLMT_C", "CLMT_D"},
		[]string{"Dan Wu", "Lee Park", "Gina Holt"},
		9, 200000, 68,
	), nil)

	svc := newTestService(store)
	found, err := svc.DetectRings(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)

	r := found[0]
	assert.Equal(t, ring.PatternMixed, r.Pattern)
	assert.Equal(t, 4, r.MemberCount)
	assert.Equal(t, []string{"CLMT_A", "CLMT_B", "CLMT_C", "CLMT_D"}, r.MemberIDs)
}

func TestDetectRingsSurvivesPassFailure(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, querySharedEntityPairs, mock.Anything).
		Return(nil, errors.NewExternalError("graph", "graph read failed"))
	store.On("Query", mock.Anything, queryAccidentPatternPairs, mock.Anything).Return([]graph.Record{}, nil)
	store.On("Query", mock.Anything, queryWitnessNetworkPairs, mock.Anything).Return([]graph.Record{}, nil)
	store.On("Query", mock.Anything, queryVehicleSharingPairs, mock.Anything).
		Return([]graph.Record{
			pairRow("CLMT_A", "CLMT_B"),
			pairRow("CLMT_B", "CLMT_C"),
		}, nil)
	store.On("Query", mock.Anything, queryRingMembers, mock.Anything).
		Return(membersRow(
			[]string{"CLMT_A", "CLMT_B", "CLMT_C"},
			[]string{"Maria Santos", "Dan Wu", "Lee Park"},
			16, 500000, 75,
		), nil)

	svc := newTestService(store)
	found, err := svc.DetectRings(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, ring.PatternVehicleSharing, found[0].Pattern)
	// 0.5 + 0.1 members + 0.2 risk + 0.1 claims
	assert.InDelta(t, 0.9, found[0].Confidence, 0.0001)
}

func TestMergeOverlappingBelowThresholdKeepsBoth(t *testing.T) {
	r1, err := ring.NewDiscoveredRing(ring.PatternSharedEntity,
		[]string{"A", "B", "C"}, nil, 5, decimal.Zero, 55)
	require.NoError(t, err)
	r2, err := ring.NewDiscoveredRing(ring.PatternWitnessNetwork,
		[]string{"C", "D", "E"}, nil, 5, decimal.Zero, 55)
	require.NoError(t, err)

	// overlap 1/3 is under the 0.5 threshold
	merged := mergeOverlapping([]*ring.FraudRing{r1, r2}, 0.5)
	require.Len(t, merged, 2)
	assert.Equal(t, ring.PatternSharedEntity, merged[0].Pattern)
	assert.Equal(t, ring.PatternWitnessNetwork, merged[1].Pattern)
}

func TestMergeOverlappingSamePatternStaysUnmixed(t *testing.T) {
	r1, err := ring.NewDiscoveredRing(ring.PatternSharedEntity,
		[]string{"A", "B", "C"}, nil, 5, decimal.Zero, 55)
	require.NoError(t, err)
	r2, err := ring.NewDiscoveredRing(ring.PatternSharedEntity,
		[]string{"B", "C", "D"}, nil, 5, decimal.Zero, 55)
	require.NoError(t, err)

	merged := mergeOverlapping([]*ring.FraudRing{r1, r2}, 0.5)
	require.Len(t, merged, 1)
	assert.Equal(t, ring.PatternSharedEntity, merged[0].Pattern)
	assert.Equal(t, 4, merged[0].MemberCount)
}

func TestRingConfidenceBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		members int
		avgRisk float64
		claims  int
		want    float64
	}{
		{"large hot ring caps at one", 12, 80, 20, 1.0},
		{"mid ring", 5, 62, 11, 0.85},
		{"minimal ring", 3, 40, 4, 0.6},
		{"pair below member floor", 2, 40, 4, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ring.FraudRing{
				MemberCount:  tt.members,
				AvgRiskScore: tt.avgRisk,
				TotalClaims:  tt.claims,
			}
			assert.InDelta(t, tt.want, ringConfidence(r), 0.0001)
		})
	}
}

func TestPersistRings(t *testing.T) {
	tx := &mocks.GraphTx{}
	tx.On("Write", queryMergeRing, mock.MatchedBy(func(params map[string]any) bool {
		return params["ring_id"] == "SHARED_ENTITY_RING_ab12cd34" &&
			params["status"] == "UNDER_REVIEW" &&
			params["discovered_by"] == "RingDetector"
	})).Return(graph.Record{"ring_id": "SHARED_ENTITY_RING_ab12cd34"}, nil)
	tx.On("Write", queryLinkRingMember, mock.Anything).Return(nil, nil)

	store := &mocks.GraphStore{Tx: tx}
	store.On("WriteTx", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(store)
	created, err := svc.PersistRings(context.Background(), []*ring.FraudRing{{
		ID:           "SHARED_ENTITY_RING_ab12cd34",
		Type:         ring.TypeDiscovered,
		Pattern:      ring.PatternSharedEntity,
		Status:       ring.StatusUnderReview,
		MemberIDs:    []string{"CLMT_A", "CLMT_B", "CLMT_C"},
		MemberCount:  3,
		TotalClaims:  11,
		TotalAmount:  decimal.NewFromInt(420000),
		AvgRiskScore: 66.6,
		Confidence:   0.8,
		DiscoveredBy: "RingDetector",
		DiscoveredAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}})

	require.NoError(t, err)
	assert.Equal(t, 1, created)
	tx.AssertNumberOfCalls(t, "Write", 4) // 1 ring upsert + 3 member links
}

func TestPersistRingsCanceledContext(t *testing.T) {
	store := &mocks.GraphStore{}
	svc := newTestService(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	created, err := svc.PersistRings(ctx, []*ring.FraudRing{{
		ID:      "SHARED_ENTITY_RING_ab12cd34",
		Pattern: ring.PatternSharedEntity,
		Status:  ring.StatusUnderReview,
	}})

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))
	assert.Equal(t, 0, created)
	store.AssertNotCalled(t, "WriteTx")
}

func TestPersistRingsSkipsFailedRing(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("WriteTx", mock.Anything, mock.Anything).
		Return(errors.NewExternalError("graph", "graph write failed")).Once()
	store.On("WriteTx", mock.Anything, mock.Anything).Return(nil).Once()

	svc := newTestService(store)
	created, err := svc.PersistRings(context.Background(), []*ring.FraudRing{
		{ID: "RING_1", MemberIDs: []string{"A"}},
		{ID: "RING_2", MemberIDs: []string{"B"}},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func ringRow(status string) graph.Record {
	return graph.Record{
		"ring_id":                "SHARED_ENTITY_RING_ab12cd34",
		"ring_type":              "DISCOVERED",
		"pattern_type":           "shared_entity",
		"status":                 status,
		"confidence_score":       0.8,
		"member_count":           int64(3),
		"total_claims":           int64(11),
		"estimated_fraud_amount": 420000.0,
		"avg_risk_score":         66.6,
		"discovered_date":        "2025-06-01",
		"discovered_by":          "RingDetector",
		"member_ids":             []any{"CLMT_A", "CLMT_B", "CLMT_C"},
		"member_names":           []any{"Maria Santos", "Dan Wu", "Lee Park"},
	}
}

func TestGetRing(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryGetRing, map[string]any{"ring_id": "SHARED_ENTITY_RING_ab12cd34"}).
		Return([]graph.Record{ringRow("UNDER_REVIEW")}, nil)

	svc := newTestService(store)
	r, err := svc.GetRing(context.Background(), "SHARED_ENTITY_RING_ab12cd34")
	require.NoError(t, err)

	assert.Equal(t, ring.StatusUnderReview, r.Status)
	assert.Equal(t, ring.PatternSharedEntity, r.Pattern)
	assert.Equal(t, 3, r.MemberCount)
	assert.Equal(t, []string{"CLMT_A", "CLMT_B", "CLMT_C"}, r.MemberIDs)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), r.DiscoveredAt)
}

func TestGetRingNotFound(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryGetRing, mock.Anything).Return([]graph.Record{}, nil)

	svc := newTestService(store)
	_, err := svc.GetRing(context.Background(), "RING_MISSING")
	assert.True(t, errors.IsNotFound(err))
}

func TestConfirmRing(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryGetRing, mock.Anything).
		Return([]graph.Record{ringRow("UNDER_REVIEW")}, nil)
	store.On("Write", mock.Anything, queryUpdateRingStatus, map[string]any{
		"ring_id": "SHARED_ENTITY_RING_ab12cd34",
		"status":  "CONFIRMED",
	}).Return(graph.Record{"ring_id": "SHARED_ENTITY_RING_ab12cd34"}, nil)

	svc := newTestService(store)
	r, err := svc.ConfirmRing(context.Background(), "SHARED_ENTITY_RING_ab12cd34")
	require.NoError(t, err)
	assert.Equal(t, ring.StatusConfirmed, r.Status)
	store.AssertExpectations(t)
}

func TestDismissRingAlreadyResolved(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryGetRing, mock.Anything).
		Return([]graph.Record{ringRow("CONFIRMED")}, nil)

	svc := newTestService(store)
	_, err := svc.DismissRing(context.Background(), "SHARED_ENTITY_RING_ab12cd34")

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeBusiness))
	store.AssertNotCalled(t, "Write", mock.Anything, queryUpdateRingStatus, mock.Anything)
}

func TestListRings(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryListRings, map[string]any{
		"status": "UNDER_REVIEW",
		"limit":  50,
	}).Return([]graph.Record{ringRow("UNDER_REVIEW")}, nil)

	svc := newTestService(store)
	found, err := svc.ListRings(context.Background(), ring.StatusUnderReview, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "SHARED_ENTITY_RING_ab12cd34", found[0].ID)
}
