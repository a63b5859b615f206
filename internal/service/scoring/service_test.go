package scoring

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/claim"
	"github.com/davidleathers/insurance-fraud-backend/internal/domain/errors"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/config"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/graph"
	"github.com/davidleathers/insurance-fraud-backend/internal/testutil/mocks"
)

func newTestService(store graph.Store) *Service {
	cfg := config.Defaults()
	return NewService(store, nil, 0, &cfg.Detection, slog.New(slog.DiscardHandler))
}

// stubEmptyFactorQueries makes every graph-backed factor return no rows
// so only the claim-level factors contribute.
func stubEmptyFactorQueries(store *mocks.GraphStore) {
	for _, q := range []string{
		queryWitnessCredibility,
		queryLocationRisk,
		queryRingMembership,
		queryRepeatEntities,
		queryVehicleHistory,
		claimEntityRiskQuery(claim.EntityBodyShop),
		claimEntityRiskQuery(claim.EntityMedicalProvider),
		claimEntityRiskQuery(claim.EntityAttorney),
		claimEntityRiskQuery(claim.EntityTowCompany),
	} {
		store.On("Query", mock.Anything, q, mock.Anything).Return([]graph.Record{}, nil)
	}
}

func claimDataRow(amount, property, bodily float64, daysToReport int) []graph.Record {
	accident := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return []graph.Record{{
		"claim_number":    "2025-000123",
		"total_amount":    amount,
		"property_damage": property,
		"bodily_injury":   bodily,
		"accident_date":   accident,
		"report_date":     accident.AddDate(0, 0, daysToReport),
		"accident_type":   "Rear-End Collision",
		"injury_type":     "Whiplash",
	}}
}

func TestScoreClaimNotFound(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryClaimData, mock.Anything).Return([]graph.Record{}, nil)

	svc := newTestService(store)
	_, err := svc.ScoreClaim(context.Background(), "CLM_MISSING")

	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestScoreClaimLowRisk(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryClaimData, mock.Anything).
		Return(claimDataRow(5000, 4000, 0, 7), nil)
	stubEmptyFactorQueries(store)

	svc := newTestService(store)
	result, err := svc.ScoreClaim(context.Background(), "CLM_1")
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.TotalRiskScore)
	assert.Equal(t, LevelLow, result.RiskLevel)
	assert.Equal(t, "2025.1", result.ThresholdsVersion)
	assert.Len(t, result.RiskFactors, 12)
	assert.Empty(t, result.TopRiskFactors)
	assert.Equal(t, "This claim has a LOW risk score of 0.0. Few fraud indicators detected. ", result.Explanation)
}

func TestScoreClaimHighRiskScenario(t *testing.T) {
	// Same-day report, extreme injury ratio, prolific witness, hotspot
	// location, dirty entities, ring membership, reused entities and a
	// recycled vehicle all firing at once.
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryClaimData, mock.Anything).
		Return(claimDataRow(120000, 5000, 60000, 0), nil)
	store.On("Query", mock.Anything, queryWitnessCredibility, mock.Anything).
		Return([]graph.Record{{"witness_id": "W1", "witness_count": int64(6)}}, nil)
	store.On("Query", mock.Anything, queryLocationRisk, mock.Anything).
		Return([]graph.Record{{"location_count": int64(12)}}, nil)
	for _, et := range []claim.EntityType{claim.EntityBodyShop, claim.EntityMedicalProvider, claim.EntityAttorney, claim.EntityTowCompany} {
		store.On("Query", mock.Anything, claimEntityRiskQuery(et), mock.Anything).
			Return([]graph.Record{{"entity_claim_count": int64(35), "avg_risk": 75.0, "ring_count": int64(2)}}, nil)
	}
	store.On("Query", mock.Anything, queryRingMembership, mock.Anything).
		Return([]graph.Record{{"ring_count": int64(2), "confidence_scores": []any{0.85, 0.9}}}, nil)
	store.On("Query", mock.Anything, queryRepeatEntities, mock.Anything).
		Return([]graph.Record{{"same_body_shops": int64(2), "same_medical_providers": int64(2), "same_attorneys": int64(2), "other_claim_count": int64(4)}}, nil)
	store.On("Query", mock.Anything, queryVehicleHistory, mock.Anything).
		Return([]graph.Record{{"accident_count": int64(5)}}, nil)

	svc := newTestService(store)
	result, err := svc.ScoreClaim(context.Background(), "CLM_1")
	require.NoError(t, err)

	// Every factor at maximum except reporting delay (same-day = 0.8):
	// the raw weighted total is 127.6 and the score caps at 100.
	assert.InDelta(t, 100.0, result.TotalRiskScore, 0.01)
	assert.Equal(t, LevelHigh, result.RiskLevel)
	assert.GreaterOrEqual(t, result.TotalRiskScore, 90.0)
	assert.Contains(t, result.Explanation, "HIGH risk score")
	assert.Contains(t, result.Explanation, "Multiple fraud indicators detected.")
	assert.Contains(t, result.Explanation, "Primary risk factors: ")

	require.Len(t, result.TopRiskFactors, 5)
	assert.Equal(t, "Fraud Ring Member", result.TopRiskFactors[0].Factor)
	assert.InDelta(t, 0.2, result.TopRiskFactors[0].Score, 0.0001)
}

func TestScoreClaimFactorQueryFailurePropagates(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryClaimData, mock.Anything).
		Return(claimDataRow(5000, 4000, 0, 7), nil)
	store.On("Query", mock.Anything, queryWitnessCredibility, mock.Anything).
		Return(nil, errors.NewExternalError("graph", "graph read failed"))

	svc := newTestService(store)
	_, err := svc.ScoreClaim(context.Background(), "CLM_1")

	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}

func TestScoreClaimWeightedBreakdown(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryClaimData, mock.Anything).
		Return(claimDataRow(80000, 10000, 0, 7), nil)
	stubEmptyFactorQueries(store)

	svc := newTestService(store)
	result, err := svc.ScoreClaim(context.Background(), "CLM_1")
	require.NoError(t, err)

	fs := result.RiskFactors["claim_amount"]
	assert.Equal(t, 0.8, fs.RawScore)
	assert.Equal(t, 0.15, fs.Weight)
	assert.InDelta(t, 0.12, fs.WeightedScore, 0.0001)

	// 0.8 * 0.15 * 100
	assert.InDelta(t, 12.0, result.TotalRiskScore, 0.01)
	assert.Equal(t, LevelLow, result.RiskLevel)
}

type mapScoreCache struct {
	data map[string][]byte
}

func (c *mapScoreCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	raw, ok := c.data[key]
	if !ok {
		return errors.NewNotFoundError("cache key")
	}
	return json.Unmarshal(raw, dest)
}

func (c *mapScoreCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func TestScoreClaimUsesCache(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryClaimData, mock.Anything).
		Return(claimDataRow(5000, 4000, 0, 7), nil)
	stubEmptyFactorQueries(store)

	cfg := config.Defaults()
	cache := &mapScoreCache{data: make(map[string][]byte)}
	svc := NewService(store, cache, time.Minute, &cfg.Detection, slog.New(slog.DiscardHandler))

	first, err := svc.ScoreClaim(context.Background(), "CLM_1")
	require.NoError(t, err)
	queriesAfterFirst := len(store.Calls)

	second, err := svc.ScoreClaim(context.Background(), "CLM_1")
	require.NoError(t, err)

	assert.Equal(t, first.TotalRiskScore, second.TotalRiskScore)
	assert.Equal(t, queriesAfterFirst, len(store.Calls), "cached result should not touch the graph")
}

func TestRiskLevelBoundaries(t *testing.T) {
	svc := newTestService(&mocks.GraphStore{})

	assert.Equal(t, LevelHigh, svc.riskLevel(70))
	assert.Equal(t, LevelMedium, svc.riskLevel(69.999))
	assert.Equal(t, LevelMedium, svc.riskLevel(40))
	assert.Equal(t, LevelLow, svc.riskLevel(39.999))
	assert.Equal(t, LevelLow, svc.riskLevel(0))
	assert.Equal(t, LevelHigh, svc.riskLevel(100))
}

func TestPersistClaimScore(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Write", mock.Anything, queryPersistScore, map[string]any{
		"claim_id":           "CLM_1",
		"risk_score":         72.5,
		"risk_level":         "HIGH",
		"thresholds_version": "2025.1",
	}).Return(graph.Record{"claim_id": "CLM_1"}, nil)

	svc := newTestService(store)
	err := svc.PersistClaimScore(context.Background(), &ClaimRiskResult{
		ClaimID:           "CLM_1",
		TotalRiskScore:    72.5,
		RiskLevel:         LevelHigh,
		ThresholdsVersion: "2025.1",
	})

	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestPersistClaimScoreMissingClaim(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Write", mock.Anything, queryPersistScore, mock.Anything).Return(nil, nil)

	svc := newTestService(store)
	err := svc.PersistClaimScore(context.Background(), &ClaimRiskResult{ClaimID: "CLM_X", RiskLevel: LevelLow, ThresholdsVersion: "2025.1"})

	assert.True(t, errors.IsNotFound(err))
}
