package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/claim"
	"github.com/davidleathers/insurance-fraud-backend/internal/domain/errors"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/graph"
	"github.com/davidleathers/insurance-fraud-backend/internal/testutil/mocks"
)

func TestScoreClaimant(t *testing.T) {
	tests := []struct {
		name      string
		row       graph.Record
		wantScore float64
		wantLevel Level
		wantRings int
	}{
		{
			name: "serial filer in a ring",
			row: graph.Record{
				"name":           "Maria Santos",
				"claim_count":    int64(5),
				"total_claimed":  250000.0,
				"avg_claim_risk": 80.0,
				"rings":          []any{"SHARED_ENTITY_RING_ab12cd34"},
			},
			// 30 frequency + 20 amount + 24 avg risk + 40 ring
			wantScore: 114,
			wantLevel: LevelHigh,
			wantRings: 1,
		},
		{
			name: "clean single claim",
			row: graph.Record{
				"name":           "Dan Wu",
				"claim_count":    int64(1),
				"total_claimed":  8000.0,
				"avg_claim_risk": 10.0,
				"rings":          []any{},
			},
			wantScore: 3, // avg risk contribution only
			wantLevel: LevelLow,
		},
		{
			name: "moderate history",
			row: graph.Record{
				"name":           "Lee Park",
				"claim_count":    int64(3),
				"total_claimed":  120000.0,
				"avg_claim_risk": 50.0,
				"rings":          []any{},
			},
			// 20 frequency + 15 amount + 15 avg risk
			wantScore: 50,
			wantLevel: LevelMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mocks.GraphStore{}
			store.On("Query", mock.Anything, queryClaimantRisk, mock.Anything).
				Return([]graph.Record{tt.row}, nil)

			svc := newTestService(store)
			result, err := svc.ScoreClaimant(context.Background(), "CLMT_1")
			require.NoError(t, err)

			assert.InDelta(t, tt.wantScore, result.RiskScore, 0.01)
			assert.Equal(t, tt.wantLevel, result.RiskLevel)
			assert.Equal(t, tt.wantRings, result.FraudRings)
		})
	}
}

func TestScoreClaimantNotFound(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryClaimantRisk, mock.Anything).Return([]graph.Record{}, nil)

	svc := newTestService(store)
	_, err := svc.ScoreClaimant(context.Background(), "CLMT_MISSING")
	assert.True(t, errors.IsNotFound(err))
}

func TestScoreVehicle(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryVehicleRisk, mock.Anything).
		Return([]graph.Record{{
			"vehicle_info":     "Honda Accord 2019",
			"vin":              "1HGCV1F30KA000001",
			"accident_count":   int64(4),
			"unique_claimants": int64(3),
			"total_damage":     180000.0,
			"avg_risk":         60.0,
		}}, nil)

	svc := newTestService(store)
	result, err := svc.ScoreVehicle(context.Background(), "VEH_1")
	require.NoError(t, err)

	// 40 accidents + 30 claimants + 18 avg risk
	assert.InDelta(t, 88, result.RiskScore, 0.01)
	assert.Equal(t, LevelHigh, result.RiskLevel)
	assert.Equal(t, 4, result.AccidentCount)
	assert.Equal(t, 3, result.UniqueClaimants)
}

func TestScoreVehicleNotFound(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryVehicleRisk, mock.Anything).Return([]graph.Record{}, nil)

	svc := newTestService(store)
	_, err := svc.ScoreVehicle(context.Background(), "VEH_MISSING")
	assert.True(t, errors.IsNotFound(err))
}

func TestScoreEntity(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, entityRiskQuery(claim.EntityBodyShop), mock.Anything).
		Return([]graph.Record{{
			"name":             "Precision Auto Body",
			"claim_count":      int64(50),
			"unique_claimants": int64(20),
			"total_amount":     900000.0,
			"avg_risk":         75.0,
			"ring_count":       int64(3),
		}}, nil)

	svc := newTestService(store)
	result, err := svc.ScoreEntity(context.Background(), claim.EntityBodyShop, "BS_1")
	require.NoError(t, err)

	// 25 volume + 22.5 avg risk + 35 rings + 10 concentration (20/50 < 0.5)
	assert.InDelta(t, 92.5, result.RiskScore, 0.01)
	assert.Equal(t, LevelHigh, result.RiskLevel)
	assert.Equal(t, 3, result.RingConnections)
	assert.Equal(t, 10.0, result.RiskFactors["claimant_concentration"])
}

func TestScoreEntityConcentrationBoundary(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, entityRiskQuery(claim.EntityAttorney), mock.Anything).
		Return([]graph.Record{{
			"name":             "Chen & Associates",
			"claim_count":      int64(10),
			"unique_claimants": int64(5),
			"avg_risk":         0.0,
			"ring_count":       int64(0),
		}}, nil)

	svc := newTestService(store)
	result, err := svc.ScoreEntity(context.Background(), claim.EntityAttorney, "AT_1")
	require.NoError(t, err)

	// exactly 0.5 concentration is not flagged
	assert.Equal(t, 0.0, result.RiskFactors["claimant_concentration"])
	assert.InDelta(t, 10, result.RiskScore, 0.01) // volume only
}

func TestScoreEntityUnknownType(t *testing.T) {
	svc := newTestService(&mocks.GraphStore{})

	_, err := svc.ScoreEntity(context.Background(), claim.EntityType("Florist"), "X_1")
	require.Error(t, err)
	assert.Equal(t, errors.ErrUnknownEntityType.Code, err.(*errors.AppError).Code)
}

func TestScoreEntityNotFound(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, entityRiskQuery(claim.EntityTowCompany), mock.Anything).Return([]graph.Record{}, nil)

	svc := newTestService(store)
	_, err := svc.ScoreEntity(context.Background(), claim.EntityTowCompany, "TOW_MISSING")
	assert.True(t, errors.IsNotFound(err))
}
