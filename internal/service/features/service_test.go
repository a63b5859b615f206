package features

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/errors"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/config"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/featurestore"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/graph"
	"github.com/davidleathers/insurance-fraud-backend/internal/testutil/mocks"
)

type capturingSink struct {
	snapshots []featurestore.Snapshot
	err       error
}

func (c *capturingSink) SaveSnapshots(_ context.Context, snapshots []featurestore.Snapshot) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.snapshots = append(c.snapshots, snapshots...)
	return int64(len(snapshots)), nil
}

func newTestService(store graph.Store, sink FeatureSink) *Service {
	cfg := config.Defaults()
	return NewService(store, sink, &cfg.Detection, slog.New(slog.DiscardHandler))
}

func stubClaimNeighborhoods(store *mocks.GraphStore) {
	store.On("Query", mock.Anything, queryBasicFeatures, mock.Anything).
		Return([]graph.Record{{
			"total_amount":    62000.0,
			"property_damage": 8000.0,
			"bodily_injury":   54000.0,
			"accident_type":   "Rear-End Collision",
			"injury_type":     "Whiplash",
			"status":          "UNDER_INVESTIGATION",
			"risk_score":      78.5,
		}}, nil)
	store.On("Query", mock.Anything, queryTemporalFeatures, mock.Anything).
		Return([]graph.Record{{
			// 2025-06-07 is a Saturday.
			"accident_date": "2025-06-07",
			"report_date":   "2025-06-09",
		}}, nil)
	store.On("Query", mock.Anything, queryFinancialFeatures, mock.Anything).
		Return([]graph.Record{{
			"total_amount":    62000.0,
			"property_damage": 8000.0,
			"bodily_injury":   54000.0,
		}}, nil)
	store.On("Query", mock.Anything, queryNetworkFeatures, mock.Anything).
		Return([]graph.Record{{
			"claimant_other_claims":      int64(2),
			"fraud_ring_count":           int64(1),
			"shared_body_shop_claimants": int64(3),
		}}, nil)
	store.On("Query", mock.Anything, queryEntityFeatures, mock.Anything).
		Return([]graph.Record{{
			"has_body_shop":                int64(1),
			"has_medical_provider":         int64(1),
			"has_attorney":                 int64(0),
			"has_tow_company":              int64(0),
			"has_witness":                  int64(1),
			"body_shop_claim_count":        int64(14),
			"medical_provider_claim_count": int64(22),
			"attorney_claim_count":         int64(0),
		}}, nil)
	store.On("Query", mock.Anything, queryHistoricalFeatures, mock.Anything).
		Return([]graph.Record{{
			"total_claimant_claims": int64(3),
			"total_claimant_amount": 110000.0,
			"avg_claimant_risk":     64.2,
		}}, nil)
	store.On("Query", mock.Anything, queryLocationFeatures, mock.Anything).
		Return([]graph.Record{{
			"has_location":            int64(1),
			"location_accident_count": int64(6),
		}}, nil)
}

func TestExtractClaimFeatures(t *testing.T) {
	store := &mocks.GraphStore{}
	stubClaimNeighborhoods(store)

	svc := newTestService(store, nil)
	f, err := svc.ExtractClaimFeatures(context.Background(), "CLM_1")
	require.NoError(t, err)

	assert.Equal(t, "CLM_1", f.ClaimID)
	assert.Equal(t, 78.5, f.Basic.RiskScore)
	assert.Equal(t, "Whiplash", f.Basic.InjuryType)

	assert.Equal(t, 2, f.Temporal.DaysToReport)
	assert.False(t, f.Temporal.SameDayReport)
	assert.False(t, f.Temporal.DelayedReport)
	assert.Equal(t, 5, f.Temporal.AccidentDayOfWeek)
	assert.True(t, f.Temporal.AccidentIsWeekend)
	assert.Equal(t, 6, f.Temporal.AccidentMonth)

	assert.InDelta(t, 6.75, f.Financial.InjuryToPropertyRatio, 0.0001)
	assert.True(t, f.Financial.HasBodilyInjury)
	assert.True(t, f.Financial.HighValueClaim)
	assert.False(t, f.Financial.VeryHighValueClaim)

	assert.Equal(t, 2, f.Network.ClaimantOtherClaims)
	assert.True(t, f.Network.FraudRingMember)
	assert.Equal(t, 3, f.Network.SharedBodyShopClaimants)

	assert.True(t, f.Entity.HasBodyShop)
	assert.False(t, f.Entity.HasAttorney)
	assert.Equal(t, 22, f.Entity.MedicalProviderVolume)

	assert.Equal(t, 3, f.Historical.ClaimantClaimCount)
	assert.True(t, f.Historical.FrequentClaimant)

	assert.True(t, f.Location.HasLocation)
	assert.Equal(t, 6, f.Location.LocationAccidentCount)
	assert.True(t, f.Location.AccidentHotspot)
}

func TestExtractClaimFeaturesMapFlattens(t *testing.T) {
	store := &mocks.GraphStore{}
	stubClaimNeighborhoods(store)

	svc := newTestService(store, nil)
	f, err := svc.ExtractClaimFeatures(context.Background(), "CLM_1")
	require.NoError(t, err)

	m := f.Map()
	assert.Equal(t, 62000.0, m["total_amount"])
	assert.Equal(t, 0, m["same_day_report"])
	assert.Equal(t, 1, m["accident_is_weekend"])
	assert.Equal(t, 1, m["fraud_ring_member"])
	assert.Equal(t, 0, m["has_attorney"])
	assert.Equal(t, 1, m["accident_hotspot"])
	assert.Equal(t, 6, m["accident_month"])
}

func TestExtractClaimFeaturesNotFound(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryBasicFeatures, mock.Anything).
		Return([]graph.Record{}, nil)

	svc := newTestService(store, nil)
	_, err := svc.ExtractClaimFeatures(context.Background(), "CLM_MISSING")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestFinancialRatioGuardsZeroDenominator(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryFinancialFeatures, mock.Anything).
		Return([]graph.Record{{
			"total_amount":    30000.0,
			"property_damage": 0.0,
			"bodily_injury":   30000.0,
		}}, nil)

	svc := newTestService(store, nil)
	f, err := svc.extractFinancial(context.Background(), "CLM_1")
	require.NoError(t, err)
	assert.InDelta(t, 30000.0, f.InjuryToPropertyRatio, 0.0001)
}

func TestExtractClaimantFeatures(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryClaimantFeatures, map[string]any{
		"claimant_id": "CLMT_1",
	}).Return([]graph.Record{{
		"claim_count":              int64(4),
		"total_claimed":            180000.0,
		"avg_claim_amount":         45000.0,
		"avg_risk_score":           59.5,
		"fraud_ring_count":         int64(0),
		"unique_body_shops":        int64(2),
		"unique_medical_providers": int64(1),
		"unique_attorneys":         int64(4),
		"unique_vehicles":          int64(3),
		"first_accident_date":      "2024-01-01",
		"last_accident_date":       "2025-01-01",
	}}, nil)

	svc := newTestService(store, nil)
	f, err := svc.ExtractClaimantFeatures(context.Background(), "CLMT_1")
	require.NoError(t, err)

	assert.Equal(t, 4, f.ClaimCount)
	assert.False(t, f.FraudRingMember)
	assert.InDelta(t, 0.5, f.BodyShopReuseRatio, 0.0001)
	assert.InDelta(t, 0.75, f.MedicalProviderReuseRatio, 0.0001)
	assert.InDelta(t, 0.0, f.AttorneyReuseRatio, 0.0001)

	// 2024 is a leap year, so the window spans 366 days.
	assert.Equal(t, 366, f.DaysActive)
	assert.InDelta(t, 4.0/366*365, f.ClaimsPerYear, 0.0001)
}

func TestExtractClaimantFeaturesSingleClaimHasNoVelocity(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryClaimantFeatures, mock.Anything).
		Return([]graph.Record{{
			"claim_count":              int64(1),
			"total_claimed":            9000.0,
			"unique_body_shops":        int64(1),
			"unique_medical_providers": int64(0),
			"unique_attorneys":         int64(0),
			"first_accident_date":      "2025-03-01",
			"last_accident_date":       "2025-03-01",
		}}, nil)

	svc := newTestService(store, nil)
	f, err := svc.ExtractClaimantFeatures(context.Background(), "CLMT_2")
	require.NoError(t, err)
	assert.Equal(t, 0, f.DaysActive)
	assert.Zero(t, f.ClaimsPerYear)
	assert.InDelta(t, 0.0, f.BodyShopReuseRatio, 0.0001)
}

func TestExtractClaimantFeaturesNotFound(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryClaimantFeatures, mock.Anything).
		Return([]graph.Record{}, nil)

	svc := newTestService(store, nil)
	_, err := svc.ExtractClaimantFeatures(context.Background(), "CLMT_MISSING")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func bulkRow(claimID string) graph.Record {
	return graph.Record{
		"claim_id":                    claimID,
		"claim_number":                "2025-000123",
		"total_amount":                120000.0,
		"property_damage":             4000.0,
		"bodily_injury":               116000.0,
		"accident_date":               "2025-05-01",
		"report_date":                 "2025-06-15",
		"risk_score":                  81.0,
		"accident_type":               "Multi-Vehicle",
		"injury_type":                 "Back Pain",
		"claimant_other_claims":       int64(3),
		"claimant_total_other_claims": 95000.0,
		"vehicle_other_accidents":     int64(2),
		"has_vehicle":                 int64(1),
		"has_body_shop":               int64(1),
		"has_medical_provider":        int64(1),
		"has_attorney":                int64(1),
		"has_tow_company":             int64(0),
		"has_witness":                 int64(0),
		"fraud_ring_member":           int64(1),
	}
}

func TestExtractBulkFeaturesDerivesFlags(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryBulkFeatures, map[string]any{
		"limit": 1000,
	}).Return([]graph.Record{bulkRow("CLM_1")}, nil)

	svc := newTestService(store, nil)
	table, err := svc.ExtractBulkFeatures(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, table, 1)

	row := table[0]
	assert.Equal(t, 45, row.DaysToReport)
	assert.False(t, row.SameDayReport)
	assert.True(t, row.DelayedReport)
	assert.InDelta(t, 29.0, row.InjuryToPropertyRatio, 0.0001)
	assert.True(t, row.HasBodilyInjury)
	assert.True(t, row.HighValueClaim)
	assert.True(t, row.VeryHighValueClaim)
	assert.True(t, row.FrequentClaimant)
	assert.True(t, row.MultipleAccidentVehicle)
}

func TestExportBulkFeatures(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, queryBulkFeatures, map[string]any{
		"limit": 2,
	}).Return([]graph.Record{bulkRow("CLM_1"), bulkRow("CLM_2")}, nil)

	sink := &capturingSink{}
	svc := newTestService(store, sink)

	written, err := svc.ExportBulkFeatures(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), written)
	require.Len(t, sink.snapshots, 2)

	snap := sink.snapshots[0]
	assert.Equal(t, "CLM_1", snap.ClaimID)
	assert.Equal(t, "2025-000123", snap.ClaimNumber)
	assert.Equal(t, "2025.1", snap.ThresholdsVersion)
	assert.Equal(t, 81.0, snap.RiskScore)
	assert.Equal(t, 1, snap.Features["fraud_ring_member"])
	assert.Equal(t, 45, snap.Features["days_to_report"])
}

func TestExportBulkFeaturesWithoutSink(t *testing.T) {
	svc := newTestService(&mocks.GraphStore{}, nil)
	_, err := svc.ExportBulkFeatures(context.Background(), 10)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
}

func TestMondayBasedWeekday(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2025-06-02", 0}, // Monday
		{"2025-06-04", 2}, // Wednesday
		{"2025-06-07", 5}, // Saturday
		{"2025-06-08", 6}, // Sunday
	}
	for _, tt := range tests {
		d, err := time.Parse("2006-01-02", tt.date)
		require.NoError(t, err)
		assert.Equal(t, tt.want, mondayBasedWeekday(d), tt.date)
	}
}
