package alert

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAlert(t *testing.T) {
	a, err := New(TypeHighRiskClaim, SeverityHigh, "High Risk Claim Detected: 2025-000123",
		"Claim filed by Maria Santos has risk score of 82.5.", "CLM_1", EntityClaim)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^ALERT_[0-9A-F]{12}$`), a.ID)
	assert.Equal(t, StatusOpen, a.Status)
	assert.False(t, a.Resolved)
	assert.Equal(t, a.CreatedAt, a.UpdatedAt)
}

func TestNewAlertValidation(t *testing.T) {
	_, err := New(TypeHighRiskClaim, Severity("URGENT"), "t", "d", "CLM_1", EntityClaim)
	assert.Error(t, err)

	_, err = New(TypeHighRiskClaim, SeverityHigh, "t", "d", "", EntityClaim)
	assert.Error(t, err)

	_, err = New(TypeHighRiskClaim, SeverityHigh, "t", "d", "X_1", EntityLabel("Florist"))
	assert.Error(t, err)
}

func TestAlertLifecycle(t *testing.T) {
	a, err := New(TypeRepeatClaimant, SeverityMedium, "t", "d", "CLMT_1", EntityClaimant)
	require.NoError(t, err)

	require.NoError(t, a.Assign("investigator_42"))
	assert.Equal(t, StatusAssigned, a.Status)
	assert.Equal(t, "investigator_42", a.AssignedTo)

	require.NoError(t, a.Resolve("confirmed fraud, referred to SIU"))
	assert.Equal(t, StatusResolved, a.Status)
	assert.True(t, a.Resolved)

	assert.Error(t, a.Assign("someone_else"))
	assert.Error(t, a.Resolve("again"))
	assert.Error(t, a.Dismiss("nope"))
}

func TestAlertDismiss(t *testing.T) {
	a, err := New(TypeAccidentHotspot, SeverityMedium, "t", "d", "LOC_1", EntityAccidentLocation)
	require.NoError(t, err)

	require.NoError(t, a.Dismiss("known busy intersection"))
	assert.Equal(t, StatusDismissed, a.Status)
	assert.True(t, a.Resolved)
	assert.Equal(t, "known busy intersection", a.ResolutionNotes)
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Less(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Less(t, SeverityLow.Rank(), SeverityInfo.Rank())
}

func TestEntityLabelIDField(t *testing.T) {
	tests := []struct {
		label EntityLabel
		field string
	}{
		{EntityClaim, "claim_id"},
		{EntityClaimant, "claimant_id"},
		{EntityBodyShop, "body_shop_id"},
		{EntityMedicalProvider, "provider_id"},
		{EntityTowCompany, "tow_company_id"},
		{EntityAccidentLocation, "location_id"},
		{EntityFraudRing, "ring_id"},
	}

	for _, tt := range tests {
		field, ok := tt.label.IDField()
		require.True(t, ok, "label %s", tt.label)
		assert.Equal(t, tt.field, field)
	}

	_, ok := EntityLabel("Florist").IDField()
	assert.False(t, ok)
}
