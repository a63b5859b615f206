package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/config"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/graph"
	"github.com/davidleathers/insurance-fraud-backend/internal/service/alerts"
	"github.com/davidleathers/insurance-fraud-backend/internal/service/features"
	"github.com/davidleathers/insurance-fraud-backend/internal/service/patterns"
	"github.com/davidleathers/insurance-fraud-backend/internal/service/rings"
	"github.com/davidleathers/insurance-fraud-backend/internal/service/scoring"
	"github.com/davidleathers/insurance-fraud-backend/internal/testutil/mocks"
)

func newTestMux(t *testing.T, store graph.Store) *http.ServeMux {
	t.Helper()
	cfg := config.Defaults()
	logger := slog.New(slog.DiscardHandler)

	handler := NewHandler(&Services{
		Scoring:  scoring.NewService(store, nil, 0, &cfg.Detection, logger),
		Patterns: patterns.NewService(store, &cfg.Detection, logger),
		Rings:    rings.NewService(store, &cfg.Detection, logger),
		Alerts:   alerts.NewService(store, &cfg.Detection, logger),
		Features: features.NewService(store, nil, &cfg.Detection, logger),
	})

	mux := http.NewServeMux()
	handler.Routes(mux)
	return mux
}

func decodeErrorCode(t *testing.T, body *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.NewDecoder(body.Body).Decode(&resp))
	return resp.Error.Code
}

func TestGetRingEndpoint(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, mock.Anything, map[string]any{
		"ring_id": "SHARED_ENTITY_RING_AB12CD34",
	}).Return([]graph.Record{{
		"ring_id":                "SHARED_ENTITY_RING_AB12CD34",
		"ring_type":              "DISCOVERED",
		"pattern_type":           "shared_entity",
		"status":                 "UNDER_REVIEW",
		"confidence_score":       0.8,
		"member_count":           int64(3),
		"total_claims":           int64(11),
		"estimated_fraud_amount": 420000.0,
		"avg_risk_score":         66.6,
		"discovered_date":        "2025-06-01",
		"discovered_by":          "RingDetector",
		"member_ids":             []any{"CLMT_A", "CLMT_B", "CLMT_C"},
		"member_names":           []any{"Maria Santos", "Dan Wu", "Lee Park"},
	}}, nil)

	mux := newTestMux(t, store)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rings/SHARED_ENTITY_RING_AB12CD34", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "SHARED_ENTITY_RING_AB12CD34", body["ring_id"])
	assert.Equal(t, "shared_entity", body["pattern"])
	assert.InDelta(t, 0.8, body["confidence"], 0.0001)
}

func TestGetRingEndpointNotFound(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, mock.Anything, mock.Anything).
		Return([]graph.Record{}, nil)

	mux := newTestMux(t, store)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rings/MISSING_RING", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", decodeErrorCode(t, rec))
}

func TestListAlertsRejectsUnknownStatus(t *testing.T) {
	mux := newTestMux(t, &mocks.GraphStore{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts?status=SNOOZED", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ALERT_STATUS", decodeErrorCode(t, rec))
}

func TestDetectPatternRejectsUnknownName(t *testing.T) {
	mux := newTestMux(t, &mocks.GraphStore{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/patterns/crop_circles", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNKNOWN_PATTERN", decodeErrorCode(t, rec))
}

func TestScoreEntityRejectsUnknownType(t *testing.T) {
	mux := newTestMux(t, &mocks.GraphStore{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/entities/florist/F_1/risk", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNKNOWN_ENTITY_TYPE", decodeErrorCode(t, rec))
}

func TestAssignAlertValidatesBody(t *testing.T) {
	mux := newTestMux(t, &mocks.GraphStore{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/ALERT_AAAA00000001/assign",
		strings.NewReader(`{"assignee": ""}`))
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_BODY", decodeErrorCode(t, rec))
}

func TestAssignAlertEndpoint(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, mock.Anything, map[string]any{
		"alert_id": "ALERT_AAAA00000001",
	}).Return([]graph.Record{{
		"alert_id":    "ALERT_AAAA00000001",
		"alert_type":  "High Risk Claim",
		"severity":    "HIGH",
		"title":       "High Risk Claim Detected: 2025-000123",
		"entity_id":   "CLM_1",
		"entity_type": "Claim",
		"status":      "OPEN",
		"resolved":    false,
		"created_at":  "2025-06-01T10:00:00Z",
		"updated_at":  "2025-06-01T10:00:00Z",
	}}, nil)
	store.On("Write", mock.Anything, mock.Anything, mock.MatchedBy(func(params map[string]any) bool {
		return params["assignee"] == "investigator_42"
	})).Return(graph.Record{"alert_id": "ALERT_AAAA00000001"}, nil)

	mux := newTestMux(t, store)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/ALERT_AAAA00000001/assign",
		strings.NewReader(`{"assignee": "investigator_42"}`))
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ASSIGNED", body["status"])
	assert.Equal(t, "investigator_42", body["assigned_to"])
}

func TestListRingsEndpoint(t *testing.T) {
	store := &mocks.GraphStore{}
	store.On("Query", mock.Anything, mock.Anything, map[string]any{
		"status": "",
		"limit":  50,
	}).Return([]graph.Record{}, nil)

	mux := newTestMux(t, store)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rings", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	store.AssertExpectations(t)
}

func TestAuthMiddleware(t *testing.T) {
	secret := []byte("test-secret")
	handler := authMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("health is public", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "analyst_1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString(secret)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("wrong signature", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"})
		signed, err := token.SignedString([]byte("other-secret"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := rateLimitMiddleware(1, 1)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/rings", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/v1/rings", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
