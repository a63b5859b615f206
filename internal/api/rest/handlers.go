package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/alert"
	"github.com/davidleathers/insurance-fraud-backend/internal/domain/claim"
	domainErrors "github.com/davidleathers/insurance-fraud-backend/internal/domain/errors"
	"github.com/davidleathers/insurance-fraud-backend/internal/domain/ring"
	"github.com/davidleathers/insurance-fraud-backend/internal/service/alerts"
	"github.com/davidleathers/insurance-fraud-backend/internal/service/features"
	"github.com/davidleathers/insurance-fraud-backend/internal/service/patterns"
	"github.com/davidleathers/insurance-fraud-backend/internal/service/rings"
	"github.com/davidleathers/insurance-fraud-backend/internal/service/scoring"
)

// Services bundles everything the handlers call.
type Services struct {
	Scoring  *scoring.Service
	Patterns *patterns.Service
	Rings    *rings.Service
	Alerts   *alerts.Service
	Features *features.Service
}

// Handler exposes the detection services over HTTP.
type Handler struct {
	services *Services
	validate *validator.Validate
}

func NewHandler(services *Services) *Handler {
	return &Handler{
		services: services,
		validate: validator.New(),
	}
}

// Routes registers every API route on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/claims/{id}/score", h.handleScoreClaim)
	mux.HandleFunc("GET /api/v1/claims/{id}/features", h.handleClaimFeatures)
	mux.HandleFunc("GET /api/v1/claimants/{id}/risk", h.handleScoreClaimant)
	mux.HandleFunc("GET /api/v1/claimants/{id}/features", h.handleClaimantFeatures)
	mux.HandleFunc("GET /api/v1/vehicles/{id}/risk", h.handleScoreVehicle)
	mux.HandleFunc("GET /api/v1/entities/{type}/{id}/risk", h.handleScoreEntity)

	mux.HandleFunc("GET /api/v1/patterns", h.handleDetectAllPatterns)
	mux.HandleFunc("GET /api/v1/patterns/{name}", h.handleDetectPattern)

	mux.HandleFunc("POST /api/v1/rings/detect", h.handleDetectRings)
	mux.HandleFunc("GET /api/v1/rings", h.handleListRings)
	mux.HandleFunc("GET /api/v1/rings/{id}", h.handleGetRing)
	mux.HandleFunc("POST /api/v1/rings/{id}/confirm", h.handleConfirmRing)
	mux.HandleFunc("POST /api/v1/rings/{id}/dismiss", h.handleDismissRing)

	mux.HandleFunc("GET /api/v1/alerts", h.handleListAlerts)
	mux.HandleFunc("GET /api/v1/alerts/stats", h.handleAlertStats)
	mux.HandleFunc("POST /api/v1/alerts/monitors/run", h.handleRunMonitors)
	mux.HandleFunc("GET /api/v1/alerts/{id}", h.handleGetAlert)
	mux.HandleFunc("POST /api/v1/alerts/{id}/assign", h.handleAssignAlert)
	mux.HandleFunc("POST /api/v1/alerts/{id}/resolve", h.handleResolveAlert)
	mux.HandleFunc("POST /api/v1/alerts/{id}/dismiss", h.handleDismissAlert)

	mux.HandleFunc("GET /api/v1/features/bulk", h.handleBulkFeatures)
	mux.HandleFunc("POST /api/v1/features/export", h.handleExportFeatures)
}

// Scoring

func (h *Handler) handleScoreClaim(w http.ResponseWriter, r *http.Request) {
	result, err := h.services.Scoring.ScoreClaim(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.services.Scoring.PersistClaimScore(r.Context(), result); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleScoreClaimant(w http.ResponseWriter, r *http.Request) {
	result, err := h.services.Scoring.ScoreClaimant(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleScoreVehicle(w http.ResponseWriter, r *http.Request) {
	result, err := h.services.Scoring.ScoreVehicle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleScoreEntity(w http.ResponseWriter, r *http.Request) {
	entityType, ok := parseEntityType(r.PathValue("type"))
	if !ok {
		writeError(w, domainErrors.NewValidationError("UNKNOWN_ENTITY_TYPE",
			"entity type must be one of body_shop, medical_provider, attorney, tow_company"))
		return
	}
	result, err := h.services.Scoring.ScoreEntity(r.Context(), entityType, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func parseEntityType(s string) (claim.EntityType, bool) {
	switch s {
	case "body_shop":
		return claim.EntityBodyShop, true
	case "medical_provider":
		return claim.EntityMedicalProvider, true
	case "attorney":
		return claim.EntityAttorney, true
	case "tow_company":
		return claim.EntityTowCompany, true
	}
	return "", false
}

// Patterns

func (h *Handler) handleDetectAllPatterns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.services.Patterns.DetectAll(r.Context()))
}

func (h *Handler) handleDetectPattern(w http.ResponseWriter, r *http.Request) {
	result, err := h.services.Patterns.DetectByName(r.Context(), patterns.Name(r.PathValue("name")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pattern": r.PathValue("name"),
		"results": result,
	})
}

// Rings

func (h *Handler) handleDetectRings(w http.ResponseWriter, r *http.Request) {
	found, err := h.services.Rings.DetectRings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	persisted := 0
	if r.URL.Query().Get("persist") == "true" {
		if persisted, err = h.services.Rings.PersistRings(r.Context(), found); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rings":     found,
		"persisted": persisted,
	})
}

func (h *Handler) handleListRings(w http.ResponseWriter, r *http.Request) {
	status := ring.Status(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		writeError(w, domainErrors.NewValidationError("INVALID_RING_STATUS", "unknown ring status"))
		return
	}
	result, err := h.services.Rings.ListRings(r.Context(), status, queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rings": result})
}

func (h *Handler) handleGetRing(w http.ResponseWriter, r *http.Request) {
	result, err := h.services.Rings.GetRing(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleConfirmRing(w http.ResponseWriter, r *http.Request) {
	result, err := h.services.Rings.ConfirmRing(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDismissRing(w http.ResponseWriter, r *http.Request) {
	result, err := h.services.Rings.DismissRing(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Alerts

func (h *Handler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	status := alert.Status(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		writeError(w, domainErrors.NewValidationError("INVALID_ALERT_STATUS", "unknown alert status"))
		return
	}
	severity := alert.Severity(r.URL.Query().Get("severity"))
	if severity != "" && !severity.IsValid() {
		writeError(w, domainErrors.NewValidationError("INVALID_ALERT_SEVERITY", "unknown alert severity"))
		return
	}

	result, err := h.services.Alerts.ListAlerts(r.Context(), status, severity, queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": result})
}

func (h *Handler) handleAlertStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.services.Alerts.GetStatistics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleRunMonitors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": h.services.Alerts.RunAllMonitors(r.Context()),
	})
}

func (h *Handler) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	result, err := h.services.Alerts.GetAlert(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type assignAlertRequest struct {
	Assignee string `json:"assignee" validate:"required"`
}

func (h *Handler) handleAssignAlert(w http.ResponseWriter, r *http.Request) {
	var req assignAlertRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.services.Alerts.AssignAlert(r.Context(), r.PathValue("id"), req.Assignee)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type resolveAlertRequest struct {
	Notes string `json:"notes" validate:"required"`
}

func (h *Handler) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	var req resolveAlertRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.services.Alerts.ResolveAlert(r.Context(), r.PathValue("id"), req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type dismissAlertRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) handleDismissAlert(w http.ResponseWriter, r *http.Request) {
	var req dismissAlertRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.services.Alerts.DismissAlert(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Features

func (h *Handler) handleClaimFeatures(w http.ResponseWriter, r *http.Request) {
	result, err := h.services.Features.ExtractClaimFeatures(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleClaimantFeatures(w http.ResponseWriter, r *http.Request) {
	result, err := h.services.Features.ExtractClaimantFeatures(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleBulkFeatures(w http.ResponseWriter, r *http.Request) {
	result, err := h.services.Features.ExtractBulkFeatures(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": result})
}

type exportFeaturesRequest struct {
	Limit int `json:"limit" validate:"omitempty,min=1"`
}

func (h *Handler) handleExportFeatures(w http.ResponseWriter, r *http.Request) {
	var req exportFeaturesRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	written, err := h.services.Features.ExportBulkFeatures(r.Context(), req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows_written": written})
}

// decode reads and validates a JSON request body.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("INVALID_BODY", "request body must be valid JSON")
	}
	if err := h.validate.Struct(dst); err != nil {
		return domainErrors.NewValidationError("INVALID_BODY", err.Error())
	}
	return nil
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
