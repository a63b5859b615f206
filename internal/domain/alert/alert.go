package alert

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/errors"
)

// Alert is one actionable fraud finding pointed at a graph entity.
type Alert struct {
	ID              string      `json:"alert_id"`
	Type            Type        `json:"alert_type"`
	Severity        Severity    `json:"severity"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	EntityID        string      `json:"entity_id"`
	EntityType      EntityLabel `json:"entity_type"`
	Status          Status      `json:"status"`
	AssignedTo      string      `json:"assigned_to,omitempty"`
	Resolved        bool        `json:"resolved"`
	ResolutionNotes string      `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// New builds an open alert with a fresh id.
func New(alertType Type, severity Severity, title, description, entityID string, entityType EntityLabel) (*Alert, error) {
	if !severity.IsValid() {
		return nil, errors.NewValidationError("INVALID_ALERT_SEVERITY", "unknown alert severity")
	}
	if entityID == "" {
		return nil, errors.NewValidationError("MISSING_ENTITY_ID", "alert requires an entity id")
	}
	if _, ok := entityType.IDField(); !ok {
		return nil, errors.NewValidationError("INVALID_ENTITY_TYPE", "unknown alert entity type")
	}

	now := time.Now().UTC()
	return &Alert{
		ID:          NewID(),
		Type:        alertType,
		Severity:    severity,
		Title:       title,
		Description: description,
		EntityID:    entityID,
		EntityType:  entityType,
		Status:      StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NewID generates an alert id of the form ALERT_ followed by twelve
// uppercase hex characters.
func NewID() string {
	u := uuid.New()
	return "ALERT_" + strings.ToUpper(hex.EncodeToString(u[:6]))
}

// Assign hands the alert to an investigator.
func (a *Alert) Assign(assignee string) error {
	if assignee == "" {
		return errors.NewValidationError("MISSING_ASSIGNEE", "assignee is required")
	}
	if a.Resolved {
		return errors.NewBusinessError("ALERT_ALREADY_RESOLVED", "cannot assign a resolved alert")
	}
	a.AssignedTo = assignee
	a.Status = StatusAssigned
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Resolve closes the alert with investigation notes.
func (a *Alert) Resolve(notes string) error {
	if a.Resolved {
		return errors.NewBusinessError("ALERT_ALREADY_RESOLVED", "alert is already resolved")
	}
	a.Status = StatusResolved
	a.Resolved = true
	a.ResolutionNotes = notes
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Dismiss closes the alert as a false positive.
func (a *Alert) Dismiss(reason string) error {
	if a.Resolved {
		return errors.NewBusinessError("ALERT_ALREADY_RESOLVED", "alert is already resolved")
	}
	a.Status = StatusDismissed
	a.Resolved = true
	a.ResolutionNotes = reason
	a.UpdatedAt = time.Now().UTC()
	return nil
}
