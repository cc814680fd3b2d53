package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"medisync/internal/audit"
	dErrors "medisync/pkg/domain-errors"
)

// AuditTrail is the read side of the audit trail exposed over HTTP.
type AuditTrail interface {
	PatientHistory(ctx context.Context, patientID uuid.UUID) ([]audit.Entry, error)
	ActorActivity(ctx context.Context, actorID uuid.UUID) ([]audit.Entry, error)
}

// AuditHandler serves the audit-trail endpoints. Both routes sit behind
// RequireAuth; entries include the plaintext attribute diffs, so the routes
// must never be mounted unguarded.
type AuditHandler struct {
	trail  AuditTrail
	logger *slog.Logger
}

func NewAuditHandler(trail AuditTrail, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		trail:  trail,
		logger: logger,
	}
}

// Register mounts the audit routes on the given router.
func (h *AuditHandler) Register(r chi.Router) {
	r.Get("/patients/{patient_id}/history", h.HandlePatientHistory)
	r.Get("/activity", h.HandleMyActivity)
}

type entryResponse struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	OldValues  map[string]string `json:"old_values,omitempty"`
	NewValues  map[string]string `json:"new_values,omitempty"`
	ActorID    *string           `json:"actor_id,omitempty"`
	IPAddress  *string           `json:"ip_address,omitempty"`
	UserAgent  *string           `json:"user_agent,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

func toEntryResponses(entries []audit.Entry) []entryResponse {
	responses := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		response := entryResponse{
			ID:         entry.ID.String(),
			Kind:       string(entry.Kind),
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			OldValues:  entry.OldValues,
			NewValues:  entry.NewValues,
			IPAddress:  entry.IPAddress,
			UserAgent:  entry.UserAgent,
			Timestamp:  entry.Timestamp,
		}
		if entry.ActorID != nil {
			actorID := entry.ActorID.String()
			response.ActorID = &actorID
		}
		responses = append(responses, response)
	}
	return responses
}

// HandlePatientHistory returns the audit trail for one patient, oldest first.
func (h *AuditHandler) HandlePatientHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	patientIDParam := chi.URLParam(r, "patient_id")
	patientID, err := uuid.Parse(patientIDParam)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid patient_id in history request",
			"patient_id", patientIDParam,
		)
		WriteError(w, dErrors.New(dErrors.CodeValidation, "patient_id must be a UUID"))
		return
	}

	entries, err := h.trail.PatientHistory(ctx, patientID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load patient history",
			"patient_id", patientID.String(),
			"error", err,
		)
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, toEntryResponses(entries))
}

// HandleMyActivity returns every audit entry attributed to the caller.
func (h *AuditHandler) HandleMyActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actorID := GetUserID(ctx)
	if actorID == uuid.Nil {
		WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated user"))
		return
	}

	entries, err := h.trail.ActorActivity(ctx, actorID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load actor activity",
			"actor_id", actorID.String(),
			"error", err,
		)
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, toEntryResponses(entries))
}
