// Package httptransport is the thin HTTP layer over the trust-core services.
// Handlers delegate to domain services and translate domain errors to status
// codes; no business logic lives here.
package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "medisync/pkg/domain-errors"
)

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// best-effort fallback; the status is already committed
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// WriteError translates a domain error into an HTTP error response. Server
// faults are collapsed to internal_error so store and crypto details never
// reach clients.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error": string(dErrors.CodeInternal),
		})
		return
	}

	status := statusForCode(domainErr.Code)
	if status >= http.StatusInternalServerError {
		WriteJSON(w, status, map[string]string{
			"error": string(dErrors.CodeInternal),
		})
		return
	}

	response := map[string]string{
		"error": string(domainErr.Code),
	}
	if domainErr.Message != "" {
		response["error_description"] = domainErr.Message
	}
	WriteJSON(w, status, response)
}

// statusForCode maps domain error codes to HTTP status codes.
func statusForCode(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized, dErrors.CodeInvalidCredentials,
		dErrors.CodeTwoFactorRequired, dErrors.CodeTwoFactorInvalid,
		dErrors.CodeTokenExpired, dErrors.CodeTokenInvalidSignature,
		dErrors.CodeTokenReused, dErrors.CodeTicketInvalid:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeAccountLocked:
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}
