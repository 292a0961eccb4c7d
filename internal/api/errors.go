package api

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the body shape for every non-2xx response. Fields is
// only present for validation failures and maps field name to problem.
type errorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes an error response with just a message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// writeValidationError writes a 400 with per-field detail.
func writeValidationError(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Message: "Validation failed",
		Fields:  fields,
	})
}

// writeConflict writes a 400 naming the duplicate resource.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, message)
}

// writeInvalidCredentials writes the generic login failure. The same body
// is used for unknown email and wrong password so the endpoint cannot be
// used to probe which addresses have accounts.
func writeInvalidCredentials(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "Invalid email or password")
}

// writeUnauthorized writes the generic 401 for missing/invalid sessions.
func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "Unauthorized")
}

// writeForbidden writes a 403 for authenticated callers lacking the role.
// Cross-tenant access never reaches this: those ids resolve to 404.
func writeForbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "Forbidden")
}

// writeNotFound writes a 404. Used both for genuinely missing resources
// and for ids that belong to another tenant.
func writeNotFound(w http.ResponseWriter, what string) {
	writeError(w, http.StatusNotFound, what+" not found")
}

// writeServiceUnavailable writes a 503 for backing-store failures.
func writeServiceUnavailable(w http.ResponseWriter) {
	writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
}

// writeInternalError writes a generic 500. Internal detail never crosses
// the boundary.
func writeInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// decodeJSON decodes the request body into dst, writing a 400 on failure.
// Returns false if the response has already been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}
