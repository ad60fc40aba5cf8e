package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "escuela/pkg/domain-errors"
)

// Envelope is the minimal JSON response shape. Success responses with a
// payload use endpoint-specific structs that start with the same fields.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// WriteJSON encodes body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError converts err into a failure envelope. Errors without a domain
// code, and store/export/internal failures, are reported with a generic
// message so internal details never leave the process.
func WriteError(w http.ResponseWriter, err error) {
	status, msg := ErrorStatus(err)
	WriteJSON(w, status, Envelope{Success: false, Message: msg})
}

// ErrorStatus returns the HTTP status and client-safe message for err.
func ErrorStatus(err error) (int, string) {
	de, ok := dErrors.As(err)
	if !ok {
		return http.StatusInternalServerError, "Error interno del servidor"
	}
	switch de.Code {
	case dErrors.CodeValidation, dErrors.CodeDuplicate:
		return http.StatusBadRequest, de.Message
	case dErrors.CodeInvalidCredentials, dErrors.CodeMissingCredential:
		return http.StatusUnauthorized, de.Message
	case dErrors.CodeInvalidCredential:
		return http.StatusForbidden, de.Message
	case dErrors.CodeTooManyAttempts:
		return http.StatusTooManyRequests, de.Message
	case dErrors.CodeExport:
		return http.StatusInternalServerError, "Error generando archivo Excel"
	default:
		return http.StatusInternalServerError, "Error interno del servidor"
	}
}
