// Package httptransport is the thin HTTP layer over the registration saga and
// the identity service. Handlers parse, delegate, and render; every business
// rule lives below them.
package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "carehub/pkg/domain-errors"
)

// errorEnvelope is the JSON error shape. Field is present when the failure
// attributes to one form field; reason only on sign-in denials.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeInvalidInput:     http.StatusBadRequest,
	dErrors.CodeDuplicateEmail:   http.StatusConflict,
	dErrors.CodeIdentityCreation: http.StatusBadGateway,
	dErrors.CodeUploadFailed:     http.StatusBadGateway,
	dErrors.CodePersistence:      http.StatusInternalServerError,
	dErrors.CodeSignInDenied:     http.StatusForbidden,
	dErrors.CodeTooManyAttempts:  http.StatusTooManyRequests,
	dErrors.CodeUnauthorized:     http.StatusUnauthorized,
	dErrors.CodeForbidden:        http.StatusForbidden,
	dErrors.CodeNotFound:         http.StatusNotFound,
	dErrors.CodeConflict:         http.StatusConflict,
	dErrors.CodeInvalidState:     http.StatusConflict,
	dErrors.CodeInternal:         http.StatusInternalServerError,
}

// writeError renders a coded error. Unknown errors become opaque 500s so
// internal details never leak.
func writeError(w http.ResponseWriter, err error) {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{
			Error:   string(dErrors.CodeInternal),
			Message: "internal error",
		})
		return
	}

	status, ok := statusByCode[de.Code]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := de.Message
	switch de.Code {
	case dErrors.CodePersistence, dErrors.CodeInternal:
		// The cause is logged server-side; the caller gets a generic line.
		message = "registration failed, please try again"
	}

	writeJSON(w, status, errorEnvelope{
		Error:   string(de.Code),
		Message: message,
		Field:   de.Field,
		Reason:  string(de.Reason),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
