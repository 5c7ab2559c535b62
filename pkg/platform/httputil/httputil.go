// Package httputil is the single translation point between domain errors and
// HTTP responses. Handlers return precise error kinds; WriteError collapses
// them into the minimal outward signal while the full detail stays in logs.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "ledgergate/pkg/domain-errors"
)

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to an HTTP status and writes the standard error
// envelope. Internal errors omit the description so nothing leaks; every
// other kind echoes its message since those are client-fixable.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		var e *dErrors.Error
		if errors.As(err, &e) {
			resp.ErrorDescription = e.Message
		}
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}
