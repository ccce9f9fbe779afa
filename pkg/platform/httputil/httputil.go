// Package httputil holds the JSON helpers shared by HTTP handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "onsd/pkg/domain-errors"
)

// maxBodyBytes caps request bodies before decoding.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a coded domain error into its HTTP response.
// Internal errors never leak their message to the caller.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	message := ""

	var de *dErrors.Error
	if errors.As(err, &de) {
		code = de.Code
		message = de.Message
	}
	if code == dErrors.CodeInternal {
		message = ""
	}

	WriteJSON(w, dErrors.ToHTTPStatus(code), errorResponse{
		Error:            string(code),
		ErrorDescription: message,
	})
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
// On failure it writes a validation error response and returns false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var dst T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&dst); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return dst, false
	}
	return dst, true
}
