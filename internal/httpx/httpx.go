// Package httpx carries the JSON request/response helpers shared by the
// HTTP services.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorBody is the uniform error envelope.
type ErrorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes the error envelope with the given status and stable code.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorBody{Error: errorDetail{Code: code, Message: message}})
}

// Decode parses a JSON request body into v. Unknown fields are rejected so
// client typos surface as 400s instead of silently ignored options.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	// A second document in the body is a malformed request.
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}
