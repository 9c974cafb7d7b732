// Package httpapi holds the JSON error envelope shared by handlers and
// middleware.
package httpapi

import (
	"encoding/json"
	"net/http"
)

// Error is the body of every non-2xx API response.
type Error struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the status code, its canonical reason phrase and
// an optional human readable description.
type ErrorDetail struct {
	Code        int     `json:"code"`
	Reason      string  `json:"reason"`
	Description *string `json:"description"`
}

// NewError builds the envelope for a status code. An empty description
// is rendered as null.
func NewError(status int, description string) Error {
	detail := ErrorDetail{
		Code:   status,
		Reason: http.StatusText(status),
	}
	if description != "" {
		detail.Description = &description
	}
	return Error{Error: detail}
}

// WriteError renders the envelope to w. Encoding failures are ignored,
// the status line is already committed.
func WriteError(w http.ResponseWriter, status int, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(NewError(status, description))
}
