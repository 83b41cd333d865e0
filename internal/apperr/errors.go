// Package apperr holds the error taxonomy shared by the signaling components.
// Callers wrap the sentinels with context and match them with errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalid      = errors.New("invalid request")
)

// Reason returns the short reason string sent to clients
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalid):
		return "invalid"
	default:
		return "internal"
	}
}

// Status maps an error to the HTTP status used by the REST surface
func Status(err error) int {
	switch Reason(err) {
	case "":
		return http.StatusOK
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	case "unauthorized":
		return http.StatusForbidden
	case "invalid":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Internal reports whether err falls outside the taxonomy
func Internal(err error) bool {
	return err != nil && Reason(err) == "internal"
}
