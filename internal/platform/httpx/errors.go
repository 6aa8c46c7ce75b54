// Package httpx provides HTTP response utilities.
package httpx

import (
	"context"
	"errors"
	"net/http"
)

// Sentinel errors mapped to problem responses.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation failed")
	ErrSuperseded = errors.New("superseded by a newer request")
)

// RespondError maps errors to RFC7807 responses. Only sentinel-wrapped errors
// expose their message; everything else is reported as an internal error.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrSuperseded):
		Problem(w, http.StatusConflict, "Superseded", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		Problem(w, http.StatusGatewayTimeout, "Timeout", "request deadline exceeded")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
