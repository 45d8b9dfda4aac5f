package transport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sysattr/sysattr-go/pkg/attr"
	"github.com/sysattr/sysattr-go/pkg/namespace"
)

// ErrBodyTooLarge is returned when a write exceeds MaxBodySize.
var ErrBodyTooLarge = errors.New("request body too large")

// StatusError is a non-2xx response from a server.
type StatusError struct {
	Code      int
	Message   string
	RequestID string
}

func (e *StatusError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%d %s: %s (request %s)", e.Code, http.StatusText(e.Code), e.Message, e.RequestID)
	}
	return fmt.Sprintf("%d %s: %s", e.Code, http.StatusText(e.Code), e.Message)
}

// Unwrap maps the status back to the namespace error it was produced from,
// so callers can use errors.Is with namespace sentinels on both sides of
// the wire.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return namespace.ErrNotExist
	case http.StatusForbidden:
		return namespace.ErrPermission
	case http.StatusBadRequest:
		return namespace.ErrInvalid
	case http.StatusRequestEntityTooLarge:
		return ErrBodyTooLarge
	default:
		return nil
	}
}

// errorResponse is the JSON body of an error status.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps tree and store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, namespace.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, namespace.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, namespace.ErrIsDir),
		errors.Is(err, namespace.ErrNotDir),
		errors.Is(err, namespace.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, attr.ErrParse), errors.Is(err, attr.ErrOutOfRange):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
