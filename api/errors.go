package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport wraps network level failures: the request never produced
	// an HTTP response.
	ErrTransport = errors.New("transport error")
	// ErrTimeout is returned when the request deadline expired.
	ErrTimeout      = errors.New("request timed out")
	ErrInvalidInput = errors.New("invalid input")
)

// Error is a non-2xx (or undecodable 2xx) response from the backend.
type Error struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d (%s)", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// StatusOf returns the backend status carried by err, or 0 when err is not
// an *Error.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
