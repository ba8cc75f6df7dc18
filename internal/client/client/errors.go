package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotSupported = errors.New("operation not supported by this transport")
)

// APIError is a failure envelope returned by the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match 401 envelopes.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}
