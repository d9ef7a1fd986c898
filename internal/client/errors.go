// File: internal/client/errors.go
package client

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrInvalidURL means the target URL failed pre-flight validation.
	// It is returned before any network call is made.
	ErrInvalidURL = errors.New("invalid target URL")

	// ErrConnectionFailed means the streaming channel never opened.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrStreamClosed means the streaming channel died before delivering
	// a terminal frame. Callers fall back to the blocking channel.
	ErrStreamClosed = errors.New("stream closed before completion")
)

// ServerError is a terminal, server-reported failure: an explicit error
// frame, a failing HTTP status, or a timed-out blocking call. It is never
// retried and never triggers a fallback.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("server error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server error: %s", e.Message)
}

// ValidateTargetURL rejects malformed target URLs before any network call.
func ValidateTargetURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
