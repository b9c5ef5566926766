package calendar

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

var (
	// ErrNotConferenced means the event exists but has no conference data.
	ErrNotConferenced = errors.New("event has no conference data")

	// ErrInvalidTimeRange means the end of a window is not after its start.
	ErrInvalidTimeRange = errors.New("end time must be after start time")
)

// ProviderError wraps a failed Calendar API call.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("calendar %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Hint suggests a fix for token and credential problems, or returns "".
func (e *ProviderError) Hint() string {
	msg := strings.ToLower(e.Err.Error())
	switch {
	case strings.Contains(msg, "invalid_grant"),
		strings.Contains(msg, "token"),
		strings.Contains(msg, "401"):
		return "The stored OAuth token was rejected. Delete the token file or run `meetmcp auth` to authorize again."
	case strings.Contains(msg, "invalid_client"),
		strings.Contains(msg, "credentials"),
		strings.Contains(msg, "unauthorized_client"):
		return "The OAuth client was rejected. Check that the credentials file belongs to a Desktop or Web client with the Calendar API enabled."
	default:
		return ""
	}
}

// StatusCode returns the HTTP status reported by the API, or 0.
func (e *ProviderError) StatusCode() int {
	var apiErr *googleapi.Error
	if errors.As(e.Err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// IsNotFound reports whether err is a provider not-found (or deleted) error.
func IsNotFound(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	code := pe.StatusCode()
	return code == http.StatusNotFound || code == http.StatusGone
}

func providerError(op string, err error) error {
	return &ProviderError{Op: op, Err: err}
}
