package authflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPortAvailable means no port in the configured range could be bound.
	ErrNoPortAvailable = errors.New("no callback port available")

	// ErrTimedOut means no usable callback arrived before the deadline
	// or the caller gave up.
	ErrTimedOut = errors.New("authorization timed out")

	// ErrCallback means the provider redirected back with an error.
	ErrCallback = errors.New("authorization denied by provider")

	// ErrTokenExchange means the authorization code could not be turned
	// into a persisted credential bundle.
	ErrTokenExchange = errors.New("token exchange failed")
)

// CallbackError carries the error parameters of a failed provider redirect.
type CallbackError struct {
	Code        string
	Description string
}

func (e *CallbackError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%v: %s", ErrCallback, e.Code)
	}
	return fmt.Sprintf("%v: %s (%s)", ErrCallback, e.Code, e.Description)
}

// Is makes errors.Is(err, ErrCallback) match.
func (e *CallbackError) Is(target error) bool {
	return target == ErrCallback
}
