package google

import "errors"

// Token errors trigger a fresh authorization flow rather than reaching the user.
var (
	// ErrTokenNotFound is returned when no token file exists.
	ErrTokenNotFound = errors.New("token file not found")

	// ErrTokenParse is returned when the token file is not a valid bundle.
	ErrTokenParse = errors.New("token file is malformed")

	// ErrRefreshFailed is returned when the refresh token cannot be exchanged.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// IsTokenError reports whether err means the stored credentials are unusable.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenNotFound) ||
		errors.Is(err, ErrTokenParse) ||
		errors.Is(err, ErrRefreshFailed)
}
