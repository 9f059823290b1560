package auth

import "errors"

var (
	// ErrUnauthorized means the stored credentials can no longer be used and the user has to log in again.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRenewalUnavailable means the renewal endpoint failed for a reason unrelated to the credentials.
	ErrRenewalUnavailable = errors.New("token renewal unavailable")
	// ErrIncompletePair is returned when saving a pair with a missing token.
	ErrIncompletePair = errors.New("credential pair must contain both tokens")
)
