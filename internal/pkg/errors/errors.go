package errors

import "errors"

// Application-wide sentinel errors.
var (
	// ErrNotFound is returned when a record or resource does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized covers authentication failures (missing/invalid credentials).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation covers invalid input data.
	ErrValidation = errors.New("validation failed")

	// ErrConflict signals a uniqueness conflict, typically the loser of a
	// concurrent insert race. It is transient: callers retry the read path
	// and must never surface it to end users.
	ErrConflict = errors.New("resource state conflict")
)

// Provider adapter errors. Handlers translate all of them into opaque
// redirect codes; raw provider responses never leave the adapter layer.
var (
	// ErrProviderExchange is returned when the provider rejects the
	// authorization code (invalid, expired, or already used).
	ErrProviderExchange = errors.New("provider code exchange rejected")

	// ErrProviderUnavailable is returned on transport failures, timeouts and
	// non-2xx provider responses outside the exchange rejection case.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrProviderProfile is returned when the provider user-info payload is
	// missing mandatory fields (subject id, email).
	ErrProviderProfile = errors.New("provider profile incomplete")
)
