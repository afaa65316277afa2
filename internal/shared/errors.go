package shared

import "errors"

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation marks client-side form validation failures.
	ErrValidation = errors.New("validation failed")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// InvalidCredentialsMessage is the normalised text shown for any login failure.
const InvalidCredentialsMessage = "Invalid credentials"
