package core

import "errors"

// Sentinel errors for token verification.
var (
	// ErrTokenMissing is returned when no bearer token was supplied.
	ErrTokenMissing = errors.New("token missing")

	// ErrTokenInvalid is returned when the token is malformed, its signature
	// does not verify, or any claim other than expiry is rejected.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenExpired is returned when a structurally valid, correctly signed
	// token is past its validity window.
	ErrTokenExpired = errors.New("token expired")

	// ErrAuditNotFound is returned when no audit context is attached.
	ErrAuditNotFound = errors.New("audit context not found in context")

	// ErrClaimsNotFound is returned when claims cannot be retrieved from context.
	ErrClaimsNotFound = errors.New("claims not found in context")
)

// ValidationError wraps verification errors with a machine-readable code.
// It matches ErrTokenExpired when Code is ErrorCodeTokenExpired and
// ErrTokenInvalid otherwise.
type ValidationError struct {
	// Code is a machine-readable error code (e.g., "token_expired", "invalid_signature")
	Code string

	// Message is a human-readable error message
	Message string

	// Details contains the underlying error
	Details error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Details != nil {
		return e.Message + ": " + e.Details.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ValidationError) Unwrap() error {
	return e.Details
}

// Is reports whether the error belongs to the expired or invalid family.
func (e *ValidationError) Is(target error) bool {
	if e.Code == ErrorCodeTokenExpired {
		return target == ErrTokenExpired
	}
	return target == ErrTokenInvalid
}

// Common error codes
const (
	ErrorCodeTokenMalformed   = "token_malformed"
	ErrorCodeTokenExpired     = "token_expired"
	ErrorCodeTokenNotYetValid = "token_not_yet_valid"
	ErrorCodeInvalidSignature = "invalid_signature"
	ErrorCodeInvalidIssuer    = "invalid_issuer"
	ErrorCodeInvalidAudience  = "invalid_audience"
	ErrorCodeInvalidClaims    = "invalid_claims"
	ErrorCodeKeysUnavailable  = "keys_unavailable"
	ErrorCodeConfigInvalid    = "config_invalid"
)

// NewValidationError creates a new ValidationError with the given code and message.
func NewValidationError(code, message string, details error) *ValidationError {
	return &ValidationError{
		Code:    code,
		Message: message,
		Details: details,
	}
}
