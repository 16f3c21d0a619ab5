package gatekeeper

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/lightmesh/gatekeeper/core"
	"github.com/lightmesh/gatekeeper/status"
)

var (
	// ErrJWTMissing is matched by a rejection for a missing bearer token.
	ErrJWTMissing = errors.New("jwt missing")

	// ErrJWTInvalid is matched by a rejection for a token that failed
	// verification.
	ErrJWTInvalid = errors.New("jwt invalid")

	// ErrJWTExpired is matched by a rejection for an expired token.
	ErrJWTExpired = errors.New("jwt expired")
)

// ErrorHandler writes the response for a rejected request. err is a
// *RejectionError; check it with errors.Is against ErrJWTMissing,
// ErrJWTInvalid and ErrJWTExpired.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// StatusErrorHandler returns an ErrorHandler that writes the catalog status
// of the rejection. It is what the Authenticator does when no ErrorHandler
// is configured.
func StatusErrorHandler(catalog *status.Catalog) ErrorHandler {
	if catalog == nil {
		catalog = status.Default()
	}
	return func(w http.ResponseWriter, _ *http.Request, err error) {
		catalog.Write(w, StatusCode(err))
	}
}

// StatusCode maps a rejection to its catalog code. Errors that are not
// rejections map to ERR10010.
func StatusCode(err error) string {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection.Result.Outcome.StatusCode()
	}
	return status.CodeRuntimeException
}

// RejectionError carries the result of a failed authentication.
type RejectionError struct {
	Result core.AuthResult
}

// Is allows the error to support equality to the sentinel of its outcome.
func (e *RejectionError) Is(target error) bool {
	switch e.Result.Outcome {
	case core.MissingToken:
		return target == ErrJWTMissing
	case core.ExpiredToken:
		return target == ErrJWTExpired
	case core.InvalidToken:
		return target == ErrJWTInvalid
	}
	return false
}

// Error returns a string representation of the error.
func (e *RejectionError) Error() string {
	if e.Result.Err == nil {
		return e.Result.Outcome.String()
	}
	return fmt.Sprintf("%s: %s", e.Result.Outcome, e.Result.Err)
}

// Unwrap exposes the verifier error so callers can match core errors too.
func (e *RejectionError) Unwrap() error {
	return e.Result.Err
}
