package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lightmesh/gatekeeper/status"
)

// Verifier is the verification primitive: it checks the signature against
// the configured trust material plus the validity window, and returns the
// claims. Failures must match ErrTokenExpired or ErrTokenInvalid.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, token string) (*Claims, error)

// Verify calls f(ctx, token).
func (f VerifierFunc) Verify(ctx context.Context, token string) (*Claims, error) {
	return f(ctx, token)
}

// Logger defines an optional logging interface compatible with log/slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Outcome is the discriminant of an AuthResult.
type Outcome int

const (
	Authenticated Outcome = iota
	MissingToken
	InvalidToken
	ExpiredToken
)

func (o Outcome) String() string {
	switch o {
	case Authenticated:
		return "authenticated"
	case MissingToken:
		return "missing_token"
	case InvalidToken:
		return "invalid_token"
	case ExpiredToken:
		return "expired_token"
	default:
		return "unknown"
	}
}

// StatusCode is the catalog code a rejection is reported with. It is empty
// for Authenticated.
func (o Outcome) StatusCode() string {
	switch o {
	case Authenticated:
		return ""
	case MissingToken:
		return status.CodeMissingToken
	case ExpiredToken:
		return status.CodeExpiredToken
	default:
		return status.CodeInvalidToken
	}
}

// AuthResult is either Authenticated with Claims and Audit set, or a
// rejection whose Outcome names the reason.
type AuthResult struct {
	Outcome Outcome
	Claims  *Claims
	Audit   *AuditContext
	// Err is the verifier error behind an InvalidToken or ExpiredToken
	// rejection.
	Err error
}

// OK reports whether the request was authenticated.
func (r AuthResult) OK() bool {
	return r.Outcome == Authenticated
}

// Authenticator runs the token authentication state machine:
// missing token, verify, then invalid, expired or verified.
type Authenticator struct {
	verifier Verifier
	logger   Logger
}

// Authenticate verifies token and, on success, builds the audit context for
// endpoint. An empty token is a MissingToken rejection, distinct from a token
// that was supplied but rejected.
func (a *Authenticator) Authenticate(ctx context.Context, token, endpoint string) AuthResult {
	if token == "" {
		a.logger.Debug("no bearer token supplied", "endpoint", endpoint)
		return AuthResult{Outcome: MissingToken}
	}

	start := time.Now()
	claims, err := a.verifier.Verify(ctx, token)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			a.logger.Debug("token expired", "endpoint", endpoint, "duration", duration)
			return AuthResult{Outcome: ExpiredToken, Err: err}
		}
		// Anything that is not an expiry is treated as untrusted.
		a.logger.Error("token verification failed", "error", err, "endpoint", endpoint, "duration", duration)
		return AuthResult{Outcome: InvalidToken, Err: err}
	}

	if claims == nil {
		err = NewValidationError(ErrorCodeInvalidClaims, "verifier returned no claims", nil)
		a.logger.Error("token verification failed", "error", err, "endpoint", endpoint, "duration", duration)
		return AuthResult{Outcome: InvalidToken, Err: err}
	}

	a.logger.Debug("token verified", "endpoint", endpoint, "client_id", claims.ClientID, "duration", duration)

	return AuthResult{
		Outcome: Authenticated,
		Claims:  claims,
		Audit:   NewAuditContext(endpoint, claims),
	}
}

// BearerToken extracts the token from an Authorization header value. It
// returns "" when the value is empty, uses another scheme, or carries no
// token after the marker.
func BearerToken(authorization string) string {
	parts := strings.Fields(authorization)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return nopLogger{}
}
