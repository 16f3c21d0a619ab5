/*
Package core provides the framework-agnostic token authentication step of the
gatekeeper. Transport adapters (net/http, gin, echo, gRPC) extract the bearer
token and hand it to an Authenticator, which delegates to a Verifier and maps
the outcome to a typed AuthResult.

# Architecture

	┌──────────────────────────────────────────────┐
	│  Transport adapters                          │
	│  (gatekeeper, framework/gin, echo, grpc)     │
	└────────────────┬─────────────────────────────┘
	                 │ token, endpoint
	                 ▼
	┌──────────────────────────────────────────────┐
	│  Authenticator (THIS PACKAGE)                │
	│  • missing / invalid / expired / verified    │
	│  • AuditContext construction                 │
	└────────────────┬─────────────────────────────┘
	                 │
	                 ▼
	┌──────────────────────────────────────────────┐
	│  Verifier (validator package, jwx/v2)        │
	└──────────────────────────────────────────────┘

# Basic Usage

	auth, err := core.New(core.WithVerifier(v))
	if err != nil {
	    log.Fatal(err)
	}

	result := auth.Authenticate(ctx, core.BearerToken(r.Header.Get("Authorization")), r.URL.Path)
	if !result.OK() {
	    // result.Outcome.StatusCode() is ERR10000, ERR10001 or ERR10002
	}

# Outcomes

Rejections are values, not errors:

	switch result.Outcome {
	case core.MissingToken:  // no credential supplied
	case core.InvalidToken:  // credential supplied but untrusted
	case core.ExpiredToken:  // credential valid but past its window; refresh
	case core.Authenticated: // result.Audit is set
	}

A Verifier reports failures by returning errors that match ErrTokenExpired or
ErrTokenInvalid through errors.Is. Anything else is treated as InvalidToken.

# Audit Context

On success the AuditContext holds the request path, the client and user ids
copied verbatim from the claims, and the scope entries with all whitespace
removed, joined by commas. SetAudit and GetAudit store it in a single typed
context slot.
*/
package core
