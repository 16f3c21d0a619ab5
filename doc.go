/*
Package gatekeeper guards an RPC gateway: it authenticates every request by
its bearer token and, through the router package, validates the request
payload against the schema of the target service before business logic runs.

This package is the net/http transport of the token authenticator. The
state machine itself lives in core, signature checks in validator and key
material in jwks.

# Quick Start

	import (
	    "github.com/lightmesh/gatekeeper"
	    "github.com/lightmesh/gatekeeper/jwks"
	    "github.com/lightmesh/gatekeeper/pipeline"
	    "github.com/lightmesh/gatekeeper/validator"
	)

	func main() {
	    ctx := context.Background()
	    issuerURL, _ := url.Parse("https://issuer.example.com/")
	    provider, err := jwks.NewCachingProvider(ctx, jwks.WithIssuerURL(issuerURL))
	    if err != nil {
	        log.Fatal(err)
	    }

	    v, err := validator.New(
	        validator.WithKeyFunc(provider.KeyFunc),
	        validator.WithAlgorithm(validator.RS256),
	        validator.WithIssuer(issuerURL.String()),
	    )
	    if err != nil {
	        log.Fatal(err)
	    }

	    auth, err := gatekeeper.New(gatekeeper.WithVerifier(v))
	    if err != nil {
	        log.Fatal(err)
	    }

	    b, _ := pipeline.NewBuilder()
	    chain, err := b.Use(pipeline.NewCorrelationStage(), auth).Build(rpcRouter)
	    if err != nil {
	        log.Fatal(err)
	    }
	    http.ListenAndServe(":8080", chain)
	}

Outside a pipeline the Authenticator wraps a handler directly:

	http.Handle("/api/", auth.Handler(apiHandler))

# Outcomes

Every request ends in exactly one of four outcomes:

  - authenticated: the claims and the audit context are attached to the
    request context and the request moves on
  - missing token (ERR10002): no Authorization header, another scheme, or an
    empty token
  - expired token (ERR10001)
  - invalid token (ERR10000): anything else the verifier rejects, including
    key material that could not be fetched

Rejections are answered with the catalog status as a single plain-text line,
for example:

	HTTP/1.1 401 Unauthorized
	Content-Type: text/plain; charset=utf-8

	ERR10001 Jwt token in authorization header expired

# Accessing the Audit Context

	func apiHandler(w http.ResponseWriter, r *http.Request) {
	    audit, err := gatekeeper.GetAudit(r.Context())
	    if err != nil {
	        http.Error(w, "Unauthorized", http.StatusUnauthorized)
	        return
	    }
	    fmt.Fprintf(w, "hello %s (%s)", audit.ClientID, audit.Scope)
	}

The scope of the audit context is the scope claim with whitespace removed
from every entry, empty entries dropped, joined with commas.

# Options

  - WithVerifier (required)
  - WithEnabled: switch verification off; the chain builder then leaves the
    stage out entirely
  - WithExclusionUrls, WithSkipPathPrefixes, WithExclusionHandler
  - WithTokenExtractor: AuthHeaderTokenExtractor by default, see also
    ParameterTokenExtractor, CookieTokenExtractor and MultiTokenExtractor
  - WithValidateOnOptions
  - WithCatalog, WithErrorHandler
  - WithLogger: NewLogrusLogger, NewZapLogger and NewZerologLogger adapt the common loggers
  - WithMetrics: Prometheus counter and histogram, see NewMetrics
  - WithTracer: one OpenTelemetry span per authentication

# Logging

Invalid tokens are logged at error level with the verifier error. Missing
and expired tokens are ordinary client conditions and only show at debug.
*/
package gatekeeper
