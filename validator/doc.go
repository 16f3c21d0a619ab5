/*
Package validator provides the token verification primitive on top of
lestrrat-go/jwx v2.

A Validator parses a compact JWS, checks that its header names the one
configured algorithm, verifies the signature against the key set returned by
its KeyFunc and validates exp, nbf and iat (with an optional clock skew) plus
issuer and audience. On success it returns *core.Claims with the gateway
identity claims (client_id, user_id, scope) already extracted.

# Errors

Every rejection is a *core.ValidationError. Expiry is the only failure that
matches core.ErrTokenExpired; everything else, including a key set that could
not be fetched, matches core.ErrTokenInvalid:

	claims, err := v.Verify(ctx, token)
	switch {
	case errors.Is(err, core.ErrTokenExpired):
	    // ERR10001
	case err != nil:
	    // ERR10000
	}

# Basic Usage

	provider, err := jwks.NewStaticProvider(
	    jwks.WithSecret("kid-1", []byte(secret), jwa.HS256),
	)
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(
	    validator.WithKeyFunc(provider.KeyFunc),
	    validator.WithAlgorithm(validator.HS256),
	    validator.WithIssuer("https://issuer.example.com/"),
	    validator.WithAudience("my-api"),
	    validator.WithAllowedClockSkew(time.Minute),
	)

# Scope

The scope claim may be a JSON array of strings or a single space-delimited
string. Both end up in Claims.Scopes as separate entries.
*/
package validator
