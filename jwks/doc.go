/*
Package jwks provides the key material the validator checks signatures
against.

Three providers are available. Each exposes a KeyFunc with the signature
validator.WithKeyFunc expects:

  - StaticProvider: a fixed set built at startup from shared HMAC secrets and
    PEM encoded public keys or X.509 certificates
  - Provider: fetches the JWKS on every call, either from a configured URI or
    from the jwks_uri advertised by the issuer's OIDC discovery document
  - CachingProvider: like Provider, but keeps the set in a jwk.Cache that
    refreshes it in the background

# Static keys

	provider, err := jwks.NewStaticProvider(
	    jwks.WithSecret("kid-1", []byte(secret), jwa.HS256),
	    jwks.WithPEM("100", certPEM, jwa.RS256),
	)

Every key carries the configured kid and alg. Tokens without a kid header are
tried against all keys.

# Remote keys

	provider, err := jwks.NewCachingProvider(ctx,
	    jwks.WithIssuerURL(issuerURL),
	    jwks.WithCacheTTL(15*time.Minute),
	)
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(
	    validator.WithKeyFunc(provider.KeyFunc),
	    validator.WithAlgorithm(validator.RS256),
	)

The JWKS URI is discovered on first use and then registered with the cache.
A failed discovery or fetch surfaces as a KeyFunc error, which the validator
reports as an invalid token.
*/
package jwks
