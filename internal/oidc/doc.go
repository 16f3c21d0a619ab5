/*
Package oidc discovers the JWKS endpoint of an OpenID Connect issuer.

Providers expose a discovery document at a well-known URL:

	https://issuer.example.com/.well-known/openid-configuration

GetWellKnownEndpointsFromIssuerURL fetches it with the caller's HTTP client
and returns the jwks_uri. When an expected issuer is given, the issuer in the
metadata must match it, so a tampered discovery response cannot redirect key
lookups to another authority.

	endpoints, err := oidc.GetWellKnownEndpointsFromIssuerURL(ctx, client, *issuerURL, issuerURL.String())
	if err != nil {
	    return err
	}
	jwksURI := endpoints.JWKSURI
*/
package oidc
