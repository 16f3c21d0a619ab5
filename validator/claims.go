package validator

import (
	"fmt"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/lightmesh/gatekeeper/core"
)

// claimsFromToken copies the registered claims and the gateway identity
// claims out of a verified token.
func claimsFromToken(token jwt.Token) (*core.Claims, error) {
	private := token.PrivateClaims()

	claims := &core.Claims{
		Issuer:   token.Issuer(),
		Subject:  token.Subject(),
		Audience: token.Audience(),
		Expiry:   token.Expiration(),
		Extra:    make(map[string]any, len(private)),
	}
	for k, v := range private {
		claims.Extra[k] = v
	}

	var err error
	if claims.ClientID, err = stringClaim(private, core.ClaimClientID); err != nil {
		return nil, err
	}
	if claims.UserID, err = stringClaim(private, core.ClaimUserID); err != nil {
		return nil, err
	}
	if claims.Scopes, err = scopeClaim(private[core.ClaimScope]); err != nil {
		return nil, err
	}

	return claims, nil
}

func stringClaim(private map[string]any, name string) (string, error) {
	raw, ok := private[name]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("claim %q must be a string, got %T", name, raw)
	}
	return s, nil
}

// scopeClaim accepts an array of strings or a space-delimited string.
func scopeClaim(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return strings.Fields(v), nil
	case []string:
		return v, nil
	case []any:
		scopes := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("scope entry %d must be a string, got %T", i, item)
			}
			scopes = append(scopes, s)
		}
		return scopes, nil
	default:
		return nil, fmt.Errorf("claim %q must be a string or an array of strings, got %T", core.ClaimScope, raw)
	}
}
