package validator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/lightmesh/gatekeeper/core"
)

// Signature algorithms
const (
	EdDSA = SignatureAlgorithm("EdDSA")
	HS256 = SignatureAlgorithm("HS256") // HMAC using SHA-256
	HS384 = SignatureAlgorithm("HS384") // HMAC using SHA-384
	HS512 = SignatureAlgorithm("HS512") // HMAC using SHA-512
	RS256 = SignatureAlgorithm("RS256") // RSASSA-PKCS-v1.5 using SHA-256
	RS384 = SignatureAlgorithm("RS384") // RSASSA-PKCS-v1.5 using SHA-384
	RS512 = SignatureAlgorithm("RS512") // RSASSA-PKCS-v1.5 using SHA-512
	ES256 = SignatureAlgorithm("ES256") // ECDSA using P-256 and SHA-256
	ES384 = SignatureAlgorithm("ES384") // ECDSA using P-384 and SHA-384
	ES512 = SignatureAlgorithm("ES512") // ECDSA using P-521 and SHA-512
	PS256 = SignatureAlgorithm("PS256") // RSASSA-PSS using SHA256 and MGF1-SHA256
	PS384 = SignatureAlgorithm("PS384") // RSASSA-PSS using SHA384 and MGF1-SHA384
	PS512 = SignatureAlgorithm("PS512") // RSASSA-PSS using SHA512 and MGF1-SHA512
)

// SignatureAlgorithm is a signature algorithm.
type SignatureAlgorithm string

// JWA returns the jwx representation of the algorithm.
func (a SignatureAlgorithm) JWA() jwa.SignatureAlgorithm {
	return jwa.SignatureAlgorithm(a)
}

var allowedSigningAlgorithms = map[SignatureAlgorithm]bool{
	EdDSA: true,
	HS256: true,
	HS384: true,
	HS512: true,
	RS256: true,
	RS384: true,
	RS512: true,
	ES256: true,
	ES384: true,
	ES512: true,
	PS256: true,
	PS384: true,
	PS512: true,
}

// KeyFunc returns the key set signatures are checked against.
type KeyFunc func(ctx context.Context) (jwk.Set, error)

// Validator verifies compact JWS tokens with jwx and turns them into
// core.Claims. It implements core.Verifier.
type Validator struct {
	keyFunc            KeyFunc            // Required.
	signatureAlgorithm SignatureAlgorithm // Required.
	issuer             string
	audiences          []string
	allowedClockSkew   time.Duration
	clock              func() time.Time
	claimsCheck        func(context.Context, *core.Claims) error
}

var _ core.Verifier = (*Validator)(nil)

// New sets up a new Validator.
//
// Required options:
//   - WithKeyFunc: key set used to verify signatures
//   - WithAlgorithm: the only signature algorithm accepted
//
// Optional options:
//   - WithIssuer, WithAudience/WithAudiences: expected iss and aud
//   - WithAllowedClockSkew: tolerance for exp, nbf and iat
//   - WithClock: time source, mostly for tests
//   - WithClaimsCheck: extra check run on verified claims
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		clock: time.Now,
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if v.keyFunc == nil {
		return nil, errors.New("keyFunc is required but not set (use WithKeyFunc option)")
	}
	if v.signatureAlgorithm == "" {
		return nil, errors.New("signature algorithm is required but not set (use WithAlgorithm option)")
	}

	return v, nil
}

// Verify checks the token signature against the current key set and the
// validity window plus issuer and audience, then returns its claims.
//
// Every error is a *core.ValidationError. Only an expired token carries
// core.ErrorCodeTokenExpired so callers can use errors.Is(err,
// core.ErrTokenExpired) to tell expiry apart from any other rejection.
func (v *Validator) Verify(ctx context.Context, tokenString string) (*core.Claims, error) {
	if err := validateTokenFormat(tokenString); err != nil {
		return nil, core.NewValidationError(core.ErrorCodeTokenMalformed, "token is malformed", err)
	}

	msg, err := jws.Parse([]byte(tokenString))
	if err != nil {
		return nil, core.NewValidationError(core.ErrorCodeTokenMalformed, "could not parse the token", err)
	}

	if err = v.validateSigningMethod(msg); err != nil {
		return nil, core.NewValidationError(core.ErrorCodeInvalidSignature, "signing method is invalid", err)
	}

	set, err := v.keyFunc(ctx)
	if err != nil {
		return nil, core.NewValidationError(core.ErrorCodeKeysUnavailable, "error getting the keys from the key func", err)
	}

	// Time claims are validated last so that a token from a foreign issuer
	// or audience is never reported as merely expired.
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKeySet(set, jws.WithRequireKid(false), jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, classifyParseError(err)
	}

	if err = v.validateIssuer(token); err != nil {
		return nil, core.NewValidationError(core.ErrorCodeInvalidIssuer, "issuer not allowed", err)
	}

	if err = v.validateAudience(token); err != nil {
		return nil, core.NewValidationError(core.ErrorCodeInvalidAudience, "audience not allowed", err)
	}

	err = jwt.Validate(token,
		jwt.WithAcceptableSkew(v.allowedClockSkew),
		jwt.WithClock(jwt.ClockFunc(v.clock)),
	)
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, err := claimsFromToken(token)
	if err != nil {
		return nil, core.NewValidationError(core.ErrorCodeInvalidClaims, "failed to read token claims", err)
	}

	if v.claimsCheck != nil {
		if err = v.claimsCheck(ctx, claims); err != nil {
			return nil, core.NewValidationError(core.ErrorCodeInvalidClaims, "claims check failed", err)
		}
	}

	return claims, nil
}

func (v *Validator) validateSigningMethod(msg *jws.Message) error {
	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return fmt.Errorf("expected exactly one signature but token has %d", len(sigs))
	}
	tokenAlg := sigs[0].ProtectedHeaders().Algorithm()
	if tokenAlg != v.signatureAlgorithm.JWA() {
		return fmt.Errorf("expected %q signing algorithm but token specified %q", v.signatureAlgorithm, tokenAlg)
	}
	return nil
}

func (v *Validator) validateIssuer(token jwt.Token) error {
	if v.issuer == "" || token.Issuer() == v.issuer {
		return nil
	}
	return fmt.Errorf("token issuer %q does not match %q", token.Issuer(), v.issuer)
}

func (v *Validator) validateAudience(token jwt.Token) error {
	if len(v.audiences) == 0 {
		return nil
	}
	for _, aud := range token.Audience() {
		if slices.Contains(v.audiences, aud) {
			return nil
		}
	}
	return fmt.Errorf("token audience %v does not contain any of %v", token.Audience(), v.audiences)
}

func classifyParseError(err error) *core.ValidationError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired()):
		return core.NewValidationError(core.ErrorCodeTokenExpired, "token is expired", err)
	case errors.Is(err, jwt.ErrTokenNotYetValid()):
		return core.NewValidationError(core.ErrorCodeTokenNotYetValid, "token is not valid yet", err)
	case errors.Is(err, jwt.ErrInvalidIssuer()):
		return core.NewValidationError(core.ErrorCodeInvalidIssuer, "issuer not allowed", err)
	case errors.Is(err, jwt.ErrInvalidAudience()):
		return core.NewValidationError(core.ErrorCodeInvalidAudience, "audience not allowed", err)
	default:
		return core.NewValidationError(core.ErrorCodeInvalidSignature, "could not verify the token", err)
	}
}
