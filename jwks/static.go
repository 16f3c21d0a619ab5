package jwks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// StaticProvider serves a key set assembled once from configured shared
// secrets and PEM encoded keys or certificates.
type StaticProvider struct {
	set jwk.Set
}

// StaticOption adds key material to a StaticProvider.
type StaticOption func(jwk.Set) error

// NewStaticProvider builds the key set. At least one key is required.
//
// Example:
//
//	provider, err := jwks.NewStaticProvider(
//	    jwks.WithSecret("kid-1", []byte(secret), jwa.HS256),
//	    jwks.WithPEM("100", certPEM, jwa.RS256),
//	)
func NewStaticProvider(opts ...StaticOption) (*StaticProvider, error) {
	set := jwk.NewSet()

	for _, opt := range opts {
		if err := opt(set); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if set.Len() == 0 {
		return nil, errors.New("at least one key is required (use WithSecret or WithPEM)")
	}

	return &StaticProvider{set: set}, nil
}

// KeyFunc adheres to the keyFunc signature that the Validator requires.
func (p *StaticProvider) KeyFunc(context.Context) (jwk.Set, error) {
	return p.set, nil
}

// Len returns the number of keys in the set.
func (p *StaticProvider) Len() int {
	return p.set.Len()
}

// WithSecret adds a shared HMAC secret. alg must be one of HS256, HS384 or
// HS512.
func WithSecret(kid string, secret []byte, alg jwa.SignatureAlgorithm) StaticOption {
	return func(set jwk.Set) error {
		if len(secret) == 0 {
			return fmt.Errorf("secret %q cannot be empty", kid)
		}
		if !strings.HasPrefix(alg.String(), "HS") {
			return fmt.Errorf("secret %q needs an HMAC algorithm, got %s", kid, alg)
		}
		key, err := jwk.FromRaw(secret)
		if err != nil {
			return fmt.Errorf("could not build key %q: %w", kid, err)
		}
		return addKey(set, kid, alg, key)
	}
}

// WithPEM adds a PEM encoded public key or X.509 certificate. A private key
// is accepted and reduced to its public half.
func WithPEM(kid string, data []byte, alg jwa.SignatureAlgorithm) StaticOption {
	return func(set jwk.Set) error {
		if strings.HasPrefix(alg.String(), "HS") {
			return fmt.Errorf("key %q cannot use HMAC algorithm %s", kid, alg)
		}
		key, err := jwk.ParseKey(data, jwk.WithPEM(true))
		if err != nil {
			return fmt.Errorf("could not parse PEM for key %q: %w", kid, err)
		}
		public, err := key.PublicKey()
		if err != nil {
			return fmt.Errorf("could not derive public key %q: %w", kid, err)
		}
		return addKey(set, kid, alg, public)
	}
}

// WithKey adds an already built key. Its kid and alg must be set.
func WithKey(key jwk.Key) StaticOption {
	return func(set jwk.Set) error {
		if key == nil {
			return errors.New("key cannot be nil")
		}
		if key.KeyID() == "" {
			return errors.New("key must have a kid")
		}
		if key.Algorithm().String() == "" {
			return fmt.Errorf("key %q must have an alg", key.KeyID())
		}
		if _, dup := set.LookupKeyID(key.KeyID()); dup {
			return fmt.Errorf("duplicate key id %q", key.KeyID())
		}
		return set.AddKey(key)
	}
}

func addKey(set jwk.Set, kid string, alg jwa.SignatureAlgorithm, key jwk.Key) error {
	if kid == "" {
		return errors.New("key id cannot be empty")
	}
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return fmt.Errorf("could not set kid %q: %w", kid, err)
	}
	if err := key.Set(jwk.AlgorithmKey, alg); err != nil {
		return fmt.Errorf("could not set alg for key %q: %w", kid, err)
	}
	return WithKey(key)(set)
}
