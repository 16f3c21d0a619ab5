package jwks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/lightmesh/gatekeeper/internal/oidc"
)

// Provider handles getting JWKS from the specified IssuerURL and exposes
// KeyFunc which adheres to the keyFunc signature that the Validator requires.
// Every call fetches the key set; most likely you will want to use the
// CachingProvider instead.
type Provider struct {
	IssuerURL     *url.URL // Required unless CustomJWKSURI is set.
	CustomJWKSURI *url.URL // Optional.
	Client        *http.Client
}

// NewProvider builds and returns a new *Provider.
//
// Options:
//   - WithIssuerURL: OIDC issuer URL for JWKS discovery
//   - WithCustomJWKSURI: JWKS URI used directly (skips discovery)
//   - WithCustomClient: custom HTTP client
//
// One of WithIssuerURL or WithCustomJWKSURI is required.
func NewProvider(opts ...ProviderOption) (*Provider, error) {
	p := &Provider{
		Client: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if p.IssuerURL == nil && p.CustomJWKSURI == nil {
		return nil, errors.New("issuer URL or JWKS URI is required (use WithIssuerURL or WithCustomJWKSURI)")
	}

	return p, nil
}

// KeyFunc adheres to the keyFunc signature that the Validator requires.
func (p *Provider) KeyFunc(ctx context.Context) (jwk.Set, error) {
	jwksURI, err := resolveJWKSURI(ctx, p.Client, p.IssuerURL, p.CustomJWKSURI)
	if err != nil {
		return nil, err
	}

	set, err := jwk.Fetch(ctx, jwksURI, jwk.WithHTTPClient(p.Client))
	if err != nil {
		return nil, fmt.Errorf("could not fetch JWKS: %w", err)
	}

	return set, nil
}

func resolveJWKSURI(ctx context.Context, client *http.Client, issuerURL, customJWKSURI *url.URL) (string, error) {
	if customJWKSURI != nil {
		return customJWKSURI.String(), nil
	}

	wkEndpoints, err := oidc.GetWellKnownEndpointsFromIssuerURL(ctx, client, *issuerURL, issuerURL.String())
	if err != nil {
		return "", fmt.Errorf("failed to discover JWKS URI: %w", err)
	}

	if _, err = url.Parse(wkEndpoints.JWKSURI); err != nil {
		return "", fmt.Errorf("could not parse JWKS URI from well known endpoints: %w", err)
	}

	return wkEndpoints.JWKSURI, nil
}

// CachingProvider fetches the JWKS once and keeps it in a jwk.Cache that
// refreshes it in the background. KeyFunc is safe for concurrent use.
type CachingProvider struct {
	cache      *jwk.Cache
	issuerURL  *url.URL
	httpClient *http.Client
	cacheTTL   time.Duration

	// jwksURI is discovered lazily and registered with the cache once.
	jwksURIMu sync.Mutex
	jwksURI   string
}

// NewCachingProvider builds and returns a new CachingProvider. ctx bounds
// the lifetime of the background refresh; cancel it on shutdown.
//
// Accepts both ProviderOption and CachingProviderOption types, so common
// options like WithIssuerURL, WithCustomJWKSURI, and WithCustomClient work
// without any wrapper.
//
// Optional options:
//   - WithCacheTTL: minimum refresh interval (default: 15 minutes)
//
// Example:
//
//	provider, err := jwks.NewCachingProvider(ctx,
//	    jwks.WithIssuerURL(issuerURL),
//	    jwks.WithCacheTTL(5*time.Minute),
//	)
func NewCachingProvider(ctx context.Context, opts ...any) (*CachingProvider, error) {
	config := &cachingProviderConfig{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cacheTTL:   15 * time.Minute,
	}

	for _, opt := range opts {
		switch v := opt.(type) {
		case CachingProviderOption:
			if err := v(config); err != nil {
				return nil, fmt.Errorf("invalid option: %w", err)
			}
		case ProviderOption:
			tempProvider := &Provider{}
			if err := v(tempProvider); err != nil {
				return nil, fmt.Errorf("invalid option: %w", err)
			}

			if tempProvider.IssuerURL != nil {
				config.issuerURL = tempProvider.IssuerURL
			}
			if tempProvider.CustomJWKSURI != nil {
				config.customJWKSURI = tempProvider.CustomJWKSURI
			}
			if tempProvider.Client != nil {
				config.httpClient = tempProvider.Client
			}
		default:
			return nil, fmt.Errorf("invalid option type: %T (must be ProviderOption or CachingProviderOption)", opt)
		}
	}

	if config.issuerURL == nil && config.customJWKSURI == nil {
		return nil, errors.New("issuer URL or JWKS URI is required (use WithIssuerURL or WithCustomJWKSURI)")
	}

	cp := &CachingProvider{
		cache:      jwk.NewCache(ctx),
		issuerURL:  config.issuerURL,
		httpClient: config.httpClient,
		cacheTTL:   config.cacheTTL,
	}

	if config.customJWKSURI != nil {
		if err := cp.register(config.customJWKSURI.String()); err != nil {
			return nil, err
		}
	}

	return cp, nil
}

func (c *CachingProvider) register(jwksURI string) error {
	err := c.cache.Register(jwksURI,
		jwk.WithMinRefreshInterval(c.cacheTTL),
		jwk.WithHTTPClient(c.httpClient),
	)
	if err != nil {
		return fmt.Errorf("could not register JWKS URI %s: %w", jwksURI, err)
	}
	c.jwksURI = jwksURI
	return nil
}

// getJWKSURI returns the JWKS URI, discovering and registering it if
// necessary. A failed discovery is retried on the next call.
func (c *CachingProvider) getJWKSURI(ctx context.Context) (string, error) {
	c.jwksURIMu.Lock()
	defer c.jwksURIMu.Unlock()

	if c.jwksURI != "" {
		return c.jwksURI, nil
	}

	uri, err := resolveJWKSURI(ctx, c.httpClient, c.issuerURL, nil)
	if err != nil {
		return "", err
	}

	if err = c.register(uri); err != nil {
		return "", err
	}

	return uri, nil
}

// KeyFunc adheres to the keyFunc signature that the Validator requires.
func (c *CachingProvider) KeyFunc(ctx context.Context) (jwk.Set, error) {
	jwksURI, err := c.getJWKSURI(ctx)
	if err != nil {
		return nil, err
	}

	set, err := c.cache.Get(ctx, jwksURI)
	if err != nil {
		return nil, fmt.Errorf("could not fetch JWKS: %w", err)
	}

	return set, nil
}
