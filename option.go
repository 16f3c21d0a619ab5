package gatekeeper

import (
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/lightmesh/gatekeeper/core"
	"github.com/lightmesh/gatekeeper/status"
)

// Option configures the Authenticator.
// Returns error for validation failures.
type Option func(*Authenticator) error

// WithVerifier sets the verification primitive (REQUIRED). A
// *validator.Validator satisfies core.Verifier.
//
// Example:
//
//	v, err := validator.New(
//	    validator.WithKeyFunc(provider.KeyFunc),
//	    validator.WithAlgorithm(validator.RS256),
//	    validator.WithIssuer("https://issuer.example.com/"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	auth, err := gatekeeper.New(gatekeeper.WithVerifier(v))
func WithVerifier(v core.Verifier) Option {
	return func(a *Authenticator) error {
		if v == nil {
			return ErrVerifierNil
		}
		a.verifier = v
		return nil
	}
}

// WithEnabled switches verification on or off.
//
// Default: true
func WithEnabled(value bool) Option {
	return func(a *Authenticator) error {
		a.enabled = value
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests are authenticated.
//
// Default: true (OPTIONS requests are authenticated)
func WithValidateOnOptions(value bool) Option {
	return func(a *Authenticator) error {
		a.validateOnOptions = value
		return nil
	}
}

// WithCatalog sets the status catalog used by Handler. Inside a chain the
// chain's catalog is used.
//
// Default: status.Default()
func WithCatalog(catalog *status.Catalog) Option {
	return func(a *Authenticator) error {
		if catalog == nil {
			return ErrCatalogNil
		}
		a.catalog = catalog
		return nil
	}
}

// WithErrorHandler replaces the catalog response written for a rejected
// request. The error passed to h is a *RejectionError.
func WithErrorHandler(h ErrorHandler) Option {
	return func(a *Authenticator) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		a.errorHandler = h
		return nil
	}
}

// WithTokenExtractor sets the function to extract the token from the request.
//
// Default: AuthHeaderTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(a *Authenticator) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		a.tokenExtractor = e
		return nil
	}
}

// WithExclusionUrls excludes requests whose full URL or path equals one of
// exclusions.
func WithExclusionUrls(exclusions []string) Option {
	return func(a *Authenticator) error {
		if len(exclusions) == 0 {
			return ErrExclusionUrlsEmpty
		}
		a.addExclusion(func(r *http.Request) bool {
			requestFullURL := r.URL.String()
			requestPath := r.URL.Path

			for _, exclusion := range exclusions {
				if requestFullURL == exclusion || requestPath == exclusion {
					return true
				}
			}
			return false
		})
		return nil
	}
}

// WithSkipPathPrefixes excludes requests whose path starts with one of
// prefixes. Empty prefixes are ignored.
func WithSkipPathPrefixes(prefixes ...string) Option {
	return func(a *Authenticator) error {
		kept := make([]string, 0, len(prefixes))
		for _, p := range prefixes {
			if p != "" {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			return nil
		}
		a.addExclusion(func(r *http.Request) bool {
			for _, p := range kept {
				if strings.HasPrefix(r.URL.Path, p) {
					return true
				}
			}
			return false
		})
		return nil
	}
}

// WithExclusionHandler adds an arbitrary exclusion rule.
func WithExclusionHandler(h ExclusionURLHandler) Option {
	return func(a *Authenticator) error {
		if h == nil {
			return errors.New("exclusion handler cannot be nil")
		}
		a.addExclusion(h)
		return nil
	}
}

func (a *Authenticator) addExclusion(h ExclusionURLHandler) {
	prev := a.exclusionURLHandler
	if prev == nil {
		a.exclusionURLHandler = h
		return
	}
	a.exclusionURLHandler = func(r *http.Request) bool {
		return prev(r) || h(r)
	}
}

// WithLogger sets an optional logger for the authenticator.
// The logger will be used throughout the flow in both the stage and core.
//
// Example:
//
//	auth, err := gatekeeper.New(
//	    gatekeeper.WithVerifier(v),
//	    gatekeeper.WithLogger(gatekeeper.NewLogrusLogger(logrus.StandardLogger())),
//	)
func WithLogger(logger Logger) Option {
	return func(a *Authenticator) error {
		if logger == nil {
			return ErrLoggerNil
		}
		a.logger = logger
		return nil
	}
}

// WithMetrics records every authentication in m.
func WithMetrics(m *Metrics) Option {
	return func(a *Authenticator) error {
		if m == nil {
			return errors.New("metrics cannot be nil")
		}
		a.metrics = m
		return nil
	}
}

// WithTracer sets the tracer the authentication span is started on.
//
// Default: the global OpenTelemetry tracer provider
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Authenticator) error {
		if tracer == nil {
			return errors.New("tracer cannot be nil")
		}
		a.tracer = tracer
		return nil
	}
}

// Sentinel errors for configuration validation
var (
	ErrVerifierNil        = errors.New("verifier cannot be nil (use WithVerifier)")
	ErrCatalogNil         = errors.New("catalog cannot be nil")
	ErrErrorHandlerNil    = errors.New("errorHandler cannot be nil")
	ErrTokenExtractorNil  = errors.New("tokenExtractor cannot be nil")
	ErrExclusionUrlsEmpty = errors.New("exclusion URLs list cannot be empty")
	ErrLoggerNil          = errors.New("logger cannot be nil")
)
