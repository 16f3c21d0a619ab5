package gatekeepergrpc

import (
	"context"
	"errors"

	"github.com/lightmesh/gatekeeper/core"
)

// Option configures the Interceptor.
type Option func(*Interceptor) error

// WithErrorHandler replaces the Unauthenticated error returned for a
// rejected call.
func WithErrorHandler(handler func(ctx context.Context, result core.AuthResult) error) Option {
	return func(i *Interceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods skips authentication for the listed full method names.
func WithExcludedMethods(methods []string) Option {
	methodSet := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		methodSet[m] = struct{}{}
	}
	return func(i *Interceptor) error {
		i.exclusionChecker = func(method string) bool {
			_, ok := methodSet[method]
			return ok
		}
		return nil
	}
}

// WithExclusionChecker allows configuring a custom exclusion checker for gRPC methods.
func WithExclusionChecker(checker func(string) bool) Option {
	return func(i *Interceptor) error {
		if checker == nil {
			return errors.New("exclusion checker cannot be nil")
		}
		i.exclusionChecker = checker
		return nil
	}
}

// WithTokenExtractor sets how the token is read from the call.
//
// Default: MetadataTokenExtractor
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *Interceptor) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		i.tokenExtractor = extractor
		return nil
	}
}
