package gatekeepergrpc

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/lightmesh/gatekeeper/core"
)

// TokenExtractor extracts a token from the incoming call context.
type TokenExtractor func(ctx context.Context) (string, error)

// MetadataTokenExtractor reads "Bearer <token>" from the "authorization"
// metadata field. Anything else yields no token.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}

	values := md.Get("authorization")
	if len(values) == 0 {
		return "", nil
	}
	return core.BearerToken(values[0]), nil
}

// MetadataFieldTokenExtractor extracts the raw token from a specified metadata field.
func MetadataFieldTokenExtractor(field string) TokenExtractor {
	return func(ctx context.Context) (string, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return "", nil
		}

		values := md.Get(field)
		if len(values) == 0 {
			return "", nil
		}
		return values[0], nil
	}
}

// MultiTokenExtractor runs multiple TokenExtractors and returns the first
// non-empty token.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(ctx context.Context) (string, error) {
		for _, ex := range extractors {
			token, err := ex(ctx)
			if err != nil {
				return "", err
			}
			if token != "" {
				return token, nil
			}
		}
		return "", nil
	}
}
