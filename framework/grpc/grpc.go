// Package gatekeepergrpc adapts the gatekeeper Authenticator to gRPC servers
// as unary and stream interceptors.
//
// The token is read from the "authorization" metadata key. Every rejection
// is returned as codes.Unauthenticated whose message is the catalog status
// line, for example "ERR10001 Jwt token in authorization header expired".
package gatekeepergrpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/lightmesh/gatekeeper"
	"github.com/lightmesh/gatekeeper/core"
)

// Interceptor authenticates gRPC calls.
type Interceptor struct {
	auth             *gatekeeper.Authenticator
	tokenExtractor   TokenExtractor
	exclusionChecker func(method string) bool
	errorHandler     func(ctx context.Context, result core.AuthResult) error
}

// New wraps auth. The Authenticator's catalog formats rejection messages.
func New(auth *gatekeeper.Authenticator, opts ...Option) (*Interceptor, error) {
	if auth == nil {
		return nil, errors.New("authenticator cannot be nil")
	}

	i := &Interceptor{
		auth:           auth,
		tokenExtractor: MetadataTokenExtractor,
	}
	i.errorHandler = i.defaultErrorHandler

	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return i, nil
}

// authenticate returns the context the handler runs with.
func (i *Interceptor) authenticate(ctx context.Context, method string) (context.Context, error) {
	if !i.auth.Enabled() {
		return ctx, nil
	}
	if i.exclusionChecker != nil && i.exclusionChecker(method) {
		return ctx, nil
	}

	token, err := i.tokenExtractor(ctx)
	if err != nil {
		token = ""
	}

	result := i.auth.Authenticate(ctx, token, method)
	if !result.OK() {
		return nil, i.errorHandler(ctx, result)
	}

	ctx = core.SetAudit(ctx, result.Audit)
	return core.SetClaims(ctx, result.Claims), nil
}

func (i *Interceptor) defaultErrorHandler(_ context.Context, result core.AuthResult) error {
	st := i.auth.Catalog().Format(result.Outcome.StatusCode())
	return grpcstatus.Error(codes.Unauthenticated, st.String())
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that only
// calls the handler for authenticated calls.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		authCtx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(authCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that only
// calls the handler for authenticated streams.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		authCtx, err := i.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: authCtx})
	}
}

// wrappedServerStream wraps a grpc.ServerStream to override the context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
