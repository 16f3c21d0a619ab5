package gatekeepergrpc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/lightmesh/gatekeeper"
	"github.com/lightmesh/gatekeeper/core"
)

const validToken = "valid.token.value"

func newAuthenticator(t *testing.T, opts ...gatekeeper.Option) *gatekeeper.Authenticator {
	t.Helper()
	verifier := core.VerifierFunc(func(_ context.Context, token string) (*core.Claims, error) {
		switch token {
		case validToken:
			return &core.Claims{ClientID: "client", UserID: "steve", Scopes: []string{"read", "write"}}, nil
		case "expired.token.value":
			return nil, core.NewValidationError(core.ErrorCodeTokenExpired, "token has expired", nil)
		default:
			return nil, core.NewValidationError(core.ErrorCodeInvalidSignature, "bad signature", nil)
		}
	})
	auth, err := gatekeeper.New(append([]gatekeeper.Option{gatekeeper.WithVerifier(verifier)}, opts...)...)
	require.NoError(t, err)
	return auth
}

func withAuthorization(value string) context.Context {
	if value == "" {
		return context.Background()
	}
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", value))
}

func TestUnaryServerInterceptor(t *testing.T) {
	testCases := []struct {
		name          string
		authorization string
		method        string
		options       []Option
		authOptions   []gatekeeper.Option
		wantCode      codes.Code
		wantMessage   string
		wantAudit     bool
	}{
		{
			name:          "valid token",
			authorization: "Bearer " + validToken,
			wantCode:      codes.OK,
			wantAudit:     true,
		},
		{
			name:        "missing token",
			wantCode:    codes.Unauthenticated,
			wantMessage: "ERR10002 No Authorization header or the token is not bearer type",
		},
		{
			name:          "wrong scheme",
			authorization: "Basic " + validToken,
			wantCode:      codes.Unauthenticated,
			wantMessage:   "ERR10002 No Authorization header or the token is not bearer type",
		},
		{
			name:          "expired token",
			authorization: "Bearer expired.token.value",
			wantCode:      codes.Unauthenticated,
			wantMessage:   "ERR10001 Jwt token in authorization header expired",
		},
		{
			name:          "invalid token",
			authorization: "Bearer forged.token.value",
			wantCode:      codes.Unauthenticated,
			wantMessage:   "ERR10000 Incorrect signature or malformed token in authorization header",
		},
		{
			name:     "excluded method",
			method:   "/grpc.health.v1.Health/Check",
			options:  []Option{WithExcludedMethods([]string{"/grpc.health.v1.Health/Check"})},
			wantCode: codes.OK,
		},
		{
			name:        "disabled authenticator",
			authOptions: []gatekeeper.Option{gatekeeper.WithEnabled(false)},
			wantCode:    codes.OK,
		},
		{
			name:          "multi extractor falls back",
			authorization: "",
			options: []Option{WithTokenExtractor(MultiTokenExtractor(
				MetadataTokenExtractor,
				func(context.Context) (string, error) { return validToken, nil },
			))},
			wantCode:  codes.OK,
			wantAudit: true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			interceptor, err := New(newAuthenticator(t, testCase.authOptions...), testCase.options...)
			require.NoError(t, err)

			method := testCase.method
			if method == "" {
				method = "/petstore.PetService/AddPet"
			}

			var called bool
			var audit *core.AuditContext
			handler := func(ctx context.Context, req any) (any, error) {
				called = true
				audit, _ = core.GetAudit(ctx)
				return "ok", nil
			}

			resp, err := interceptor.UnaryServerInterceptor()(
				withAuthorization(testCase.authorization), "req",
				&grpc.UnaryServerInfo{FullMethod: method}, handler,
			)

			if testCase.wantCode != codes.OK {
				require.Error(t, err)
				st, ok := grpcstatus.FromError(err)
				require.True(t, ok)
				assert.Equal(t, testCase.wantCode, st.Code())
				assert.Equal(t, testCase.wantMessage, st.Message())
				assert.False(t, called)
				assert.Nil(t, resp)
				return
			}

			require.NoError(t, err)
			assert.True(t, called)
			assert.Equal(t, "ok", resp)
			if testCase.wantAudit {
				require.NotNil(t, audit)
				assert.Equal(t, &core.AuditContext{Endpoint: method, ClientID: "client", UserID: "steve", Scope: "read,write"}, audit)
			} else {
				assert.Nil(t, audit)
			}
		})
	}
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeServerStream) Context() context.Context { return f.ctx }

func TestStreamServerInterceptor(t *testing.T) {
	interceptor, err := New(newAuthenticator(t))
	require.NoError(t, err)
	info := &grpc.StreamServerInfo{FullMethod: "/petstore.PetService/WatchPets"}

	t.Run("authenticated stream sees the claims", func(t *testing.T) {
		var claims *core.Claims
		err := interceptor.StreamServerInterceptor()(nil,
			&fakeServerStream{ctx: withAuthorization("Bearer " + validToken)}, info,
			func(_ any, ss grpc.ServerStream) error {
				var err error
				claims, err = core.GetClaims(ss.Context())
				return err
			})
		require.NoError(t, err)
		assert.Equal(t, "steve", claims.UserID)
	})

	t.Run("rejected stream never reaches the handler", func(t *testing.T) {
		err := interceptor.StreamServerInterceptor()(nil,
			&fakeServerStream{ctx: context.Background()}, info,
			func(any, grpc.ServerStream) error {
				t.Fatal("handler must not run")
				return nil
			})
		assert.Equal(t, codes.Unauthenticated, grpcstatus.Code(err))
	})
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.EqualError(t, err, "authenticator cannot be nil")

	auth := newAuthenticator(t)
	testCases := []struct {
		name    string
		option  Option
		wantErr string
	}{
		{name: "nil error handler", option: WithErrorHandler(nil), wantErr: "invalid option: error handler cannot be nil"},
		{name: "nil exclusion checker", option: WithExclusionChecker(nil), wantErr: "invalid option: exclusion checker cannot be nil"},
		{name: "nil token extractor", option: WithTokenExtractor(nil), wantErr: "invalid option: token extractor cannot be nil"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := New(auth, testCase.option)
			assert.EqualError(t, err, testCase.wantErr)
		})
	}

	t.Run("custom error handler", func(t *testing.T) {
		sentinel := errors.New("go away")
		interceptor, err := New(auth,
			WithErrorHandler(func(context.Context, core.AuthResult) error { return sentinel }),
			WithExclusionChecker(func(string) bool { return false }),
		)
		require.NoError(t, err)

		_, err = interceptor.UnaryServerInterceptor()(context.Background(), nil,
			&grpc.UnaryServerInfo{FullMethod: "/x/Y"}, func(context.Context, any) (any, error) { return nil, nil })
		assert.ErrorIs(t, err, sentinel)
	})
}

func TestMetadataFieldTokenExtractor(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-token", "abc"))

	token, err := MetadataFieldTokenExtractor("x-token")(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	token, err = MetadataFieldTokenExtractor("x-other")(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	token, err = MetadataTokenExtractor(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
}
