package gatekeeper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightmesh/gatekeeper/core"
	"github.com/lightmesh/gatekeeper/jwks"
	"github.com/lightmesh/gatekeeper/pipeline"
	"github.com/lightmesh/gatekeeper/status"
	"github.com/lightmesh/gatekeeper/validator"
)

const (
	issuer = "https://gatekeeper.networknt.com/"
	secret = "your-256-bit-secret-is-just-enough"
	kid    = "100"
)

var fixedNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func testVerifier(t *testing.T) *validator.Validator {
	t.Helper()
	provider, err := jwks.NewStaticProvider(jwks.WithSecret(kid, []byte(secret), jwa.HS256))
	require.NoError(t, err)

	v, err := validator.New(
		validator.WithKeyFunc(provider.KeyFunc),
		validator.WithAlgorithm(validator.HS256),
		validator.WithIssuer(issuer),
		validator.WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)
	return v
}

func signTestToken(t *testing.T, expiry time.Time, key []byte) string {
	t.Helper()
	tok, err := jwt.NewBuilder().
		Issuer(issuer).
		Subject("steve").
		IssuedAt(fixedNow.Add(-2*time.Hour)).
		Expiration(expiry).
		Claim(core.ClaimClientID, "f7d42348-c647-4efb-a52d-4c5787421e72").
		Claim(core.ClaimUserID, "steve").
		Claim(core.ClaimScope, []string{"read:pets", " write:pets "}).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, key))
	require.NoError(t, err)
	return string(signed)
}

func Test_Handler(t *testing.T) {
	validToken := signTestToken(t, fixedNow.Add(time.Hour), []byte(secret))
	expiredToken := signTestToken(t, fixedNow.Add(-time.Hour), []byte(secret))
	forgedToken := signTestToken(t, fixedNow.Add(time.Hour), []byte("another-secret-of-enough-length!!"))

	testCases := []struct {
		name           string
		options        []Option
		method         string
		path           string
		authorization  string
		wantStatusCode int
		wantBody       string
		wantAudit      *core.AuditContext
	}{
		{
			name:           "it authenticates a valid token",
			method:         http.MethodGet,
			path:           "/api/json",
			authorization:  "Bearer " + validToken,
			wantStatusCode: http.StatusOK,
			wantBody:       "ok",
			wantAudit: &core.AuditContext{
				Endpoint: "/api/json",
				ClientID: "f7d42348-c647-4efb-a52d-4c5787421e72",
				UserID:   "steve",
				Scope:    "read:pets,write:pets",
			},
		},
		{
			name:           "the bearer scheme is case insensitive",
			method:         http.MethodPost,
			path:           "/api/json",
			authorization:  "bearer " + validToken,
			wantStatusCode: http.StatusOK,
			wantBody:       "ok",
			wantAudit: &core.AuditContext{
				Endpoint: "/api/json",
				ClientID: "f7d42348-c647-4efb-a52d-4c5787421e72",
				UserID:   "steve",
				Scope:    "read:pets,write:pets",
			},
		},
		{
			name:           "it rejects a missing header",
			method:         http.MethodGet,
			path:           "/api/json",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "ERR10002 No Authorization header or the token is not bearer type",
		},
		{
			name:           "it rejects another scheme as missing",
			method:         http.MethodGet,
			path:           "/api/json",
			authorization:  "Basic dXNlcjpwYXNz",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "ERR10002 No Authorization header or the token is not bearer type",
		},
		{
			name:           "it rejects a bearer marker without a token as missing",
			method:         http.MethodGet,
			path:           "/api/json",
			authorization:  "Bearer ",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "ERR10002 No Authorization header or the token is not bearer type",
		},
		{
			name:           "it rejects an expired token",
			method:         http.MethodGet,
			path:           "/api/json",
			authorization:  "Bearer " + expiredToken,
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "ERR10001 Jwt token in authorization header expired",
		},
		{
			name:           "it rejects a token signed with another key",
			method:         http.MethodGet,
			path:           "/api/json",
			authorization:  "Bearer " + forgedToken,
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "ERR10000 Incorrect signature or malformed token in authorization header",
		},
		{
			name:           "it rejects garbage",
			method:         http.MethodGet,
			path:           "/api/json",
			authorization:  "Bearer not-a-jwt",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "ERR10000 Incorrect signature or malformed token in authorization header",
		},
		{
			name:           "it skips an excluded path",
			options:        []Option{WithExclusionUrls([]string{"/health"})},
			method:         http.MethodGet,
			path:           "/health",
			wantStatusCode: http.StatusOK,
			wantBody:       "ok",
		},
		{
			name:           "it skips a path under a skip prefix",
			options:        []Option{WithSkipPathPrefixes("/public")},
			method:         http.MethodGet,
			path:           "/public/docs",
			wantStatusCode: http.StatusOK,
			wantBody:       "ok",
		},
		{
			name:           "it still checks paths outside the skip prefixes",
			options:        []Option{WithSkipPathPrefixes("/public")},
			method:         http.MethodGet,
			path:           "/api/json",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "ERR10002 No Authorization header or the token is not bearer type",
		},
		{
			name:           "it validates OPTIONS by default",
			method:         http.MethodOptions,
			path:           "/api/json",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "ERR10002 No Authorization header or the token is not bearer type",
		},
		{
			name:           "it can skip OPTIONS",
			options:        []Option{WithValidateOnOptions(false)},
			method:         http.MethodOptions,
			path:           "/api/json",
			wantStatusCode: http.StatusOK,
			wantBody:       "ok",
		},
		{
			name:           "a disabled authenticator lets everything through",
			options:        []Option{WithEnabled(false)},
			method:         http.MethodGet,
			path:           "/api/json",
			wantStatusCode: http.StatusOK,
			wantBody:       "ok",
		},
		{
			name:           "it reads a token from a query parameter",
			options:        []Option{WithTokenExtractor(ParameterTokenExtractor("access_token"))},
			method:         http.MethodGet,
			path:           "/api/json?access_token=" + validToken,
			wantStatusCode: http.StatusOK,
			wantBody:       "ok",
			wantAudit: &core.AuditContext{
				Endpoint: "/api/json",
				ClientID: "f7d42348-c647-4efb-a52d-4c5787421e72",
				UserID:   "steve",
				Scope:    "read:pets,write:pets",
			},
		},
		{
			name: "an extractor error is reported as a missing token",
			options: []Option{WithTokenExtractor(func(*http.Request) (string, error) {
				return "", errors.New("cookie jar exploded")
			})},
			method:         http.MethodGet,
			path:           "/api/json",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "ERR10002 No Authorization header or the token is not bearer type",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			auth, err := New(append([]Option{WithVerifier(testVerifier(t))}, testCase.options...)...)
			require.NoError(t, err)

			var gotAudit *core.AuditContext
			handler := auth.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAudit, _ = GetAudit(r.Context())
				if gotAudit != nil {
					assert.True(t, HasClaims(r.Context()))
				}
				_, _ = w.Write([]byte("ok"))
			}))

			req := httptest.NewRequest(testCase.method, testCase.path, nil)
			if testCase.authorization != "" {
				req.Header.Set("Authorization", testCase.authorization)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			resp := rr.Result()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, testCase.wantStatusCode, resp.StatusCode)
			assert.Equal(t, testCase.wantBody, string(body))
			if diff := cmp.Diff(testCase.wantAudit, gotAudit); diff != "" {
				t.Errorf("audit mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAuthenticator_InChain(t *testing.T) {
	validToken := signTestToken(t, fixedNow.Add(time.Hour), []byte(secret))

	auth, err := New(WithVerifier(testVerifier(t)))
	require.NoError(t, err)

	var audit *core.AuditContext
	b, err := pipeline.NewBuilder()
	require.NoError(t, err)
	chain, err := b.Use(auth, pipeline.StageFunc(func(ex *pipeline.Exchange) pipeline.Verdict {
		var ok bool
		audit, ok = ex.Audit()
		assert.True(t, ok)
		return pipeline.Forward
	})).Build(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := GetClaims(r.Context())
		require.NoError(t, err)
		assert.Equal(t, "steve", claims.UserID)
	}))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/json", nil)
	req.Header.Set("Authorization", "Bearer "+validToken)
	rr := httptest.NewRecorder()
	chain.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, audit)
	assert.Equal(t, "read:pets,write:pets", audit.Scope)

	t.Run("a rejection stops the chain", func(t *testing.T) {
		var reached bool
		chain, err := b.Build(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true }))
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		chain.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/json", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.False(t, reached)
	})

	t.Run("a disabled authenticator is left out of the chain", func(t *testing.T) {
		off, err := New(WithVerifier(testVerifier(t)), WithEnabled(false))
		require.NoError(t, err)
		assert.False(t, off.Enabled())

		b, err := pipeline.NewBuilder()
		require.NoError(t, err)
		chain, err := b.Use(off).Build(http.NotFoundHandler())
		require.NoError(t, err)
		assert.Zero(t, chain.Len())
	})
}

func TestAuthenticator_DistinctOutcomes(t *testing.T) {
	auth, err := New(WithVerifier(testVerifier(t)))
	require.NoError(t, err)

	ctx := context.Background()
	missing := auth.Authenticate(ctx, "", "/api/json")
	expired := auth.Authenticate(ctx, signTestToken(t, fixedNow.Add(-time.Hour), []byte(secret)), "/api/json")
	invalid := auth.Authenticate(ctx, "a.b.c", "/api/json")

	codes := map[string]bool{
		missing.Outcome.StatusCode(): true,
		expired.Outcome.StatusCode(): true,
		invalid.Outcome.StatusCode(): true,
	}
	assert.Len(t, codes, 3)
	assert.Equal(t, core.MissingToken, missing.Outcome)
	assert.Equal(t, core.ExpiredToken, expired.Outcome)
	assert.Equal(t, core.InvalidToken, invalid.Outcome)
}

func TestAuthenticator_CustomErrorHandler(t *testing.T) {
	var got error
	auth, err := New(
		WithVerifier(testVerifier(t)),
		WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			got = err
			w.WriteHeader(http.StatusTeapot)
		}),
	)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	auth.Handler(http.NotFoundHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.ErrorIs(t, got, ErrJWTMissing)
}

func TestAuthenticator_CustomCatalog(t *testing.T) {
	catalog := status.NewCatalog([]status.Entry{{
		StatusCode:  http.StatusForbidden,
		Code:        status.CodeMissingToken,
		Message:     "MISSING_AUTH_TOKEN",
		Description: "Show me your papers",
	}})

	auth, err := New(WithVerifier(testVerifier(t)), WithCatalog(catalog))
	require.NoError(t, err)
	assert.Same(t, catalog, auth.Catalog())

	rr := httptest.NewRecorder()
	auth.Handler(http.NotFoundHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "ERR10002 Show me your papers", rr.Body.String())
}
