package gatekeeper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lightmesh/gatekeeper/core"
	"github.com/lightmesh/gatekeeper/pipeline"
	"github.com/lightmesh/gatekeeper/status"
)

// Authenticator is the token authentication stage. It can run inside a
// pipeline.Chain or wrap a plain http.Handler with Handler.
type Authenticator struct {
	core                *core.Authenticator
	catalog             *status.Catalog
	errorHandler        ErrorHandler
	tokenExtractor      TokenExtractor
	validateOnOptions   bool
	enabled             bool
	exclusionURLHandler ExclusionURLHandler
	logger              Logger
	metrics             *Metrics
	tracer              trace.Tracer

	// verifier is handed to core by New and cleared afterwards.
	verifier core.Verifier
}

var _ pipeline.Stage = (*Authenticator)(nil)
var _ pipeline.Toggle = (*Authenticator)(nil)

// Logger defines an optional logging interface compatible with log/slog.
// This is the same interface used by core for consistent logging across the stack.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ExclusionURLHandler is a function that takes in a http.Request and returns
// true if the request should be excluded from token authentication.
type ExclusionURLHandler func(r *http.Request) bool

// New constructs a new Authenticator with the supplied options.
//
// Example:
//
//	auth, err := gatekeeper.New(
//	    gatekeeper.WithVerifier(v),
//	    gatekeeper.WithSkipPathPrefixes("/health"),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create authenticator: %v", err)
//	}
func New(opts ...Option) (*Authenticator, error) {
	a := &Authenticator{
		validateOnOptions: true,
		enabled:           true,
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if a.verifier == nil {
		return nil, fmt.Errorf("invalid authenticator configuration: %w", ErrVerifierNil)
	}

	a.applyDefaults()

	coreInstance, err := core.New(core.WithVerifier(a.verifier), core.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create core: %w", err)
	}
	a.core = coreInstance
	a.verifier = nil

	return a, nil
}

func (a *Authenticator) applyDefaults() {
	if a.catalog == nil {
		a.catalog = status.Default()
	}
	if a.tokenExtractor == nil {
		a.tokenExtractor = AuthHeaderTokenExtractor
	}
	if a.logger == nil {
		a.logger = core.NopLogger()
	}
	if a.tracer == nil {
		a.tracer = defaultTracer()
	}
}

// Enabled reports whether verification is switched on. A disabled
// Authenticator is left out of the chain when it is built.
func (a *Authenticator) Enabled() bool {
	return a.enabled
}

// Authenticate runs the token through core inside a span and records the
// outcome in the metrics. Framework adapters that do not speak net/http
// call it directly.
func (a *Authenticator) Authenticate(ctx context.Context, token, endpoint string) core.AuthResult {
	ctx, span := a.tracer.Start(ctx, SpanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String(EndpointAttribute, endpoint)),
	)
	defer span.End()

	start := time.Now()
	result := a.core.Authenticate(ctx, token, endpoint)
	a.metrics.observe(result.Outcome, time.Since(start))

	span.SetAttributes(attribute.String(ResultAttribute, result.Outcome.String()))
	if !result.OK() {
		span.SetStatus(codes.Error, result.Outcome.String())
	}
	return result
}

// Process implements pipeline.Stage. A rejected request is answered with the
// catalog status of its outcome and the chain stops. An authenticated request
// carries its claims and audit context forward.
func (a *Authenticator) Process(ex *pipeline.Exchange) pipeline.Verdict {
	r := ex.Request

	if a.exclusionURLHandler != nil && a.exclusionURLHandler(r) {
		a.logger.Debug("skipping authentication for excluded URL", "method", r.Method, "path", r.URL.Path)
		return pipeline.Forward
	}
	if !a.validateOnOptions && r.Method == http.MethodOptions {
		a.logger.Debug("skipping authentication for OPTIONS request")
		return pipeline.Forward
	}

	token, err := a.tokenExtractor(r)
	if err != nil {
		// An unusable credential is reported the same way as no credential.
		a.logger.Debug("failed to extract token from request", "error", err, "method", r.Method, "path", r.URL.Path)
		token = ""
	}

	result := a.Authenticate(ex.Context(), token, r.URL.Path)
	if !result.OK() {
		if a.errorHandler != nil {
			a.errorHandler(ex.Writer, r, &RejectionError{Result: result})
			return pipeline.Terminate
		}
		return ex.Fail(result.Outcome.StatusCode())
	}

	ex.Request = r.WithContext(core.SetClaims(r.Context(), result.Claims))
	ex.SetAudit(result.Audit)
	return pipeline.Forward
}

// Handler wraps next so that it only runs for authenticated requests. This
// is for plain net/http use outside a pipeline.Chain.
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled {
			next.ServeHTTP(w, r)
			return
		}
		ex := pipeline.NewExchange(w, r, a.catalog)
		if a.Process(ex) == pipeline.Terminate {
			return
		}
		next.ServeHTTP(w, ex.Request)
	})
}

// Catalog returns the catalog rejections are formatted with outside a chain.
func (a *Authenticator) Catalog() *status.Catalog {
	return a.catalog
}

// GetAudit returns the audit context of an authenticated request.
func GetAudit(ctx context.Context) (*core.AuditContext, error) {
	return core.GetAudit(ctx)
}

// GetClaims returns the verified claims of an authenticated request.
//
// Example:
//
//	claims, err := gatekeeper.GetClaims(r.Context())
//	if err != nil {
//	    http.Error(w, "failed to get claims", http.StatusInternalServerError)
//	    return
//	}
//	fmt.Println(claims.ClientID)
func GetClaims(ctx context.Context) (*core.Claims, error) {
	return core.GetClaims(ctx)
}

// HasClaims checks if claims exist in the context.
func HasClaims(ctx context.Context) bool {
	return core.HasClaims(ctx)
}
