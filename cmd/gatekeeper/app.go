package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lightmesh/gatekeeper"
	"github.com/lightmesh/gatekeeper/config"
	"github.com/lightmesh/gatekeeper/core"
	"github.com/lightmesh/gatekeeper/jwks"
	"github.com/lightmesh/gatekeeper/pipeline"
	"github.com/lightmesh/gatekeeper/router"
	"github.com/lightmesh/gatekeeper/schema"
	"github.com/lightmesh/gatekeeper/status"
	"github.com/lightmesh/gatekeeper/validator"
)

type application struct {
	handler  http.Handler
	services int
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(cfg.Level())

	if cfg.Log.Path != "" {
		logger.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Log.Path,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		}))
	}
	return logger
}

// newApplication wires the catalog, the schema registry, the authenticator
// and the router into one handler. /health and /metrics bypass the chain.
func newApplication(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*application, error) {
	log := gatekeeper.NewLogrusLogger(logger)

	catalog := status.Default()
	if cfg.StatusFile != "" {
		var err error
		if catalog, err = status.LoadFile(cfg.StatusFile); err != nil {
			return nil, err
		}
	}

	registry, err := loadRegistry(cfg.SchemaFile)
	if err != nil {
		return nil, err
	}

	payloadValidator, err := schema.NewValidator(registry, schema.WithCatalog(catalog), schema.WithLogger(log))
	if err != nil {
		return nil, err
	}

	routerOpts := []router.Option{
		router.WithValidator(payloadValidator),
		router.WithCatalog(catalog),
		router.WithLogger(log),
	}
	for _, serviceID := range registry.Services() {
		routerOpts = append(routerOpts, router.WithHandler(serviceID, echoHandler(serviceID)))
	}
	rpcRouter, err := router.New(routerOpts...)
	if err != nil {
		return nil, err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := gatekeeper.NewMetrics(promRegistry)
	if err != nil {
		return nil, err
	}

	verifier, err := buildVerifier(ctx, cfg)
	if err != nil {
		return nil, err
	}

	auth, err := gatekeeper.New(
		gatekeeper.WithVerifier(verifier),
		gatekeeper.WithEnabled(cfg.EnableVerifyJwt),
		gatekeeper.WithSkipPathPrefixes(cfg.SkipPathPrefixes...),
		gatekeeper.WithCatalog(catalog),
		gatekeeper.WithLogger(log),
		gatekeeper.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}

	builder, err := pipeline.NewBuilder(pipeline.WithCatalog(catalog), pipeline.WithLogger(log))
	if err != nil {
		return nil, err
	}
	chain, err := builder.Use(pipeline.NewCorrelationStage(), auth).Build(rpcRouter)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	mux.Handle("/", chain)

	return &application{handler: mux, services: rpcRouter.Services()}, nil
}

func loadRegistry(path string) (*schema.Registry, error) {
	if path == "" {
		return schema.NewRegistry(nil)
	}
	return schema.LoadFile(path)
}

// buildVerifier picks the key source: configured secrets or certificates
// first, then a remote JWKS. With verification disabled no trust material
// is required and the returned verifier rejects everything.
func buildVerifier(ctx context.Context, cfg *config.Config) (core.Verifier, error) {
	if !cfg.EnableVerifyJwt {
		return core.VerifierFunc(func(context.Context, string) (*core.Claims, error) {
			return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "verification is disabled", nil)
		}), nil
	}

	keyFunc, err := buildKeyFunc(ctx, cfg.JWT)
	if err != nil {
		return nil, err
	}

	opts := []validator.Option{
		validator.WithKeyFunc(keyFunc),
		validator.WithAlgorithm(validator.SignatureAlgorithm(cfg.JWT.Algorithm)),
		validator.WithAllowedClockSkew(cfg.JWT.ClockSkew()),
	}
	if cfg.JWT.Issuer != "" {
		opts = append(opts, validator.WithIssuer(cfg.JWT.Issuer))
	}
	if len(cfg.JWT.Audience) > 0 {
		opts = append(opts, validator.WithAudiences(cfg.JWT.Audience))
	}
	return validator.New(opts...)
}

func buildKeyFunc(ctx context.Context, cfg config.JWT) (validator.KeyFunc, error) {
	alg := jwa.SignatureAlgorithm(cfg.Algorithm)

	var static []jwks.StaticOption
	if cfg.Symmetric() {
		for _, kid := range sortedKeys(cfg.Secrets) {
			static = append(static, jwks.WithSecret(kid, []byte(cfg.Secrets[kid]), alg))
		}
	} else {
		for _, kid := range sortedKeys(cfg.Certificates) {
			static = append(static, jwks.WithPEM(kid, []byte(cfg.Certificates[kid]), alg))
		}
	}
	if len(static) > 0 {
		provider, err := jwks.NewStaticProvider(static...)
		if err != nil {
			return nil, err
		}
		return provider.KeyFunc, nil
	}

	opts := []any{jwks.WithCacheTTL(cfg.JWKSRefreshInterval)}
	if cfg.JWKSURI != "" {
		u, err := url.Parse(cfg.JWKSURI)
		if err != nil {
			return nil, fmt.Errorf("invalid jwksUri: %w", err)
		}
		opts = append(opts, jwks.WithCustomJWKSURI(u))
	}
	if cfg.Issuer != "" {
		u, err := url.Parse(cfg.Issuer)
		if err != nil {
			return nil, fmt.Errorf("invalid issuer: %w", err)
		}
		opts = append(opts, jwks.WithIssuerURL(u))
	}
	provider, err := jwks.NewCachingProvider(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return provider.KeyFunc, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type echoResponse struct {
	Service  string          `json:"service"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Scope    string          `json:"scope,omitempty"`
	Data     json.RawMessage `json:"data"`
}

// echoHandler answers with the validated data and the caller identity.
func echoHandler(serviceID string) router.Handler {
	return router.HandlerFunc(func(ctx context.Context, data json.RawMessage) ([]byte, error) {
		resp := echoResponse{Service: serviceID, Data: data}
		if audit, err := core.GetAudit(ctx); err == nil {
			resp.ClientID = audit.ClientID
			resp.UserID = audit.UserID
			resp.Scope = audit.Scope
		}
		return json.Marshal(resp)
	})
}
