package gatekeepergin

// Option defines a functional option for configuring the middleware
type Option func(*config)

// WithAuditKey sets the gin context key of the audit context.
func WithAuditKey(key string) Option {
	return func(cfg *config) {
		if key != "" {
			cfg.auditKey = key
		}
	}
}

// WithClaimsKey sets the gin context key of the verified claims.
func WithClaimsKey(key string) Option {
	return func(cfg *config) {
		if key != "" {
			cfg.claimsKey = key
		}
	}
}
