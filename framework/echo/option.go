package gatekeeperecho

// Option is a function that configures the middleware
type Option func(*config)

// WithAuditKey sets a custom context key to store the audit context
func WithAuditKey(key string) Option {
	return func(cfg *config) {
		if key != "" {
			cfg.auditKey = key
		}
	}
}
