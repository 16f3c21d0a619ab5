// Package gatekeeperecho adapts the gatekeeper Authenticator to echo.
package gatekeeperecho

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lightmesh/gatekeeper"
	"github.com/lightmesh/gatekeeper/core"
)

// DefaultAuditKey is the echo context key of the audit context.
var DefaultAuditKey = "gatekeeper.audit"

type config struct {
	auditKey string
}

// New returns an echo middleware running auth. Rejected requests are
// answered by the Authenticator and next is not called.
func New(auth *gatekeeper.Authenticator, opts ...Option) echo.MiddlewareFunc {
	cfg := &config{auditKey: DefaultAuditKey}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var nextErr error
			handler := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				if audit, err := core.GetAudit(r.Context()); err == nil {
					c.Set(cfg.auditKey, audit)
				}
				nextErr = next(c)
			})

			auth.Handler(handler).ServeHTTP(c.Response(), c.Request())
			return nextErr
		}
	}
}

// GetAudit extracts the audit context from the echo context.
func GetAudit(c echo.Context, key string) (*core.AuditContext, bool) {
	if key == "" {
		key = DefaultAuditKey
	}
	audit, ok := c.Get(key).(*core.AuditContext)
	return audit, ok
}
