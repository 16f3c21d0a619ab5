// Package gatekeepergin adapts the gatekeeper Authenticator to gin.
package gatekeepergin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lightmesh/gatekeeper"
	"github.com/lightmesh/gatekeeper/core"
)

// Keys the audit context and the claims are stored under in the gin context.
const (
	DefaultAuditKey  = "gatekeeper.audit"
	DefaultClaimsKey = "gatekeeper.claims"
)

var (
	ErrMissingAudit = errors.New("no audit context found in gin context")
	ErrInvalidAudit = errors.New("invalid audit context type")
)

type config struct {
	auditKey  string
	claimsKey string
}

// New returns a gin middleware running auth. Rejected requests are answered
// by the Authenticator and the gin chain is aborted.
func New(auth *gatekeeper.Authenticator, opts ...Option) gin.HandlerFunc {
	cfg := &config{
		auditKey:  DefaultAuditKey,
		claimsKey: DefaultClaimsKey,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		reached := false
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			reached = true
			c.Request = r

			if audit, err := core.GetAudit(r.Context()); err == nil {
				c.Set(cfg.auditKey, audit)
			}
			if claims, err := core.GetClaims(r.Context()); err == nil {
				c.Set(cfg.claimsKey, claims)
			}

			c.Next()
		})

		auth.Handler(next).ServeHTTP(c.Writer, c.Request)

		if !reached {
			c.Abort()
		}
	}
}

// GetAudit returns the audit context stored by the middleware. An empty key
// means DefaultAuditKey.
func GetAudit(c *gin.Context, key string) (*core.AuditContext, error) {
	if key == "" {
		key = DefaultAuditKey
	}
	value, exists := c.Get(key)
	if !exists {
		return nil, ErrMissingAudit
	}
	audit, ok := value.(*core.AuditContext)
	if !ok {
		return nil, ErrInvalidAudit
	}
	return audit, nil
}
