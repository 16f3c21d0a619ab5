package core

import "context"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	auditKey contextKey = iota
	claimsKey
)

// SetAudit stores the audit context in ctx. There is a single audit slot;
// a later write replaces an earlier one.
func SetAudit(ctx context.Context, audit *AuditContext) context.Context {
	return context.WithValue(ctx, auditKey, audit)
}

// GetAudit retrieves the audit context stored by SetAudit.
func GetAudit(ctx context.Context) (*AuditContext, error) {
	audit, ok := ctx.Value(auditKey).(*AuditContext)
	if !ok || audit == nil {
		return nil, ErrAuditNotFound
	}
	return audit, nil
}

// SetClaims stores verified claims in ctx.
func SetClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaims retrieves the claims stored by SetClaims.
func GetClaims(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	if !ok || claims == nil {
		return nil, ErrClaimsNotFound
	}
	return claims, nil
}

// HasClaims checks if claims exist in the context without retrieving them.
func HasClaims(ctx context.Context) bool {
	_, err := GetClaims(ctx)
	return err == nil
}
