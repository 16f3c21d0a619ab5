package core

import (
	"strings"
	"unicode"
)

// AuditContext is the per-request identity record attached after a token is
// verified. It is built once and must not be modified after attachment.
type AuditContext struct {
	Endpoint string `json:"endpoint"`
	ClientID string `json:"clientId"`
	UserID   string `json:"userId,omitempty"`
	// Scope is whitespace free; the downstream scope matcher compares
	// comma-separated tokens.
	Scope string `json:"scope"`
}

// NewAuditContext derives the audit record for endpoint from verified claims.
func NewAuditContext(endpoint string, claims *Claims) *AuditContext {
	a := &AuditContext{Endpoint: endpoint}
	if claims == nil {
		return a
	}
	a.ClientID = claims.ClientID
	a.UserID = claims.UserID
	a.Scope = NormalizeScope(claims.Scopes)
	return a
}

// NormalizeScope strips all whitespace from every scope entry, drops entries
// left empty and joins the rest with commas.
func NormalizeScope(scopes []string) string {
	normalized := make([]string, 0, len(scopes))
	for _, s := range scopes {
		s = stripSpace(s)
		if s == "" {
			continue
		}
		normalized = append(normalized, s)
	}
	return strings.Join(normalized, ",")
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
