package core

import "time"

// Claim names read from verified tokens.
const (
	ClaimClientID = "client_id"
	ClaimUserID   = "user_id"
	ClaimScope    = "scope"
)

// Claims are the assertions of a verified token. They are only ever produced
// by a Verifier after signature and expiry checks pass.
type Claims struct {
	Issuer   string
	Subject  string
	Audience []string
	Expiry   time.Time

	// ClientID is always present on gateway tokens.
	ClientID string
	// UserID is empty for client-credentials tokens.
	UserID string
	// Scopes holds the raw scope entries as they appeared in the token.
	Scopes []string

	// Extra holds every private claim, including the ones above.
	Extra map[string]any
}
