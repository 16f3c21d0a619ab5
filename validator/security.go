package validator

import (
	"errors"
	"strings"
)

var (
	// ErrTokenTooLarge is returned for tokens over maxTokenSize bytes.
	ErrTokenTooLarge = errors.New("token exceeds maximum size")

	// ErrNotCompactJWS is returned when the token is not three dot-separated
	// segments.
	ErrNotCompactJWS = errors.New("token is not a compact JWS")
)

// maxTokenSize caps the input handed to the parser. Gateway tokens are a few
// KB at most.
const maxTokenSize = 64 * 1024

// validateTokenFormat rejects inputs that cannot be a compact JWS before
// any decoding work happens.
func validateTokenFormat(tokenString string) error {
	if len(tokenString) == 0 {
		return errors.New("token is empty")
	}
	if len(tokenString) > maxTokenSize {
		return ErrTokenTooLarge
	}
	if strings.Count(tokenString, ".") != 2 {
		return ErrNotCompactJWS
	}
	return nil
}
