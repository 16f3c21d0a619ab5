package core

import "errors"

// Option is a function that configures the Authenticator.
// Options return errors to enable validation during construction.
type Option func(*Authenticator) error

// New creates a new Authenticator with the provided options.
//
// The Authenticator must be configured with a Verifier using WithVerifier.
//
// Example:
//
//	auth, err := core.New(
//	    core.WithVerifier(v),
//	    core.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
func New(opts ...Option) (*Authenticator, error) {
	a := &Authenticator{
		logger: nopLogger{},
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	if a.verifier == nil {
		return nil, NewValidationError(
			ErrorCodeConfigInvalid,
			"verifier is required but not set (use WithVerifier option)",
			nil,
		)
	}

	return a, nil
}

// WithVerifier sets the verification primitive. This is a required option.
func WithVerifier(verifier Verifier) Option {
	return func(a *Authenticator) error {
		if verifier == nil {
			return errors.New("verifier cannot be nil")
		}
		a.verifier = verifier
		return nil
	}
}

// WithLogger sets an optional logger.
//
// Only invalid tokens are logged at error level; missing and expired tokens
// are expected client conditions and are logged at debug level.
func WithLogger(logger Logger) Option {
	return func(a *Authenticator) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		a.logger = logger
		return nil
	}
}
