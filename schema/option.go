package schema

import (
	"errors"

	"github.com/lightmesh/gatekeeper/core"
	"github.com/lightmesh/gatekeeper/status"
)

// Option is how options for the Validator are set up.
type Option func(*Validator) error

// WithCatalog sets the status catalog Check formats its results with.
func WithCatalog(catalog *status.Catalog) Option {
	return func(v *Validator) error {
		if catalog == nil {
			return errors.New("catalog cannot be nil")
		}
		v.catalog = catalog
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger core.Logger) Option {
	return func(v *Validator) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		v.logger = logger
		return nil
	}
}

// WithEncoder replaces the encoder used to render violations into the
// ERR11004 description. It defaults to json.Marshal.
func WithEncoder(marshal func(any) ([]byte, error)) Option {
	return func(v *Validator) error {
		if marshal == nil {
			return errors.New("encoder cannot be nil")
		}
		v.marshal = marshal
		return nil
	}
}
