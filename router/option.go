package router

import (
	"errors"
	"fmt"

	"github.com/lightmesh/gatekeeper/core"
	"github.com/lightmesh/gatekeeper/schema"
	"github.com/lightmesh/gatekeeper/status"
)

// Option is how options for the Router are set up.
type Option func(*Router) error

// WithValidator sets the payload validator. This is a required option.
func WithValidator(v *schema.Validator) Option {
	return func(rt *Router) error {
		if v == nil {
			return errors.New("validator cannot be nil")
		}
		rt.validator = v
		return nil
	}
}

// WithHandler registers h for serviceID. Registering the same id twice is
// an error.
func WithHandler(serviceID string, h Handler) Option {
	return func(rt *Router) error {
		if serviceID == "" {
			return errors.New("service id cannot be empty")
		}
		if h == nil {
			return fmt.Errorf("handler for %s cannot be nil", serviceID)
		}
		if _, dup := rt.handlers[serviceID]; dup {
			return fmt.Errorf("handler for %s is already registered", serviceID)
		}
		rt.handlers[serviceID] = h
		return nil
	}
}

// WithCatalog sets the status catalog responses are formatted with.
func WithCatalog(catalog *status.Catalog) Option {
	return func(rt *Router) error {
		if catalog == nil {
			return errors.New("catalog cannot be nil")
		}
		rt.catalog = catalog
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger core.Logger) Option {
	return func(rt *Router) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		rt.logger = logger
		return nil
	}
}

// WithMaxBodyBytes caps the decoded request body.
func WithMaxBodyBytes(n int64) Option {
	return func(rt *Router) error {
		if n <= 0 {
			return errors.New("max body bytes must be positive")
		}
		rt.maxBodyBytes = n
		return nil
	}
}
