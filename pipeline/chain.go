package pipeline

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/lightmesh/gatekeeper/core"
	"github.com/lightmesh/gatekeeper/status"
)

// Option is how options for the Builder are set up.
type Option func(*Builder) error

// WithCatalog sets the catalog used for responses written by the chain.
func WithCatalog(catalog *status.Catalog) Option {
	return func(b *Builder) error {
		if catalog == nil {
			return errors.New("catalog cannot be nil")
		}
		b.catalog = catalog
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger core.Logger) Option {
	return func(b *Builder) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		b.logger = logger
		return nil
	}
}

// Builder collects stages in the order they run.
type Builder struct {
	stages  []Stage
	catalog *status.Catalog
	logger  core.Logger
}

// NewBuilder returns an empty Builder.
func NewBuilder(opts ...Option) (*Builder, error) {
	b := &Builder{
		catalog: status.Default(),
		logger:  core.NopLogger(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return b, nil
}

// Use appends stages. Nil stages are ignored.
func (b *Builder) Use(stages ...Stage) *Builder {
	for _, s := range stages {
		if s != nil {
			b.stages = append(b.stages, s)
		}
	}
	return b
}

// Build returns the chain ending in terminal. Stages that report
// Enabled() == false are dropped here, once, not checked per request.
func (b *Builder) Build(terminal http.Handler) (*Chain, error) {
	if terminal == nil {
		return nil, errors.New("terminal handler cannot be nil")
	}

	stages := make([]Stage, 0, len(b.stages))
	for _, s := range b.stages {
		if !enabled(s) {
			b.logger.Info("stage disabled, leaving it out of the chain", "stage", fmt.Sprintf("%T", s))
			continue
		}
		stages = append(stages, s)
	}

	return &Chain{
		stages:   stages,
		terminal: terminal,
		catalog:  b.catalog,
		logger:   b.logger,
	}, nil
}

// Chain runs its stages strictly in order and then the terminal handler.
// It is immutable and safe for concurrent use.
type Chain struct {
	stages   []Stage
	terminal http.Handler
	catalog  *status.Catalog
	logger   core.Logger
}

// Len returns the number of active stages.
func (c *Chain) Len() int {
	return len(c.stages)
}

// ServeHTTP implements http.Handler. Exactly one response is written per
// request: by the terminating stage, by the terminal handler, or by the chain
// itself when a stage panics or misbehaves.
func (c *Chain) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tw := &trackingWriter{ResponseWriter: w}
	ex := NewExchange(tw, r, c.catalog)

	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if rec == http.ErrAbortHandler {
			panic(rec)
		}
		c.logger.Error("panic while handling request", "panic", fmt.Sprint(rec), "path", r.URL.Path)
		if !tw.written {
			c.catalog.Write(tw, status.CodeRuntimeException)
		}
	}()

	for _, s := range c.stages {
		verdict := s.Process(ex)
		if verdict == Terminate {
			if !tw.written {
				c.logger.Warn("stage terminated without a response", "stage", fmt.Sprintf("%T", s))
				c.catalog.Write(tw, status.CodeRuntimeException)
			}
			return
		}
		if tw.written {
			c.logger.Warn("stage wrote a response but forwarded", "stage", fmt.Sprintf("%T", s))
			return
		}
	}

	c.terminal.ServeHTTP(tw, ex.Request)
}

// trackingWriter records whether a response has started.
type trackingWriter struct {
	http.ResponseWriter
	written bool
}

func (w *trackingWriter) WriteHeader(code int) {
	w.written = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *trackingWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *trackingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
