package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lightmesh/gatekeeper/core"
	"github.com/lightmesh/gatekeeper/schema"
	"github.com/lightmesh/gatekeeper/status"
)

// DefaultMaxBodyBytes caps the request body the router will decode.
const DefaultMaxBodyBytes = 1 << 20

// Envelope is the JSON body of every RPC request.
type Envelope struct {
	Host    string          `json:"host"`
	Service string          `json:"service"`
	Action  string          `json:"action"`
	Version string          `json:"version"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ServiceID is host/service/action/version, the key schemas and handlers
// are registered under.
func (e Envelope) ServiceID() string {
	return e.Host + "/" + e.Service + "/" + e.Action + "/" + e.Version
}

func (e Envelope) validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"host", e.Host},
		{"service", e.Service},
		{"action", e.Action},
		{"version", e.Version},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Handler is a business handler for one service id. data is the validated
// data member of the envelope. The audit context of the caller is available
// through core.GetAudit(ctx).
//
// A returned *status.Error selects the response status; any other error is
// reported as ERR10010.
type Handler interface {
	Handle(ctx context.Context, data json.RawMessage) ([]byte, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, data json.RawMessage) ([]byte, error)

// Handle calls f(ctx, data).
func (f HandlerFunc) Handle(ctx context.Context, data json.RawMessage) ([]byte, error) {
	return f(ctx, data)
}

// Router is the terminal handler of the pipeline: it decodes the envelope,
// validates the payload against the service schema and dispatches.
// Its handler table is fixed at construction.
type Router struct {
	handlers     map[string]Handler
	validator    *schema.Validator
	catalog      *status.Catalog
	logger       core.Logger
	maxBodyBytes int64
}

// New builds a Router. WithValidator is required.
func New(opts ...Option) (*Router, error) {
	rt := &Router{
		handlers:     make(map[string]Handler),
		catalog:      status.Default(),
		logger:       core.NopLogger(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}

	for _, opt := range opts {
		if err := opt(rt); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if rt.validator == nil {
		return nil, errors.New("payload validator is required (use WithValidator)")
	}

	return rt, nil
}

// Services returns the number of registered handlers.
func (rt *Router) Services() int {
	return len(rt.handlers)
}

// ServeHTTP implements http.Handler.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	env, err := rt.decode(w, r)
	if err != nil {
		rt.fail(w, r, status.CodeInvalidRequestBody, err.Error())
		return
	}

	serviceID := env.ServiceID()
	handler, ok := rt.handlers[serviceID]
	if !ok {
		rt.fail(w, r, status.CodeHandlerNotFound, serviceID)
		return
	}

	data := env.Data
	if len(data) == 0 {
		data = json.RawMessage("null")
	}

	if st := rt.validator.Check(serviceID, data); st != nil {
		status.WriteStatus(w, *st)
		return
	}

	body, err := handler.Handle(r.Context(), data)
	if err != nil {
		if code, args, ok := status.CodeOf(err); ok {
			rt.logger.Error("handler returned a status", "service_id", serviceID, "code", code, "error", err)
			rt.fail(w, r, code, args...)
			return
		}
		rt.logger.Error("handler failed", "service_id", serviceID, "error", err)
		rt.fail(w, r, status.CodeRuntimeException)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (rt *Router) decode(w http.ResponseWriter, r *http.Request) (Envelope, error) {
	var env Envelope
	if r.Body == nil || r.Body == http.NoBody {
		return env, errors.New("empty body")
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, rt.maxBodyBytes))
	if err := dec.Decode(&env); err != nil {
		if errors.Is(err, io.EOF) {
			return env, errors.New("empty body")
		}
		return env, err
	}
	if err := env.validate(); err != nil {
		return env, err
	}
	return env, nil
}

func (rt *Router) fail(w http.ResponseWriter, r *http.Request, code string, args ...any) {
	st := rt.catalog.Write(w, code, args...)
	rt.logger.Debug("request rejected by router", "path", r.URL.Path, "status", st.String())
}
