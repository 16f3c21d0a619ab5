package pipeline

import (
	"context"
	"net/http"

	"github.com/lightmesh/gatekeeper/core"
	"github.com/lightmesh/gatekeeper/status"
)

// Verdict is a stage's decision about the rest of the chain.
type Verdict int

const (
	// Forward passes the exchange to the next stage.
	Forward Verdict = iota
	// Terminate ends the chain. The stage has written the response.
	Terminate
)

func (v Verdict) String() string {
	if v == Terminate {
		return "terminate"
	}
	return "forward"
}

// Exchange is one in-flight request as it moves through the chain.
type Exchange struct {
	Request *http.Request
	Writer  http.ResponseWriter

	catalog *status.Catalog
	audit   *core.AuditContext
}

// NewExchange wraps a request and its writer. A nil catalog means
// status.Default().
func NewExchange(w http.ResponseWriter, r *http.Request, catalog *status.Catalog) *Exchange {
	if catalog == nil {
		catalog = status.Default()
	}
	return &Exchange{Request: r, Writer: w, catalog: catalog}
}

// Context returns the request context.
func (ex *Exchange) Context() context.Context {
	return ex.Request.Context()
}

// SetAudit fills the audit slot and mirrors it into the request context, so
// the terminal handler can read it with core.GetAudit.
func (ex *Exchange) SetAudit(audit *core.AuditContext) {
	ex.audit = audit
	ex.Request = ex.Request.WithContext(core.SetAudit(ex.Request.Context(), audit))
}

// Audit returns the audit context set by an earlier stage.
func (ex *Exchange) Audit() (*core.AuditContext, bool) {
	return ex.audit, ex.audit != nil
}

// Catalog returns the status catalog responses are formatted with.
func (ex *Exchange) Catalog() *status.Catalog {
	return ex.catalog
}

// Terminate writes st as the response and returns Terminate.
func (ex *Exchange) Terminate(st status.Status) Verdict {
	status.WriteStatus(ex.Writer, st)
	return Terminate
}

// Fail formats code through the catalog, writes it and returns Terminate.
func (ex *Exchange) Fail(code string, args ...any) Verdict {
	return ex.Terminate(ex.catalog.Format(code, args...))
}

// Stage is one step of request processing.
type Stage interface {
	Process(ex *Exchange) Verdict
}

// StageFunc adapts a function to the Stage interface.
type StageFunc func(ex *Exchange) Verdict

// Process calls f(ex).
func (f StageFunc) Process(ex *Exchange) Verdict {
	return f(ex)
}

// Toggle is implemented by stages that can be switched off by
// configuration. Disabled stages are left out when the chain is built.
type Toggle interface {
	Enabled() bool
}

func enabled(s Stage) bool {
	if t, ok := s.(Toggle); ok {
		return t.Enabled()
	}
	return true
}
