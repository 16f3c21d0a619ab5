// Package status maps the stable machine-readable error codes emitted by the
// gatekeeper to an HTTP status and a human-readable description.
//
// Every terminal response funnels through a Catalog. A code that has no entry
// is never an error: it resolves to ERR10042 carrying the unknown code, so the
// response is always well formed.
package status

import (
	"fmt"
	"net/http"
	"strings"
)

// Codes used by the gatekeeper.
const (
	CodeInvalidToken       = "ERR10000"
	CodeExpiredToken       = "ERR10001"
	CodeMissingToken       = "ERR10002"
	CodeRuntimeException   = "ERR10010"
	CodeNotDefined         = "ERR10042"
	CodeInvalidRequestBody = "ERR11000"
	CodeValidationError    = "ERR11004"
	CodeHandlerNotFound    = "ERR11200"
	CodeUnknownService     = "ERR11201"
)

// Entry is one catalog record. Description is a fmt template.
type Entry struct {
	StatusCode  int    `yaml:"statusCode" json:"statusCode"`
	Code        string `yaml:"code" json:"code"`
	Message     string `yaml:"message" json:"message"`
	Description string `yaml:"description" json:"description"`
}

// Status is a resolved catalog entry with its description formatted.
type Status struct {
	StatusCode  int
	Code        string
	Message     string
	Description string
}

// String renders the response body: "<CODE> <description>".
func (s Status) String() string {
	return s.Code + " " + s.Description
}

// notDefined is the fallback entry. It is not looked up in the catalog so
// that a catalog file lacking it cannot break the fallback path.
var notDefined = Entry{
	StatusCode:  http.StatusInternalServerError,
	Code:        CodeNotDefined,
	Message:     "ERROR_NOT_DEFINED",
	Description: "The error code %s is not defined",
}

var defaultEntries = []Entry{
	{http.StatusUnauthorized, CodeInvalidToken, "INVALID_AUTH_TOKEN", "Incorrect signature or malformed token in authorization header"},
	{http.StatusUnauthorized, CodeExpiredToken, "AUTH_TOKEN_EXPIRED", "Jwt token in authorization header expired"},
	{http.StatusUnauthorized, CodeMissingToken, "MISSING_AUTH_TOKEN", "No Authorization header or the token is not bearer type"},
	{http.StatusInternalServerError, CodeRuntimeException, "RUNTIME_EXCEPTION", "Unexpected runtime exception"},
	notDefined,
	{http.StatusBadRequest, CodeInvalidRequestBody, "INVALID_REQUEST_BODY", "Unable to parse the request body: %s"},
	{http.StatusBadRequest, CodeValidationError, "VALIDATION_ERROR", "Schema validation error %s"},
	{http.StatusNotFound, CodeHandlerNotFound, "HANDLER_NOT_FOUND", "No handler is registered for service %s"},
	{http.StatusInternalServerError, CodeUnknownService, "UNKNOWN_SERVICE", "No schema is registered for service %s"},
}

// Catalog resolves codes to statuses. It is immutable after construction and
// safe for concurrent use.
type Catalog struct {
	entries map[string]Entry
}

// Default returns a catalog holding the built-in entries.
func Default() *Catalog {
	return NewCatalog(nil)
}

// NewCatalog builds a catalog from the built-in entries overlaid with the
// given ones. Entries with an empty code are ignored.
func NewCatalog(overrides []Entry) *Catalog {
	c := &Catalog{entries: make(map[string]Entry, len(defaultEntries)+len(overrides))}
	for _, e := range defaultEntries {
		c.entries[e.Code] = e
	}
	for _, e := range overrides {
		if e.Code == "" {
			continue
		}
		c.entries[e.Code] = e
	}
	return c
}

// Lookup returns the raw entry for code.
func (c *Catalog) Lookup(code string) (Entry, bool) {
	e, ok := c.entries[code]
	if !ok || e.StatusCode == 0 {
		return Entry{}, false
	}
	return e, true
}

// Format resolves code and formats its description with args. Unknown codes
// resolve to ERR10042 with the unknown code as the argument.
func (c *Catalog) Format(code string, args ...any) Status {
	e, ok := c.Lookup(code)
	if !ok {
		e = notDefined
		if fallback, found := c.entries[CodeNotDefined]; found && fallback.StatusCode != 0 {
			e = fallback
		}
		args = []any{code}
	}
	return Status{
		StatusCode:  e.StatusCode,
		Code:        e.Code,
		Message:     e.Message,
		Description: format(e.Description, args),
	}
}

// Write formats code and writes it as a terminal plain-text response.
func (c *Catalog) Write(w http.ResponseWriter, code string, args ...any) Status {
	st := c.Format(code, args...)
	WriteStatus(w, st)
	return st
}

// WriteStatus writes st as a terminal plain-text response.
func WriteStatus(w http.ResponseWriter, st Status) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(st.StatusCode)
	_, _ = w.Write([]byte(st.String()))
}

// format applies args only when the template has verbs, so extra arguments
// never leak fmt's %!(EXTRA ...) noise into a response.
func format(tmpl string, args []any) string {
	if len(args) == 0 || !strings.Contains(tmpl, "%") {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}
