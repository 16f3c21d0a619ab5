package gatekeeper

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Tracing names.
const (
	TracerName        = "github.com/lightmesh/gatekeeper"
	SpanName          = "gatekeeper.authenticate"
	ResultAttribute   = "auth.result"
	EndpointAttribute = "auth.endpoint"
)

// defaultTracer resolves through the global provider, which is a no-op until
// the application installs one.
func defaultTracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
