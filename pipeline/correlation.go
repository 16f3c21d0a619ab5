package pipeline

import (
	"context"

	"github.com/google/uuid"
)

// CorrelationHeader carries the id that ties together the log lines of one
// request across services.
const CorrelationHeader = "X-Correlation-Id"

type correlationKey struct{}

// CorrelationID returns the id attached by CorrelationStage.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// CorrelationStage keeps an incoming X-Correlation-Id or generates one, and
// echoes it on the response.
type CorrelationStage struct {
	generate func() string
}

// NewCorrelationStage returns a stage generating random UUIDs.
func NewCorrelationStage() *CorrelationStage {
	return &CorrelationStage{generate: uuid.NewString}
}

// Process implements Stage. It always forwards.
func (s *CorrelationStage) Process(ex *Exchange) Verdict {
	id := ex.Request.Header.Get(CorrelationHeader)
	if id == "" {
		id = s.generate()
		ex.Request.Header.Set(CorrelationHeader, id)
	}
	ex.Writer.Header().Set(CorrelationHeader, id)
	ex.Request = ex.Request.WithContext(context.WithValue(ex.Request.Context(), correlationKey{}, id))
	return Forward
}
