package gatekeeper

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lightmesh/gatekeeper/core"
)

// Metric names.
const (
	RequestsTotalName   = "gatekeeper_auth_requests_total"
	DurationSecondsName = "gatekeeper_auth_duration_seconds"
)

// Metrics counts authentications by outcome and times them.
type Metrics struct {
	requests *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics registers the collectors with reg. Registering twice on the same
// registerer reuses the collectors already there. A nil reg means
// prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: RequestsTotalName,
		Help: "Token authentications by result.",
	}, []string{"result"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    DurationSecondsName,
		Help:    "Time spent authenticating a token.",
		Buckets: prometheus.DefBuckets,
	})

	m := &Metrics{}
	var err error
	if m.requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// observe is a no-op on a nil receiver so an Authenticator without metrics
// needs no special casing.
func (m *Metrics) observe(outcome core.Outcome, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome.String()).Inc()
	m.duration.Observe(d.Seconds())
}
