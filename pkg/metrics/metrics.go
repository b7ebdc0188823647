package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/huynhanx03/go-mongorepo/pkg/settings"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Collectors holds the prometheus collectors recorded by repositories.
type Collectors struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewCollectors creates repository collectors under the given namespace.
func NewCollectors(namespace string) *Collectors {
	return &Collectors{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "repository_operations_total", Help: "Number of repository operations by collection, operation and outcome."},
			[]string{"collection", "operation", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Name: "repository_operation_duration_seconds", Help: "Latency of repository operations.", Buckets: prometheus.DefBuckets},
			[]string{"collection", "operation"},
		),
	}
}

// FromSettings returns collectors for cfg, or nil when metrics are disabled.
// A nil *Collectors records nothing.
func FromSettings(cfg settings.Metrics) *Collectors {
	if !cfg.Enabled {
		return nil
	}
	return NewCollectors(cfg.Namespace)
}

// Register adds the collectors to reg.
func (c *Collectors) Register(reg prometheus.Registerer) error {
	if err := reg.Register(c.Operations); err != nil {
		return err
	}
	return reg.Register(c.Duration)
}

// Observe records one finished operation.
func (c *Collectors) Observe(collection, operation string, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	c.Operations.WithLabelValues(collection, operation, outcome).Inc()
	c.Duration.WithLabelValues(collection, operation).Observe(elapsed.Seconds())
}
