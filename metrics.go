package forwarder

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const outcomeForwarded = "forwarded"

type metrics struct {
	requests *prometheus.CounterVec
	duration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forwarder_requests_total",
				Help: "Total number of inbound requests by outcome: forwarded, or the failure kind that passed them through",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "forwarder_upstream_duration_seconds",
				Help:    "Time from sending the upstream request to receiving its response headers",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	if reg != nil {
		m.requests = register(reg, m.requests)
		m.duration = register(reg, m.duration)
	}

	return m
}

// register adds c to reg. Forwarders sharing a registerer share the
// collector registered first.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}

	return c
}
