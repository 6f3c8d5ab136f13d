// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Attempt outcomes.
const (
	outcomeConnected = "connected"
	outcomeFailed    = "failed"
)

// Metrics records upstream forwarding.
type Metrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the gateway collectors and registers them with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "popgate",
			Name:      "upstream_attempts_total",
			Help:      "Upstream connection attempts by route family and outcome.",
		}, []string{"route", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "popgate",
			Name:      "upstream_duration_seconds",
			Help:      "Time spent forwarding one request, all candidates included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	registerer.MustRegister(metrics.attempts, metrics.duration)
	return metrics
}

func (m *Metrics) attempt(family Family, outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(string(family), outcome).Inc()
}

func (m *Metrics) observe(family Family, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(string(family)).Observe(elapsed.Seconds())
}
