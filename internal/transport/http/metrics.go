package http

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	EstimationDuration *prometheus.HistogramVec
	EstimationErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nominate",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		EstimationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nominate",
			Name:      "estimation_duration_seconds",
			Help:      "Wall time of estimation runs by kind.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"kind"}),
		EstimationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nominate",
			Name:      "estimation_errors_total",
			Help:      "Estimation failures by error kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.RequestsTotal, m.EstimationDuration, m.EstimationErrors)
	return m
}
