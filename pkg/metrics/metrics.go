// Package metrics exposes ccrelay's runtime state as Prometheus metrics:
// request throughput and latency through the dataplane, per-queue depth
// from the concurrency manager, and this process's current election role.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the metric registry and every metric ccrelay records.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	queueDepth      *prometheus.GaugeVec
	electionRole    *prometheus.GaugeVec
}

// roleValues enumerates every election.State name the role gauge tracks;
// exactly one is set to 1 at a time, the rest 0.
var roleValues = []string{"idle", "electing", "leader", "leader_active", "follower", "waiting"}

// New creates a Collector with its own registry, independent of the default
// global one, so a test can spin up any number of them without collisions.
func New() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ccrelay",
				Name:      "requests_total",
				Help:      "Total number of proxied requests by provider and status",
			},
			[]string{"provider", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ccrelay",
				Name:      "request_duration_seconds",
				Help:      "Duration of proxied requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "ccrelay",
				Name:      "queue_depth",
				Help:      "Number of tasks currently waiting in a concurrency queue",
			},
			[]string{"queue"},
		),
		electionRole: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "ccrelay",
				Name:      "election_role",
				Help:      "Whether this process currently holds the named election role (1) or not (0)",
			},
			[]string{"role"},
		),
	}

	registry.MustRegister(c.requestsTotal, c.requestDuration, c.queueDepth, c.electionRole)
	return c
}

// RecordRequest records one completed dataplane request.
func (c *Collector) RecordRequest(provider, status string, seconds float64) {
	c.requestsTotal.WithLabelValues(provider, status).Inc()
	c.requestDuration.WithLabelValues(provider).Observe(seconds)
}

// SetQueueDepth reports the current waiting count for a named queue.
func (c *Collector) SetQueueDepth(queue string, depth int) {
	c.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// SetRole marks role as this process's current election state, zeroing
// every other known role.
func (c *Collector) SetRole(role string) {
	for _, r := range roleValues {
		v := 0.0
		if r == role {
			v = 1.0
		}
		c.electionRole.WithLabelValues(r).Set(v)
	}
}

// Handler returns the HTTP handler that serves the registry in Prometheus
// exposition format, mounted at GET /ccrelay/api/metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}
