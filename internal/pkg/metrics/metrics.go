package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "freelancedesk"
	subsystem = "billing"
)

// Collector holds the billing metrics on a dedicated registry.
type Collector struct {
	registry *prometheus.Registry

	WebhookEvents   *prometheus.CounterVec
	WebhookDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry. Go runtime and
// process collectors are registered alongside the billing metrics.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhook_events_total",
			Help:      "Total number of billing webhook deliveries by event type and outcome",
		}, []string{"type", "outcome"}),
		WebhookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhook_duration_seconds",
			Help:      "Duration of billing webhook processing in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
	}

	reg.MustRegister(c.WebhookEvents)
	reg.MustRegister(c.WebhookDuration)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return c
}

// RecordWebhook counts one delivery and observes its processing time.
func (c *Collector) RecordWebhook(eventType, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	c.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
	c.WebhookDuration.WithLabelValues(eventType).Observe(d.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler that serves the collected metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
