// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers counters for the HTTP surface and the real-time hub.
type Collector struct {
	httpStatus    *prometheus.CounterVec
	httpLatency   prometheus.Histogram
	authFailures  prometheus.Counter
	wsConnections prometheus.Gauge
	wsDelivered   prometheus.Counter
	wsDropped     prometheus.Counter
}

// NewCollector builds a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crewdeck_http_requests_total",
			Help: "HTTP responses by status code",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crewdeck_http_latency_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crewdeck_auth_failures_total",
			Help: "Rejected authentication attempts",
		}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crewdeck_ws_connections",
			Help: "Live WebSocket connections",
		}),
		wsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crewdeck_ws_messages_delivered_total",
			Help: "Messages delivered to WebSocket clients",
		}),
		wsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crewdeck_ws_messages_dropped_total",
			Help: "Messages dropped because a client buffer was full",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.httpLatency,
		c.authFailures,
		c.wsConnections,
		c.wsDelivered,
		c.wsDropped,
	)

	return c
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) RecordHTTPLatency(duration time.Duration) {
	c.httpLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordAuthFailure() {
	c.authFailures.Inc()
}

func (c *Collector) ConnectionOpened() {
	c.wsConnections.Inc()
}

func (c *Collector) ConnectionClosed() {
	c.wsConnections.Dec()
}

func (c *Collector) RecordDelivered(count int) {
	c.wsDelivered.Add(float64(count))
}

func (c *Collector) RecordDropped(count int) {
	c.wsDropped.Add(float64(count))
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
