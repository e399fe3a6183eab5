// Package metrics exposes Prometheus counters for the engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector is what the engine records into.
type MetricsCollector interface {
	RecordStreamEvent(kind string)
	RecordLoad(category string, took time.Duration, err error)
	RecordMutation(op string, err error)
	RecordReconnect()
	SetCategorySize(category string, n int)
}

type Collector struct {
	streamEvents *prometheus.CounterVec
	loads        *prometheus.CounterVec
	loadLatency  *prometheus.HistogramVec
	mutations    *prometheus.CounterVec
	reconnects   prometheus.Counter
	categorySize *prometheus.GaugeVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		streamEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thrive_stream_events_total",
			Help: "Streaming events received, by kind.",
		}, []string{"kind"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thrive_timeline_loads_total",
			Help: "Bulk timeline loads, by category and outcome.",
		}, []string{"category", "outcome"}),
		loadLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "thrive_timeline_load_seconds",
			Help:    "Bulk timeline load latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"category"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thrive_mutations_total",
			Help: "User actions sent to the server, by operation and outcome.",
		}, []string{"op", "outcome"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thrive_stream_reconnects_total",
			Help: "Stream reconnect attempts.",
		}),
		categorySize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "thrive_timeline_items",
			Help: "Items currently held per category.",
		}, []string{"category"}),
	}

	reg.MustRegister(
		c.streamEvents,
		c.loads,
		c.loadLatency,
		c.mutations,
		c.reconnects,
		c.categorySize,
	)

	return c
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (c *Collector) RecordStreamEvent(kind string) {
	c.streamEvents.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordLoad(category string, took time.Duration, err error) {
	c.loads.WithLabelValues(category, outcome(err)).Inc()
	c.loadLatency.WithLabelValues(category).Observe(took.Seconds())
}

func (c *Collector) RecordMutation(op string, err error) {
	c.mutations.WithLabelValues(op, outcome(err)).Inc()
}

func (c *Collector) RecordReconnect() {
	c.reconnects.Inc()
}

func (c *Collector) SetCategorySize(category string, n int) {
	c.categorySize.WithLabelValues(category).Set(float64(n))
}

// Handler serves the gathered metrics in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordStreamEvent(string) {}

func (Nop) RecordLoad(string, time.Duration, error) {}

func (Nop) RecordMutation(string, error) {}

func (Nop) RecordReconnect() {}

func (Nop) SetCategorySize(string, int) {}
