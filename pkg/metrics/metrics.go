// Package metrics exports gateway connection metrics to Prometheus.
//
// Metrics collected (with the default "vgate" namespace and "gateway"
// subsystem):
//   - vgate_gateway_dispatch_events_total: Counter of dispatches by event name
//   - vgate_gateway_heartbeats_sent_total: Counter of heartbeats sent
//   - vgate_gateway_heartbeat_latency_seconds: Histogram of heartbeat round trips
//   - vgate_gateway_reconnects_total: Counter of scheduled reconnects
//   - vgate_gateway_closes_total: Counter of connection closures by close code
//   - vgate_gateway_decode_errors_total: Counter of dropped malformed frames
//   - vgate_gateway_connection_state: Gauge set to 1 for the current state
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	m := gateway.New(gateway.DefaultConfig().
//	    WithRecorder(metrics.New(metrics.WithRegistry(reg))))
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/vgate/pkg/gateway"
	"github.com/vango-dev/vgate/pkg/protocol"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "vgate").
	Namespace string

	// Subsystem is the metrics subsystem (default: "gateway").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for heartbeat latency.
	// Default: 10ms to ~10s, exponential.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the latency histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "vgate",
		Subsystem: "gateway",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		Registry:  prometheus.DefaultRegisterer,
	}
}

// states lists every value the connection_state gauge can take.
var states = []gateway.State{
	gateway.StateIdle,
	gateway.StateConnecting,
	gateway.StateAwaitingHello,
	gateway.StateIdentifying,
	gateway.StateResuming,
	gateway.StateReady,
	gateway.StateReconnecting,
	gateway.StateClosed,
}

// Collector implements gateway.Recorder on top of Prometheus metrics.
type Collector struct {
	dispatches       *prometheus.CounterVec
	heartbeats       prometheus.Counter
	heartbeatLatency prometheus.Histogram
	reconnects       prometheus.Counter
	closes           *prometheus.CounterVec
	decodeErrors     prometheus.Counter
	state            *prometheus.GaugeVec

	mu      sync.Mutex
	current string
}

var _ gateway.Recorder = (*Collector)(nil)

// New creates a Collector and registers its metrics.
// It panics if registration fails, like promauto.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	c := &Collector{
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_events_total",
			Help:        "Total number of dispatch events received",
			ConstLabels: config.ConstLabels,
		}, []string{"event"}),

		heartbeats: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "heartbeats_sent_total",
			Help:        "Total number of heartbeats sent",
			ConstLabels: config.ConstLabels,
		}),

		heartbeatLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "heartbeat_latency_seconds",
			Help:        "Heartbeat round trip in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reconnects_total",
			Help:        "Total number of scheduled reconnect attempts",
			ConstLabels: config.ConstLabels,
		}),

		closes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "closes_total",
			Help:        "Total number of connection closures by close code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),

		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "decode_errors_total",
			Help:        "Total number of malformed frames dropped",
			ConstLabels: config.ConstLabels,
		}),

		state: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connection_state",
			Help:        "Current connection state (1 for the active state)",
			ConstLabels: config.ConstLabels,
		}, []string{"state"}),
	}

	for _, s := range states {
		c.state.WithLabelValues(s.String()).Set(0)
	}
	c.RecordState(gateway.StateIdle.String())
	return c
}

// RecordDispatch counts a dispatch event.
func (c *Collector) RecordDispatch(event string) {
	c.dispatches.WithLabelValues(event).Inc()
}

// RecordHeartbeat counts a sent heartbeat.
func (c *Collector) RecordHeartbeat() {
	c.heartbeats.Inc()
}

// RecordHeartbeatAck observes a heartbeat round trip.
func (c *Collector) RecordHeartbeatAck(latency time.Duration) {
	c.heartbeatLatency.Observe(latency.Seconds())
}

// RecordReconnect counts a scheduled reconnect.
func (c *Collector) RecordReconnect(attempt int) {
	c.reconnects.Inc()
}

// RecordClose counts a closure by code.
func (c *Collector) RecordClose(code protocol.CloseCode) {
	c.closes.WithLabelValues(strconv.Itoa(int(code))).Inc()
}

// RecordDecodeError counts a dropped frame.
func (c *Collector) RecordDecodeError() {
	c.decodeErrors.Inc()
}

// RecordState moves the state gauge to state.
func (c *Collector) RecordState(state string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != "" {
		c.state.WithLabelValues(c.current).Set(0)
	}
	c.state.WithLabelValues(state).Set(1)
	c.current = state
}
