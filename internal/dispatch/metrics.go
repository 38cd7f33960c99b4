package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// metrics are the dispatcher's Prometheus instruments, grounded on the
// teacher's github.com/prometheus/client_golang usage throughout
// pkg/mcp/infrastructure/observability/metrics. They are created once per
// Dispatcher and registered on an unexported registry so multiple
// Dispatchers (e.g. in tests) never collide on the default registerer.
type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeHandlers  prometheus.Gauge
	registry        *prometheus.Registry
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	m := &metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcp_requests_total",
			Help: "Total JSON-RPC requests processed, by method and outcome.",
		}, []string{"method", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mcp_request_duration_seconds",
			Help:    "JSON-RPC request handling latency, by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		activeHandlers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mcp_active_handlers",
			Help: "Number of handlers currently executing.",
		}),
		registry: reg,
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.activeHandlers)
	return m
}

// Registry exposes the Prometheus registry for an HTTP /metrics endpoint,
// if the embedding binary chooses to serve one.
func (m *metrics) Registry() *prometheus.Registry { return m.registry }

// tracer is a package-level, lazily-resolved OpenTelemetry tracer. No
// exporter is configured by default (spec carries no tracing backend
// requirement) but the call surface stays real and live, matching the
// teacher's pattern of tracing being structurally present but optional
// (pkg/mcp/infrastructure/observability/tracing_config.go).
var tracer trace.Tracer = otel.Tracer("flymcp/dispatch")
