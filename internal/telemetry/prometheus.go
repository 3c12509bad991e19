package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements port.Instrumentation on a private registry, so tests
// can create as many as they like without colliding on the default one.
type Prometheus struct {
	registry *prometheus.Registry

	generationSeconds prometheus.Histogram
	querySeconds      prometheus.Histogram
	toolSeconds       prometheus.Histogram
	answersTotal      *prometheus.CounterVec

	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		generationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "askdb_generation_duration_seconds",
			Help:    "Language model call latency.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		querySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "askdb_query_duration_seconds",
			Help:    "SQL execution latency.",
			Buckets: prometheus.DefBuckets,
		}),
		toolSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "askdb_mcp_tool_duration_seconds",
			Help:    "MCP tool call latency.",
			Buckets: prometheus.DefBuckets,
		}),
		answersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "askdb_answers_total",
				Help: "Questions answered, by outcome (success or the failing stage).",
			},
			[]string{"outcome"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "askdb_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "askdb_http_request_duration_seconds",
				Help:    "HTTP request latency by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.generationSeconds,
		p.querySeconds,
		p.toolSeconds,
		p.answersTotal,
		p.httpRequestsTotal,
		p.httpRequestDurationSeconds,
	)
	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

func (p *Prometheus) RecordGenerationDuration(_ context.Context, ms float64) {
	p.generationSeconds.Observe(ms / 1000)
}

func (p *Prometheus) RecordQueryDuration(_ context.Context, ms float64) {
	p.querySeconds.Observe(ms / 1000)
}

func (p *Prometheus) IncrementAnswers(_ context.Context, outcome string) {
	p.answersTotal.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) RecordToolDuration(_ context.Context, ms float64) {
	p.toolSeconds.Observe(ms / 1000)
}

// ObserveHTTPRequest records one served request. path should be the route
// pattern, not the raw URL, to keep label cardinality bounded.
func (p *Prometheus) ObserveHTTPRequest(method, path string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	p.httpRequestsTotal.WithLabelValues(method, path, code).Inc()
	p.httpRequestDurationSeconds.WithLabelValues(method, path, code).Observe(elapsed.Seconds())
}
