package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics the gateway exposes. There is no
// org/team/cost dimension: this gateway has no billing or multi-tenancy.
type Metrics struct {
	RequestTotal    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	StreamChunks    *prometheus.CounterVec
	RetryTotal      *prometheus.CounterVec
	TokensTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_request_total",
			Help: "Total number of chat completion requests processed, by dialect, provider, and outcome.",
		}, []string{"dialect", "provider", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_ms",
			Help:    "End-to-end request duration in milliseconds, including provider latency.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"provider"}),

		StreamChunks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_stream_chunks_total",
			Help: "Total canonical chunks emitted on streaming responses.",
		}, []string{"provider"}),

		RetryTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_retry_total",
			Help: "Total retry attempts against a provider, by outcome.",
		}, []string{"provider", "outcome"}),

		TokensTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_tokens_total",
			Help: "Total tokens reported by providers, by direction.",
		}, []string{"model", "direction"}),
	}
}

// RecordRequest records metrics for one completed (non-streaming or fully
// drained streaming) request.
func (m *Metrics) RecordRequest(labels RequestLabels) {
	m.RequestTotal.WithLabelValues(labels.Dialect, labels.Provider, labels.Status).Inc()
	m.RequestDuration.WithLabelValues(labels.Provider).Observe(labels.DurationMs)

	if labels.PromptTokens > 0 {
		m.TokensTotal.WithLabelValues(labels.Model, "prompt").Add(float64(labels.PromptTokens))
	}
	if labels.CompletionTokens > 0 {
		m.TokensTotal.WithLabelValues(labels.Model, "completion").Add(float64(labels.CompletionTokens))
	}
}

// RecordRetry records one retry attempt's outcome ("retried" or "exhausted").
func (m *Metrics) RecordRetry(provider, outcome string) {
	m.RetryTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordStreamChunk records one canonical chunk emitted during streaming.
func (m *Metrics) RecordStreamChunk(provider string) {
	m.StreamChunks.WithLabelValues(provider).Inc()
}

// RequestLabels holds the label values and observations for one request.
type RequestLabels struct {
	Dialect          string
	Model            string
	Provider         string
	Status           string
	DurationMs       float64
	PromptTokens     int
	CompletionTokens int
}
