package observability

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the metrics provider
type MetricsConfig struct {
	// Service identification
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Prometheus configuration
	MetricsPath string // HTTP path for metrics endpoint (default: /metrics)
	MetricsPort int    // Port for metrics server (default: 9090)

	// Metric options
	Namespace        string    // Prometheus namespace (default: mcp)
	Subsystem        string    // Prometheus subsystem
	HistogramBuckets []float64 // Custom histogram buckets for latency

	// Labels to add to all metrics
	ConstLabels prometheus.Labels
}

// MetricsProvider records engine activity for Prometheus scraping.
type MetricsProvider interface {
	// Message exchange
	RecordRequest(ctx context.Context, method, status string, duration time.Duration)
	RecordNotification(ctx context.Context, method string)
	RecordOutstanding(ctx context.Context, delta int)
	RecordCancellation(ctx context.Context, method string)

	// Feature areas
	RecordToolCall(ctx context.Context, tool, status string, duration time.Duration)
	RecordResourceRead(ctx context.Context, status string, duration time.Duration)
	RecordPromptRender(ctx context.Context, prompt, status string, duration time.Duration)
	RecordCompletion(ctx context.Context, refType, status string, duration time.Duration)

	// Sessions
	RecordSessionState(ctx context.Context, state string)
	RecordActiveSessions(ctx context.Context, delta int)

	// Custom metrics
	RecordGauge(name string, value float64, labels prometheus.Labels)
	RecordCounter(name string, labels prometheus.Labels)
	RecordHistogram(name string, value float64, labels prometheus.Labels)

	// Management
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// PrometheusMetricsProvider implements MetricsProvider using Prometheus
type PrometheusMetricsProvider struct {
	config MetricsConfig
	server *http.Server

	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	notificationTotal *prometheus.CounterVec
	outstanding       prometheus.Gauge
	cancellationTotal *prometheus.CounterVec

	toolCallDuration     *prometheus.HistogramVec
	resourceReadDuration *prometheus.HistogramVec
	promptRenderDuration *prometheus.HistogramVec
	completionDuration   *prometheus.HistogramVec

	sessionState   *prometheus.GaugeVec
	activeSessions prometheus.Gauge

	customMetrics map[string]prometheus.Collector
	mu            sync.RWMutex
}

// NewMetricsProvider creates a new Prometheus metrics provider
func NewMetricsProvider(config MetricsConfig) (MetricsProvider, error) {
	// Set defaults
	if config.Namespace == "" {
		config.Namespace = "mcp"
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.MetricsPort == 0 {
		config.MetricsPort = 9090
	}
	if config.HistogramBuckets == nil {
		// Default buckets for milliseconds
		config.HistogramBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}
	}

	if config.ConstLabels == nil {
		config.ConstLabels = prometheus.Labels{}
	}
	config.ConstLabels["service"] = config.ServiceName
	config.ConstLabels["version"] = config.ServiceVersion
	config.ConstLabels["environment"] = config.Environment

	provider := &PrometheusMetricsProvider{
		config:        config,
		customMetrics: make(map[string]prometheus.Collector),
	}

	provider.initializeMetrics()
	if err := provider.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return provider, nil
}

func (p *PrometheusMetricsProvider) initializeMetrics() {
	p.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "request_duration_milliseconds",
			Help:        "Duration of dispatched requests in milliseconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"method", "status"},
	)

	p.requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "request_total",
			Help:        "Total number of dispatched requests",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"method", "status"},
	)

	p.notificationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "notification_total",
			Help:        "Total number of dispatched notifications",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"method"},
	)

	p.outstanding = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "outstanding_requests",
			Help:        "Number of outbound requests awaiting settlement",
			ConstLabels: p.config.ConstLabels,
		},
	)

	p.cancellationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "cancellation_total",
			Help:        "Total number of cancelled requests",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"method"},
	)

	p.toolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "tool_call_duration_milliseconds",
			Help:        "Duration of tool calls in milliseconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"tool", "status"},
	)

	p.resourceReadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "resource_read_duration_milliseconds",
			Help:        "Duration of resource reads in milliseconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"status"},
	)

	p.promptRenderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "prompt_render_duration_milliseconds",
			Help:        "Duration of prompt rendering in milliseconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"prompt", "status"},
	)

	p.completionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "completion_duration_milliseconds",
			Help:        "Duration of completion requests in milliseconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"ref_type", "status"},
	)

	p.sessionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "session_state",
			Help:        "Current session lifecycle state (1 for active state)",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"state"},
	)

	p.activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of active sessions",
			ConstLabels: p.config.ConstLabels,
		},
	)
}

func (p *PrometheusMetricsProvider) registerMetrics() error {
	collectors := []prometheus.Collector{
		p.requestDuration,
		p.requestTotal,
		p.notificationTotal,
		p.outstanding,
		p.cancellationTotal,
		p.toolCallDuration,
		p.resourceReadDuration,
		p.promptRenderDuration,
		p.completionDuration,
		p.sessionState,
		p.activeSessions,
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// RecordRequest records a dispatched request
func (p *PrometheusMetricsProvider) RecordRequest(ctx context.Context, method, status string, duration time.Duration) {
	ms := float64(duration.Milliseconds())
	p.requestDuration.WithLabelValues(method, status).Observe(ms)
	p.requestTotal.WithLabelValues(method, status).Inc()
}

// RecordNotification records a dispatched notification
func (p *PrometheusMetricsProvider) RecordNotification(ctx context.Context, method string) {
	p.notificationTotal.WithLabelValues(method).Inc()
}

// RecordOutstanding adjusts the outstanding request gauge
func (p *PrometheusMetricsProvider) RecordOutstanding(ctx context.Context, delta int) {
	p.outstanding.Add(float64(delta))
}

// RecordCancellation records one cancelled request
func (p *PrometheusMetricsProvider) RecordCancellation(ctx context.Context, method string) {
	p.cancellationTotal.WithLabelValues(method).Inc()
}

// RecordToolCall records a tool execution
func (p *PrometheusMetricsProvider) RecordToolCall(ctx context.Context, tool, status string, duration time.Duration) {
	p.toolCallDuration.WithLabelValues(tool, status).Observe(float64(duration.Milliseconds()))
}

// RecordResourceRead records a resource read
func (p *PrometheusMetricsProvider) RecordResourceRead(ctx context.Context, status string, duration time.Duration) {
	p.resourceReadDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

// RecordPromptRender records a prompt render
func (p *PrometheusMetricsProvider) RecordPromptRender(ctx context.Context, prompt, status string, duration time.Duration) {
	p.promptRenderDuration.WithLabelValues(prompt, status).Observe(float64(duration.Milliseconds()))
}

// RecordCompletion records a completion request
func (p *PrometheusMetricsProvider) RecordCompletion(ctx context.Context, refType, status string, duration time.Duration) {
	p.completionDuration.WithLabelValues(refType, status).Observe(float64(duration.Milliseconds()))
}

// RecordSessionState records a session state transition
func (p *PrometheusMetricsProvider) RecordSessionState(ctx context.Context, state string) {
	p.sessionState.Reset()
	p.sessionState.WithLabelValues(state).Set(1)
}

// RecordActiveSessions adjusts the active session gauge
func (p *PrometheusMetricsProvider) RecordActiveSessions(ctx context.Context, delta int) {
	p.activeSessions.Add(float64(delta))
}

// RecordGauge records a custom gauge metric
func (p *PrometheusMetricsProvider) RecordGauge(name string, value float64, labels prometheus.Labels) {
	p.mu.Lock()
	defer p.mu.Unlock()

	collector, exists := p.customMetrics[name]
	if !exists {
		gauge := prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   p.config.Namespace,
				Subsystem:   p.config.Subsystem,
				Name:        name,
				ConstLabels: p.config.ConstLabels,
			},
			labelKeys(labels),
		)
		if err := prometheus.Register(gauge); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				gauge = are.ExistingCollector.(*prometheus.GaugeVec)
			} else {
				return
			}
		}
		p.customMetrics[name] = gauge
		collector = gauge
	}

	if gauge, ok := collector.(*prometheus.GaugeVec); ok {
		gauge.With(labels).Set(value)
	}
}

// RecordCounter increments a custom counter metric
func (p *PrometheusMetricsProvider) RecordCounter(name string, labels prometheus.Labels) {
	p.mu.Lock()
	defer p.mu.Unlock()

	collector, exists := p.customMetrics[name]
	if !exists {
		counter := prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   p.config.Namespace,
				Subsystem:   p.config.Subsystem,
				Name:        name,
				ConstLabels: p.config.ConstLabels,
			},
			labelKeys(labels),
		)
		if err := prometheus.Register(counter); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				counter = are.ExistingCollector.(*prometheus.CounterVec)
			} else {
				return
			}
		}
		p.customMetrics[name] = counter
		collector = counter
	}

	if counter, ok := collector.(*prometheus.CounterVec); ok {
		counter.With(labels).Inc()
	}
}

// RecordHistogram records a custom histogram observation
func (p *PrometheusMetricsProvider) RecordHistogram(name string, value float64, labels prometheus.Labels) {
	p.mu.Lock()
	defer p.mu.Unlock()

	collector, exists := p.customMetrics[name]
	if !exists {
		histogram := prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   p.config.Namespace,
				Subsystem:   p.config.Subsystem,
				Name:        name,
				Buckets:     p.config.HistogramBuckets,
				ConstLabels: p.config.ConstLabels,
			},
			labelKeys(labels),
		)
		if err := prometheus.Register(histogram); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				histogram = are.ExistingCollector.(*prometheus.HistogramVec)
			} else {
				return
			}
		}
		p.customMetrics[name] = histogram
		collector = histogram
	}

	if histogram, ok := collector.(*prometheus.HistogramVec); ok {
		histogram.With(labels).Observe(value)
	}
}

// Start serves the metrics endpoint
func (p *PrometheusMetricsProvider) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(p.config.MetricsPath, promhttp.Handler())

	p.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", p.config.MetricsPort),
		Handler: mux,
	}

	go func() {
		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()
	return nil
}

// Shutdown stops the metrics endpoint
func (p *PrometheusMetricsProvider) Shutdown(ctx context.Context) error {
	if p.server != nil {
		return p.server.Shutdown(ctx)
	}
	return nil
}

func labelKeys(labels prometheus.Labels) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	return keys
}

// NoopMetricsProvider discards all measurements
type NoopMetricsProvider struct{}

func (NoopMetricsProvider) RecordRequest(ctx context.Context, method, status string, duration time.Duration) {
}
func (NoopMetricsProvider) RecordNotification(ctx context.Context, method string) {}
func (NoopMetricsProvider) RecordOutstanding(ctx context.Context, delta int)      {}
func (NoopMetricsProvider) RecordCancellation(ctx context.Context, method string) {}
func (NoopMetricsProvider) RecordToolCall(ctx context.Context, tool, status string, duration time.Duration) {
}
func (NoopMetricsProvider) RecordResourceRead(ctx context.Context, status string, duration time.Duration) {
}
func (NoopMetricsProvider) RecordPromptRender(ctx context.Context, prompt, status string, duration time.Duration) {
}
func (NoopMetricsProvider) RecordCompletion(ctx context.Context, refType, status string, duration time.Duration) {
}
func (NoopMetricsProvider) RecordSessionState(ctx context.Context, state string)                 {}
func (NoopMetricsProvider) RecordActiveSessions(ctx context.Context, delta int)                  {}
func (NoopMetricsProvider) RecordGauge(name string, value float64, labels prometheus.Labels)     {}
func (NoopMetricsProvider) RecordCounter(name string, labels prometheus.Labels)                  {}
func (NoopMetricsProvider) RecordHistogram(name string, value float64, labels prometheus.Labels) {}
func (NoopMetricsProvider) Start(ctx context.Context) error                                      { return nil }
func (NoopMetricsProvider) Shutdown(ctx context.Context) error                                   { return nil }
