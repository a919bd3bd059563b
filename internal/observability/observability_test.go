package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cvstudio/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func allCustomMetrics() config.CustomMetricsConfig {
	return config.CustomMetricsConfig{
		Operations:     config.OperationMetricsConfig{Enabled: true, TrackDuration: true, TrackTokenUsage: true, TrackPayload: true},
		Documents:      config.DocumentMetricsConfig{Enabled: true, TrackScore: true},
		Infrastructure: config.InfrastructureMetricsConfig{Enabled: true, TrackRateLimits: true},
	}
}

func TestGetObservabilityConfig(t *testing.T) {
	t.Run("nil config falls back to console", func(t *testing.T) {
		cfg := GetObservabilityConfig(nil, "1.2.3")
		assert.Equal(t, "cvstudio", cfg.ServiceName)
		assert.Equal(t, "1.2.3", cfg.ServiceVersion)
		assert.True(t, cfg.ConsoleOutput)
		assert.Equal(t, "/metrics", cfg.Prometheus.Endpoint)
	})

	t.Run("maps configured values", func(t *testing.T) {
		full := &config.Config{}
		full.Observability.Enabled = true
		full.Observability.ServiceName = "cv"
		full.Observability.ServiceInstance = "host-1"
		full.Observability.Tracing.Enabled = true
		full.Observability.Metrics.Enabled = true
		full.Observability.Metrics.CollectionInterval = 5 * time.Second
		full.Observability.Prometheus = config.PrometheusConfig{Enabled: true, Endpoint: "/m", Port: "9999"}
		full.Observability.OTLP = config.OTLPConfig{Enabled: true, Endpoint: "http://collector:4318"}

		cfg := GetObservabilityConfig(full, "9.9.9")
		assert.Equal(t, "cv", cfg.ServiceName)
		assert.Equal(t, "9.9.9", cfg.ServiceVersion, "app version fills a blank service version")
		assert.Equal(t, "host-1", cfg.ServiceInstance)
		assert.True(t, cfg.TracingEnabled)
		assert.True(t, cfg.MetricsEnabled)
		assert.Equal(t, 5*time.Second, cfg.CollectionInterval)
		assert.Equal(t, PrometheusConfig{Enabled: true, Endpoint: "/m", Port: "9999"}, cfg.Prometheus)
		assert.Equal(t, "http://collector:4318", cfg.OTLP.Endpoint)
	})
}

func TestObservabilityManager_Disabled(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{Enabled: false}, nil)
	require.NoError(t, err)

	called := false
	err = om.TrackOperation(context.Background(), "preview", func(ctx context.Context) *OperationResult {
		called = true
		return &OperationResult{Error: errors.New("boom")}
	})
	assert.True(t, called)
	assert.EqualError(t, err, "boom")

	om.RecordBusinessMetric(context.Background(), MetricPreviewRendered, true)
	om.RecordScore(context.Background(), 80)
	assert.NotNil(t, om.GetMetrics())
	assert.NoError(t, om.Shutdown(context.Background()))

	handler := om.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestObservabilityManager_NilSafe(t *testing.T) {
	var om *ObservabilityManager
	err := om.TrackOperation(context.Background(), "suggest", func(ctx context.Context) *OperationResult { return nil })
	assert.NoError(t, err)
	om.RecordBusinessMetric(context.Background(), MetricRateLimitHit, false)
	assert.NoError(t, om.Shutdown(context.Background()))
	assert.NotNil(t, om.Tracer("x"))
}

func TestObservabilityManager_Enabled(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{
		ServiceName:    "cvstudio-test",
		ServiceVersion: "test",
		Enabled:        true,
		TracingEnabled: true,
		MetricsEnabled: true,
		SampleRate:     1.0,
		CustomMetrics:  allCustomMetrics(),
	}, nil)
	require.NoError(t, err)
	defer func() { _ = om.Shutdown(context.Background()) }()

	metrics := om.GetMetrics()
	require.NotNil(t, metrics.OperationCount)
	require.NotNil(t, metrics.DocumentScore)
	for _, ec := range eventCounters {
		assert.Contains(t, metrics.Events, ec.event)
	}

	err = om.TrackOperation(context.Background(), "suggest", func(ctx context.Context) *OperationResult {
		return &OperationResult{
			TokenUsage:   &TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
			PayloadBytes: 128,
		}
	})
	assert.NoError(t, err)

	err = om.TrackOperation(context.Background(), "preview", func(ctx context.Context) *OperationResult {
		return &OperationResult{Error: errors.New("upstream down")}
	})
	assert.EqualError(t, err, "upstream down")

	for _, metricType := range []string{MetricDocumentAnalyzed, MetricPreviewRendered, MetricDocumentDownloaded, MetricSuggestionServed, MetricRateLimitHit, "unknown"} {
		om.RecordBusinessMetric(context.Background(), metricType, true, attribute.String("theme", "classic"))
	}
	om.RecordScore(context.Background(), 75)
}

func TestSetupPrometheusExporter(t *testing.T) {
	reader, handler, err := SetupPrometheusExporter(PrometheusConfig{Enabled: true, Endpoint: "/metrics"})
	require.NoError(t, err)

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	counter, err := mp.Meter("test").Int64Counter("cvstudio_test_hits_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "cvstudio_test_hits_total")
}

func TestStartPrometheusServer_NoPort(t *testing.T) {
	assert.Nil(t, StartPrometheusServer(http.NewServeMux(), PrometheusConfig{}, nil))
}
