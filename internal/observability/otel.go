package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cvstudio/internal/config"
	cvstudioErrors "cvstudio/internal/errors"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Business events accepted by RecordBusinessMetric.
const (
	MetricDocumentAnalyzed   = "document_analyzed"
	MetricPreviewRendered    = "preview_rendered"
	MetricDocumentDownloaded = "document_downloaded"
	MetricSuggestionServed   = "suggestion_served"
	MetricRateLimitHit       = "rate_limit_hit"
)

// eventCounters names the counter behind each business event
var eventCounters = []struct {
	event, name, description string
}{
	{MetricDocumentAnalyzed, "cvstudio_documents_analyzed_total", "Documents analyzed"},
	{MetricPreviewRendered, "cvstudio_previews_rendered_total", "Preview renders"},
	{MetricDocumentDownloaded, "cvstudio_documents_downloaded_total", "PDF downloads"},
	{MetricSuggestionServed, "cvstudio_suggestions_total", "Suggestion requests served"},
	{MetricRateLimitHit, "cvstudio_rate_limit_hits_total", "Requests rejected by the rate limiter"},
}

// Metrics are the instruments behind TrackOperation, RecordBusinessMetric
// and RecordScore.
type Metrics struct {
	OperationDuration metric.Float64Histogram
	OperationCount    metric.Int64Counter
	OperationErrors   metric.Int64Counter
	TokenUsage        metric.Int64Histogram
	PayloadSize       metric.Int64Histogram
	DocumentScore     metric.Int64Histogram
	Events            map[string]metric.Int64Counter
}

// TokenUsage represents token usage reported by a suggestion provider
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// OperationResult is what a tracked operation reports back
type OperationResult struct {
	Error        error
	TokenUsage   *TokenUsage
	PayloadBytes int64
}

// ObservabilityManager owns the tracer and meter providers. A nil manager,
// or one built from a disabled configuration, turns every method into a no-op.
type ObservabilityManager struct {
	config         ObservabilityConfig
	custom         config.CustomMetricsConfig
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
	shutdownFuncs  []func(context.Context) error
	logger         *cvstudioErrors.Logger
}

// NewObservabilityManager installs global providers for the enabled signals
func NewObservabilityManager(obsConfig ObservabilityConfig, logger *cvstudioErrors.Logger) (*ObservabilityManager, error) {
	if logger == nil {
		logger = cvstudioErrors.NewNopLogger()
	}
	om := &ObservabilityManager{config: obsConfig, custom: obsConfig.CustomMetrics, logger: logger}
	if !obsConfig.Enabled {
		return om, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(obsConfig.ServiceName),
		semconv.ServiceVersion(obsConfig.ServiceVersion),
		attribute.String("service.instance.id", obsConfig.ServiceInstance),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if obsConfig.TracingEnabled {
		if err := om.startTracing(res); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}
	if obsConfig.MetricsEnabled {
		if err := om.startMetrics(res); err != nil {
			_ = om.Shutdown(context.Background())
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	logger.Debug("Observability initialized",
		"service", obsConfig.ServiceName,
		"tracing", obsConfig.TracingEnabled,
		"metrics", obsConfig.MetricsEnabled)
	return om, nil
}

func (om *ObservabilityManager) startTracing(res *resource.Resource) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(om.config.SampleRate))),
	}

	exporter, err := spanExporter(om.config)
	if err != nil {
		return err
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)
	return nil
}

// spanExporter picks console output over OTLP. Nil means spans are sampled
// for propagation but never exported.
func spanExporter(cfg ObservabilityConfig) (sdktrace.SpanExporter, error) {
	switch {
	case cfg.ConsoleOutput:
		var opts []stdouttrace.Option
		if cfg.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		return stdouttrace.New(opts...)
	case cfg.OTLP.Enabled:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.OTLP.Endpoint)}
		if cfg.OTLP.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(cfg.OTLP.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.OTLP.Headers))
		}
		return otlptracehttp.New(context.Background(), opts...)
	default:
		return nil, nil
	}
}

func (om *ObservabilityManager) startMetrics(res *resource.Resource) error {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	readers, err := om.metricReaders()
	if err != nil {
		return err
	}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	om.metrics, err = newMetrics(mp.Meter(om.config.ServiceName))
	return err
}

// metricReaders builds one reader per configured sink, falling back to a
// manual reader so instruments stay valid with no sink at all.
func (om *ObservabilityManager) metricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader
	periodic := func(exporter sdkmetric.Exporter) sdkmetric.Reader {
		return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(om.config.CollectionInterval))
	}

	if om.config.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, periodic(exporter))
	}

	if otlp := om.config.OTLP; otlp.Enabled {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(otlp.Endpoint)}
		if otlp.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		if len(otlp.Headers) > 0 {
			opts = append(opts, otlpmetrichttp.WithHeaders(otlp.Headers))
		}
		exporter, err := otlpmetrichttp.New(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		readers = append(readers, periodic(exporter))
	}

	if om.config.Prometheus.Enabled {
		reader, handler, err := SetupPrometheusExporter(om.config.Prometheus)
		if err != nil {
			return nil, err
		}
		readers = append(readers, reader)
		if srv := StartPrometheusServer(handler, om.config.Prometheus, om.logger); srv != nil {
			om.shutdownFuncs = append(om.shutdownFuncs, srv.Shutdown)
		}
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}
	return readers, nil
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{Events: make(map[string]metric.Int64Counter, len(eventCounters))}
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	m.OperationDuration, err = meter.Float64Histogram("cvstudio_operation_duration_seconds",
		metric.WithDescription("Time spent in render and suggestion operations"), metric.WithUnit("s"))
	collect(err)
	m.OperationCount, err = meter.Int64Counter("cvstudio_operations_total",
		metric.WithDescription("Render and suggestion operations"))
	collect(err)
	m.OperationErrors, err = meter.Int64Counter("cvstudio_operation_errors_total",
		metric.WithDescription("Failed render and suggestion operations"))
	collect(err)
	m.TokenUsage, err = meter.Int64Histogram("cvstudio_ai_token_usage",
		metric.WithDescription("Tokens per suggestion by token_type"), metric.WithUnit("tokens"))
	collect(err)
	m.PayloadSize, err = meter.Int64Histogram("cvstudio_render_payload_bytes",
		metric.WithDescription("Size of rendered previews and documents"), metric.WithUnit("By"))
	collect(err)
	m.DocumentScore, err = meter.Int64Histogram("cvstudio_document_score",
		metric.WithDescription("ATS score of analyzed documents"),
		metric.WithExplicitBucketBoundaries(0, 20, 40, 60, 80, 100))
	collect(err)

	for _, ec := range eventCounters {
		counter, err := meter.Int64Counter(ec.name, metric.WithDescription(ec.description))
		collect(err)
		m.Events[ec.event] = counter
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	return m, nil
}

// GetMetrics returns the instruments, empty when metrics are off
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om == nil || om.metrics == nil {
		return &Metrics{}
	}
	return om.metrics
}

// HTTPMiddleware instruments inbound requests with otelhttp
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if om == nil || !om.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}

	var opts []otelhttp.Option
	if om.tracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(om.tracerProvider))
	}
	if om.meterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(om.meterProvider))
	}
	return otelhttp.NewMiddleware(om.config.ServiceName, opts...)
}

// Tracer returns a named tracer, a no-op one when tracing is off
func (om *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if om == nil || !om.config.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return otel.Tracer(name)
}

// Shutdown flushes and stops every provider and the metrics server
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	if om == nil {
		return nil
	}
	var errs []error
	for _, shutdown := range om.shutdownFuncs {
		errs = append(errs, shutdown(ctx))
	}
	om.shutdownFuncs = nil
	return errors.Join(errs...)
}

// TrackOperation runs fn in a span and records its duration, outcome,
// payload size and token usage.
func (om *ObservabilityManager) TrackOperation(ctx context.Context, operation string, fn func(context.Context) *OperationResult) error {
	if om == nil || om.metrics == nil {
		if result := fn(ctx); result != nil {
			return result.Error
		}
		return nil
	}

	ctx, span := om.Tracer("cvstudio.operations").Start(ctx, "operation."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	if result == nil {
		result = &OperationResult{}
	}
	elapsed := time.Since(start).Seconds()

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", result.Error == nil),
	}
	span.SetAttributes(attrs...)
	if result.Error != nil {
		span.RecordError(result.Error)
	}
	if usage := result.TokenUsage; usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}

	if om.custom.Operations.Enabled {
		om.recordOperation(ctx, elapsed, result, attrs)
	}
	return result.Error
}

func (om *ObservabilityManager) recordOperation(ctx context.Context, elapsed float64, result *OperationResult, attrs []attribute.KeyValue) {
	m, opts := om.metrics, metric.WithAttributes(attrs...)

	m.OperationCount.Add(ctx, 1, opts)
	if result.Error != nil {
		m.OperationErrors.Add(ctx, 1, opts)
	}
	if om.custom.Operations.TrackDuration {
		m.OperationDuration.Record(ctx, elapsed, opts)
	}
	if om.custom.Operations.TrackPayload && result.PayloadBytes > 0 {
		m.PayloadSize.Record(ctx, result.PayloadBytes, opts)
	}
	if usage := result.TokenUsage; usage != nil && om.custom.Operations.TrackTokenUsage {
		for tokenType, n := range map[string]int64{"input": usage.InputTokens, "output": usage.OutputTokens, "total": usage.TotalTokens} {
			withType := append(append([]attribute.KeyValue{}, attrs...), attribute.String("token_type", tokenType))
			m.TokenUsage.Record(ctx, n, metric.WithAttributes(withType...))
		}
	}
}

// RecordBusinessMetric counts one business event. Rate limit hits are
// infrastructure metrics; everything else is a document metric.
func (om *ObservabilityManager) RecordBusinessMetric(ctx context.Context, event string, success bool, attributes ...attribute.KeyValue) {
	if om == nil || om.metrics == nil {
		return
	}

	enabled := om.custom.Documents.Enabled
	if event == MetricRateLimitHit {
		enabled = om.custom.Infrastructure.Enabled && om.custom.Infrastructure.TrackRateLimits
	}
	counter, ok := om.metrics.Events[event]
	if !enabled || !ok {
		return
	}

	attrs := append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordScore records a document's ATS score
func (om *ObservabilityManager) RecordScore(ctx context.Context, score int, attributes ...attribute.KeyValue) {
	if om == nil || om.metrics == nil || !om.custom.Documents.Enabled || !om.custom.Documents.TrackScore {
		return
	}
	om.metrics.DocumentScore.Record(ctx, int64(score), metric.WithAttributes(attributes...))
}
