package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/diarscribe/logger"
)

// InitMeter installs a global meter provider exporting over OTLP HTTP.
// The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, id Identity, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(id)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricInterval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"interval", cfg.MetricInterval.String(),
	))
	return mp, nil
}

// Metrics holds the instruments recorded by the job pipeline.
type Metrics struct {
	jobsTotal       metric.Int64Counter
	jobsActive      metric.Int64UpDownCounter
	jobDuration     metric.Float64Histogram
	backendCalls    metric.Int64Counter
	backendDuration metric.Float64Histogram
	audioSeconds    metric.Float64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.jobsTotal, err = meter.Int64Counter("jobs.total",
		metric.WithDescription("Transcription jobs finished, by status")); err != nil {
		return nil, fmt.Errorf("creating jobs.total: %w", err)
	}
	if m.jobsActive, err = meter.Int64UpDownCounter("jobs.active",
		metric.WithDescription("Transcription jobs currently running")); err != nil {
		return nil, fmt.Errorf("creating jobs.active: %w", err)
	}
	if m.jobDuration, err = meter.Float64Histogram("jobs.duration",
		metric.WithDescription("Wall time of a transcription job"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating jobs.duration: %w", err)
	}
	if m.backendCalls, err = meter.Int64Counter("backend.calls",
		metric.WithDescription("Calls to speech backends, by stage, provider and status")); err != nil {
		return nil, fmt.Errorf("creating backend.calls: %w", err)
	}
	if m.backendDuration, err = meter.Float64Histogram("backend.duration",
		metric.WithDescription("Duration of speech backend calls"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating backend.duration: %w", err)
	}
	if m.audioSeconds, err = meter.Float64Counter("audio.processed",
		metric.WithDescription("Seconds of audio transcribed"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating audio.processed: %w", err)
	}
	return &m, nil
}

// NewGlobalMetrics creates the instruments on the global meter provider.
func NewGlobalMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter(instrumentationName))
}

// JobStarted increments the active job gauge.
func (m *Metrics) JobStarted(ctx context.Context) {
	m.jobsActive.Add(ctx, 1)
}

// JobFinished records a finished job and decrements the active gauge.
func (m *Metrics) JobFinished(ctx context.Context, status string, diarized bool, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("status", status),
		attribute.Bool("diarized", diarized),
	)
	m.jobsActive.Add(ctx, -1)
	m.jobsTotal.Add(ctx, 1, attrs)
	m.jobDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordBackendCall records one call to a speech backend.
func (m *Metrics) RecordBackendCall(ctx context.Context, stage, provider, status string, d time.Duration) {
	m.backendCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
	m.backendDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("provider", provider),
	))
}

// RecordAudio adds the duration of a transcribed recording.
func (m *Metrics) RecordAudio(ctx context.Context, model string, seconds float64) {
	if seconds <= 0 {
		return
	}
	m.audioSeconds.Add(ctx, seconds, metric.WithAttributes(attribute.String("model", model)))
}
