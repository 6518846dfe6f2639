// Package observe provides the observability primitives for nitemix:
// OpenTelemetry metrics with a Prometheus exporter bridge, so a long-running
// stream session can be watched via the standard /metrics endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution. All recording methods are safe on a nil receiver so
// metrics stay strictly optional for library callers.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all nitemix metrics.
const meterName = "github.com/nitevj/nitemix"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// ExtractDuration tracks audio feature extraction latency per window.
	ExtractDuration metric.Float64Histogram

	// BlendDuration tracks per-frame blend latency.
	BlendDuration metric.Float64Histogram

	// --- Counters ---

	// FramesBlended counts output frames produced. Use with attribute:
	//   attribute.String("operation", ...)
	FramesBlended metric.Int64Counter

	// PulsesFired counts beat/pitch pulses emitted by the synchronizer.
	PulsesFired metric.Int64Counter

	// AudioUnderruns counts live-capture underruns observed by the pipeline.
	AudioUnderruns metric.Int64Counter

	// --- Gauges ---

	// QueueDepth tracks the number of captured audio frames waiting in the
	// live producer queue.
	QueueDepth metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// per-frame work at typical video rates.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ExtractDuration, err = m.Float64Histogram("nitemix.extract.duration",
		metric.WithDescription("Latency of audio feature extraction per window."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.BlendDuration, err = m.Float64Histogram("nitemix.blend.duration",
		metric.WithDescription("Latency of blending one output frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.FramesBlended, err = m.Int64Counter("nitemix.frames.blended",
		metric.WithDescription("Total output frames produced, by blend operation."),
	); err != nil {
		return nil, err
	}
	if met.PulsesFired, err = m.Int64Counter("nitemix.pulses.fired",
		metric.WithDescription("Total beat and pitch pulses emitted."),
	); err != nil {
		return nil, err
	}
	if met.AudioUnderruns, err = m.Int64Counter("nitemix.audio.underruns",
		metric.WithDescription("Total live-capture underruns observed."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.QueueDepth, err = m.Int64UpDownCounter("nitemix.audio.queue_depth",
		metric.WithDescription("Captured audio frames waiting in the live producer queue."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// ObserveExtract records one feature-extraction latency sample. No-op on a
// nil receiver.
func (m *Metrics) ObserveExtract(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractDuration.Record(ctx, d.Seconds())
}

// ObserveBlend records one blend latency sample. No-op on a nil receiver.
func (m *Metrics) ObserveBlend(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.BlendDuration.Record(ctx, d.Seconds())
}

// RecordFrame records one produced output frame for the given blend
// operation. No-op on a nil receiver.
func (m *Metrics) RecordFrame(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.FramesBlended.Add(ctx, 1,
		metric.WithAttributes(attribute.String("operation", operation)),
	)
}

// RecordPulse records one emitted pulse. No-op on a nil receiver.
func (m *Metrics) RecordPulse(ctx context.Context) {
	if m == nil {
		return
	}
	m.PulsesFired.Add(ctx, 1)
}

// RecordUnderrun records one live-capture underrun. No-op on a nil receiver.
func (m *Metrics) RecordUnderrun(ctx context.Context) {
	if m == nil {
		return
	}
	m.AudioUnderruns.Add(ctx, 1)
}

// AddQueueDepth adjusts the live producer queue depth gauge by delta
// (+1 on enqueue, -1 on dequeue). No-op on a nil receiver.
func (m *Metrics) AddQueueDepth(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.QueueDepth.Add(ctx, delta)
}
