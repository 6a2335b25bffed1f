// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, tracing helpers, and HTTP middleware tying them
// together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported via
// the Prometheus bridge set up by [InitProvider], so they remain scrapeable
// at /metrics. Tests should use [NewMetrics] with a private
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/vocaprep/vocaprep"

// Metrics holds the application's OTel metric instruments. All fields are
// safe for concurrent use; the OTel types synchronise internally.
type Metrics struct {
	// HandshakeDuration tracks realtime-backend handshake latency. Use with
	// attribute.String("provider", ...).
	HandshakeDuration metric.Float64Histogram

	// SessionDuration tracks full interview session length in seconds, from
	// active to terminal.
	SessionDuration metric.Float64Histogram

	// FeedbackDuration tracks feedback-report generation latency.
	FeedbackDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attribute.String("method", ...), attribute.String("path", ...).
	HTTPRequestDuration metric.Float64Histogram

	// TurnsCommitted counts committed conversation turns. Use with
	// attribute.String("role", "user"|"agent").
	TurnsCommitted metric.Int64Counter

	// Interruptions counts barge-in events across all sessions.
	Interruptions metric.Int64Counter

	// DroppedFrames counts outbound audio frames dropped under backpressure.
	DroppedFrames metric.Int64Counter

	// DecodeErrors counts inbound playback items skipped as undecodable.
	DecodeErrors metric.Int64Counter

	// SessionsEnded counts terminal sessions. Use with
	// attribute.String("outcome", "ended"|"errored").
	SessionsEnded metric.Int64Counter

	// ActiveSessions tracks the number of live interview sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// handshake and feedback latencies; session durations land in the top bucket
// range by design of the +Inf bucket.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] using the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.HandshakeDuration, err = m.Float64Histogram("vocaprep.session.handshake.duration",
		metric.WithDescription("Latency of the realtime backend handshake."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SessionDuration, err = m.Float64Histogram("vocaprep.session.duration",
		metric.WithDescription("Interview session length from active to terminal."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.FeedbackDuration, err = m.Float64Histogram("vocaprep.feedback.duration",
		metric.WithDescription("Latency of feedback report generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("vocaprep.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if met.TurnsCommitted, err = m.Int64Counter("vocaprep.transcript.turns",
		metric.WithDescription("Committed conversation turns by role."),
	); err != nil {
		return nil, err
	}
	if met.Interruptions, err = m.Int64Counter("vocaprep.session.interruptions",
		metric.WithDescription("Barge-in events across all sessions."),
	); err != nil {
		return nil, err
	}
	if met.DroppedFrames, err = m.Int64Counter("vocaprep.audio.dropped_frames",
		metric.WithDescription("Outbound audio frames dropped under backpressure."),
	); err != nil {
		return nil, err
	}
	if met.DecodeErrors, err = m.Int64Counter("vocaprep.playback.decode_errors",
		metric.WithDescription("Inbound playback items skipped as undecodable."),
	); err != nil {
		return nil, err
	}
	if met.SessionsEnded, err = m.Int64Counter("vocaprep.sessions.ended",
		metric.WithDescription("Terminal sessions by outcome."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("vocaprep.active_sessions",
		metric.WithDescription("Number of live interview sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], creating it on first
// call from [otel.GetMeterProvider]. Panics if instrument creation fails,
// which cannot happen with the global provider.
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

// RecordTurn increments the committed-turn counter for a role.
func (m *Metrics) RecordTurn(ctx context.Context, role string) {
	m.TurnsCommitted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("role", role)),
	)
}

// RecordHandshake records a handshake latency observation for a provider.
func (m *Metrics) RecordHandshake(ctx context.Context, provider string, d time.Duration) {
	m.HandshakeDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordSessionEnd records a terminal session: its outcome counter, its
// duration, and the active-session gauge decrement.
func (m *Metrics) RecordSessionEnd(ctx context.Context, outcome string, d time.Duration) {
	m.SessionsEnded.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
	m.SessionDuration.Record(ctx, d.Seconds())
	m.ActiveSessions.Add(ctx, -1)
}
