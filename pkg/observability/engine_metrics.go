package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EngineMetrics holds the assessment pipeline instruments. All instruments
// use the "phishield_" prefix.
type EngineMetrics struct {
	// AssessmentsTotal counts completed assessments by risk tier.
	AssessmentsTotal metric.Int64Counter

	// SignalFailuresTotal counts signals that returned a degraded status,
	// by signal name.
	SignalFailuresTotal metric.Int64Counter

	// AssessmentDuration records end-to-end assessment duration in seconds.
	AssessmentDuration metric.Float64Histogram
}

// NewEngineMetrics creates the pipeline instruments on the given meter.
func NewEngineMetrics(meter metric.Meter) (*EngineMetrics, error) {
	m := &EngineMetrics{}
	var err error

	m.AssessmentsTotal, err = meter.Int64Counter(
		"phishield_assessments_total",
		metric.WithDescription("Completed risk assessments by tier"),
		metric.WithUnit("{assessment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create assessments_total: %w", err)
	}

	m.SignalFailuresTotal, err = meter.Int64Counter(
		"phishield_signal_failures_total",
		metric.WithDescription("Signals that returned Unavailable or Error"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create signal_failures_total: %w", err)
	}

	m.AssessmentDuration, err = meter.Float64Histogram(
		"phishield_assessment_duration_seconds",
		metric.WithDescription("End-to-end assessment duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create assessment_duration: %w", err)
	}

	return m, nil
}

// RecordAssessment counts one completed assessment and its duration.
func (m *EngineMetrics) RecordAssessment(ctx context.Context, tier string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("tier", tier))
	m.AssessmentsTotal.Add(ctx, 1, attrs)
	m.AssessmentDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordSignalFailure counts one degraded signal result.
func (m *EngineMetrics) RecordSignalFailure(ctx context.Context, signal string) {
	m.SignalFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("signal", signal)))
}
