package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// JobMetricsMeterName is the name used for the worker job meter
	JobMetricsMeterName = "github.com/hustsync/hustsync/worker"

	// FleetMetricsMeterName is the name used for the manager fleet meter
	FleetMetricsMeterName = "github.com/hustsync/hustsync/manager"
)

// JobMetrics holds the instruments recorded by the worker scheduler
type JobMetrics struct {
	syncDuration metric.Float64Histogram
	attempts     metric.Int64Counter
	running      metric.Int64UpDownCounter
}

// NewJobMetrics creates job instruments. A nil provider yields nil, which is a no-op recorder.
func NewJobMetrics(provider metric.MeterProvider) (*JobMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(JobMetricsMeterName)

	syncDuration, err := meter.Float64Histogram(
		"hustsync_job_sync_duration_seconds",
		metric.WithDescription("Duration of mirror sync runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 10, 30, 60, 300, 900, 1800, 3600, 7200, 21600),
	)
	if err != nil {
		return nil, err
	}

	attempts, err := meter.Int64Counter(
		"hustsync_job_attempts_total",
		metric.WithDescription("Number of provider attempts, including retries"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	running, err := meter.Int64UpDownCounter(
		"hustsync_job_running",
		metric.WithDescription("Number of jobs currently holding a concurrency slot"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	return &JobMetrics{
		syncDuration: syncDuration,
		attempts:     attempts,
		running:      running,
	}, nil
}

// RecordSyncDuration records a finished run with its final status
func (m *JobMetrics) RecordSyncDuration(ctx context.Context, mirror, outcome string, duration time.Duration) {
	if m == nil || m.syncDuration == nil {
		return
	}
	m.syncDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("mirror", mirror),
		attribute.String("status", outcome),
	))
}

// RecordAttempt counts one provider attempt
func (m *JobMetrics) RecordAttempt(ctx context.Context, mirror string, success bool) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mirror", mirror),
		attribute.Bool("success", success),
	))
}

// AddRunning moves the running job gauge by delta
func (m *JobMetrics) AddRunning(ctx context.Context, delta int64) {
	if m == nil || m.running == nil {
		return
	}
	m.running.Add(ctx, delta)
}

// FleetMetrics holds the instruments recorded by the manager
type FleetMetrics struct {
	statusUpdates metric.Int64Counter
	workers       metric.Int64Gauge
}

// NewFleetMetrics creates manager instruments. A nil provider yields nil.
func NewFleetMetrics(provider metric.MeterProvider) (*FleetMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(FleetMetricsMeterName)

	statusUpdates, err := meter.Int64Counter(
		"hustsync_manager_status_updates_total",
		metric.WithDescription("Mirror status reports accepted or rejected by the manager"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, err
	}

	workers, err := meter.Int64Gauge(
		"hustsync_manager_workers",
		metric.WithDescription("Number of registered workers"),
		metric.WithUnit("{worker}"),
	)
	if err != nil {
		return nil, err
	}

	return &FleetMetrics{
		statusUpdates: statusUpdates,
		workers:       workers,
	}, nil
}

// RecordStatusUpdate counts one status report by worker and outcome
func (m *FleetMetrics) RecordStatusUpdate(ctx context.Context, workerID, syncStatus string, accepted bool) {
	if m == nil || m.statusUpdates == nil {
		return
	}
	m.statusUpdates.Add(ctx, 1, metric.WithAttributes(
		attribute.String("worker", workerID),
		attribute.String("status", syncStatus),
		attribute.Bool("accepted", accepted),
	))
}

// RecordWorkers records the number of registered workers
func (m *FleetMetrics) RecordWorkers(ctx context.Context, count int64) {
	if m == nil || m.workers == nil {
		return
	}
	m.workers.Record(ctx, count)
}
