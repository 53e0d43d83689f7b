package aggregator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/hankgalt/watch-history/internal/domain/watch"
)

const MeterName = "github.com/hankgalt/watch-history/aggregator"

// runMetrics records run counters on the global meter provider.
// Without an initialized provider the instruments are no-ops.
type runMetrics struct {
	filesIngested    metric.Int64Counter
	filesFailed      metric.Int64Counter
	fileRetries      metric.Int64Counter
	malformedRecords metric.Int64Counter
	customersMerged  metric.Int64Counter
	batchDuration    metric.Float64Histogram
}

func newRunMetrics(meter metric.Meter) *runMetrics {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}
	m, err := buildRunMetrics(meter)
	if err != nil {
		m, _ = buildRunMetrics(noop.NewMeterProvider().Meter(MeterName))
	}
	return m
}

func buildRunMetrics(meter metric.Meter) (*runMetrics, error) {
	var (
		m   runMetrics
		err error
	)
	if m.filesIngested, err = meter.Int64Counter(
		"watch_history_files_ingested",
		metric.WithDescription("source files fully ingested"),
	); err != nil {
		return nil, err
	}
	if m.filesFailed, err = meter.Int64Counter(
		"watch_history_files_failed",
		metric.WithDescription("source files that exhausted their retries"),
	); err != nil {
		return nil, err
	}
	if m.fileRetries, err = meter.Int64Counter(
		"watch_history_file_retries",
		metric.WithDescription("whole-file retry attempts"),
	); err != nil {
		return nil, err
	}
	if m.malformedRecords, err = meter.Int64Counter(
		"watch_history_malformed_records",
		metric.WithDescription("input lines skipped as malformed"),
	); err != nil {
		return nil, err
	}
	if m.customersMerged, err = meter.Int64Counter(
		"watch_history_customers_merged",
		metric.WithDescription("customer merges by outcome"),
	); err != nil {
		return nil, err
	}
	if m.batchDuration, err = meter.Float64Histogram(
		"watch_history_batch_duration_seconds",
		metric.WithDescription("ingest and merge time of one batch"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *runMetrics) recordFile(ctx context.Context, r watch.FileResult) {
	if r.Status == watch.FileSucceeded {
		m.filesIngested.Add(ctx, 1)
	} else {
		m.filesFailed.Add(ctx, 1)
	}
	if r.Attempts > 1 {
		m.fileRetries.Add(ctx, int64(r.Attempts-1))
	}
	if r.Malformed > 0 {
		m.malformedRecords.Add(ctx, int64(r.Malformed))
	}
}

func (m *runMetrics) recordCustomer(ctx context.Context, r watch.CustomerResult) {
	m.customersMerged.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(r.Outcome))))
}

func (m *runMetrics) recordBatch(ctx context.Context, d time.Duration) {
	m.batchDuration.Record(ctx, d.Seconds())
}
