package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/comfforts/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hankgalt/watch-history/internal/domain/watch"
)

// Scheduler runs files through ingestion in fixed-size batches, merging each
// batch before the next one starts.
type Scheduler struct {
	ingester *Ingester
	merger   *MergeEngine
	cfg      watch.RunConfig
	metrics  *runMetrics
}

func NewScheduler(in *Ingester, me *MergeEngine, cfg watch.RunConfig) *Scheduler {
	return &Scheduler{
		ingester: in,
		merger:   me,
		cfg:      cfg.WithDefaults(),
		metrics:  newRunMetrics(nil),
	}
}

// Partition splits ids into contiguous groups of at most size ids, keeping order.
func Partition(ids []string, size int) [][]string {
	if size <= 0 {
		size = watch.DEFAULT_BATCH_SIZE
	}
	groups := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		groups = append(groups, ids[start:end:end])
	}
	return groups
}

// Run schedules every batch in order. File & customer failures never stop the run,
// a cancelled context stops it before the next batch.
func (s *Scheduler) Run(ctx context.Context, fileIDs []string) watch.RunSummary {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	var sum watch.RunSummary
	groups := Partition(fileIDs, s.cfg.BatchSize)
	for i, group := range groups {
		if err := ctx.Err(); err != nil {
			l.Warn("run cancelled, skipping remaining batches", "next-batch", i, "batches", len(groups), "error", err.Error())
			sum.Cancelled = true
			break
		}
		sum.AddBatch(s.RunBatch(ctx, i, group))
	}
	return sum
}

// RunBatch ingests a group of files concurrently into a fresh aggregation map,
// waits for every file, then merges the map into the backend store.
func (s *Scheduler) RunBatch(ctx context.Context, index int, fileIDs []string) watch.BatchSummary {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	ctx, span := otel.Tracer(MeterName).Start(ctx, "aggregate.batch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.index", index), attribute.Int("batch.files", len(fileIDs)))

	start := time.Now()
	aggMap := NewAggregationMap()
	results := make([]watch.FileResult, len(fileIDs))

	sem := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup
	for i, id := range fileIDs {
		wg.Add(1)
		sem <- struct{}{} // acquire slot
		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-sem }() // release slot
			results[i] = s.ingester.IngestFile(ctx, id, aggMap)
		}(i, id)
	}
	wg.Wait()

	l.Debug("batch ingested", "batch", index, "files", len(fileIDs), "customers", aggMap.Len())

	merge := s.merger.MergeBatch(ctx, aggMap)
	b := watch.BatchSummary{
		Index:    index,
		Files:    results,
		Merge:    merge,
		Duration: time.Since(start),
	}
	s.metrics.recordBatch(ctx, b.Duration)
	l.Info(
		"batch completed",
		"batch", index,
		"files", len(fileIDs),
		"customers-new", merge.New,
		"customers-updated", merge.Updated,
		"customers-failed", merge.Failed,
		"duration", b.Duration.String(),
	)
	return b
}
