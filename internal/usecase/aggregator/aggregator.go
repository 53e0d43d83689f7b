package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/comfforts/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hankgalt/watch-history/internal/domain/watch"
)

// Aggregator runs the discover, ingest & merge pipeline once.
type Aggregator struct {
	cfg       watch.RunConfig
	source    watch.Source
	scheduler *Scheduler
}

func New(cfg watch.RunConfig, src watch.Source, dec watch.RecordDecoder, store watch.BackendStore) (*Aggregator, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, watch.ErrMissingSource
	}
	if dec == nil {
		return nil, watch.ErrMissingDecoder
	}
	if store == nil {
		return nil, watch.ErrMissingStore
	}

	return &Aggregator{
		cfg:    cfg,
		source: src,
		scheduler: NewScheduler(
			NewIngester(src, dec, cfg),
			NewMergeEngine(store, cfg.MergeWorkers),
			cfg,
		),
	}, nil
}

// Run enumerates the source & processes every file.
// It fails only when the file set cannot be discovered.
func (a *Aggregator) Run(ctx context.Context) (*watch.RunSummary, error) {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	runID := uuid.NewString()
	startedAt := time.Now().UTC()

	ctx, span := otel.Tracer(MeterName).Start(ctx, "aggregate.run")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", runID), attribute.String("source", a.source.Name()))

	files, err := a.source.List(ctx)
	if err != nil {
		l.Error("error enumerating source files", "run-id", runID, "source", a.source.Name(), "error", err.Error())
		span.RecordError(err)
		span.SetStatus(codes.Error, "source enumeration failed")
		return nil, fmt.Errorf("%w: %s: %w", watch.ErrSourceEnumeration, a.source.Name(), err)
	}
	l.Info(
		"aggregation run started",
		"run-id", runID,
		"source", a.source.Name(),
		"files", len(files),
		"batch-size", a.cfg.BatchSize,
		"workers", a.cfg.Workers,
		"max-retries", a.cfg.MaxRetries,
	)

	sum := a.scheduler.Run(ctx, files)
	sum.RunID = runID
	sum.StartedAt = startedAt
	sum.Duration = time.Since(startedAt)
	span.SetAttributes(
		attribute.Int("files", sum.Files),
		attribute.Int("files.failed", sum.FilesFailed),
		attribute.Int("customers.failed", sum.CustomersFailed),
	)

	l.Info(
		"aggregation run completed",
		"run-id", runID,
		"files", sum.Files,
		"files-succeeded", sum.FilesSucceeded,
		"files-failed", sum.FilesFailed,
		"files-retried", sum.FilesRetried,
		"malformed-records", sum.MalformedRecords,
		"customers-new", sum.CustomersNew,
		"customers-updated", sum.CustomersUpdated,
		"customers-failed", sum.CustomersFailed,
		"cancelled", sum.Cancelled,
		"duration", sum.Duration.String(),
	)
	return &sum, nil
}
