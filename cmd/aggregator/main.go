package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/comfforts/logger"

	"github.com/hankgalt/watch-history/internal/domain/watch"
	"github.com/hankgalt/watch-history/internal/infra/observability"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator/decoders"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator/stores"
	envutils "github.com/hankgalt/watch-history/pkg/utils/environment"
)

const SERVICE_NAME = "watch-history-aggregator"

func main() {
	fmt.Println("Starting watch history aggregator - setting up logger instance")
	l := logger.GetSlogMultiLogger("data")

	// cancel the run on interrupt, files in flight finish their attempt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, l)

	if err := run(ctx); err != nil {
		l.Error("aggregation failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	runCfg, err := envutils.BuildRunConfig()
	if err != nil {
		return fmt.Errorf("error building run config: %w", err)
	}
	srcCfg, err := envutils.BuildSourceConfig()
	if err != nil {
		return fmt.Errorf("error building source config: %w", err)
	}
	storeCfg, breaker, err := envutils.BuildStoreConfig()
	if err != nil {
		return fmt.Errorf("error building store config: %w", err)
	}

	metricsAddr, otelEndpoint := envutils.BuildMetricsConfig()
	shutdown, err := observability.Init(ctx, observability.InitOptions{
		ServiceName:  SERVICE_NAME,
		MetricsAddr:  metricsAddr,
		OTLPEndpoint: otelEndpoint,
	})
	if err != nil {
		l.Error("error initializing observability, continuing without", "error", err.Error())
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				l.Error("error shutting down OTel", "error", err.Error())
			}
		}()
	}

	src, err := srcCfg.BuildSource(ctx)
	if err != nil {
		return fmt.Errorf("error building source %s: %w", srcCfg.Name(), err)
	}
	defer func() {
		if err := src.Close(context.Background()); err != nil {
			l.Error("error closing source", "source", src.Name(), "error", err.Error())
		}
	}()

	store, err := storeCfg.BuildStore(ctx)
	if err != nil {
		return fmt.Errorf("error building store %s: %w", storeCfg.Name(), err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			l.Error("error closing store", "store", store.Name(), "error", err.Error())
		}
	}()

	var backend watch.BackendStore = store
	if breaker {
		backend = stores.NewBreakerStore(ctx, store, stores.BreakerConfig{})
	}

	agg, err := aggregator.New(runCfg, src, decoders.NewJSONLineDecoder(), backend)
	if err != nil {
		return err
	}

	sum, err := agg.Run(ctx)
	if err != nil {
		return err
	}

	for _, f := range sum.FailedFiles {
		l.Warn("file not aggregated", "run-id", sum.RunID, "file", f)
	}
	for _, c := range sum.FailedCustomers {
		l.Warn("customer not merged", "run-id", sum.RunID, "customer", c.CustomerID, "error", c.Error)
	}
	if sum.Cancelled {
		return fmt.Errorf("run %s cancelled after %d batches", sum.RunID, sum.Batches)
	}
	return nil
}
