package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/comfforts/logger"

	"github.com/hankgalt/watch-history/internal/domain/watch"
	"github.com/hankgalt/watch-history/internal/infra/temporal"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator/sources"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator/stores"
	"github.com/hankgalt/watch-history/internal/usecase/workflows/aggregate"
	envutils "github.com/hankgalt/watch-history/pkg/utils/environment"
)

const CLIENT_NAME = "aggregate-client"

// Starts an aggregation on the worker pool for the configured source & store
// & waits for its summary.
func main() {
	l := logger.GetSlogMultiLogger("data")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Hour)
	defer cancel()
	ctx = logger.WithLogger(ctx, l)

	if err := run(ctx); err != nil {
		l.Error("aggregation workflow failed", "error", err.Error())
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
		return err
	}
	srcCfg, err := envutils.BuildSourceConfig()
	if err != nil {
		return err
	}
	storeCfg, breaker, err := envutils.BuildStoreConfig()
	if err != nil {
		return err
	}

	req, err := buildRequest(runCfg, srcCfg, storeCfg, breaker)
	if err != nil {
		return err
	}

	tc, err := temporal.NewClient(ctx, envutils.BuildTemporalConfig(CLIENT_NAME))
	if err != nil {
		return err
	}
	defer func() {
		if err := tc.Close(context.Background()); err != nil {
			l.Error("error closing temporal client", "error", err.Error())
		}
	}()

	opts := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("aggregate-%s-%d", srcCfg.Name(), time.Now().Unix()),
		TaskQueue: aggregate.ApplicationName,
	}
	var sum watch.RunSummary
	if err := tc.Execute(ctx, opts, &sum, aggregate.WorkflowAlias(srcCfg.Name(), storeCfg.Name()), req); err != nil {
		return err
	}

	l.Info(
		"aggregation workflow completed",
		"run-id", sum.RunID,
		"files", sum.Files,
		"files-failed", sum.FilesFailed,
		"customers-new", sum.CustomersNew,
		"customers-updated", sum.CustomersUpdated,
		"customers-failed", sum.CustomersFailed,
	)
	return nil
}

func buildRequest(cfg watch.RunConfig, src watch.SourceConfig, st watch.StoreConfig, breaker bool) (any, error) {
	switch s := src.(type) {
	case sources.LocalJSONConfig:
		switch d := st.(type) {
		case stores.RedisConfig:
			return aggregate.LocalJSONRedisRequest{Config: cfg, Source: s, Store: d, Breaker: breaker}, nil
		case stores.MongoConfig:
			return aggregate.LocalJSONMongoRequest{Config: cfg, Source: s, Store: d, Breaker: breaker}, nil
		case stores.BadgerConfig:
			return aggregate.LocalJSONBadgerRequest{Config: cfg, Source: s, Store: d, Breaker: breaker}, nil
		case stores.MemoryConfig:
			return aggregate.LocalJSONMemoryRequest{Config: cfg, Source: s, Store: d}, nil
		}
	case sources.CloudJSONConfig:
		switch d := st.(type) {
		case stores.RedisConfig:
			return aggregate.CloudJSONRedisRequest{Config: cfg, Source: s, Store: d, Breaker: breaker}, nil
		case stores.MongoConfig:
			return aggregate.CloudJSONMongoRequest{Config: cfg, Source: s, Store: d, Breaker: breaker}, nil
		}
	case sources.S3JSONConfig:
		switch d := st.(type) {
		case stores.RedisConfig:
			return aggregate.S3JSONRedisRequest{Config: cfg, Source: s, Store: d, Breaker: breaker}, nil
		case stores.MongoConfig:
			return aggregate.S3JSONMongoRequest{Config: cfg, Source: s, Store: d, Breaker: breaker}, nil
		}
	}
	return nil, fmt.Errorf("no aggregation workflow registered for %s & %s", src.Name(), st.Name())
}
