package aggregate

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/hankgalt/watch-history/internal/domain/watch"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator/decoders"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator/stores"
)

const (
	ERR_TYPE_INVALID_RUN_CONFIG = "InvalidRunConfig"
	ERR_TYPE_BUILD_SOURCE       = "BuildSourceFailed"
	ERR_TYPE_BUILD_STORE        = "BuildStoreFailed"
	ERR_TYPE_SOURCE_ENUMERATION = "SourceEnumerationFailed"
)

const HEARTBEAT_INTERVAL = 20 * time.Second

// RunAggregationActivity builds the source & store named in the request
// and runs one aggregation over them.
func RunAggregationActivity[S watch.SourceConfig, D watch.StoreConfig](
	ctx context.Context,
	req *AggregateRequest[S, D],
) (*watch.RunSummary, error) {
	l := activity.GetLogger(ctx)
	l.Debug("RunAggregationActivity started", "source", req.Source.Name(), "store", req.Store.Name())

	cfg := req.Config.WithDefaults()
	if err := cfg.Validate(); err != nil {
		l.Error("invalid run config", "error", err.Error())
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ERR_TYPE_INVALID_RUN_CONFIG, err)
	}

	src, err := req.Source.BuildSource(ctx)
	if err != nil {
		l.Error("error building source", "error", err.Error())
		return nil, temporal.NewApplicationErrorWithCause(err.Error(), ERR_TYPE_BUILD_SOURCE, err)
	}
	defer func() {
		if err := src.Close(ctx); err != nil {
			l.Error("error closing source", "error", err.Error())
		}
	}()

	st, err := req.Store.BuildStore(ctx)
	if err != nil {
		l.Error("error building store", "error", err.Error())
		return nil, temporal.NewApplicationErrorWithCause(err.Error(), ERR_TYPE_BUILD_STORE, err)
	}
	defer func() {
		if err := st.Close(ctx); err != nil {
			l.Error("error closing store", "error", err.Error())
		}
	}()
	if req.Breaker {
		st = stores.NewBreakerStore(ctx, st, stores.BreakerConfig{})
	}

	agg, err := aggregator.New(cfg, src, decoders.NewJSONLineDecoder(), st)
	if err != nil {
		l.Error("error building aggregator", "error", err.Error())
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ERR_TYPE_INVALID_RUN_CONFIG, err)
	}

	stop := heartbeat(ctx, HEARTBEAT_INTERVAL)
	defer stop()

	sum, err := agg.Run(ctx)
	if err != nil {
		l.Error("error running aggregation", "error", err.Error())
		return nil, temporal.NewApplicationErrorWithCause(err.Error(), ERR_TYPE_SOURCE_ENUMERATION, err)
	}

	// record activity heartbeat
	activity.RecordHeartbeat(ctx, sum.Files)

	return sum, nil
}

// heartbeat records activity heartbeats until the returned func is called.
func heartbeat(ctx context.Context, every time.Duration) func() {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return cancel
}
