package aggregate

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/hankgalt/watch-history/internal/domain/watch"
)

const (
	DEFAULT_RUN_TIMEOUT       = 2 * time.Hour
	DEFAULT_HEARTBEAT_TIMEOUT = 2 * time.Minute
	DEFAULT_MAX_ATTEMPTS      = 3
)

// AggregateWatchHistoryWorkflow runs one aggregation on a worker & returns its summary.
// Run config errors are not retried.
func AggregateWatchHistoryWorkflow[S watch.SourceConfig, D watch.StoreConfig](
	ctx workflow.Context,
	req AggregateRequest[S, D],
) (*watch.RunSummary, error) {
	l := workflow.GetLogger(ctx)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: DEFAULT_RUN_TIMEOUT,
		HeartbeatTimeout:    DEFAULT_HEARTBEAT_TIMEOUT,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumAttempts:        DEFAULT_MAX_ATTEMPTS,
			NonRetryableErrorTypes: []string{ERR_TYPE_INVALID_RUN_CONFIG},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	alias := ActivityAlias(req.Source.Name(), req.Store.Name())
	l.Info("AggregateWatchHistoryWorkflow started", "activity", alias, "breaker", req.Breaker)

	var sum watch.RunSummary
	if err := workflow.ExecuteActivity(ctx, alias, &req).Get(ctx, &sum); err != nil {
		l.Error("aggregation activity failed", "activity", alias, "error", err.Error())
		return nil, err
	}

	l.Info(
		"AggregateWatchHistoryWorkflow completed",
		"run-id", sum.RunID,
		"files", sum.Files,
		"files-failed", sum.FilesFailed,
		"customers-new", sum.CustomersNew,
		"customers-updated", sum.CustomersUpdated,
		"customers-failed", sum.CustomersFailed,
	)
	return &sum, nil
}
