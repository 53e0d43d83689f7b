package aggregate

import (
	"os"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/workflow"

	"github.com/hankgalt/watch-history/internal/domain/watch"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator/sources"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator/stores"
)

const ApplicationName = "WatchHistoryTaskQueue"

// HostID identifies this host on the task queue: hostname, or a new UUID when unknown.
var HostID = hostName() + "_" + ApplicationName

func hostName() string {
	host, _ := os.Hostname()
	if host == "" {
		host = uuid.New().String()
	}
	return host
}

// AggregateRequest carries everything a worker needs to run one aggregation.
type AggregateRequest[S watch.SourceConfig, D watch.StoreConfig] struct {
	Config  watch.RunConfig `json:"config"`
	Source  S               `json:"source"`
	Store   D               `json:"store"`
	Breaker bool            `json:"breaker"` // wrap the store in a circuit breaker
}

type (
	LocalJSONRedisRequest  = AggregateRequest[sources.LocalJSONConfig, stores.RedisConfig]
	LocalJSONMongoRequest  = AggregateRequest[sources.LocalJSONConfig, stores.MongoConfig]
	LocalJSONBadgerRequest = AggregateRequest[sources.LocalJSONConfig, stores.BadgerConfig]
	LocalJSONMemoryRequest = AggregateRequest[sources.LocalJSONConfig, stores.MemoryConfig]
	CloudJSONRedisRequest  = AggregateRequest[sources.CloudJSONConfig, stores.RedisConfig]
	CloudJSONMongoRequest  = AggregateRequest[sources.CloudJSONConfig, stores.MongoConfig]
	S3JSONRedisRequest     = AggregateRequest[sources.S3JSONConfig, stores.RedisConfig]
	S3JSONMongoRequest     = AggregateRequest[sources.S3JSONConfig, stores.MongoConfig]
)

// WorkflowAlias names the workflow registered for a source & store pair.
func WorkflowAlias(source, store string) string {
	return "aggregate-" + source + "-" + store + "-workflow-alias"
}

// ActivityAlias names the activity registered for a source & store pair.
func ActivityAlias(source, store string) string {
	return "run-aggregation-" + source + "-" + store + "-activity-alias"
}

// Registry is satisfied by worker.Worker & the test workflow environment.
type Registry interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// RegisterPair registers the workflow & activity for one source & store pair.
func RegisterPair[S watch.SourceConfig, D watch.StoreConfig](r Registry) {
	var (
		s S
		d D
	)
	r.RegisterWorkflowWithOptions(
		AggregateWatchHistoryWorkflow[S, D],
		workflow.RegisterOptions{Name: WorkflowAlias(s.Name(), d.Name())},
	)
	r.RegisterActivityWithOptions(
		RunAggregationActivity[S, D],
		activity.RegisterOptions{Name: ActivityAlias(s.Name(), d.Name())},
	)
}

// RegisterAll registers every supported source & store pair.
func RegisterAll(r Registry) {
	RegisterPair[sources.LocalJSONConfig, stores.RedisConfig](r)
	RegisterPair[sources.LocalJSONConfig, stores.MongoConfig](r)
	RegisterPair[sources.LocalJSONConfig, stores.BadgerConfig](r)
	RegisterPair[sources.LocalJSONConfig, stores.MemoryConfig](r)
	RegisterPair[sources.CloudJSONConfig, stores.RedisConfig](r)
	RegisterPair[sources.CloudJSONConfig, stores.MongoConfig](r)
	RegisterPair[sources.S3JSONConfig, stores.RedisConfig](r)
	RegisterPair[sources.S3JSONConfig, stores.MongoConfig](r)
}
