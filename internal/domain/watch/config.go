package watch

import "time"

const (
	DEFAULT_BATCH_SIZE      = 10
	DEFAULT_MAX_RETRIES     = 3
	DEFAULT_ATTEMPT_TIMEOUT = 2 * time.Minute
	DEFAULT_RETRY_BACKOFF   = 500 * time.Millisecond
	DEFAULT_MERGE_WORKERS   = 1
)

// RunConfig holds the tunables of one aggregation run.
type RunConfig struct {
	BatchSize      int           `json:"batchSize" env:"AGG_BATCH_SIZE" envDefault:"10"`          // files per batch
	Workers        int           `json:"workers" env:"AGG_WORKERS" envDefault:"0"`                // ingestion pool size, 0 means batch size
	MaxRetries     int           `json:"maxRetries" env:"AGG_MAX_RETRIES" envDefault:"3"`         // total attempts per file
	AttemptTimeout time.Duration `json:"attemptTimeout" env:"AGG_ATTEMPT_TIMEOUT" envDefault:"2m"` // bound on a single file attempt, 0 disables
	RetryBackoff   time.Duration `json:"retryBackoff" env:"AGG_RETRY_BACKOFF" envDefault:"500ms"`  // linear backoff step between attempts
	MergeWorkers   int           `json:"mergeWorkers" env:"AGG_MERGE_WORKERS" envDefault:"1"`      // concurrent customer merges within a batch
}

// DefaultRunConfig returns the stock run configuration.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		BatchSize:      DEFAULT_BATCH_SIZE,
		Workers:        DEFAULT_BATCH_SIZE,
		MaxRetries:     DEFAULT_MAX_RETRIES,
		AttemptTimeout: DEFAULT_ATTEMPT_TIMEOUT,
		RetryBackoff:   DEFAULT_RETRY_BACKOFF,
		MergeWorkers:   DEFAULT_MERGE_WORKERS,
	}
}

// WithDefaults fills zero values with defaults. Workers defaults to the batch size.
func (c RunConfig) WithDefaults() RunConfig {
	if c.BatchSize == 0 {
		c.BatchSize = DEFAULT_BATCH_SIZE
	}
	if c.Workers == 0 {
		c.Workers = c.BatchSize
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DEFAULT_MAX_RETRIES
	}
	if c.MergeWorkers <= 0 {
		c.MergeWorkers = DEFAULT_MERGE_WORKERS
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c RunConfig) Validate() error {
	if c.BatchSize <= 0 {
		return ErrBatchSizeInvalid
	}
	if c.Workers < 0 {
		return ErrWorkersInvalid
	}
	if c.MaxRetries <= 0 {
		return ErrMaxRetriesInvalid
	}
	return nil
}
