package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/comfforts/logger"

	"github.com/hankgalt/watch-history/internal/domain/watch"
)

const (
	DEFAULT_BREAKER_MAX_REQUESTS      = 1
	DEFAULT_BREAKER_INTERVAL          = time.Minute
	DEFAULT_BREAKER_TIMEOUT           = 30 * time.Second
	DEFAULT_BREAKER_FAILURE_THRESHOLD = 5
)

// BreakerConfig configures the circuit breaker around a backend store.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32        // requests allowed through while half-open
	Interval         time.Duration // closed state counter reset period
	Timeout          time.Duration // open state duration before half-open
	FailureThreshold uint32        // consecutive failures that trip the breaker
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.MaxRequests == 0 {
		c.MaxRequests = DEFAULT_BREAKER_MAX_REQUESTS
	}
	if c.Interval == 0 {
		c.Interval = DEFAULT_BREAKER_INTERVAL
	}
	if c.Timeout == 0 {
		c.Timeout = DEFAULT_BREAKER_TIMEOUT
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = DEFAULT_BREAKER_FAILURE_THRESHOLD
	}
	return c
}

type getResult struct {
	val   []byte
	found bool
}

// BreakerStore stops calling a failing backend for a while once it keeps failing.
// Every failure, including an open circuit, is reported as watch.ErrBackendUnavailable.
type BreakerStore struct {
	next watch.BackendStore
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreakerStore(ctx context.Context, next watch.BackendStore, cfg BreakerConfig) *BreakerStore {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	cfg = cfg.withDefaults()
	if cfg.Name == "" {
		cfg.Name = next.Name()
	}
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("backend store circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerStore{next: next, cb: cb}
}

func (s *BreakerStore) Name() string { return s.next.Name() }

func (s *BreakerStore) Close(ctx context.Context) error {
	return s.next.Close(ctx)
}

// State returns the breaker state, e.g. "closed" or "open".
func (s *BreakerStore) State() string {
	return s.cb.State().String()
}

func (s *BreakerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := s.cb.Execute(func() (any, error) {
		val, found, err := s.next.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		return getResult{val: val, found: found}, nil
	})
	if err != nil {
		return nil, false, unavailable(err)
	}
	r := res.(getResult)
	return r.val, r.found, nil
}

func (s *BreakerStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.next.Set(ctx, key, value)
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	if errors.Is(err, watch.ErrBackendUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", watch.ErrBackendUnavailable, err)
}
