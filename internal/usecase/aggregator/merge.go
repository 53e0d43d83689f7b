package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/comfforts/logger"

	"github.com/hankgalt/watch-history/internal/domain/watch"
)

// DateErrFunc is called when two watch dates of a movie cannot be compared.
type DateErrFunc func(movieID string, err error)

// MergeEngine reconciles a batch's accumulated histories with persisted state.
type MergeEngine struct {
	store   watch.BackendStore
	workers int
	metrics *runMetrics
}

func NewMergeEngine(store watch.BackendStore, workers int) *MergeEngine {
	if workers <= 0 {
		workers = watch.DEFAULT_MERGE_WORKERS
	}
	return &MergeEngine{
		store:   store,
		workers: workers,
		metrics: newRunMetrics(nil),
	}
}

// MergeBatch merges & persists every customer in aggMap.
// A failing customer is counted & logged, the rest of the batch carries on.
func (e *MergeEngine) MergeBatch(ctx context.Context, aggMap *AggregationMap) watch.MergeSummary {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	ids := aggMap.CustomerIDs()
	results := make([]watch.CustomerResult, len(ids))

	mergeAt := func(i int) {
		h, ok := aggMap.History(ids[i])
		if !ok {
			results[i] = watch.CustomerResult{
				CustomerID: ids[i],
				Outcome:    watch.CustomerFailed,
				Error:      "customer missing from aggregation map",
			}
			return
		}
		results[i] = e.MergeCustomer(ctx, h)
	}

	if e.workers <= 1 {
		for i := range ids {
			mergeAt(i)
		}
	} else {
		sem := make(chan struct{}, e.workers)
		var wg sync.WaitGroup
		for i := range ids {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				mergeAt(i)
			}(i)
		}
		wg.Wait()
	}

	var sum watch.MergeSummary
	for _, r := range results {
		sum.Add(r)
		e.metrics.recordCustomer(ctx, r)
	}
	l.Info("batch merged", "customers", len(ids), "new", sum.New, "updated", sum.Updated, "failed", sum.Failed)
	return sum
}

// MergeCustomer reads the customer's persisted history, merges the accumulated
// entries into it & writes the result back.
func (e *MergeEngine) MergeCustomer(ctx context.Context, h *watch.CustomerHistory) watch.CustomerResult {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	res := watch.CustomerResult{CustomerID: h.CustomerID}
	fail := func(err error) watch.CustomerResult {
		l.Error("error merging customer history", "customer", h.CustomerID, "error", err.Error())
		res.Outcome = watch.CustomerFailed
		res.Error = err.Error()
		return res
	}
	onDateErr := func(movieID string, err error) {
		l.Warn(
			"watch date comparison failed, keeping current entry",
			"customer", h.CustomerID,
			"movie", movieID,
			"error", err.Error(),
		)
	}

	key := watch.CustomerKey(h.CustomerID)
	stored, found, err := e.store.Get(ctx, key)
	if err != nil {
		return fail(backendError("get", key, err))
	}

	merged := &watch.CustomerHistory{CustomerID: h.CustomerID}
	if !found {
		merged.WatchedMovies = Dedup(h.WatchedMovies, onDateErr)
		res.Outcome = watch.CustomerNew
	} else {
		prev, err := watch.DecodeHistory(stored)
		if err != nil {
			return fail(fmt.Errorf("decode %s: %w", key, err))
		}
		merged.WatchedMovies = MergeHistories(prev.WatchedMovies, h.WatchedMovies, onDateErr)
		res.Outcome = watch.CustomerUpdated
	}

	b, err := watch.EncodeHistory(merged)
	if err != nil {
		return fail(fmt.Errorf("encode %s: %w", key, err))
	}
	if err := e.store.Set(ctx, key, b); err != nil {
		return fail(backendError("set", key, err))
	}

	res.Movies = len(merged.WatchedMovies)
	l.Debug("customer history written", "customer", h.CustomerID, "outcome", res.Outcome, "movies", res.Movies)
	return res
}

// MergeHistories folds candidates into existing, one entry per movie id.
// An entry is replaced only by a candidate with a strictly later watch date,
// so the winner doesn't depend on arrival order. Entries keep first-seen order.
func MergeHistories(existing, candidates []watch.WatchedMovie, onDateErr DateErrFunc) []watch.WatchedMovie {
	idx := make(map[string]int, len(existing)+len(candidates))
	out := make([]watch.WatchedMovie, 0, len(existing)+len(candidates))

	fold := func(m watch.WatchedMovie) {
		i, ok := idx[m.MovieID]
		if !ok {
			idx[m.MovieID] = len(out)
			out = append(out, m)
			return
		}
		newer, err := watch.IsMoreRecent(m.Date, out[i].Date)
		if err != nil && onDateErr != nil {
			onDateErr(m.MovieID, err)
		}
		if newer {
			out[i] = m
		}
	}

	// persisted records written before dedup may carry duplicates too
	for _, m := range existing {
		fold(m)
	}
	for _, m := range candidates {
		fold(m)
	}
	return out
}

// Dedup reduces accumulated entries to the most recent one per movie id.
func Dedup(candidates []watch.WatchedMovie, onDateErr DateErrFunc) []watch.WatchedMovie {
	return MergeHistories(nil, candidates, onDateErr)
}

func backendError(op, key string, err error) error {
	if errors.Is(err, watch.ErrBackendUnavailable) {
		return fmt.Errorf("%s %s: %w", op, key, err)
	}
	return fmt.Errorf("%w: %s %s: %w", watch.ErrBackendUnavailable, op, key, err)
}
