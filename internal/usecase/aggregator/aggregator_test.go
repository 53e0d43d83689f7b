package aggregator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comfforts/logger"

	"github.com/hankgalt/watch-history/internal/domain/watch"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator/decoders"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator/stores"
)

func TestNew_RejectsInvalidInputs(t *testing.T) {
	src := newFakeSource(nil)
	dec := decoders.NewJSONLineDecoder()
	st := stores.NewMemoryStore()

	_, err := aggregator.New(watch.RunConfig{BatchSize: -1}, src, dec, st)
	require.ErrorIs(t, err, watch.ErrBatchSizeInvalid)
	require.True(t, watch.IsConfigError(err))

	_, err = aggregator.New(watch.RunConfig{MaxRetries: -1}, src, dec, st)
	require.ErrorIs(t, err, watch.ErrMaxRetriesInvalid)

	_, err = aggregator.New(watch.RunConfig{}, nil, dec, st)
	require.ErrorIs(t, err, watch.ErrMissingSource)

	_, err = aggregator.New(watch.RunConfig{}, src, nil, st)
	require.ErrorIs(t, err, watch.ErrMissingDecoder)

	_, err = aggregator.New(watch.RunConfig{}, src, dec, nil)
	require.ErrorIs(t, err, watch.ErrMissingStore)
}

func TestRun_EnumerationFailure(t *testing.T) {
	src := newFakeSource(nil)
	src.listErr = errors.New("bucket not found")

	agg, err := aggregator.New(testRunConfig(), src, decoders.NewJSONLineDecoder(), stores.NewMemoryStore())
	require.NoError(t, err)

	sum, err := agg.Run(context.Background())
	require.Nil(t, sum)
	require.ErrorIs(t, err, watch.ErrSourceEnumeration)
	require.ErrorContains(t, err, "bucket not found")
}

func TestRun_EmptySource(t *testing.T) {
	agg, err := aggregator.New(testRunConfig(), newFakeSource(map[string]string{}), decoders.NewJSONLineDecoder(), stores.NewMemoryStore())
	require.NoError(t, err)

	sum, err := agg.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, sum.RunID)
	require.Zero(t, sum.Files)
	require.Zero(t, sum.Batches)
}

func TestRun_EndToEnd(t *testing.T) {
	ctx := logger.WithLogger(context.Background(), logger.GetSlogLogger())

	st := stores.NewMemoryStore()
	persist(t, st, &watch.CustomerHistory{
		CustomerID:    "C1",
		WatchedMovies: []watch.WatchedMovie{movie("M1", "2021-01-01")},
	})

	src := newFakeSource(map[string]string{
		"1.json": eventLine("M1", "C1", "2019-01-01", "C2", "2020-01-01") + "\n",
		"2.json": eventLine("M1", "C2", "2020-06-01") + "\n",
		"3.json": eventLine("M2", "C1", "2022-02-02") + "\n",
	})
	cfg := testRunConfig()
	cfg.MergeWorkers = 4

	agg, err := aggregator.New(cfg, src, decoders.NewJSONLineDecoder(), st)
	require.NoError(t, err)
	sum, err := agg.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, sum.FilesSucceeded)
	require.Equal(t, 1, sum.CustomersNew)
	require.Equal(t, 2, sum.CustomersUpdated)

	c1, err := storedHistory(ctx, st, "C1")
	require.NoError(t, err)
	require.Equal(t, []watch.WatchedMovie{movie("M1", "2021-01-01"), movie("M2", "2022-02-02")}, c1.WatchedMovies)

	c2, err := storedHistory(ctx, st, "C2")
	require.NoError(t, err)
	require.Equal(t, []watch.WatchedMovie{movie("M1", "2020-06-01")}, c2.WatchedMovies)
}
