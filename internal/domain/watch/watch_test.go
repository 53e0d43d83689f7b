package watch_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hankgalt/watch-history/internal/domain/watch"
)

func TestIsMoreRecent(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		existing  string
		want      bool
		wantErr   bool
	}{
		{name: "later", candidate: "2021-01-02", existing: "2021-01-01", want: true},
		{name: "earlier", candidate: "2019-12-31", existing: "2020-01-01"},
		{name: "same day", candidate: "2020-01-01", existing: "2020-01-01"},
		{name: "across years", candidate: "2021-01-01", existing: "2020-12-31", want: true},
		{name: "bad candidate", candidate: "01/02/2021", existing: "2020-01-01", wantErr: true},
		{name: "bad existing", candidate: "2021-01-01", existing: "", wantErr: true},
		{name: "not a calendar date", candidate: "2021-02-30", existing: "2020-01-01", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := watch.IsMoreRecent(tt.candidate, tt.existing)
			if tt.wantErr {
				require.ErrorIs(t, err, watch.ErrDateParse)
				require.False(t, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeHistory_PersistedShape(t *testing.T) {
	b, err := watch.EncodeHistory(&watch.CustomerHistory{
		CustomerID: "c1",
		WatchedMovies: []watch.WatchedMovie{
			{MovieID: "m1", Title: "Heat", YearOfRelease: 1995, Rating: 5, Date: "2020-01-01"},
		},
	})
	require.NoError(t, err)
	require.JSONEq(t, `{
		"customerId": "c1",
		"watchedMovies": [
			{"movieId": "m1", "title": "Heat", "yearOfRelease": 1995, "rating": 5, "date": "2020-01-01"}
		]
	}`, string(b))

	b, err = watch.EncodeHistory(&watch.CustomerHistory{CustomerID: "c2"})
	require.NoError(t, err)
	require.JSONEq(t, `{"customerId": "c2", "watchedMovies": []}`, string(b))

	_, err = watch.EncodeHistory(nil)
	require.ErrorIs(t, err, watch.ErrSerialization)
}

func TestDecodeHistory(t *testing.T) {
	h, err := watch.DecodeHistory([]byte(`{"customerId":"c1","watchedMovies":[{"movieId":"m1","date":"2020-01-01"}]}`))
	require.NoError(t, err)
	require.Equal(t, "c1", h.CustomerID)
	require.Len(t, h.WatchedMovies, 1)

	_, err = watch.DecodeHistory([]byte(`[1, 2]`))
	require.ErrorIs(t, err, watch.ErrSerialization)
}

func TestCustomerKey(t *testing.T) {
	require.Equal(t, "customer:42", watch.CustomerKey("42"))
}

func TestRunConfig_WithDefaults(t *testing.T) {
	cfg := watch.RunConfig{}.WithDefaults()
	require.Equal(t, watch.DefaultRunConfig().BatchSize, cfg.BatchSize)
	require.Equal(t, cfg.BatchSize, cfg.Workers)
	require.Equal(t, watch.DEFAULT_MAX_RETRIES, cfg.MaxRetries)
	require.Equal(t, watch.DEFAULT_MERGE_WORKERS, cfg.MergeWorkers)
	require.NoError(t, cfg.Validate())

	cfg = watch.RunConfig{BatchSize: 4}.WithDefaults()
	require.Equal(t, 4, cfg.Workers)

	require.ErrorIs(t, watch.RunConfig{BatchSize: -1, MaxRetries: 1}.Validate(), watch.ErrBatchSizeInvalid)
	require.ErrorIs(t, watch.RunConfig{BatchSize: 1, Workers: -1, MaxRetries: 1}.Validate(), watch.ErrWorkersInvalid)
	require.ErrorIs(t, watch.RunConfig{BatchSize: 1}.Validate(), watch.ErrMaxRetriesInvalid)
}

func TestSummaries_CapFailureDetails(t *testing.T) {
	var ms watch.MergeSummary
	for i := 0; i < watch.MAX_REPORTED_FAILURES+50; i++ {
		ms.Add(watch.CustomerResult{CustomerID: fmt.Sprintf("f%d", i), Outcome: watch.CustomerFailed})
		ms.Add(watch.CustomerResult{CustomerID: fmt.Sprintf("n%d", i), Outcome: watch.CustomerNew})
	}
	require.Equal(t, watch.MAX_REPORTED_FAILURES+50, ms.Failed)
	require.Equal(t, watch.MAX_REPORTED_FAILURES+50, ms.New)
	require.Len(t, ms.Failures, watch.MAX_REPORTED_FAILURES)

	var rs watch.RunSummary
	for b := 0; b < 3; b++ {
		files := make([]watch.FileResult, 0, watch.MAX_REPORTED_FAILURES)
		for i := 0; i < watch.MAX_REPORTED_FAILURES; i++ {
			files = append(files, watch.FileResult{FileID: fmt.Sprintf("%d-%d.json", b, i), Status: watch.FileFailed, Attempts: 3})
		}
		rs.AddBatch(watch.BatchSummary{Index: b, Files: files, Merge: ms})
	}
	require.Equal(t, 3, rs.Batches)
	require.Equal(t, 3*watch.MAX_REPORTED_FAILURES, rs.FilesFailed)
	require.Equal(t, 3*watch.MAX_REPORTED_FAILURES, rs.FilesRetried)
	require.Equal(t, 3*(watch.MAX_REPORTED_FAILURES+50), rs.CustomersFailed)
	require.Len(t, rs.FailedFiles, watch.MAX_REPORTED_FAILURES)
	require.Len(t, rs.FailedCustomers, watch.MAX_REPORTED_FAILURES)
}
