package aggregator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/hankgalt/watch-history/internal/usecase/aggregator"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator/decoders"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator/stores"
)

func sumOf(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if s, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestRun_RecordsMetrics(t *testing.T) {
	ctx := context.Background()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(mp)
	defer func() {
		otel.SetMeterProvider(prev)
		require.NoError(t, mp.Shutdown(ctx))
	}()

	src := newFakeSource(map[string]string{
		"a.json": eventLine("m1", "c1", "2020-01-01") + "\nbad\n",
		"b.json": eventLine("m2", "c2", "2020-01-01") + "\n",
	})
	src.failures["b.json"] = 1

	agg, err := aggregator.New(testRunConfig(), src, decoders.NewJSONLineDecoder(), stores.NewMemoryStore())
	require.NoError(t, err)
	_, err = agg.Run(ctx)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Equal(t, int64(2), sumOf(rm, "watch_history_files_ingested"))
	require.Equal(t, int64(1), sumOf(rm, "watch_history_file_retries"))
	require.Equal(t, int64(1), sumOf(rm, "watch_history_malformed_records"))
	require.Equal(t, int64(2), sumOf(rm, "watch_history_customers_merged"))
}
