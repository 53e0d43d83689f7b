package temporal_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/comfforts/logger"
	"github.com/stretchr/testify/require"

	"github.com/hankgalt/watch-history/internal/infra/temporal"
	envutils "github.com/hankgalt/watch-history/pkg/utils/environment"
)

func TestConnectionBuilder_RequiresNamespaceAndHost(t *testing.T) {
	ctx := context.Background()

	_, _, _, err := temporal.NewConnectionBuilder(temporal.NewTemporalConfig("", "localhost:7233", "", "", "")).Build(ctx)
	require.ErrorIs(t, err, temporal.ErrRequiredParams)

	_, _, _, err = temporal.NewConnectionBuilder(temporal.NewTemporalConfig("default", "", "", "", "")).Build(ctx)
	require.ErrorIs(t, err, temporal.ErrRequiredParams)
}

func TestConnectionBuilder_WithoutMetrics(t *testing.T) {
	opts, shutdown, tracingInt, err := temporal.NewConnectionBuilder(
		temporal.NewTemporalConfig("default", "localhost:7233", "test-client", "", ""),
	).Build(context.Background())
	require.NoError(t, err)
	require.Nil(t, shutdown)
	require.Nil(t, tracingInt)
	require.Equal(t, "default", opts.Namespace)
	require.Equal(t, "localhost:7233", opts.HostPort)
	require.Equal(t, "test-client", opts.Identity)
}

func TestNewClient(t *testing.T) {
	if os.Getenv("TEMPORAL_HOST") == "" {
		t.Skipf("TEMPORAL_HOST not set, skipping temporal client test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithLogger(ctx, logger.GetSlogLogger())

	tc, err := temporal.NewClient(ctx, envutils.BuildTemporalConfig("TestNewClient"))
	require.NoError(t, err, "Failed to create Temporal client")
	require.NoError(t, tc.Close(ctx), "Failed to close Temporal client")
}
