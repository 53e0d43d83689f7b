package sources_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hankgalt/watch-history/internal/usecase/aggregator/sources"
)

func TestCloudJSONSource_List(t *testing.T) {
	bucket := os.Getenv("BUCKET")
	if bucket == "" || os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skipf("BUCKET or GOOGLE_APPLICATION_CREDENTIALS not set, skipping GCS source test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	src, err := sources.CloudJSONConfig{Bucket: bucket, Prefix: os.Getenv("SOURCE_PREFIX")}.BuildSource(ctx)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, src.Close(ctx))
	}()

	ids, err := src.List(ctx)
	require.NoError(t, err)
	for _, id := range ids {
		require.True(t, strings.HasSuffix(id, sources.JSONSuffix))
	}
}

func TestCloudJSONConfig_RequiresBucket(t *testing.T) {
	_, err := sources.CloudJSONConfig{}.BuildSource(context.Background())
	require.ErrorIs(t, err, sources.ErrCloudJSONBucketRequired)
}
