package sources_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comfforts/logger"

	"github.com/hankgalt/watch-history/internal/usecase/aggregator/sources"
)

const testS3Bucket = "watch-events"

// s3Pages serves a paged ListObjectsV2 listing & the objects in it.
func s3Pages(t *testing.T, pages [][]string, objects map[string]string) *httptest.Server {
	t.Helper()
	modTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/"+testS3Bucket)
		key = strings.TrimPrefix(key, "/")

		if key == "" && r.URL.Query().Get("list-type") == "2" {
			page := 0
			if tok := r.URL.Query().Get("continuation-token"); tok != "" {
				if _, err := fmt.Sscanf(tok, "page-%d", &page); err != nil || page >= len(pages) {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
			}
			var sb strings.Builder
			sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
			sb.WriteString(`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
			fmt.Fprintf(&sb, "<Name>%s</Name><MaxKeys>1000</MaxKeys>", testS3Bucket)
			if page+1 < len(pages) {
				fmt.Fprintf(&sb, "<IsTruncated>true</IsTruncated><NextContinuationToken>page-%d</NextContinuationToken>", page+1)
			} else {
				sb.WriteString("<IsTruncated>false</IsTruncated>")
			}
			for _, k := range pages[page] {
				fmt.Fprintf(&sb, `<Contents><Key>%s</Key><LastModified>2024-01-01T00:00:00.000Z</LastModified><ETag>"etag"</ETag><Size>%d</Size></Contents>`, k, len(objects[k]))
			}
			sb.WriteString("</ListBucketResult>")
			w.Header().Set("Content-Type", "application/xml")
			_, _ = io.WriteString(w, sb.String())
			return
		}

		body, ok := objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("ETag", `"etag"`)
		w.Header().Set("Content-Type", "application/json")
		http.ServeContent(w, r, key, modTime, bytes.NewReader([]byte(body)))
	}))
}

func TestS3JSONSource_ListsEveryPageAndOpens(t *testing.T) {
	ctx := logger.WithLogger(context.Background(), logger.GetSlogLogger())

	objects := map[string]string{
		"2024/a.json": `{"movieId":"m1"}`,
		"notes.txt":   "skip me",
		"b.json":      `{"movieId":"m2"}`,
		"b.json.bak":  "skip me too",
	}
	srv := s3Pages(t, [][]string{{"2024/a.json", "notes.txt"}, {"b.json", "b.json.bak"}}, objects)
	defer srv.Close()

	src, err := sources.S3JSONConfig{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		Region:    "us-east-1",
		Bucket:    testS3Bucket,
		AccessKey: "test",
		SecretKey: "secret",
	}.BuildSource(ctx)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, src.Close(ctx))
	}()
	require.Equal(t, sources.S3JSONSource, src.Name())

	ids, err := src.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"2024/a.json", "b.json"}, ids)

	rc, err := src.Open(ctx, "b.json")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, `{"movieId":"m2"}`, string(b))

	_, err = src.Open(ctx, "missing.json")
	require.Error(t, err)
}

func TestS3JSONSource_List(t *testing.T) {
	bucket, endpoint := os.Getenv("S3_TEST_BUCKET"), os.Getenv("S3_ENDPOINT")
	if bucket == "" || endpoint == "" {
		t.Skipf("S3_TEST_BUCKET or S3_ENDPOINT not set, skipping S3 source test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	src, err := sources.S3JSONConfig{
		Endpoint:  endpoint,
		Region:    os.Getenv("S3_REGION"),
		Bucket:    bucket,
		Prefix:    os.Getenv("SOURCE_PREFIX"),
		AccessKey: os.Getenv("S3_ACCESS_KEY"),
		SecretKey: os.Getenv("S3_SECRET_KEY"),
		UseSSL:    os.Getenv("S3_USE_SSL") != "false",
	}.BuildSource(ctx)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, src.Close(ctx))
	}()

	ids, err := src.List(ctx)
	require.NoError(t, err)
	for _, id := range ids {
		require.True(t, strings.HasSuffix(id, sources.JSONSuffix))
	}
	if len(ids) == 0 {
		return
	}

	rc, err := src.Open(ctx, ids[0])
	require.NoError(t, err)
	_, err = io.Copy(io.Discard, rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
}

func TestS3JSONConfig_RequiresBucket(t *testing.T) {
	_, err := sources.S3JSONConfig{}.BuildSource(context.Background())
	require.ErrorIs(t, err, sources.ErrS3JSONBucketRequired)
}
