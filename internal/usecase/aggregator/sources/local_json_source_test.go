package sources_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hankgalt/watch-history/internal/usecase/aggregator/sources"
)

func TestLocalJSONSource_ListAndOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "2024", "01"), 0o755))
	files := []struct{ name, body string }{
		{"b.json", `{"movieId":"m2"}`},
		{"a.json", `{"movieId":"m1"}`},
		{"notes.txt", "skip me"},
		{filepath.Join("2024", "01", "c.json"), `{"movieId":"m3"}`},
	}
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f.name), []byte(f.body), 0o644))
	}

	src, err := sources.LocalJSONConfig{Path: dir}.BuildSource(ctx)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, src.Close(ctx))
	}()
	require.Equal(t, sources.LocalJSONSource, src.Name())

	ids, err := src.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"2024/01/c.json", "a.json", "b.json"}, ids)

	rc, err := src.Open(ctx, "2024/01/c.json")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, `{"movieId":"m3"}`, string(b))

	_, err = src.Open(ctx, "../outside.json")
	require.ErrorIs(t, err, sources.ErrLocalJSONOutsideRoot)
}

func TestLocalJSONConfig_BuildSourceErrors(t *testing.T) {
	ctx := context.Background()

	_, err := sources.LocalJSONConfig{}.BuildSource(ctx)
	require.ErrorIs(t, err, sources.ErrLocalJSONPathRequired)

	_, err = sources.LocalJSONConfig{Path: filepath.Join(t.TempDir(), "missing")}.BuildSource(ctx)
	require.ErrorIs(t, err, sources.ErrLocalJSONDirOpen)

	file := filepath.Join(t.TempDir(), "file.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o644))
	_, err = sources.LocalJSONConfig{Path: file}.BuildSource(ctx)
	require.ErrorIs(t, err, sources.ErrLocalJSONNotDir)
}

func TestLocalJSONSource_EmptyDir(t *testing.T) {
	ctx := context.Background()
	src, err := sources.LocalJSONConfig{Path: t.TempDir()}.BuildSource(ctx)
	require.NoError(t, err)

	ids, err := src.List(ctx)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestLocalJSONSource_OpenConfinedToDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "..2020.json"), []byte(`{"movieId":"m1"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a..b.json"), []byte(`{"movieId":"m2"}`), 0o644))

	src, err := sources.LocalJSONConfig{Path: dir}.BuildSource(ctx)
	require.NoError(t, err)

	ids, err := src.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"..2020.json", "a..b.json"}, ids)
	for _, id := range ids {
		rc, err := src.Open(ctx, id)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
	}

	for _, id := range []string{"..", "../outside.json", "a/../../outside.json", "/etc/passwd", ""} {
		_, err := src.Open(ctx, id)
		require.ErrorIs(t, err, sources.ErrLocalJSONOutsideRoot, id)
	}
}
