package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/comfforts/logger"

	"github.com/hankgalt/watch-history/internal/domain/watch"
)

const LocalJSONSource = "local-json-source"

// JSONSuffix is the suffix of watch event files.
const JSONSuffix = ".json"

const (
	ERR_LOCAL_JSON_PATH_REQUIRED = "local json: path is required"
	ERR_LOCAL_JSON_DIR_OPEN      = "local json: open directory"
	ERR_LOCAL_JSON_NOT_DIR       = "local json: path is not a directory"
	ERR_LOCAL_JSON_OUTSIDE_ROOT  = "local json: file is outside source directory"
)

var (
	ErrLocalJSONPathRequired = errors.New(ERR_LOCAL_JSON_PATH_REQUIRED)
	ErrLocalJSONDirOpen      = errors.New(ERR_LOCAL_JSON_DIR_OPEN)
	ErrLocalJSONNotDir       = errors.New(ERR_LOCAL_JSON_NOT_DIR)
	ErrLocalJSONOutsideRoot  = errors.New(ERR_LOCAL_JSON_OUTSIDE_ROOT)
)

// localJSONSource reads watch event files from a local directory tree.
// File ids are slash separated paths relative to the directory.
type localJSONSource struct {
	path string
}

// Name of the source.
func (s *localJSONSource) Name() string { return LocalJSONSource }

// Close closes the local JSON source.
func (s *localJSONSource) Close(ctx context.Context) error {
	// No resources to close for local JSON source
	return nil
}

// List walks the directory & returns every .json file, in lexical order.
func (s *localJSONSource) List(ctx context.Context) ([]string, error) {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	ids := []string{}
	err = filepath.WalkDir(s.path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), JSONSuffix) {
			return nil
		}
		rel, err := filepath.Rel(s.path, p)
		if err != nil {
			return err
		}
		ids = append(ids, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		l.Error("error reading local json directory", "path", s.path, "error", err.Error())
		return nil, fmt.Errorf("%w: %w", ErrLocalJSONDirOpen, err)
	}

	slices.Sort(ids)
	l.Debug("local json files listed", "path", s.path, "files", len(ids))
	return ids, nil
}

// Open opens a file listed by List. Ids must stay within the directory.
func (s *localJSONSource) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	rel := filepath.FromSlash(fileID)
	if !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("%w: %s", ErrLocalJSONOutsideRoot, fileID)
	}
	return os.Open(filepath.Join(s.path, rel))
}

// Local JSON source config.
type LocalJSONConfig struct {
	Path string
}

// Name of the source.
func (c LocalJSONConfig) Name() string { return LocalJSONSource }

// BuildSource builds a local JSON source from the config.
func (c LocalJSONConfig) BuildSource(ctx context.Context) (watch.Source, error) {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	if c.Path == "" {
		l.Error("local json source: path is required")
		return nil, ErrLocalJSONPathRequired
	}

	fi, err := os.Stat(c.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLocalJSONDirOpen, err)
	}
	if !fi.IsDir() {
		return nil, ErrLocalJSONNotDir
	}

	return &localJSONSource{
		path: filepath.Clean(c.Path),
	}, nil
}
