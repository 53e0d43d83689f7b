package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/comfforts/logger"

	"github.com/hankgalt/watch-history/internal/domain/watch"
)

const CloudJSONSource = "cloud-json-source"

const (
	ERR_CLOUD_JSON_CLIENT_NIL          = "cloud json: client is not initialized"
	ERR_CLOUD_JSON_BUCKET_REQUIRED     = "cloud json: bucket name is required"
	ERR_CLOUD_JSON_MISSING_CREDENTIALS = "cloud json: missing credentials path"
)

var (
	ErrCloudJSONClientNil          = errors.New(ERR_CLOUD_JSON_CLIENT_NIL)
	ErrCloudJSONBucketRequired     = errors.New(ERR_CLOUD_JSON_BUCKET_REQUIRED)
	ErrCloudJSONMissingCredentials = errors.New(ERR_CLOUD_JSON_MISSING_CREDENTIALS)
)

// Cloud (GCS) JSON source. File ids are object names.
type cloudJSONSource struct {
	bucket string
	prefix string
	client *storage.Client
}

// Name of the source.
func (s *cloudJSONSource) Name() string { return CloudJSONSource }

// Close closes the storage client.
func (s *cloudJSONSource) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// List pages through every object under the prefix & keeps the .json ones, in listing order.
func (s *cloudJSONSource) List(ctx context.Context) ([]string, error) {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	if s.client == nil {
		return nil, ErrCloudJSONClientNil
	}

	q := &storage.Query{Prefix: s.prefix}
	if err := q.SetAttrSelection([]string{"Name"}); err != nil {
		return nil, fmt.Errorf("cloud json: set attr selection: %w", err)
	}

	ids := []string{}
	it := s.client.Bucket(s.bucket).Objects(ctx, q)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			l.Error("error listing cloud objects", "bucket", s.bucket, "prefix", s.prefix, "error", err.Error())
			return nil, fmt.Errorf("cloud json: list %s/%s: %w", s.bucket, s.prefix, err)
		}
		if strings.HasSuffix(attrs.Name, JSONSuffix) {
			ids = append(ids, attrs.Name)
		}
	}

	l.Debug("cloud json objects listed", "bucket", s.bucket, "prefix", s.prefix, "files", len(ids))
	return ids, nil
}

// Open creates a reader for the object.
func (s *cloudJSONSource) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if s.client == nil {
		return nil, ErrCloudJSONClientNil
	}
	rc, err := s.client.Bucket(s.bucket).Object(fileID).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("cloud json: error creating reader for object %s in bucket %s: %w", fileID, s.bucket, err)
	}
	return rc, nil
}

// Cloud (GCS) JSON source config.
type CloudJSONConfig struct {
	Bucket string
	Prefix string
}

// Name of the source.
func (c CloudJSONConfig) Name() string { return CloudJSONSource }

// BuildSource builds a GCS JSON source from the config.
// Ensure the environment variable is set for GCP credentials.
func (c CloudJSONConfig) BuildSource(ctx context.Context) (watch.Source, error) {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	if c.Bucket == "" {
		return nil, ErrCloudJSONBucketRequired
	}

	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		return nil, ErrCloudJSONMissingCredentials
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		l.Error("cloud storage: failed to create client", "error", err.Error())
		return nil, fmt.Errorf("cloud json: failed to create storage client: %w", err)
	}

	return &cloudJSONSource{
		bucket: c.Bucket,
		prefix: c.Prefix,
		client: client,
	}, nil
}
