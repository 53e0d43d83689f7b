package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/comfforts/logger"

	"github.com/hankgalt/watch-history/internal/domain/watch"
)

const S3JSONSource = "s3-json-source"

const DEFAULT_S3_ENDPOINT = "s3.amazonaws.com"

const (
	ERR_S3_JSON_CLIENT_NIL      = "s3 json: client is not initialized"
	ERR_S3_JSON_BUCKET_REQUIRED = "s3 json: bucket name is required"
)

var (
	ErrS3JSONClientNil      = errors.New(ERR_S3_JSON_CLIENT_NIL)
	ErrS3JSONBucketRequired = errors.New(ERR_S3_JSON_BUCKET_REQUIRED)
)

// S3 compatible JSON source. File ids are object keys.
type s3JSONSource struct {
	bucket string
	prefix string
	client *minio.Client
}

// Name of the source.
func (s *s3JSONSource) Name() string { return S3JSONSource }

// Close closes the S3 source.
func (s *s3JSONSource) Close(ctx context.Context) error {
	// minio client holds no closable resources
	return nil
}

// List drains the object listing under the prefix & keeps the .json keys, in listing order.
func (s *s3JSONSource) List(ctx context.Context) ([]string, error) {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	if s.client == nil {
		return nil, ErrS3JSONClientNil
	}

	// cancel stops the listing goroutine if we bail out early
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ids := []string{}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			l.Error("error listing s3 objects", "bucket", s.bucket, "prefix", s.prefix, "error", obj.Err.Error())
			return nil, fmt.Errorf("s3 json: list %s/%s: %w", s.bucket, s.prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, JSONSuffix) {
			ids = append(ids, obj.Key)
		}
	}

	l.Debug("s3 json objects listed", "bucket", s.bucket, "prefix", s.prefix, "files", len(ids))
	return ids, nil
}

// Open fetches the object. The stat call surfaces missing objects before the first read.
func (s *s3JSONSource) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	if s.client == nil {
		return nil, ErrS3JSONClientNil
	}
	obj, err := s.client.GetObject(ctx, s.bucket, fileID, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3 json: get object %s in bucket %s: %w", fileID, s.bucket, err)
	}
	if _, err := obj.Stat(); err != nil {
		if cerr := obj.Close(); cerr != nil {
			l.Error("error closing s3 object", "bucket", s.bucket, "object", fileID, "error", cerr.Error())
		}
		return nil, fmt.Errorf("s3 json: stat object %s in bucket %s: %w", fileID, s.bucket, err)
	}
	return obj, nil
}

// S3 JSON source config. Empty keys fall back to the AWS_* environment credentials.
type S3JSONConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Name of the source.
func (c S3JSONConfig) Name() string { return S3JSONSource }

// BuildSource builds an S3 JSON source from the config.
func (c S3JSONConfig) BuildSource(ctx context.Context) (watch.Source, error) {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	if c.Bucket == "" {
		return nil, ErrS3JSONBucketRequired
	}
	if c.Endpoint == "" {
		c.Endpoint = DEFAULT_S3_ENDPOINT
	}

	creds := credentials.NewEnvAWS()
	if c.AccessKey != "" {
		creds = credentials.NewStaticV4(c.AccessKey, c.SecretKey, "")
	}

	client, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: c.UseSSL,
		Region: c.Region,
	})
	if err != nil {
		l.Error("s3: failed to create client", "endpoint", c.Endpoint, "error", err.Error())
		return nil, fmt.Errorf("s3 json: failed to create client: %w", err)
	}

	return &s3JSONSource{
		bucket: c.Bucket,
		prefix: c.Prefix,
		client: client,
	}, nil
}
