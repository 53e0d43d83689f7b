package env

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	envparse "github.com/caarlos0/env/v11"

	"github.com/hankgalt/watch-history/internal/domain/infra"
	"github.com/hankgalt/watch-history/internal/domain/watch"
	"github.com/hankgalt/watch-history/internal/infra/mongostore"
	"github.com/hankgalt/watch-history/internal/infra/temporal"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator/sources"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator/stores"
)

const (
	DEFAULT_DATA_DIR    = "data"
	DEFAULT_DATA_PATH   = "watch-history"
	DEFAULT_SOURCE_TYPE = "local"
	DEFAULT_STORE_TYPE  = "redis"
	DEFAULT_METRICS     = ":9464"
)

const (
	SOURCE_TYPE_LOCAL = "local"
	SOURCE_TYPE_GCS   = "gcs"
	SOURCE_TYPE_S3    = "s3"
)

const (
	STORE_TYPE_REDIS  = "redis"
	STORE_TYPE_BADGER = "badger"
	STORE_TYPE_MONGO  = "mongo"
	STORE_TYPE_MEMORY = "memory"
)

const (
	ERR_UNKNOWN_SOURCE_TYPE = "unknown SOURCE_TYPE"
	ERR_UNKNOWN_STORE_TYPE  = "unknown STORE_TYPE"
	ERR_MISSING_BUCKET      = "BUCKET environment variable is not set"
)

var (
	ErrUnknownSourceType = errors.New(ERR_UNKNOWN_SOURCE_TYPE)
	ErrUnknownStoreType  = errors.New(ERR_UNKNOWN_STORE_TYPE)
	ErrMissingBucket     = errors.New(ERR_MISSING_BUCKET)
)

type sourceEnv struct {
	Type   string `env:"SOURCE_TYPE" envDefault:"local"`
	Dir    string `env:"SOURCE_DIR"`
	Bucket string `env:"BUCKET"`
	Prefix string `env:"SOURCE_PREFIX"`
}

type s3Env struct {
	Endpoint  string `env:"S3_ENDPOINT"`
	Region    string `env:"S3_REGION"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	UseSSL    bool   `env:"S3_USE_SSL" envDefault:"true"`
}

type storeEnv struct {
	Type    string `env:"STORE_TYPE" envDefault:"redis"`
	Breaker bool   `env:"STORE_BREAKER" envDefault:"true"`
}

type redisEnv struct {
	URL      string        `env:"REDIS_URL"`
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	TTL      time.Duration `env:"REDIS_TTL" envDefault:"0s"`
}

type badgerEnv struct {
	Path     string `env:"BADGER_PATH"`
	InMemory bool   `env:"BADGER_IN_MEMORY"`
}

type mongoEnv struct {
	Protocol   string `env:"MONGO_PROTOCOL"`
	Host       string `env:"MONGO_HOST_LIST"`
	DirectHost string `env:"MONGO_HOST_NAME"`
	DBName     string `env:"MONGO_DBNAME"`
	User       string `env:"MONGO_USERNAME"`
	Pwd        string `env:"MONGO_PASSWORD"`
	Params     string `env:"MONGO_CLUS_CONN_PARAMS"`
	DirParams  string `env:"MONGO_DIR_CONN_PARAMS"`
	Collection string `env:"MONGO_COLLECTION"`
}

// BuildRunConfig parses AGG_* variables into a defaulted & validated run config.
func BuildRunConfig() (watch.RunConfig, error) {
	var cfg watch.RunConfig
	if err := envparse.Parse(&cfg); err != nil {
		return watch.RunConfig{}, fmt.Errorf("parse env: %w", err)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return watch.RunConfig{}, err
	}
	return cfg, nil
}

// BuildSourceConfig builds the source config picked by SOURCE_TYPE.
func BuildSourceConfig() (watch.SourceConfig, error) {
	var se sourceEnv
	if err := envparse.Parse(&se); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	switch se.Type {
	case SOURCE_TYPE_LOCAL:
		dir := se.Dir
		if dir == "" {
			dir = BuildDataPath()
		}
		return sources.LocalJSONConfig{Path: dir}, nil
	case SOURCE_TYPE_GCS:
		if se.Bucket == "" {
			return nil, ErrMissingBucket
		}
		return sources.CloudJSONConfig{Bucket: se.Bucket, Prefix: se.Prefix}, nil
	case SOURCE_TYPE_S3:
		if se.Bucket == "" {
			return nil, ErrMissingBucket
		}
		var s3e s3Env
		if err := envparse.Parse(&s3e); err != nil {
			return nil, fmt.Errorf("parse env: %w", err)
		}
		return sources.S3JSONConfig{
			Endpoint:  s3e.Endpoint,
			Region:    s3e.Region,
			Bucket:    se.Bucket,
			Prefix:    se.Prefix,
			AccessKey: s3e.AccessKey,
			SecretKey: s3e.SecretKey,
			UseSSL:    s3e.UseSSL,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSourceType, se.Type)
	}
}

// BuildStoreConfig builds the store config picked by STORE_TYPE.
// The returned flag reports whether the store should sit behind a circuit breaker.
func BuildStoreConfig() (watch.StoreConfig, bool, error) {
	var se storeEnv
	if err := envparse.Parse(&se); err != nil {
		return nil, false, fmt.Errorf("parse env: %w", err)
	}

	switch se.Type {
	case STORE_TYPE_REDIS:
		var re redisEnv
		if err := envparse.Parse(&re); err != nil {
			return nil, false, fmt.Errorf("parse env: %w", err)
		}
		return stores.RedisConfig{
			URL:      re.URL,
			Addr:     re.Addr,
			Password: re.Password,
			DB:       re.DB,
			TTL:      re.TTL,
		}, se.Breaker, nil
	case STORE_TYPE_BADGER:
		var be badgerEnv
		if err := envparse.Parse(&be); err != nil {
			return nil, false, fmt.Errorf("parse env: %w", err)
		}
		if be.Path == "" && !be.InMemory {
			be.Path = filepath.Join(BuildDataDir(), "badger")
		}
		return stores.BadgerConfig{Path: be.Path, InMemory: be.InMemory}, se.Breaker, nil
	case STORE_TYPE_MONGO:
		me, err := parseMongoEnv()
		if err != nil {
			return nil, false, err
		}
		return stores.MongoConfig{
			Protocol:   me.Protocol,
			Host:       me.Host,
			DBName:     me.DBName,
			User:       me.User,
			Pwd:        me.Pwd,
			Params:     me.Params,
			Collection: me.Collection,
		}, se.Breaker, nil
	case STORE_TYPE_MEMORY:
		return stores.MemoryConfig{}, false, nil
	default:
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownStoreType, se.Type)
	}
}

// BuildMongoStoreConfig builds the mongo client config, using the direct host & params when direct is set.
func BuildMongoStoreConfig(direct bool) (infra.StoreConfig, error) {
	me, err := parseMongoEnv()
	if err != nil {
		return nil, err
	}
	host, params := me.Host, me.Params
	if direct {
		host, params = me.DirectHost, me.DirParams
	}
	return mongostore.NewMongoDBConfig(me.Protocol, host, me.User, me.Pwd, params, me.DBName), nil
}

func parseMongoEnv() (mongoEnv, error) {
	var me mongoEnv
	if err := envparse.Parse(&me); err != nil {
		return mongoEnv{}, fmt.Errorf("parse env: %w", err)
	}
	return me, nil
}

// BuildDataDir returns DATA_DIR or DEFAULT_DATA_DIR.
func BuildDataDir() string {
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = DEFAULT_DATA_DIR
	}
	return dataDir
}

// BuildDataPath returns "<DATA_DIR>/<DEFAULT_DATA_PATH>".
func BuildDataPath() string {
	return filepath.Join(BuildDataDir(), DEFAULT_DATA_PATH)
}

func BuildTemporalConfig(clientName string) temporal.TemporalConfig {
	namespace := os.Getenv("WORKFLOW_DOMAIN")
	host := os.Getenv("TEMPORAL_HOST")
	metricsAddr, otelEndpoint := BuildMetricsConfig()
	return temporal.NewTemporalConfig(namespace, host, clientName, metricsAddr, otelEndpoint)
}

// BuildMetricsConfig returns the prometheus listen address & the OTLP endpoint, empty when unset.
func BuildMetricsConfig() (string, string) {
	metricsAddr := DEFAULT_METRICS
	if port := os.Getenv("METRICS_PORT"); port != "" {
		metricsAddr = fmt.Sprintf(":%s", port)
	}
	return metricsAddr, os.Getenv("OTEL_ENDPOINT")
}
