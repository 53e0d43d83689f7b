package stores

import (
	"context"
	"errors"

	"github.com/comfforts/logger"

	"github.com/hankgalt/watch-history/internal/domain/infra"
	"github.com/hankgalt/watch-history/internal/domain/watch"
	"github.com/hankgalt/watch-history/internal/infra/mongostore"
)

const MongoStoreName = "mongo-store"

const DEFAULT_MONGO_COLLECTION = "customer_watch_history"

const (
	ERR_MONGO_STORE_DB_PROTOCOL = "mongo store: DB protocol is required"
	ERR_MONGO_STORE_DB_HOST     = "mongo store: DB host is required"
	ERR_MONGO_STORE_DB_NAME     = "mongo store: DB name is required"
)

var (
	ErrMongoStoreDBProtocol = errors.New(ERR_MONGO_STORE_DB_PROTOCOL)
	ErrMongoStoreDBHost     = errors.New(ERR_MONGO_STORE_DB_HOST)
	ErrMongoStoreDBName     = errors.New(ERR_MONGO_STORE_DB_NAME)
)

// MongoStore keeps each customer key as one document of a collection.
type MongoStore struct {
	client     infra.KVStore
	collection string
}

func NewMongoStore(client infra.KVStore, collection string) *MongoStore {
	if collection == "" {
		collection = DEFAULT_MONGO_COLLECTION
	}
	return &MongoStore{client: client, collection: collection}
}

func (s *MongoStore) Name() string { return MongoStoreName }

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.client.GetValue(ctx, s.collection, key)
}

func (s *MongoStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.SetValue(ctx, s.collection, key, value)
}

// MongoDB store config.
type MongoConfig struct {
	Protocol   string // e.g., "mongodb", "mongodb+srv"
	Host       string // e.g., "localhost:27017"
	DBName     string
	User       string
	Pwd        string
	Params     string // e.g., "?retryWrites=true&w=majority"
	Collection string
}

func (c MongoConfig) Name() string { return MongoStoreName }

func (c MongoConfig) BuildStore(ctx context.Context) (watch.BackendStore, error) {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	if c.Protocol == "" {
		return nil, ErrMongoStoreDBProtocol
	}
	if c.Host == "" {
		return nil, ErrMongoStoreDBHost
	}
	if c.DBName == "" {
		return nil, ErrMongoStoreDBName
	}

	mCl, err := mongostore.NewMongoStore(ctx, mongostore.NewMongoDBConfig(
		c.Protocol,
		c.Host,
		c.User,
		c.Pwd,
		c.Params,
		c.DBName,
	))
	if err != nil {
		l.Error("error creating mongo store", "error", err.Error())
		return nil, errors.Join(watch.ErrBackendUnavailable, err)
	}
	return NewMongoStore(mCl, c.Collection), nil
}
