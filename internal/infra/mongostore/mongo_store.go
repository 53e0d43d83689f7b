package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/comfforts/logger"

	"github.com/hankgalt/watch-history/internal/domain/infra"
)

const DEFAULT_MONGO_POOL_SIZE = 10

const (
	ERR_MISSING_DB_NAME          = "mongo store: database name is required"
	ERR_MISSING_COLLECTION_OR_ID = "mongo store: collection & key are required"
	ERR_MONGO_CLIENT_CONN        = "mongo store: error connecting to MongoDB"
	ERR_MONGO_CLIENT_DISCONN     = "mongo store: error disconnecting from MongoDB"
)

var (
	ErrMissingDBName          = errors.New(ERR_MISSING_DB_NAME)
	ErrMissingCollectionOrKey = errors.New(ERR_MISSING_COLLECTION_OR_ID)
	ErrMongoClientConn        = errors.New(ERR_MONGO_CLIENT_CONN)
	ErrMongoClientDisconn     = errors.New(ERR_MONGO_CLIENT_DISCONN)
)

// kvDoc is the document shape of a stored key.
type kvDoc struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStoreOption holds the options for creating a new MongoDB client.
type MongoStoreOption struct {
	*infra.ClientOption
	DBName   string
	PoolSize uint64
}

type MongoStore struct {
	client *mongo.Client
	store  *mongo.Database
}

var _ infra.KVStore = (*MongoStore)(nil)

func NewMongoStore(ctx context.Context, cfg infra.StoreConfig) (*MongoStore, error) {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	opts := &MongoStoreOption{
		ClientOption: infra.DefaultClientOption(),
		DBName:       cfg.Name(),
		PoolSize:     DEFAULT_MONGO_POOL_SIZE,
	}
	opts.Caller = "watch-history"
	if opts.DBName == "" {
		return nil, ErrMissingDBName
	}

	dbConnStr, err := NewMongoConnectionBuilder(
		cfg.Protocol(),
		cfg.Host(),
	).WithUser(
		cfg.User(),
	).WithPassword(
		cfg.Pwd(),
	).WithConnectionParams(
		cfg.Params(),
	).Build()
	if err != nil {
		return nil, err
	}

	mOpts := options.Client().ApplyURI(
		dbConnStr,
	).SetReadPreference(
		readpref.Primary(),
	).SetAppName(
		opts.Caller,
	).SetMaxPoolSize(
		opts.PoolSize,
	).SetConnectTimeout(
		opts.DialTimeout,
	)

	cl, err := mongo.Connect(ctx, mOpts)
	if err != nil {
		l.Error("error connecting to MongoDB", "error", err.Error())
		return nil, errors.Join(ErrMongoClientConn, err)
	}

	if err = cl.Ping(ctx, nil); err != nil {
		l.Error("error pinging MongoDB", "error", err.Error())
		if disconnectErr := cl.Disconnect(ctx); disconnectErr != nil {
			l.Error("error disconnecting from MongoDB", "error", disconnectErr.Error())
			return nil, errors.Join(ErrMongoClientConn, ErrMongoClientDisconn)
		}
		return nil, errors.Join(ErrMongoClientConn, err)
	}

	return &MongoStore{
		client: cl,
		store:  cl.Database(opts.DBName),
	}, nil
}

func (ms *MongoStore) Store() *mongo.Database {
	return ms.store
}

func (ms *MongoStore) Close(ctx context.Context) error {
	if err := ms.client.Disconnect(ctx); err != nil && err != mongo.ErrClientDisconnected {
		return ErrMongoClientDisconn
	}
	return nil
}

// GetValue returns the value stored under key, found is false when there is none.
func (ms *MongoStore) GetValue(ctx context.Context, collectionName, key string) ([]byte, bool, error) {
	if collectionName == "" || key == "" {
		return nil, false, ErrMissingCollectionOrKey
	}

	var doc kvDoc
	err := ms.store.Collection(collectionName).FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error finding key %s in collection %s: %w", key, collectionName, err)
	}
	return []byte(doc.Value), true, nil
}

// SetValue upserts the value under key.
func (ms *MongoStore) SetValue(ctx context.Context, collectionName, key string, value []byte) error {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	if collectionName == "" || key == "" {
		return ErrMissingCollectionOrKey
	}

	doc := kvDoc{
		Key:       key,
		Value:     string(value),
		UpdatedAt: time.Now().UTC(),
	}
	_, err = ms.store.Collection(collectionName).ReplaceOne(
		ctx,
		bson.M{"_id": key},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		l.Error("error upserting document", "error", err.Error(), "collection", collectionName, "key", key)
		return fmt.Errorf("error upserting key %s into collection %s: %w", key, collectionName, err)
	}
	return nil
}
