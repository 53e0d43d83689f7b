package infra

import (
	"context"
	"time"
)

type ShutdownFunc func(context.Context) error

var (
	defaultDialTimeout      = 5 * time.Second
	defaultKeepAlive        = 30 * time.Second
	defaultKeepAliveTimeout = 10 * time.Second
)

// KVStore is a document store exposed as string keys to byte values.
type KVStore interface {
	GetValue(ctx context.Context, collection, key string) ([]byte, bool, error)
	SetValue(ctx context.Context, collection, key string, value []byte) error
	Close(ctx context.Context) error
}

type StoreConfig interface {
	Protocol() string
	Host() string
	User() string
	Pwd() string
	Params() string
	Name() string
}

type ClientOption struct {
	Caller           string
	DialTimeout      time.Duration
	KeepAlive        time.Duration
	KeepAliveTimeout time.Duration
}

func DefaultClientOption() *ClientOption {
	return &ClientOption{
		DialTimeout:      defaultDialTimeout,
		KeepAlive:        defaultKeepAlive,
		KeepAliveTimeout: defaultKeepAliveTimeout,
	}
}
