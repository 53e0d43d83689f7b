package watch

import (
	"context"
	"io"
)

// SourceConfig is a config that *knows how to build* a Source.
type SourceConfig interface {
	BuildSource(ctx context.Context) (Source, error)
	Name() string
}

// Source enumerates watch event files under a location & opens them for reading.
// List must exhaust every page of the underlying listing before returning.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Open(ctx context.Context, fileID string) (io.ReadCloser, error)
	Name() string
	Close(ctx context.Context) error
}

// RecordDecoder turns one line of input into a WatchEvent.
// Failures wrap ErrMalformedRecord.
type RecordDecoder interface {
	Decode(line []byte) (*WatchEvent, error)
}

// StoreConfig is a config that *knows how to build* a BackendStore.
type StoreConfig interface {
	BuildStore(ctx context.Context) (BackendStore, error)
	Name() string
}

// BackendStore is the key/value store holding persisted customer histories.
// Get returns found=false and a nil error on a miss.
type BackendStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Name() string
	Close(ctx context.Context) error
}
