package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/comfforts/logger"

	"github.com/hankgalt/watch-history/internal/domain/watch"
)

const BadgerStoreName = "badger-store"

const ERR_BADGER_PATH_REQUIRED = "badger store: path is required unless in-memory"

var ErrBadgerPathRequired = errors.New(ERR_BADGER_PATH_REQUIRED)

// BadgerStore persists histories in an embedded BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (s *BadgerStore) Name() string { return BadgerStoreName }

func (s *BadgerStore) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *BadgerStore) Set(ctx context.Context, key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Badger store config.
type BadgerConfig struct {
	Path     string
	InMemory bool
}

func (c BadgerConfig) Name() string { return BadgerStoreName }

func (c BadgerConfig) BuildStore(ctx context.Context) (watch.BackendStore, error) {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	var opts badger.Options
	switch {
	case c.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case c.Path != "":
		opts = badger.DefaultOptions(c.Path)
	default:
		return nil, ErrBadgerPathRequired
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		l.Error("error opening badger db", "path", c.Path, "error", err.Error())
		return nil, fmt.Errorf("%w: open badger: %w", watch.ErrBackendUnavailable, err)
	}
	return NewBadgerStore(db), nil
}
