package stores

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/hankgalt/watch-history/internal/domain/watch"
)

const MemoryStoreName = "memory-store"

// MemoryStore keeps values in process memory. Used for dry runs & tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

func (s *MemoryStore) Name() string { return MemoryStoreName }

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = slices.Clone(value)
	return nil
}

// Keys returns the stored keys, sorted.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.data))
}

// MemoryConfig builds a fresh MemoryStore.
type MemoryConfig struct{}

func (c MemoryConfig) Name() string { return MemoryStoreName }

func (c MemoryConfig) BuildStore(ctx context.Context) (watch.BackendStore, error) {
	return NewMemoryStore(), nil
}
