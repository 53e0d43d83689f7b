package aggregator_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing/iotest"
	"time"

	"github.com/hankgalt/watch-history/internal/domain/watch"
	"github.com/hankgalt/watch-history/internal/usecase/aggregator/stores"
)

var errFlaky = errors.New("connection reset")

// fakeSource serves files from memory.
//
//   - failures[id]: opens that fail before the file can be read, -1 for always
//   - readFailures[id]: opens whose reader errors after the first line
//   - blocks[id]: opens whose reader blocks until the attempt context is done
//   - delay: pause on first read, to keep files in flight
type fakeSource struct {
	mu           sync.Mutex
	files        map[string]string
	failures     map[string]int
	readFailures map[string]int
	blocks       map[string]int
	opens        map[string]int
	listErr      error
	delay        time.Duration
	inFlight     int
	maxInFlight  int
}

func newFakeSource(files map[string]string) *fakeSource {
	return &fakeSource{
		files:        files,
		failures:     map[string]int{},
		readFailures: map[string]int{},
		blocks:       map[string]int{},
		opens:        map[string]int{},
	}
}

func (s *fakeSource) Name() string                    { return "fake-source" }
func (s *fakeSource) Close(ctx context.Context) error { return nil }

func (s *fakeSource) List(ctx context.Context) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	ids := make([]string, 0, len(s.files))
	for id := range s.files {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *fakeSource) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens[id]++
	if take(s.failures, id) {
		return nil, errFlaky
	}
	body, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%s not found", id)
	}

	var r io.Reader = strings.NewReader(body)
	switch {
	case take(s.blocks, id):
		r = &blockingReader{ctx: ctx}
	case take(s.readFailures, id):
		first, _, _ := strings.Cut(body, "\n")
		r = io.MultiReader(strings.NewReader(first+"\n"), iotest.ErrReader(errFlaky))
	}

	s.inFlight++
	s.maxInFlight = max(s.maxInFlight, s.inFlight)
	return &trackedReader{src: s, r: r, delay: s.delay}, nil
}

// take consumes one scheduled fault for id.
func take(faults map[string]int, id string) bool {
	if faults[id] == 0 {
		return false
	}
	if faults[id] > 0 {
		faults[id]--
	}
	return true
}

func (s *fakeSource) Opens(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens[id]
}

func (s *fakeSource) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}

// trackedReader counts an open file as in flight until it is closed.
type trackedReader struct {
	src    *fakeSource
	r      io.Reader
	delay  time.Duration
	read   bool
	closed bool
}

func (t *trackedReader) Read(p []byte) (int, error) {
	if !t.read {
		t.read = true
		time.Sleep(t.delay)
	}
	return t.r.Read(p)
}

func (t *trackedReader) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.src.mu.Lock()
	defer t.src.mu.Unlock()
	t.src.inFlight--
	return nil
}

// blockingReader never yields data, it fails once its context is done.
type blockingReader struct {
	ctx context.Context
}

func (b *blockingReader) Read(p []byte) (int, error) {
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

// flakyStore fails every call for the listed keys.
type flakyStore struct {
	*stores.MemoryStore
	failKeys map[string]bool
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.failKeys[key] {
		return nil, false, errFlaky
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	if s.failKeys[key] {
		return errFlaky
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func testRunConfig() watch.RunConfig {
	return watch.RunConfig{
		BatchSize:      2,
		MaxRetries:     3,
		AttemptTimeout: 5 * time.Second,
		RetryBackoff:   time.Millisecond,
	}
}

// eventLine renders one movie record with viewers given as customer/date pairs.
func eventLine(movieID string, viewers ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `{"movieId":%q,"title":"Title %s","yearOfRelease":2001,"watchedBy":[`, movieID, movieID)
	for i := 0; i+1 < len(viewers); i += 2 {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"customer-id":%q,"movie-id":%q,"rating":4,"date":%q}`, viewers[i], movieID, viewers[i+1])
	}
	sb.WriteString("]}")
	return sb.String()
}

func storedHistory(ctx context.Context, st watch.BackendStore, customerID string) (*watch.CustomerHistory, error) {
	b, found, err := st.Get(ctx, watch.CustomerKey(customerID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("customer %s not persisted", customerID)
	}
	return watch.DecodeHistory(b)
}
