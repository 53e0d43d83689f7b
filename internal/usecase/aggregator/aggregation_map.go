package aggregator

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hankgalt/watch-history/internal/domain/watch"
)

// customerEntry guards one customer's accumulated entries.
type customerEntry struct {
	mu     sync.Mutex
	movies []watch.WatchedMovie
}

// AggregationMap is the batch-scoped accumulator of customer histories.
// Safe for concurrent folds. Entries are append-only, duplicates are kept.
type AggregationMap struct {
	customers sync.Map // customer id -> *customerEntry
	count     atomic.Int64
}

func NewAggregationMap() *AggregationMap {
	return &AggregationMap{}
}

// Fold appends one watched-movie entry per viewer of the event.
// It returns the number of entries appended.
func (m *AggregationMap) Fold(ev *watch.WatchEvent) int {
	if ev == nil {
		return 0
	}
	n := 0
	for _, v := range ev.WatchedBy {
		e := m.entry(v.CustomerID)
		e.mu.Lock()
		e.movies = append(e.movies, watch.WatchedMovieFor(ev, v))
		e.mu.Unlock()
		n++
	}
	return n
}

// FoldAll folds events in order and returns the number of entries appended.
func (m *AggregationMap) FoldAll(evs []*watch.WatchEvent) int {
	n := 0
	for _, ev := range evs {
		n += m.Fold(ev)
	}
	return n
}

// entry returns the customer's entry, creating it exactly once.
func (m *AggregationMap) entry(customerID string) *customerEntry {
	if e, ok := m.customers.Load(customerID); ok {
		return e.(*customerEntry)
	}
	e, loaded := m.customers.LoadOrStore(customerID, &customerEntry{})
	if !loaded {
		m.count.Add(1)
	}
	return e.(*customerEntry)
}

// Len returns the number of customers in the map.
func (m *AggregationMap) Len() int {
	return int(m.count.Load())
}

// CustomerIDs returns the customer ids in the map, sorted.
func (m *AggregationMap) CustomerIDs() []string {
	ids := make([]string, 0, m.Len())
	m.customers.Range(func(k, _ any) bool {
		ids = append(ids, k.(string))
		return true
	})
	slices.Sort(ids)
	return ids
}

// History returns a copy of the customer's accumulated history, in accumulation order.
func (m *AggregationMap) History(customerID string) (*watch.CustomerHistory, bool) {
	v, ok := m.customers.Load(customerID)
	if !ok {
		return nil, false
	}
	e := v.(*customerEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return &watch.CustomerHistory{
		CustomerID:    customerID,
		WatchedMovies: slices.Clone(e.movies),
	}, true
}

// Range calls fn for each customer history in sorted customer order until fn returns false.
func (m *AggregationMap) Range(fn func(h *watch.CustomerHistory) bool) {
	for _, id := range m.CustomerIDs() {
		h, ok := m.History(id)
		if !ok {
			continue
		}
		if !fn(h) {
			return
		}
	}
}
