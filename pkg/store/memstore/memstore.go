// Package memstore is an in-memory Repository. It is the default backend;
// nothing survives the process.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wilhg/adformats/pkg/adformat"
	"github.com/wilhg/adformats/pkg/store"
)

// Backend is the registry name of this backend.
const Backend = "memory"

var _ store.Repository = (*Store)(nil)

func init() {
	_ = store.Register(Backend, func(ctx context.Context, _ string) (store.Repository, error) {
		return New(), nil
	})
}

// Store keeps records in a slice ordered by id, with an index for lookups.
type Store struct {
	mu      sync.RWMutex
	records []adformat.AdFormat
	byID    map[int]int // id -> position in records
}

// New creates an empty store.
func New() *Store {
	return &Store{byID: make(map[int]int)}
}

// NewSeeded creates a store holding a copy of records.
func NewSeeded(records []adformat.AdFormat) (*Store, error) {
	s := New()
	if err := s.Reset(context.Background(), records); err != nil {
		return nil, err
	}
	return s, nil
}

// List returns a deep copy of every record.
func (s *Store) List(ctx context.Context) ([]adformat.AdFormat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return adformat.CloneAll(s.records), nil
}

// Get returns a deep copy of one record.
func (s *Store) Get(ctx context.Context, id int) (adformat.AdFormat, error) {
	if err := ctx.Err(); err != nil {
		return adformat.AdFormat{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.byID[id]
	if !ok {
		return adformat.AdFormat{}, store.ErrNotFound
	}
	return s.records[pos].Clone(), nil
}

// ReplaceEvents overwrites one record's events under the write lock.
func (s *Store) ReplaceEvents(ctx context.Context, id int, events []adformat.EventLabel) (adformat.AdFormat, error) {
	if err := ctx.Err(); err != nil {
		return adformat.AdFormat{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.byID[id]
	if !ok {
		return adformat.AdFormat{}, store.ErrNotFound
	}
	s.records[pos].Events = adformat.CloneEvents(events)
	return s.records[pos].Clone(), nil
}

// Reset replaces the collection with a copy of records.
func (s *Store) Reset(ctx context.Context, records []adformat.AdFormat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	next := adformat.CloneAll(records)
	sort.SliceStable(next, func(i, j int) bool { return next[i].ID < next[j].ID })
	index := make(map[int]int, len(next))
	for i, r := range next {
		if r.ID <= 0 {
			return fmt.Errorf("memstore: invalid id %d", r.ID)
		}
		if _, dup := index[r.ID]; dup {
			return fmt.Errorf("memstore: duplicate id %d", r.ID)
		}
		index[r.ID] = i
	}
	s.mu.Lock()
	s.records = next
	s.byID = index
	s.mu.Unlock()
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
