package kv

import (
	"bytes"
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/ozontech/seq-registry/consts"
)

// MemStore is an in-memory ordered store.
//
// Iterators do not hold the lock between steps: every Next re-seeks right
// after the previously returned key. Concurrent writes are therefore visible
// to running iterators as long as they land ahead of the iterator position.
type MemStore struct {
	mu     sync.RWMutex
	pairs  []Pair
	closed bool
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

// search returns the index of the first pair admitted by b.
// Must be called under lock.
func (s *MemStore) search(b *Bound) int {
	if b == nil {
		return 0
	}
	return sort.Search(len(s.pairs), func(i int) bool {
		return b.Admits(s.pairs[i].Key)
	})
}

func (s *MemStore) Get(_ context.Context, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, consts.ErrStoreClosed
	}

	i := s.search(From(key))
	if i == len(s.pairs) || !bytes.Equal(s.pairs[i].Key, key) {
		return nil, ErrNotFound
	}
	return s.pairs[i].Value, nil
}

func (s *MemStore) Put(_ context.Context, key, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}

	// stored slices are never modified in place, so readers may share them
	p := Pair{Key: bytes.Clone(key), Value: bytes.Clone(value)}
	if p.Value == nil {
		p.Value = []byte{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return consts.ErrStoreClosed
	}

	i := s.search(From(key))
	if i < len(s.pairs) && bytes.Equal(s.pairs[i].Key, key) {
		s.pairs[i] = p
		return nil
	}
	s.pairs = slices.Insert(s.pairs, i, p)
	return nil
}

func (s *MemStore) Delete(_ context.Context, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return consts.ErrStoreClosed
	}

	i := s.search(From(key))
	if i < len(s.pairs) && bytes.Equal(s.pairs[i].Key, key) {
		s.pairs = slices.Delete(s.pairs, i, i+1)
	}
	return nil
}

func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pairs)
}

func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.pairs = nil
	return nil
}

func (s *MemStore) NewIterator(ctx context.Context, r Range) Iterator {
	return &memIterator{
		ctx:   ctx,
		store: s,
		next:  r.From,
	}
}

type memIterator struct {
	ctx   context.Context
	store *MemStore
	next  *Bound
	cur   Pair
	err   error
	done  bool
}

func (it *memIterator) Next() bool {
	if it.done {
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.err = err
		it.done = true
		return false
	}

	s := it.store
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		it.err = consts.ErrStoreClosed
		it.done = true
		return false
	}
	i := s.search(it.next)
	if i == len(s.pairs) {
		s.mu.RUnlock()
		it.done = true
		return false
	}
	it.cur = s.pairs[i]
	s.mu.RUnlock()

	it.next = After(it.cur.Key)
	return true
}

func (it *memIterator) Key() []byte {
	return it.cur.Key
}

func (it *memIterator) Value() []byte {
	return it.cur.Value
}

func (it *memIterator) Err() error {
	return it.err
}

func (it *memIterator) Release() {
	it.done = true
	it.cur = Pair{}
}
