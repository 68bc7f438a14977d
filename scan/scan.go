// Package scan walks an ordered store lazily, starting at a bound and stopping
// after a fixed number of records.
package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ozontech/seq-registry/kv"
)

// ErrOutOfOrder is reported when a store yields a key that is not strictly
// greater than the previous one or lies below the requested bound.
var ErrOutOfOrder = errors.New("store yielded keys out of order")

// StoreError wraps a failure of the underlying store iteration.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return "store iteration: " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Scanner yields at most limit records in ascending key order.
//
// Records are read from the store one at a time on Next, so the scanner never
// holds more than the current record on top of what the store iterator buffers.
type Scanner struct {
	it    kv.Iterator
	from  *kv.Bound
	limit int

	n    int
	last []byte
	rec  kv.Pair
	err  error
	done bool
}

func New(ctx context.Context, store kv.Store, from *kv.Bound, limit int) *Scanner {
	s := &Scanner{
		from:  from,
		limit: limit,
	}
	if limit <= 0 {
		s.done = true
		return s
	}
	s.it = store.NewIterator(ctx, kv.Range{From: from, Limit: limit})
	return s
}

// Next advances to the next record. It returns false once limit records were
// yielded, the store is exhausted or iteration failed, see Err.
func (s *Scanner) Next() bool {
	if s.done {
		return false
	}
	if s.n == s.limit {
		s.finish()
		return false
	}
	if !s.it.Next() {
		if err := s.it.Err(); err != nil {
			s.err = &StoreError{Err: err}
		}
		s.finish()
		return false
	}

	key := s.it.Key()
	if !s.from.Admits(key) || (s.last != nil && bytes.Compare(key, s.last) <= 0) {
		s.err = &StoreError{Err: fmt.Errorf("%w: %q after %q, bound %s", ErrOutOfOrder, key, s.last, s.from)}
		s.finish()
		return false
	}

	s.rec = kv.Pair{
		Key:   bytes.Clone(key),
		Value: bytes.Clone(s.it.Value()),
	}
	s.last = s.rec.Key
	s.n++
	return true
}

// Record returns the current record. It stays valid after subsequent calls.
func (s *Scanner) Record() kv.Pair {
	return s.rec
}

func (s *Scanner) Err() error {
	return s.err
}

// Close releases the store iterator. It is safe to call several times.
func (s *Scanner) Close() {
	s.finish()
}

func (s *Scanner) finish() {
	if s.it != nil {
		s.it.Release()
		s.it = nil
	}
	s.done = true
}

// Collect drains the scanner into a slice.
func (s *Scanner) Collect() ([]kv.Pair, error) {
	defer s.Close()

	var res []kv.Pair
	for s.Next() {
		res = append(res, s.Record())
	}
	return res, s.Err()
}
