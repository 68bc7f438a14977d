// Package kv defines the ordered key-value store contract used by the registry
// and the stores implementing it.
//
// Keys are opaque byte strings totally ordered by bytes.Compare. Stores expose
// ascending iteration from an optional lower bound. The lower bound carries an
// explicit Inclusive flag, so an exclusive start never depends on the byte
// layout of the keys.
package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ozontech/seq-registry/consts"
)

var (
	ErrNotFound   = errors.New("key not found")
	ErrEmptyKey   = errors.New("empty key")
	ErrKeyTooLong = errors.New("key too long")
)

// Pair is a single record of a store.
type Pair struct {
	Key   []byte
	Value []byte
}

// Bound is a lower bound for ascending iteration.
type Bound struct {
	Key       []byte
	Inclusive bool
}

// From returns an inclusive bound starting at key.
func From(key []byte) *Bound {
	return &Bound{Key: key, Inclusive: true}
}

// After returns an exclusive bound starting strictly after key.
func After(key []byte) *Bound {
	return &Bound{Key: key, Inclusive: false}
}

// Admits reports whether key lies at or above the bound.
// A nil bound admits every key.
func (b *Bound) Admits(key []byte) bool {
	if b == nil {
		return true
	}
	c := bytes.Compare(key, b.Key)
	if b.Inclusive {
		return c >= 0
	}
	return c > 0
}

func (b *Bound) String() string {
	if b == nil {
		return "-inf"
	}
	if b.Inclusive {
		return fmt.Sprintf("[%q", b.Key)
	}
	return fmt.Sprintf("(%q", b.Key)
}

// Range describes an ascending scan.
type Range struct {
	// From is the lower bound, nil means the first key of the store.
	From *Bound
	// Limit is a hint of how many pairs the caller is going to consume,
	// stores use it to size their read batches. Zero means unknown.
	Limit int
}

//go:generate mockgen -destination=mock/kv.go -package=mock github.com/ozontech/seq-registry/kv Iterator,Store,Writer

// Iterator walks pairs in ascending key order.
//
// Key and Value are valid until the next call to Next and must not be modified.
// Exhausting the iterator is not an error. Release must be called when done
// and may be called several times.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Release()
}

// Store is an ordered key space that can be scanned.
type Store interface {
	NewIterator(ctx context.Context, r Range) Iterator
}

// Writer mutates and reads single keys.
type Writer interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Put(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
}

type ReadWriter interface {
	Store
	Writer
}

// ValidateKey checks a caller supplied key. Stores themselves only reject
// empty keys, since namespacing makes stored keys longer than caller keys.
func ValidateKey(key []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if len(key) > consts.MaxKeySize {
		return fmt.Errorf("%w: %d bytes, max %d", ErrKeyTooLong, len(key), consts.MaxKeySize)
	}
	return nil
}

// DeleteAll removes every key of rw and returns how many were removed.
// Keys are collected batch by batch before deletion, so stores whose
// iterators read ahead never see their own deletes mid batch.
func DeleteAll(ctx context.Context, rw ReadWriter, batch int) (int, error) {
	if batch <= 0 {
		batch = consts.DefaultIteratorBatchSize
	}

	total := 0
	for {
		it := rw.NewIterator(ctx, Range{Limit: batch})
		keys := make([][]byte, 0, batch)
		for len(keys) < batch && it.Next() {
			keys = append(keys, bytes.Clone(it.Key()))
		}
		err := it.Err()
		it.Release()
		if err != nil {
			return total, err
		}

		for _, k := range keys {
			if err := rw.Delete(ctx, k); err != nil {
				return total, err
			}
			total++
		}
		if len(keys) < batch {
			return total, nil
		}
	}
}
