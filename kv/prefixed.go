package kv

import (
	"bytes"
	"context"
	"encoding/binary"
)

// Namespace returns the key prefix of a namespace: two bytes of big-endian
// namespace length followed by the namespace itself. Length prefixing keeps
// namespaces from overlapping when one name is a prefix of another.
func Namespace(name string) []byte {
	p := make([]byte, 2, 2+len(name))
	binary.BigEndian.PutUint16(p, uint16(len(name)))
	return append(p, name...)
}

type prefixed struct {
	rw     ReadWriter
	prefix []byte
}

// Prefixed scopes rw to a namespace. Keys passed in and returned are relative
// to the namespace.
func Prefixed(rw ReadWriter, namespace string) ReadWriter {
	return &prefixed{
		rw:     rw,
		prefix: Namespace(namespace),
	}
}

func (p *prefixed) key(k []byte) []byte {
	full := make([]byte, 0, len(p.prefix)+len(k))
	full = append(full, p.prefix...)
	return append(full, k...)
}

func (p *prefixed) Get(ctx context.Context, key []byte) ([]byte, error) {
	return p.rw.Get(ctx, p.key(key))
}

func (p *prefixed) Put(ctx context.Context, key, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return p.rw.Put(ctx, p.key(key), value)
}

func (p *prefixed) Delete(ctx context.Context, key []byte) error {
	return p.rw.Delete(ctx, p.key(key))
}

func (p *prefixed) NewIterator(ctx context.Context, r Range) Iterator {
	from := From(p.prefix)
	if r.From != nil {
		from = &Bound{Key: p.key(r.From.Key), Inclusive: r.From.Inclusive}
	}
	return &prefixedIterator{
		it:     p.rw.NewIterator(ctx, Range{From: from, Limit: r.Limit}),
		prefix: p.prefix,
	}
}

type prefixedIterator struct {
	it     Iterator
	prefix []byte
	done   bool
}

func (it *prefixedIterator) Next() bool {
	if it.done {
		return false
	}
	if !it.it.Next() {
		it.done = true
		return false
	}
	if !bytes.HasPrefix(it.it.Key(), it.prefix) {
		// left the namespace
		it.done = true
		return false
	}
	return true
}

func (it *prefixedIterator) Key() []byte {
	return it.it.Key()[len(it.prefix):]
}

func (it *prefixedIterator) Value() []byte {
	return it.it.Value()
}

func (it *prefixedIterator) Err() error {
	return it.it.Err()
}

func (it *prefixedIterator) Release() {
	it.done = true
	it.it.Release()
}
