// Package cursor translates caller supplied "start after" markers into scan bounds.
//
// A marker is the key of the last record the caller has seen. It is opaque to
// the caller and is never decoded structurally: the only thing done with it is
// shape validation and turning it into an exclusive lower bound.
package cursor

import (
	"errors"
	"fmt"

	"github.com/ozontech/seq-registry/consts"
	"github.com/ozontech/seq-registry/kv"
)

var ErrMalformedCursor = errors.New("malformed cursor")

// Marker is the key of the last record seen. Nil means "from the beginning".
type Marker []byte

func (m Marker) String() string {
	return string(m)
}

// Policy describes the shape of keys an endpoint accepts as markers.
type Policy struct {
	// MaxSize is the maximum marker length in bytes, consts.MaxKeySize if zero.
	MaxSize int
	// Allowed reports whether a byte may appear in a marker. Nil allows any byte.
	Allowed func(b byte) bool
}

type Codec struct {
	policy Policy
}

func NewCodec(p Policy) Codec {
	if p.MaxSize <= 0 {
		p.MaxSize = consts.MaxKeySize
	}
	return Codec{policy: p}
}

// Validate fails with ErrMalformedCursor when m cannot denote a key.
// A nil marker is valid.
func (c Codec) Validate(m Marker) error {
	if m == nil {
		return nil
	}
	if len(m) == 0 {
		return fmt.Errorf("%w: empty", ErrMalformedCursor)
	}
	if len(m) > c.policy.MaxSize {
		return fmt.Errorf("%w: %d bytes, max %d", ErrMalformedCursor, len(m), c.policy.MaxSize)
	}
	if c.policy.Allowed != nil {
		for i, b := range m {
			if !c.policy.Allowed(b) {
				return fmt.Errorf("%w: forbidden byte 0x%02x at %d", ErrMalformedCursor, b, i)
			}
		}
	}
	return nil
}

// Parse turns the wire form of a present marker into a Marker.
func (c Codec) Parse(raw string) (Marker, error) {
	m := Marker(raw)
	if m == nil {
		m = Marker{}
	}
	if err := c.Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// BoundFrom returns the scan bound for a marker: nil for no marker,
// otherwise everything strictly greater than the marker key.
func BoundFrom(m Marker) *kv.Bound {
	if m == nil {
		return nil
	}
	return kv.After(m)
}

// PrintableASCII allows visible ASCII characters except space.
func PrintableASCII(b byte) bool {
	return b > ' ' && b < 0x7f
}
