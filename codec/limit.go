package codec

import (
	"errors"
	"fmt"
)

// ErrTooLarge is returned when an encoded value exceeds a LimitCodec bound.
var ErrTooLarge = errors.New("codec: value too large")

// LimitCodec wraps another codec and bounds the size of item values.
//
// MaxEncode rejects values before they reach the cache, so an oversized
// value is never persisted. MaxDecode protects readers from oversized values
// written into a shared store by another process. A bound <= 0 is disabled.
type LimitCodec[V any] struct {
	Inner     Codec[V]
	MaxEncode int
	MaxDecode int
}

func (c LimitCodec[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if c.MaxEncode > 0 && len(b) > c.MaxEncode {
		return nil, fmt.Errorf("%w: encoded %d > %d bytes", ErrTooLarge, len(b), c.MaxEncode)
	}
	return b, nil
}

func (c LimitCodec[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("%w: stored %d > %d bytes", ErrTooLarge, len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
