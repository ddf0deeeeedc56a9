package synckv

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/synckv/codec"
)

// Typed is a view over a Storage that stores V values through a Codec.
// It shares the Storage's cache, load gate and background writes.
type Typed[V any] struct {
	s     Storage
	codec codec.Codec[V]
}

func NewTyped[V any](s Storage, c codec.Codec[V]) *Typed[V] {
	return &Typed[V]{s: s, codec: c}
}

func (t *Typed[V]) Storage() Storage { return t.s }

// Get decodes the cached value. A value that fails to decode is reported,
// not dropped.
func (t *Typed[V]) Get(key string) (V, bool, error) {
	var zero V
	raw, ok := t.s.GetItem(key)
	if !ok {
		return zero, false, nil
	}
	v, err := t.codec.Decode([]byte(raw))
	if err != nil {
		return zero, false, fmt.Errorf("synckv: decode %q: %w", key, err)
	}
	return v, true, nil
}

func (t *Typed[V]) Set(key string, v V) error {
	b, err := t.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("synckv: encode %q: %w", key, err)
	}
	return t.s.SetItem(key, string(b))
}

func (t *Typed[V]) Remove(key string) error { return t.s.RemoveItem(key) }

func (t *Typed[V]) Reload(ctx context.Context, key string) (V, bool, error) {
	var zero V
	raw, ok, err := t.s.Reload(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := t.codec.Decode([]byte(raw))
	if err != nil {
		return zero, false, fmt.Errorf("synckv: decode %q: %w", key, err)
	}
	return v, true, nil
}
