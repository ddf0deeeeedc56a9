package codec

import "encoding/base64"

// Base64 wraps a binary codec so its output is plain ASCII. Use it in front
// of Msgpack, CBOR or Protobuf when the store only accepts valid text
// (e.g. the postgres store's TEXT column).
type Base64[V any] struct {
	Inner Codec[V]
}

func (c Base64[V]) Encode(v V) ([]byte, error) {
	raw, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, base64.RawStdEncoding.EncodedLen(len(raw)))
	base64.RawStdEncoding.Encode(out, raw)
	return out, nil
}

func (c Base64[V]) Decode(b []byte) (V, error) {
	raw := make([]byte, base64.RawStdEncoding.DecodedLen(len(b)))
	n, err := base64.RawStdEncoding.Decode(raw, b)
	if err != nil {
		var zero V
		return zero, err
	}
	return c.Inner.Decode(raw[:n])
}
