package codec

import "google.golang.org/protobuf/proto"

// Protobuf encodes proto messages of one concrete type. The zero value is
// NOT ready to use. Construct with NewProtobuf.
type Protobuf[T proto.Message] struct {
	new func() T // e.g. func() *pb.Settings { return &pb.Settings{} }
	enc proto.MarshalOptions
	dec proto.UnmarshalOptions
}

var _ Codec[proto.Message] = Protobuf[proto.Message]{}

type ProtobufOptions struct {
	// Deterministic orders map entries so equal messages produce equal bytes
	// and Reload does not see spurious updates.
	Deterministic bool
	// AllowPartial skips the required-field check on both sides.
	AllowPartial bool
	// DiscardUnknown drops fields the local schema does not know when
	// decoding; they are then lost on the next write.
	DiscardUnknown bool
}

func NewProtobuf[T proto.Message](ctor func() T, o ProtobufOptions) Protobuf[T] {
	return Protobuf[T]{
		new: ctor,
		enc: proto.MarshalOptions{Deterministic: o.Deterministic, AllowPartial: o.AllowPartial},
		dec: proto.UnmarshalOptions{AllowPartial: o.AllowPartial, DiscardUnknown: o.DiscardUnknown},
	}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := c.dec.Unmarshal(b, m)
	return m, err
}
