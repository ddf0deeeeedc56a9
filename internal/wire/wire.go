package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

const (
	version byte = 1

	// HeaderSize is the fixed prefix of every record.
	HeaderSize = 4 + 1 + 1 + 4 + 4 + 4

	// MaxLen bounds both the key and the value of a record.
	MaxLen = 0xFFFFFFFF
)

var (
	ErrCorrupt = errors.New("synckv: corrupt log record")
	// ErrShort means the buffer ends inside a record (torn tail write).
	ErrShort = errors.New("synckv: short log record")

	magic4 = [...]byte{'S', 'K', 'V', 'L'}
	table  = crc32.MakeTable(crc32.Castagnoli)
)

type Op byte

const (
	OpPut    Op = 1
	OpDelete Op = 2
)

func (o Op) String() string {
	switch o {
	case OpPut:
		return "put"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("op(%d)", byte(o))
	}
}

// Record is one mutation in an append-only key/value log.
type Record struct {
	Op    Op
	Key   string
	Value string // empty for OpDelete
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Record layout:
//
//	magic(4) | ver(1) | op(1) | klen(u32 be) | vlen(u32 be) | crc32c(u32 be) | key(klen) | value(vlen)
//
// The checksum covers op, key and value. The empty key is a valid key.
func EncodeRecord(r Record) ([]byte, error) {
	if uint64(len(r.Key)) > MaxLen {
		return nil, fmt.Errorf("synckv: key too large: %d", len(r.Key))
	}
	if r.Op != OpPut && r.Op != OpDelete {
		return nil, fmt.Errorf("synckv: invalid op %v", r.Op)
	}
	if r.Op == OpDelete && r.Value != "" {
		return nil, fmt.Errorf("synckv: delete record carries a value")
	}
	if uint64(len(r.Value)) > MaxLen {
		return nil, fmt.Errorf("synckv: value too large: %d", len(r.Value))
	}

	var buf bytes.Buffer
	buf.Grow(HeaderSize + len(r.Key) + len(r.Value))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(byte(r.Op))

	var u4 [4]byte

	binary.BigEndian.PutUint32(u4[:], uint32(len(r.Key)))
	buf.Write(u4[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(r.Value)))
	buf.Write(u4[:])

	binary.BigEndian.PutUint32(u4[:], checksum(r.Op, r.Key, r.Value))
	buf.Write(u4[:])

	buf.WriteString(r.Key)
	buf.WriteString(r.Value)
	return buf.Bytes(), nil
}

// DecodeRecord decodes the record at the start of b and reports how many
// bytes it occupied. Trailing bytes after the record are left to the caller.
func DecodeRecord(b []byte) (Record, int, error) {
	if len(b) < HeaderSize {
		if len(b) > 0 && !bytes.HasPrefix(magic4[:], b[:min(len(b), 4)]) {
			return Record{}, 0, ErrCorrupt
		}
		return Record{}, 0, ErrShort
	}
	if !hasMagic(b) || b[4] != version {
		return Record{}, 0, ErrCorrupt
	}
	op := Op(b[5])
	if op != OpPut && op != OpDelete {
		return Record{}, 0, ErrCorrupt
	}

	off := 6
	klen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	sum := binary.BigEndian.Uint32(b[off : off+4])
	off += 4

	if op == OpDelete && vlen != 0 {
		return Record{}, 0, ErrCorrupt
	}
	if klen > len(b)-off || vlen > len(b)-off-klen { // overflow-safe bound check
		return Record{}, 0, ErrShort
	}

	key := string(b[off : off+klen])
	off += klen
	val := string(b[off : off+vlen])
	off += vlen

	if checksum(op, key, val) != sum {
		return Record{}, 0, ErrCorrupt
	}
	return Record{Op: op, Key: key, Value: val}, off, nil
}

func checksum(op Op, key, val string) uint32 {
	h := crc32.New(table)
	h.Write([]byte{byte(op)})
	h.Write([]byte(key))
	h.Write([]byte(val))
	return h.Sum32()
}
