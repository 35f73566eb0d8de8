package boltpersistence

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/dogmatiq/eventcore/internal/x/bboltx"
	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// marshalUint64 marshals a uint64 to its big-endian binary representation.
func marshalUint64(v uint64) []byte {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, v)
	return data
}

// unmarshalUint64 unmarshals a uint64 from its big-endian binary
// representation.
//
// A nil slice is treated as zero.
func unmarshalUint64(data []byte) uint64 {
	if data == nil {
		return 0
	}

	if len(data) != 8 {
		bboltx.Must(fmt.Errorf("data is corrupt, expected 8 bytes, got %d", len(data)))
	}

	return binary.BigEndian.Uint64(data)
}

// encoder builds a record using the protocol buffers wire format.
//
// Zero values are omitted.
type encoder struct {
	data []byte
}

func (e *encoder) uint(n protowire.Number, v uint64) {
	if v != 0 {
		e.data = protowire.AppendTag(e.data, n, protowire.VarintType)
		e.data = protowire.AppendVarint(e.data, v)
	}
}

// uintAlways appends v even if it is zero, which guarantees that the record
// is never empty.
func (e *encoder) uintAlways(n protowire.Number, v uint64) {
	e.data = protowire.AppendTag(e.data, n, protowire.VarintType)
	e.data = protowire.AppendVarint(e.data, v)
}

func (e *encoder) bool(n protowire.Number, v bool) {
	e.uint(n, protowire.EncodeBool(v))
}

func (e *encoder) bytes(n protowire.Number, v []byte) {
	if len(v) != 0 {
		e.data = protowire.AppendTag(e.data, n, protowire.BytesType)
		e.data = protowire.AppendBytes(e.data, v)
	}
}

func (e *encoder) string(n protowire.Number, v string) {
	e.bytes(n, []byte(v))
}

func (e *encoder) uuid(n protowire.Number, v uuid.UUID) {
	if v != uuid.Nil {
		e.bytes(n, v[:])
	}
}

func (e *encoder) time(n protowire.Number, v time.Time) {
	if !v.IsZero() {
		data, err := v.MarshalBinary()
		bboltx.Must(err)
		e.bytes(n, data)
	}
}

// field is a single field of a decoded record.
type field struct {
	num   protowire.Number
	value uint64
	data  []byte
}

func (f field) bool() bool {
	return protowire.DecodeBool(f.value)
}

func (f field) string() string {
	return string(f.data)
}

func (f field) uuid() uuid.UUID {
	id, err := uuid.FromBytes(f.data)
	bboltx.Must(err)
	return id
}

func (f field) time() time.Time {
	var t time.Time
	bboltx.Must(t.UnmarshalBinary(f.data))
	return t
}

// decode calls fn for each field in a record produced by an encoder.
//
// It panics with a bboltx.PanicSentinel if the data is malformed.
func decode(data []byte, fn func(f field)) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		mustConsume(n)
		data = data[n:]

		f := field{num: num}

		switch typ {
		case protowire.VarintType:
			f.value, n = protowire.ConsumeVarint(data)
		case protowire.BytesType:
			f.data, n = protowire.ConsumeBytes(data)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}

		mustConsume(n)
		data = data[n:]

		fn(f)
	}
}

func mustConsume(n int) {
	if n < 0 {
		bboltx.Must(fmt.Errorf("data is corrupt: %w", protowire.ParseError(n)))
	}
}

// appendMessage appends an embedded record to data, even if it is empty.
func appendMessage(data []byte, n protowire.Number, v []byte) []byte {
	data = protowire.AppendTag(data, n, protowire.BytesType)
	return protowire.AppendBytes(data, v)
}
