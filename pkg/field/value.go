package field

import (
	"encoding/binary"
	"math"
)

// Value is a field-bound buffer holding one in-memory value laid out the way
// the field dictates. Owning values were created by the field and carry
// payloads in the field's heap; they must not outlive the field. Bound
// values wrap caller-provided buffers.
type Value struct {
	field  Field
	buf    []byte
	owning bool
}

// Field returns the field this value is bound to.
func (v *Value) Field() Field { return v.field }

// Bytes exposes the raw value buffer.
func (v *Value) Bytes() []byte { return v.buf }

// Bool interprets the first byte as a boolean.
func (v *Value) Bool() bool { return v.buf[0] != 0 }

// SetBool stores a boolean in the first byte.
func (v *Value) SetBool(b bool) {
	if b {
		v.buf[0] = 1
	} else {
		v.buf[0] = 0
	}
}

// Uint64 reads the leading bytes of the value as an unsigned little-endian
// integer of the field's size.
func (v *Value) Uint64() uint64 {
	return readUint(v.buf, v.field.Size())
}

// SetUint64 stores an unsigned integer in the leading bytes of the value.
func (v *Value) SetUint64(u uint64) {
	writeUint(v.buf, v.field.Size(), u)
}

// Int64 reads the leading bytes as a signed little-endian integer of the
// field's size.
func (v *Value) Int64() int64 {
	u := readUint(v.buf, v.field.Size())
	shift := uint(64 - 8*v.field.Size())
	return int64(u<<shift) >> shift
}

// SetInt64 stores a signed integer in the leading bytes of the value.
func (v *Value) SetInt64(i int64) {
	writeUint(v.buf, v.field.Size(), uint64(i))
}

// Float64 reads the value as a floating point number of the field's width.
func (v *Value) Float64() float64 {
	if v.field.Size() == 4 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(v.buf)))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(v.buf))
}

// SetFloat64 stores a floating point number at the field's width.
func (v *Value) SetFloat64(f float64) {
	if v.field.Size() == 4 {
		binary.LittleEndian.PutUint32(v.buf, math.Float32bits(float32(f)))
	} else {
		binary.LittleEndian.PutUint64(v.buf, math.Float64bits(f))
	}
}

func readUint(buf []byte, width int) uint64 {
	var u uint64
	for i := 0; i < width && i < 8; i++ {
		u |= uint64(buf[i]) << (8 * i)
	}
	return u
}

func writeUint(buf []byte, width int, u uint64) {
	for i := 0; i < width && i < 8; i++ {
		buf[i] = byte(u >> (8 * i))
	}
}
