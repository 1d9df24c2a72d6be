package column

import (
	"encoding/binary"
	"math"
)

// MemType describes the in-memory layout of the element bytes a field hands
// to a column. Packing converts between this layout and the column's packed
// on-disk kind, widening or narrowing as needed so that a field can read
// columns written with any kind in its read set.
type MemType int

const (
	MemBool MemType = iota // 1 byte, 0 or 1
	MemInt8
	MemUInt8
	MemInt16
	MemUInt16
	MemInt32
	MemUInt32
	MemInt64
	MemUInt64
	MemFloat32
	MemFloat64
	MemIndex  // 8-byte cumulative element count
	MemSwitch // 12 bytes: 8-byte index, 4-byte tag
)

// Size returns the in-memory element width in bytes.
func (m MemType) Size() int {
	switch m {
	case MemBool, MemInt8, MemUInt8:
		return 1
	case MemInt16, MemUInt16:
		return 2
	case MemInt32, MemUInt32, MemFloat32:
		return 4
	case MemInt64, MemUInt64, MemFloat64, MemIndex:
		return 8
	case MemSwitch:
		return switchPackedSize
	}
	return 0
}

func (m MemType) signed() bool {
	switch m {
	case MemInt8, MemInt16, MemInt32, MemInt64:
		return true
	}
	return false
}

func readLE(in []byte, width int, signed bool) uint64 {
	var v uint64
	for i := 0; i < width; i++ {
		v |= uint64(in[i]) << (8 * i)
	}
	if signed && width < 8 {
		shift := uint(64 - 8*width)
		v = uint64(int64(v<<shift) >> shift)
	}
	return v
}

func writeLE(out []byte, width int, v uint64) {
	for i := 0; i < width; i++ {
		out[i] = byte(v >> (8 * i))
	}
}

// pack converts one in-memory element to its packed on-disk form.
func pack(k Kind, m MemType, in, out []byte) {
	switch k.class() {
	case classBit:
		if in[0] != 0 {
			out[0] = 1
		} else {
			out[0] = 0
		}
	case classInt:
		v := readLE(in, m.Size(), m.signed())
		writeLE(out, k.PackedSize(), v)
	case classReal:
		var f float64
		if m == MemFloat32 {
			f = float64(math.Float32frombits(binary.LittleEndian.Uint32(in)))
		} else {
			f = math.Float64frombits(binary.LittleEndian.Uint64(in))
		}
		if k.PackedSize() == 4 {
			binary.LittleEndian.PutUint32(out, math.Float32bits(float32(f)))
		} else {
			binary.LittleEndian.PutUint64(out, math.Float64bits(f))
		}
	case classIndex:
		v := binary.LittleEndian.Uint64(in)
		writeLE(out, k.PackedSize(), v)
	case classSwitch:
		copy(out[:switchPackedSize], in[:switchPackedSize])
	}
}

// unpack converts one packed on-disk element back to the in-memory form.
func unpack(k Kind, m MemType, in, out []byte) {
	switch k.class() {
	case classBit:
		out[0] = in[0] & 1
	case classInt:
		v := readLE(in, k.PackedSize(), k.signed())
		writeLE(out, m.Size(), v)
	case classReal:
		var f float64
		if k.PackedSize() == 4 {
			f = float64(math.Float32frombits(binary.LittleEndian.Uint32(in)))
		} else {
			f = math.Float64frombits(binary.LittleEndian.Uint64(in))
		}
		if m == MemFloat32 {
			binary.LittleEndian.PutUint32(out, math.Float32bits(float32(f)))
		} else {
			binary.LittleEndian.PutUint64(out, math.Float64bits(f))
		}
	case classIndex:
		v := readLE(in, k.PackedSize(), false)
		binary.LittleEndian.PutUint64(out, v)
	case classSwitch:
		copy(out[:switchPackedSize], in[:switchPackedSize])
	}
}
