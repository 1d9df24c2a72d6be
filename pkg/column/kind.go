// Package column provides the physical column model: element kinds, their
// packed on-disk encodings, write/read representation sets, and the Column
// handle fields use to move elements to and from a page store.
package column

import "fmt"

// Kind identifies the packed on-disk encoding of a column element.
type Kind uint16

const (
	KindUnknown Kind = iota

	// KindBit stores one boolean per element, bit-packed inside a page.
	KindBit
	// KindChar stores one raw byte per element.
	KindChar

	KindInt8
	KindUInt8
	KindInt16
	KindUInt16
	KindSplitInt16
	KindSplitUInt16
	KindInt32
	KindUInt32
	KindSplitInt32
	KindSplitUInt32
	KindInt64
	KindUInt64
	KindSplitInt64
	KindSplitUInt64

	KindReal32
	KindSplitReal32
	KindReal64
	KindSplitReal64

	// Index kinds store cumulative element counts for offset columns.
	KindIndex32
	KindSplitIndex32
	KindIndex64
	KindSplitIndex64

	// KindSwitch stores an (index, tag) pair for variant dispatch.
	KindSwitch
)

var kindNames = map[Kind]string{
	KindUnknown:     "unknown",
	KindBit:         "bit",
	KindChar:        "char",
	KindInt8:        "int8",
	KindUInt8:       "uint8",
	KindInt16:       "int16",
	KindUInt16:      "uint16",
	KindSplitInt16:  "splitint16",
	KindSplitUInt16: "splituint16",
	KindInt32:       "int32",
	KindUInt32:      "uint32",
	KindSplitInt32:  "splitint32",
	KindSplitUInt32: "splituint32",
	KindInt64:       "int64",
	KindUInt64:      "uint64",
	KindSplitInt64:  "splitint64",
	KindSplitUInt64: "splituint64",
	KindReal32:      "real32",
	KindSplitReal32: "splitreal32",
	KindReal64:      "real64",
	KindSplitReal64: "splitreal64",
	KindIndex32:     "index32",
	KindSplitIndex32: "splitindex32",
	KindIndex64:     "index64",
	KindSplitIndex64: "splitindex64",
	KindSwitch:      "switch",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint16(k))
}

// PackedSize returns the number of bytes one element occupies on disk.
// Bit elements are bit-packed by the page store; for accounting purposes
// a bit element counts as one byte here.
func (k Kind) PackedSize() int {
	switch k {
	case KindBit, KindChar, KindInt8, KindUInt8:
		return 1
	case KindInt16, KindUInt16, KindSplitInt16, KindSplitUInt16:
		return 2
	case KindInt32, KindUInt32, KindSplitInt32, KindSplitUInt32,
		KindReal32, KindSplitReal32, KindIndex32, KindSplitIndex32:
		return 4
	case KindInt64, KindUInt64, KindSplitInt64, KindSplitUInt64,
		KindReal64, KindSplitReal64, KindIndex64, KindSplitIndex64:
		return 8
	case KindSwitch:
		return switchPackedSize
	default:
		return 0
	}
}

// IsSplit reports whether pages of this kind are byte-shuffled before
// compression.
func (k Kind) IsSplit() bool {
	switch k {
	case KindSplitInt16, KindSplitUInt16, KindSplitInt32, KindSplitUInt32,
		KindSplitInt64, KindSplitUInt64, KindSplitReal32, KindSplitReal64,
		KindSplitIndex32, KindSplitIndex64:
		return true
	}
	return false
}

// Unsplit returns the plain counterpart of a split kind, or the kind itself.
func (k Kind) Unsplit() Kind {
	switch k {
	case KindSplitInt16:
		return KindInt16
	case KindSplitUInt16:
		return KindUInt16
	case KindSplitInt32:
		return KindInt32
	case KindSplitUInt32:
		return KindUInt32
	case KindSplitInt64:
		return KindInt64
	case KindSplitUInt64:
		return KindUInt64
	case KindSplitReal32:
		return KindReal32
	case KindSplitReal64:
		return KindReal64
	case KindSplitIndex32:
		return KindIndex32
	case KindSplitIndex64:
		return KindIndex64
	}
	return k
}

type kindClass int

const (
	classNone kindClass = iota
	classBit
	classInt
	classReal
	classIndex
	classSwitch
)

func (k Kind) class() kindClass {
	switch k {
	case KindBit:
		return classBit
	case KindChar, KindInt8, KindUInt8,
		KindInt16, KindUInt16, KindSplitInt16, KindSplitUInt16,
		KindInt32, KindUInt32, KindSplitInt32, KindSplitUInt32,
		KindInt64, KindUInt64, KindSplitInt64, KindSplitUInt64:
		return classInt
	case KindReal32, KindSplitReal32, KindReal64, KindSplitReal64:
		return classReal
	case KindIndex32, KindSplitIndex32, KindIndex64, KindSplitIndex64:
		return classIndex
	case KindSwitch:
		return classSwitch
	}
	return classNone
}

func (k Kind) signed() bool {
	switch k {
	case KindInt8, KindInt16, KindSplitInt16, KindInt32, KindSplitInt32,
		KindInt64, KindSplitInt64:
		return true
	}
	return false
}
