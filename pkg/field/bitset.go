package field

import (
	"encoding/binary"
	"fmt"

	"github.com/ajitpratap0/strata/pkg/column"
)

// bitsetField maps a fixed number of bits, packed into 64-bit words in
// memory, onto a bit column with one element per bit.
type bitsetField struct {
	fieldBase
	nBits uint64
}

func newBitsetField(name string, nBits uint64) *bitsetField {
	f := &bitsetField{nBits: nBits}
	f.init(f, name, fmt.Sprintf("bitset<%d>", nBits))
	words := (nBits + 63) / 64
	if words == 0 {
		words = 1
	}
	f.size = int(words) * 8
	f.alignment = 8
	f.traits = TraitTriviallyConstructible | TraitTriviallyDestructible
	f.structure = StructLeaf
	f.repetitions = nBits
	return f
}

func (f *bitsetField) representations() column.Representations { return boolReps }

func (f *bitsetField) makeColumns(rep column.Representation) []*column.Column {
	return columnsFor(rep, column.MemBool)
}

func (f *bitsetField) appendImpl(v *Value) (int, error) {
	col := f.principal()
	for i := uint64(0); i < f.nBits; i++ {
		word := binary.LittleEndian.Uint64(v.buf[(i/64)*8:])
		col.AppendBit(word&(1<<(i%64)) != 0)
	}
	return int(f.nBits), nil
}

func (f *bitsetField) readImpl(globalIndex uint64, v *Value) error {
	return f.readBits(globalIndex*f.nBits, v)
}

func (f *bitsetField) readInClusterImpl(ci column.ClusterIndex, v *Value) error {
	first, err := f.principal().GlobalOf(column.ClusterIndex{
		Cluster: ci.Cluster,
		Index:   ci.Index * f.nBits,
	})
	if err != nil {
		return err
	}
	return f.readBits(first, v)
}

func (f *bitsetField) readBits(first uint64, v *Value) error {
	for i := range v.buf {
		v.buf[i] = 0
	}
	col := f.principal()
	for i := uint64(0); i < f.nBits; i++ {
		set, err := col.ReadBit(first + i)
		if err != nil {
			return err
		}
		if set {
			wordOff := (i / 64) * 8
			word := binary.LittleEndian.Uint64(v.buf[wordOff:])
			binary.LittleEndian.PutUint64(v.buf[wordOff:], word|1<<(i%64))
		}
	}
	return nil
}

func (f *bitsetField) cloneImpl(name string) Field {
	return newBitsetField(name, f.nBits)
}

// SetBit sets or clears bit i of a bitset value.
func (f *bitsetField) SetBit(v *Value, i uint64, set bool) {
	wordOff := (i / 64) * 8
	word := binary.LittleEndian.Uint64(v.buf[wordOff:])
	if set {
		word |= 1 << (i % 64)
	} else {
		word &^= 1 << (i % 64)
	}
	binary.LittleEndian.PutUint64(v.buf[wordOff:], word)
}

// Bit returns bit i of a bitset value.
func (f *bitsetField) Bit(v *Value, i uint64) bool {
	word := binary.LittleEndian.Uint64(v.buf[(i/64)*8:])
	return word&(1<<(i%64)) != 0
}
