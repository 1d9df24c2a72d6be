package column

import (
	"encoding/binary"
	"math"
)

// InvalidIndex marks an element index that does not address any element.
const InvalidIndex uint64 = math.MaxUint64

// switchPackedSize is the on-disk size of a switch element: an 8-byte
// element index followed by a 4-byte tag.
const switchPackedSize = 12

// ClusterIndex addresses an element relative to the first element of a
// cluster, in the element space of a single column.
type ClusterIndex struct {
	Cluster uint64
	Index   uint64
}

// Plus returns the cluster index shifted forward by n elements.
func (ci ClusterIndex) Plus(n uint64) ClusterIndex {
	return ClusterIndex{Cluster: ci.Cluster, Index: ci.Index + n}
}

// Switch is the decoded form of a switch column element. Index is a
// cluster-local element index into the selected alternative's columns and
// Tag selects the alternative; tag zero means no alternative is set.
type Switch struct {
	Index uint64
	Tag   uint32
}

func (s Switch) pack(out []byte) {
	binary.LittleEndian.PutUint64(out[0:8], s.Index)
	binary.LittleEndian.PutUint32(out[8:12], s.Tag)
}

func unpackSwitch(in []byte) Switch {
	return Switch{
		Index: binary.LittleEndian.Uint64(in[0:8]),
		Tag:   binary.LittleEndian.Uint32(in[8:12]),
	}
}
