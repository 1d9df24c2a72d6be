package column

import "strings"

// Representation is an ordered list of column kinds that together encode one
// field's values. Most fields use a single column; offset-plus-payload
// layouts such as strings use two.
type Representation []Kind

// Equal reports whether two representations name the same kinds in the same
// order.
func (r Representation) Equal(other Representation) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i] != other[i] {
			return false
		}
	}
	return true
}

func (r Representation) String() string {
	if len(r) == 0 {
		return "(none)"
	}
	parts := make([]string, len(r))
	for i, k := range r {
		parts[i] = k.String()
	}
	return strings.Join(parts, "+")
}

// Representations holds the write-time choices and the read-time matching
// set for a field type. The read set is always a superset of the write set;
// the first write representation is the default.
type Representations struct {
	write []Representation
	read  []Representation
}

// NewRepresentations builds a representation set from the ordered write
// choices plus any read-only extras.
func NewRepresentations(write []Representation, readExtra ...Representation) Representations {
	read := make([]Representation, 0, len(write)+len(readExtra))
	read = append(read, write...)
	read = append(read, readExtra...)
	return Representations{write: write, read: read}
}

// EmptyRepresentations is the set used by fields that own no columns of
// their own: a single empty representation on both sides.
func EmptyRepresentations() Representations {
	empty := []Representation{{}}
	return Representations{write: empty, read: empty}
}

// WriteDefault returns the representation used when no explicit choice was
// made before connecting to a sink.
func (r Representations) WriteDefault() Representation {
	return r.write[0]
}

// WriteTypes returns every representation the field may be asked to write.
func (r Representations) WriteTypes() []Representation {
	return r.write
}

// ReadTypes returns every representation the field can deserialize.
func (r Representations) ReadTypes() []Representation {
	return r.read
}

// MatchRead returns the read representation equal to disk, or nil when the
// on-disk kinds are not deserializable by this set.
func (r Representations) MatchRead(disk Representation) Representation {
	for _, cand := range r.read {
		if cand.Equal(disk) {
			return cand
		}
	}
	return nil
}
