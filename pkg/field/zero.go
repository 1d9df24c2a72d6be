package field

import (
	"github.com/ajitpratap0/strata/pkg/column"
	serrors "github.com/ajitpratap0/strata/pkg/errors"
)

// zeroField is the root of a field tree built from several top-level
// fields. It owns no columns and no values; entries are appended and read
// through its children.
type zeroField struct {
	fieldBase
}

// NewZero creates an empty tree root.
func NewZero() Field {
	f := &zeroField{}
	f.init(f, "", "")
	f.structure = StructRecord
	f.traits = TraitTriviallyConstructible | TraitTriviallyDestructible
	return f
}

// Attach adds a top-level field to a tree root created by NewZero.
func Attach(root Field, child Field) error {
	zf, ok := root.(*zeroField)
	if !ok {
		return serrors.New(serrors.ErrorTypeMisuse,
			"fields can only be attached to a tree root")
	}
	if zf.state != stateUnconnected {
		return serrors.New(serrors.ErrorTypeMisuse,
			"cannot attach fields to a connected tree")
	}
	for _, sibling := range zf.children {
		if sibling.Name() == child.Name() {
			return serrors.Newf(serrors.ErrorTypeValidation,
				"tree already has a field named %q", child.Name())
		}
	}
	zf.attach(child)
	return nil
}

func (f *zeroField) representations() column.Representations {
	return column.EmptyRepresentations()
}

func (f *zeroField) makeColumns(column.Representation) []*column.Column { return nil }

func (f *zeroField) appendImpl(*Value) (int, error) {
	return 0, serrors.New(serrors.ErrorTypeMisuse, "the tree root has no values")
}

func (f *zeroField) readImpl(uint64, *Value) error {
	return serrors.New(serrors.ErrorTypeMisuse, "the tree root has no values")
}

func (f *zeroField) cloneImpl(string) Field {
	clone := NewZero().(*zeroField)
	for _, child := range f.children {
		clone.attach(child.Clone(child.Name()))
	}
	return clone
}
