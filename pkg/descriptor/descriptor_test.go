package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/column"
)

func TestPutFieldKeepsColumns(t *testing.T) {
	s := NewSchema()
	s.PutField(FieldDescriptor{ID: 0, Name: "v", TypeName: "vector<float32>", ParentID: InvalidFieldID})
	s.AddColumn(0, column.KindSplitIndex64, 0)

	// Re-registering the field without columns must not drop them.
	s.PutField(FieldDescriptor{ID: 0, Name: "v", TypeName: "vector<float32>", ParentID: InvalidFieldID})
	assert.Equal(t, []column.Kind{column.KindSplitIndex64}, s.ColumnKinds(0))
}

func TestAddColumnOutOfOrder(t *testing.T) {
	s := NewSchema()
	s.PutField(FieldDescriptor{ID: 0, Name: "s", TypeName: "string", ParentID: InvalidFieldID})
	s.AddColumn(0, column.KindChar, 1)
	s.AddColumn(0, column.KindSplitIndex64, 0)
	assert.Equal(t, []column.Kind{column.KindSplitIndex64, column.KindChar}, s.ColumnKinds(0))
}

func TestColumnKindsUnknownField(t *testing.T) {
	s := NewSchema()
	assert.Nil(t, s.ColumnKinds(7))
}

func TestChildren(t *testing.T) {
	s := NewSchema()
	s.PutField(FieldDescriptor{ID: 0, Name: "v", TypeName: "vector<float32>", ParentID: InvalidFieldID})
	s.PutField(FieldDescriptor{ID: 1, Name: "_0", TypeName: "float32", ParentID: 0})
	s.PutField(FieldDescriptor{ID: 2, Name: "x", TypeName: "int32", ParentID: InvalidFieldID})

	kids := s.Children(0)
	require.Len(t, kids, 1)
	assert.Equal(t, FieldID(1), kids[0].ID)
}

func TestSchemaJSON(t *testing.T) {
	s := NewSchema()
	s.PutField(FieldDescriptor{ID: 0, Name: "s", TypeName: "string", TypeVersion: 2, ParentID: InvalidFieldID})
	s.AddColumn(0, column.KindSplitIndex64, 0)
	s.AddColumn(0, column.KindChar, 1)

	data, err := s.MarshalJSON()
	require.NoError(t, err)

	restored := NewSchema()
	require.NoError(t, restored.UnmarshalJSON(data))
	fd, ok := restored.Field(0)
	require.True(t, ok)
	assert.Equal(t, "string", fd.TypeName)
	assert.Equal(t, uint32(2), fd.TypeVersion)
	assert.Equal(t, []column.Kind{column.KindSplitIndex64, column.KindChar}, fd.Columns)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	s := NewSchema()
	assert.Error(t, s.UnmarshalJSON([]byte("{not json")))
}
