package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/column"
	serrors "github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/typeinfo"
)

func TestCreateCanonicalizesScalars(t *testing.T) {
	tests := []struct {
		spelling  string
		canonical string
	}{
		{"unsigned int", "uint32"},
		{"uint32_t", "uint32"},
		{"UInt_t", "uint32"},
		{"long long", "int64"},
		{"Long64_t", "int64"},
		{"signed char", "int8"},
		{"float", "float32"},
		{"Double_t", "float64"},
		{"Bool_t", "bool"},
		{"std::string", "string"},
	}
	for _, tt := range tests {
		t.Run(tt.spelling, func(t *testing.T) {
			f, err := Create("x", tt.spelling)
			require.NoError(t, err)
			assert.Equal(t, tt.canonical, f.TypeName())
			assert.Equal(t, tt.spelling, f.TypeAlias())
		})
	}
}

func TestCreateCanonicalSpellingHasNoAlias(t *testing.T) {
	f, err := Create("x", "int32")
	require.NoError(t, err)
	assert.Equal(t, "int32", f.TypeName())
	assert.Empty(t, f.TypeAlias())
}

func TestCreateNormalizesWhitespace(t *testing.T) {
	f, err := Create("x", "  unsigned   int ")
	require.NoError(t, err)
	assert.Equal(t, "uint32", f.TypeName())
	assert.Equal(t, "unsigned int", f.TypeAlias())
}

func TestCreateVector(t *testing.T) {
	f, err := Create("x", "std::vector<float>")
	require.NoError(t, err)
	assert.Equal(t, "vector<float32>", f.TypeName())
	assert.Equal(t, StructCollection, f.Structure())
	require.Len(t, f.SubFields(), 1)
	assert.Equal(t, "float32", f.SubFields()[0].TypeName())
}

func TestCreateNestedTemplates(t *testing.T) {
	f, err := Create("x", "std::vector<std::vector<int>>")
	require.NoError(t, err)
	assert.Equal(t, "vector<vector<int32>>", f.TypeName())

	f, err = Create("x", "std::pair<std::string, std::vector<float>>")
	require.NoError(t, err)
	assert.Equal(t, "pair<string,vector<float32>>", f.TypeName())
	require.Len(t, f.SubFields(), 2)
	assert.Equal(t, "_0", f.SubFields()[0].Name())
	assert.Equal(t, "_1", f.SubFields()[1].Name())
}

func TestCreateArraySuffix(t *testing.T) {
	f, err := Create("x", "float[3]")
	require.NoError(t, err)
	assert.Equal(t, "array<float32,3>", f.TypeName())
	assert.Equal(t, uint64(3), f.Repetitions())
	assert.Equal(t, 12, f.Size())

	_, err = Create("x", "float[3][2]")
	require.Error(t, err)
	assert.True(t, serrors.IsType(err, serrors.ErrorTypeSchema))
	assert.Contains(t, err.Error(), "dimension")

	// Nesting through the template spelling stays legal.
	f, err = Create("x", "std::array<std::array<float,2>,3>")
	require.NoError(t, err)
	assert.Equal(t, "array<array<float32,2>,3>", f.TypeName())
	assert.Equal(t, 24, f.Size())
}

func TestCreateArrayTemplate(t *testing.T) {
	f, err := Create("x", "std::array<bool,4>")
	require.NoError(t, err)
	assert.Equal(t, "array<bool,4>", f.TypeName())

	_, err = Create("x", "std::array<bool,0>")
	require.Error(t, err)
	_, err = Create("x", "std::array<bool,many>")
	require.Error(t, err)
}

func TestCreatePointerAndOptional(t *testing.T) {
	f, err := Create("x", "*int")
	require.NoError(t, err)
	assert.Equal(t, "ptr<int32>", f.TypeName())

	f, err = Create("x", "std::unique_ptr<double>")
	require.NoError(t, err)
	assert.Equal(t, "ptr<float64>", f.TypeName())

	f, err = Create("x", "std::optional<double>")
	require.NoError(t, err)
	assert.Equal(t, "nullable<float64>", f.TypeName())
}

func TestCreateAtomicIsTransparent(t *testing.T) {
	f, err := Create("x", "std::atomic<int>")
	require.NoError(t, err)
	assert.Equal(t, "int32", f.TypeName())
	assert.Equal(t, "x", f.Name())
}

func TestCreateBitset(t *testing.T) {
	f, err := Create("x", "std::bitset<70>")
	require.NoError(t, err)
	assert.Equal(t, "bitset<70>", f.TypeName())
	assert.Equal(t, 16, f.Size())
	assert.Equal(t, uint64(70), f.Repetitions())
}

func TestCreateVariant(t *testing.T) {
	f, err := Create("x", "std::variant<int,std::string>")
	require.NoError(t, err)
	assert.Equal(t, "variant<int32,string>", f.TypeName())
	assert.Equal(t, StructVariant, f.Structure())
	require.Len(t, f.SubFields(), 2)
}

func TestVariantAlternativeLimit(t *testing.T) {
	alts := make([]Field, maxVariantAlternatives+1)
	for i := range alts {
		p, ok := newPrimitive("_0", "int32")
		require.True(t, ok)
		alts[i] = p
	}
	_, err := newVariantField("x", alts)
	require.Error(t, err)
	assert.True(t, serrors.IsType(err, serrors.ErrorTypeSchema))

	_, err = newVariantField("x", alts[:maxVariantAlternatives])
	require.NoError(t, err)
}

func TestCreateDouble32(t *testing.T) {
	f, err := Create("x", "Double32_t")
	require.NoError(t, err)
	assert.Equal(t, "float64", f.TypeName())
	assert.Equal(t, "double32", f.TypeAlias())
	assert.Equal(t, column.Representation{column.KindSplitReal32}, f.ColumnRepresentative())
}

func TestCreateCardinality(t *testing.T) {
	f, err := Create("x", "cardinality<uint32_t>")
	require.NoError(t, err)
	assert.Equal(t, "cardinality<uint32>", f.TypeName())
	assert.Equal(t, 4, f.Size())

	f, err = Create("x", "cardinality<std::uint64_t>")
	require.NoError(t, err)
	assert.Equal(t, 8, f.Size())

	f, err = Create("x", "cardinality<unsigned long long>")
	require.NoError(t, err)
	assert.Equal(t, 8, f.Size())

	_, err = Create("x", "cardinality<float>")
	require.Error(t, err)
}

func TestCreateEnum(t *testing.T) {
	reg := typeinfo.NewRegistry()
	require.NoError(t, reg.RegisterEnum(typeinfo.Enum{TypeName: "Color", Underlying: "int"}))

	f, err := CreateWithRegistry("x", "Color", reg)
	require.NoError(t, err)
	assert.Equal(t, "Color", f.TypeName())
	assert.Equal(t, 4, f.Size())
}

func TestCreateRejectsBadNames(t *testing.T) {
	_, err := Create("", "int32")
	require.Error(t, err)
	assert.True(t, serrors.IsType(err, serrors.ErrorTypeValidation))

	_, err = Create("a.b", "int32")
	require.Error(t, err)
	assert.True(t, serrors.IsType(err, serrors.ErrorTypeValidation))
}

func TestCreateUnknownType(t *testing.T) {
	_, err := Create("x", "NoSuchThing")
	require.Error(t, err)
	assert.True(t, serrors.IsType(err, serrors.ErrorTypeSchema))

	_, err = Create("x", "")
	require.Error(t, err)
}

func TestDescribeTree(t *testing.T) {
	f, err := Create("hits", "std::vector<float>")
	require.NoError(t, err)
	out := Describe(f)
	assert.Contains(t, out, "hits: vector<float32>")
	assert.Contains(t, out, "_0: float32")
}
