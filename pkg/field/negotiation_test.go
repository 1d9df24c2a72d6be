package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/column"
	"github.com/ajitpratap0/strata/pkg/compression"
	serrors "github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/pagestore"
)

func TestSetColumnRepresentative(t *testing.T) {
	f, err := Create("f", "double")
	require.NoError(t, err)
	assert.Equal(t, column.Representation{column.KindSplitReal64}, f.ColumnRepresentative())

	require.NoError(t, f.SetColumnRepresentative(column.Representation{column.KindReal32}))
	assert.Equal(t, column.Representation{column.KindReal32}, f.ColumnRepresentative())

	err = f.SetColumnRepresentative(column.Representation{column.KindIndex64})
	require.Error(t, err)
	assert.True(t, serrors.IsType(err, serrors.ErrorTypeRepresentation))
}

func TestSetColumnRepresentativeAfterConnect(t *testing.T) {
	f, err := Create("f", "double")
	require.NoError(t, err)
	store := pagestore.NewMemoryStore(testStoreOpts())
	require.NoError(t, f.ConnectSink(store))

	err = f.SetColumnRepresentative(column.Representation{column.KindReal64})
	require.Error(t, err)
	assert.True(t, serrors.IsType(err, serrors.ErrorTypeMisuse))
}

func TestAutoAdjustUnsplitsWithoutCompression(t *testing.T) {
	f, err := Create("f", "double")
	require.NoError(t, err)
	store := pagestore.NewMemoryStore(&column.WriteOptions{
		Compression: compression.None,
		PageSize:    64,
	})
	require.NoError(t, f.ConnectSink(store))
	assert.Equal(t, []column.Kind{column.KindReal64}, store.ColumnKinds(0))
}

func TestAutoAdjustKeepsSplitWithCompression(t *testing.T) {
	f, err := Create("f", "double")
	require.NoError(t, err)
	store := pagestore.NewMemoryStore(&column.WriteOptions{
		Compression:      compression.Zstd,
		CompressionLevel: compression.Default,
		PageSize:         64,
	})
	require.NoError(t, f.ConnectSink(store))
	assert.Equal(t, []column.Kind{column.KindSplitReal64}, store.ColumnKinds(0))
}

func TestAutoAdjustSmallClusters(t *testing.T) {
	f, err := Create("f", "std::vector<float>")
	require.NoError(t, err)
	store := pagestore.NewMemoryStore(&column.WriteOptions{
		Compression:   compression.None,
		PageSize:      64,
		SmallClusters: true,
	})
	require.NoError(t, f.ConnectSink(store))
	assert.Equal(t, []column.Kind{column.KindIndex32}, store.ColumnKinds(0))
}

func TestConnectSourceRepresentationMismatch(t *testing.T) {
	store := writeEntries(t, "float", 1, func(i int, v *Value) { v.SetFloat64(1) })

	r, err := Create("f", "std::string")
	require.NoError(t, err)
	err = r.ConnectSource(store)
	require.Error(t, err)
	assert.True(t, serrors.IsType(err, serrors.ErrorTypeRepresentation))
}

func TestReadWideningInt32ToInt64(t *testing.T) {
	store := writeEntries(t, "int", 4, func(i int, v *Value) {
		v.SetInt64(int64(i) - 2)
	})
	require.Equal(t, []column.Kind{column.KindInt32}, store.ColumnKinds(0))

	r := readerFor(t, "long long", store)
	v := r.GenerateValue()
	for i := 0; i < 4; i++ {
		require.NoError(t, r.Read(uint64(i), v))
		assert.Equal(t, int64(i)-2, v.Int64())
	}
}

func TestDouble32WritesNarrowReadsWide(t *testing.T) {
	store := writeEntries(t, "Double32_t", 3, func(i int, v *Value) {
		v.SetFloat64(float64(i) + 0.5)
	})
	// The chosen 32-bit representative survives the no-compression
	// adjustment as its unsplit form.
	require.Equal(t, []column.Kind{column.KindReal32}, store.ColumnKinds(0))

	r := readerFor(t, "double", store)
	v := r.GenerateValue()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Read(uint64(i), v))
		assert.Equal(t, float64(i)+0.5, v.Float64())
	}
}

func TestDoubleConnectFails(t *testing.T) {
	f, err := Create("f", "int32")
	require.NoError(t, err)
	store := pagestore.NewMemoryStore(testStoreOpts())
	require.NoError(t, f.ConnectSink(store))

	err = f.ConnectSink(store)
	require.Error(t, err)
	assert.True(t, serrors.IsType(err, serrors.ErrorTypeMisuse))
	err = f.ConnectSource(store)
	require.Error(t, err)
	assert.True(t, serrors.IsType(err, serrors.ErrorTypeMisuse))
}

func TestAppendWithoutConnect(t *testing.T) {
	f, err := Create("f", "int32")
	require.NoError(t, err)
	v := f.GenerateValue()
	_, err = f.Append(v)
	require.Error(t, err)
	assert.True(t, serrors.IsType(err, serrors.ErrorTypeMisuse))
	err = f.Read(0, v)
	require.Error(t, err)
	assert.True(t, serrors.IsType(err, serrors.ErrorTypeMisuse))
}

func TestAppendForeignValue(t *testing.T) {
	f, err := Create("f", "int32")
	require.NoError(t, err)
	other, err := Create("g", "int32")
	require.NoError(t, err)
	store := pagestore.NewMemoryStore(testStoreOpts())
	require.NoError(t, f.ConnectSink(store))

	_, err = f.Append(other.GenerateValue())
	require.Error(t, err)
	assert.True(t, serrors.IsType(err, serrors.ErrorTypeMisuse))
}

func TestCardinalityProjectsCollection(t *testing.T) {
	store := writeEntries(t, "std::vector<float>", 5, func(i int, v *Value) {
		CollectionResize(v, i)
		for j := 0; j < i; j++ {
			CollectionItem(v, j).SetFloat64(0)
		}
	})

	n, err := Create("n", "cardinality<std::uint32_t>")
	require.NoError(t, err)
	n.SetOnDiskID(0)
	require.NoError(t, n.ConnectSource(store))

	v := n.GenerateValue()
	for i := 0; i < 5; i++ {
		require.NoError(t, n.Read(uint64(i), v))
		assert.Equal(t, uint64(i), v.Uint64())
	}
}

func TestCardinalityIsReadOnly(t *testing.T) {
	n, err := Create("n", "cardinality<std::uint64_t>")
	require.NoError(t, err)
	assert.Nil(t, n.ColumnRepresentative())

	store := pagestore.NewMemoryStore(testStoreOpts())
	err = n.ConnectSink(store)
	require.Error(t, err)
	assert.True(t, serrors.IsType(err, serrors.ErrorTypeMisuse))
}

func TestCloneKeepsChoices(t *testing.T) {
	f, err := Create("f", "double")
	require.NoError(t, err)
	require.NoError(t, f.SetColumnRepresentative(column.Representation{column.KindReal64}))
	f.SetDescription("transverse momentum")
	f.SetOnDiskID(7)

	c := f.Clone("g")
	assert.Equal(t, "g", c.Name())
	assert.Equal(t, "float64", c.TypeName())
	assert.Equal(t, column.Representation{column.KindReal64}, c.ColumnRepresentative())
	assert.Equal(t, "transverse momentum", c.Description())
	assert.Equal(t, uint64(7), c.OnDiskID())

	// The clone is unconnected and can connect on its own.
	store := pagestore.NewMemoryStore(testStoreOpts())
	require.NoError(t, c.ConnectSink(store))
}
