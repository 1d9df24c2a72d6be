package field

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/column"
	"github.com/ajitpratap0/strata/pkg/compression"
	"github.com/ajitpratap0/strata/pkg/pagestore"
	"github.com/ajitpratap0/strata/pkg/typeinfo"
)

func testStoreOpts() *column.WriteOptions {
	return &column.WriteOptions{Compression: compression.None, PageSize: 32}
}

// writeEntries builds a tree for typeName, connects it to a fresh store,
// and appends n entries produced by fill.
func writeEntries(t *testing.T, typeName string, n int, fill func(i int, v *Value)) *pagestore.MemoryStore {
	t.Helper()
	f, err := Create("f", typeName)
	require.NoError(t, err)
	store := pagestore.NewMemoryStore(testStoreOpts())
	require.NoError(t, f.ConnectSink(store))
	for i := 0; i < n; i++ {
		v := f.GenerateValue()
		fill(i, v)
		_, err := f.Append(v)
		require.NoError(t, err)
		f.DestroyValue(v)
	}
	require.NoError(t, f.Flush())
	return store
}

func readerFor(t *testing.T, typeName string, store *pagestore.MemoryStore) Field {
	t.Helper()
	f, err := Create("f", typeName)
	require.NoError(t, err)
	require.NoError(t, f.ConnectSource(store))
	return f
}

func TestPrimitiveRoundTrip(t *testing.T) {
	tests := []struct {
		typeName string
		fill     func(i int, v *Value)
		check    func(t *testing.T, i int, v *Value)
	}{
		{"bool",
			func(i int, v *Value) { v.SetBool(i%2 == 0) },
			func(t *testing.T, i int, v *Value) { assert.Equal(t, i%2 == 0, v.Bool()) }},
		{"char",
			func(i int, v *Value) { v.SetUint64(uint64('a' + i)) },
			func(t *testing.T, i int, v *Value) { assert.Equal(t, uint64('a'+i), v.Uint64()) }},
		{"int8",
			func(i int, v *Value) { v.SetInt64(int64(-i)) },
			func(t *testing.T, i int, v *Value) { assert.Equal(t, int64(-i), v.Int64()) }},
		{"uint16",
			func(i int, v *Value) { v.SetUint64(uint64(i * 1000)) },
			func(t *testing.T, i int, v *Value) { assert.Equal(t, uint64(i*1000), v.Uint64()) }},
		{"int32",
			func(i int, v *Value) { v.SetInt64(int64(i) - 50) },
			func(t *testing.T, i int, v *Value) { assert.Equal(t, int64(i)-50, v.Int64()) }},
		{"int64",
			func(i int, v *Value) { v.SetInt64(int64(i)*-1e15 - 1) },
			func(t *testing.T, i int, v *Value) { assert.Equal(t, int64(i)*-1e15-1, v.Int64()) }},
		{"uint64",
			func(i int, v *Value) { v.SetUint64(uint64(i) << 40) },
			func(t *testing.T, i int, v *Value) { assert.Equal(t, uint64(i)<<40, v.Uint64()) }},
		{"float32",
			func(i int, v *Value) { v.SetFloat64(float64(i) + 0.5) },
			func(t *testing.T, i int, v *Value) { assert.Equal(t, float64(i)+0.5, v.Float64()) }},
		{"float64",
			func(i int, v *Value) { v.SetFloat64(float64(i) * 1e-7) },
			func(t *testing.T, i int, v *Value) { assert.Equal(t, float64(i)*1e-7, v.Float64()) }},
	}
	const n = 100
	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			store := writeEntries(t, tt.typeName, n, tt.fill)
			r := readerFor(t, tt.typeName, store)
			v := r.GenerateValue()
			for i := 0; i < n; i++ {
				require.NoError(t, r.Read(uint64(i), v))
				tt.check(t, i, v)
			}
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	want := []string{"", "hello", "wörld", "", string(make([]byte, 200)), "tail"}
	store := writeEntries(t, "std::string", len(want), func(i int, v *Value) {
		SetString(v, want[i])
	})

	r := readerFor(t, "std::string", store)
	v := r.GenerateValue()
	for i := range want {
		require.NoError(t, r.Read(uint64(i), v))
		assert.Equal(t, want[i], GetString(v), "entry %d", i)
	}
	r.DestroyValue(v)
}

func TestStringSetReusesPayloadBlock(t *testing.T) {
	f, err := Create("f", "std::string")
	require.NoError(t, err)
	sf := f.(*stringField)

	v := f.GenerateValue()
	SetString(v, "a payload long enough to shrink")
	handle := getHandle(v.Bytes())
	before := sf.heap.get(handle)

	SetString(v, "tiny")
	assert.Equal(t, handle, getHandle(v.Bytes()))
	assert.Equal(t, "tiny", GetString(v))
	after := sf.heap.get(handle)
	assert.True(t, &before[0] == &after[0], "shrinking must reuse the block")

	// Growing past the block capacity swaps in a fresh block without
	// leaving the old one behind.
	big := fmt.Sprintf("%0300d", 7)
	SetString(v, big)
	assert.Equal(t, big, GetString(v))
	assert.Len(t, sf.heap.blocks, 1)

	f.DestroyValue(v)
	assert.Empty(t, sf.heap.blocks)
}

func TestVectorRoundTrip(t *testing.T) {
	const n = 20
	store := writeEntries(t, "std::vector<float>", n, func(i int, v *Value) {
		CollectionResize(v, i%5)
		for j := 0; j < i%5; j++ {
			CollectionItem(v, j).SetFloat64(float64(i*10 + j))
		}
	})

	r := readerFor(t, "std::vector<float>", store)
	v := r.GenerateValue()
	for i := 0; i < n; i++ {
		require.NoError(t, r.Read(uint64(i), v))
		require.Equal(t, i%5, CollectionLen(v), "entry %d", i)
		for j := 0; j < i%5; j++ {
			assert.Equal(t, float64(i*10+j), CollectionItem(v, j).Float64())
		}
	}
	r.DestroyValue(v)
}

func TestNestedVectorRoundTrip(t *testing.T) {
	store := writeEntries(t, "std::vector<std::vector<int>>", 4, func(i int, v *Value) {
		CollectionResize(v, i)
		for j := 0; j < i; j++ {
			inner := CollectionItem(v, j)
			CollectionResize(inner, j+1)
			for k := 0; k <= j; k++ {
				CollectionItem(inner, k).SetInt64(int64(100*i + 10*j + k))
			}
		}
	})

	r := readerFor(t, "std::vector<std::vector<int>>", store)
	v := r.GenerateValue()
	for i := 0; i < 4; i++ {
		require.NoError(t, r.Read(uint64(i), v))
		require.Equal(t, i, CollectionLen(v))
		for j := 0; j < i; j++ {
			inner := CollectionItem(v, j)
			require.Equal(t, j+1, CollectionLen(inner))
			for k := 0; k <= j; k++ {
				assert.Equal(t, int64(100*i+10*j+k), CollectionItem(inner, k).Int64())
			}
		}
	}
	r.DestroyValue(v)
}

func TestVectorOfStringsShrinkReleasesPayloads(t *testing.T) {
	lengths := []int{5, 2}
	store := writeEntries(t, "std::vector<std::string>", len(lengths), func(i int, v *Value) {
		CollectionResize(v, lengths[i])
		for j := 0; j < lengths[i]; j++ {
			SetString(CollectionItem(v, j), fmt.Sprintf("e%d-%d", i, j))
		}
	})

	r := readerFor(t, "std::vector<std::string>", store)
	item := r.SubFields()[0]
	v := r.GenerateValue()

	require.NoError(t, r.Read(0, v))
	require.Equal(t, 5, CollectionLen(v))
	assert.Equal(t, "e0-4", GetString(CollectionItem(v, 4)))
	assert.Len(t, item.base().heap.blocks, 5)

	// Shrinking from 5 to 2 items must release the three trailing string
	// payloads.
	require.NoError(t, r.Read(1, v))
	require.Equal(t, 2, CollectionLen(v))
	assert.Equal(t, "e1-0", GetString(CollectionItem(v, 0)))
	assert.Equal(t, "e1-1", GetString(CollectionItem(v, 1)))
	assert.Len(t, item.base().heap.blocks, 2)

	r.DestroyValue(v)
	assert.Empty(t, item.base().heap.blocks)
}

func TestVectorOfBoolRoundTrip(t *testing.T) {
	store := writeEntries(t, "std::vector<bool>", 3, func(i int, v *Value) {
		CollectionResize(v, 4)
		for j := 0; j < 4; j++ {
			CollectionItem(v, j).SetBool((i+j)%2 == 0)
		}
	})

	r := readerFor(t, "std::vector<bool>", store)
	v := r.GenerateValue()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Read(uint64(i), v))
		require.Equal(t, 4, CollectionLen(v))
		for j := 0; j < 4; j++ {
			assert.Equal(t, (i+j)%2 == 0, CollectionItem(v, j).Bool())
		}
	}
	r.DestroyValue(v)
}

func TestSmallvecInlineAndSpill(t *testing.T) {
	f, err := Create("f", "ROOT::RVec<int>")
	require.NoError(t, err)
	sv := f.(*smallvecField)
	require.Greater(t, sv.inlineN, 0)

	short, long := sv.inlineN-1, sv.inlineN*3
	lengths := []int{short, long, 1}
	store := writeEntries(t, "ROOT::RVec<int>", len(lengths), func(i int, v *Value) {
		CollectionResize(v, lengths[i])
		for j := 0; j < lengths[i]; j++ {
			CollectionItem(v, j).SetInt64(int64(1000*i + j))
		}
	})

	r := readerFor(t, "ROOT::RVec<int>", store)
	v := r.GenerateValue()
	assert.True(t, r.(*smallvecField).inline(v.Bytes()))
	for i, n := range lengths {
		require.NoError(t, r.Read(uint64(i), v))
		require.Equal(t, n, CollectionLen(v))
		for j := 0; j < n; j++ {
			assert.Equal(t, int64(1000*i+j), CollectionItem(v, j).Int64())
		}
	}
	// Entry 1 spilled the payload to the heap; it stays there afterwards.
	assert.False(t, r.(*smallvecField).inline(v.Bytes()))
	r.DestroyValue(v)
}

func TestBitsetRoundTrip(t *testing.T) {
	const n = 5
	store := writeEntries(t, "std::bitset<70>", n, func(i int, v *Value) {
		bf := v.Field().(*bitsetField)
		for b := uint64(0); b < 70; b++ {
			bf.SetBit(v, b, (uint64(i)+b)%7 == 0)
		}
	})

	r := readerFor(t, "std::bitset<70>", store)
	bf := r.(*bitsetField)
	v := r.GenerateValue()
	for i := 0; i < n; i++ {
		require.NoError(t, r.Read(uint64(i), v))
		for b := uint64(0); b < 70; b++ {
			assert.Equal(t, (uint64(i)+b)%7 == 0, bf.Bit(v, b), "entry %d bit %d", i, b)
		}
	}
}

func TestArrayRoundTrip(t *testing.T) {
	const n = 6
	store := writeEntries(t, "float[3]", n, func(i int, v *Value) {
		for j, sub := range v.Field().SplitValue(v) {
			sub.SetFloat64(float64(i*3 + j))
		}
	})

	r := readerFor(t, "float[3]", store)
	v := r.GenerateValue()
	for i := 0; i < n; i++ {
		require.NoError(t, r.Read(uint64(i), v))
		for j, sub := range r.SplitValue(v) {
			assert.Equal(t, float64(i*3+j), sub.Float64())
		}
	}
}

func TestArrayElementIndexing(t *testing.T) {
	// An entry of array<bool,3> occupies three consecutive elements of the
	// item's bit column: entry 2 maps to elements 6, 7, 8.
	f, err := Create("f", "bool[3]")
	require.NoError(t, err)
	item := f.SubFields()[0]
	assert.Equal(t, uint64(6), item.EntryToColumnElementIndex(2))

	store := writeEntries(t, "bool[3]", 4, func(i int, v *Value) {
		for j, sub := range v.Field().SplitValue(v) {
			sub.SetBool(i == 2 && j == 1)
		}
	})
	r := readerFor(t, "bool[3]", store)
	v := r.GenerateValue()
	require.NoError(t, r.Read(2, v))
	subs := r.SplitValue(v)
	assert.False(t, subs[0].Bool())
	assert.True(t, subs[1].Bool())
	assert.False(t, subs[2].Bool())
}

func TestPairRoundTrip(t *testing.T) {
	const n = 8
	store := writeEntries(t, "std::pair<int,std::string>", n, func(i int, v *Value) {
		first, err := RecordMember(v, "_0")
		require.NoError(t, err)
		first.SetInt64(int64(i) - 3)
		second, err := RecordMember(v, "_1")
		require.NoError(t, err)
		SetString(second, fmt.Sprintf("s%d", i))
	})

	r := readerFor(t, "std::pair<int,std::string>", store)
	v := r.GenerateValue()
	for i := 0; i < n; i++ {
		require.NoError(t, r.Read(uint64(i), v))
		first, err := RecordMember(v, "_0")
		require.NoError(t, err)
		assert.Equal(t, int64(i)-3, first.Int64())
		second, err := RecordMember(v, "_1")
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("s%d", i), GetString(second))
	}
	r.DestroyValue(v)

	_, err := RecordMember(v, "third")
	assert.Error(t, err)
}

func TestTuplePinnedLayout(t *testing.T) {
	reg := typeinfo.NewRegistry()
	require.NoError(t, reg.RegisterTupleLayout("tuple<int32,int8>", typeinfo.TupleLayout{
		Offsets:   []int{4, 0},
		Size:      8,
		Alignment: 4,
	}))

	f, err := CreateWithRegistry("f", "std::tuple<int,int8_t>", reg)
	require.NoError(t, err)
	assert.Equal(t, 8, f.Size())
	rf := f.(*recordField)
	assert.Equal(t, []int{4, 0}, rf.offsets)

	store := pagestore.NewMemoryStore(testStoreOpts())
	require.NoError(t, f.ConnectSink(store))
	v := f.GenerateValue()
	first, err := RecordMember(v, "_0")
	require.NoError(t, err)
	first.SetInt64(70000)
	second, err := RecordMember(v, "_1")
	require.NoError(t, err)
	second.SetInt64(-5)
	_, err = f.Append(v)
	require.NoError(t, err)
	require.NoError(t, f.Flush())

	r, err := CreateWithRegistry("f", "std::tuple<int,int8_t>", reg)
	require.NoError(t, err)
	require.NoError(t, r.ConnectSource(store))
	rv := r.GenerateValue()
	require.NoError(t, r.Read(0, rv))
	got, err := RecordMember(rv, "_0")
	require.NoError(t, err)
	assert.Equal(t, int64(70000), got.Int64())
	got, err = RecordMember(rv, "_1")
	require.NoError(t, err)
	assert.Equal(t, int64(-5), got.Int64())
}

func TestTuplePinnedLayoutValidation(t *testing.T) {
	reg := typeinfo.NewRegistry()
	require.NoError(t, reg.RegisterTupleLayout("tuple<int32,int8>", typeinfo.TupleLayout{
		Offsets:   []int{0, 6},
		Size:      7,
		Alignment: 4,
	}))
	// The int8 member at offset 6 fits; the layout is accepted.
	_, err := CreateWithRegistry("f", "std::tuple<int,int8_t>", reg)
	require.NoError(t, err)

	require.NoError(t, reg.RegisterTupleLayout("tuple<int32,int8>", typeinfo.TupleLayout{
		Offsets:   []int{0, 7},
		Size:      7,
		Alignment: 4,
	}))
	_, err = CreateWithRegistry("f", "std::tuple<int,int8_t>", reg)
	require.Error(t, err)
}

func TestVariantRoundTrip(t *testing.T) {
	// Tags per entry: 1 and 2 alternate, with one empty entry in between.
	store := func() *pagestore.MemoryStore {
		f, err := Create("f", "std::variant<int,std::string>")
		require.NoError(t, err)
		store := pagestore.NewMemoryStore(testStoreOpts())
		require.NoError(t, f.ConnectSink(store))

		v := f.GenerateValue()
		for i := 0; i < 6; i++ {
			switch i % 3 {
			case 0:
				alt, err := VariantSet(v, 1)
				require.NoError(t, err)
				alt.SetInt64(int64(i * 11))
			case 1:
				alt, err := VariantSet(v, 2)
				require.NoError(t, err)
				SetString(alt, fmt.Sprintf("v%d", i))
			case 2:
				f.DestroyValue(v)
			}
			_, err := f.Append(v)
			require.NoError(t, err)
		}
		f.DestroyValue(v)
		require.NoError(t, f.Flush())
		return store
	}()

	r := readerFor(t, "std::variant<int,std::string>", store)
	v := r.GenerateValue()
	for i := 0; i < 6; i++ {
		require.NoError(t, r.Read(uint64(i), v))
		switch i % 3 {
		case 0:
			require.Equal(t, uint32(1), VariantTag(v), "entry %d", i)
			alt, err := VariantSet(v, 1)
			require.NoError(t, err)
			assert.Equal(t, int64(i*11), alt.Int64())
		case 1:
			require.Equal(t, uint32(2), VariantTag(v), "entry %d", i)
			alt, err := VariantSet(v, 2)
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("v%d", i), GetString(alt))
		case 2:
			assert.Equal(t, uint32(0), VariantTag(v), "entry %d", i)
		}
	}
	r.DestroyValue(v)
}

func TestVariantDefaultConstructsFirstAlternative(t *testing.T) {
	f, err := Create("f", "std::variant<std::string,int>")
	require.NoError(t, err)
	v := f.GenerateValue()
	assert.Equal(t, uint32(1), VariantTag(v))
	f.DestroyValue(v)
	assert.Equal(t, uint32(0), VariantTag(v))
}

func TestVariantSetRejectsBadTag(t *testing.T) {
	f, err := Create("f", "std::variant<int,float>")
	require.NoError(t, err)
	v := f.GenerateValue()
	_, err = VariantSet(v, 0)
	assert.Error(t, err)
	_, err = VariantSet(v, 3)
	assert.Error(t, err)
}

func TestNullableDenseRoundTrip(t *testing.T) {
	// A one-byte item selects the dense encoding: a bit column plus one
	// item element per entry.
	f, err := Create("f", "std::optional<char>")
	require.NoError(t, err)
	store := pagestore.NewMemoryStore(testStoreOpts())
	require.NoError(t, f.ConnectSink(store))
	assert.Equal(t, column.KindBit, f.(*nullableField).principal().Kind())

	v := f.GenerateValue()
	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			NullableSet(v).SetUint64(uint64('A' + i))
		} else {
			NullableReset(v)
		}
		_, err := f.Append(v)
		require.NoError(t, err)
	}
	f.DestroyValue(v)
	require.NoError(t, f.Flush())

	// The item column carries one element per entry in the dense encoding.
	item := f.SubFields()[0]
	assert.Equal(t, uint64(10), item.(*primitiveField).principal().NElements())

	r := readerFor(t, "std::optional<char>", store)
	rv := r.GenerateValue()
	for i := 0; i < 10; i++ {
		require.NoError(t, r.Read(uint64(i), rv))
		if i%2 == 0 {
			require.False(t, NullableIsNull(rv), "entry %d", i)
			assert.Equal(t, uint64('A'+i), NullableSet(rv).Uint64())
		} else {
			assert.True(t, NullableIsNull(rv), "entry %d", i)
		}
	}
	r.DestroyValue(rv)
}

func TestNullableSparseRoundTrip(t *testing.T) {
	f, err := Create("f", "std::optional<double>")
	require.NoError(t, err)
	store := pagestore.NewMemoryStore(testStoreOpts())
	require.NoError(t, f.ConnectSink(store))
	assert.Equal(t, column.KindIndex64, f.(*nullableField).principal().Kind())

	v := f.GenerateValue()
	for i := 0; i < 10; i++ {
		if i%3 == 0 {
			NullableSet(v).SetFloat64(float64(i) + 0.25)
		} else {
			NullableReset(v)
		}
		_, err := f.Append(v)
		require.NoError(t, err)
	}
	f.DestroyValue(v)
	require.NoError(t, f.Flush())

	// Only the set items reach the item column in the sparse encoding.
	item := f.SubFields()[0]
	assert.Equal(t, uint64(4), item.(*primitiveField).principal().NElements())

	r := readerFor(t, "std::optional<double>", store)
	rv := r.GenerateValue()
	for i := 0; i < 10; i++ {
		require.NoError(t, r.Read(uint64(i), rv))
		if i%3 == 0 {
			require.False(t, NullableIsNull(rv), "entry %d", i)
			assert.Equal(t, float64(i)+0.25, NullableSet(rv).Float64())
		} else {
			assert.True(t, NullableIsNull(rv), "entry %d", i)
		}
	}
	r.DestroyValue(rv)
}

func TestPointerRoundTrip(t *testing.T) {
	store := writeEntries(t, "*float", 4, func(i int, v *Value) {
		if i != 2 {
			NullableSet(v).SetFloat64(float64(i))
		}
	})

	r := readerFor(t, "*float", store)
	v := r.GenerateValue()
	for i := 0; i < 4; i++ {
		require.NoError(t, r.Read(uint64(i), v))
		if i == 2 {
			assert.True(t, NullableIsNull(v))
		} else {
			require.False(t, NullableIsNull(v))
			assert.Equal(t, float64(i), NullableSet(v).Float64())
		}
	}
	r.DestroyValue(v)
}

func TestEnumRoundTrip(t *testing.T) {
	reg := typeinfo.NewRegistry()
	require.NoError(t, reg.RegisterEnum(typeinfo.Enum{TypeName: "Flavor", Underlying: "int32"}))

	f, err := CreateWithRegistry("f", "Flavor", reg)
	require.NoError(t, err)
	store := pagestore.NewMemoryStore(testStoreOpts())
	require.NoError(t, f.ConnectSink(store))

	v := f.GenerateValue()
	for i := 0; i < 5; i++ {
		v.SetInt64(int64(i - 2))
		_, err := f.Append(v)
		require.NoError(t, err)
	}
	require.NoError(t, f.Flush())

	r, err := CreateWithRegistry("f", "Flavor", reg)
	require.NoError(t, err)
	require.NoError(t, r.ConnectSource(store))
	rv := r.GenerateValue()
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Read(uint64(i), rv))
		assert.Equal(t, int64(i-2), rv.Int64())
	}
}
