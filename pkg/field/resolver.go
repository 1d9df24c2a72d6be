package field

import (
	"strconv"
	"strings"

	"github.com/ajitpratap0/strata/pkg/column"
	serrors "github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/typeinfo"
)

// typeAliases maps alternate spellings of scalar types to their canonical
// names. Spellings are matched after whitespace normalization.
var typeAliases = map[string]string{
	"Bool_t":    "bool",
	"Char_t":    "char",
	"SChar_t":     "int8",
	"int8_t":      "int8",
	"std::int8_t": "int8",
	"Int8_t":    "int8",
	"signed char": "int8",
	"UChar_t":   "uint8",
	"uint8_t":      "uint8",
	"std::uint8_t": "uint8",
	"UInt8_t":   "uint8",
	"unsigned char": "uint8",
	"short":     "int16",
	"short int": "int16",
	"Short_t":   "int16",
	"int16_t":      "int16",
	"std::int16_t": "int16",
	"unsigned short":     "uint16",
	"unsigned short int": "uint16",
	"UShort_t":           "uint16",
	"uint16_t":           "uint16",
	"std::uint16_t":      "uint16",
	"int":      "int32",
	"Int_t":    "int32",
	"int32_t":      "int32",
	"std::int32_t": "int32",
	"unsigned":     "uint32",
	"unsigned int": "uint32",
	"UInt_t":       "uint32",
	"uint32_t":      "uint32",
	"std::uint32_t": "uint32",
	"long":          "int64",
	"long int":      "int64",
	"long long":     "int64",
	"long long int": "int64",
	"Long_t":        "int64",
	"Long64_t":      "int64",
	"int64_t":       "int64",
	"std::int64_t":  "int64",
	"unsigned long":          "uint64",
	"unsigned long int":      "uint64",
	"unsigned long long":     "uint64",
	"unsigned long long int": "uint64",
	"ULong_t":                "uint64",
	"ULong64_t":              "uint64",
	"uint64_t":               "uint64",
	"std::uint64_t":          "uint64",
	"float":   "float32",
	"Float_t": "float32",
	"double":   "float64",
	"Double_t": "float64",
	"Double32_t": "double32",
	"std::string": "string",
}

// templateAliases maps alternate template names to canonical ones.
var templateAliases = map[string]string{
	"std::vector":        "vector",
	"ROOT::RVec":         "smallvec",
	"ROOT::VecOps::RVec": "smallvec",
	"std::array":         "array",
	"std::variant":       "variant",
	"std::pair":          "pair",
	"std::tuple":         "tuple",
	"std::bitset":        "bitset",
	"std::unique_ptr":    "ptr",
	"unique_ptr":         "ptr",
	"std::optional":      "nullable",
	"optional":           "nullable",
	"std::atomic":        "atomic",
}

// Create builds the field tree for a type name, resolving aliases and
// registered user types through the default registry.
func Create(name, typeName string) (Field, error) {
	return CreateWithRegistry(name, typeName, typeinfo.Default)
}

// CreateWithRegistry builds the field tree for a type name against an
// explicit type registry.
func CreateWithRegistry(name, typeName string, registry *typeinfo.Registry) (Field, error) {
	if err := ensureValidName(name); err != nil {
		return nil, err
	}
	return createWithRegistry(name, typeName, registry)
}

func createWithRegistry(name, typeName string, registry *typeinfo.Registry) (Field, error) {
	normalized := normalizeType(typeName)
	f, err := createNormalized(name, normalized, registry)
	if err != nil {
		return nil, err
	}
	fb := f.base()
	if fb.typeAlias == "" && fb.typeName != normalized {
		fb.typeAlias = normalized
	}
	return f, nil
}

// normalizeType collapses whitespace so that equivalent spellings compare
// equal: runs of spaces become one space, and spaces around punctuation are
// dropped.
func normalizeType(typeName string) string {
	var b strings.Builder
	b.Grow(len(typeName))
	lastSpace := false
	for _, r := range typeName {
		if r == ' ' || r == '\t' || r == '\n' {
			lastSpace = true
			continue
		}
		if lastSpace {
			if b.Len() > 0 && isIdentRune(rune(b.String()[b.Len()-1])) && isIdentRune(r) {
				b.WriteByte(' ')
			}
			lastSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isIdentRune(r rune) bool {
	return r == '_' || r == ':' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func createNormalized(name, t string, registry *typeinfo.Registry) (Field, error) {
	if t == "" {
		return nil, serrors.New(serrors.ErrorTypeSchema, "empty type name")
	}

	// Leading star spells a pointer.
	if t[0] == '*' {
		item, err := createNormalized("_0", t[1:], registry)
		if err != nil {
			return nil, err
		}
		return newNullableField(name, "ptr<"+item.TypeName()+">", item), nil
	}

	// A trailing [n] suffix spells a fixed-size array.
	if base, dims, ok := splitArraySuffix(t); ok {
		if len(dims) > 1 {
			return nil, serrors.Newf(serrors.ErrorTypeSchema,
				"array type %q has more than one dimension", t)
		}
		item, err := createNormalized("_0", base, registry)
		if err != nil {
			return nil, err
		}
		return newArrayField(name, item, dims[0]), nil
	}

	if canonical, ok := typeAliases[t]; ok {
		t = canonical
	}

	if t == "string" {
		return newStringField(name), nil
	}
	if t == "double32" {
		// A float64 that narrows to a 32-bit real on disk.
		f := newPrimitiveField(name, "float64", column.MemFloat64, 8, float64Reps)
		f.typeAlias = "double32"
		if err := f.SetColumnRepresentative(column.Representation{column.KindSplitReal32}); err != nil {
			return nil, err
		}
		return f, nil
	}
	if f, ok := newPrimitive(name, t); ok {
		return f, nil
	}

	if tmpl, args, ok := splitTemplate(t); ok {
		return createTemplate(name, tmpl, args, registry)
	}

	info, isClass := registry.Class(t)
	ops, isCollection := registry.Collection(t)
	if isClass && isCollection {
		return nil, serrors.Newf(serrors.ErrorTypeSchema,
			"type %s is registered as both a class and a collection", t)
	}
	if isClass {
		return newClassField(name, info, registry)
	}
	if info, ok := registry.Enum(t); ok {
		underlying, ok := newPrimitive("_0", info.Underlying)
		if !ok {
			if alias, okAlias := typeAliases[info.Underlying]; okAlias {
				underlying, ok = newPrimitive("_0", alias)
			}
		}
		if !ok {
			return nil, serrors.Newf(serrors.ErrorTypeSchema,
				"enum %s has non-integer underlying type %s", t, info.Underlying)
		}
		return newEnumField(name, t, underlying), nil
	}
	if isCollection {
		if ops.Keyed {
			return nil, serrors.Newf(serrors.ErrorTypeSchema,
				"associative collection %s cannot be mapped to columns", t)
		}
		if ops.PointerItems {
			return nil, serrors.Newf(serrors.ErrorTypeSchema,
				"collection %s holds its items through pointers and cannot be mapped to columns", t)
		}
		item, err := createWithRegistry("_0", ops.ItemTypeName, registry)
		if err != nil {
			return nil, err
		}
		return newClassCollectionField(name, ops, item), nil
	}

	return nil, serrors.Newf(serrors.ErrorTypeSchema, "unknown type name %q", t)
}

func createTemplate(name, tmpl string, args []string, registry *typeinfo.Registry) (Field, error) {
	if canonical, ok := templateAliases[tmpl]; ok {
		tmpl = canonical
	}
	switch tmpl {
	case "vector", "smallvec", "ptr", "nullable", "atomic":
		if len(args) != 1 {
			return nil, serrors.Newf(serrors.ErrorTypeSchema,
				"%s takes one type argument, got %d", tmpl, len(args))
		}
		item, err := createWithRegistry("_0", args[0], registry)
		if err != nil {
			return nil, err
		}
		switch tmpl {
		case "vector":
			return newVectorField(name, item), nil
		case "smallvec":
			return newSmallvecField(name, item), nil
		case "atomic":
			// Atomics serialize as their inner type.
			return item.Clone(name), nil
		default:
			return newNullableField(name, tmpl+"<"+item.TypeName()+">", item), nil
		}

	case "array":
		if len(args) != 2 {
			return nil, serrors.Newf(serrors.ErrorTypeSchema,
				"array takes a type and a length, got %d arguments", len(args))
		}
		n, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil || n == 0 {
			return nil, serrors.Newf(serrors.ErrorTypeSchema,
				"invalid array length %q", args[1])
		}
		item, err2 := createWithRegistry("_0", args[0], registry)
		if err2 != nil {
			return nil, err2
		}
		return newArrayField(name, item, n), nil

	case "bitset":
		if len(args) != 1 {
			return nil, serrors.New(serrors.ErrorTypeSchema, "bitset takes one length argument")
		}
		n, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return nil, serrors.Newf(serrors.ErrorTypeSchema, "invalid bitset length %q", args[0])
		}
		return newBitsetField(name, n), nil

	case "variant":
		alts := make([]Field, len(args))
		for i, arg := range args {
			alt, err := createWithRegistry("_"+strconv.Itoa(i), arg, registry)
			if err != nil {
				return nil, err
			}
			alts[i] = alt
		}
		return newVariantField(name, alts)

	case "pair", "tuple":
		if tmpl == "pair" && len(args) != 2 {
			return nil, serrors.Newf(serrors.ErrorTypeSchema,
				"pair takes two type arguments, got %d", len(args))
		}
		members := make([]Field, len(args))
		names := make([]string, len(args))
		for i, arg := range args {
			m, err := createWithRegistry("_"+strconv.Itoa(i), arg, registry)
			if err != nil {
				return nil, err
			}
			members[i] = m
			names[i] = m.TypeName()
		}
		typeName := tmpl + "<" + strings.Join(names, ",") + ">"
		if layout, ok := registry.TupleLayout(typeName); ok {
			return pinnedRecord(name, typeName, members, layout)
		}
		return naturalRecord(name, typeName, members), nil

	case "cardinality":
		if len(args) != 1 {
			return nil, serrors.New(serrors.ErrorTypeSchema, "cardinality takes one type argument")
		}
		width := args[0]
		if alias, ok := typeAliases[width]; ok {
			width = alias
		}
		switch width {
		case "uint32":
			return newCardinalityField(name, "cardinality<uint32>", 4), nil
		case "uint64":
			return newCardinalityField(name, "cardinality<uint64>", 8), nil
		}
		return nil, serrors.Newf(serrors.ErrorTypeSchema,
			"cardinality must count in uint32 or uint64, got %q", args[0])
	}

	return nil, serrors.Newf(serrors.ErrorTypeSchema, "unknown template %q", tmpl)
}

// splitTemplate breaks "tmpl<a,b<c,d>,e>" into the template name and its
// top-level arguments, honoring nested angle brackets.
func splitTemplate(t string) (string, []string, bool) {
	open := strings.IndexByte(t, '<')
	if open <= 0 || !strings.HasSuffix(t, ">") {
		return "", nil, false
	}
	tmpl := t[:open]
	inner := t[open+1 : len(t)-1]
	var args []string
	depth := 0
	last := 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, inner[last:i])
				last = i + 1
			}
		}
	}
	if depth != 0 {
		return "", nil, false
	}
	args = append(args, inner[last:])
	return tmpl, args, true
}

// splitArraySuffix strips trailing [n] suffixes from a type spelling,
// returning the element type and the dimensions outermost first.
func splitArraySuffix(t string) (string, []uint64, bool) {
	if !strings.HasSuffix(t, "]") {
		return "", nil, false
	}
	// Find the first top-level '[' outside any template arguments.
	depth := 0
	start := -1
	for i := 0; i < len(t); i++ {
		switch t[i] {
		case '<':
			depth++
		case '>':
			depth--
		case '[':
			if depth == 0 {
				start = i
			}
		}
		if start >= 0 {
			break
		}
	}
	if start <= 0 {
		return "", nil, false
	}
	var dims []uint64
	rest := t[start:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			return "", nil, false
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", nil, false
		}
		n, err := strconv.ParseUint(rest[1:end], 10, 32)
		if err != nil || n == 0 {
			return "", nil, false
		}
		dims = append(dims, n)
		rest = rest[end+1:]
	}
	return t[:start], dims, true
}
