package field

import (
	"fmt"
	"strings"
)

// Visitor is called once per field during a tree walk.
type Visitor interface {
	Visit(f Field, depth int) error
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(f Field, depth int) error

func (fn VisitorFunc) Visit(f Field, depth int) error { return fn(f, depth) }

// Walk traverses the tree rooted at f in depth-first pre-order.
func Walk(f Field, v Visitor) error {
	return walk(f, v, 0)
}

func walk(f Field, v Visitor, depth int) error {
	if err := v.Visit(f, depth); err != nil {
		return err
	}
	for _, child := range f.SubFields() {
		if err := walk(child, v, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Describe renders the tree rooted at f as an indented listing of names,
// types, and column representations.
func Describe(f Field) string {
	var b strings.Builder
	_ = Walk(f, VisitorFunc(func(f Field, depth int) error {
		b.WriteString(strings.Repeat("  ", depth))
		name := f.Name()
		if name == "" {
			name = "(root)"
		}
		fmt.Fprintf(&b, "%s: %s", name, f.TypeName())
		if alias := f.TypeAlias(); alias != "" && alias != f.TypeName() {
			fmt.Fprintf(&b, " (from %s)", alias)
		}
		if rep := f.ColumnRepresentative(); len(rep) > 0 {
			fmt.Fprintf(&b, " [%s]", rep)
		}
		b.WriteByte('\n')
		return nil
	}))
	return b.String()
}
