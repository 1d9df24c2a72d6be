// Package strata maps typed in-memory values onto columnar storage.
//
// A type name such as "std::vector<float>" or "std::pair<int,std::string>"
// is resolved into a tree of fields (pkg/field). Each field serializes its
// slice of a value into one or more typed columns (pkg/column), which a page
// store (pkg/pagestore) packs into compressed pages grouped by cluster.
//
// # Quick Start
//
// Resolve a type, connect it to an in-memory store, and write a few entries:
//
//	f, err := field.Create("pt", "std::vector<float>")
//	if err != nil {
//		log.Fatal(err)
//	}
//	store := pagestore.NewMemoryStore(nil)
//	if err := f.ConnectSink(store); err != nil {
//		log.Fatal(err)
//	}
//	v := f.GenerateValue()
//	field.CollectionResize(v, 3)
//	f.Append(v)
//	f.CommitCluster()
//	f.Flush()
//
// Reading back goes through ConnectSource with a second field tree; the
// reader tree may use a different but compatible column representation
// (for example a 32-bit offset column written by an older producer).
//
// User-defined record and collection types register their layout with
// pkg/typeinfo before resolution.
package strata
