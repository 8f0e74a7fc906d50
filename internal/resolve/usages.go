package resolve

import (
	"github.com/jward/refscope/internal/scope"
	"github.com/jward/refscope/internal/syntax"
)

// Bindings maps binding nodes to the identifiers that refer to them, in
// document order. A binding's own name token is never listed.
type Bindings map[syntax.NodeID][]syntax.NodeID

type scopedName struct {
	name  string
	scope syntax.NodeID
}

// BindAll resolves every identifier in f in one pass. An identifier binds
// to the declarations of its name in the nearest enclosing scope that has
// any; when that scope holds several, it binds to each of them. extra adds
// bindings that Declarations does not report, such as import specifiers.
func BindAll(f *syntax.File, extra ...Declaration) Bindings {
	byScope := make(map[scopedName][]Declaration)
	add := func(d Declaration) {
		k := scopedName{name: d.Name, scope: d.Scope}
		byScope[k] = append(byScope[k], d)
	}
	for _, d := range Declarations(f) {
		add(d)
	}
	for _, d := range extra {
		add(d)
	}

	chains := make(map[syntax.NodeID][]syntax.NodeID)
	out := make(Bindings)
	for i := range f.Nodes {
		id := syntax.NodeID(i)
		if f.Kind(id) != syntax.KindIdentifier {
			continue
		}
		name := f.Text(id)
		useScope := scope.NodeScope(f, id)
		chain, ok := chains[useScope]
		if !ok {
			chain = scope.Chain(f, useScope)
			chains[useScope] = chain
		}
		for _, s := range chain {
			ds := byScope[scopedName{name: name, scope: s}]
			if len(ds) == 0 {
				continue
			}
			for _, d := range ds {
				if d.NameToken != id {
					out[d.Node] = append(out[d.Node], id)
				}
			}
			break
		}
	}
	return out
}

// CollectUsages returns the identifiers in d's file that refer to d, in
// document order. The declaration's own name token is not included.
func CollectUsages(d Declaration) []syntax.NodeID {
	return BindAll(d.File)[d.Node]
}
