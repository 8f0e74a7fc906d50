// Package scope computes lexical scope nesting over a syntax arena. A scope
// is a function-like node, a block, or the program root; scopes nest along
// the parent chain of the tree.
package scope

import "github.com/jward/refscope/internal/syntax"

// IsScopeBearing reports whether id opens a scope.
func IsScopeBearing(f *syntax.File, id syntax.NodeID) bool {
	switch f.Kind(id) {
	case syntax.KindFunction, syntax.KindBlock, syntax.KindProgram:
		return true
	}
	return false
}

// NodeScope returns the nearest scope-bearing ancestor of id, not counting
// id itself. It never fails: the program root is the fallback.
func NodeScope(f *syntax.File, id syntax.NodeID) syntax.NodeID {
	for cur := f.Parent(id); cur != syntax.NoNode; cur = f.Parent(cur) {
		if IsScopeBearing(f, cur) {
			return cur
		}
	}
	return f.Root()
}

// ParentScope returns the scope enclosing s, or syntax.NoNode when s is the
// program root.
func ParentScope(f *syntax.File, s syntax.NodeID) syntax.NodeID {
	if s == f.Root() {
		return syntax.NoNode
	}
	return NodeScope(f, s)
}

// IsContainedIn reports whether outer is reachable from inner through
// parent links. Every scope contains itself.
func IsContainedIn(f *syntax.File, inner, outer syntax.NodeID) bool {
	return f.IsAncestor(outer, inner)
}

// Chain returns s followed by each enclosing scope up to the program root.
func Chain(f *syntax.File, s syntax.NodeID) []syntax.NodeID {
	var chain []syntax.NodeID
	for cur := s; cur != syntax.NoNode; cur = ParentScope(f, cur) {
		chain = append(chain, cur)
	}
	return chain
}
