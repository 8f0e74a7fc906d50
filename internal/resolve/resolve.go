// Package resolve finds variable and parameter declarations and the
// identifiers that refer to them, applying nearest-binding-wins shadowing.
package resolve

import (
	"github.com/jward/refscope/internal/errs"
	"github.com/jward/refscope/internal/location"
	"github.com/jward/refscope/internal/scope"
	"github.com/jward/refscope/internal/syntax"
)

// Declaration is a resolved declaration-bearing node.
type Declaration struct {
	File      *syntax.File
	Node      syntax.NodeID // variable declarator or parameter
	NameToken syntax.NodeID // first identifier under Node
	Name      string
	Scope     syntax.NodeID
}

// Ref returns a reference to the declaration's name token.
func (d Declaration) Ref() syntax.Ref {
	return syntax.Ref{File: d.File, Node: d.NameToken}
}

// IsDeclaration reports whether id is a variable declarator or a
// parameter.
func IsDeclaration(f *syntax.File, id syntax.NodeID) bool {
	switch f.Kind(id) {
	case syntax.KindVariableDeclarator, syntax.KindParameter:
		return true
	}
	return false
}

// DeclarationName returns the identifier a declaration binds: the first
// identifier descendant in document order.
func DeclarationName(f *syntax.File, id syntax.NodeID) syntax.NodeID {
	return f.FirstDescendant(id, syntax.KindIdentifier)
}

func newDeclaration(f *syntax.File, id syntax.NodeID) (Declaration, bool) {
	tok := DeclarationName(f, id)
	if tok == syntax.NoNode {
		return Declaration{}, false
	}
	return Declaration{
		File:      f,
		Node:      id,
		NameToken: tok,
		Name:      f.Text(tok),
		Scope:     scope.NodeScope(f, id),
	}, true
}

// Declarations returns every declaration in f in document order.
func Declarations(f *syntax.File) []Declaration {
	var out []Declaration
	for i := range f.Nodes {
		id := syntax.NodeID(i)
		if !IsDeclaration(f, id) {
			continue
		}
		if d, ok := newDeclaration(f, id); ok {
			out = append(out, d)
		}
	}
	return out
}

// ResolveByName returns the first declaration in document order whose
// bound name equals name.
func ResolveByName(f *syntax.File, name string) (Declaration, error) {
	// Arena order is document order, so a linear scan finds the first.
	for i := range f.Nodes {
		id := syntax.NodeID(i)
		if !IsDeclaration(f, id) {
			continue
		}
		if d, ok := newDeclaration(f, id); ok && d.Name == name {
			return d, nil
		}
	}
	return Declaration{}, errs.Newf(errs.CodeDeclarationNotFound,
		"no declaration named %q", name).
		WithContext(errs.CtxPath, f.Path).
		WithContext(errs.CtxName, name)
}

// ResolveAtPosition maps loc to the deepest node at that position and
// walks up to the first enclosing declaration.
func ResolveAtPosition(f *syntax.File, loc location.SourceLocation) (Declaration, error) {
	offset, ok := f.PositionOf(loc)
	if !ok {
		return Declaration{}, noNode(f, loc)
	}
	id := f.NodeAt(offset)
	if id == syntax.NoNode || id == f.Root() {
		return Declaration{}, noNode(f, loc)
	}
	for cur := id; cur != syntax.NoNode; cur = f.Parent(cur) {
		if !IsDeclaration(f, cur) {
			continue
		}
		if d, ok := newDeclaration(f, cur); ok {
			return d, nil
		}
	}
	return Declaration{}, errs.New(errs.CodeDeclarationNotFound,
		"no declaration encloses position").
		WithContext(errs.CtxPath, f.Path).
		WithContext(errs.CtxLocation, loc.String())
}

func noNode(f *syntax.File, loc location.SourceLocation) error {
	return errs.New(errs.CodeNoNodeAtPosition, "no syntax node at position").
		WithContext(errs.CtxPath, f.Path).
		WithContext(errs.CtxLocation, loc.String())
}
