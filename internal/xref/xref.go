// Package xref finds references to a declaration across the files of a
// project. A semantic search through the symbol index runs first; a
// structural search then covers runtime module loads such as
// `const { foo } = require('./a')`, which the index cannot follow.
package xref

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jward/refscope/internal/errs"
	"github.com/jward/refscope/internal/resolve"
	"github.com/jward/refscope/internal/store"
	"github.com/jward/refscope/internal/syntax"
)

// SemanticIndex is the symbol capability the semantic strategy uses.
type SemanticIndex interface {
	SymbolAt(ctx context.Context, f *syntax.File, decl syntax.NodeID) (*store.Symbol, error)
	FindReferences(ctx context.Context, sym *store.Symbol) ([][]syntax.Ref, error)
}

// Project is the loaded file set.
type Project interface {
	Files() []*syntax.File
	ResolveImport(from, specifier string) (string, bool)
}

type Options struct {
	Index   SemanticIndex // nil skips the semantic strategy
	Matcher LoaderMatcher // nil skips the structural strategy
	Logger  *slog.Logger
}

// FindAllReferences returns the deduplicated references to decl among the
// project files under scopeRoot. Semantic results come first.
func FindAllReferences(ctx context.Context, decl resolve.Declaration, proj Project, scopeRoot string, opts Options) (*ReferenceSet, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	set := NewReferenceSet()
	exportName := decl.Name
	// Only top-level declarations can be reached through a module load.
	exportable := decl.Scope == decl.File.Root() && decl.File.Kind(decl.Node) != syntax.KindParameter

	if opts.Index != nil {
		sym, err := opts.Index.SymbolAt(ctx, decl.File, decl.Node)
		switch {
		case errs.IsCode(err, errs.CodeNoSymbolAtPosition):
			logger.Debug("no symbol for declaration, semantic search skipped", "name", decl.Name, "path", decl.File.Path)
		case err != nil:
			return nil, fmt.Errorf("xref: %w", err)
		default:
			if sym.Exported {
				exportable = true
			}
			if sym.ExportName != "" {
				exportName = sym.ExportName
			}
			groups, err := opts.Index.FindReferences(ctx, sym)
			if err != nil {
				return nil, fmt.Errorf("xref: %w", err)
			}
			for _, g := range groups {
				for _, ref := range g {
					if inScope(ref.File.Path, scopeRoot) {
						set.Add(Reference{Ref: ref, Strategy: Semantic})
					}
				}
			}
		}
	}

	switch {
	case opts.Matcher == nil:
	case !exportable:
		logger.Debug("declaration is not exportable, structural search skipped", "name", decl.Name, "path", decl.File.Path)
	default:
		before := set.Len()
		for _, f := range proj.Files() {
			if !inScope(f.Path, scopeRoot) {
				continue
			}
			refs, err := structuralRefs(ctx, f, decl.File.Path, exportName, proj, opts.Matcher)
			if err != nil {
				return nil, fmt.Errorf("xref: %s: %w", f.Path, err)
			}
			for _, ref := range refs {
				set.Add(ref)
			}
		}
		logger.Debug("structural search done", "name", decl.Name, "added", set.Len()-before)
	}
	return set, nil
}

func inScope(path, root string) bool {
	if root == "" {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// structuralRefs finds module-load calls in f that load target and
// destructure name, and returns the local binding and its usage-like
// occurrences.
func structuralRefs(ctx context.Context, f *syntax.File, target, name string, proj Project, m LoaderMatcher) ([]Reference, error) {
	var out []Reference
	for i := range f.Nodes {
		call := syntax.NodeID(i)
		if f.Kind(call) != syntax.KindCall {
			continue
		}
		lc, ok := loaderCall(f, call)
		if !ok {
			continue
		}
		match, err := m.IsLoaderCall(ctx, lc)
		if err != nil {
			return nil, err
		}
		if !match {
			continue
		}
		resolved, ok := proj.ResolveImport(f.Path, lc.Specifier)
		if !ok || filepath.Clean(resolved) != filepath.Clean(target) {
			continue
		}

		local := destructuredBinding(f, call, name)
		if local == syntax.NoNode {
			continue
		}
		out = append(out, Reference{Ref: syntax.Ref{File: f, Node: local}, Strategy: Structural, Binding: true})
		text := f.Text(local)
		for j := range f.Nodes {
			id := syntax.NodeID(j)
			if id != local && f.Kind(id) == syntax.KindIdentifier && f.Text(id) == text && usageLike(f, id) {
				out = append(out, Reference{Ref: syntax.Ref{File: f, Node: id}, Strategy: Structural})
			}
		}
	}
	return out, nil
}

func loaderCall(f *syntax.File, call syntax.NodeID) (LoaderCall, bool) {
	callee := f.ChildByField(call, "function")
	if callee == syntax.NoNode {
		return LoaderCall{}, false
	}
	var name string
	switch {
	case f.Node(callee).Type == "import":
		name = DynamicImportCallee
	case f.Kind(callee) == syntax.KindIdentifier, f.Kind(callee) == syntax.KindMember:
		name = f.Text(callee)
	default:
		return LoaderCall{}, false
	}

	args := f.ChildByField(call, "arguments")
	if args == syntax.NoNode {
		return LoaderCall{}, false
	}
	for _, a := range f.Node(args).Children {
		if f.Kind(a) == syntax.KindString {
			return LoaderCall{Callee: name, Specifier: f.StringValue(a), File: f.Path}, true
		}
	}
	return LoaderCall{}, false
}

// destructuredBinding returns the identifier that binds name when the
// call's result, possibly awaited, is destructured with an object
// pattern.
func destructuredBinding(f *syntax.File, call syntax.NodeID, name string) syntax.NodeID {
	parent := f.Parent(call)
	if f.Kind(parent) == syntax.KindAwait {
		parent = f.Parent(parent)
	}
	if f.Kind(parent) != syntax.KindVariableDeclarator {
		return syntax.NoNode
	}
	pattern := f.ChildByField(parent, "name")
	if pattern == syntax.NoNode || f.Kind(pattern) != syntax.KindObjectPattern {
		return syntax.NoNode
	}

	for _, c := range f.Node(pattern).Children {
		switch {
		case f.Kind(c) == syntax.KindIdentifier:
			if f.Text(c) == name {
				return c
			}
		case f.Kind(c) == syntax.KindPairPattern:
			key := f.ChildByField(c, "key")
			value := f.ChildByField(c, "value")
			if key != syntax.NoNode && value != syntax.NoNode && f.StringValue(key) == name {
				return f.FirstDescendant(value, syntax.KindIdentifier)
			}
		case f.Node(c).Type == "object_assignment_pattern":
			left := f.ChildByField(c, "left")
			if left != syntax.NoNode && f.Text(left) == name {
				return left
			}
		}
	}
	return syntax.NoNode
}

// usageLike reports whether id sits where a value is consumed: a callee,
// a call argument, a member-access object, a binary operand, a template
// substitution or a parenthesized expression.
func usageLike(f *syntax.File, id syntax.NodeID) bool {
	parent := f.Parent(id)
	if parent == syntax.NoNode {
		return false
	}
	field := f.Node(id).Field
	switch f.Kind(parent) {
	case syntax.KindCall:
		return field == "function"
	case syntax.KindMember:
		return field == "object"
	case syntax.KindArguments, syntax.KindBinary, syntax.KindTemplateSubstitution, syntax.KindParenthesized:
		return true
	}
	return false
}
