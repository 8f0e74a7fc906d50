package binder

import (
	"context"

	"github.com/jward/refscope/internal/resolve"
	"github.com/jward/refscope/internal/store"
	"github.com/jward/refscope/internal/syntax"
)

// underExport reports whether a declaration sits inside an export
// statement.
func underExport(f *syntax.File, id syntax.NodeID) bool {
	for cur := f.Parent(id); cur != syntax.NoNode; cur = f.Parent(cur) {
		if f.Kind(cur) == syntax.KindExport {
			return true
		}
	}
	return false
}

// exportClauseNames maps local names listed in `export { a, b as c }`
// clauses to the names they are exported under. Re-exports from another
// module are skipped.
func exportClauseNames(f *syntax.File) map[string]string {
	names := make(map[string]string)
	f.Walk(f.Root(), func(id syntax.NodeID) bool {
		switch f.Kind(id) {
		case syntax.KindExport:
			return f.ChildByField(id, "source") == syntax.NoNode
		case syntax.KindExportSpecifier:
			name := f.ChildByField(id, "name")
			if name == syntax.NoNode {
				return false
			}
			local := f.Text(name)
			exported := local
			if alias := f.ChildByField(id, "alias"); alias != syntax.NoNode {
				exported = f.Text(alias)
			}
			if _, seen := names[local]; !seen {
				names[local] = exported
			}
			return false
		}
		return true
	})
	return names
}

// recordImports stores f's import statements, resolving relative sources
// to registered files, and returns the local bindings that named and
// namespace imports introduce.
func (b *Binder) recordImports(ctx context.Context, tx *store.Store, f *syntax.File) ([]resolve.Declaration, error) {
	var stmts []syntax.NodeID
	for i := range f.Nodes {
		if id := syntax.NodeID(i); f.Kind(id) == syntax.KindImport {
			stmts = append(stmts, id)
		}
	}

	fileID := b.fileIDs[f]
	var bindings []resolve.Declaration
	bind := func(node, tok syntax.NodeID) {
		bindings = append(bindings, resolve.Declaration{
			File: f, Node: node, NameToken: tok, Name: f.Text(tok), Scope: f.Root(),
		})
	}
	for _, stmt := range stmts {
		src := f.ChildByField(stmt, "source")
		if src == syntax.NoNode {
			continue
		}
		specifier := f.StringValue(src)

		var target *int64
		if path, ok := b.resolver.ResolveImport(f.Path, specifier); ok {
			tf, err := tx.FileByPath(ctx, path)
			if err != nil {
				return nil, err
			}
			if tf != nil {
				target = &tf.ID
			}
		}

		var err error
		insert := func(imp *store.Import) {
			imp.FileID, imp.Source, imp.ResolvedFileID = fileID, specifier, target
			_, err = tx.InsertImport(ctx, imp)
		}
		f.Walk(stmt, func(id syntax.NodeID) bool {
			if err != nil {
				return false
			}
			switch f.Kind(id) {
			case syntax.KindImportSpecifier:
				nameTok := f.ChildByField(id, "name")
				if nameTok == syntax.NoNode {
					return false
				}
				localTok := nameTok
				if alias := f.ChildByField(id, "alias"); alias != syntax.NoNode {
					localTok = alias
				}
				imported, local := f.Text(nameTok), f.Text(localTok)
				insert(&store.Import{ImportedName: &imported, LocalAlias: &local, Kind: store.ImportNamed, NodeID: int32(id)})
				bind(id, localTok)
				return false
			case syntax.KindNamespaceImport:
				nsTok := f.FirstDescendant(id, syntax.KindIdentifier)
				if nsTok == syntax.NoNode {
					return false
				}
				local := f.Text(nsTok)
				insert(&store.Import{LocalAlias: &local, Kind: store.ImportNamespace, NodeID: int32(id)})
				bind(id, nsTok)
				return false
			case syntax.KindIdentifier:
				if f.Node(f.Parent(id)).Type == "import_clause" {
					local := f.Text(id)
					insert(&store.Import{LocalAlias: &local, Kind: store.ImportDefault, NodeID: int32(id)})
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return bindings, nil
}

// linkImports reads back f's recorded imports and resolves named and
// namespace imports of indexed files to the exporting symbols.
func (b *Binder) linkImports(ctx context.Context, tx *store.Store, f *syntax.File, bindings resolve.Bindings) error {
	imps, err := tx.ImportsByFile(ctx, b.fileIDs[f])
	if err != nil {
		return err
	}
	for _, imp := range imps {
		if imp.ResolvedFileID == nil {
			continue
		}
		node := syntax.NodeID(imp.NodeID)
		switch imp.Kind {
		case store.ImportNamed:
			err = b.linkNamed(ctx, tx, f, imp, bindings[node])
		case store.ImportNamespace:
			err = b.linkNamespace(ctx, tx, f, imp, bindings[node])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *Binder) linkNamed(ctx context.Context, tx *store.Store, f *syntax.File, imp *store.Import, usages []syntax.NodeID) error {
	sym, err := tx.ExportedSymbol(ctx, *imp.ResolvedFileID, *imp.ImportedName)
	if err != nil || sym == nil {
		return err
	}
	nameTok := f.ChildByField(syntax.NodeID(imp.NodeID), "name")
	if err := b.link(ctx, tx, f, nameTok, sym.ID, store.ResolutionImport); err != nil {
		return err
	}
	for _, u := range usages {
		if err := b.link(ctx, tx, f, u, sym.ID, store.ResolutionImport); err != nil {
			return err
		}
	}
	return nil
}

// linkNamespace resolves ns.name against the target's exports.
func (b *Binder) linkNamespace(ctx context.Context, tx *store.Store, f *syntax.File, imp *store.Import, usages []syntax.NodeID) error {
	for _, u := range usages {
		member := f.Parent(u)
		if f.Kind(member) != syntax.KindMember || f.Node(u).Field != "object" {
			continue
		}
		prop := f.ChildByField(member, "property")
		if prop == syntax.NoNode {
			continue
		}
		sym, err := tx.ExportedSymbol(ctx, *imp.ResolvedFileID, f.Text(prop))
		if err != nil {
			return err
		}
		if sym == nil {
			continue
		}
		if err := b.link(ctx, tx, f, prop, sym.ID, store.ResolutionNamespace); err != nil {
			return err
		}
	}
	return nil
}
