// Package binder provides the semantic reference capability: it indexes
// declarations and their references across loaded files into an in-memory
// SQLite store and answers "find references" for a declaration's symbol.
package binder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jward/refscope/internal/errs"
	"github.com/jward/refscope/internal/resolve"
	"github.com/jward/refscope/internal/store"
	"github.com/jward/refscope/internal/syntax"
)

// ImportResolver maps a module specifier written in one file to the
// absolute path of the file it loads.
type ImportResolver interface {
	ResolveImport(from, specifier string) (string, bool)
}

// Binder owns the symbol index for one command.
type Binder struct {
	store    *store.Store
	resolver ImportResolver
	logger   *slog.Logger

	fileIDs map[*syntax.File]int64
	byID    map[int64]*syntax.File
}

// New opens an empty in-memory index.
func New(ctx context.Context, resolver ImportResolver, logger *slog.Logger) (*Binder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := store.NewStore(store.MemoryDSN)
	if err != nil {
		return nil, fmt.Errorf("binder: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("binder: %w", err)
	}
	return &Binder{
		store:    s,
		resolver: resolver,
		logger:   logger,
		fileIDs:  make(map[*syntax.File]int64),
		byID:     make(map[int64]*syntax.File),
	}, nil
}

// Close releases the index.
func (b *Binder) Close() error {
	return b.store.Close()
}

// Index records symbols and references for files, in the given order.
// Every file is registered before any is indexed, and declarations are
// indexed for every file before imports are linked, so import order
// between files does not matter. Each file's identifiers are bound in a
// single pass.
func (b *Binder) Index(ctx context.Context, files []*syntax.File) error {
	err := b.store.InTx(ctx, func(tx *store.Store) error {
		var added []*syntax.File
		for _, f := range files {
			if _, ok := b.fileIDs[f]; ok {
				continue
			}
			file := &store.File{Path: f.Path, Language: f.Language, LineCount: f.LineCount()}
			fileID, err := tx.InsertFile(ctx, file)
			if err != nil {
				return fmt.Errorf("register %s: %w", f.Path, err)
			}
			b.fileIDs[f] = fileID
			b.byID[fileID] = f
			added = append(added, f)
		}

		bound := make(map[*syntax.File]resolve.Bindings, len(added))
		for _, f := range added {
			bindings, err := b.indexFile(ctx, tx, f)
			if err != nil {
				return fmt.Errorf("index %s: %w", f.Path, err)
			}
			bound[f] = bindings
		}
		for _, f := range added {
			if err := b.linkImports(ctx, tx, f, bound[f]); err != nil {
				return fmt.Errorf("link imports %s: %w", f.Path, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("binder: %w", err)
	}
	b.logger.Debug("symbol index built", "files", len(b.fileIDs))
	return nil
}

func (b *Binder) indexFile(ctx context.Context, tx *store.Store, f *syntax.File) (resolve.Bindings, error) {
	fileID := b.fileIDs[f]
	imported, err := b.recordImports(ctx, tx, f)
	if err != nil {
		return nil, err
	}
	bindings := resolve.BindAll(f, imported...)

	exports := exportClauseNames(f)
	for _, d := range resolve.Declarations(f) {
		sym := &store.Symbol{
			FileID:    fileID,
			Name:      d.Name,
			Kind:      store.KindVariable,
			NodeID:    int32(d.Node),
			StartByte: f.Node(d.Node).Start,
		}
		if f.Kind(d.Node) == syntax.KindParameter {
			sym.Kind = store.KindParameter
		}
		r := f.Range(d.NameToken)
		sym.StartLine, sym.StartCol = r.Start.Line, r.Start.Column
		sym.EndLine, sym.EndCol = r.End.Line, r.End.Column

		if d.Scope == f.Root() && sym.Kind == store.KindVariable {
			if underExport(f, d.Node) {
				sym.Exported, sym.ExportName = true, d.Name
			} else if name, ok := exports[d.Name]; ok {
				sym.Exported, sym.ExportName = true, name
				delete(exports, d.Name)
			}
		}
		if _, err := tx.InsertSymbol(ctx, sym); err != nil {
			return nil, err
		}

		if err := b.link(ctx, tx, f, d.NameToken, sym.ID, store.ResolutionDeclaration); err != nil {
			return nil, err
		}
		for _, u := range bindings[d.Node] {
			if err := b.link(ctx, tx, f, u, sym.ID, store.ResolutionLexical); err != nil {
				return nil, err
			}
		}
	}
	return bindings, nil
}

// link stores node as a reference resolved to symbolID.
func (b *Binder) link(ctx context.Context, tx *store.Store, f *syntax.File, node syntax.NodeID, symbolID int64, kind string) error {
	r := f.Range(node)
	ref := &store.Reference{
		FileID:    b.fileIDs[f],
		NodeID:    int32(node),
		Name:      f.Text(node),
		StartByte: f.Node(node).Start,
		StartLine: r.Start.Line,
		StartCol:  r.Start.Column,
		EndLine:   r.End.Line,
		EndCol:    r.End.Column,
		Context:   kind,
	}
	if _, err := tx.UpsertReference(ctx, ref); err != nil {
		return err
	}
	_, err := tx.InsertResolvedReference(ctx, &store.ResolvedReference{
		ReferenceID:    ref.ID,
		TargetSymbolID: symbolID,
		ResolutionKind: kind,
	})
	return err
}

// SymbolAt returns the symbol attached to a declaration node.
func (b *Binder) SymbolAt(ctx context.Context, f *syntax.File, decl syntax.NodeID) (*store.Symbol, error) {
	fileID, ok := b.fileIDs[f]
	if !ok {
		return nil, noSymbol(f, decl)
	}
	sym, err := b.store.SymbolByNode(ctx, fileID, int32(decl))
	if err != nil {
		return nil, fmt.Errorf("binder: %w", err)
	}
	if sym == nil {
		return nil, noSymbol(f, decl)
	}
	return sym, nil
}

func noSymbol(f *syntax.File, decl syntax.NodeID) error {
	return errs.New(errs.CodeNoSymbolAtPosition, "no symbol attached to declaration").
		WithContext(errs.CtxPath, f.Path).
		WithContext(errs.CtxLocation, f.Position(f.Node(decl).Start).String())
}

// FindReferences returns the references to sym grouped by file. Groups
// follow index order and nodes within a group follow document order.
func (b *Binder) FindReferences(ctx context.Context, sym *store.Symbol) ([][]syntax.Ref, error) {
	refs, err := b.store.ReferencesTo(ctx, sym.ID)
	if err != nil {
		return nil, fmt.Errorf("binder: %w", err)
	}

	var groups [][]syntax.Ref
	lastFile := int64(-1)
	for _, r := range refs {
		f, ok := b.byID[r.FileID]
		if !ok {
			return nil, fmt.Errorf("binder: reference %d points at unknown file %d", r.ID, r.FileID)
		}
		if r.FileID != lastFile {
			groups = append(groups, nil)
			lastFile = r.FileID
		}
		last := len(groups) - 1
		groups[last] = append(groups[last], syntax.Ref{File: f, Node: syntax.NodeID(r.NodeID)})
	}
	return groups, nil
}
