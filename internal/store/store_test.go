package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(MemoryDSN)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func insertTestFile(t *testing.T, s *Store, path string) *File {
	t.Helper()
	f := &File{Path: path, Language: "typescript", LineCount: 10}
	id, err := s.InsertFile(context.Background(), f)
	require.NoError(t, err)
	require.Positive(t, id)
	return f
}

func insertTestSymbol(t *testing.T, s *Store, fileID int64, name string, node int32, start int) *Symbol {
	t.Helper()
	sym := &Symbol{FileID: fileID, Name: name, Kind: KindVariable, NodeID: node, StartByte: start, StartLine: 1, StartCol: start + 1}
	id, err := s.InsertSymbol(context.Background(), sym)
	require.NoError(t, err)
	require.Positive(t, id)
	return sym
}

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "symbols", "imports", "references_", "resolved_references"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestFiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/p/a.ts")

	got, err := s.FileByPath(ctx, "/p/a.ts")
	require.NoError(t, err)
	assert.Equal(t, f, got)

	missing, err := s.FileByPath(ctx, "/p/none.ts")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = s.InsertFile(ctx, &File{Path: "/p/a.ts", Language: "typescript"})
	assert.Error(t, err, "paths are unique")
}

func TestSymbols(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/p/a.ts")

	late := insertTestSymbol(t, s, f.ID, "x", 40, 30)
	early := insertTestSymbol(t, s, f.ID, "x", 5, 4)
	insertTestSymbol(t, s, f.ID, "y", 12, 10)

	got, err := s.SymbolByNode(ctx, f.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, late, got)

	got, err = s.SymbolByNode(ctx, f.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, early, got)

	none, err := s.SymbolByNode(ctx, f.ID, 99)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestExportedSymbol(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/p/a.ts")
	insertTestSymbol(t, s, f.ID, "x", 40, 30)

	exported := &Symbol{FileID: f.ID, Name: "x", Kind: KindVariable, Exported: true, ExportName: "renamed", NodeID: 5, StartByte: 4}
	_, err := s.InsertSymbol(ctx, exported)
	require.NoError(t, err)

	got, err := s.ExportedSymbol(ctx, f.ID, "x")
	require.NoError(t, err)
	assert.Nil(t, got, "looked up by export name")

	got, err = s.ExportedSymbol(ctx, f.ID, "renamed")
	require.NoError(t, err)
	assert.Equal(t, exported, got)
}

func TestImports(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	a := insertTestFile(t, s, "/p/a.ts")
	b := insertTestFile(t, s, "/p/b.ts")

	named := &Import{FileID: b.ID, Source: "./a", ResolvedFileID: &a.ID, ImportedName: ptr("foo"), LocalAlias: ptr("f"), Kind: ImportNamed, NodeID: 7}
	_, err := s.InsertImport(ctx, named)
	require.NoError(t, err)
	external := &Import{FileID: b.ID, Source: "lodash", Kind: ImportDefault, NodeID: 20, LocalAlias: ptr("_")}
	_, err = s.InsertImport(ctx, external)
	require.NoError(t, err)

	byFile, err := s.ImportsByFile(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []*Import{named, external}, byFile)
	assert.Nil(t, external.ResolvedFileID)
}

func TestReferencesTo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	a := insertTestFile(t, s, "/p/a.ts")
	b := insertTestFile(t, s, "/p/b.ts")
	sym := insertTestSymbol(t, s, a.ID, "foo", 3, 13)

	link := func(fileID int64, node int32, start int, kind string) *Reference {
		ref := &Reference{FileID: fileID, NodeID: node, Name: "foo", StartByte: start, Context: kind}
		_, err := s.UpsertReference(ctx, ref)
		require.NoError(t, err)
		_, err = s.InsertResolvedReference(ctx, &ResolvedReference{
			ReferenceID: ref.ID, TargetSymbolID: sym.ID, ResolutionKind: kind,
		})
		require.NoError(t, err)
		return ref
	}

	inB := link(b.ID, 9, 40, ResolutionImport)
	late := link(a.ID, 30, 60, ResolutionLexical)
	decl := link(a.ID, 4, 13, ResolutionDeclaration)
	again := link(b.ID, 9, 40, ResolutionImport)
	assert.Equal(t, inB.ID, again.ID, "upsert reuses the row")

	refs, err := s.ReferencesTo(ctx, sym.ID)
	require.NoError(t, err)
	var ids []int64
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{decl.ID, late.ID, inB.ID}, ids)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	err := s.InTx(ctx, func(tx *Store) error {
		if _, err := tx.InsertFile(ctx, &File{Path: "/p/x.ts", Language: "typescript"}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	got, err := s.FileByPath(ctx, "/p/x.ts")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.InTx(ctx, func(tx *Store) error {
		_, err := tx.InsertFile(ctx, &File{Path: "/p/y.ts", Language: "typescript"})
		return err
	}))
	got, err = s.FileByPath(ctx, "/p/y.ts")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
