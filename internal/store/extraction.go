package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type scanner interface{ Scan(...any) error }

func lastID(res sql.Result) (int64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// --- File operations ---

func (s *Store) InsertFile(ctx context.Context, f *File) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		"INSERT INTO files (path, language, line_count) VALUES (?, ?, ?)",
		f.Path, f.Language, f.LineCount,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := lastID(res)
	if err != nil {
		return 0, err
	}
	f.ID = id
	return id, nil
}

const fileCols = `id, path, language, line_count`

func (s *Store) queryFile(ctx context.Context, query string, args ...any) (*File, error) {
	f := &File{}
	err := s.conn.QueryRowContext(ctx, query, args...).Scan(&f.ID, &f.Path, &f.Language, &f.LineCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// FileByPath returns nil, nil when no file has that path.
func (s *Store) FileByPath(ctx context.Context, path string) (*File, error) {
	f, err := s.queryFile(ctx, "SELECT "+fileCols+" FROM files WHERE path = ?", path)
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// --- Symbol operations ---

func (s *Store) InsertSymbol(ctx context.Context, sym *Symbol) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO symbols (file_id, name, kind, exported, export_name, node_id, start_byte,
			start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.FileID, sym.Name, sym.Kind, sym.Exported, sym.ExportName, sym.NodeID, sym.StartByte,
		sym.StartLine, sym.StartCol, sym.EndLine, sym.EndCol,
	)
	if err != nil {
		return 0, fmt.Errorf("insert symbol: %w", err)
	}
	id, err := lastID(res)
	if err != nil {
		return 0, err
	}
	sym.ID = id
	return id, nil
}

const symbolCols = `id, file_id, name, kind, exported, COALESCE(export_name, ''), node_id, start_byte,
	start_line, start_col, end_line, end_col`

func scanSymbol(sc scanner) (*Symbol, error) {
	sym := &Symbol{}
	err := sc.Scan(&sym.ID, &sym.FileID, &sym.Name, &sym.Kind, &sym.Exported, &sym.ExportName, &sym.NodeID,
		&sym.StartByte, &sym.StartLine, &sym.StartCol, &sym.EndLine, &sym.EndCol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

func (s *Store) querySymbol(ctx context.Context, query string, args ...any) (*Symbol, error) {
	sym, err := scanSymbol(s.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sym, err
}

// SymbolByNode returns the symbol declared by a node, or nil, nil.
func (s *Store) SymbolByNode(ctx context.Context, fileID int64, nodeID int32) (*Symbol, error) {
	sym, err := s.querySymbol(ctx,
		"SELECT "+symbolCols+" FROM symbols WHERE file_id = ? AND node_id = ?", fileID, nodeID)
	if err != nil {
		return nil, fmt.Errorf("symbol by node: %w", err)
	}
	return sym, nil
}

// ExportedSymbol returns the symbol a file exports as name, or nil, nil.
func (s *Store) ExportedSymbol(ctx context.Context, fileID int64, name string) (*Symbol, error) {
	sym, err := s.querySymbol(ctx,
		"SELECT "+symbolCols+" FROM symbols WHERE file_id = ? AND export_name = ? AND exported ORDER BY start_byte LIMIT 1",
		fileID, name)
	if err != nil {
		return nil, fmt.Errorf("exported symbol: %w", err)
	}
	return sym, nil
}

// --- Import operations ---

func (s *Store) InsertImport(ctx context.Context, imp *Import) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO imports (file_id, source, resolved_file_id, imported_name, local_alias, kind, node_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		imp.FileID, imp.Source, imp.ResolvedFileID, imp.ImportedName, imp.LocalAlias, imp.Kind, imp.NodeID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert import: %w", err)
	}
	id, err := lastID(res)
	if err != nil {
		return 0, err
	}
	imp.ID = id
	return id, nil
}

const importCols = `id, file_id, source, resolved_file_id, imported_name, local_alias, kind, node_id`

func (s *Store) queryImports(ctx context.Context, query string, args ...any) ([]*Import, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var imports []*Import
	for rows.Next() {
		imp := &Import{}
		if err := rows.Scan(&imp.ID, &imp.FileID, &imp.Source, &imp.ResolvedFileID,
			&imp.ImportedName, &imp.LocalAlias, &imp.Kind, &imp.NodeID); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

func (s *Store) ImportsByFile(ctx context.Context, fileID int64) ([]*Import, error) {
	return s.queryImports(ctx, "SELECT "+importCols+" FROM imports WHERE file_id = ? ORDER BY id", fileID)
}

// --- Reference operations ---

const referenceCols = `id, file_id, node_id, name, start_byte, start_line, start_col, end_line, end_col, context`

func scanReference(sc scanner) (*Reference, error) {
	ref := &Reference{}
	err := sc.Scan(&ref.ID, &ref.FileID, &ref.NodeID, &ref.Name, &ref.StartByte,
		&ref.StartLine, &ref.StartCol, &ref.EndLine, &ref.EndCol, &ref.Context)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// UpsertReference inserts ref unless its (file, node) pair is already
// stored, and returns the row ID either way.
func (s *Store) UpsertReference(ctx context.Context, ref *Reference) (int64, error) {
	existing, err := scanReference(s.conn.QueryRowContext(ctx,
		"SELECT "+referenceCols+" FROM references_ WHERE file_id = ? AND node_id = ?",
		ref.FileID, ref.NodeID))
	switch {
	case err == nil:
		ref.ID = existing.ID
		return existing.ID, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("lookup reference: %w", err)
	}

	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO references_ (file_id, node_id, name, start_byte, start_line, start_col, end_line, end_col, context)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ref.FileID, ref.NodeID, ref.Name, ref.StartByte,
		ref.StartLine, ref.StartCol, ref.EndLine, ref.EndCol, ref.Context,
	)
	if err != nil {
		return 0, fmt.Errorf("insert reference: %w", err)
	}
	id, err := lastID(res)
	if err != nil {
		return 0, err
	}
	ref.ID = id
	return id, nil
}
