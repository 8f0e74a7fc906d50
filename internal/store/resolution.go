package store

import (
	"context"
	"fmt"
)

// --- ResolvedReference operations ---

func (s *Store) InsertResolvedReference(ctx context.Context, rr *ResolvedReference) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO resolved_references (reference_id, target_symbol_id, resolution_kind)
		 VALUES (?, ?, ?)`,
		rr.ReferenceID, rr.TargetSymbolID, rr.ResolutionKind,
	)
	if err != nil {
		return 0, fmt.Errorf("insert resolved reference: %w", err)
	}
	id, err := lastID(res)
	if err != nil {
		return 0, err
	}
	rr.ID = id
	return id, nil
}

// ReferencesTo returns every reference resolved to symbolID, ordered by
// file insertion order and then by position. A reference reached through
// several resolutions is returned once.
func (s *Store) ReferencesTo(ctx context.Context, symbolID int64) ([]*Reference, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT DISTINCT r.id, r.file_id, r.node_id, r.name, r.start_byte,
			r.start_line, r.start_col, r.end_line, r.end_col, r.context
		 FROM resolved_references rr
		 JOIN references_ r ON r.id = rr.reference_id
		 WHERE rr.target_symbol_id = ?
		 ORDER BY r.file_id, r.start_byte`, symbolID)
	if err != nil {
		return nil, fmt.Errorf("references to symbol: %w", err)
	}
	defer rows.Close()
	var refs []*Reference
	for rows.Next() {
		ref, err := scanReference(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
