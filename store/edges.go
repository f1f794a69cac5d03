package store

import (
	"context"
	"fmt"
)

// EdgeHit is one row of the edges table joined against its target/source
// doc, used by the search package's system-trace mode (spec §4.7).
type EdgeHit struct {
	ToID      string
	FromID    string
	EdgeType  string
	Path      string
	Name      string
	AssetType string
	Type      string
	Text      string
}

// ListOutgoingEdges returns every edge whose from_id is one of fromIDs,
// joined against the target doc when one exists (a dangling edge still
// comes back with Path/Name/etc. left empty).
func (s *Store) ListOutgoingEdges(ctx context.Context, fromIDs []string) ([]EdgeHit, error) {
	if len(fromIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]byte, 0, len(fromIDs)*2)
	args := make([]any, len(fromIDs))
	for i, id := range fromIDs {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}
	query := `
		SELECT e.to_id, e.edge_type,
		       COALESCE(d.type, ''), COALESCE(d.path, ''), COALESCE(d.name, ''),
		       COALESCE(d.asset_type, ''), COALESCE(d.text, '')
		FROM edges e
		LEFT JOIN docs d ON e.to_id = d.doc_id
		WHERE e.from_id IN (` + string(placeholders) + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list outgoing edges: %w", err)
	}
	defer rows.Close()

	var out []EdgeHit
	for rows.Next() {
		var h EdgeHit
		if err := rows.Scan(&h.ToID, &h.EdgeType, &h.Type, &h.Path, &h.Name, &h.AssetType, &h.Text); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ListIncomingEdges returns every edge pointing at toID, joined against
// the source doc, capped at limit.
func (s *Store) ListIncomingEdges(ctx context.Context, toID string, limit int) ([]EdgeHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT d.path, d.name, d.asset_type, d.type, d.text, e.edge_type
		FROM edges e
		JOIN docs d ON e.from_id = d.doc_id
		WHERE e.to_id = ?
		LIMIT ?`, toID, limit)
	if err != nil {
		return nil, fmt.Errorf("list incoming edges for %s: %w", toID, err)
	}
	defer rows.Close()

	var out []EdgeHit
	for rows.Next() {
		var h EdgeHit
		if err := rows.Scan(&h.Path, &h.Name, &h.AssetType, &h.Type, &h.Text, &h.EdgeType); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
