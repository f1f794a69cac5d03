package store

import (
	"context"
	"database/sql"
	"errors"
)

// ResolveAssetPathByName looks up an asset whose last path segment
// matches name, checking fully-extracted docs first and falling back
// to lightweight assets (indexer parent-class resolution rule 5, spec
// §4.5). Returns ok=false if nothing matches; when more than one path
// matches, the first in path order is returned.
func (s *Store) ResolveAssetPathByName(ctx context.Context, name string) (string, bool) {
	suffix := "/" + name
	var path string

	err := s.db.QueryRowContext(ctx,
		`SELECT path FROM docs WHERE path LIKE '%' || ? ORDER BY path LIMIT 1`, suffix,
	).Scan(&path)
	if err == nil {
		return path, true
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT path FROM lightweight_assets WHERE path LIKE '%' || ? ORDER BY path LIMIT 1`, suffix,
	).Scan(&path)
	if err == nil {
		return path, true
	}
	return "", false
}
