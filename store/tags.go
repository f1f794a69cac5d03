package store

import (
	"context"
	"fmt"
	"strings"
)

// TagResult is one hit from SearchByTag.
type TagResult struct {
	Path      string
	Name      string
	AssetType string
	Tag       string
}

// UpsertTags replaces the tag set for assetPath (idempotent: the
// caller is expected to have already deduped the incoming tag list,
// per the tag-extraction idempotence invariant).
func (s *Store) UpsertTags(ctx context.Context, assetPath string, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tags: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE asset_path = ?`, assetPath); err != nil {
		return fmt.Errorf("clear tags for %s: %w", assetPath, err)
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO tags (asset_path, tag) VALUES (?, ?)`, assetPath, tag); err != nil {
			return fmt.Errorf("insert tag %s on %s: %w", tag, assetPath, err)
		}
	}
	return tx.Commit()
}

// SearchByTag matches exact, or (if tagOrPrefix ends with ".*") prefix
// on the tag column, joined against whichever of docs or
// lightweight_assets carries that path (spec §4.3).
func (s *Store) SearchByTag(ctx context.Context, tagOrPrefix string, limit int) ([]TagResult, error) {
	var where string
	var arg string
	if strings.HasSuffix(tagOrPrefix, ".*") {
		where = "t.tag GLOB ?"
		arg = strings.TrimSuffix(tagOrPrefix, ".*") + "*"
	} else {
		where = "t.tag = ?"
		arg = tagOrPrefix
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.asset_path, t.tag,
		       COALESCE(d.name, la.name, '') AS name,
		       COALESCE(d.asset_type, la.asset_type, '') AS asset_type
		FROM tags t
		LEFT JOIN docs d ON d.path = t.asset_path
		LEFT JOIN lightweight_assets la ON la.path = t.asset_path
		WHERE `+where+`
		LIMIT ?`, arg, limit)
	if err != nil {
		return nil, fmt.Errorf("search_by_tag %q: %w", tagOrPrefix, err)
	}
	defer rows.Close()

	var out []TagResult
	for rows.Next() {
		var r TagResult
		if err := rows.Scan(&r.Path, &r.Tag, &r.Name, &r.AssetType); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
