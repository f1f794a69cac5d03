package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// LightweightAsset is a path+type+references row carrying no text or
// embedding (spec §3.1 Lightweight Asset).
type LightweightAsset struct {
	Path       string
	Name       string
	AssetType  string
	References []string
}

// UpsertLightweightBatch replaces rows and rewrites the lightweight_refs
// reverse-lookup projection for each asset (spec §4.3).
func (s *Store) UpsertLightweightBatch(ctx context.Context, assets []LightweightAsset) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin lightweight batch: %w", err)
	}
	defer tx.Rollback()

	for _, a := range assets {
		refsJSON, err := json.Marshal(a.References)
		if err != nil {
			return 0, fmt.Errorf("marshal references for %s: %w", a.Path, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO lightweight_assets (path, name, asset_type, "references", indexed_at)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`, a.Path, a.Name, a.AssetType, string(refsJSON)); err != nil {
			return 0, fmt.Errorf("upsert lightweight_assets %s: %w", a.Path, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM lightweight_refs WHERE asset_path = ?`, a.Path); err != nil {
			return 0, fmt.Errorf("clear lightweight_refs %s: %w", a.Path, err)
		}
		for _, ref := range a.References {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO lightweight_refs (asset_path, ref_path) VALUES (?, ?)`, a.Path, ref); err != nil {
				return 0, fmt.Errorf("insert lightweight_refs %s -> %s: %w", a.Path, ref, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit lightweight batch: %w", err)
	}
	return len(assets), nil
}

// DeleteLightweightPaths removes lightweight rows (and their refs
// projection) for the given paths, used when an asset graduates from
// lightweight to semantic indexing (spec §4.3).
func (s *Store) DeleteLightweightPaths(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete lightweight: %w", err)
	}
	defer tx.Rollback()

	for _, p := range paths {
		if _, err := tx.ExecContext(ctx, `DELETE FROM lightweight_assets WHERE path = ?`, p); err != nil {
			return fmt.Errorf("delete lightweight_assets %s: %w", p, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM lightweight_refs WHERE asset_path = ?`, p); err != nil {
			return fmt.Errorf("delete lightweight_refs %s: %w", p, err)
		}
	}
	return tx.Commit()
}

// SearchLightweightByName matches namePattern (a SQL LIKE pattern, e.g.
// "BP_Door%") against the last path segment of lightweight_assets rows
// (spec §4.7 "name" mode fallback scan).
func (s *Store) SearchLightweightByName(ctx context.Context, namePattern string, limit int) ([]LightweightAsset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, name, asset_type, "references" FROM lightweight_assets
		WHERE name LIKE ? LIMIT ?`, namePattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search lightweight by name %q: %w", namePattern, err)
	}
	defer rows.Close()

	var out []LightweightAsset
	for rows.Next() {
		var a LightweightAsset
		var refsJSON string
		if err := rows.Scan(&a.Path, &a.Name, &a.AssetType, &refsJSON); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(refsJSON), &a.References)
		out = append(out, a)
	}
	return out, rows.Err()
}

// SearchLightweightByPath matches pathPattern (a SQL LIKE pattern) against
// the full path of lightweight_assets rows, used by the "refs" search
// mode's level-placement query (spec §4.7, __ExternalActors__ scan).
func (s *Store) SearchLightweightByPath(ctx context.Context, pathPattern string, limit int) ([]LightweightAsset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, name, asset_type, "references" FROM lightweight_assets
		WHERE path LIKE ? LIMIT ?`, pathPattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search lightweight by path %q: %w", pathPattern, err)
	}
	defer rows.Close()

	var out []LightweightAsset
	for rows.Next() {
		var a LightweightAsset
		var refsJSON string
		if err := rows.Scan(&a.Path, &a.Name, &a.AssetType, &refsJSON); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(refsJSON), &a.References)
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetLightweightAsset fetches a lightweight row by path, or nil if absent.
func (s *Store) GetLightweightAsset(ctx context.Context, path string) (*LightweightAsset, error) {
	var a LightweightAsset
	var refsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT path, name, asset_type, "references" FROM lightweight_assets WHERE path = ?`, path,
	).Scan(&a.Path, &a.Name, &a.AssetType, &refsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lightweight asset %s: %w", path, err)
	}
	if err := json.Unmarshal([]byte(refsJSON), &a.References); err != nil {
		return nil, fmt.Errorf("unmarshal references for %s: %w", path, err)
	}
	return &a, nil
}
