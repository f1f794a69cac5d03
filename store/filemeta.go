package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FileMeta is one incremental-run fingerprint row (spec §3.1 File Metadata).
type FileMeta struct {
	AbsPath   string
	MTime     float64
	Size      int64
	AssetType string
}

// GetFileMeta fetches the known (mtime, size, asset_type) for absPath,
// or nil if the file has never been seen before.
func (s *Store) GetFileMeta(ctx context.Context, absPath string) (*FileMeta, error) {
	var fm FileMeta
	var assetType sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT abs_path, mtime, size, asset_type FROM file_meta WHERE abs_path = ?`, absPath,
	).Scan(&fm.AbsPath, &fm.MTime, &fm.Size, &assetType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file_meta %s: %w", absPath, err)
	}
	fm.AssetType = assetType.String
	return &fm, nil
}

// UpsertFileMeta records that absPath has now been seen at (mtime, size).
func (s *Store) UpsertFileMeta(ctx context.Context, fm FileMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO file_meta (abs_path, mtime, size, asset_type)
		VALUES (?, ?, ?, ?)`, fm.AbsPath, fm.MTime, fm.Size, nullIfEmpty(fm.AssetType))
	if err != nil {
		return fmt.Errorf("upsert file_meta %s: %w", fm.AbsPath, err)
	}
	return nil
}

// UpsertFileMetaBatch records a batch of file_meta rows in one transaction.
func (s *Store) UpsertFileMetaBatch(ctx context.Context, metas []FileMeta) error {
	if len(metas) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin file_meta batch: %w", err)
	}
	defer tx.Rollback()

	for _, fm := range metas {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO file_meta (abs_path, mtime, size, asset_type)
			VALUES (?, ?, ?, ?)`, fm.AbsPath, fm.MTime, fm.Size, nullIfEmpty(fm.AssetType)); err != nil {
			return fmt.Errorf("upsert file_meta %s: %w", fm.AbsPath, err)
		}
	}
	return tx.Commit()
}

// IsFtsDirty reports whether docs_fts' row count diverges from docs',
// the symptom left behind by a forced full reindex that bypassed the
// sync triggers (spec §4.3).
func (s *Store) IsFtsDirty(ctx context.Context) (bool, error) {
	var docsCount, ftsCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM docs`).Scan(&docsCount); err != nil {
		return false, fmt.Errorf("count docs: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM docs_fts`).Scan(&ftsCount); err != nil {
		return false, fmt.Errorf("count docs_fts: %w", err)
	}
	return docsCount != ftsCount, nil
}

// RebuildFTS triggers a full rebuild of the docs_fts index via FTS5's
// built-in 'rebuild' command.
func (s *Store) RebuildFTS(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO docs_fts(docs_fts) VALUES('rebuild')`)
	if err != nil {
		return fmt.Errorf("rebuild fts: %w", err)
	}
	return nil
}

// IndexStatus reports index-wide statistics (mirrors the original
// store's get_status()).
type IndexStatus struct {
	TotalDocs         int
	DocsByType        map[string]int
	TotalEdges        int
	EmbedModel        string
	SchemaVersion     int
	LightweightTotal  int
	LightweightByType map[string]int
}

// GetStatus reports index-wide statistics.
func (s *Store) GetStatus(ctx context.Context) (*IndexStatus, error) {
	status := &IndexStatus{
		DocsByType:        map[string]int{},
		LightweightByType: map[string]int{},
		SchemaVersion:     SchemaVersion,
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM docs`).Scan(&status.TotalDocs); err != nil {
		return nil, fmt.Errorf("count docs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM docs GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("docs by type: %w", err)
	}
	for rows.Next() {
		var t string
		var c int
		if err := rows.Scan(&t, &c); err != nil {
			rows.Close()
			return nil, err
		}
		status.DocsByType[t] = c
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&status.TotalEdges); err != nil {
		return nil, fmt.Errorf("count edges: %w", err)
	}

	var embedModel sql.NullString
	_ = s.db.QueryRowContext(ctx,
		`SELECT embed_model FROM docs WHERE embed_model IS NOT NULL LIMIT 1`).Scan(&embedModel)
	status.EmbedModel = embedModel.String

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lightweight_assets`).Scan(&status.LightweightTotal); err != nil {
		return nil, fmt.Errorf("count lightweight_assets: %w", err)
	}

	lwRows, err := s.db.QueryContext(ctx, `SELECT asset_type, COUNT(*) FROM lightweight_assets GROUP BY asset_type`)
	if err != nil {
		return nil, fmt.Errorf("lightweight by type: %w", err)
	}
	defer lwRows.Close()
	for lwRows.Next() {
		var t string
		var c int
		if err := lwRows.Scan(&t, &c); err != nil {
			return nil, err
		}
		status.LightweightByType[t] = c
	}
	return status, lwRows.Err()
}

// Clear deletes every row of the docs, docs_embeddings, edges,
// lightweight_assets, lightweight_refs, tags and cpp_class_index tables.
// file_meta and index_meta are left as they are.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"docs_embeddings", "edges", "docs", "lightweight_refs", "lightweight_assets", "tags", "cpp_class_index"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}
