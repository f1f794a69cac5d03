// Package store implements the embedded knowledge store (spec §4.3): a
// single-writer SQLite database providing document storage, FTS5 full-text
// search, in-process vector similarity, and the reference graph.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is stamped into index_meta on first open.
const SchemaVersion = 1

// Store wraps a single SQLite connection. SQLite only supports one
// writer at a time, so, like hector's DBPool for sqlite3, the pool is
// capped to a single connection: this serializes writes and avoids
// "database is locked" errors under concurrent indexer batches.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens the knowledge store database at path, applying
// schema migrations idempotently.
func Open(ctx context.Context, path string) (*Store, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", path+sep+"_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=10000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenMemory opens an in-memory store, for tests.
func OpenMemory(ctx context.Context) (*Store, error) {
	return Open(ctx, "file::memory:?cache=shared")
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS docs (
		doc_id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		path TEXT NOT NULL,
		name TEXT NOT NULL,
		module TEXT,
		asset_type TEXT,
		text TEXT NOT NULL,
		metadata TEXT DEFAULT '{}',
		references_out TEXT DEFAULT '[]',
		typed_references_out TEXT DEFAULT '{}',
		fingerprint TEXT NOT NULL,
		schema_version INTEGER DEFAULT 1,
		embed_model TEXT,
		embed_version TEXT,
		indexed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS docs_fts USING fts5(
		doc_id, name, path, text,
		content='docs', content_rowid='rowid'
	)`,
	`CREATE TRIGGER IF NOT EXISTS docs_ai AFTER INSERT ON docs BEGIN
		INSERT INTO docs_fts(rowid, doc_id, name, path, text)
		VALUES (new.rowid, new.doc_id, new.name, new.path, new.text);
	END`,
	`CREATE TRIGGER IF NOT EXISTS docs_ad AFTER DELETE ON docs BEGIN
		INSERT INTO docs_fts(docs_fts, rowid, doc_id, name, path, text)
		VALUES('delete', old.rowid, old.doc_id, old.name, old.path, old.text);
	END`,
	`CREATE TRIGGER IF NOT EXISTS docs_au AFTER UPDATE ON docs BEGIN
		INSERT INTO docs_fts(docs_fts, rowid, doc_id, name, path, text)
		VALUES('delete', old.rowid, old.doc_id, old.name, old.path, old.text);
		INSERT INTO docs_fts(rowid, doc_id, name, path, text)
		VALUES (new.rowid, new.doc_id, new.name, new.path, new.text);
	END`,
	`CREATE TABLE IF NOT EXISTS docs_embeddings (
		doc_id TEXT PRIMARY KEY,
		embedding BLOB NOT NULL,
		embed_model TEXT,
		embed_version TEXT,
		FOREIGN KEY (doc_id) REFERENCES docs(doc_id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS edges (
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		edge_type TEXT NOT NULL DEFAULT 'uses_asset',
		metadata TEXT,
		PRIMARY KEY (from_id, to_id, edge_type)
	)`,
	`CREATE TABLE IF NOT EXISTS lightweight_assets (
		path TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		asset_type TEXT NOT NULL,
		"references" TEXT DEFAULT '[]',
		indexed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS lightweight_refs (
		asset_path TEXT NOT NULL,
		ref_path TEXT NOT NULL,
		PRIMARY KEY (asset_path, ref_path)
	)`,
	`CREATE TABLE IF NOT EXISTS file_meta (
		abs_path TEXT PRIMARY KEY,
		mtime REAL NOT NULL,
		size INTEGER NOT NULL,
		asset_type TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS cpp_class_index (
		class_name TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		source_path TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		asset_path TEXT NOT NULL,
		tag TEXT NOT NULL,
		PRIMARY KEY (asset_path, tag)
	)`,
	`CREATE TABLE IF NOT EXISTS index_meta (
		key TEXT PRIMARY KEY,
		value TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_docs_type ON docs(type)`,
	`CREATE INDEX IF NOT EXISTS idx_docs_path ON docs(path)`,
	`CREATE INDEX IF NOT EXISTS idx_docs_module ON docs(module)`,
	`CREATE INDEX IF NOT EXISTS idx_docs_fingerprint ON docs(fingerprint)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(edge_type)`,
	`CREATE INDEX IF NOT EXISTS idx_lightweight_type ON lightweight_assets(asset_type)`,
	`CREATE INDEX IF NOT EXISTS idx_lightweight_refs_ref ON lightweight_refs(ref_path)`,
	`CREATE INDEX IF NOT EXISTS idx_tags_tag ON tags(tag)`,
}

func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schemaDDL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO index_meta(key, value) VALUES ('schema_version', ?)`,
		fmt.Sprintf("%d", SchemaVersion)); err != nil {
		return fmt.Errorf("stamp schema version: %w", err)
	}
	return tx.Commit()
}

// IndexMetaGet returns a value from index_meta, or "" if unset.
func (s *Store) IndexMetaGet(ctx context.Context, key string) (string, error) {
	var val string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM index_meta WHERE key = ?`, key).Scan(&val)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index_meta get %q: %w", key, err)
	}
	return val, nil
}

// IndexMetaSet persists a key/value pair in index_meta.
func (s *Store) IndexMetaSet(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO index_meta(key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("index_meta set %q: %w", key, err)
	}
	return nil
}
