package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bradenleague/ueassetindex/refnorm"
	"github.com/bradenleague/ueassetindex/schema"
)

// UpsertResult reports what UpsertDocsBatch did.
type UpsertResult struct {
	Inserted  int
	Errors    int
	LastError error
}

// UpsertDoc inserts or replaces doc. If a row with the same doc_id
// already exists with an equal fingerprint and force is false, it
// returns changed=false without touching the row (spec §4.3). Embedding
// replacement, edge rewrite, and the doc row write are one transaction.
func (s *Store) UpsertDoc(ctx context.Context, doc *schema.DocChunk, embedding []float32, force bool) (changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	if !force {
		var existing string
		err := tx.QueryRowContext(ctx, `SELECT fingerprint FROM docs WHERE doc_id = ?`, doc.DocID).Scan(&existing)
		if err != nil && err != sql.ErrNoRows {
			return false, fmt.Errorf("check fingerprint: %w", err)
		}
		if err == nil && existing == doc.Fingerprint {
			return false, nil
		}
	}

	if err := writeDocRow(ctx, tx, doc); err != nil {
		return false, err
	}
	if embedding != nil {
		if err := writeEmbeddingRow(ctx, tx, doc.DocID, embedding, doc.EmbedModel, doc.EmbedVersion); err != nil {
			return false, err
		}
	}
	if err := rewriteEdges(ctx, tx, doc); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit upsert: %w", err)
	}
	return true, nil
}

// UpsertDocsBatch upserts every doc in docs in a single transaction,
// tolerating per-doc errors (spec §4.3, §7 parser-per-file-failure
// tolerance extends to store writes too).
func (s *Store) UpsertDocsBatch(ctx context.Context, docs []*schema.DocChunk, embeddings map[string][]float32, force bool) (UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("begin batch upsert: %w", err)
	}
	defer tx.Rollback()

	var result UpsertResult
	for _, doc := range docs {
		if !force {
			var existing string
			qerr := tx.QueryRowContext(ctx, `SELECT fingerprint FROM docs WHERE doc_id = ?`, doc.DocID).Scan(&existing)
			if qerr == nil && existing == doc.Fingerprint {
				continue
			}
			if qerr != nil && qerr != sql.ErrNoRows {
				result.Errors++
				result.LastError = qerr
				continue
			}
		}
		if werr := writeDocRow(ctx, tx, doc); werr != nil {
			result.Errors++
			result.LastError = werr
			continue
		}
		if emb, ok := embeddings[doc.DocID]; ok {
			if werr := writeEmbeddingRow(ctx, tx, doc.DocID, emb, doc.EmbedModel, doc.EmbedVersion); werr != nil {
				result.Errors++
				result.LastError = werr
				continue
			}
		}
		if werr := rewriteEdges(ctx, tx, doc); werr != nil {
			result.Errors++
			result.LastError = werr
			continue
		}
		result.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit batch upsert: %w", err)
	}
	return result, nil
}

func writeDocRow(ctx context.Context, tx *sql.Tx, doc *schema.DocChunk) error {
	metaJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata for %s: %w", doc.DocID, err)
	}
	refsJSON, err := json.Marshal(doc.ReferencesOut)
	if err != nil {
		return fmt.Errorf("marshal references_out for %s: %w", doc.DocID, err)
	}
	typedRefsJSON, err := json.Marshal(doc.TypedReferencesOut)
	if err != nil {
		return fmt.Errorf("marshal typed_references_out for %s: %w", doc.DocID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO docs
		(doc_id, type, path, name, module, asset_type, text, metadata,
		 references_out, typed_references_out, fingerprint, schema_version,
		 embed_model, embed_version, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.DocID, string(doc.Type), doc.Path, doc.Name, doc.Module, doc.AssetType,
		doc.Text, string(metaJSON), string(refsJSON), string(typedRefsJSON),
		doc.Fingerprint, doc.SchemaVersion, nullIfEmpty(doc.EmbedModel), nullIfEmpty(doc.EmbedVersion),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert doc %s: %w", doc.DocID, err)
	}
	return nil
}

func writeEmbeddingRow(ctx context.Context, tx *sql.Tx, docID string, embedding []float32, model, version string) error {
	blob := encodeEmbedding(embedding)
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO docs_embeddings (doc_id, embedding, embed_model, embed_version)
		VALUES (?, ?, ?, ?)`, docID, blob, nullIfEmpty(model), nullIfEmpty(version))
	if err != nil {
		return fmt.Errorf("insert embedding %s: %w", docID, err)
	}
	return nil
}

// rewriteEdges deletes all outgoing edges for doc.DocID and inserts the
// current set, normalizing each target and applying the typed label if
// present, else "uses_asset" (spec §3.2, §4.3).
func rewriteEdges(ctx context.Context, tx *sql.Tx, doc *schema.DocChunk) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE from_id = ?`, doc.DocID); err != nil {
		return fmt.Errorf("delete edges for %s: %w", doc.DocID, err)
	}
	for _, ref := range doc.ReferencesOut {
		toID := refnorm.Normalize(ref)
		edgeType := doc.TypedReferencesOut[ref]
		if edgeType == "" {
			edgeType = "uses_asset"
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO edges (from_id, to_id, edge_type)
			VALUES (?, ?, ?)`, doc.DocID, toID, edgeType); err != nil {
			return fmt.Errorf("insert edge %s -> %s: %w", doc.DocID, toID, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// GetDoc fetches a document by ID, or (nil, nil) if not found.
func (s *Store) GetDoc(ctx context.Context, docID string) (*schema.DocChunk, error) {
	row := s.db.QueryRowContext(ctx, docSelectSQL+` WHERE doc_id = ?`, docID)
	doc, err := scanDoc(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get doc %s: %w", docID, err)
	}
	return doc, nil
}

// GetDocs fetches multiple documents by ID, skipping any not found.
func (s *Store) GetDocs(ctx context.Context, docIDs []string) ([]*schema.DocChunk, error) {
	if len(docIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]byte, 0, len(docIDs)*2)
	args := make([]any, len(docIDs))
	for i, id := range docIDs {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}
	query := docSelectSQL + ` WHERE doc_id IN (` + string(placeholders) + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get docs: %w", err)
	}
	defer rows.Close()

	var out []*schema.DocChunk
	for rows.Next() {
		doc, err := scanDocRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scan doc: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// GetDocsByPath fetches every doc chunk stored under path (an asset may
// carry several: an asset_summary plus one bp_graph_summary per
// function, for instance), asset_summary and umg_widget_tree first
// since callers generally want the asset's "primary" doc (search §4.7
// trace mode's target resolution).
func (s *Store) GetDocsByPath(ctx context.Context, path string) ([]*schema.DocChunk, error) {
	query := docSelectSQL + ` WHERE path = ? ORDER BY CASE type
		WHEN 'asset_summary' THEN 0
		WHEN 'umg_widget_tree' THEN 1
		ELSE 2
	END`
	rows, err := s.db.QueryContext(ctx, query, path)
	if err != nil {
		return nil, fmt.Errorf("get docs by path %s: %w", path, err)
	}
	defer rows.Close()

	var out []*schema.DocChunk
	for rows.Next() {
		doc, err := scanDocRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scan doc: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// SearchDocsByNamePrefix returns docs whose name falls in [prefix,
// prefix+￿), i.e. starts with prefix, ordered by name (spec §4.7
// "name" mode prefix search, e.g. a trailing-underscore query like
// "BP_").
func (s *Store) SearchDocsByNamePrefix(ctx context.Context, prefix string, limit int) ([]*schema.DocChunk, error) {
	query := docSelectSQL + ` WHERE name >= ? AND name < ? ORDER BY name LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, prefix, prefix+"￿", limit)
	if err != nil {
		return nil, fmt.Errorf("search docs by name prefix %q: %w", prefix, err)
	}
	defer rows.Close()

	var out []*schema.DocChunk
	for rows.Next() {
		doc, err := scanDocRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scan doc: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// DeleteDoc removes a document and, by foreign key cascade, its
// embedding. Edges pointing at it are left dangling (resolved on read,
// spec §3.1 Edge entity).
func (s *Store) DeleteDoc(ctx context.Context, docID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM docs WHERE doc_id = ?`, docID)
	if err != nil {
		return false, fmt.Errorf("delete doc %s: %w", docID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete doc %s rows affected: %w", docID, err)
	}
	return n > 0, nil
}
