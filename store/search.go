package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/bradenleague/ueassetindex/schema"
)

// SearchFilters narrows SearchFTS/SearchVector results (spec §4.3).
type SearchFilters struct {
	Type       string
	PathPrefix string
	Module     string
	AssetType  string
}

// SearchResult pairs a document with its ranking score.
type SearchResult struct {
	DocID string
	Score float64
	Doc   *schema.DocChunk
}

func (f SearchFilters) applySQL(sql string, args []any) (string, []any) {
	if f.Type != "" {
		sql += " AND docs.type = ?"
		args = append(args, f.Type)
	}
	if f.PathPrefix != "" {
		sql += " AND docs.path LIKE ?"
		args = append(args, f.PathPrefix+"%")
	}
	if f.Module != "" {
		sql += " AND docs.module = ?"
		args = append(args, f.Module)
	}
	if f.AssetType != "" {
		sql += " AND docs.asset_type = ?"
		args = append(args, f.AssetType)
	}
	return sql, args
}

// SearchFTS runs a full-text query via FTS5, BM25-ordered best-first
// (lower raw bm25() is better; the returned Score is negated so higher
// is better, matching the rest of the ranking pipeline). A malformed
// FTS5 query returns an empty result set rather than an error (spec §7
// Query-syntax-error).
func (s *Store) SearchFTS(ctx context.Context, query string, filters SearchFilters, limit, offset int) ([]SearchResult, error) {
	sqlQuery := `
		SELECT ` + docColumnsAliased + `, bm25(docs_fts) as score
		FROM docs_fts
		JOIN docs ON docs_fts.doc_id = docs.doc_id
		WHERE docs_fts MATCH ?`
	args := []any{query}
	sqlQuery, args = filters.applySQL(sqlQuery, args)
	sqlQuery += " ORDER BY score LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		// FTS5 syntax errors surface as SQLITE_ERROR; degrade to "no hits"
		// rather than failing the whole search (spec §7).
		return nil, nil
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		doc, bm25Score, err := scanDocWithScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fts row: %w", err)
		}
		out = append(out, SearchResult{DocID: doc.DocID, Score: -bm25Score, Doc: doc})
	}
	return out, rows.Err()
}

const docColumnsAliased = `docs.doc_id, docs.type, docs.path, docs.name, docs.module,
	docs.asset_type, docs.text, docs.metadata, docs.references_out,
	docs.typed_references_out, docs.fingerprint, docs.schema_version,
	docs.embed_model, docs.embed_version, docs.indexed_at`

func scanDocWithScore(rows *sql.Rows) (*schema.DocChunk, float64, error) {
	var score float64
	doc, err := scanDocRowsWithExtra(rows, &score)
	return doc, score, err
}

// scanDocRowsWithExtra scans the doc columns followed by one extra
// float64 destination (the bm25 score column).
func scanDocRowsWithExtra(rows *sql.Rows, extra *float64) (*schema.DocChunk, error) {
	adapter := &scoreRowAdapter{rows: rows, extra: extra}
	return scanDoc(adapter)
}

// scoreRowAdapter lets scanDoc's fixed 15-arg Scan call also capture a
// trailing score column without duplicating the scan logic.
type scoreRowAdapter struct {
	rows  *sql.Rows
	extra *float64
}

func (a *scoreRowAdapter) Scan(dest ...any) error {
	return a.rows.Scan(append(dest, a.extra)...)
}

// SearchVector runs an in-process cosine-similarity search over every
// row in docs_embeddings matching filters. There is no vector index;
// this is a linear scan, acceptable at project-index scale (spec §4.3,
// "storage engine is implementation choice"). Returns empty if the
// embeddings table has no rows (index built without embeddings, or the
// query itself isn't embedded).
func (s *Store) SearchVector(ctx context.Context, queryEmbedding []float32, filters SearchFilters, limit int, minScore float64) ([]SearchResult, error) {
	sqlQuery := `
		SELECT ` + docColumnsAliased + `, docs_embeddings.embedding
		FROM docs_embeddings
		JOIN docs ON docs_embeddings.doc_id = docs.doc_id
		WHERE 1=1`
	var args []any
	sqlQuery, args = filters.applySQL(sqlQuery, args)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search_vector query: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var blob []byte
		adapter := &blobRowAdapter{rows: rows, blob: &blob}
		doc, err := scanDoc(adapter)
		if err != nil {
			return nil, fmt.Errorf("scan vector row: %w", err)
		}
		sim := cosineSimilarity(queryEmbedding, decodeEmbedding(blob))
		if sim >= minScore {
			out = append(out, SearchResult{DocID: doc.DocID, Score: sim, Doc: doc})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortResultsDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type blobRowAdapter struct {
	rows *sql.Rows
	blob *[]byte
}

func (a *blobRowAdapter) Scan(dest ...any) error {
	return a.rows.Scan(append(dest, a.blob)...)
}

func sortResultsDesc(results []SearchResult) {
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
}
