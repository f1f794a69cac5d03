package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bradenleague/ueassetindex/schema"
)

const docSelectSQL = `
	SELECT doc_id, type, path, name, module, asset_type, text, metadata,
	       references_out, typed_references_out, fingerprint, schema_version,
	       embed_model, embed_version, indexed_at
	FROM docs`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDoc(r rowScanner) (*schema.DocChunk, error) {
	return scanDocRows(r)
}

func scanDocRows(r rowScanner) (*schema.DocChunk, error) {
	var (
		docID, typ, path, name                   string
		module, assetType, embedModel, embedVer  sql.NullString
		text, metaJSON, refsJSON, typedRefsJSON   string
		fingerprint                               string
		schemaVersion                             int
		indexedAt                                 string
	)
	if err := r.Scan(&docID, &typ, &path, &name, &module, &assetType, &text,
		&metaJSON, &refsJSON, &typedRefsJSON, &fingerprint, &schemaVersion,
		&embedModel, &embedVer, &indexedAt); err != nil {
		return nil, err
	}

	doc := &schema.DocChunk{
		DocID:         docID,
		Type:          schema.Type(typ),
		Path:          path,
		Name:          name,
		Module:        module.String,
		AssetType:     assetType.String,
		Text:          text,
		Fingerprint:   fingerprint,
		SchemaVersion: schemaVersion,
		EmbedModel:    embedModel.String,
		EmbedVersion:  embedVer.String,
	}
	if err := json.Unmarshal([]byte(metaJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata for %s: %w", docID, err)
	}
	if err := json.Unmarshal([]byte(refsJSON), &doc.ReferencesOut); err != nil {
		return nil, fmt.Errorf("unmarshal references_out for %s: %w", docID, err)
	}
	if typedRefsJSON != "" {
		if err := json.Unmarshal([]byte(typedRefsJSON), &doc.TypedReferencesOut); err != nil {
			return nil, fmt.Errorf("unmarshal typed_references_out for %s: %w", docID, err)
		}
	}
	if ts, err := time.Parse(time.RFC3339, indexedAt); err == nil {
		doc.IndexedAt = ts
	}
	return doc, nil
}
