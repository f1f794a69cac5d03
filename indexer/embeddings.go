package indexer

import (
	"context"

	"github.com/bradenleague/ueassetindex/schema"
)

// embedDocs computes an embedding for every doc's text and rewrites the
// doc rows carrying their embeddings in one batch (spec §4.5 Phase 7,
// optional). Per-doc embedding failures are tolerated: that doc is
// skipped and the rest of the batch still gets written (spec §7
// Parser-per-file-failure tolerance extends to embedding failures too).
func (idx *Indexer) embedDocs(ctx context.Context, docs []*schema.DocChunk) int {
	if idx.embed == nil || len(docs) == 0 {
		return 0
	}

	embeddings := make(map[string][]float32, len(docs))
	embedded := make([]*schema.DocChunk, 0, len(docs))
	model, version := idx.embed.Model(), idx.embed.Version()
	for _, doc := range docs {
		vec, err := idx.embed.Embed(ctx, doc.Text)
		if err != nil {
			idx.log.Warn("embedding failed", "doc_id", doc.DocID, "error", err)
			continue
		}
		doc.EmbedModel = model
		doc.EmbedVersion = version
		embeddings[doc.DocID] = vec
		embedded = append(embedded, doc)
	}
	if len(embeddings) == 0 {
		return 0
	}

	_, err := idx.store.UpsertDocsBatch(ctx, embedded, embeddings, true)
	if err != nil {
		idx.log.Warn("embedding batch write failed", "error", err)
		return 0
	}
	return len(embeddings)
}

// BackfillEmbeddings embeds each stored doc among docIDs that has no
// embedding, or one from a different model/version than the current
// embedder, used as a standalone maintenance pass outside a full Run
// (spec §4.5 Phase 7).
func (idx *Indexer) BackfillEmbeddings(ctx context.Context, docIDs []string) (int, error) {
	if idx.embed == nil {
		return 0, nil
	}
	docs, err := idx.store.GetDocs(ctx, docIDs)
	if err != nil {
		return 0, err
	}
	var missing []*schema.DocChunk
	for _, d := range docs {
		if d.EmbedModel == "" || d.EmbedModel != idx.embed.Model() || d.EmbedVersion != idx.embed.Version() {
			missing = append(missing, d)
		}
	}
	return idx.embedDocs(ctx, missing), nil
}
