package indexer

import (
	"context"
	"strings"

	"github.com/bradenleague/ueassetindex/refnorm"
)

// resolveParentEdge applies the six parent-class resolution rules for
// inherits_from edges (spec §4.5):
//  1. empty/Unknown/None -> no edge
//  2./6. a bare class name -> "class:<Name>" (an unqualified engine
//     class name and an unresolvable fallback produce the same shape)
//  3. a /Game/ or /<Plugin>/ path (after stripping package suffix and
//     _C) -> "asset:<path>"
//  4. /Script/Module.Class -> "class:<Class>"
//  5. a bare name resolved by lookup in docs/lightweight_assets ->
//     "asset:<found_path>"
func (idx *Indexer) resolveParentEdge(ctx context.Context, parent string) (string, bool) {
	parent = strings.TrimSpace(parent)
	if parent == "" || parent == "Unknown" || parent == "None" {
		return "", false
	}
	if strings.HasPrefix(parent, "/") || strings.HasPrefix(parent, "(") {
		return refnorm.Normalize(parent), true
	}
	if path, found := idx.store.ResolveAssetPathByName(ctx, parent); found {
		return "asset:" + path, true
	}
	return "class:" + parent, true
}
