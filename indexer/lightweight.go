package indexer

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/bradenleague/ueassetindex/parseradapter"
	"github.com/bradenleague/ueassetindex/store"
)

// gamePathRE matches a /Game/... or /<Plugin>/... reference embedded in
// arbitrary JSON text, used by the deep-ref fallback (spec §4.5 Phase 4b).
var gamePathRE = regexp.MustCompile(`/[A-Za-z_][A-Za-z0-9_]*(?:/[A-Za-z0-9_.]+)+`)

// lightweightPhase runs Phase 4 (lightweight indexing, with batch-refs
// re-routing finer types to Phase 5) and Phase 4b (deep refs), and
// returns the asset set that still needs semantic extraction.
func (idx *Indexer) lightweightPhase(ctx context.Context, classified []classifiedAsset, batchSize int) ([]classifiedAsset, int, int, int, error) {
	var semanticWork, skipRefs, needsRefs []classifiedAsset
	for _, c := range classified {
		if idx.semanticTypes[c.AssetType] {
			semanticWork = append(semanticWork, c)
			continue
		}
		if skipRefsTypes[c.AssetType] {
			skipRefs = append(skipRefs, c)
			continue
		}
		needsRefs = append(needsRefs, c)
	}

	calls, writes := 0, 0

	// Skip-refs set: stored directly with no reference extraction.
	if len(skipRefs) > 0 {
		batch := make([]store.LightweightAsset, 0, len(skipRefs))
		for _, c := range skipRefs {
			batch = append(batch, store.LightweightAsset{
				Path: c.GamePath, Name: assetNameFromPath(c.GamePath), AssetType: c.AssetType,
			})
		}
		n, err := idx.store.UpsertLightweightBatch(ctx, batch)
		if err != nil {
			return nil, 0, calls, writes, err
		}
		writes += n
	}

	// needs-refs: batch-process via batch-refs, honoring a finer
	// re-classification if the parser returns one.
	lwCount := len(skipRefs)
	for _, batch := range chunkClassified(needsRefs, batchSize) {
		calls++
		recs := idx.runBatchRefs(ctx, batch)
		byPath := map[string]parseradapter.BatchRefsRecord{}
		for _, r := range recs {
			byPath[r.Path] = r
		}

		var toStore []store.LightweightAsset
		for _, c := range batch {
			rec, ok := byPath[c.AbsPath]
			finerType := c.AssetType
			var refs []string
			if ok {
				if rec.Error != "" {
					continue
				}
				if rec.AssetType != "" {
					finerType = rec.AssetType
				}
				refs = rec.Refs
			}
			if idx.semanticTypes[finerType] {
				c.AssetType = finerType
				semanticWork = append(semanticWork, c)
				continue
			}
			toStore = append(toStore, store.LightweightAsset{
				Path: c.GamePath, Name: assetNameFromPath(c.GamePath), AssetType: finerType, References: refs,
			})
		}
		if len(toStore) > 0 {
			n, err := idx.store.UpsertLightweightBatch(ctx, toStore)
			if err != nil {
				return nil, 0, calls, writes, err
			}
			writes += n
			lwCount += len(toStore)
		}
	}

	// Phase 4b — deep refs for Unknown/DataAsset candidates.
	deepCalls, deepWrites := idx.deepRefExtraction(ctx, classified)
	calls += deepCalls
	writes += deepWrites

	return semanticWork, lwCount, calls, writes, nil
}

func (idx *Indexer) runBatchRefs(ctx context.Context, batch []classifiedAsset) []parseradapter.BatchRefsRecord {
	if idx.adapter == nil {
		return nil
	}
	assets := make([]discoveredAsset, 0, len(batch))
	for _, c := range batch {
		assets = append(assets, discoveredAsset{AbsPath: c.AbsPath, GamePath: c.GamePath})
	}
	batchFile, cleanup, err := writeBatchFile(assets)
	if err != nil {
		return nil
	}
	defer cleanup()

	out, err := idx.adapter.RunBatch(ctx, "batch-refs", batchFile)
	if err != nil {
		idx.log.Warn("batch-refs failed", "error", err)
		return nil
	}
	recs, _ := parseradapter.DecodeNDJSON[parseradapter.BatchRefsRecord](out)
	return recs
}

// deepRefExtraction runs single-file `inspect` for Unknown/DataAsset
// assets that match a high-value export class or name/candidate list,
// regex-extracting /Game/ and plugin paths from the raw JSON (spec
// §4.5 Phase 4b). Calls run with bounded parallelism.
func (idx *Indexer) deepRefExtraction(ctx context.Context, classified []classifiedAsset) (int, int) {
	var candidates []classifiedAsset
	for _, c := range classified {
		if c.AssetType != "Unknown" && c.AssetType != "DataAsset" {
			continue
		}
		if idx.isDeepRefCandidate(c) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 || idx.adapter == nil {
		return 0, 0
	}

	maxPar := parseradapter.MaxParallelism()
	if maxPar <= 0 {
		maxPar = 4
	}
	sem := semaphore.NewWeighted(int64(maxPar))
	var mu sync.Mutex
	var calls int
	var toStore []store.LightweightAsset

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range candidates {
		c := c
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			out, err := idx.adapter.RunRaw(gctx, "inspect", c.AbsPath)
			mu.Lock()
			calls++
			mu.Unlock()
			if err != nil {
				return nil
			}
			refs := extractGamePathsFromJSON(out, c.GamePath)
			if len(refs) == 0 {
				return nil
			}
			mu.Lock()
			toStore = append(toStore, store.LightweightAsset{
				Path: c.GamePath, Name: assetNameFromPath(c.GamePath), AssetType: c.AssetType, References: refs,
			})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(toStore) == 0 {
		return calls, 0
	}
	n, err := idx.store.UpsertLightweightBatch(ctx, toStore)
	if err != nil {
		idx.log.Warn("deep-ref lightweight write failed", "error", err)
		return calls, 0
	}
	return calls, n
}

// isDeepRefCandidate reports whether c is worth a deep inspect: its main
// class or any of its export classes is a deep-ref export class, or its
// asset name is an exact entry of the candidate list. Name prefixes are
// not consulted.
func (idx *Indexer) isDeepRefCandidate(c classifiedAsset) bool {
	if idx.deepRefExportClasses[c.MainClass] {
		return true
	}
	name := assetNameFromPath(c.GamePath)
	if idx.deepRefCandidates[name] {
		return true
	}
	for _, ec := range c.ExportClasses {
		if idx.deepRefExportClasses[ec] {
			return true
		}
	}
	return false
}

// extractGamePathsFromJSON finds all /Game/ and /<Plugin>/ paths in a
// raw inspect JSON body, deduplicated, excluding ownPath and any
// /Script/ reference (spec §4.5 Phase 4b). Tolerates malformed JSON by
// still regex-scanning the raw text.
func extractGamePathsFromJSON(body, ownPath string) []string {
	var generic any
	_ = json.Unmarshal([]byte(body), &generic)

	seen := map[string]bool{ownPath: true}
	var out []string
	for _, m := range gamePathRE.FindAllString(body, -1) {
		if strings.HasPrefix(m, "/Script/") || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func chunkClassified(assets []classifiedAsset, size int) [][]classifiedAsset {
	if size <= 0 {
		size = 500
	}
	var out [][]classifiedAsset
	for i := 0; i < len(assets); i += size {
		end := i + size
		if end > len(assets) {
			end = len(assets)
		}
		out = append(out, assets[i:end])
	}
	return out
}
