package indexer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bradenleague/ueassetindex/parseradapter"
	"github.com/bradenleague/ueassetindex/store"
)

// classifiedAsset is a discovered asset after fast classification (and,
// where applicable, reclassification).
type classifiedAsset struct {
	AbsPath       string
	GamePath      string
	AssetType     string
	MainClass     string
	Size          int64
	MTime         float64
	ExportClasses []string
}

const ofpaMarker1, ofpaMarker2 = "__ExternalActors__", "__ExternalObjects__"

func isOFPAPath(path string) bool {
	return strings.Contains(path, ofpaMarker1) || strings.Contains(path, ofpaMarker2)
}

// changeDetect compares discovered files against file_meta and returns
// the working set of new/changed files plus the count of unchanged
// ones (spec §4.5 Phase 1).
func (idx *Indexer) changeDetect(ctx context.Context, discovered []discoveredAsset, force bool) ([]discoveredAsset, int, error) {
	if force {
		return discovered, 0, nil
	}

	var working []discoveredAsset
	unchanged := 0
	for _, a := range discovered {
		info, err := os.Stat(a.AbsPath)
		if err != nil {
			working = append(working, a)
			continue
		}
		mtime := float64(info.ModTime().UnixNano()) / 1e9
		size := info.Size()

		known, err := idx.store.GetFileMeta(ctx, a.AbsPath)
		if err != nil {
			return nil, 0, fmt.Errorf("file_meta lookup %s: %w", a.AbsPath, err)
		}
		if known != nil && known.MTime == mtime && known.Size == size {
			unchanged++
			continue
		}
		working = append(working, a)
	}
	return working, unchanged, nil
}

// fastClassify batches the working set through batch-fast (header-only
// parse) and returns each asset tagged with its classified type (spec
// §4.5 Phase 2).
func (idx *Indexer) fastClassify(ctx context.Context, working []discoveredAsset, batchSize int) ([]classifiedAsset, int, error) {
	out := make([]classifiedAsset, 0, len(working))
	calls := 0

	for _, batch := range chunkDiscovered(working, batchSize) {
		calls++
		recs := idx.runBatchSummaries(ctx, "batch-fast", batch)
		byPath := map[string]parseradapter.SummaryRecord{}
		for _, r := range recs {
			byPath[r.Path] = r
		}
		for _, a := range batch {
			rec, ok := byPath[a.AbsPath]
			ca := classifiedAsset{AbsPath: a.AbsPath, GamePath: a.GamePath, AssetType: "Unknown"}
			if ok {
				ca.AssetType = orDefault(rec.AssetType, "Unknown")
				ca.MainClass = rec.MainClass
				ca.Size = rec.Size
				ca.ExportClasses = rec.ExportClasses
			}
			if info, err := os.Stat(a.AbsPath); err == nil {
				ca.MTime = float64(info.ModTime().UnixNano()) / 1e9
				if ca.Size == 0 {
					ca.Size = info.Size()
				}
			}
			out = append(out, ca)
		}
	}
	return out, calls, nil
}

// reclassifyUnknown promotes Unknown assets that match a heuristic by
// running batch-summary (a full load) and applying the profile's
// reclassification rules (spec §4.5 Phase 3). Returns the number of
// subprocess calls made.
func (idx *Indexer) reclassifyUnknown(ctx context.Context, classified []classifiedAsset, batchSize int) int {
	var candidates []discoveredAsset
	idxByPath := map[string]int{}
	for i, c := range classified {
		if c.AssetType != "Unknown" {
			continue
		}
		if !idx.isReclassifyCandidate(c) {
			continue
		}
		candidates = append(candidates, discoveredAsset{AbsPath: c.AbsPath, GamePath: c.GamePath})
		idxByPath[c.AbsPath] = i
	}
	if len(candidates) == 0 {
		return 0
	}

	calls := 0
	for _, batch := range chunkDiscovered(candidates, batchSize) {
		calls++
		recs := idx.runBatchSummaries(ctx, "batch-summary", batch)
		for _, rec := range recs {
			i, ok := idxByPath[rec.Path]
			if !ok {
				continue
			}
			c := &classified[i]
			c.MainClass = rec.MainClass
			if newType := idx.reclassify(c.MainClass, assetNameFromPath(c.GamePath), c.GamePath); newType != "" {
				c.AssetType = newType
			}
		}
	}
	return calls
}

// isReclassifyCandidate applies the three Phase-3 heuristics: a name
// prefix known to the profile, a plugin-root non-OFPA path, or a small
// file outside OFPA folders (spec §4.5 Phase 3).
func (idx *Indexer) isReclassifyCandidate(c classifiedAsset) bool {
	name := assetNameFromPath(c.GamePath)
	for prefix := range idx.profile.NamePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	if !strings.HasPrefix(c.GamePath, "/Game/") && !isOFPAPath(c.GamePath) {
		return true
	}
	if c.Size > 0 && c.Size < 2_000_000 && !isOFPAPath(c.GamePath) {
		return true
	}
	return false
}

// reclassify applies the export-class-reclassify and
// GameFeatureAction_* heuristics (spec §4.5 Phase 3).
func (idx *Indexer) reclassify(mainClass, assetName, gamePath string) string {
	if newType, ok := idx.profile.ExportClassReclassify[mainClass]; ok && newType != "" {
		return newType
	}
	if strings.HasPrefix(mainClass, "GameFeatureAction_") {
		for prefix, rtype := range idx.profile.NamePrefixes {
			if strings.HasPrefix(assetName, prefix) {
				return rtype
			}
		}
		if pluginName, ok := pluginNameOfPath(gamePath); ok && assetName == pluginName {
			return "GameFeatureData"
		}
	}
	return ""
}

// pluginNameOfPath returns the plugin mount-point segment of a
// "/<Plugin>/..." path, when it is not the engine "/Game/" mount.
func pluginNameOfPath(gamePath string) (string, bool) {
	parts := strings.Split(gamePath, "/")
	if len(parts) < 2 || parts[1] == "" || parts[1] == "Game" {
		return "", false
	}
	return parts[1], true
}

func assetNameFromPath(gamePath string) string {
	parts := strings.Split(gamePath, "/")
	return parts[len(parts)-1]
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// runBatchSummaries writes a temp batch file, invokes the parser, and
// decodes the NDJSON summary response. Subprocess or decode failures
// degrade to an empty result set (spec §7 Parser-per-file-failure).
func (idx *Indexer) runBatchSummaries(ctx context.Context, cmd string, batch []discoveredAsset) []parseradapter.SummaryRecord {
	if idx.adapter == nil {
		return nil
	}
	batchFile, cleanup, err := writeBatchFile(batch)
	if err != nil {
		idx.log.Warn("write batch file failed", "error", err)
		return nil
	}
	defer cleanup()

	out, err := idx.adapter.RunBatch(ctx, cmd, batchFile)
	if err != nil {
		idx.log.Warn("batch command failed", "cmd", cmd, "error", err)
		return nil
	}
	recs, skipped := parseradapter.DecodeNDJSON[parseradapter.SummaryRecord](out)
	if skipped > 0 {
		idx.log.Debug("batch response had malformed lines", "cmd", cmd, "skipped", skipped)
	}
	return recs
}

// chunkDiscovered splits assets into batches of at most size.
func chunkDiscovered(assets []discoveredAsset, size int) [][]discoveredAsset {
	if size <= 0 {
		size = 500
	}
	var out [][]discoveredAsset
	for i := 0; i < len(assets); i += size {
		end := i + size
		if end > len(assets) {
			end = len(assets)
		}
		out = append(out, assets[i:end])
	}
	return out
}

// writeFileMeta persists (abs_path, mtime, size, asset_type) for every
// classified asset so future runs can skip them unchanged (spec §4.5
// Phase 6).
func (idx *Indexer) writeFileMeta(ctx context.Context, classified []classifiedAsset) int {
	metas := make([]store.FileMeta, 0, len(classified))
	for _, c := range classified {
		metas = append(metas, store.FileMeta{
			AbsPath: c.AbsPath, MTime: c.MTime, Size: c.Size, AssetType: c.AssetType,
		})
	}
	if err := idx.store.UpsertFileMetaBatch(ctx, metas); err != nil {
		idx.log.Warn("file_meta batch write failed", "error", err)
		return 0
	}
	return len(metas)
}
