// Package indexer implements the multi-phase batch pipeline that walks
// a project's Content folder(s), classifies each asset, and populates
// the Knowledge Store with lightweight rows or fully-extracted document
// chunks (spec §4.5).
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/bradenleague/ueassetindex/embedder"
	"github.com/bradenleague/ueassetindex/logx"
	"github.com/bradenleague/ueassetindex/parseradapter"
	"github.com/bradenleague/ueassetindex/profile"
	"github.com/bradenleague/ueassetindex/store"
)

// baseSemanticTypes always get full semantic extraction, regardless of
// profile (engine-level types: widgets, blueprints, materials, ...).
var baseSemanticTypes = map[string]bool{
	"WidgetBlueprint":     true,
	"Blueprint":           true,
	"Material":            true,
	"MaterialInstance":    true,
	"MaterialFunction":    true,
	"DataTable":           true,
	"DataAsset":           true,
	"GameFeatureData":     true,
	"InputAction":         true,
	"InputMappingContext": true,
}

// batchCommandByType maps a semantic asset type to its parser batch
// command, for types that have one.
var batchCommandByType = map[string]string{
	"Blueprint":         "batch-blueprint",
	"WidgetBlueprint":   "batch-widget",
	"Material":          "batch-material",
	"MaterialInstance":  "batch-material",
	"MaterialFunction":  "batch-material",
	"DataTable":         "batch-datatable",
}

// skipRefsTypes are standalone asset types whose references never help
// search (spec §4.5 Phase 4): stored lightweight with no refs.
var skipRefsTypes = map[string]bool{
	"Sound":        true,
	"Texture":      true,
	"StaticMesh":   true,
	"SkeletalMesh": true,
	"Animation":    true,
	"PhysicsAsset": true,
}

// PluginRoot is one plugin's mount point and Content folder.
type PluginRoot struct {
	MountPoint  string
	ContentPath string
}

// Options tunes a single Run (spec §4.5 Inputs).
type Options struct {
	Force           bool
	BatchSize       int
	Recursive       bool
	MaxAssets       int
	ExcludePatterns []string
	DryRun          bool
}

// Config wires an Indexer to its dependencies.
type Config struct {
	Store       *store.Store
	ContentPath string
	PluginRoots []PluginRoot
	Adapter     *parseradapter.Adapter
	Embedder    embedder.Embedder
	EmbedModel  string
	EmbedVer    string
	Profile     *profile.Profile
	Logger      *slog.Logger
}

// Indexer runs the phase pipeline against one project content tree.
type Indexer struct {
	store       *store.Store
	contentPath string
	pluginRoots []PluginRoot
	adapter     *parseradapter.Adapter
	embed       embedder.Embedder
	embedModel  string
	embedVer    string
	profile     *profile.Profile
	log         *slog.Logger

	semanticTypes        map[string]bool
	gameFeatureTypes      map[string]bool
	dataAssetExtractors   map[string]DataAssetExtractor
	deepRefExportClasses  map[string]bool
	deepRefCandidates     map[string]bool
}

// New builds an Indexer, deriving the semantic-type set and per-class
// extractor registry from cfg.Profile (spec §4.5, §9).
func New(cfg Config) *Indexer {
	p := cfg.Profile
	if p == nil {
		p = &profile.Profile{}
		p.SetDefaults()
	}
	log := cfg.Logger
	if log == nil {
		log = logx.New(logx.ParseLevel(""))
	}

	idx := &Indexer{
		store:       cfg.Store,
		contentPath: cfg.ContentPath,
		pluginRoots: cfg.PluginRoots,
		adapter:     cfg.Adapter,
		embed:       cfg.Embedder,
		embedModel:  cfg.EmbedModel,
		embedVer:    cfg.EmbedVer,
		profile:     p,
		log:         logx.Component(log, "indexer"),
	}
	idx.applyProfile(p)
	return idx
}

func (idx *Indexer) applyProfile(p *profile.Profile) {
	idx.semanticTypes = map[string]bool{}
	for t := range baseSemanticTypes {
		idx.semanticTypes[t] = true
	}
	for _, t := range p.SemanticTypes {
		idx.semanticTypes[t] = true
	}

	idx.gameFeatureTypes = map[string]bool{"GameFeatureData": true}
	for _, t := range p.GameFeatureTypes {
		idx.gameFeatureTypes[t] = true
	}

	idx.deepRefExportClasses = map[string]bool{
		"GameFeatureData":               true,
		"DataRegistrySource_DataTable":  true,
		"DataRegistry":                  true,
	}
	for _, c := range p.DeepRefExportClasses {
		idx.deepRefExportClasses[c] = true
	}
	idx.deepRefCandidates = map[string]bool{}
	for _, c := range p.DeepRefCandidates {
		idx.deepRefCandidates[c] = true
	}

	idx.dataAssetExtractors = map[string]DataAssetExtractor{}
	for _, className := range p.DataAssetExtractors {
		if fn, ok := extractorRegistry[className]; ok {
			idx.dataAssetExtractors[className] = fn
		}
	}
}

// Counters mirrors the telemetry every run returns (spec §4.5 Exit
// status and counters).
type Counters struct {
	TotalFound       int
	Unchanged        int
	LightweightIndexed int
	SemanticIndexed  int
	Errors           int
	ByType           map[string]int
}

// PhaseTiming records one phase's duration and item/subprocess/write counts.
type PhaseTiming struct {
	Phase          string
	Duration       time.Duration
	Items          int
	SubprocessCalls int
	DBWrites       int
}

// Result is what Run returns.
type Result struct {
	Counters Counters
	Timings  []PhaseTiming
}

func newCounters() Counters {
	return Counters{ByType: map[string]int{}}
}

// Run executes the full phase pipeline (spec §4.5). Dry-run stops after
// Phase 3 with no writes.
func (idx *Indexer) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = parseradapter.BatchSize()
	}
	if opts.BatchSize > 2000 {
		opts.BatchSize = 2000
	}

	result := &Result{Counters: newCounters()}
	track := func(phase string, start time.Time, items, calls, writes int) {
		result.Timings = append(result.Timings, PhaseTiming{
			Phase: phase, Duration: time.Since(start),
			Items: items, SubprocessCalls: calls, DBWrites: writes,
		})
	}

	// Phase 0 — discovery.
	t0 := time.Now()
	discovered, err := idx.discover(opts)
	if err != nil {
		return result, fmt.Errorf("indexer: discovery: %w", err)
	}
	result.Counters.TotalFound = len(discovered)
	track("discovery", t0, len(discovered), 0, 0)
	if len(discovered) == 0 {
		return result, nil
	}

	// Phase 1 — change detection.
	t1 := time.Now()
	working, unchanged, err := idx.changeDetect(ctx, discovered, opts.Force)
	if err != nil {
		return result, fmt.Errorf("indexer: change detection: %w", err)
	}
	result.Counters.Unchanged = unchanged
	track("change_detection", t1, len(working), 0, 0)
	if len(working) == 0 {
		return result, nil
	}

	// Phase 2 — fast classify.
	t2 := time.Now()
	classified, classifyCalls, err := idx.fastClassify(ctx, working, opts.BatchSize)
	if err != nil {
		return result, fmt.Errorf("indexer: fast classify: %w", err)
	}
	track("fast_classify", t2, len(classified), classifyCalls, 0)

	// Phase 3 — reclassify Unknown.
	t3 := time.Now()
	reclassifyCalls := idx.reclassifyUnknown(ctx, classified, opts.BatchSize)
	track("reclassify", t3, len(classified), reclassifyCalls, 0)

	for _, c := range classified {
		result.Counters.ByType[c.AssetType]++
	}

	if opts.DryRun {
		return result, nil
	}

	// Phase 4 + 4b — lightweight + deep refs.
	t4 := time.Now()
	semanticWork, lwCount, lwCalls, lwWrites, err := idx.lightweightPhase(ctx, classified, opts.BatchSize)
	if err != nil {
		return result, fmt.Errorf("indexer: lightweight phase: %w", err)
	}
	result.Counters.LightweightIndexed += lwCount
	track("lightweight", t4, len(classified), lwCalls, lwWrites)

	// Phase 5 — semantic extraction.
	t5 := time.Now()
	docs, semCalls, semWrites, semErrors := idx.semanticPhase(ctx, semanticWork, opts.BatchSize)
	result.Counters.SemanticIndexed += len(docs)
	result.Counters.Errors += semErrors
	track("semantic", t5, len(semanticWork), semCalls, semWrites)

	// Phase 6 — file metadata.
	t6 := time.Now()
	writes := idx.writeFileMeta(ctx, classified)
	track("file_meta", t6, len(classified), 0, writes)

	// Phase 7 — embeddings.
	if idx.embed != nil {
		t7 := time.Now()
		n := idx.embedDocs(ctx, docs)
		track("embeddings", t7, len(docs), 0, n)
	}

	return result, nil
}

// discoveredAsset is one *.uasset file found during Phase 0.
type discoveredAsset struct {
	AbsPath  string
	GamePath string
}

// discover walks the content root and each plugin content root for
// *.uasset files (spec §4.5 Phase 0).
func (idx *Indexer) discover(opts Options) ([]discoveredAsset, error) {
	var found []discoveredAsset

	roots := []struct {
		mount string
		fs    string
	}{{"Game", idx.contentPath}}
	for _, p := range idx.pluginRoots {
		roots = append(roots, struct {
			mount string
			fs    string
		}{p.MountPoint, p.ContentPath})
	}

	for _, r := range roots {
		assets, err := walkUAssets(r.fs, opts.Recursive, opts.ExcludePatterns)
		if err != nil {
			continue // a missing/unreadable content root is not fatal
		}
		for _, abs := range assets {
			found = append(found, discoveredAsset{
				AbsPath:  abs,
				GamePath: fsToGamePath(r.fs, r.mount, abs),
			})
		}
	}

	if opts.MaxAssets > 0 && len(found) > opts.MaxAssets {
		sort.Slice(found, func(i, j int) bool { return found[i].GamePath < found[j].GamePath })
		found = found[:opts.MaxAssets]
	}
	return found, nil
}

// fsToGamePath converts an absolute .uasset path under contentFS back
// into a "/Game/..." or "/<Mount>/..." engine path.
func fsToGamePath(contentFS, mount, absPath string) string {
	rel, err := filepath.Rel(contentFS, absPath)
	if err != nil {
		return absPath
	}
	rel = filepath.ToSlash(rel)
	rel = rel[:len(rel)-len(filepath.Ext(rel))]
	return "/" + mount + "/" + rel
}
