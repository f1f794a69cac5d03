package indexer

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bradenleague/ueassetindex/parseradapter"
	"github.com/bradenleague/ueassetindex/schema"
)

// semanticPhase extracts full documents for every asset in
// idx.semanticTypes, grouping by type and preferring each type's batch
// command, falling back to single-asset commands for types without one
// (spec §4.5 Phase 5). Returns the docs produced plus telemetry.
func (idx *Indexer) semanticPhase(ctx context.Context, work []classifiedAsset, batchSize int) ([]*schema.DocChunk, int, int, int) {
	byType := map[string][]classifiedAsset{}
	for _, c := range work {
		byType[c.AssetType] = append(byType[c.AssetType], c)
	}

	var docs []*schema.DocChunk
	calls, errors := 0, 0

	for assetType, assets := range byType {
		switch {
		case assetType == "Blueprint":
			d, n := idx.extractBlueprints(ctx, assets, batchSize)
			docs = append(docs, d...)
			calls += n
		case assetType == "WidgetBlueprint":
			d, n := idx.extractWidgets(ctx, assets, batchSize)
			docs = append(docs, d...)
			calls += n
		case assetType == "Material" || assetType == "MaterialInstance" || assetType == "MaterialFunction":
			d, n := idx.extractMaterials(ctx, assets, batchSize, assetType)
			docs = append(docs, d...)
			calls += n
		case assetType == "DataTable":
			d, n := idx.extractDataTables(ctx, assets, batchSize)
			docs = append(docs, d...)
			calls += n
		case idx.gameFeatureTypes[assetType]:
			d, n, e := idx.extractGameFeatures(ctx, assets)
			docs = append(docs, d...)
			calls += n
			errors += e
		case assetType == "InputAction":
			d, n, e := idx.extractInputActions(ctx, assets)
			docs = append(docs, d...)
			calls += n
			errors += e
		case assetType == "InputMappingContext":
			d, n, e := idx.extractInputMappingContexts(ctx, assets)
			docs = append(docs, d...)
			calls += n
			errors += e
		case assetType == "DataAsset":
			d, n, e := idx.extractDataAssets(ctx, assets)
			docs = append(docs, d...)
			calls += n
			errors += e
		default:
			for _, c := range assets {
				docs = append(docs, schema.NewAssetSummary(schema.AssetSummaryInput{
					Path: c.GamePath, Name: assetNameFromPath(c.GamePath), AssetType: assetType,
				}))
			}
		}
	}

	writes := idx.writeDocs(ctx, docs)
	return docs, calls, writes, errors
}

func (idx *Indexer) writeDocs(ctx context.Context, docs []*schema.DocChunk) int {
	if len(docs) == 0 {
		return 0
	}
	result, err := idx.store.UpsertDocsBatch(ctx, docs, nil, false)
	if err != nil {
		idx.log.Warn("semantic doc batch write failed", "error", err)
		return 0
	}
	if result.Errors > 0 {
		idx.log.Warn("semantic doc batch had per-doc errors", "count", result.Errors, "last", result.LastError)
	}
	return result.Inserted
}

func gamePathsByAbs(assets []classifiedAsset) []discoveredAsset {
	out := make([]discoveredAsset, 0, len(assets))
	for _, c := range assets {
		out = append(out, discoveredAsset{AbsPath: c.AbsPath, GamePath: c.GamePath})
	}
	return out
}

// extractBlueprints handles Blueprint -> batch-blueprint, re-routing
// through the game-feature extractor when the Blueprint's parent
// matches a configured redirect (spec §4.5 Phase 5, §8 scenario S2).
// Per the redirect rule, only the redirected doc is emitted for a
// redirected Blueprint; its own function chunks are skipped.
func (idx *Indexer) extractBlueprints(ctx context.Context, assets []classifiedAsset, batchSize int) ([]*schema.DocChunk, int) {
	var docs []*schema.DocChunk
	calls := 0

	for _, batch := range chunkClassified(assets, batchSize) {
		calls++
		batchFile, cleanup, err := writeBatchFile(gamePathsByAbs(batch))
		if err != nil {
			continue
		}
		out, runErr := idx.adapter.RunBatch(ctx, "batch-blueprint", batchFile)
		cleanup()
		if runErr != nil {
			idx.log.Warn("batch-blueprint failed", "error", runErr)
			continue
		}
		recs, _ := parseradapter.DecodeNDJSON[parseradapter.BatchBlueprintRecord](out)
		byPath := map[string]parseradapter.BatchBlueprintRecord{}
		for _, r := range recs {
			byPath[r.Path] = r
		}

		for _, c := range batch {
			rec, ok := byPath[c.AbsPath]
			if !ok || rec.Error != "" {
				continue
			}

			if redirectType, redirected := idx.profile.BlueprintParentRedirects[rec.Parent]; redirected {
				redirectedC := c
				redirectedC.AssetType = redirectType
				calls++
				redirectedDoc, _ := idx.inspectGameFeature(ctx, redirectedC)
				docs = append(docs, redirectedDoc)
				continue
			}

			name := assetNameFromPath(c.GamePath)
			asset := schema.NewAssetSummary(schema.AssetSummaryInput{
				Path: c.GamePath, Name: name, AssetType: "Blueprint",
				ParentClass: rec.Parent, Events: rec.Events, Components: rec.Components,
				Variables: rec.Variables, Interfaces: rec.Interfaces,
				FunctionCount: len(rec.Functions),
			})
			if target, ok := idx.resolveParentEdge(ctx, rec.Parent); ok {
				asset.ReferencesOut = append(asset.ReferencesOut, target)
				asset.TypedReferencesOut[target] = "inherits_from"
			}
			docs = append(docs, asset)

			for _, fn := range rec.Functions {
				docs = append(docs, schema.NewBlueprintGraph(schema.BlueprintGraphInput{
					Path: c.GamePath, AssetName: name, FunctionName: fn.Name,
					Flags: fn.Flags, Calls: fn.Calls, IsEvent: strings.Contains(strings.Join(fn.Flags, ","), "Event"),
					ControlFlow: fn.ControlFlow,
				}))
			}
		}
	}
	return docs, calls
}

// inspectGameFeature runs `inspect` on a single asset and builds a
// game-feature doc, used both for the normal game-feature dispatch and
// for Blueprint-parent-redirect re-routing. ok is false when the
// subprocess call itself failed, in which case doc is a degraded
// AssetSummary fallback rather than a full extraction.
func (idx *Indexer) inspectGameFeature(ctx context.Context, c classifiedAsset) (doc *schema.DocChunk, ok bool) {
	fallback := func() *schema.DocChunk {
		return schema.NewAssetSummary(schema.AssetSummaryInput{Path: c.GamePath, Name: assetNameFromPath(c.GamePath), AssetType: c.AssetType})
	}
	if idx.adapter == nil {
		return fallback(), false
	}
	out, err := idx.adapter.RunRaw(ctx, "inspect", c.AbsPath)
	if err != nil {
		return fallback(), false
	}
	rec := decodeInspect(out)
	return buildGameFeatureChunk(c, rec), true
}

func (idx *Indexer) extractGameFeatures(ctx context.Context, assets []classifiedAsset) ([]*schema.DocChunk, int, int) {
	var docs []*schema.DocChunk
	calls, errors := 0, 0
	for _, c := range assets {
		calls++
		doc, ok := idx.inspectGameFeature(ctx, c)
		if !ok {
			errors++
		}
		docs = append(docs, doc)
	}
	return docs, calls, errors
}

func decodeInspect(body string) parseradapter.InspectRecord {
	var rec parseradapter.InspectRecord
	_ = json.Unmarshal([]byte(strings.TrimSpace(body)), &rec)
	return rec
}

// extractWidgets handles WidgetBlueprint -> batch-widget: an
// AssetSummary plus a umg_widget_tree doc (spec §4.5 Phase 5).
func (idx *Indexer) extractWidgets(ctx context.Context, assets []classifiedAsset, batchSize int) ([]*schema.DocChunk, int) {
	var docs []*schema.DocChunk
	calls := 0

	for _, batch := range chunkClassified(assets, batchSize) {
		calls++
		batchFile, cleanup, err := writeBatchFile(gamePathsByAbs(batch))
		if err != nil {
			continue
		}
		out, runErr := idx.adapter.RunBatch(ctx, "batch-widget", batchFile)
		cleanup()
		if runErr != nil {
			idx.log.Warn("batch-widget failed", "error", runErr)
			continue
		}
		recs, _ := parseradapter.DecodeNDJSON[parseradapter.BatchWidgetRecord](out)
		byPath := map[string]parseradapter.BatchWidgetRecord{}
		for _, r := range recs {
			byPath[r.Path] = r
		}

		for _, c := range batch {
			rec, ok := byPath[c.AbsPath]
			if !ok || rec.Error != "" {
				continue
			}
			name := assetNameFromPath(c.GamePath)
			asset := schema.NewAssetSummary(schema.AssetSummaryInput{
				Path: c.GamePath, Name: name, AssetType: "WidgetBlueprint",
				WidgetCount: rec.WidgetCount, ParentClass: rec.Parent, Events: rec.Events,
				Functions: rec.Functions, Variables: rec.Variables, Interfaces: rec.Interfaces,
			})
			if target, ok := idx.resolveParentEdge(ctx, rec.Parent); ok {
				asset.ReferencesOut = append(asset.ReferencesOut, target)
				asset.TypedReferencesOut[target] = "inherits_from"
			}
			docs = append(docs, asset)

			root := ""
			if len(rec.WidgetNames) > 0 {
				root = rec.WidgetNames[0]
			}
			docs = append(docs, schema.NewWidgetTree(schema.WidgetTreeInput{
				Path: c.GamePath, Name: name, RootWidget: root,
				WidgetNames: rec.WidgetNames, WidgetHierarchy: strings.Join(rec.Widgets, " > "),
			}))
		}
	}
	return docs, calls
}

// extractMaterials handles Material/MaterialInstance/MaterialFunction
// -> batch-material (spec §4.5 Phase 5).
func (idx *Indexer) extractMaterials(ctx context.Context, assets []classifiedAsset, batchSize int, assetType string) ([]*schema.DocChunk, int) {
	var docs []*schema.DocChunk
	calls := 0

	for _, batch := range chunkClassified(assets, batchSize) {
		calls++
		batchFile, cleanup, err := writeBatchFile(gamePathsByAbs(batch))
		if err != nil {
			continue
		}
		out, runErr := idx.adapter.RunBatch(ctx, "batch-material", batchFile)
		cleanup()
		if runErr != nil {
			idx.log.Warn("batch-material failed", "error", runErr)
			continue
		}
		recs, _ := parseradapter.DecodeNDJSON[parseradapter.BatchMaterialRecord](out)
		byPath := map[string]parseradapter.BatchMaterialRecord{}
		for _, r := range recs {
			byPath[r.Path] = r
		}

		for _, c := range batch {
			rec, ok := byPath[c.AbsPath]
			if !ok || rec.Error != "" {
				continue
			}
			name := assetNameFromPath(c.GamePath)
			doc := schema.NewMaterialParams(schema.MaterialParamsInput{
				Path: c.GamePath, Name: name, IsInstance: rec.IsInstance, Parent: rec.Parent,
				Domain: rec.Domain, BlendMode: rec.BlendMode, ShadingModel: rec.ShadingModel,
				ScalarParams: rec.ScalarParams, VectorParams: rec.VectorParams,
				TextureParams: rec.TextureParams, StaticSwitches: rec.StaticSwitches,
			})
			if assetType == "MaterialFunction" {
				doc.AssetType = "MaterialFunction"
				doc.DocID = "materialfunction:" + c.GamePath
			}
			if rec.Parent != "" {
				doc.TypedReferencesOut[rec.Parent] = "inherits_from"
			}
			docs = append(docs, doc)
		}
	}
	return docs, calls
}

// extractDataTables handles DataTable -> batch-datatable (spec §4.5 Phase 5).
func (idx *Indexer) extractDataTables(ctx context.Context, assets []classifiedAsset, batchSize int) ([]*schema.DocChunk, int) {
	var docs []*schema.DocChunk
	calls := 0

	for _, batch := range chunkClassified(assets, batchSize) {
		calls++
		batchFile, cleanup, err := writeBatchFile(gamePathsByAbs(batch))
		if err != nil {
			continue
		}
		out, runErr := idx.adapter.RunBatch(ctx, "batch-datatable", batchFile)
		cleanup()
		if runErr != nil {
			idx.log.Warn("batch-datatable failed", "error", runErr)
			continue
		}
		recs, _ := parseradapter.DecodeNDJSON[parseradapter.BatchDataTableRecord](out)
		byPath := map[string]parseradapter.BatchDataTableRecord{}
		for _, r := range recs {
			byPath[r.Path] = r
		}

		for _, c := range batch {
			rec, ok := byPath[c.AbsPath]
			if !ok || rec.Error != "" {
				continue
			}
			docs = append(docs, schema.NewDataTable(schema.DataTableInput{
				Path: c.GamePath, Name: assetNameFromPath(c.GamePath), RowStruct: rec.RowStruct,
				RowCount: rec.RowCount, Columns: rec.Columns, SampleKeys: rec.SampleKeys,
			}))
		}
	}
	return docs, calls
}

// extractInputActions handles InputAction -> inspect + references
// (spec §4.5 Phase 5): trigger/modifier class names and mapped actions.
func (idx *Indexer) extractInputActions(ctx context.Context, assets []classifiedAsset) ([]*schema.DocChunk, int, int) {
	var docs []*schema.DocChunk
	calls, errors := 0, 0
	for _, c := range assets {
		calls++
		var sentences []string
		var refs []string

		if idx.adapter != nil {
			if out, err := idx.adapter.RunRaw(ctx, "inspect", c.AbsPath); err == nil {
				rec := decodeInspect(out)
				if main := mainExport(rec.Exports); main != nil {
					if v, ok := findProp(main.Properties, "Triggers"); ok {
						var names []string
						for _, e := range asStringSlice(v) {
							if n := extractClassName(e); n != "" {
								names = append(names, n)
							}
						}
						if len(names) > 0 {
							sentences = append(sentences, "Triggers: "+strings.Join(names, ", "))
						}
					}
					if v, ok := findProp(main.Properties, "Modifiers"); ok {
						var names []string
						for _, e := range asStringSlice(v) {
							if n := extractClassName(e); n != "" {
								names = append(names, n)
							}
						}
						if len(names) > 0 {
							sentences = append(sentences, "Modifiers: "+strings.Join(names, ", "))
						}
					}
				}
			} else {
				errors++
			}
			if refOut, err := idx.adapter.RunRaw(ctx, "references", c.AbsPath); err == nil {
				analysis := parseradapter.ParseAssetAnalysis(refOut)
				refs = append(refs, analysis.AssetRefs...)
			}
		}

		docs = append(docs, schema.NewDataAssetExtraction(schema.DataAssetExtractionInput{
			Path: c.GamePath, Name: assetNameFromPath(c.GamePath), AssetType: "InputAction",
			Sentences: sentences, Metadata: map[string]any{}, ReferencesOut: dedupStrings(refs),
		}))
	}
	return docs, calls, errors
}

// extractInputMappingContexts handles InputMappingContext -> references
// (spec §4.5 Phase 5): collects mapped IA_* actions and trigger/modifier
// class names.
func (idx *Indexer) extractInputMappingContexts(ctx context.Context, assets []classifiedAsset) ([]*schema.DocChunk, int, int) {
	var docs []*schema.DocChunk
	calls, errors := 0, 0
	for _, c := range assets {
		calls++
		var refs []string
		if idx.adapter != nil {
			out, err := idx.adapter.RunRaw(ctx, "references", c.AbsPath)
			if err != nil {
				errors++
			} else {
				analysis := parseradapter.ParseAssetAnalysis(out)
				refs = append(refs, analysis.AssetRefs...)
			}
		}

		var iaNames []string
		for _, r := range refs {
			if strings.Contains(lastSegment(r), "IA_") {
				iaNames = append(iaNames, lastSegment(r))
			}
		}
		var sentences []string
		if len(iaNames) > 0 {
			sentences = append(sentences, "Mapped actions: "+strings.Join(iaNames, ", "))
		}

		typedRefs := map[string]string{}
		for _, r := range refs {
			typedRefs[r] = "maps_input"
		}

		docs = append(docs, schema.NewDataAssetExtraction(schema.DataAssetExtractionInput{
			Path: c.GamePath, Name: assetNameFromPath(c.GamePath), AssetType: "InputMappingContext",
			Sentences: sentences, Metadata: map[string]any{}, ReferencesOut: dedupStrings(refs),
			TypedReferencesOut: typedRefs,
		}))
	}
	return docs, calls, errors
}

// extractDataAssets handles DataAsset -> inspect, dispatching to the
// per-class extractor registry whitelisted by the profile (spec §4.5
// Phase 5, §9).
func (idx *Indexer) extractDataAssets(ctx context.Context, assets []classifiedAsset) ([]*schema.DocChunk, int, int) {
	var docs []*schema.DocChunk
	calls, errors := 0, 0
	for _, c := range assets {
		calls++
		if idx.adapter == nil {
			docs = append(docs, defaultDataAssetExtractor(c, c.AssetType, nil))
			continue
		}
		out, err := idx.adapter.RunRaw(ctx, "inspect", c.AbsPath)
		if err != nil {
			errors++
			docs = append(docs, defaultDataAssetExtractor(c, c.AssetType, nil))
			continue
		}
		rec := decodeInspect(out)
		export := mainExport(rec.Exports)
		if cdo := cdoExport(rec.Exports); cdo != nil {
			export = cdo
		}
		var props []parseradapter.InspectProperty
		if export != nil {
			props = export.Properties
		}

		extractor, whitelisted := idx.dataAssetExtractors[c.MainClass]
		if !whitelisted {
			docs = append(docs, defaultDataAssetExtractor(c, c.AssetType, props))
			continue
		}
		docs = append(docs, extractor(c, c.AssetType, props))
	}
	return docs, calls, errors
}
