package indexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bradenleague/ueassetindex/parseradapter"
	"github.com/bradenleague/ueassetindex/schema"
)

// DataAssetExtractor builds a doc chunk for one registered DataAsset
// subclass from its inspect properties (spec §4.5 Phase 5, §9 design
// note). assetType is the asset's classified type (usually equal to
// the registry key, but may differ after reclassification).
type DataAssetExtractor func(c classifiedAsset, assetType string, props []parseradapter.InspectProperty) *schema.DocChunk

// extractorRegistry maps a registered export class name to its
// handler, mirroring the @data_asset_extractor decorator registry.
// A profile's data_asset_extractors list whitelists which of these
// are actually wired into a given Indexer (spec §9).
var extractorRegistry = map[string]DataAssetExtractor{
	"GameplayEffect":  extractGameplayEffect,
	"LyraAbilitySet":  extractAbilitySet,
	"LyraPawnData":    extractPawnData,
	"LyraInputConfig": extractInputConfig,
}

// defaultDataAssetExtractor handles any DataAsset whose class has no
// registered per-class extractor: reports property names and up to 10
// collected refs (spec §4.5 Phase 5 DataAsset fallback).
func defaultDataAssetExtractor(c classifiedAsset, assetType string, props []parseradapter.InspectProperty) *schema.DocChunk {
	names := make([]string, 0, len(props))
	var refs []string
	for _, p := range props {
		names = append(names, p.Name)
		refs = append(refs, collectRefsFromValue(p.Value)...)
	}
	refs = dedupStrings(refs)
	if len(refs) > 10 {
		refs = refs[:10]
	}

	var sentences []string
	if len(names) > 0 {
		sentences = append(sentences, "Properties: "+strings.Join(firstNStrings(names, 15), ", "))
	}
	if len(refs) > 0 {
		sentences = append(sentences, "References: "+joinLastSegments(refs))
	}

	return schema.NewDataAssetExtraction(schema.DataAssetExtractionInput{
		Path:          c.GamePath,
		Name:          assetNameFromPath(c.GamePath),
		AssetType:     assetType,
		Sentences:     sentences,
		Metadata:      map[string]any{"properties": names},
		ReferencesOut: refs,
	})
}

func firstNStrings(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// extractGameplayEffect extracts DurationPolicy and Modifiers (spec
// §8 scenario S1: asset_type "GameplayEffect", metadata
// duration_policy/modifiers, text mentioning both).
func extractGameplayEffect(c classifiedAsset, assetType string, props []parseradapter.InspectProperty) *schema.DocChunk {
	durationPolicy := ""
	if v, ok := findProp(props, "DurationPolicy"); ok {
		durationPolicy = extractClassName(asString(v))
		if durationPolicy == "" {
			durationPolicy = asString(v)
		}
		if i := strings.LastIndex(durationPolicy, "::"); i >= 0 {
			durationPolicy = durationPolicy[i+2:]
		}
	}

	type modifier struct {
		Attribute string `json:"attribute"`
		Op        string `json:"op"`
		Magnitude string `json:"magnitude"`
	}
	var modifiers []modifier
	var refs []string
	if v, ok := findProp(props, "Modifiers"); ok {
		for _, entry := range asMapSlice(v) {
			m := modifier{
				Attribute: extractClassName(asString(entry["Attribute"])),
				Op:        asString(entry["ModifierOp"]),
			}
			if mag, ok := entry["ModifierMagnitude"]; ok {
				m.Magnitude = asString(mag)
			}
			modifiers = append(modifiers, m)
			if ref := extractPathFromRef(asString(entry["Attribute"])); ref != "" {
				refs = append(refs, ref)
			}
		}
	}

	var sentences []string
	if durationPolicy != "" {
		sentences = append(sentences, "Duration policy: "+durationPolicy)
	}
	if len(modifiers) > 0 {
		var descs []string
		for _, m := range modifiers {
			descs = append(descs, fmt.Sprintf("%s %s %s", m.Attribute, m.Op, m.Magnitude))
		}
		sentences = append(sentences, "Modifiers: "+strings.Join(descs, ", "))
	}

	metadataModifiers := make([]map[string]any, 0, len(modifiers))
	for _, m := range modifiers {
		metadataModifiers = append(metadataModifiers, map[string]any{
			"attribute": m.Attribute, "op": m.Op, "magnitude": m.Magnitude,
		})
	}

	return schema.NewDataAssetExtraction(schema.DataAssetExtractionInput{
		Path:      c.GamePath,
		Name:      assetNameFromPath(c.GamePath),
		AssetType: assetType,
		Sentences: sentences,
		Metadata: map[string]any{
			"duration_policy": durationPolicy,
			"modifiers":       metadataModifiers,
		},
		ReferencesOut: dedupStrings(refs),
	})
}

// extractAbilitySet extracts GrantedGameplayAbilities/Effects/Attributes
// (Lyra-style LyraAbilitySet).
func extractAbilitySet(c classifiedAsset, assetType string, props []parseradapter.InspectProperty) *schema.DocChunk {
	var refs []string
	typedRefs := map[string]string{}
	var sentences []string

	collect := func(propName, label, sentencePrefix string) {
		v, ok := findProp(props, propName)
		if !ok {
			return
		}
		var names []string
		for _, entry := range asMapSlice(v) {
			for _, key := range []string{"Ability", "GameplayEffect", "AttributeSet"} {
				if ref := extractPathFromRef(asString(entry[key])); ref != "" {
					refs = append(refs, ref)
					typedRefs[ref] = label
					names = append(names, lastSegment(ref))
				}
			}
		}
		if len(names) > 0 {
			sentences = append(sentences, sentencePrefix+": "+strings.Join(names, ", "))
		}
	}
	collect("GrantedGameplayAbilities", "uses_asset", "Abilities")
	collect("GrantedGameplayEffects", "uses_asset", "Effects")
	collect("GrantedAttributes", "uses_asset", "Attributes")

	return schema.NewDataAssetExtraction(schema.DataAssetExtractionInput{
		Path:               c.GamePath,
		Name:               assetNameFromPath(c.GamePath),
		AssetType:          assetType,
		Sentences:          sentences,
		Metadata:           map[string]any{},
		ReferencesOut:      dedupStrings(refs),
		TypedReferencesOut: typedRefs,
	})
}

// extractPawnData extracts PawnClass/AbilitySets/InputConfig (spec
// §8 scenario S2's "uses_pawn_data" counterpart: a DataAsset describing
// what a pawn grants).
func extractPawnData(c classifiedAsset, assetType string, props []parseradapter.InspectProperty) *schema.DocChunk {
	var refs []string
	typedRefs := map[string]string{}
	var sentences []string

	if v, ok := findProp(props, "PawnClass"); ok {
		if ref := extractPathFromRef(asString(v)); ref != "" {
			refs = append(refs, ref)
			typedRefs[ref] = "uses_asset"
			sentences = append(sentences, "Pawn class: "+lastSegment(ref))
		}
	}
	if v, ok := findProp(props, "AbilitySets"); ok {
		var names []string
		for _, ref := range asStringSlice(v) {
			if p := extractPathFromRef(ref); p != "" {
				refs = append(refs, p)
				typedRefs[p] = "includes_action_set"
				names = append(names, lastSegment(p))
			}
		}
		if len(names) > 0 {
			sentences = append(sentences, "Ability sets: "+strings.Join(names, ", "))
		}
	}
	if v, ok := findProp(props, "InputConfig"); ok {
		if ref := extractPathFromRef(asString(v)); ref != "" {
			refs = append(refs, ref)
			typedRefs[ref] = "maps_input"
			sentences = append(sentences, "Input config: "+lastSegment(ref))
		}
	}

	return schema.NewDataAssetExtraction(schema.DataAssetExtractionInput{
		Path:               c.GamePath,
		Name:               assetNameFromPath(c.GamePath),
		AssetType:          assetType,
		Sentences:          sentences,
		Metadata:           map[string]any{},
		ReferencesOut:      dedupStrings(refs),
		TypedReferencesOut: typedRefs,
	})
}

// extractInputConfig extracts NativeInputActions/AbilityInputActions
// tag->action mappings (Lyra-style LyraInputConfig).
func extractInputConfig(c classifiedAsset, assetType string, props []parseradapter.InspectProperty) *schema.DocChunk {
	var refs []string
	typedRefs := map[string]string{}
	var mappingCount int

	collect := func(propName string) {
		v, ok := findProp(props, propName)
		if !ok {
			return
		}
		for _, entry := range asMapSlice(v) {
			if ref := extractPathFromRef(asString(entry["InputAction"])); ref != "" {
				refs = append(refs, ref)
				typedRefs[ref] = "maps_input"
				mappingCount++
			}
		}
	}
	collect("NativeInputActions")
	collect("AbilityInputActions")

	var sentences []string
	if mappingCount > 0 {
		sentences = append(sentences, strconv.Itoa(mappingCount)+" input action mappings")
	}

	return schema.NewDataAssetExtraction(schema.DataAssetExtractionInput{
		Path:               c.GamePath,
		Name:               assetNameFromPath(c.GamePath),
		AssetType:          assetType,
		Sentences:          sentences,
		Metadata:           map[string]any{"mapping_count": mappingCount},
		ReferencesOut:      dedupStrings(refs),
		TypedReferencesOut: typedRefs,
	})
}
