package indexer

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bradenleague/ueassetindex/parseradapter"
	"github.com/bradenleague/ueassetindex/schema"
)

var (
	assetPathInTupleRE = regexp.MustCompile(`/[A-Za-z_][A-Za-z0-9_/.]*`)
	classNameInTupleRE = regexp.MustCompile(`\(\s*/Script/\w+\s*,\s*(\w+)\s*,`)
)

// extractPathFromRef pulls the first path-like segment (a /Game/,
// /<Plugin>/ or /Script/ path, any ".Name_C" suffix kept) out of a raw
// UE object-reference string, or "" if none is present (spec §4.5
// game-feature chunk building).
func extractPathFromRef(value string) string {
	if value == "" {
		return ""
	}
	return assetPathInTupleRE.FindString(value)
}

// extractClassName returns a display-friendly class/asset name from a
// raw UE object reference: the class segment of a "(/Script/Mod,
// Class, )" tuple, or the last path component otherwise.
func extractClassName(value string) string {
	if value == "" {
		return ""
	}
	if m := classNameInTupleRE.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	if path := extractPathFromRef(value); path != "" {
		parts := strings.Split(path, "/")
		return parts[len(parts)-1]
	}
	return ""
}

// collectRefsFromValue recursively collects asset-path refs out of an
// arbitrary inspect property value (string, list, or nested map).
func collectRefsFromValue(v any) []string {
	var out []string
	switch val := v.(type) {
	case string:
		if ref := extractPathFromRef(val); ref != "" {
			out = append(out, ref)
		}
	case []any:
		for _, item := range val {
			out = append(out, collectRefsFromValue(item)...)
		}
	case map[string]any:
		for _, item := range val {
			out = append(out, collectRefsFromValue(item)...)
		}
	}
	return out
}

func findProp(props []parseradapter.InspectProperty, name string) (any, bool) {
	for _, p := range props {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

func mainExport(exports []parseradapter.InspectExport) *parseradapter.InspectExport {
	for i := range exports {
		if !strings.HasPrefix(exports[i].Name, "Default__") {
			return &exports[i]
		}
	}
	if len(exports) > 0 {
		return &exports[0]
	}
	return nil
}

func cdoExport(exports []parseradapter.InspectExport) *parseradapter.InspectExport {
	for i := range exports {
		if strings.HasPrefix(exports[i].Name, "Default__") {
			return &exports[i]
		}
	}
	return nil
}

// buildGameFeatureChunk handles GameFeatureData / LyraExperienceActionSet
// / profile-configured game_feature_types via `inspect`, dispatching
// each export's class to a known GameFeatureAction_* handler and
// merging in CDO-level ActionSets/DefaultPawnData edges and any
// discovered GameplayTags (spec §4.5 Phase 5).
func buildGameFeatureChunk(c classifiedAsset, rec parseradapter.InspectRecord) *schema.DocChunk {
	var textParts []string
	var allRefs []string
	typedRefs := map[string]string{}
	var featuresToEnable []string
	var tags []string

	addRef := func(ref, label string) {
		if ref == "" {
			return
		}
		allRefs = append(allRefs, ref)
		typedRefs[ref] = label
	}

	for _, exp := range rec.Exports {
		switch exp.Class {
		case "GameFeatureAction_AddWidgets":
			if layoutVal, ok := findProp(exp.Properties, "Layout"); ok {
				for _, entry := range asMapSlice(layoutVal) {
					layoutRef := extractPathFromRef(asString(entry["LayoutClass"]))
					tag := getTagName(entry, "LayerID")
					if layoutRef != "" {
						addRef(layoutRef, "uses_layout")
						textParts = append(textParts, "Layout: "+lastSegment(layoutRef))
					}
					if tag != "" {
						tags = append(tags, tag)
					}
				}
			}
			if widgetsVal, ok := findProp(exp.Properties, "Widgets"); ok {
				var names []string
				for _, entry := range asMapSlice(widgetsVal) {
					widgetRef := extractPathFromRef(asString(entry["WidgetClass"]))
					slotTag := getTagName(entry, "SlotID")
					if widgetRef != "" {
						addRef(widgetRef, "registers_widget")
						name := lastSegment(widgetRef)
						if slotTag != "" {
							name += "→" + slotTag
						}
						names = append(names, name)
					}
					if slotTag != "" {
						tags = append(tags, slotTag)
					}
				}
				if len(names) > 0 {
					textParts = append(textParts, "Widgets: "+strings.Join(names, ", "))
				}
			}
		case "GameFeatureAction_AddComponents":
			if val, ok := findProp(exp.Properties, "ComponentList"); ok {
				var descs []string
				for _, entry := range asMapSlice(val) {
					actorRaw, compRaw := asString(entry["ActorClass"]), asString(entry["ComponentClass"])
					actorRef, compRef := extractPathFromRef(actorRaw), extractPathFromRef(compRaw)
					actorName, compName := extractClassName(actorRaw), extractClassName(compRaw)
					if compRef != "" {
						addRef(compRef, "adds_component")
					}
					if actorRef != "" {
						addRef(actorRef, "targets_actor")
					}
					descs = append(descs, fmt.Sprintf("%s→%s", compName, actorName))
				}
				if len(descs) > 0 {
					textParts = append(textParts, "Components: "+strings.Join(descs, ", "))
				}
			}
		case "GameFeatureAction_AddInputContextMapping":
			if val, ok := findProp(exp.Properties, "InputMappings"); ok {
				var names []string
				for _, entry := range asMapSlice(val) {
					imcRef := extractPathFromRef(asString(entry["InputMapping"]))
					if imcRef != "" {
						addRef(imcRef, "maps_input")
						names = append(names, lastSegment(imcRef))
					}
				}
				if len(names) > 0 {
					textParts = append(textParts, "Input: "+strings.Join(names, ", "))
				}
			}
		case "GameFeatureAction_AddInputBinding":
			if val, ok := findProp(exp.Properties, "InputConfigs"); ok {
				var names []string
				for _, entry := range asMapSlice(val) {
					configRef := extractPathFromRef(asString(entry["InputConfig"]))
					if configRef != "" {
						addRef(configRef, "maps_input")
						names = append(names, lastSegment(configRef))
					}
				}
				if len(names) > 0 {
					textParts = append(textParts, "Input bindings: "+strings.Join(names, ", "))
				}
			}
		case "GameFeatureAction_DataRegistry":
			if val, ok := findProp(exp.Properties, "RegistriesToAdd"); ok {
				var names []string
				for _, entry := range asStringSlice(val) {
					regRef := extractPathFromRef(entry)
					if regRef != "" {
						addRef(regRef, "uses_asset")
						names = append(names, lastSegment(regRef))
					}
				}
				if len(names) > 0 {
					textParts = append(textParts, "Registries: "+strings.Join(names, ", "))
				}
			}
		default:
			if exp.Name != "" && strings.HasPrefix(exp.Name, "Default__") {
				if val, ok := findProp(exp.Properties, "ActionSets"); ok {
					for _, entry := range asStringSlice(val) {
						if ref := extractPathFromRef(entry); ref != "" {
							addRef(ref, "includes_action_set")
						}
					}
				}
				if val, ok := findProp(exp.Properties, "DefaultPawnData"); ok {
					if ref := extractPathFromRef(asString(val)); ref != "" {
						addRef(ref, "uses_pawn_data")
					}
				}
			}
			if val, ok := findProp(exp.Properties, "GameFeaturesToEnable"); ok {
				for _, v := range asStringSlice(val) {
					featuresToEnable = append(featuresToEnable, v)
				}
			}
		}
	}

	if len(featuresToEnable) > 0 {
		textParts = append([]string{"Enables features: " + strings.Join(featuresToEnable, ", ")}, textParts...)
	}

	var actionSetRefs, pawnDataRefs []string
	for ref, label := range typedRefs {
		switch label {
		case "includes_action_set":
			actionSetRefs = append(actionSetRefs, ref)
		case "uses_pawn_data":
			pawnDataRefs = append(pawnDataRefs, ref)
		}
	}
	sort.Strings(actionSetRefs)
	sort.Strings(pawnDataRefs)
	if len(actionSetRefs) > 0 {
		textParts = append(textParts, "ActionSets: "+joinLastSegments(actionSetRefs))
	}
	if len(pawnDataRefs) > 0 {
		textParts = append(textParts, "DefaultPawnData: "+joinLastSegments(pawnDataRefs))
	}

	walkerTags := extractGameplayTagsFromExports(rec.Exports)
	allTags := extractGameplayTags(toAnySlice(append(tags, walkerTags...)))
	if len(allTags) > 0 {
		textParts = append(textParts, "Tags: "+strings.Join(allTags, ", "))
	}

	return schema.NewDataAssetExtraction(schema.DataAssetExtractionInput{
		Path:      c.GamePath,
		Name:      assetNameFromPath(c.GamePath),
		AssetType: c.AssetType,
		Sentences: textParts,
		Metadata: map[string]any{
			"gameplay_tags":     allTags,
			"features_to_enable": featuresToEnable,
			"action_sets":       actionSetRefs,
			"pawn_data":         pawnDataRefs,
		},
		ReferencesOut:      dedupStrings(allRefs),
		TypedReferencesOut: typedRefs,
	})
}

func extractGameplayTagsFromExports(exports []parseradapter.InspectExport) []string {
	var generic []any
	for _, exp := range exports {
		m := map[string]any{}
		for _, p := range exp.Properties {
			m[p.Name] = p.Value
		}
		generic = append(generic, m)
	}
	return extractGameplayTags(generic)
}

func toAnySlice(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func lastSegment(path string) string {
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}

func joinLastSegments(paths []string) string {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, lastSegment(p))
	}
	return strings.Join(names, ", ")
}

func dedupStrings(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func asMapSlice(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func asStringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, asString(item))
	}
	return out
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
