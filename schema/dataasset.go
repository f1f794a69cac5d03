package schema

import "strings"

// DataAssetExtractionInput is the constructor input for a DataAsset's
// per-class extracted doc (spec §4.5 Phase 5, DataAsset dispatch).
// Unlike the other templated variants, the descriptive sentences come
// from the extractor itself, since each registered DataAsset subclass
// has its own shape of interesting fields.
type DataAssetExtractionInput struct {
	Path               string
	Name               string
	AssetType          string
	Sentences          []string
	Metadata           map[string]any
	ReferencesOut      []string
	TypedReferencesOut map[string]string
	Module             string
}

// NewDataAssetExtraction builds: "{name} is a {asset_type}. {sentence}.
// {sentence}. ..." (spec §4.5).
func NewDataAssetExtraction(in DataAssetExtractionInput) *DocChunk {
	parts := append([]string{}, "")
	parts[0] = in.Name + " is a " + in.AssetType
	parts = append(parts, in.Sentences...)
	text := strings.Join(parts, ". ") + "."

	module := in.Module
	if module == "" {
		module = ModuleFromAssetPath(in.Path)
	}

	c := &DocChunk{
		DocID:              "asset:" + in.Path,
		Type:               TypeAssetSummary,
		Path:               in.Path,
		Name:               in.Name,
		Text:               text,
		Module:             module,
		AssetType:          in.AssetType,
		Metadata:           in.Metadata,
		ReferencesOut:      in.ReferencesOut,
		TypedReferencesOut: in.TypedReferencesOut,
	}
	return finalize(c)
}
