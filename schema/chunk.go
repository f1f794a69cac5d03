// Package schema defines the typed document-chunk variants stored in
// the Knowledge Store (spec §3.1, §4.2).
package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Type tags the DocChunk variant.
type Type string

const (
	TypeAssetSummary          Type = "asset_summary"
	TypeUMGWidgetTree         Type = "umg_widget_tree"
	TypeBPGraphSummary        Type = "bp_graph_summary"
	TypeMaterialParams        Type = "material_params"
	TypeMaterialFunctionParam Type = "materialfunction_params"
	TypeDataTable             Type = "datatable"
	TypeSourceFile            Type = "source_file"
	TypeCppClass              Type = "cpp_class"
	TypeCppFunc               Type = "cpp_func"
	TypeCppProperty           Type = "cpp_property"
)

// DocChunk is the atomic indexed unit (spec §3.1).
type DocChunk struct {
	DocID               string            `json:"doc_id"`
	Type                Type              `json:"type"`
	Path                string            `json:"path"`
	Name                string            `json:"name"`
	Text                string            `json:"text"`
	Metadata            map[string]any    `json:"metadata"`
	ReferencesOut       []string          `json:"references_out"`
	TypedReferencesOut  map[string]string `json:"typed_references_out"`
	Module              string            `json:"module"`
	AssetType           string            `json:"asset_type"`
	Fingerprint         string            `json:"fingerprint"`
	SchemaVersion       int               `json:"schema_version"`
	EmbedModel          string            `json:"embed_model,omitempty"`
	EmbedVersion        string            `json:"embed_version,omitempty"`
	IndexedAt           time.Time         `json:"indexed_at"`
}

// CurrentSchemaVersion is stamped onto every newly constructed chunk.
const CurrentSchemaVersion = 1

// ComputeFingerprint returns the first 16 hex chars of SHA-256 over the
// trimmed, lowercased text (spec §3.1, §4.2, invariant 5). Any change in
// normalized text must change the fingerprint.
func ComputeFingerprint(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}

// finalize fills in fingerprint/schema-version/metadata defaults shared
// by every constructor.
func finalize(c *DocChunk) *DocChunk {
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	if c.ReferencesOut == nil {
		c.ReferencesOut = []string{}
	}
	if c.TypedReferencesOut == nil {
		c.TypedReferencesOut = map[string]string{}
	}
	c.SchemaVersion = CurrentSchemaVersion
	c.Fingerprint = ComputeFingerprint(c.Text)
	return c
}

// ModuleFromAssetPath derives the module (mount-point) from a game path,
// e.g. "/Game/UI/HUD/Widget" -> "UI", "/MyPlugin/Foo" -> "MyPlugin".
func ModuleFromAssetPath(path string) string {
	parts := strings.Split(path, "/")
	// parts[0] is "" (leading slash); parts[1] is "Game" or a plugin name.
	if len(parts) >= 3 && parts[1] == "Game" {
		return parts[2]
	}
	if len(parts) >= 2 && parts[1] != "" {
		return parts[1]
	}
	return "Unknown"
}

// ModuleFromSourcePath derives the module from a source-relative path,
// e.g. "Source/MyGame/Public/Foo.h" -> "MyGame", "Plugins/Foo/Source/..." -> "Foo".
func ModuleFromSourcePath(path string) string {
	parts := strings.Split(filepathToSlash(path), "/")
	if len(parts) >= 2 && parts[0] == "Source" {
		return parts[1]
	}
	if len(parts) >= 2 && parts[0] == "Plugins" {
		return parts[1]
	}
	return "Unknown"
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// firstN returns at most n elements of s.
func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// joinFirstN joins the first n elements of s with sep.
func joinFirstN(s []string, n int, sep string) string {
	return strings.Join(firstN(s, n), sep)
}
