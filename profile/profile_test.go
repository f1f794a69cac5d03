package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), []byte(content), 0o644))
}

func TestLoad_DefaultsOnly(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "_defaults", `{
		"export_class_reclassify": {"GameFeatureData": "GameFeatureData"},
		"semantic_types": ["Blueprint"]
	}`)

	l := NewLoader(dir)
	p, err := l.Load("")
	require.NoError(t, err)
	require.Equal(t, "GameFeatureData", p.ExportClassReclassify["GameFeatureData"])
	require.Equal(t, []string{"Blueprint"}, p.SemanticTypes)
}

func TestLoad_OverlayReplacesKeyEntirely(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "_defaults", `{
		"name_prefixes": {"GE_": "GameplayEffect", "BP_": "Blueprint"},
		"semantic_types": ["Blueprint", "Material"]
	}`)
	writeJSON(t, dir, "lyra", `{
		"name_prefixes": {"LAS_": "LyraExperienceActionSet"},
		"semantic_types": ["GameFeatureData"]
	}`)

	l := NewLoader(dir)
	p, err := l.Load("lyra")
	require.NoError(t, err)

	// Overlay replaces the whole key -- defaults' name_prefixes entries
	// do not survive merge.
	require.Equal(t, map[string]string{"LAS_": "LyraExperienceActionSet"}, p.NamePrefixes)
	require.Equal(t, []string{"GameFeatureData"}, p.SemanticTypes)
}

func TestLoad_Caches(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "_defaults", `{}`)

	l := NewLoader(dir)
	p1, err := l.Load("")
	require.NoError(t, err)
	p2, err := l.Load("")
	require.NoError(t, err)
	require.Same(t, p1, p2)

	l.ClearCache()
	p3, err := l.Load("")
	require.NoError(t, err)
	require.NotSame(t, p1, p3)
}

func TestLoad_MissingProfile(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "_defaults", `{}`)

	l := NewLoader(dir)
	_, err := l.Load("nonexistent")
	require.Error(t, err)
}
