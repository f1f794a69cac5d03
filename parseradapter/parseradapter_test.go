package parseradapter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAssetTimeout_DefaultAndClamp(t *testing.T) {
	os.Unsetenv("UE_INDEX_ASSET_TIMEOUT")
	require.Equal(t, 60*time.Second, AssetTimeout())

	t.Setenv("UE_INDEX_ASSET_TIMEOUT", "5")
	require.Equal(t, 5*time.Second, AssetTimeout())

	t.Setenv("UE_INDEX_ASSET_TIMEOUT", "not-a-number")
	require.Equal(t, 60*time.Second, AssetTimeout())

	t.Setenv("UE_INDEX_ASSET_TIMEOUT", "-5")
	require.Equal(t, 1*time.Second, AssetTimeout())
}

func TestBatchSize_DefaultAndClamp(t *testing.T) {
	os.Unsetenv("UE_INDEX_BATCH_SIZE")
	require.Equal(t, 500, BatchSize())

	t.Setenv("UE_INDEX_BATCH_SIZE", "10000")
	require.Equal(t, 2000, BatchSize())

	t.Setenv("UE_INDEX_BATCH_SIZE", "0")
	require.Equal(t, 1, BatchSize())
}

func TestResolve_LocalConfig(t *testing.T) {
	dir := t.TempDir()
	binPath := filepath.Join(dir, "FakeParser")
	require.NoError(t, os.WriteFile(binPath, []byte("#!/bin/sh\n"), 0o755))

	cfgJSON := `{"asset_parser_path": "` + binPath + `"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "local_config.json"), []byte(cfgJSON), 0o644))

	resolved, err := Resolve(dir, dir)
	require.NoError(t, err)
	require.Equal(t, binPath, resolved)
}

func TestResolve_Missing(t *testing.T) {
	dir := t.TempDir()
	_, err := Resolve(dir, dir)
	require.ErrorIs(t, err, ErrParserMissing)
}

func TestParseAssetAnalysis_Malformed(t *testing.T) {
	got := ParseAssetAnalysis("<not valid xml")
	require.Empty(t, got.AssetRefs)
}

func TestParseAssetAnalysis_WellFormed(t *testing.T) {
	xmlBody := `<asset-analysis>
		<asset-refs><ref>/Game/Foo/Bar</ref></asset-refs>
		<class-refs><ref>/Script/Engine.Actor</ref></class-refs>
		<script-refs><ref>/Script/Engine</ref></script-refs>
	</asset-analysis>`
	got := ParseAssetAnalysis(xmlBody)
	require.Equal(t, []string{"/Game/Foo/Bar"}, got.AssetRefs)
	require.Equal(t, []string{"/Script/Engine.Actor"}, got.ClassRefs)
}

func TestDecodeNDJSON_SkipsMalformedLines(t *testing.T) {
	body := `{"path":"/Game/A","refs":["/Game/B"]}
not json
{"path":"/Game/C","refs":[]}
`
	recs, skipped := DecodeNDJSON[BatchRefsRecord](body)
	require.Len(t, recs, 2)
	require.Equal(t, 1, skipped)
	require.Equal(t, "/Game/A", recs[0].Path)
}
