package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bradenleague/ueassetindex/parseradapter"
	"github.com/bradenleague/ueassetindex/profile"
	"github.com/bradenleague/ueassetindex/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestIndexer(t *testing.T, s *store.Store, contentPath string) *Indexer {
	t.Helper()
	p := &profile.Profile{}
	p.SetDefaults()
	return New(Config{Store: s, ContentPath: contentPath, Profile: p})
}

func writeUAsset(t *testing.T, dir, relPath string) string {
	t.Helper()
	full := filepath.Join(dir, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("stub"), 0o644))
	return full
}

// Invariant 7 — change detection: a file matching on both mtime and
// size is not reparsed.
func TestChangeDetect_SkipsUnchangedFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	dir := t.TempDir()
	abs := writeUAsset(t, dir, "BP_Hero.uasset")
	idx := newTestIndexer(t, s, dir)

	discovered := []discoveredAsset{{AbsPath: abs, GamePath: "/Game/BP_Hero"}}

	working, unchanged, err := idx.changeDetect(ctx, discovered, false)
	require.NoError(t, err)
	require.Len(t, working, 1)
	require.Equal(t, 0, unchanged)

	info, err := os.Stat(abs)
	require.NoError(t, err)
	require.NoError(t, s.UpsertFileMeta(ctx, store.FileMeta{
		AbsPath:   abs,
		MTime:     float64(info.ModTime().UnixNano()) / 1e9,
		Size:      info.Size(),
		AssetType: "Blueprint",
	}))

	working, unchanged, err = idx.changeDetect(ctx, discovered, false)
	require.NoError(t, err)
	require.Empty(t, working)
	require.Equal(t, 1, unchanged)
}

func TestChangeDetect_ForceBypassesFileMeta(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	dir := t.TempDir()
	abs := writeUAsset(t, dir, "BP_Hero.uasset")
	idx := newTestIndexer(t, s, dir)

	info, err := os.Stat(abs)
	require.NoError(t, err)
	require.NoError(t, s.UpsertFileMeta(ctx, store.FileMeta{
		AbsPath: abs, MTime: float64(info.ModTime().UnixNano()) / 1e9, Size: info.Size(), AssetType: "Blueprint",
	}))

	discovered := []discoveredAsset{{AbsPath: abs, GamePath: "/Game/BP_Hero"}}
	working, unchanged, err := idx.changeDetect(ctx, discovered, true)
	require.NoError(t, err)
	require.Len(t, working, 1)
	require.Equal(t, 0, unchanged)
}

func TestChangeDetect_ChangedSizeReindexes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	dir := t.TempDir()
	abs := writeUAsset(t, dir, "BP_Hero.uasset")
	idx := newTestIndexer(t, s, dir)

	info, err := os.Stat(abs)
	require.NoError(t, err)
	require.NoError(t, s.UpsertFileMeta(ctx, store.FileMeta{
		AbsPath: abs, MTime: float64(info.ModTime().UnixNano()) / 1e9, Size: info.Size() + 1, AssetType: "Blueprint",
	}))

	discovered := []discoveredAsset{{AbsPath: abs, GamePath: "/Game/BP_Hero"}}
	working, unchanged, err := idx.changeDetect(ctx, discovered, false)
	require.NoError(t, err)
	require.Len(t, working, 1)
	require.Equal(t, 0, unchanged)
}

// Invariant 8 — GameplayTag extraction idempotence: walking a property
// tree twice yields the same deduplicated, sorted tag list.
func TestExtractGameplayTags_Idempotent(t *testing.T) {
	data := map[string]any{
		"_type": "GameplayTagContainer",
		"tags":  []any{"Ability.Damage.Fire", "Ability.Damage.Fire"},
		"nested": map[string]any{
			"_type":   "GameplayTag",
			"TagName": "Status.Burning",
		},
		"absent": map[string]any{
			"_type":   "GameplayTag",
			"TagName": "None",
		},
	}

	first := extractGameplayTags(data)
	second := extractGameplayTags(data)
	require.Equal(t, first, second)
	require.Equal(t, []string{"Ability.Damage.Fire", "Status.Burning"}, first)
}

func TestExtractGameplayTags_DedupesAndSorts(t *testing.T) {
	data := []any{
		map[string]any{"_type": "GameplayTag", "TagName": "Zeta.One"},
		map[string]any{"_type": "GameplayTag", "TagName": "Alpha.One"},
		map[string]any{"_type": "GameplayTag", "TagName": "Alpha.One"},
	}
	got := extractGameplayTags(data)
	require.Equal(t, []string{"Alpha.One", "Zeta.One"}, got)
}

// Scenario S1 — fresh index of a GameplayEffect asset.
func TestExtractGameplayEffect_S1(t *testing.T) {
	c := classifiedAsset{GamePath: "/Game/Abilities/GE_Damage_Pistol", AssetType: "GameplayEffect"}
	props := []parseradapter.InspectProperty{
		{Name: "DurationPolicy", Type: "enum", Value: "EGameplayEffectDurationType::Instant"},
		{
			Name: "Modifiers",
			Type: "array",
			Value: []any{
				map[string]any{
					"Attribute":         "(/Script/MyGame, Health, )",
					"ModifierOp":        "Additive",
					"ModifierMagnitude": float64(-25),
				},
			},
		},
	}

	doc := extractGameplayEffect(c, "GameplayEffect", props)

	require.Equal(t, "GameplayEffect", doc.AssetType)
	require.Equal(t, "Instant", doc.Metadata["duration_policy"])

	modifiers, ok := doc.Metadata["modifiers"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, modifiers, 1)
	require.Equal(t, "Health", modifiers[0]["attribute"])
	require.Equal(t, "Additive", modifiers[0]["op"])

	require.Contains(t, doc.Text, "Instant")
	require.Contains(t, doc.Text, "Health")
}

// Scenario S2 — Blueprint with parent redirect: the redirected
// game-feature chunk carries includes_action_set / uses_pawn_data
// typed edges.
func TestBuildGameFeatureChunk_S2(t *testing.T) {
	c := classifiedAsset{GamePath: "/Game/Experiences/B_ShooterGame_Elimination", AssetType: "LyraExperienceDefinition"}
	rec := parseradapter.InspectRecord{
		Exports: []parseradapter.InspectExport{
			{
				Name:  "Default__B_ShooterGame_Elimination",
				Class: "LyraExperienceDefinition",
				Properties: []parseradapter.InspectProperty{
					{
						Name: "ActionSets",
						Type: "array",
						Value: []any{
							"/Game/Experiences/ActionSets/AS_ShooterGame_Standard",
							"/Game/Experiences/ActionSets/AS_ShooterGame_Elimination",
						},
					},
					{
						Name:  "DefaultPawnData",
						Type:  "object",
						Value: "/Game/Characters/HeroData_ShooterGame",
					},
				},
			},
		},
	}

	doc := buildGameFeatureChunk(c, rec)

	require.Equal(t, "LyraExperienceDefinition", doc.AssetType)
	require.Equal(t, "includes_action_set", doc.TypedReferencesOut["/Game/Experiences/ActionSets/AS_ShooterGame_Standard"])
	require.Equal(t, "includes_action_set", doc.TypedReferencesOut["/Game/Experiences/ActionSets/AS_ShooterGame_Elimination"])
	require.Equal(t, "uses_pawn_data", doc.TypedReferencesOut["/Game/Characters/HeroData_ShooterGame"])
	require.Contains(t, doc.ReferencesOut, "/Game/Characters/HeroData_ShooterGame")
}

// Scenario S6 — incremental re-run: touching mtime with unchanged
// content on the second pass skips all files by file_meta, with
// unchanged equal to the full count and nothing newly indexed.
func TestRun_IncrementalRerun_S6(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	dir := t.TempDir()
	writeUAsset(t, dir, "BP_Hero.uasset")
	writeUAsset(t, dir, "BP_Villain.uasset")
	idx := newTestIndexer(t, s, dir)

	first, err := idx.Run(ctx, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, first.Counters.TotalFound)
	require.Equal(t, 0, first.Counters.Unchanged)

	second, err := idx.Run(ctx, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, second.Counters.TotalFound)
	require.Equal(t, 2, second.Counters.Unchanged)
	require.Equal(t, 0, second.Counters.SemanticIndexed)
	require.Equal(t, 0, second.Counters.LightweightIndexed)
}
