package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bradenleague/ueassetindex/profile"
	"github.com/bradenleague/ueassetindex/retriever"
	"github.com/bradenleague/ueassetindex/schema"
	"github.com/bradenleague/ueassetindex/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	p := &profile.Profile{}
	p.SetDefaults()
	r := retriever.New(s, nil)
	return New(s, r, p), s
}

func TestSearch_EmptyQueryErrors(t *testing.T) {
	e, _ := newTestEngine(t)
	resp := e.Search(context.Background(), "  ", ModeAuto, nil, 10)
	require.Equal(t, "Query cannot be empty", resp.Error)
}

func TestSearch_NameMode(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	doc := schema.NewAssetSummary(schema.AssetSummaryInput{
		Path: "/Game/Characters/BP_Hero", Name: "BP_Hero", AssetType: "Blueprint",
	})
	_, err := s.UpsertDoc(ctx, doc, nil, false)
	require.NoError(t, err)

	resp := e.Search(ctx, "BP_Hero", ModeAuto, nil, 10)
	require.Equal(t, ModeName, resp.SearchType)
	require.NotEmpty(t, resp.Results)
	require.Equal(t, "/Game/Characters/BP_Hero", resp.Results[0].Path)
}

func TestSearch_InheritsMode(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	child := schema.NewAssetSummary(schema.AssetSummaryInput{
		Path: "/Game/Characters/BP_Hero", Name: "BP_Hero", AssetType: "Blueprint",
		ParentClass: "BP_Character",
	})
	child.ReferencesOut = append(child.ReferencesOut, "class:BP_Character")
	child.TypedReferencesOut["class:BP_Character"] = "inherits_from"
	_, err := s.UpsertDoc(ctx, child, nil, false)
	require.NoError(t, err)

	resp := e.Search(ctx, "inherits from BP_Character", ModeAuto, nil, 10)
	require.Equal(t, ModeInherits, resp.SearchType)
}

func TestSearch_TagsMode(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	doc := schema.NewAssetSummary(schema.AssetSummaryInput{
		Path: "/Game/Abilities/GE_Damage", Name: "GE_Damage", AssetType: "GameplayEffect",
	})
	_, err := s.UpsertDoc(ctx, doc, nil, false)
	require.NoError(t, err)
	require.NoError(t, s.UpsertTags(ctx, doc.Path, []string{"Ability.Damage.Fire"}))

	resp := e.Search(ctx, "tag:Ability.Damage.Fire", ModeAuto, nil, 10)
	require.Equal(t, ModeTags, resp.SearchType)
	require.Len(t, resp.Results, 1)
	require.Equal(t, "/Game/Abilities/GE_Damage", resp.Results[0].Path)
}

func TestSearch_RefsMode(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	parent := schema.NewAssetSummary(schema.AssetSummaryInput{
		Path: "/Game/UI/WBP_Hud", Name: "WBP_Hud", AssetType: "WidgetBlueprint",
		ReferencesOut: []string{"/Game/UI/WBP_HealthBar"},
	})
	_, err := s.UpsertDoc(ctx, parent, nil, false)
	require.NoError(t, err)

	resp := e.Search(ctx, "where is /Game/UI/WBP_HealthBar used", ModeAuto, nil, 10)
	require.Equal(t, ModeRefs, resp.SearchType)
}

func TestResultQualityKey_PrefersKnownTypeAndSnippet(t *testing.T) {
	known := &Result{Score: 1.0, Type: "Blueprint", Snippet: "x"}
	unknown := &Result{Score: 1.0, Type: "Unknown", Snippet: ""}
	require.True(t, qualityLess(resultQualityKey(unknown), resultQualityKey(known)))
}

func TestApplySemanticReranking_BoostsBlueprintIntent(t *testing.T) {
	results := []*Result{
		{Name: "BP_Hero", Type: "Blueprint", Score: 1.0},
		{Name: "M_Hero", Type: "Material", Score: 1.0},
	}
	applySemanticReranking(results, "blueprint logic for hero")
	require.Greater(t, results[0].Score, results[1].Score)
}
