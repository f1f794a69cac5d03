package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bradenleague/ueassetindex/profile"
	"github.com/bradenleague/ueassetindex/retriever"
	"github.com/bradenleague/ueassetindex/schema"
	"github.com/bradenleague/ueassetindex/search"
	"github.com/bradenleague/ueassetindex/store"
)

func newTestAPI(t *testing.T) (*API, *store.Store) {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	p := &profile.Profile{}
	p.SetDefaults()
	r := retriever.New(s, nil)
	e := search.New(s, r, p)
	return New(s, e), s
}

func TestSearch_NotBuiltYetWithNilStore(t *testing.T) {
	a := New(nil, nil)
	resp := a.Search(context.Background(), "BP_Hero", "", nil, 10)
	require.NotEmpty(t, resp.Error)
	require.Empty(t, resp.Results)
}

func TestSearch_DelegatesToEngine(t *testing.T) {
	ctx := context.Background()
	a, s := newTestAPI(t)

	doc := schema.NewAssetSummary(schema.AssetSummaryInput{
		Path: "/Game/Characters/BP_Hero", Name: "BP_Hero", AssetType: "Blueprint",
	})
	_, err := s.UpsertDoc(ctx, doc, nil, false)
	require.NoError(t, err)

	resp := a.Search(ctx, "BP_Hero", "", nil, 0)
	require.Empty(t, resp.Error)
	require.Equal(t, search.ModeName, resp.SearchType)
	require.NotEmpty(t, resp.Results)
}

func TestSearch_ExplicitModeOverridesAutoRouting(t *testing.T) {
	ctx := context.Background()
	a, s := newTestAPI(t)

	doc := schema.NewAssetSummary(schema.AssetSummaryInput{
		Path: "/Game/Abilities/GE_Damage", Name: "GE_Damage", AssetType: "GameplayEffect",
	})
	_, err := s.UpsertDoc(ctx, doc, nil, false)
	require.NoError(t, err)
	require.NoError(t, s.UpsertTags(ctx, doc.Path, []string{"Ability.Damage.Fire"}))

	resp := a.Search(ctx, "Ability.Damage.Fire", "tags", nil, 10)
	require.Equal(t, search.ModeTags, resp.SearchType)
	require.Len(t, resp.Results, 1)
}

func TestInspectAsset_NotBuiltYetWithNilStore(t *testing.T) {
	a := New(nil, nil)
	resp := a.InspectAsset(context.Background(), "/Game/Foo", InspectOptions{})
	require.False(t, resp.Found)
	require.NotEmpty(t, resp.Error)
}

func TestInspectAsset_NotFound(t *testing.T) {
	a, _ := newTestAPI(t)
	resp := a.InspectAsset(context.Background(), "/Game/Nope", InspectOptions{})
	require.False(t, resp.Found)
	require.Equal(t, "asset not found in index", resp.Error)
	require.NotEmpty(t, resp.Hint)
}

func TestInspectAsset_TypeOnly(t *testing.T) {
	ctx := context.Background()
	a, s := newTestAPI(t)

	doc := schema.NewAssetSummary(schema.AssetSummaryInput{
		Path: "/Game/Characters/BP_Hero", Name: "BP_Hero", AssetType: "Blueprint",
	})
	_, err := s.UpsertDoc(ctx, doc, nil, false)
	require.NoError(t, err)

	resp := a.InspectAsset(ctx, "/Game/Characters/BP_Hero", InspectOptions{TypeOnly: true})
	require.True(t, resp.Found)
	require.Equal(t, "Blueprint", resp.AssetType)
	require.Equal(t, "type_only", resp.Detail)
	require.Empty(t, resp.Docs)
}

func TestInspectAsset_FullReturnsAllChunks(t *testing.T) {
	ctx := context.Background()
	a, s := newTestAPI(t)

	summary := schema.NewAssetSummary(schema.AssetSummaryInput{
		Path: "/Game/Characters/BP_Hero", Name: "BP_Hero", AssetType: "Blueprint",
		Functions: []string{"Attack"},
	})
	_, err := s.UpsertDoc(ctx, summary, nil, false)
	require.NoError(t, err)

	graph := schema.NewBlueprintGraph(schema.BlueprintGraphInput{
		Path: "/Game/Characters/BP_Hero", AssetName: "BP_Hero", FunctionName: "Attack",
	})
	_, err = s.UpsertDoc(ctx, graph, nil, false)
	require.NoError(t, err)

	resp := a.InspectAsset(ctx, "/Game/Characters/BP_Hero", InspectOptions{})
	require.True(t, resp.Found)
	require.Equal(t, "full", resp.Detail)
	require.Len(t, resp.Docs, 2)
}

func TestInspectAsset_GraphDetailMissingReturnsError(t *testing.T) {
	ctx := context.Background()
	a, s := newTestAPI(t)

	doc := schema.NewAssetSummary(schema.AssetSummaryInput{
		Path: "/Game/UI/WBP_Hud", Name: "WBP_Hud", AssetType: "WidgetBlueprint",
	})
	_, err := s.UpsertDoc(ctx, doc, nil, false)
	require.NoError(t, err)

	resp := a.InspectAsset(ctx, "/Game/UI/WBP_Hud", InspectOptions{Detail: "graph"})
	require.False(t, resp.Found)
	require.Contains(t, resp.Error, "no blueprint graph data")
}

func TestInspectAsset_EmptyPathErrors(t *testing.T) {
	a, _ := newTestAPI(t)
	resp := a.InspectAsset(context.Background(), "  ", InspectOptions{})
	require.Equal(t, "path cannot be empty", resp.Error)
}
