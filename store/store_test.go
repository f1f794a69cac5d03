package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bradenleague/ueassetindex/schema"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDoc(docID, name string, refs []string) *schema.DocChunk {
	return schema.NewAssetSummary(schema.AssetSummaryInput{
		Path:          docID[len("asset:"):],
		Name:          name,
		AssetType:     "Blueprint",
		ReferencesOut: refs,
	})
}

func TestUpsertDoc_FingerprintIdempotence(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	doc := testDoc("asset:/Game/BP_Foo", "BP_Foo", nil)

	changed, err := s.UpsertDoc(ctx, doc, nil, false)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = s.UpsertDoc(ctx, doc, nil, false)
	require.NoError(t, err)
	require.False(t, changed, "identical fingerprint must skip the rewrite")
}

func TestUpsertDoc_EdgeSetRewrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	doc := testDoc("asset:/Game/BP_Foo", "BP_Foo", []string{"/Game/BP_Parent", "/Game/Textures/T_Icon"})

	_, err := s.UpsertDoc(ctx, doc, nil, false)
	require.NoError(t, err)

	g, err := s.ExpandRefs(ctx, doc.DocID, DirectionForward, 1, 50, nil)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"asset:/Game/BP_Parent", "asset:/Game/Textures/T_Icon"}, g.ForwardRefs[doc.DocID])

	// Re-upsert with a different reference set and force=true; edges must
	// fully replace, not accumulate.
	doc2 := testDoc("asset:/Game/BP_Foo", "BP_Foo v2", []string{"/Game/BP_OtherParent"})
	_, err = s.UpsertDoc(ctx, doc2, nil, true)
	require.NoError(t, err)

	g2, err := s.ExpandRefs(ctx, doc.DocID, DirectionForward, 1, 50, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"asset:/Game/BP_OtherParent"}, g2.ForwardRefs[doc.DocID])
}

func TestUpsertDoc_FTSSync(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	doc := testDoc("asset:/Game/BP_UniqueSearchableName", "BP_UniqueSearchableName", nil)

	_, err := s.UpsertDoc(ctx, doc, nil, false)
	require.NoError(t, err)

	results, err := s.SearchFTS(ctx, "BP_UniqueSearchableName", SearchFilters{}, 10, 0)
	require.NoError(t, err)
	found := false
	for _, r := range results {
		if r.DocID == doc.DocID {
			found = true
		}
	}
	require.True(t, found, "upserted doc must be found via FTS")
}

func TestUpsertDoc_MalformedFTSQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	results, err := s.SearchFTS(ctx, `"unterminated`, SearchFilters{}, 10, 0)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0.1, -0.2, 3.5, 0.0, 1e-8}
	blob := encodeEmbedding(v)
	got := decodeEmbedding(blob)
	require.Equal(t, v, got)
}

func TestSearchVector(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	doc := testDoc("asset:/Game/BP_Foo", "BP_Foo", nil)
	doc.EmbedModel = "test-model"
	embedding := []float32{1, 0, 0}
	_, err := s.UpsertDoc(ctx, doc, embedding, false)
	require.NoError(t, err)

	results, err := s.SearchVector(ctx, []float32{1, 0, 0}, SearchFilters{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestSearchVector_EmptyWhenNoEmbeddings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	results, err := s.SearchVector(ctx, []float32{1, 0, 0}, SearchFilters{}, 10, 0)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestFindChildrenOf_InheritanceDepth(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mkDoc := func(path, parent string) *schema.DocChunk {
		d := schema.NewAssetSummary(schema.AssetSummaryInput{Path: path, Name: path, AssetType: "GameplayEffect", ParentClass: parent})
		if parent != "" {
			d.ReferencesOut = []string{parent}
			d.TypedReferencesOut = map[string]string{parent: "inherits_from"}
		}
		return d
	}

	a := mkDoc("/Game/GE_Base", "")
	b := mkDoc("/Game/GE_Damage", "/Game/GE_Base")
	c := mkDoc("/Game/GE_Damage_Pistol", "/Game/GE_Damage")

	for _, d := range []*schema.DocChunk{a, b, c} {
		_, err := s.UpsertDoc(ctx, d, nil, true)
		require.NoError(t, err)
	}

	results, err := s.FindChildrenOf(ctx, []string{a.DocID}, 4)
	require.NoError(t, err)

	byPath := map[string]ChildResult{}
	for _, r := range results {
		byPath[r.Path] = r
	}
	require.Equal(t, 1, byPath["/Game/GE_Damage"].Depth)
	require.Equal(t, 2, byPath["/Game/GE_Damage_Pistol"].Depth)
	require.Less(t, byPath["/Game/GE_Damage"].Depth, byPath["/Game/GE_Damage_Pistol"].Depth)
}

func TestSearchByTag_ExactAndPrefix(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.UpsertTags(ctx, "/Game/BP_Foo", []string{"Weapon.Pistol", "Weapon.Rifle"}))

	exact, err := s.SearchByTag(ctx, "Weapon.Pistol", 10)
	require.NoError(t, err)
	require.Len(t, exact, 1)

	prefix, err := s.SearchByTag(ctx, "Weapon.*", 10)
	require.NoError(t, err)
	require.Len(t, prefix, 2)
}

func TestFindAssetsReferencing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.UpsertLightweightBatch(ctx, []LightweightAsset{
		{Path: "/Game/Textures/T_Icon_Inst", Name: "T_Icon_Inst", AssetType: "Texture", References: []string{"/Game/Textures/T_Base"}},
	})
	require.NoError(t, err)

	doc := testDoc("asset:/Game/BP_Uses", "BP_Uses", []string{"/Game/Textures/T_Base"})
	_, err = s.UpsertDoc(ctx, doc, nil, false)
	require.NoError(t, err)

	results, err := s.FindAssetsReferencing(ctx, "/Game/Textures/T_Base", 10)
	require.NoError(t, err)
	var paths []string
	for _, r := range results {
		paths = append(paths, r.Path)
	}
	require.Contains(t, paths, "/Game/Textures/T_Icon_Inst")
	require.Contains(t, paths, "/Game/BP_Uses")
}

func TestFileMeta_ChangeDetection(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.UpsertFileMeta(ctx, FileMeta{AbsPath: "/proj/BP_Foo.uasset", MTime: 1000.0, Size: 512}))

	fm, err := s.GetFileMeta(ctx, "/proj/BP_Foo.uasset")
	require.NoError(t, err)
	require.NotNil(t, fm)
	require.Equal(t, int64(512), fm.Size)

	missing, err := s.GetFileMeta(ctx, "/proj/Unknown.uasset")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestResolveCppSources(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.mu.Lock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO cpp_class_index (class_name, doc_id, source_path) VALUES (?, ?, ?)`,
		"ALyraCharacter", "cpp_class:ALyraCharacter", "Source/Lyra/LyraCharacter.h")
	s.mu.Unlock()
	require.NoError(t, err)

	resolved, err := s.ResolveCppSources(ctx, []string{"LyraCharacter"})
	require.NoError(t, err)
	entry, ok := resolved["LyraCharacter"]
	require.True(t, ok)
	require.Equal(t, "Source/Lyra/LyraCharacter.h", entry.SourcePath)
}
