package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bradenleague/ueassetindex/schema"
	"github.com/bradenleague/ueassetindex/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestClassifyQuery(t *testing.T) {
	cases := []struct {
		query string
		want  QueryType
	}{
		{"/Game/Characters/BP_Hero", QueryExact},
		{"BP_Door", QueryExact},
		{"UGameplayAbility", QueryExact},
		{"AActor::BeginPlay", QueryExact},
		{"door", QueryHybrid},
		{"widget tree", QueryHybrid},
		{"how does the ability system grant cooldowns", QuerySemantic},
		{"explain the damage pipeline", QuerySemantic},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ClassifyQuery(c.query), "query: %s", c.query)
	}
}

func TestPrepareFTSQuery_PathPhraseQuoting(t *testing.T) {
	got := PrepareFTSQuery("/Game/Characters/BP_Hero")
	require.Equal(t, `"/Game/Characters/BP_Hero"`, got)
}

func TestPrepareFTSQuery_WordPrefixOring(t *testing.T) {
	got := PrepareFTSQuery("fire damage")
	require.Equal(t, "fire* OR damage*", got)
}

func TestPrepareFTSQuery_StripsMetaCharacters(t *testing.T) {
	got := PrepareFTSQuery(`door (open)`)
	require.Equal(t, "door* OR open*", got)
}

func TestRetrieve_ExactDedupesAgainstTopUp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	doc := schema.NewAssetSummary(schema.AssetSummaryInput{
		Path:      "/Game/Characters/BP_Hero",
		Name:      "BP_Hero",
		AssetType: "Blueprint",
	})
	_, err := s.UpsertDoc(ctx, doc, nil, false)
	require.NoError(t, err)

	r := New(s, nil)
	bundle, err := r.Retrieve(ctx, "/Game/Characters/BP_Hero", Options{K: 5})
	require.NoError(t, err)
	require.Equal(t, QueryExact, bundle.QueryType)
	require.Len(t, bundle.Results, 1)
	require.Equal(t, doc.DocID, bundle.Results[0].DocID)
	require.Positive(t, bundle.TokenBudgetEstimate)
}

func TestRetrieve_NoResultsNoEmbedderDegradesCleanly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := New(s, nil)

	bundle, err := r.Retrieve(ctx, "how does nothing work", Options{K: 5})
	require.NoError(t, err)
	require.Empty(t, bundle.Results)
	require.Equal(t, 0, bundle.TokenBudgetEstimate)
	require.Nil(t, bundle.Graph)
}

func TestMergeDedup_PrimaryWins(t *testing.T) {
	primary := []store.SearchResult{{DocID: "a"}, {DocID: "b"}}
	secondary := []store.SearchResult{{DocID: "b"}, {DocID: "c"}}
	merged := mergeDedup(primary, secondary)
	require.Len(t, merged, 3)
	require.Equal(t, []string{"a", "b", "c"}, []string{merged[0].DocID, merged[1].DocID, merged[2].DocID})
}
