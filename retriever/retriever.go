// Package retriever implements hybrid search over the Store: query
// classification, FTS-query sanitization, and exact/vector result
// fusion into a token-budgeted context bundle (spec §4.6).
package retriever

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/bradenleague/ueassetindex/embedder"
	"github.com/bradenleague/ueassetindex/store"
)

// QueryType is the outcome of ClassifyQuery.
type QueryType string

const (
	QueryExact    QueryType = "exact"
	QuerySemantic QueryType = "semantic"
	QueryHybrid   QueryType = "hybrid"
)

var (
	exactPathPrefixes = []string{"/Game/", "/Script/", "/Source/", "/Plugins/"}
	exactNamePrefixes = []string{"BP_", "WBP_", "M_", "MI_", "MF_", "DT_", "T_"}
	exactExtensions   = []string{".uasset", ".h", ".cpp"}
	cppTokenRE        = regexp.MustCompile(`\b[UAFESIT][A-Z]\w*\b`)
	interrogativeRE   = regexp.MustCompile(`(?i)\b(how|what|why|where|when|which|explain|describe|find|show|list)\b`)
)

// ClassifyQuery buckets a raw query string into exact/semantic/hybrid
// (spec §4.6 classify_query).
func ClassifyQuery(q string) QueryType {
	trimmed := strings.TrimSpace(q)
	for _, p := range exactPathPrefixes {
		if strings.Contains(trimmed, p) {
			return QueryExact
		}
	}
	for _, p := range exactNamePrefixes {
		if strings.Contains(trimmed, p) {
			return QueryExact
		}
	}
	for _, ext := range exactExtensions {
		if strings.Contains(trimmed, ext) {
			return QueryExact
		}
	}
	if strings.Contains(trimmed, "::") {
		return QueryExact
	}
	if cppTokenRE.MatchString(trimmed) {
		return QueryExact
	}

	tokens := strings.Fields(trimmed)
	if len(tokens) <= 2 && !interrogativeRE.MatchString(trimmed) {
		return QueryHybrid
	}
	if interrogativeRE.MatchString(trimmed) {
		return QuerySemantic
	}
	return QueryHybrid
}

var (
	ftsMetaRE          = regexp.MustCompile(`["*^:(){}\[\]~\-]`)
	gameOrScriptPathRE = regexp.MustCompile(`/(?:Game|Script)/[A-Za-z0-9_/.]*`)
)

// PrepareFTSQuery strips FTS5 meta-characters, quotes any /Game/ or
// /Script/ path as a phrase, and otherwise OR-joins word-prefix terms
// (spec §4.6 prepare_fts_query).
func PrepareFTSQuery(q string) string {
	q = strings.TrimSpace(q)
	if q == "" {
		return ""
	}

	if paths := gameOrScriptPathRE.FindAllString(q, -1); len(paths) > 0 {
		phrases := make([]string, 0, len(paths))
		for _, p := range paths {
			cleaned := strings.TrimSpace(ftsMetaRE.ReplaceAllString(p, " "))
			if cleaned != "" {
				phrases = append(phrases, `"`+cleaned+`"`)
			}
		}
		if len(phrases) > 0 {
			return strings.Join(phrases, " ")
		}
	}

	cleaned := ftsMetaRE.ReplaceAllString(q, " ")
	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return ""
	}
	terms := make([]string, 0, len(words))
	for _, w := range words {
		terms = append(terms, w+"*")
	}
	return strings.Join(terms, " OR ")
}

// ContextBundle is what Retrieve returns: a merged, deduplicated result
// set plus an optional reference-graph expansion and a rough token-cost
// estimate for downstream consumption (spec §4.6).
type ContextBundle struct {
	Query               string
	QueryType           QueryType
	Results             []store.SearchResult
	Graph               *store.ReferenceGraph
	TokenBudgetEstimate int
}

// Options tunes a single Retrieve call.
type Options struct {
	Filters      store.SearchFilters
	K            int
	ExpandRefs   bool
	RefDirection store.Direction
	RefDepth     int
	MaxRefNodes  int
	QueryType    QueryType // overrides classification when non-empty
}

// Retriever wraps Store search with query classification and fusion.
type Retriever struct {
	store *store.Store
	embed embedder.Embedder
}

// New builds a Retriever. embed may be nil, in which case semantic
// search is skipped entirely and only exact (FTS) retrieval runs.
func New(s *store.Store, embed embedder.Embedder) *Retriever {
	return &Retriever{store: s, embed: embed}
}

// Retrieve classifies query (unless opts.QueryType overrides it), runs
// the matching search strategy, tops up with the complementary one, and
// merges the results order-preserving-dedup by doc_id (spec §4.6).
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) (*ContextBundle, error) {
	qType := opts.QueryType
	if qType == "" {
		qType = ClassifyQuery(query)
	}
	if opts.K <= 0 {
		opts.K = 10
	}

	var primary, secondary []store.SearchResult
	var err error

	switch qType {
	case QueryExact:
		if primary, err = r.searchExact(ctx, query, opts.Filters, opts.K); err != nil {
			return nil, err
		}
		if len(primary) < opts.K && r.embed != nil {
			if secondary, err = r.searchSemantic(ctx, query, opts.Filters, opts.K); err != nil {
				return nil, err
			}
		}
	case QuerySemantic:
		if primary, err = r.searchSemantic(ctx, query, opts.Filters, opts.K); err != nil {
			return nil, err
		}
		if secondary, err = r.searchExact(ctx, query, opts.Filters, opts.K); err != nil {
			return nil, err
		}
	default:
		if primary, err = r.searchExact(ctx, query, opts.Filters, opts.K); err != nil {
			return nil, err
		}
		if secondary, err = r.searchSemantic(ctx, query, opts.Filters, opts.K); err != nil {
			return nil, err
		}
	}

	merged := mergeDedup(primary, secondary)
	if len(merged) > opts.K {
		merged = merged[:opts.K]
	}

	bundle := &ContextBundle{Query: query, QueryType: qType, Results: merged}
	bundle.TokenBudgetEstimate = estimateTokenBudget(merged)

	if opts.ExpandRefs && len(merged) > 0 {
		depth := opts.RefDepth
		if depth <= 0 {
			depth = 2
		}
		maxNodes := opts.MaxRefNodes
		if maxNodes <= 0 {
			maxNodes = 50
		}
		dir := opts.RefDirection
		if dir == "" {
			dir = store.DirectionBoth
		}
		graph, gerr := r.store.ExpandRefs(ctx, merged[0].DocID, dir, depth, maxNodes, nil)
		if gerr != nil {
			return nil, gerr
		}
		bundle.Graph = graph
	}

	return bundle, nil
}

func (r *Retriever) searchExact(ctx context.Context, query string, filters store.SearchFilters, k int) ([]store.SearchResult, error) {
	ftsQuery := PrepareFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}
	return r.store.SearchFTS(ctx, ftsQuery, filters, k, 0)
}

func (r *Retriever) searchSemantic(ctx context.Context, query string, filters store.SearchFilters, k int) ([]store.SearchResult, error) {
	if r.embed == nil {
		return nil, nil
	}
	vec, err := r.embed.Embed(ctx, query)
	if err != nil {
		return nil, nil
	}
	return r.store.SearchVector(ctx, vec, filters, k, 0)
}

// mergeDedup order-preserving-dedups by doc_id, primary first (spec §4.6).
func mergeDedup(primary, secondary []store.SearchResult) []store.SearchResult {
	seen := make(map[string]bool, len(primary)+len(secondary))
	out := make([]store.SearchResult, 0, len(primary)+len(secondary))
	for _, list := range [][]store.SearchResult{primary, secondary} {
		for _, res := range list {
			if seen[res.DocID] {
				continue
			}
			seen[res.DocID] = true
			out = append(out, res)
		}
	}
	return out
}

// estimateTokenBudget is ceil(total_chars / 4) over every result's doc
// text (spec §4.6).
func estimateTokenBudget(results []store.SearchResult) int {
	var chars int
	for _, r := range results {
		if r.Doc != nil {
			chars += len(r.Doc.Text)
		}
	}
	return int(math.Ceil(float64(chars) / 4))
}
