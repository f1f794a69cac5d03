// Package search implements the auto-routing unified search operation
// over the Store and Retriever: mode classification, per-mode lookup,
// dedup/rerank/sort post-processing, and narrow-result enrichment
// (spec §4.7).
package search

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/bradenleague/ueassetindex/profile"
	"github.com/bradenleague/ueassetindex/retriever"
	"github.com/bradenleague/ueassetindex/store"
)

// Mode is the resolved search strategy for a query.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeTags     Mode = "tags"
	ModeInherits Mode = "inherits"
	ModeTrace    Mode = "trace"
	ModeRefs     Mode = "refs"
	ModeName     Mode = "name"
	ModeSemantic Mode = "semantic"
)

// Result is one hit returned by Search.
type Result struct {
	Path         string
	Name         string
	Type         string
	Snippet      string
	Score        float64
	Relationship string
}

// Response is Search's full output.
type Response struct {
	Query      string
	SearchType Mode
	Detail     string
	Count      int
	Results    []Result
	Trace      *SystemTrace
	Note       string
	Error      string
}

// Engine ties the Store, Retriever, and active Profile together to
// serve the unified search operation.
type Engine struct {
	store     *store.Store
	retriever *retriever.Retriever
	profile   *profile.Profile
}

// New builds an Engine. retr may be nil, in which case "semantic" mode
// returns no results (there is no FTS-only fallback) and "name" mode
// skips the retriever's exact pass, using only the lightweight name scan.
func New(s *store.Store, retr *retriever.Retriever, p *profile.Profile) *Engine {
	return &Engine{store: s, retriever: retr, profile: p}
}

var namePrefixes = []string{
	"BP_", "B_", "ABP_", "WBP_", "W_", "M_", "MI_", "MF_",
	"DT_", "DA_", "SK_", "SM_", "T_", "A_", "GA_", "GE_", "GCN_",
}

var assetTokenRE = regexp.MustCompile(`(?i)(BP_\w+|B_\w+|WBP_\w+|W_\w+|M_\w+|MI_\w+|MF_\w+|DT_\w+|DA_\w+|ABP_\w+|SK_\w+|SM_\w+|T_\w+|A_\w+|GA_\w+|GE_\w+|GCN_\w+|/Game/[\w/.\-]+)`)
var wherePhraseRE = regexp.MustCompile(`(?i)where\s+is\s+(.+?)\s+(?:used|placed|referenced)`)
var whatsInLevelRE = regexp.MustCompile(`(?i)what'?s?\s+in\s+(\w+)\s*level`)

// Search runs the unified search operation (spec §4.7).
func (e *Engine) Search(ctx context.Context, query string, mode Mode, assetTypes []string, limit int) *Response {
	if strings.TrimSpace(query) == "" {
		return &Response{Query: query, SearchType: mode, Error: "Query cannot be empty"}
	}
	if limit <= 0 {
		limit = 20
	}

	query = strings.TrimPrefix(query, "class:")
	query = strings.TrimPrefix(query, "asset:")

	var results []*Result
	var traceInfo *SystemTrace
	queryMode := mode

	var tagQuery string
	switch {
	case strings.HasPrefix(strings.ToLower(query), "tag:"):
		tagQuery = strings.TrimSpace(query[4:])
		queryMode = ModeTags
	case mode == ModeTags:
		tagQuery = strings.TrimSpace(query)
		queryMode = ModeTags
	}

	if mode == ModeAuto && queryMode != ModeTags {
		queryMode = e.classifyAutoMode(ctx, query, limit)
		if queryMode == ModeTags {
			tagQuery = query
		}
	}

	switch queryMode {
	case ModeTags:
		results = e.searchTags(ctx, tagQuery, limit)
	case ModeInherits:
		results = e.searchInherits(ctx, query, limit)
	case ModeTrace:
		var traceResults []*Result
		traceInfo, traceResults = e.searchTrace(ctx, query, limit)
		results = traceResults
	case ModeRefs:
		results = e.searchRefs(ctx, query, assetTypes, limit)
	case ModeName:
		results = e.searchName(ctx, query, assetTypes, limit)
	default:
		queryMode = ModeSemantic
		results = e.searchSemantic(ctx, query, limit)
	}

	if len(assetTypes) > 0 && len(results) > 0 {
		allow := map[string]bool{}
		for _, t := range assetTypes {
			allow[strings.ToLower(t)] = true
		}
		filtered := results[:0]
		for _, r := range results {
			if allow[strings.ToLower(r.Type)] {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	results = dedupeByPath(results)

	if queryMode == ModeSemantic || queryMode == ModeName {
		applySemanticReranking(results, query)
	}

	sort.SliceStable(results, func(i, j int) bool { return strings.ToLower(results[i].Name) < strings.ToLower(results[j].Name) })
	sort.SliceStable(results, func(i, j int) bool { return qualityLess(resultQualityKey(results[j]), resultQualityKey(results[i])) })

	if queryMode != ModeTrace {
		normalizeOutputScores(results)
	}

	detail := "summary"
	if queryMode == ModeName {
		detail = e.enrichResults(ctx, results)
	} else if queryMode == ModeSemantic && len(results) <= 3 {
		detail = e.enrichResults(ctx, results)
	}

	if len(results) > limit {
		results = results[:limit]
	}

	resp := &Response{
		Query: query, SearchType: queryMode, Detail: detail,
		Count: len(results), Results: flatten(results), Trace: traceInfo,
	}
	return resp
}

func flatten(rs []*Result) []Result {
	out := make([]Result, len(rs))
	for i, r := range rs {
		out[i] = *r
	}
	return out
}

// classifyAutoMode applies the "auto" routing rules (spec §4.7).
func (e *Engine) classifyAutoMode(ctx context.Context, query string, limit int) Mode {
	if extractInheritsTarget(query) != "" {
		return ModeInherits
	}
	if extractTraceTarget(query) != "" {
		return ModeTrace
	}
	if strings.HasPrefix(query, "/") && !strings.HasPrefix(query, "/Script/") {
		return ModeName
	}
	upper := strings.ToUpper(query)
	for _, p := range namePrefixes {
		if strings.HasPrefix(upper, p) {
			return ModeName
		}
	}
	lower := strings.ToLower(query)
	if strings.Contains(lower, "where") && (strings.Contains(lower, "used") || strings.Contains(lower, "placed")) {
		return ModeRefs
	}
	if shouldTryTagSearch(query) {
		if tagResults, err := e.store.SearchByTag(ctx, query, limit); err == nil && len(tagResults) > 0 {
			return ModeTags
		}
		return ModeSemantic
	}
	return ModeSemantic
}

func (e *Engine) searchTags(ctx context.Context, tagQuery string, limit int) []*Result {
	if tagQuery == "" {
		return nil
	}
	hits, err := e.store.SearchByTag(ctx, tagQuery, limit)
	if err != nil {
		return nil
	}
	out := make([]*Result, 0, len(hits))
	for _, h := range hits {
		out = append(out, &Result{
			Path: h.Path, Name: h.Name, Type: h.AssetType,
			Snippet: "Tag: " + h.Tag, Score: 1.0,
		})
	}
	return out
}

func (e *Engine) searchInherits(ctx context.Context, query string, limit int) []*Result {
	inheritsToken := extractInheritsTarget(query)
	if inheritsToken == "" {
		inheritsToken = strings.TrimSpace(query)
	}
	normalized, bareName := normalizeInheritsTargetToken(inheritsToken)

	var parentIDs []string
	seenParent := map[string]bool{}
	addParent := func(id string) {
		if !seenParent[id] {
			seenParent[id] = true
			parentIDs = append(parentIDs, id)
		}
	}
	if bareName != "" {
		addParent("class:" + bareName)
	}

	var targetPaths []string
	if strings.HasPrefix(normalized, "/") && !strings.HasPrefix(normalized, "/Script/") {
		targetPaths = []string{normalizeUEPath(normalized)}
	} else {
		targetPaths = resolveAssetPathsByToken(ctx, e.store, normalized, 5, rankOptions{})
	}
	for _, p := range targetPaths {
		if !strings.HasPrefix(p, "/Script/") {
			addParent("asset:" + p)
		}
	}

	if len(parentIDs) == 0 {
		return nil
	}
	children, err := e.store.FindChildrenOf(ctx, parentIDs, 4)
	if err != nil {
		return nil
	}
	parentDisplay := bareName
	if parentDisplay == "" {
		parentDisplay = normalized
	}
	if parentDisplay == "" {
		parentDisplay = "parent"
	}

	out := make([]*Result, 0, len(children))
	for _, c := range children {
		assetType := c.AssetType
		if assetType == "" {
			assetType = "Unknown"
		}
		depth := c.Depth
		if depth <= 0 {
			depth = 1
		}
		out = append(out, &Result{
			Path: c.Path, Name: c.Name, Type: assetType,
			Snippet: "Inherits from " + parentDisplay, Score: 1.0 / float64(depth),
		})
	}
	return out
}

func (e *Engine) searchTrace(ctx context.Context, query string, limit int) (*SystemTrace, []*Result) {
	traceLimit := limit
	if traceLimit < 10 {
		traceLimit = 10
	}
	traceToken := extractTraceTarget(query)
	if traceToken == "" {
		traceToken = strings.TrimSpace(query)
	}
	targetPaths := resolveAssetPathsByToken(ctx, e.store, traceToken, traceLimit, rankOptions{
		preferAssetTypes: []string{"WidgetBlueprint", "Blueprint", "DataAsset"},
		preferPrefixes:   []string{"W_", "WBP_", "B_", "BP_"},
	})
	if len(targetPaths) == 0 && strings.HasPrefix(traceToken, "/") {
		targetPaths = []string{normalizeUEPath(traceToken)}
	}
	if len(targetPaths) == 0 {
		return nil, nil
	}
	if len(targetPaths) > 3 {
		targetPaths = targetPaths[:3]
	}

	traceLimit2 := limit
	if traceLimit2 < 8 {
		traceLimit2 = 8
	}
	var firstTrace *SystemTrace
	var results []*Result
	for _, path := range targetPaths {
		trace, flat := buildAssetSystemTrace(ctx, e.store, e.profile, path, traceLimit2)
		if firstTrace == nil {
			firstTrace = trace
		}
		for i := range flat {
			results = append(results, &flat[i])
		}
	}
	return firstTrace, results
}

func (e *Engine) searchRefs(ctx context.Context, query string, assetTypes []string, limit int) []*Result {
	if m := whatsInLevelRE.FindStringSubmatch(query); m != nil {
		levelName := m[1]
		rows, err := e.store.SearchLightweightByPath(ctx, "%__ExternalActors__%"+levelName+"%", limit)
		if err != nil {
			return nil
		}
		out := make([]*Result, 0, len(rows))
		for _, row := range rows {
			var sourceBP string
			for _, ref := range row.References {
				if strings.Contains(ref, "/Game/") && !strings.Contains(ref, "__External") {
					sourceBP = ref
					break
				}
			}
			snippet := "In level " + levelName
			if sourceBP != "" {
				snippet += ", instance of " + sourceBP
			}
			out = append(out, &Result{Path: row.Path, Name: row.Name, Type: row.AssetType, Snippet: snippet, Score: 1.0})
		}
		return out
	}

	assetToken := ""
	if m := assetTokenRE.FindString(query); m != "" {
		assetToken = m
	}
	if assetToken == "" {
		if m := wherePhraseRE.FindStringSubmatch(query); m != nil {
			assetToken = strings.Trim(m[1], " ?\"'")
		}
	}
	if assetToken == "" {
		assetToken = strings.TrimSpace(query)
	}
	if assetToken == "" {
		return nil
	}

	targetPaths := resolveAssetPathsByToken(ctx, e.store, assetToken, intMax(limit, 10), rankOptions{})
	if len(targetPaths) == 0 {
		targetPaths = []string{assetToken}
	}

	var out []*Result
	seen := map[string]bool{}
	for _, targetPath := range targetPaths {
		if len(out) >= limit {
			break
		}
		refs, err := e.store.FindAssetsReferencing(ctx, targetPath, limit-len(out))
		if err != nil {
			continue
		}
		for _, ref := range refs {
			if seen[ref.Path] {
				continue
			}
			seen[ref.Path] = true
			snippet := "References " + targetPath
			if strings.Contains(ref.Path, "__ExternalActors__") {
				snippet = "Placed in level"
			}
			out = append(out, &Result{Path: ref.Path, Name: ref.Name, Type: ref.AssetType, Snippet: snippet, Score: 1.0})
		}
	}
	return out
}

func (e *Engine) searchName(ctx context.Context, query string, assetTypes []string, limit int) []*Result {
	isPrefixSearch := strings.HasSuffix(query, "_")
	queryLower := strings.ToLower(query)
	var out []*Result

	if isPrefixSearch {
		prefixAliases := map[string][]string{
			"BP_": {"BP_", "B_"}, "B_": {"B_", "BP_"},
			"WBP_": {"WBP_", "W_"}, "W_": {"W_", "WBP_"},
			"SM_": {"SM_", "S_"}, "SK_": {"SK_", "S_"},
			"S_": {"S_", "SM_", "SK_"},
		}
		prefixes, ok := prefixAliases[strings.ToUpper(query)]
		if !ok {
			prefixes = []string{query}
		}
		for _, prefix := range prefixes {
			docs, _ := e.store.SearchDocsByNamePrefix(ctx, prefix, limit)
			for _, d := range docs {
				assetType := d.AssetType
				if assetType == "" {
					assetType = "Unknown"
				}
				out = append(out, &Result{Path: d.Path, Name: d.Name, Type: assetType, Snippet: compactSnippetN(d.Text, 200), Score: 1.0})
			}
			lw, _ := e.store.SearchLightweightByName(ctx, prefix+"%", limit)
			for _, a := range lw {
				assetType := a.AssetType
				if assetType == "" {
					assetType = "Unknown"
				}
				out = append(out, &Result{Path: a.Path, Name: a.Name, Type: assetType, Score: 1.0})
			}
		}
		return out
	}

	if e.retriever != nil {
		bundle, err := e.retriever.Retrieve(ctx, query, retriever.Options{K: limit * 3, QueryType: retriever.QueryExact})
		if err == nil {
			for _, r := range bundle.Results {
				if r.Doc == nil || !strings.Contains(strings.ToLower(r.Doc.Name), queryLower) {
					continue
				}
				assetType := r.Doc.AssetType
				if assetType == "" {
					assetType = string(r.Doc.Type)
				}
				out = append(out, &Result{
					Path: r.Doc.Path, Name: r.Doc.Name, Type: assetType,
					Snippet: compactSnippetN(r.Doc.Text, 200), Score: r.Score,
				})
			}
		}
	}

	likePattern := "%" + query + "%"
	lw, _ := e.store.SearchLightweightByName(ctx, likePattern, limit)
	allowTypes := map[string]bool{}
	for _, t := range assetTypes {
		allowTypes[strings.ToLower(t)] = true
	}
	for _, a := range lw {
		if !strings.Contains(strings.ToLower(a.Name), queryLower) {
			continue
		}
		if len(allowTypes) > 0 && !allowTypes[strings.ToLower(a.AssetType)] {
			continue
		}
		assetType := a.AssetType
		if assetType == "" {
			assetType = "Unknown"
		}
		out = append(out, &Result{Path: a.Path, Name: a.Name, Type: assetType, Score: 0.9})
	}
	return out
}

func (e *Engine) searchSemantic(ctx context.Context, query string, limit int) []*Result {
	words := strings.Fields(strings.TrimSpace(query))
	isShortKeywordQuery := len(words) <= 2
	if isShortKeywordQuery {
		for _, w := range words {
			switch strings.ToLower(w) {
			case "how", "what", "why", "where", "when", "which", "explain":
				isShortKeywordQuery = false
			}
		}
	}
	if e.retriever == nil {
		return nil
	}
	qType := retriever.QuerySemantic
	if isShortKeywordQuery {
		qType = retriever.QueryExact
	}
	bundle, err := e.retriever.Retrieve(ctx, query, retriever.Options{K: limit, QueryType: qType})
	if err != nil {
		return nil
	}
	out := make([]*Result, 0, len(bundle.Results))
	for _, r := range bundle.Results {
		if r.Doc == nil {
			continue
		}
		assetType := r.Doc.AssetType
		if assetType == "" {
			assetType = string(r.Doc.Type)
		}
		out = append(out, &Result{
			Path: r.Doc.Path, Name: r.Doc.Name, Type: assetType,
			Snippet: compactSnippetN(r.Doc.Text, 220), Score: r.Score,
		})
	}
	return out
}

func dedupeByPath(results []*Result) []*Result {
	seen := map[string]*Result{}
	var order []string
	for _, r := range results {
		existing, ok := seen[r.Path]
		if !ok {
			seen[r.Path] = r
			order = append(order, r.Path)
			continue
		}
		if qualityLess(resultQualityKey(existing), resultQualityKey(r)) {
			seen[r.Path] = r
		}
	}
	out := make([]*Result, 0, len(order))
	for _, p := range order {
		out = append(out, seen[p])
	}
	return out
}

// enrichResults fetches full text for narrow result sets and returns the
// detail-level label (spec §4.7 enrichment).
func (e *Engine) enrichResults(ctx context.Context, results []*Result) string {
	if len(results) == 0 {
		return "summary"
	}
	for _, r := range results {
		docs, err := e.store.GetDocsByPath(ctx, r.Path)
		if err != nil || len(docs) == 0 {
			continue
		}
		r.Snippet = docs[0].Text
	}
	return "full"
}
