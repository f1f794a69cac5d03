package search

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/bradenleague/ueassetindex/profile"
	"github.com/bradenleague/ueassetindex/store"
)

var visualAssetTypes = map[string]bool{
	"Material": true, "MaterialInstance": true, "MaterialFunction": true,
	"Texture": true, "Texture2D": true, "StaticMesh": true, "SkeletalMesh": true,
	"Sound": true, "SoundWave": true, "SoundCue": true,
	"NiagaraSystem": true, "ParticleSystem": true,
	"Animation": true, "AnimSequence": true, "AnimMontage": true,
}

var baseStructuralAssetTypes = map[string]bool{
	"WidgetBlueprint": true, "Blueprint": true, "DataAsset": true, "DataTable": true,
	"GameFeatureData": true, "InputAction": true, "InputMappingContext": true,
}

// structuralAssetTypes extends baseStructuralAssetTypes with a profile's
// game feature and semantic types (spec §4.7 trace mode classification).
func structuralAssetTypes(p *profile.Profile) map[string]bool {
	out := make(map[string]bool, len(baseStructuralAssetTypes))
	for t := range baseStructuralAssetTypes {
		out[t] = true
	}
	if p != nil {
		for _, t := range p.GameFeatureTypes {
			out[t] = true
		}
		for _, t := range p.SemanticTypes {
			out[t] = true
		}
	}
	return out
}

// classifyAssetDep buckets a dependency as "structural" or "visual" for
// system-trace grouping (spec §4.7).
func classifyAssetDep(p *profile.Profile, assetType, name string) string {
	if assetType != "" {
		if structuralAssetTypes(p)[assetType] || strings.Contains(assetType, "GameFeature") {
			return "structural"
		}
		if visualAssetTypes[assetType] {
			return "visual"
		}
	}
	upper := strings.ToUpper(name)
	for _, p := range []string{"B_", "BP_", "W_", "WBP_", "DA_", "DT_", "GE_", "GA_", "GCN_"} {
		if strings.HasPrefix(upper, p) {
			return "structural"
		}
	}
	return "visual"
}

// buildTokenAliases generates BP_/B_ and WBP_/W_ cross-aliases for a
// symbol token (spec §4.7, alias probing).
func buildTokenAliases(token string) []string {
	if token == "" {
		return nil
	}
	aliases := []string{token}
	add := func(v string) {
		for _, a := range aliases {
			if a == v {
				return
			}
		}
		if v != "" {
			aliases = append(aliases, v)
		}
	}
	upper := strings.ToUpper(token)
	switch {
	case strings.HasPrefix(upper, "BP_"):
		add("B_" + token[3:])
	case strings.HasPrefix(upper, "B_"):
		add("BP_" + token[2:])
	}
	switch {
	case strings.HasPrefix(upper, "WBP_"):
		add("W_" + token[4:])
	case strings.HasPrefix(upper, "W_"):
		add("WBP_" + token[2:])
	}
	return aliases
}

var tagShapeRE = regexp.MustCompile(`^[A-Z][A-Za-z0-9]+(\.[A-Z][A-Za-z0-9]*)+(\.\*)?$`)

// shouldTryTagSearch reports whether query looks like a dotted
// GameplayTag (spec §4.7).
func shouldTryTagSearch(query string) bool {
	if strings.HasPrefix(strings.ToLower(query), "tag:") {
		return true
	}
	return tagShapeRE.MatchString(query)
}

var traceTargetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)what\s+systems?\s+does\s+(.+?)\s+(?:talk\s+t(?:o|oo)|interact\s+with|use|depend\s+on)\??$`),
	regexp.MustCompile(`(?i)how\s+does\s+(.+?)\s+work\??$`),
	regexp.MustCompile(`(?i)trace\s+(.+?)\s+(?:systems?|flow|ownership)\??$`),
}

var leadingArticles = []string{"the ", "a ", "an "}

func stripLeadingArticle(s string) string {
	lower := strings.ToLower(s)
	for _, article := range leadingArticles {
		if strings.HasPrefix(lower, article) {
			return strings.TrimSpace(s[len(article):])
		}
	}
	return s
}

// extractTraceTarget pulls the target symbol out of a "how does X work"
// / "what systems does X talk to" style question (spec §4.7).
func extractTraceTarget(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	for _, re := range traceTargetPatterns {
		if m := re.FindStringSubmatch(query); m != nil {
			target := strings.Trim(m[1], " ?\"'")
			return stripLeadingArticle(target)
		}
	}
	lower := strings.ToLower(query)
	if strings.Contains(lower, "system") && strings.Contains(lower, "talk") {
		tokens := regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`).FindAllString(query, -1)
		if len(tokens) > 0 {
			return tokens[len(tokens)-1]
		}
	}
	return ""
}

var inheritsRE = regexp.MustCompile(`(?i)(?:what\s+)?(?:inherits?\s+from|subclass(?:es)?\s+of|children\s+of|class(?:es)?\s+extending)\s+(.+)`)

// extractInheritsTarget pulls the parent name/path out of an
// inheritance-style question (spec §4.7).
func extractInheritsTarget(query string) string {
	m := inheritsRE.FindStringSubmatch(strings.TrimSpace(query))
	if m == nil {
		return ""
	}
	target := strings.Trim(m[1], " ?\"'")
	return stripLeadingArticle(target)
}

// normalizeUEPath strips object-path class suffixes and _C anonymous
// class suffixes to get a bare package path (spec §4.7).
func normalizeUEPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "/") {
		return path
	}
	if strings.HasPrefix(path, "/Script/") {
		return path
	}
	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	if strings.Contains(last, ".") {
		path = strings.SplitN(path, ".", 2)[0]
	}
	path = strings.TrimSuffix(path, "_C")
	return path
}

// normalizeInheritsTargetToken strips a class:/asset: prefix and derives
// a bare class-like name from an inherits-target token (spec §4.7).
func normalizeInheritsTargetToken(token string) (normalized, bareName string) {
	normalized = strings.Trim(token, " ?\"'")
	for {
		lower := strings.ToLower(normalized)
		if strings.HasPrefix(lower, "class:") || strings.HasPrefix(lower, "asset:") {
			normalized = strings.TrimSpace(strings.SplitN(normalized, ":", 2)[1])
			continue
		}
		break
	}
	if strings.HasPrefix(normalized, "/") {
		normalized = normalizeUEPath(normalized)
	}

	segments := strings.Split(normalized, "/")
	bareName = segments[len(segments)-1]
	switch {
	case strings.HasPrefix(normalized, "/Script/") && strings.Contains(bareName, "."):
		parts := strings.Split(bareName, ".")
		bareName = parts[len(parts)-1]
	case strings.HasPrefix(normalized, "/") && strings.Contains(bareName, "."):
		bareName = strings.SplitN(bareName, ".", 2)[0]
	case strings.Contains(bareName, "."):
		parts := strings.Split(bareName, ".")
		bareName = parts[len(parts)-1]
	}
	bareName = strings.TrimSuffix(bareName, "_C")
	return normalized, bareName
}

type rankOptions struct {
	preferAssetTypes []string
	preferPrefixes   []string
}

// resolveAssetPathsByToken resolves a symbol-like input (bare class
// name, BP_ prefixed name, etc.) to concrete asset paths, ranking
// candidates by name match quality and the caller's preferences (spec
// §4.7 alias probing / trace target resolution).
func resolveAssetPathsByToken(ctx context.Context, s *store.Store, token string, limit int, opts rankOptions) []string {
	if token == "" {
		return nil
	}
	if strings.HasPrefix(token, "/Game/") {
		return []string{token}
	}

	aliases := buildTokenAliases(token)
	simple := strings.TrimSpace(token)
	if !strings.Contains(simple, "/") && !strings.Contains(simple, "_") && len(simple) > 2 {
		aliases = append(aliases, "W_"+simple, "WBP_"+simple, "BP_"+simple, "B_"+simple)
	}
	seenAlias := map[string]bool{}
	var aliasLowers []string
	for _, a := range aliases {
		lower := strings.ToLower(a)
		if a == "" || seenAlias[lower] {
			continue
		}
		seenAlias[lower] = true
		aliasLowers = append(aliasLowers, lower)
	}
	compactTarget := strings.ToLower(strings.ReplaceAll(simple, "_", ""))

	type candidate struct {
		path, name, assetType string
	}
	var candidates []candidate
	for _, alias := range aliasLowers {
		exact, err := s.SearchLightweightByName(ctx, alias, limit*3+20)
		if err == nil {
			for _, a := range exact {
				if strings.ToLower(a.Name) == alias {
					candidates = append(candidates, candidate{a.Path, a.Name, a.AssetType})
				}
			}
		}
	}
	if len(candidates) == 0 {
		for _, alias := range aliasLowers {
			like, err := s.SearchLightweightByName(ctx, "%"+alias+"%", limit*8+80)
			if err != nil {
				continue
			}
			for _, a := range like {
				candidates = append(candidates, candidate{a.Path, a.Name, a.AssetType})
			}
		}
	}

	preferPrefixes := make([]string, len(opts.preferPrefixes))
	for i, p := range opts.preferPrefixes {
		preferPrefixes[i] = strings.ToLower(p)
	}
	preferTypes := map[string]bool{}
	for _, t := range opts.preferAssetTypes {
		preferTypes[t] = true
	}

	rank := func(c candidate) float64 {
		name := strings.ToLower(c.name)
		score := 0.0
		for _, a := range aliasLowers {
			if name == a {
				score += 100
			}
		}
		if compactTarget != "" && strings.ReplaceAll(name, "_", "") == compactTarget {
			score += 45
		}
		for _, a := range aliasLowers {
			if strings.Contains(name, a) {
				score += 20
				break
			}
		}
		for _, p := range preferPrefixes {
			if strings.HasPrefix(name, p) {
				score += 12
				break
			}
		}
		if preferTypes[c.assetType] {
			score += 15
		}
		if strings.HasPrefix(c.path, "/Game/") {
			score += 2
		}
		return score
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := rank(candidates[i]), rank(candidates[j])
		if si != sj {
			return si > sj
		}
		return strings.ToLower(candidates[i].name) < strings.ToLower(candidates[j].name)
	})

	var resolved []string
	seen := map[string]bool{}
	for _, c := range candidates {
		if seen[c.path] {
			continue
		}
		seen[c.path] = true
		resolved = append(resolved, c.path)
		if len(resolved) >= limit {
			break
		}
	}
	return resolved
}

// buildOwnershipChain walks inbound edges upward from target to build a
// readable spawn/ownership chain string (spec §4.7).
func buildOwnershipChain(ctx context.Context, s *store.Store, p *profile.Profile, targetPath, targetName string, maxDepth int) string {
	chain := []string{targetName}
	currentPath := targetPath
	visited := map[string]bool{targetPath: true}

	for d := 0; d < maxDepth; d++ {
		type cand struct{ path, name, assetType string }
		var candidates []cand

		outgoing, _ := s.ListIncomingEdges(ctx, "asset:"+currentPath, 200)
		for _, e := range outgoing {
			if !visited[e.Path] {
				candidates = append(candidates, cand{e.Path, e.Name, e.AssetType})
			}
		}
		lwRefs, _ := s.FindAssetsReferencing(ctx, currentPath, 200)
		for _, r := range lwRefs {
			if !visited[r.Path] {
				candidates = append(candidates, cand{r.Path, r.Name, r.AssetType})
			}
		}
		if len(candidates) == 0 {
			break
		}

		structural := structuralAssetTypes(p)
		score := func(c cand) float64 {
			s := 0.0
			if structural[c.assetType] || strings.Contains(c.assetType, "GameFeature") {
				s += 10
			}
			if strings.Contains(c.name, "GameFeature") || strings.Contains(c.assetType, "GameFeature") {
				s += 5
			}
			s -= 0.1 * float64(d)
			return s
		}
		best := candidates[0]
		bestScore := score(best)
		for _, c := range candidates[1:] {
			if sc := score(c); sc > bestScore {
				best, bestScore = c, sc
			}
		}
		visited[best.path] = true
		name := best.name
		if name == "" {
			segs := strings.Split(best.path, "/")
			name = segs[len(segs)-1]
		}
		chain = append(chain, name)
		currentPath = best.path
	}

	if len(chain) <= 1 {
		return ""
	}
	reversed := make([]string, len(chain))
	for i, v := range chain {
		reversed[len(chain)-1-i] = v
	}
	return strings.Join(reversed, " -> ")
}

// SystemTrace is the compact dependency trace built for the "trace"
// search mode (spec §4.7).
type SystemTrace struct {
	TargetPath             string
	TargetName             string
	TargetType             string
	OwnershipChain         string
	Systems                []Result
	PossibleOwners         []Result
	InboundReferences      []Result
	StructuralDependencies []Result
	VisualDependencies     []Result
	UnresolvedScriptRefs   []string
	Note                   string
}

func clampResults(rs []Result, lo, hi int) []Result {
	max := hi
	if lo > max {
		max = lo
	}
	if len(rs) > max {
		return rs[:max]
	}
	return rs
}

// buildAssetSystemTrace builds a SystemTrace plus a flattened result
// list for a target asset path (spec §4.7).
func buildAssetSystemTrace(ctx context.Context, s *store.Store, p *profile.Profile, targetPath string, limit int) (*SystemTrace, []Result) {
	targetDocs, _ := s.GetDocsByPath(ctx, targetPath)

	targetName := lastPathSegment(targetPath)
	targetType := "Unknown"
	var sourceDocIDs []string
	if len(targetDocs) > 0 {
		targetName = targetDocs[0].Name
		if targetDocs[0].AssetType != "" {
			targetType = targetDocs[0].AssetType
		} else {
			targetType = string(targetDocs[0].Type)
		}
		for _, d := range targetDocs {
			sourceDocIDs = append(sourceDocIDs, d.DocID)
		}
	}

	var structuralDeps, visualDeps, inbound, owners []Result
	var unresolved []string
	seenAssets := map[string]bool{}
	seenInbound := map[string]bool{}

	if len(sourceDocIDs) > 0 {
		edges, _ := s.ListOutgoingEdges(ctx, sourceDocIDs)
		for _, e := range edges {
			toID := e.ToID
			edgeType := e.EdgeType
			if edgeType == "" {
				edgeType = "uses_asset"
			}
			if strings.HasPrefix(toID, "asset:") {
				depPath := strings.TrimPrefix(toID, "asset:")
				if depPath == targetPath || seenAssets[depPath] {
					continue
				}
				seenAssets[depPath] = true
				depName := e.Name
				if depName == "" {
					depName = lastPathSegment(depPath)
				}
				depType := e.AssetType
				if depType == "" {
					depType = e.Type
				}
				if depType == "" {
					depType = "Asset"
				}
				snippet := compactSnippet(e.Text)
				if edgeType != "uses_asset" {
					score := 1.5
					switch edgeType {
					case "registers_widget", "adds_component", "uses_layout", "maps_input", "targets_actor":
						score = 1.8
					}
					if snippet == "" {
						snippet = "Referenced by " + targetName
					}
					structuralDeps = append(structuralDeps, Result{
						Path: e.Path, Name: depName, Type: depType,
						Snippet: snippet, Score: score, Relationship: edgeType,
					})
				} else if classifyAssetDep(p, e.AssetType, depName) == "structural" {
					if snippet == "" {
						snippet = "Referenced by " + targetName
					}
					structuralDeps = append(structuralDeps, Result{
						Path: e.Path, Name: depName, Type: depType,
						Snippet: snippet, Score: 1.8, Relationship: "structural_dependency",
					})
				} else {
					if snippet == "" {
						snippet = "Referenced by " + targetName
					}
					visualDeps = append(visualDeps, Result{
						Path: e.Path, Name: depName, Type: depType,
						Snippet: snippet, Score: 1.0, Relationship: "visual_dependency",
					})
				}
				continue
			}
			if strings.HasPrefix(toID, "script:") {
				scriptRef := strings.TrimPrefix(toID, "script:")
				if strings.HasPrefix(scriptRef, "/Script/") {
					unresolved = append(unresolved, scriptRef)
				}
			}
		}

		inRows, _ := s.ListIncomingEdges(ctx, "asset:"+targetPath, intMax(limit, 12))
		for _, row := range inRows {
			if seenInbound[row.Path] {
				continue
			}
			seenInbound[row.Path] = true
			edgeType := row.EdgeType
			if edgeType == "" {
				edgeType = "uses_asset"
			}
			relationship := "inbound_ref"
			if edgeType != "uses_asset" {
				relationship = edgeType
			}
			snippet := compactSnippet(row.Text)
			if snippet == "" {
				snippet = "References " + targetName
			}
			assetType := row.AssetType
			if assetType == "" {
				assetType = row.Type
			}
			if assetType == "" {
				assetType = "Unknown"
			}
			inbound = append(inbound, Result{
				Path: row.Path, Name: row.Name, Type: assetType,
				Snippet: snippet, Score: 1.7, Relationship: relationship,
			})
		}
	}

	lwRows, _ := s.FindAssetsReferencing(ctx, targetPath, intMax(limit, 12))
	for _, row := range lwRows {
		if seenInbound[row.Path] {
			continue
		}
		seenInbound[row.Path] = true
		assetType := row.AssetType
		if assetType == "" {
			assetType = "Unknown"
		}
		inbound = append(inbound, Result{
			Path: row.Path, Name: row.Name, Type: assetType,
			Snippet: "References " + targetPath, Score: 1.6, Relationship: "inbound_ref",
		})
	}

	var note string
	if len(inbound) == 0 {
		note = "Direct owner callsites may be empty when widget attachment is runtime-driven (HUD layout/extension registration)."
	}

	structuralDeps = clampResults(structuralDeps, 4, intMin(limit, 12))
	visualDeps = clampResults(visualDeps, 4, intMin(limit, 12))
	inbound = clampResults(inbound, 4, intMin(limit, 12))
	owners = clampResults(owners, 4, intMin(limit, 8))
	sort.Strings(unresolved)
	unresolved = dedupStringsSorted(unresolved)
	if len(unresolved) > 12 {
		unresolved = unresolved[:12]
	}

	ownershipChain := buildOwnershipChain(ctx, s, p, targetPath, targetName, 4)

	trace := &SystemTrace{
		TargetPath: targetPath, TargetName: targetName, TargetType: targetType,
		OwnershipChain:         ownershipChain,
		PossibleOwners:         owners,
		InboundReferences:      inbound,
		StructuralDependencies: structuralDeps,
		VisualDependencies:     visualDeps,
		UnresolvedScriptRefs:   unresolved,
		Note:                   note,
	}

	var flattened []Result
	flattened = append(flattened, inbound...)
	flattened = append(flattened, owners...)
	flattened = append(flattened, structuralDeps...)
	flattened = append(flattened, visualDeps...)
	return trace, flattened
}

func lastPathSegment(path string) string {
	segs := strings.Split(path, "/")
	return segs[len(segs)-1]
}

func intMax(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func intMin(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func dedupStringsSorted(in []string) []string {
	out := in[:0]
	var prev string
	first := true
	for _, v := range in {
		if !first && v == prev {
			continue
		}
		out = append(out, v)
		prev = v
		first = false
	}
	return out
}
