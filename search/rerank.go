package search

import (
	"regexp"
	"strings"
)

var (
	bpTokenRE  = regexp.MustCompile(`(?i)\b(bp_|b_)\w+`)
	wbpTokenRE = regexp.MustCompile(`(?i)\b(wbp_|w_)\w+`)
	dtTokenRE  = regexp.MustCompile(`(?i)\bdt_\w+`)
	matTokenRE = regexp.MustCompile(`(?i)\b(mi_|m_|mf_)\w+`)
)

// detectQueryIntents infers a coarse intent set used to bias reranking
// (spec §4.7).
func detectQueryIntents(query string) map[string]bool {
	q := strings.ToLower(query)
	intents := map[string]bool{}

	for _, t := range []string{"blueprint", "event", "function", "graph", "logic", "node", "call", "native", "c++", "cpp"} {
		if strings.Contains(q, t) {
			intents["blueprint"] = true
			break
		}
	}
	if bpTokenRE.MatchString(query) {
		intents["blueprint"] = true
	}

	for _, t := range []string{"widget", "umg", "hud", "ui"} {
		if strings.Contains(q, t) {
			intents["widget"] = true
			break
		}
	}
	if wbpTokenRE.MatchString(query) {
		intents["widget"] = true
	}

	if strings.Contains(q, "datatable") || dtTokenRE.MatchString(query) {
		intents["datatable"] = true
	}

	for _, t := range []string{"material", "shader", "surface", "instance"} {
		if strings.Contains(q, t) {
			intents["material"] = true
			break
		}
	}
	if matTokenRE.MatchString(query) {
		intents["material"] = true
	}

	for _, t := range []string{"where is", "used", "references", "depends on", "interact", "interaction"} {
		if strings.Contains(q, t) {
			intents["interaction"] = true
			break
		}
	}

	return intents
}

var rerankTokenRE = regexp.MustCompile(`[a-z0-9_]+`)

var rerankStopWords = map[string]bool{
	"the": true, "and": true, "or": true, "for": true, "with": true, "from": true,
	"into": true, "onto": true, "what": true, "when": true, "where": true,
	"which": true, "that": true, "this": true, "player": true, "level": true, "map": true,
}

// applySemanticReranking applies the intent-aware boost/demerit rules to
// results in place (spec §4.7).
func applySemanticReranking(results []*Result, query string) {
	intents := detectQueryIntents(query)
	queryLower := strings.ToLower(query)

	var queryTokens []string
	for _, tok := range rerankTokenRE.FindAllString(queryLower, -1) {
		if len(tok) >= 4 && !rerankStopWords[tok] {
			queryTokens = append(queryTokens, tok)
		}
	}

	for _, r := range results {
		resultType := strings.ToLower(r.Type)
		name := strings.ToLower(r.Name)
		snippet := strings.ToLower(r.Snippet)
		resultText := name + " " + snippet
		boost := 1.0

		if intents["blueprint"] {
			if resultType == "blueprint" || strings.Contains(resultType, "bp_graph") ||
				strings.HasPrefix(name, "bp_") || strings.HasPrefix(name, "b_") {
				boost *= 1.35
			}
			if strings.Contains(resultType, "material") {
				boost *= 0.88
			}
		}

		if intents["widget"] {
			if resultType == "widgetblueprint" || strings.Contains(resultType, "widget") ||
				strings.HasPrefix(name, "wbp_") || strings.HasPrefix(name, "w_") {
				boost *= 1.35
			}
		}

		if intents["datatable"] {
			if resultType == "datatable" {
				boost *= 1.4
			} else if strings.Contains(resultType, "material") {
				boost *= 0.9
			}
		}

		if intents["material"] {
			if strings.Contains(resultType, "material") ||
				strings.HasPrefix(name, "mi_") || strings.HasPrefix(name, "m_") || strings.HasPrefix(name, "mf_") {
				boost *= 1.25
			}
		}

		if intents["interaction"] {
			if resultType == "blueprint" || strings.Contains(resultType, "bp_graph") {
				boost *= 1.2
			}
		}

		if resultType == "blueprint" || resultType == "widgetblueprint" {
			hasUnknownParent := strings.Contains(snippet, "parent: unknown")
			hasMemberSignal := strings.Contains(snippet, "functions:") ||
				strings.Contains(snippet, "events:") || strings.Contains(snippet, "variables:")
			if hasUnknownParent && !hasMemberSignal {
				boost *= 0.6
			}
		}

		if len(queryTokens) > 0 {
			overlap := 0
			for _, tok := range queryTokens {
				if strings.Contains(resultText, tok) {
					overlap++
				}
			}
			switch overlap {
			case 0:
				boost *= 0.65
			case 1:
				boost *= 0.9
			default:
				boost *= 1.1
			}
		}

		if strings.Contains(name, "save") {
			mentionsSave := false
			for _, t := range []string{"save", "checkpoint", "respawn", "load"} {
				if strings.Contains(queryLower, t) {
					mentionsSave = true
					break
				}
			}
			if !mentionsSave {
				boost *= 0.65
			}
		}

		r.Score = r.Score * boost
	}
}

// normalizeOutputScores rescales scores into [0, 1] relative to the
// highest-scoring result (spec §4.7).
func normalizeOutputScores(results []*Result) {
	if len(results) == 0 {
		return
	}
	max := results[0].Score
	for _, r := range results[1:] {
		if r.Score > max {
			max = r.Score
		}
	}
	if max <= 0 {
		return
	}
	for _, r := range results {
		r.Score = r.Score / max
	}
}

// resultQualityKey is the tie-break ordering for deduplicating hits by
// path: score, then whether the type is known, then whether a snippet
// exists (spec §4.7).
func resultQualityKey(r *Result) [3]float64 {
	known := 0.0
	if r.Type != "" && strings.ToLower(r.Type) != "unknown" {
		known = 1
	}
	hasSnippet := 0.0
	if strings.TrimSpace(r.Snippet) != "" {
		hasSnippet = 1
	}
	return [3]float64{r.Score, known, hasSnippet}
}

func qualityLess(a, b [3]float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// compactSnippet collapses whitespace and trims a snippet to maxLen
// (spec §4.7).
func compactSnippet(text string) string {
	return compactSnippetN(text, 180)
}

func compactSnippetN(text string, maxLen int) string {
	if text == "" {
		return ""
	}
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxLen {
		return text[:maxLen]
	}
	return text
}
