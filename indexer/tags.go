package indexer

import "sort"

const maxTagWalkDepth = 10

// getTagName extracts a GameplayTag's name from a {"TagName": ...}
// shaped property value, treating the literal string "None" as absent
// (spec §4.5 GameplayTag collection).
func getTagName(data map[string]any, key string) string {
	raw, ok := data[key]
	if !ok {
		return ""
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return ""
	}
	tag, _ := m["TagName"].(string)
	if tag == "None" {
		return ""
	}
	return tag
}

// extractGameplayTags recursively walks an inspect result looking for
// {"_type": "GameplayTag", "TagName": ...} and {"_type":
// "GameplayTagContainer", "tags": [...]}, returning a deduplicated,
// sorted list (spec §4.5 GameplayTag collection).
func extractGameplayTags(data any) []string {
	tags := walkGameplayTags(data, 0)
	seen := map[string]bool{}
	var out []string
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func walkGameplayTags(data any, depth int) []string {
	if depth > maxTagWalkDepth {
		return nil
	}
	switch v := data.(type) {
	case map[string]any:
		switch v["_type"] {
		case "GameplayTag":
			if tag, _ := v["TagName"].(string); tag != "" && tag != "None" {
				return []string{tag}
			}
			return nil
		case "GameplayTagContainer":
			var out []string
			if rawTags, ok := v["tags"].([]any); ok {
				for _, t := range rawTags {
					if s, ok := t.(string); ok && s != "" && s != "None" {
						out = append(out, s)
					}
				}
			}
			for k, vv := range v {
				if k == "_type" || k == "tags" {
					continue
				}
				out = append(out, walkGameplayTags(vv, depth+1)...)
			}
			return out
		default:
			var out []string
			for _, vv := range v {
				out = append(out, walkGameplayTags(vv, depth+1)...)
			}
			return out
		}
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, walkGameplayTags(item, depth+1)...)
		}
		return out
	default:
		return nil
	}
}
