package indexer

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// walkUAssets returns every *.uasset file under root. When recursive is
// false only root's immediate children are considered. exclude entries
// are shell glob patterns matched against the path relative to root
// (spec §4.5 Phase 0).
func walkUAssets(root string, recursive bool, exclude []string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".uasset") {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if matchesAny(rel, exclude) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func matchesAny(rel string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
		if strings.Contains(rel, strings.Trim(p, "*")) && strings.Contains(p, "*") {
			return true
		}
	}
	return false
}
