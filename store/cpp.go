package store

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bradenleague/ueassetindex/refnorm"
)

// uclassPattern extracts UCLASS(...) class [MODULE_API] Name [: public Parent]
// per spec §4.3; comments are not stripped first (unlike the original
// parser's preprocessing pass) since the scan is a lightweight
// class-name index, not a full extraction.
var uclassPattern = regexp.MustCompile(`(?s)UCLASS\s*\(([^)]*)\)\s*class\s+(?:\w+_API\s+)?(\w+)(?:\s*:\s*public\s+(\w+))?`)

var ustructPattern = regexp.MustCompile(`(?s)USTRUCT\s*\(([^)]*)\)\s*struct\s+(?:\w+_API\s+)?(\w+)`)

// CppClassEntry is one row of the cpp_class_index table.
type CppClassEntry struct {
	ClassName  string
	DocID      string
	SourcePath string
}

// ScanCppClasses walks Source/ and Plugins/*/Source/ under projectRoot
// for .h files, regex-extracts UCLASS/USTRUCT declarations, and upserts
// (class_name, doc_id=cpp_class:<name>, source_path=<rel>) rows (spec
// §4.3). Missing folders and unreadable files are tolerated.
func (s *Store) ScanCppClasses(ctx context.Context, projectRoot string) (int, error) {
	var roots []string
	sourceDir := filepath.Join(projectRoot, "Source")
	if info, err := os.Stat(sourceDir); err == nil && info.IsDir() {
		roots = append(roots, sourceDir)
	}
	pluginsDir := filepath.Join(projectRoot, "Plugins")
	if entries, err := os.ReadDir(pluginsDir); err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			pluginSource := filepath.Join(pluginsDir, e.Name(), "Source")
			if info, err := os.Stat(pluginSource); err == nil && info.IsDir() {
				roots = append(roots, pluginSource)
			}
		}
	}

	var entries []CppClassEntry
	for _, root := range roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // tolerate unreadable subtrees
			}
			if d.IsDir() || !strings.HasSuffix(path, ".h") {
				return nil
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return nil // tolerate malformed/unreadable files
			}
			rel, err := filepath.Rel(projectRoot, path)
			if err != nil {
				rel = path
			}
			rel = filepath.ToSlash(rel)

			for _, m := range uclassPattern.FindAllStringSubmatch(string(content), -1) {
				entries = append(entries, CppClassEntry{ClassName: m[2], DocID: "cpp_class:" + m[2], SourcePath: rel})
			}
			for _, m := range ustructPattern.FindAllStringSubmatch(string(content), -1) {
				entries = append(entries, CppClassEntry{ClassName: m[2], DocID: "cpp_class:" + m[2], SourcePath: rel})
			}
			return nil
		})
	}

	if len(entries) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin cpp class scan: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO cpp_class_index (class_name, doc_id, source_path)
			VALUES (?, ?, ?)`, e.ClassName, e.DocID, e.SourcePath); err != nil {
			return 0, fmt.Errorf("upsert cpp_class_index %s: %w", e.ClassName, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cpp class scan: %w", err)
	}
	return len(entries), nil
}

// ResolveCppSources generates candidate prefixed names for each input
// name (spec §3.3's prefix-probing rule via refnorm.ClassNameCandidates),
// looks each candidate up in cpp_class_index, and returns the first hit
// per input. Candidates shared between inputs resolve independently for
// each (spec §4.3).
func (s *Store) ResolveCppSources(ctx context.Context, classNames []string) (map[string]CppClassEntry, error) {
	out := make(map[string]CppClassEntry, len(classNames))
	for _, name := range classNames {
		for _, candidate := range refnorm.ClassNameCandidates(name) {
			var e CppClassEntry
			err := s.db.QueryRowContext(ctx,
				`SELECT class_name, doc_id, source_path FROM cpp_class_index WHERE class_name = ?`, candidate,
			).Scan(&e.ClassName, &e.DocID, &e.SourcePath)
			if err == nil {
				out[name] = e
				break
			}
		}
	}
	return out, nil
}
