// Package profile loads the declarative per-project configuration that
// tunes indexer reclassification and search behavior (spec §4.1).
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Profile is all project-specific configuration consumed by the indexer
// and search engine. It is immutable once loaded.
type Profile struct {
	Name string `json:"profile_name"`

	// ExportClassReclassify maps raw export class name -> final asset type.
	ExportClassReclassify map[string]string `json:"export_class_reclassify"`

	// NamePrefixes maps filename prefix -> asset type.
	NamePrefixes map[string]string `json:"name_prefixes"`

	// SemanticTypes is the set of asset types fully extracted, unioned
	// with the engine base set.
	SemanticTypes []string `json:"semantic_types"`

	// GameFeatureTypes routes these asset types to the game-feature extractor.
	GameFeatureTypes []string `json:"game_feature_types"`

	// BlueprintParentRedirects maps parent class name -> asset type, making
	// a Blueprint behave as that container type at extraction time.
	BlueprintParentRedirects map[string]string `json:"blueprint_parent_redirects"`

	// DataAssetExtractors whitelists classes with a registered per-class handler.
	DataAssetExtractors []string `json:"data_asset_extractors"`

	DeepRefExportClasses []string `json:"deep_ref_export_classes"`
	DeepRefCandidates    []string `json:"deep_ref_candidates"`

	WidgetRankTerms        []string `json:"widget_rank_terms"`
	WidgetFallbackPatterns []string `json:"widget_fallback_patterns"`
}

// SetDefaults fills nil maps so callers never need nil checks before
// indexing them; nil slices are left as they are.
func (p *Profile) SetDefaults() {
	if p.ExportClassReclassify == nil {
		p.ExportClassReclassify = map[string]string{}
	}
	if p.NamePrefixes == nil {
		p.NamePrefixes = map[string]string{}
	}
	if p.BlueprintParentRedirects == nil {
		p.BlueprintParentRedirects = map[string]string{}
	}
}

// rawProfile mirrors the on-disk JSON shape; kept separate from Profile
// so merging can operate on plain maps before typed decode.
type rawProfile map[string]json.RawMessage

func loadRaw(path string) (rawProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}
	var raw rawProfile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("profile: parse %s: %w", path, err)
	}
	return raw, nil
}

// mergeRaw merges overlay on top of defaults with per-key override
// semantics: a key present in overlay fully replaces the default value
// (lists are never concatenated), matching UnrealAgent/project_profile.py
// (_merge_profiles).
func mergeRaw(defaults, overlay rawProfile) rawProfile {
	merged := make(rawProfile, len(defaults)+len(overlay))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}

func decode(raw rawProfile) (*Profile, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("profile: remarshal: %w", err)
	}
	p := &Profile{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("profile: decode: %w", err)
	}
	p.SetDefaults()
	return p, nil
}

// Loader loads and caches profiles from a directory of "<name>.json"
// files with a mandatory "_defaults.json".
type Loader struct {
	dir string

	mu    sync.Mutex
	cache map[string]*Profile
}

// NewLoader creates a loader rooted at dir (the directory containing
// "_defaults.json" and any named overlay profiles).
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, cache: map[string]*Profile{}}
}

const defaultsProfileName = "_defaults"

// Load loads the named profile merged on top of engine defaults. An
// empty name (or "_defaults") returns defaults only.
func (l *Loader) Load(name string) (*Profile, error) {
	cacheKey := name
	if cacheKey == "" {
		cacheKey = defaultsProfileName
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if p, ok := l.cache[cacheKey]; ok {
		return p, nil
	}

	defaults, err := loadRaw(l.path(defaultsProfileName))
	if err != nil {
		return nil, err
	}

	merged := defaults
	if name != "" && name != defaultsProfileName {
		overlay, err := loadRaw(l.path(name))
		if err != nil {
			return nil, err
		}
		merged = mergeRaw(defaults, overlay)
	}

	p, err := decode(merged)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		p.Name = cacheKey
	}

	l.cache[cacheKey] = p
	return p, nil
}

func (l *Loader) path(name string) string {
	return l.dir + "/" + name + ".json"
}

// ClearCache drops all cached profiles (used by tests).
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = map[string]*Profile{}
}

// ParserTypeConfig extracts the subset of profile config the external
// parser needs, written to a sidecar JSON file so both sides agree on
// reclassification rules (spec §4.1).
type ParserTypeConfig struct {
	ExportClassReclassify map[string]string `json:"export_class_reclassify"`
	NamePrefixes          map[string]string `json:"name_prefixes"`
}

// ParserTypeConfigFor builds the sidecar config for p.
func ParserTypeConfigFor(p *Profile) ParserTypeConfig {
	return ParserTypeConfig{
		ExportClassReclassify: p.ExportClassReclassify,
		NamePrefixes:          p.NamePrefixes,
	}
}

// WriteSidecar writes the resolved parser type config to path as JSON.
func WriteSidecar(path string, p *Profile) error {
	cfg := ParserTypeConfigFor(p)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("profile: marshal sidecar: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("profile: write sidecar %s: %w", path, err)
	}
	return nil
}
