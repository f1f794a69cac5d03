// Package refnorm implements reference-string normalization (spec §3.3):
// turning the various shapes the external parser emits into namespaced
// doc IDs before they touch the edges table.
package refnorm

import "strings"

// classPrefixLetters are the UE Unreal prefix letters used to decide
// whether a bare class name is "already prefixed" (second character
// uppercase, first one of these).
var classPrefixLetters = map[byte]bool{
	'U': true, 'A': true, 'F': true, 'E': true, 'S': true, 'I': true, 'T': true,
}

// Normalize converts an outgoing reference string (as emitted by the
// external parser) into a namespaced doc/edge-target ID:
//   - bare game path "/Game/Foo/Bar" or "/PluginName/Foo/Bar" -> "asset:<path>"
//   - "/Script/Module.Class" or "/Script/Module"               -> "class:<Class>"
//   - an already-namespaced "asset:"/"class:"/"material:"/"widget:" id is returned unchanged
//   - anything else falls back to "asset:<value>"
func Normalize(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ref
	}

	if hasKnownNamespace(ref) {
		return ref
	}

	if cleaned, isBareClass, ok := stripObjectTuple(ref); ok {
		if isBareClass {
			return "class:" + cleaned
		}
		ref = cleaned
	}

	ref = stripPackageSuffixAndBlueprintClass(ref)

	if strings.HasPrefix(ref, "/Script/") {
		return "class:" + scriptClassSegment(ref)
	}

	return "asset:" + ref
}

func hasKnownNamespace(ref string) bool {
	for _, ns := range []string{"asset:", "class:", "material:", "widget:", "source:", "cpp_class:", "cpp_func:", "cpp_prop:", "bp_func:", "materialfunction:"} {
		if strings.HasPrefix(ref, ns) {
			return true
		}
	}
	return false
}

// stripObjectTuple handles UE object reference tuples of the shape
// "(Module, Path, Extra)". If the tuple carries a path-like segment
// that segment is returned for further normalization (isBareClass
// false). Otherwise, per spec §3.3, a tuple naming a /Script/ module
// alongside a bare class name (e.g. "(/Script/Engine, Actor, )")
// identifies a class reference directly: the bare name is returned
// with isBareClass true so the caller can skip straight to "class:".
func stripObjectTuple(ref string) (cleaned string, isBareClass bool, ok bool) {
	if !strings.HasPrefix(ref, "(") || !strings.HasSuffix(ref, ")") {
		return ref, false, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(ref, "("), ")")
	parts := strings.Split(inner, ",")
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "/Script/") {
			return p, false, true
		}
	}
	hasScriptModule := false
	for _, p := range parts {
		if strings.HasPrefix(strings.TrimSpace(p), "/Script/") {
			hasScriptModule = true
			break
		}
	}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" && !strings.HasPrefix(p, "/") {
			return p, hasScriptModule, true
		}
	}
	return ref, false, false
}

// scriptClassSegment extracts the class segment from
// "/Script/Module.Class" or "/Script/Module" (module-only -> module
// name, since there's no separate class segment).
func scriptClassSegment(ref string) string {
	rest := strings.TrimPrefix(ref, "/Script/")
	if idx := strings.Index(rest, "."); idx >= 0 {
		return rest[idx+1:]
	}
	return rest
}

// stripPackageSuffixAndBlueprintClass strips a trailing "_C" Blueprint
// class marker and a ".Path_C"/".Path" package suffix from object
// reference strings, e.g. "/Game/Foo/Bar.Bar_C" -> "/Game/Foo/Bar".
func stripPackageSuffixAndBlueprintClass(ref string) string {
	if !strings.HasPrefix(ref, "/") {
		return ref
	}
	if strings.HasPrefix(ref, "/Script/") {
		return ref
	}
	last := ref
	if idx := strings.LastIndex(ref, "/"); idx >= 0 {
		last = ref[idx+1:]
	}
	if dotIdx := strings.Index(last, "."); dotIdx >= 0 {
		base := ref[:len(ref)-len(last)]
		ref = base + last[:dotIdx]
	}
	ref = strings.TrimSuffix(ref, "_C")
	return ref
}

// IsAlreadyPrefixed reports whether name looks like an already-prefixed
// UE class name: second character uppercase and first one of U A F E S I T.
func IsAlreadyPrefixed(name string) bool {
	if len(name) < 2 {
		return false
	}
	if !classPrefixLetters[name[0]] {
		return false
	}
	return name[1] >= 'A' && name[1] <= 'Z'
}

// ClassNameCandidates generates the set of candidate prefixed class
// names for a bare name, per spec §3.3: if name is already prefixed,
// it is the sole candidate; otherwise each of U/A/F/E/S/I/T + name is
// generated.
func ClassNameCandidates(name string) []string {
	if name == "" {
		return nil
	}
	if IsAlreadyPrefixed(name) {
		return []string{name}
	}
	letters := []byte{'U', 'A', 'F', 'E', 'S', 'I', 'T'}
	out := make([]string, 0, len(letters))
	for _, l := range letters {
		out = append(out, string(l)+name)
	}
	return out
}
