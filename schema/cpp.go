package schema

import (
	"fmt"
	"strings"
)

// SourceFileInput is the constructor input for the source_file variant.
type SourceFileInput struct {
	RelPath    string
	ClassNames []string
	Includes   []string
}

// NewSourceFile builds the source_file doc, embedding the discovered
// class names and includes so FTS can hit a header directly (spec §4.2).
func NewSourceFile(in SourceFileInput) *DocChunk {
	text := fmt.Sprintf(
		"Source file %s. Declares classes: %s. Includes: %s.",
		in.RelPath,
		joinFirstN(in.ClassNames, 20, ", "),
		joinFirstN(in.Includes, 20, ", "),
	)
	c := &DocChunk{
		DocID:     "source:" + in.RelPath,
		Type:      TypeSourceFile,
		Path:      in.RelPath,
		Name:      in.RelPath,
		Text:      text,
		Module:    ModuleFromSourcePath(in.RelPath),
		AssetType: "SourceFile",
		Metadata: map[string]any{
			"class_names": in.ClassNames,
			"includes":    in.Includes,
		},
	}
	return finalize(c)
}

// CppClassInput is the constructor input for the cpp_class variant.
// Specifiers holds UCLASS/USTRUCT specifiers such as "BlueprintType".
type CppClassInput struct {
	ClassName   string
	RelPath     string
	ParentClass string
	IsStruct    bool
	Specifiers  []string
}

// NewCppClass builds the cpp_class doc. Its doc_id is looked up by the
// C++ class index to resolve Blueprint references to engine classes
// (spec §3.1, §4.3 cpp_class_index).
func NewCppClass(in CppClassInput) *DocChunk {
	kind := "class"
	if in.IsStruct {
		kind = "struct"
	}
	var parts []string
	parts = append(parts, fmt.Sprintf("C++ %s %s", kind, in.ClassName))
	if in.ParentClass != "" {
		parts = append(parts, fmt.Sprintf("inherits from %s", in.ParentClass))
	}
	if len(in.Specifiers) > 0 {
		parts = append(parts, fmt.Sprintf("Specifiers: %s", strings.Join(in.Specifiers, ", ")))
	}
	parts = append(parts, fmt.Sprintf("Declared in %s", in.RelPath))
	text := strings.Join(parts, ". ") + "."

	var refs []string
	var typedRefs map[string]string
	if in.ParentClass != "" {
		refs = []string{in.ParentClass}
		typedRefs = map[string]string{in.ParentClass: "inherits_from"}
	}

	c := &DocChunk{
		DocID:               "cpp_class:" + in.ClassName,
		Type:                TypeCppClass,
		Path:                in.RelPath,
		Name:                in.ClassName,
		Text:                text,
		Module:              ModuleFromSourcePath(in.RelPath),
		AssetType:           kind,
		ReferencesOut:       refs,
		TypedReferencesOut:  typedRefs,
		Metadata: map[string]any{
			"parent_class": in.ParentClass,
			"is_struct":    in.IsStruct,
			"specifiers":   in.Specifiers,
		},
	}
	return finalize(c)
}

// CppFuncInput is the constructor input for the cpp_func variant.
type CppFuncInput struct {
	ClassName  string
	FuncName   string
	Signature  string
	RelPath    string
	Specifiers []string
}

// NewCppFunc builds the cpp_func doc, embedding the full signature so
// FTS can hit it directly (spec §4.2).
func NewCppFunc(in CppFuncInput) *DocChunk {
	var parts []string
	parts = append(parts, fmt.Sprintf("Function %s::%s", in.ClassName, in.FuncName))
	parts = append(parts, fmt.Sprintf("Signature: %s", in.Signature))
	if len(in.Specifiers) > 0 {
		parts = append(parts, fmt.Sprintf("Specifiers: %s", strings.Join(in.Specifiers, ", ")))
	}
	text := strings.Join(parts, ". ") + "."

	c := &DocChunk{
		DocID:     fmt.Sprintf("cpp_func:%s::%s", in.ClassName, in.FuncName),
		Type:      TypeCppFunc,
		Path:      in.RelPath,
		Name:      in.FuncName,
		Text:      text,
		Module:    ModuleFromSourcePath(in.RelPath),
		AssetType: "Function",
		Metadata: map[string]any{
			"class_name": in.ClassName,
			"signature":  in.Signature,
			"specifiers": in.Specifiers,
		},
	}
	return finalize(c)
}

// CppPropertyInput is the constructor input for the cpp_property variant.
type CppPropertyInput struct {
	ClassName  string
	PropName   string
	PropType   string
	RelPath    string
	Specifiers []string
}

// NewCppProperty builds the cpp_property doc (spec §4.2).
func NewCppProperty(in CppPropertyInput) *DocChunk {
	var parts []string
	parts = append(parts, fmt.Sprintf("Property %s::%s of type %s", in.ClassName, in.PropName, in.PropType))
	if len(in.Specifiers) > 0 {
		parts = append(parts, fmt.Sprintf("Specifiers: %s", strings.Join(in.Specifiers, ", ")))
	}
	text := strings.Join(parts, ". ") + "."

	c := &DocChunk{
		DocID:     fmt.Sprintf("cpp_prop:%s::%s", in.ClassName, in.PropName),
		Type:      TypeCppProperty,
		Path:      in.RelPath,
		Name:      in.PropName,
		Text:      text,
		Module:    ModuleFromSourcePath(in.RelPath),
		AssetType: "Property",
		Metadata: map[string]any{
			"class_name": in.ClassName,
			"prop_type":  in.PropType,
			"specifiers": in.Specifiers,
		},
	}
	return finalize(c)
}
