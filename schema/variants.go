package schema

import (
	"fmt"
	"sort"
	"strings"
)

// AssetSummaryInput is the constructor input for the asset_summary variant.
type AssetSummaryInput struct {
	Path          string
	Name          string
	AssetType     string
	WidgetCount   int
	FunctionCount int
	ParentClass   string
	Events        []string
	Functions     []string
	Components    []string
	Variables     []string
	Interfaces    []string
	ReferencesOut []string
	Module        string
}

// NewAssetSummary builds: "{name} is a {asset_type}[ inheriting from
// {parent}][ implementing {ifaces}][ containing {n} widgets]. Components:
// .... Events: .... Functions: .... Variables: ...." (spec §4.2).
func NewAssetSummary(in AssetSummaryInput) *DocChunk {
	var parts []string
	parts = append(parts, fmt.Sprintf("%s is a %s", in.Name, in.AssetType))

	if in.ParentClass != "" {
		parts = append(parts, fmt.Sprintf("inheriting from %s", in.ParentClass))
	}
	if len(in.Interfaces) > 0 {
		parts = append(parts, fmt.Sprintf("implementing %s", joinFirstN(in.Interfaces, 5, ", ")))
	}
	if in.WidgetCount > 0 {
		parts = append(parts, fmt.Sprintf("containing %d widgets", in.WidgetCount))
	}
	if len(in.Components) > 0 {
		parts = append(parts, fmt.Sprintf("Components: %s", joinFirstN(in.Components, 10, ", ")))
	}
	if len(in.Events) > 0 {
		parts = append(parts, fmt.Sprintf("Events: %s", joinFirstN(in.Events, 10, ", ")))
	}
	if len(in.Functions) > 0 {
		parts = append(parts, fmt.Sprintf("Functions: %s", joinFirstN(in.Functions, 10, ", ")))
	}
	if len(in.Variables) > 0 {
		parts = append(parts, fmt.Sprintf("Variables: %s", joinFirstN(in.Variables, 10, ", ")))
	}
	text := strings.Join(parts, ". ") + "."

	module := in.Module
	if module == "" {
		module = ModuleFromAssetPath(in.Path)
	}

	c := &DocChunk{
		DocID:     "asset:" + in.Path,
		Type:      TypeAssetSummary,
		Path:      in.Path,
		Name:      in.Name,
		Text:      text,
		Module:    module,
		AssetType: in.AssetType,
		Metadata: map[string]any{
			"widget_count":   in.WidgetCount,
			"function_count": in.FunctionCount,
			"parent_class":   in.ParentClass,
			"events":         firstN(in.Events, 15),
			"functions":      firstN(in.Functions, 15),
			"components":     firstN(in.Components, 15),
			"variables":      firstN(in.Variables, 15),
			"interfaces":     firstN(in.Interfaces, 10),
		},
		ReferencesOut: in.ReferencesOut,
	}
	return finalize(c)
}

// WidgetTreeInput is the constructor input for the umg_widget_tree variant.
type WidgetTreeInput struct {
	Path             string
	Name             string
	RootWidget       string
	WidgetNames      []string
	WidgetHierarchy  string
	ReferencesOut    []string
	Module           string
}

// NewWidgetTree builds: "Widget tree for {name}. Root widget: {root}.
// Contains widgets: .... Hierarchy: ..." (spec §4.2).
func NewWidgetTree(in WidgetTreeInput) *DocChunk {
	text := fmt.Sprintf(
		"Widget tree for %s. Root widget: %s. Contains widgets: %s. Hierarchy: %s",
		in.Name, in.RootWidget, joinFirstN(in.WidgetNames, 15, ", "), in.WidgetHierarchy,
	)

	module := in.Module
	if module == "" {
		module = ModuleFromAssetPath(in.Path)
	}

	c := &DocChunk{
		DocID:     fmt.Sprintf("widget:%s/WidgetTree", in.Path),
		Type:      TypeUMGWidgetTree,
		Path:      in.Path,
		Name:      in.Name + "/WidgetTree",
		Text:      text,
		Module:    module,
		AssetType: "WidgetBlueprint",
		Metadata: map[string]any{
			"root_widget":  in.RootWidget,
			"widget_names": in.WidgetNames,
			"widget_count": len(in.WidgetNames),
		},
		ReferencesOut: in.ReferencesOut,
	}
	return finalize(c)
}

// BPParameter is one Blueprint function parameter.
type BPParameter struct {
	Name      string
	Type      string
	Direction string // "in", "out", "return"
}

// BlueprintGraphInput is the constructor input for the bp_graph_summary variant.
type BlueprintGraphInput struct {
	Path               string
	AssetName          string
	FunctionName       string
	Flags              []string
	Calls              []string
	Variables          []string
	ReferencesOut      []string
	Module             string
	IsEvent            bool
	ControlFlow        map[string]any
	Parameters         []BPParameter
}

// NewBlueprintGraph builds: "{Function|Event} {fn} in {asset}. Flags:
// .... Parameters: .... Calls: .... Variables: ...[. Contains
// conditional logic ({complexity} complexity)]" (spec §4.2).
func NewBlueprintGraph(in BlueprintGraphInput) *DocChunk {
	funcType := "Function"
	if in.IsEvent {
		funcType = "Event"
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%s %s in %s", funcType, in.FunctionName, in.AssetName))

	if len(in.Flags) > 0 {
		parts = append(parts, fmt.Sprintf("Flags: %s", strings.Join(in.Flags, ", ")))
	}
	if len(in.Parameters) > 0 {
		dirPrefix := map[string]string{"in": "", "out": "out ", "return": "returns "}
		strs := make([]string, 0, len(in.Parameters))
		for _, p := range in.Parameters {
			strs = append(strs, fmt.Sprintf("%s%s: %s", dirPrefix[p.Direction], p.Name, p.Type))
		}
		parts = append(parts, fmt.Sprintf("Parameters: %s", strings.Join(strs, ", ")))
	}
	if len(in.Calls) > 0 {
		parts = append(parts, fmt.Sprintf("Calls: %s", joinFirstN(in.Calls, 10, ", ")))
	}
	if len(in.Variables) > 0 {
		parts = append(parts, fmt.Sprintf("Variables: %s", joinFirstN(in.Variables, 10, ", ")))
	}
	if hasBranches, _ := in.ControlFlow["has_branches"].(bool); hasBranches {
		complexity, _ := in.ControlFlow["complexity"].(string)
		if complexity == "" {
			complexity = "unknown"
		}
		parts = append(parts, fmt.Sprintf("Contains conditional logic (%s complexity)", complexity))
	}
	text := strings.Join(parts, ". ") + "."

	module := in.Module
	if module == "" {
		module = ModuleFromAssetPath(in.Path)
	}

	controlFlow := in.ControlFlow
	if controlFlow == nil {
		controlFlow = map[string]any{}
	}

	c := &DocChunk{
		DocID:     fmt.Sprintf("bp_func:%s::%s", in.Path, in.FunctionName),
		Type:      TypeBPGraphSummary,
		Path:      in.Path,
		Name:      in.FunctionName,
		Text:      text,
		Module:    module,
		AssetType: "Blueprint",
		Metadata: map[string]any{
			"flags":        in.Flags,
			"calls":        in.Calls,
			"variables":    in.Variables,
			"is_event":     in.IsEvent,
			"control_flow": controlFlow,
			"parameters":   in.Parameters,
		},
		ReferencesOut: in.ReferencesOut,
	}
	return finalize(c)
}

// MaterialParamsInput is the constructor input for the material_params variant.
type MaterialParamsInput struct {
	Path           string
	Name           string
	IsInstance     bool
	Parent         string
	Domain         string
	BlendMode      string
	ShadingModel   string
	ScalarParams   map[string]float64
	VectorParams   map[string][4]float64
	TextureParams  map[string]string
	StaticSwitches map[string]bool
	ReferencesOut  []string
	Module         string
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewMaterialParams builds the material_params doc, adding parent and
// referenced textures to references_out (spec §4.2).
func NewMaterialParams(in MaterialParamsInput) *DocChunk {
	matType := "Material"
	if in.IsInstance {
		matType = "MaterialInstance"
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%s %s", matType, in.Name))
	if in.Parent != "" {
		parts = append(parts, fmt.Sprintf("inherits from %s", in.Parent))
	}
	parts = append(parts, fmt.Sprintf("Domain: %s, Blend: %s, Shading: %s", in.Domain, in.BlendMode, in.ShadingModel))

	if len(in.ScalarParams) > 0 {
		keys := sortedKeys(in.ScalarParams)
		strs := make([]string, 0, 5)
		for _, k := range firstN(keys, 5) {
			strs = append(strs, fmt.Sprintf("%s=%v", k, in.ScalarParams[k]))
		}
		parts = append(parts, fmt.Sprintf("Scalar params: %s", strings.Join(strs, ", ")))
	}
	if len(in.VectorParams) > 0 {
		keys := sortedKeys(in.VectorParams)
		parts = append(parts, fmt.Sprintf("Vector params: %s", strings.Join(firstN(keys, 5), ", ")))
	}
	if len(in.TextureParams) > 0 {
		keys := sortedKeys(in.TextureParams)
		strs := make([]string, 0, 5)
		for _, k := range firstN(keys, 5) {
			strs = append(strs, fmt.Sprintf("%s=%v", k, in.TextureParams[k]))
		}
		parts = append(parts, fmt.Sprintf("Texture params: %s", strings.Join(strs, ", ")))
	}
	if len(in.StaticSwitches) > 0 {
		keys := sortedKeys(in.StaticSwitches)
		strs := make([]string, 0, 5)
		for _, k := range firstN(keys, 5) {
			strs = append(strs, fmt.Sprintf("%s=%v", k, in.StaticSwitches[k]))
		}
		parts = append(parts, fmt.Sprintf("Static switches: %s", strings.Join(strs, ", ")))
	}
	text := strings.Join(parts, ". ") + "."

	refs := append([]string{}, in.ReferencesOut...)
	if in.Parent != "" && !contains(refs, in.Parent) {
		refs = append([]string{in.Parent}, refs...)
	}
	for _, k := range sortedKeys(in.TextureParams) {
		texPath := in.TextureParams[k]
		if texPath != "" && strings.HasPrefix(texPath, "/") && !contains(refs, texPath) {
			refs = append(refs, texPath)
		}
	}

	module := in.Module
	if module == "" {
		module = ModuleFromAssetPath(in.Path)
	}

	assetType := "Material"
	if in.IsInstance {
		assetType = "MaterialInstance"
	}

	c := &DocChunk{
		DocID:     "material:" + in.Path,
		Type:      TypeMaterialParams,
		Path:      in.Path,
		Name:      in.Name,
		Text:      text,
		Module:    module,
		AssetType: assetType,
		Metadata: map[string]any{
			"is_instance":     in.IsInstance,
			"parent":          in.Parent,
			"domain":          in.Domain,
			"blend_mode":      in.BlendMode,
			"shading_model":   in.ShadingModel,
			"scalar_params":   in.ScalarParams,
			"vector_params":   in.VectorParams,
			"texture_params":  in.TextureParams,
			"static_switches": in.StaticSwitches,
		},
		ReferencesOut: refs,
	}
	return finalize(c)
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// MaterialFunctionIO is one input/output of a MaterialFunction.
type MaterialFunctionIO struct {
	Name string
	Type string // empty for outputs
}

// MaterialFunctionInput is the constructor input for the
// materialfunction_params variant.
type MaterialFunctionInput struct {
	Path           string
	Name           string
	Inputs         []MaterialFunctionIO
	Outputs        []MaterialFunctionIO
	ScalarParams   map[string]float64
	VectorParams   map[string][4]float64
	StaticSwitches map[string]bool
	ReferencesOut  []string
	Module         string
}

// NewMaterialFunction builds the materialfunction_params doc (spec §4.2).
func NewMaterialFunction(in MaterialFunctionInput) *DocChunk {
	var parts []string
	parts = append(parts, fmt.Sprintf("MaterialFunction %s", in.Name))

	if len(in.Inputs) > 0 {
		strs := make([]string, 0, 5)
		for _, i := range firstNIO(in.Inputs, 5) {
			strs = append(strs, fmt.Sprintf("%s(%s)", i.Name, i.Type))
		}
		parts = append(parts, fmt.Sprintf("Inputs: %s", strings.Join(strs, ", ")))
	}
	if len(in.Outputs) > 0 {
		strs := make([]string, 0, 5)
		for _, o := range firstNIO(in.Outputs, 5) {
			strs = append(strs, o.Name)
		}
		parts = append(parts, fmt.Sprintf("Outputs: %s", strings.Join(strs, ", ")))
	}
	if len(in.ScalarParams) > 0 {
		keys := sortedKeys(in.ScalarParams)
		strs := make([]string, 0, 5)
		for _, k := range firstN(keys, 5) {
			strs = append(strs, fmt.Sprintf("%s=%v", k, in.ScalarParams[k]))
		}
		parts = append(parts, fmt.Sprintf("Scalar params: %s", strings.Join(strs, ", ")))
	}
	if len(in.VectorParams) > 0 {
		keys := sortedKeys(in.VectorParams)
		parts = append(parts, fmt.Sprintf("Vector params: %s", strings.Join(firstN(keys, 5), ", ")))
	}
	if len(in.StaticSwitches) > 0 {
		keys := sortedKeys(in.StaticSwitches)
		strs := make([]string, 0, 5)
		for _, k := range firstN(keys, 5) {
			strs = append(strs, fmt.Sprintf("%s=%v", k, in.StaticSwitches[k]))
		}
		parts = append(parts, fmt.Sprintf("Static switches: %s", strings.Join(strs, ", ")))
	}
	text := strings.Join(parts, ". ") + "."

	module := in.Module
	if module == "" {
		module = ModuleFromAssetPath(in.Path)
	}

	c := &DocChunk{
		DocID:     "materialfunction:" + in.Path,
		Type:      TypeMaterialFunctionParam,
		Path:      in.Path,
		Name:      in.Name,
		Text:      text,
		Module:    module,
		AssetType: "MaterialFunction",
		Metadata: map[string]any{
			"inputs":         in.Inputs,
			"outputs":        in.Outputs,
			"scalar_params":  in.ScalarParams,
			"vector_params":  in.VectorParams,
			"static_switches": in.StaticSwitches,
			"input_count":    len(in.Inputs),
			"output_count":   len(in.Outputs),
			"param_count":    len(in.ScalarParams) + len(in.VectorParams) + len(in.StaticSwitches),
		},
		ReferencesOut: in.ReferencesOut,
	}
	return finalize(c)
}

func firstNIO(s []MaterialFunctionIO, n int) []MaterialFunctionIO {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// DataTableInput is the constructor input for the datatable variant.
type DataTableInput struct {
	Path          string
	Name          string
	RowStruct     string
	RowCount      int
	Columns       []string
	SampleKeys    []string
	ReferencesOut []string
	Module        string
}

// NewDataTable builds the datatable doc: row struct, row count, first
// 10 columns, first 5 row keys (spec §4.2).
func NewDataTable(in DataTableInput) *DocChunk {
	text := fmt.Sprintf(
		"DataTable %s with row struct %s, %d rows. Columns: %s. Sample keys: %s.",
		in.Name, in.RowStruct, in.RowCount,
		joinFirstN(in.Columns, 10, ", "),
		joinFirstN(in.SampleKeys, 5, ", "),
	)

	module := in.Module
	if module == "" {
		module = ModuleFromAssetPath(in.Path)
	}

	c := &DocChunk{
		DocID:     "asset:" + in.Path,
		Type:      TypeDataTable,
		Path:      in.Path,
		Name:      in.Name,
		Text:      text,
		Module:    module,
		AssetType: "DataTable",
		Metadata: map[string]any{
			"row_struct":  in.RowStruct,
			"row_count":   in.RowCount,
			"columns":     in.Columns,
			"sample_keys": in.SampleKeys,
		},
		ReferencesOut: in.ReferencesOut,
	}
	return finalize(c)
}
