package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeFingerprint_Idempotent(t *testing.T) {
	a := ComputeFingerprint("Hello World")
	b := ComputeFingerprint("  hello world  ")
	require.Equal(t, a, b, "trim+lowercase normalization must make these equal")
	require.Len(t, a, 16)
}

func TestComputeFingerprint_ChangesWithText(t *testing.T) {
	a := ComputeFingerprint("BP_Foo is a Blueprint")
	b := ComputeFingerprint("BP_Foo is a Blueprint.")
	require.NotEqual(t, a, b)
}

func TestModuleFromAssetPath(t *testing.T) {
	require.Equal(t, "UI", ModuleFromAssetPath("/Game/UI/HUD/Widget"))
	require.Equal(t, "MyPlugin", ModuleFromAssetPath("/MyPlugin/Foo/Bar"))
	require.Equal(t, "Unknown", ModuleFromAssetPath("/"))
}

func TestModuleFromSourcePath(t *testing.T) {
	require.Equal(t, "MyGame", ModuleFromSourcePath("Source/MyGame/Public/Foo.h"))
	require.Equal(t, "Foo", ModuleFromSourcePath("Plugins/Foo/Source/Foo/Public/Bar.h"))
	require.Equal(t, "Unknown", ModuleFromSourcePath("Weird/Path.h"))
}

func TestNewAssetSummary(t *testing.T) {
	c := NewAssetSummary(AssetSummaryInput{
		Path:        "/Game/Blueprints/BP_Foo",
		Name:        "BP_Foo",
		AssetType:   "Blueprint",
		ParentClass: "Actor",
		Events:      []string{"BeginPlay", "Tick"},
		Functions:   []string{"DoThing"},
	})
	require.Equal(t, "asset:/Game/Blueprints/BP_Foo", c.DocID)
	require.Equal(t, TypeAssetSummary, c.Type)
	require.Contains(t, c.Text, "BP_Foo is a Blueprint")
	require.Contains(t, c.Text, "inheriting from Actor")
	require.Contains(t, c.Text, "Events: BeginPlay, Tick")
	require.Equal(t, "Blueprints", c.Module)
	require.NotEmpty(t, c.Fingerprint)
	require.Equal(t, CurrentSchemaVersion, c.SchemaVersion)
}

func TestNewAssetSummary_FingerprintStable(t *testing.T) {
	build := func() *DocChunk {
		return NewAssetSummary(AssetSummaryInput{
			Path:      "/Game/BP_Foo",
			Name:      "BP_Foo",
			AssetType: "Blueprint",
		})
	}
	a := build()
	b := build()
	require.Equal(t, a.Fingerprint, b.Fingerprint)
}

func TestNewWidgetTree(t *testing.T) {
	c := NewWidgetTree(WidgetTreeInput{
		Path:        "/Game/UI/WBP_Hud",
		Name:        "WBP_Hud",
		RootWidget:  "CanvasPanel",
		WidgetNames: []string{"HealthBar", "AmmoCounter"},
	})
	require.Equal(t, TypeUMGWidgetTree, c.Type)
	require.Equal(t, "widget:/Game/UI/WBP_Hud/WidgetTree", c.DocID)
	require.Contains(t, c.Text, "Root widget: CanvasPanel")
	require.Contains(t, c.Text, "HealthBar")
}

func TestNewBlueprintGraph_Event(t *testing.T) {
	c := NewBlueprintGraph(BlueprintGraphInput{
		Path:         "/Game/Blueprints/BP_Foo",
		AssetName:    "BP_Foo",
		FunctionName: "BeginPlay",
		IsEvent:      true,
		Calls:        []string{"SetActorLocation"},
		ControlFlow:  map[string]any{"has_branches": true, "complexity": "low"},
	})
	require.Equal(t, TypeBPGraphSummary, c.Type)
	require.Contains(t, c.Text, "Event BeginPlay in BP_Foo")
	require.Contains(t, c.Text, "Contains conditional logic (low complexity)")
}

func TestNewMaterialParams_ParentAndTextureRefs(t *testing.T) {
	c := NewMaterialParams(MaterialParamsInput{
		Path:       "/Game/Materials/MI_Foo",
		Name:       "MI_Foo",
		IsInstance: true,
		Parent:     "/Game/Materials/M_Base",
		Domain:     "Surface",
		BlendMode:  "Opaque",
		TextureParams: map[string]string{
			"BaseColor": "/Game/Textures/T_Base",
		},
	})
	require.Equal(t, "material:/Game/Materials/MI_Foo", c.DocID)
	require.Contains(t, c.ReferencesOut, "/Game/Materials/M_Base")
	require.Contains(t, c.ReferencesOut, "/Game/Textures/T_Base")
}

func TestNewDataTable(t *testing.T) {
	c := NewDataTable(DataTableInput{
		Path:      "/Game/Data/DT_Items",
		Name:      "DT_Items",
		RowStruct: "FItemRow",
		RowCount:  42,
		Columns:   []string{"Name", "Price"},
	})
	require.Equal(t, TypeDataTable, c.Type)
	require.Contains(t, c.Text, "42 rows")
	require.Equal(t, 42, c.Metadata["row_count"])
}
