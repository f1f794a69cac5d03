package refnorm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"/Game/Foo/Bar":                    "asset:/Game/Foo/Bar",
		"/MyPlugin/Foo/Bar":                "asset:/MyPlugin/Foo/Bar",
		"/Game/Foo/Bar.Bar_C":              "asset:/Game/Foo/Bar",
		"(/Script/Engine, Actor, )":        "class:Actor",
		"/Script/Engine.Actor":             "class:Actor",
		"/Script/Engine":                   "class:Engine",
		"asset:/Game/Already":              "asset:/Game/Already",
		"class:Actor":                      "class:Actor",
	}
	for in, want := range cases {
		require.Equal(t, want, Normalize(in), "input=%q", in)
	}
}

func TestIsAlreadyPrefixed(t *testing.T) {
	require.False(t, IsAlreadyPrefixed("Actor"))
	require.True(t, IsAlreadyPrefixed("UObject"))
	require.False(t, IsAlreadyPrefixed("LyraCharacter"))
	require.False(t, IsAlreadyPrefixed(""))
	require.False(t, IsAlreadyPrefixed("x"))
}

func TestClassNameCandidates(t *testing.T) {
	require.Equal(t, []string{"AActor"}, ClassNameCandidates("AActor"))

	got := ClassNameCandidates("LyraCharacter")
	require.Len(t, got, 7)
	require.Contains(t, got, "ULyraCharacter")
	require.Contains(t, got, "ALyraCharacter")
	require.Contains(t, got, "FLyraCharacter")
}
