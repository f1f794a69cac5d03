package logx

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestComponent_TagsRecordsAndHandlesNilLogger(t *testing.T) {
	l := New(slog.LevelInfo)
	tagged := Component(l, "indexer")
	require.NotNil(t, tagged)

	require.NotPanics(t, func() {
		Component(nil, "search")
	})
}
