package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_HasComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(slog.LevelDebug, FormatText, &buf)
	New("ingest").Info("hello")
	assert.Contains(t, buf.String(), "component=ingest")
	assert.Contains(t, buf.String(), "hello")
}

func TestInit_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(slog.LevelInfo, FormatJSON, &buf)
	New("server").Info("json check")
	assert.Contains(t, buf.String(), `"level":"INFO"`)
	assert.Contains(t, buf.String(), `"component":"server"`)
}

func TestInit_LevelGating(t *testing.T) {
	var buf bytes.Buffer
	Init(slog.LevelWarn, FormatText, &buf)
	l := New("gate")
	l.Info("suppressed")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "suppressed")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
	assert.True(t, ValidFormat("cli"))
	assert.False(t, ValidFormat("xml"))
}

func TestCLIHandler_PrefixAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	Init(slog.LevelInfo, FormatCLI, &buf)
	New("score").Info("scored", "file", "a.csv", "total", 91.5)
	assert.Equal(t, "[score] scored: file=a.csv total=91.5\n", buf.String())
}

func TestCLIHandler_ColorOnlyWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewCLIHandler(&buf, slog.LevelInfo, true)).Error("boom")
	assert.Contains(t, buf.String(), colorRed)

	buf.Reset()
	slog.New(NewCLIHandler(&buf, slog.LevelInfo, false)).Error("boom")
	assert.Equal(t, "boom\n", buf.String())
}

func TestCLIHandler_WithAttrsKeepsExtra(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewCLIHandler(&buf, slog.LevelDebug, false)).With("component", "batch", "run", 2)
	l.Debug("start")
	assert.Equal(t, "[batch] start: run=2\n", buf.String())
}
