package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWriteFile_CreatesParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "a.json")
	require.NoError(t, SafeWriteFile(path, []byte("{}")))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	p, err := UniquePath(dir, "sales", ".score.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sales.score.json"), p)

	require.NoError(t, os.WriteFile(p, nil, 0o644))
	p2, err := UniquePath(dir, "sales", ".score.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sales__2.score.json"), p2)

	require.NoError(t, os.WriteFile(p2, nil, 0o644))
	p3, err := UniquePath(dir, "sales", ".score.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sales__3.score.json"), p3)
}

func TestStem(t *testing.T) {
	assert.Equal(t, "metrics", Stem("/tmp/d1/metrics.csv"))
	assert.Equal(t, "book", Stem("book.xlsx"))
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(b))
}
