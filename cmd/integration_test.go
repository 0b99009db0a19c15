package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = "region,units,price,notes\n" +
	"north,10,2.5,\n" +
	"south,12,3.0,\n" +
	"north,,2.75,late\n" +
	"east,8,100,\n" +
	"west,11,2.9,\n"

// resetFlags restores every flag to its default so state set by one
// invocation does not leak into the next.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			var def []string
			if s := strings.Trim(fl.DefValue, "[]"); s != "" {
				def = strings.Split(s, ",")
			}
			_ = sv.Replace(def)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// isolate points HOME at a temp dir so config and history stay per test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCLI_ScoreJSON(t *testing.T) {
	home := isolate(t)
	p := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)

	out := runCmd(t, "score", p, "--format", "json")
	var v scoreView
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "sales.csv", v.File)
	assert.Equal(t, 5, v.Rows)
	assert.Equal(t, 4, v.Cols)
	// 18.75 missing + 15 + 20 + 10 + 0.02 volume + 13.5 outliers
	assert.InDelta(t, 77.27, v.Total, 1e-9)
	assert.Equal(t, "Good", v.Label)
	assert.Len(t, v.Factors, 6)
	assert.Empty(t, v.Recommendations)
	assert.Empty(t, v.RunID)
}

func TestCLI_ScoreText(t *testing.T) {
	home := isolate(t)
	p := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)

	out := runCmd(t, "score", p)
	assert.Contains(t, out, "File: sales.csv (5 rows × 4 columns)")
	assert.Contains(t, out, "Score: 77.3/100 (Good)")
	assert.Contains(t, out, "- Outliers: 13.5/15 (2 numeric columns analysed)")
}

func TestCLI_ScoreRejections(t *testing.T) {
	home := isolate(t)

	_, err := execute(t, "score", writeFile(t, filepath.Join(home, "notes.txt"), "a,b\n1,2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid file format")

	_, err = execute(t, "score", writeFile(t, filepath.Join(home, "empty.csv"), ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CSV file has no data")

	_, err = execute(t, "score", writeFile(t, filepath.Join(home, "ok.csv"), salesCSV), "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported --format")
}

func TestCLI_ScoreRecordAndHistory(t *testing.T) {
	home := isolate(t)
	p := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)

	var v scoreView
	require.NoError(t, json.Unmarshal([]byte(runCmd(t, "score", p, "--record", "-f", "json")), &v))
	require.NotEmpty(t, v.RunID)
	assert.FileExists(t, filepath.Join(home, ".csvscope", "history.db"))

	var runs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(runCmd(t, "history", "--format", "json")), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, v.RunID, runs[0]["id"])
	assert.Equal(t, p, runs[0]["source"])
	assert.Equal(t, "Good", runs[0]["label"])

	text := runCmd(t, "history", v.RunID)
	assert.Contains(t, text, v.RunID)
	assert.Contains(t, text, "77.3 (Good)")

	_, err := execute(t, "history", "no-such-run")
	assert.Error(t, err)
}

func TestCLI_HistoryEmpty(t *testing.T) {
	isolate(t)
	assert.Equal(t, "No runs recorded\n", runCmd(t, "history"))
}

func TestCLI_ScoreBatch_SameNameAndIdenticalContent(t *testing.T) {
	home := isolate(t)
	// Two files with the same basename and content in different directories
	csv := "col1,col2\nA,1\nB,2\nC,3\n"
	writeFile(t, filepath.Join(home, "d1", "metrics.csv"), csv)
	writeFile(t, filepath.Join(home, "d2", "metrics.csv"), csv)
	outDir := filepath.Join(home, "reports")

	out := runCmd(t, "score-batch", filepath.Join(home, "d*", "metrics.csv"),
		"--output-dir", outDir, "--format", "json", "--parallel", "2")

	var items []batchItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, filepath.Join(home, "d1", "metrics.csv"), items[0].Path)
	assert.Equal(t, filepath.Join(home, "d2", "metrics.csv"), items[1].Path)
	assert.Equal(t, items[0].Score.Total, items[1].Score.Total)

	assert.FileExists(t, filepath.Join(outDir, "metrics.score.json"))
	assert.FileExists(t, filepath.Join(outDir, "metrics__2.score.json"))
}

func TestCLI_ScoreBatch_ReportsFailures(t *testing.T) {
	home := isolate(t)
	good := writeFile(t, filepath.Join(home, "good.csv"), salesCSV)
	bad := writeFile(t, filepath.Join(home, "bad.csv"), "a,b\n")

	out, err := execute(t, "score-batch", good, bad)
	require.Error(t, err)
	assert.Equal(t, "1 of 2 files failed", err.Error())
	assert.Contains(t, out, "bad.csv: ✗ CSV file is empty")
	assert.Contains(t, out, "good.csv: 77.3/100 (Good)")

	_, err = execute(t, "score-batch", filepath.Join(home, "*.nothing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input files matched")
}

func TestCLI_Analyze(t *testing.T) {
	home := isolate(t)
	p := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)

	out := runCmd(t, "analyze", p, "--correlations")
	assert.Contains(t, out, "[DATASET SUMMARY]")
	assert.Contains(t, out, "[SCHEMA]")
	assert.Contains(t, out, "[HEAD AND SAMPLE ROWS]")

	dest := filepath.Join(home, "out", "sales.summary.md")
	runCmd(t, "analyze", p, "--sample-rows", "0", "-o", dest)
	body, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "[HEAD AND SAMPLE ROWS]")
}

func TestCLI_Clean(t *testing.T) {
	home := isolate(t)
	p := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)
	dest := filepath.Join(home, "clean.csv")

	out := runCmd(t, "clean", p, "-o", dest)
	assert.Contains(t, out, "Dropped columns: notes")
	assert.Contains(t, out, "Filled 1 nulls in units with mean 10.25")

	body, err := os.ReadFile(dest)
	require.NoError(t, err)
	want := "region,units,price\n" +
		"north,10,2.5\n" +
		"south,12,3.0\n" +
		"north,10.25,2.75\n" +
		"east,8,100\n" +
		"west,11,2.9\n"
	assert.Equal(t, want, string(body))

	// important columns survive the drop threshold
	out = runCmd(t, "clean", p, "--important", "notes")
	assert.True(t, strings.HasPrefix(out, "region,units,price,notes\n"))

	_, err = execute(t, "clean", p, "--drop-threshold", "1.5")
	assert.Error(t, err)
}

func TestCLI_Insights(t *testing.T) {
	home := isolate(t)
	p := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)

	out := runCmd(t, "insights", p, "--section", "shape,categorical", "--format", "json")
	var in map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &in))
	assert.Equal(t, map[string]any{"rows": 5.0, "cols": 3.0}, in["shape"])
	assert.Equal(t, []any{"region"}, in["categorical_columns"])
	assert.NotContains(t, in, "sample")

	require.NoError(t, json.Unmarshal([]byte(runCmd(t, "insights", p, "-s", "shape", "--raw", "-f", "json")), &in))
	assert.Equal(t, map[string]any{"rows": 5.0, "cols": 4.0}, in["shape"])

	_, err := execute(t, "insights", p, "--section", "bogus")
	assert.Error(t, err)
}

func TestCLI_Chart(t *testing.T) {
	home := isolate(t)
	p := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)

	out := runCmd(t, "chart", p, "--kind", "pie", "--column", "region", "--format", "json")
	var c map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	slices := c["slices"].([]any)
	require.Len(t, slices, 4)
	first := slices[0].(map[string]any)
	assert.Equal(t, "north", first["label"])
	assert.Equal(t, 40.0, first["percent"])

	text := runCmd(t, "chart", p, "-k", "bar", "-c", "region")
	assert.Contains(t, text, "Bar Chart of region")

	_, err := execute(t, "chart", p, "--kind", "histogram", "--column", "region")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-numeric")

	_, err = execute(t, "chart", p, "--kind", "bar")
	assert.Error(t, err)
}

func TestCLI_Report(t *testing.T) {
	home := isolate(t)
	p := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)
	dest := filepath.Join(home, "dash.pdf")

	out := runCmd(t, "report", p, "-o", dest, "--chart", "histogram:units", "--chart", "correlation:units:price")
	assert.Contains(t, out, "score 77.3/100, Good")
	body, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))

	_, err = execute(t, "report", p, "-o", dest, "--chart", "bogus:units")
	assert.Error(t, err)
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := isolate(t)

	runCmd(t, "config", "set", "max_rows", "2")
	assert.FileExists(t, filepath.Join(home, ".csvscope", "config.yaml"))
	assert.Equal(t, "max_rows: 2\n", runCmd(t, "config", "show", "max_rows"))

	_, err := execute(t, "config", "set", "max_rows", "many")
	assert.Error(t, err)
	_, err = execute(t, "config", "set", "nope", "1")
	assert.Error(t, err)

	// the saved limit applies to later loads
	p := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)
	var v scoreView
	require.NoError(t, json.Unmarshal([]byte(runCmd(t, "score", p, "-f", "json")), &v))
	assert.Equal(t, 2, v.Rows)
}

func TestCLI_GlobalFlags(t *testing.T) {
	isolate(t)
	_, err := execute(t, "history", "--log-level", "loud")
	assert.Error(t, err)
	_, err = execute(t, "history", "--log-format", "xml")
	assert.Error(t, err)
	runCmd(t, "history", "--debug", "--log-format", "json")
}
