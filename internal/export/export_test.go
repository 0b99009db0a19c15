package export

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/csvscope-cli/internal/analysis"
	"github.com/KaramelBytes/csvscope-cli/internal/charts"
	"github.com/KaramelBytes/csvscope-cli/internal/quality"
)

func render(t *testing.T, p *PDF) string {
	t.Helper()
	p.pdf.SetCompression(false)
	var buf bytes.Buffer
	require.NoError(t, p.Output(&buf))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "%PDF-"), "missing PDF magic")
	return out
}

func TestPDF_HeaderFooterAndSections(t *testing.T) {
	p := NewPDF()
	p.AddSectionTitle("Dataset Summary")
	p.AddText("Total Rows: 3\nTotal Columns: 2")
	p.AddTable("Stats", []string{"Column", "Mean"}, [][]string{{"price", "2.5"}})
	out := render(t, p)

	assert.Contains(t, out, "(Data Insights Report)")
	assert.Contains(t, out, "(Page 1)")
	assert.Contains(t, out, "(Dataset Summary)")
	assert.Contains(t, out, "(Total Rows: 3)")
	assert.Contains(t, out, "(price)")
	assert.Equal(t, 1, p.PageCount())
}

func TestColumnGroups(t *testing.T) {
	assert.Nil(t, columnGroups(0))
	assert.Equal(t, [][]int{{0, 1, 2}}, columnGroups(3))
	assert.Equal(t, [][]int{{0, 1, 2, 3, 4, 5}}, columnGroups(6))
	assert.Equal(t, [][]int{{0, 1, 2, 3, 4, 5}, {0, 6}}, columnGroups(7))
}

func TestPDF_FitTruncatesLongCells(t *testing.T) {
	p := NewPDF()
	p.pdf.SetFont("Arial", "", 10)
	long := strings.Repeat("w", 60)
	got := p.fit(long, cellWidth-2)
	assert.True(t, strings.HasSuffix(got, ".."))
	assert.LessOrEqual(t, p.pdf.GetStringWidth(got), cellWidth-2)
	assert.Equal(t, "short", p.fit("short", cellWidth-2))
}

func TestDashboard_Render(t *testing.T) {
	rep := &quality.Report{Total: 62.5, Factors: []quality.Factor{
		{ID: quality.FactorMissing, Label: "Missing values", Earned: 10, Max: 25, Detail: "60.0% missing"},
	}}
	d := Dashboard{
		Source:  "sales.csv",
		Rows:    3,
		Cols:    2,
		Quality: rep,
		Cleaning: &analysis.CleanResult{
			Dropped: []string{"notes"},
			Filled:  []analysis.Fill{{Column: "price", Strategy: "mean", Value: 2.5, Count: 1}},
		},
		Summary: []analysis.ColumnStats{{Column: "price", Mean: 2.5, Median: 2.5, NullCount: 1, UniqueCount: 2, Skewness: analysis.Stat(math.NaN())}},
		Correlation: &analysis.CorrMatrix{
			Columns: []string{"a", "b"},
			Values:  [][]float64{{1, 0.5}, {0.5, 1}},
		},
		Charts: []*charts.Chart{{
			Kind: charts.Bar, Title: "Bar Chart of city", Column: "city",
			Slices: []charts.Slice{{Label: "Oslo", Count: 2}},
		}},
		Generated: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	out := render(t, d.Render())
	for _, want := range []string{
		"(Source: sales.csv)",
		"(Data Quality Score)",
		"(Score: 62.5/100 \\(Fair\\))",
		"Consider handling missing values \\(imputation or removal\\))",
		"(Dropped columns: notes)",
		"(Statistical Summary \\(Top 10 Rows\\))",
		"(NaN)",
		"(Correlation Matrix)",
		"(0.50)",
		"(Bar Chart of city)",
		"(Oslo)",
	} {
		assert.Contains(t, out, want)
	}
}

func TestWriteDashboard_MinimalIsValid(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDashboard(&buf, Dashboard{Rows: 0, Cols: 0}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
