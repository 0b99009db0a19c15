package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/csvscope-cli/internal/analysis"
	"github.com/KaramelBytes/csvscope-cli/internal/charts"
	"github.com/KaramelBytes/csvscope-cli/internal/quality"
)

// summaryRows caps the statistical summary table.
const summaryRows = 10

// Dashboard collects everything one report shows. Nil parts are skipped.
type Dashboard struct {
	Source      string
	Rows        int
	Cols        int
	Quality     *quality.Report
	Cleaning    *analysis.CleanResult
	Summary     []analysis.ColumnStats
	Correlation *analysis.CorrMatrix
	Charts      []*charts.Chart
	Generated   time.Time
}

// Render lays the dashboard out as a PDF.
func (d Dashboard) Render() *PDF {
	p := NewPDF()
	if !d.Generated.IsZero() {
		p.SetCreationDate(d.Generated)
	}

	p.AddSectionTitle("Dataset Summary")
	text := fmt.Sprintf("Total Rows: %d\nTotal Columns: %d", d.Rows, d.Cols)
	if d.Source != "" {
		text = "Source: " + d.Source + "\n" + text
	}
	p.AddText(text)

	if d.Quality != nil {
		p.AddSectionTitle("Data Quality Score")
		var b strings.Builder
		fmt.Fprintf(&b, "Score: %.1f/100 (%s)\n", d.Quality.Total, d.Quality.Label())
		for _, f := range d.Quality.Factors {
			b.WriteString(f.String())
			b.WriteByte('\n')
		}
		if recs := d.Quality.Recommendations(); len(recs) > 0 {
			b.WriteString("Recommendations:\n")
			for _, r := range recs {
				b.WriteString("- " + r + "\n")
			}
		}
		p.AddText(strings.TrimRight(b.String(), "\n"))
	}

	if d.Cleaning != nil && (len(d.Cleaning.Dropped) > 0 || len(d.Cleaning.Filled) > 0) {
		p.AddSectionTitle("Missing Value Handling")
		var lines []string
		if len(d.Cleaning.Dropped) > 0 {
			lines = append(lines, "Dropped columns: "+strings.Join(d.Cleaning.Dropped, ", "))
		}
		for _, f := range d.Cleaning.Filled {
			lines = append(lines, fmt.Sprintf("Filled %d nulls in %s with %s (%s)", f.Count, f.Column, f.Strategy, strconv.FormatFloat(f.Value, 'g', 6, 64)))
		}
		p.AddText(strings.Join(lines, "\n"))
	}

	if len(d.Summary) > 0 {
		header := []string{"Column", "Mean", "Median", "Null Count", "Unique Count", "Skewness"}
		var rows [][]string
		for i, s := range d.Summary {
			if i == summaryRows {
				break
			}
			rows = append(rows, []string{s.Column, s.Mean.String(), s.Median.String(),
				strconv.Itoa(s.NullCount), strconv.Itoa(s.UniqueCount), s.Skewness.String()})
		}
		p.AddTable("Statistical Summary (Top 10 Rows)", header, rows)
	}

	if d.Correlation != nil {
		header := append([]string{""}, d.Correlation.Columns...)
		rows := make([][]string, len(d.Correlation.Columns))
		for i, name := range d.Correlation.Columns {
			row := []string{name}
			for _, v := range d.Correlation.Values[i] {
				s := analysis.Stat(v)
				if s.Defined() {
					row = append(row, strconv.FormatFloat(v, 'f', 2, 64))
				} else {
					row = append(row, "NaN")
				}
			}
			rows[i] = row
		}
		p.AddTable("Correlation Matrix", header, rows)
	}

	for _, c := range d.Charts {
		header, rows := c.Table()
		p.AddTable(c.Title, header, rows)
	}
	return p
}

// WriteDashboard renders d and writes the PDF to w.
func WriteDashboard(w io.Writer, d Dashboard) error {
	return d.Render().Output(w)
}
