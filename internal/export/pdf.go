// Package export renders analysis results as a PDF report.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	reportTitle = "Data Insights Report"
	cellWidth   = 30.0
	rowHeight   = 8.0
	// maxTableCols is how many 30mm cells fit across an A4 page.
	maxTableCols = 6
)

// PDF is an A4 portrait report with a fixed header and page-numbered footer.
type PDF struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// NewPDF returns a report with its first page started.
func NewPDF() *PDF {
	f := fpdf.New("P", "mm", "A4", "")
	p := &PDF{pdf: f, tr: f.UnicodeTranslatorFromDescriptor("")}
	f.SetTitle(reportTitle, true)
	f.SetCreator("csvscope", true)
	f.SetHeaderFunc(func() {
		f.SetFont("Arial", "B", 14)
		f.CellFormat(0, 10, reportTitle, "", 1, "C", false, 0, "")
	})
	f.SetFooterFunc(func() {
		f.SetY(-15)
		f.SetFont("Arial", "I", 10)
		f.CellFormat(0, 10, fmt.Sprintf("Page %d", f.PageNo()), "", 0, "C", false, 0, "")
	})
	f.AddPage()
	return p
}

// SetCreationDate pins the document timestamp.
func (p *PDF) SetCreationDate(t time.Time) { p.pdf.SetCreationDate(t) }

// AddSectionTitle writes a bold heading preceded by a blank line.
func (p *PDF) AddSectionTitle(title string) {
	p.pdf.SetFont("Arial", "B", 12)
	p.pdf.Ln(10)
	p.pdf.CellFormat(0, 10, p.tr(title), "", 1, "", false, 0, "")
}

// AddText writes a wrapped paragraph. Newlines start new lines.
func (p *PDF) AddText(text string) {
	p.pdf.SetFont("Arial", "", 11)
	p.pdf.MultiCell(0, 10, p.tr(text), "", "", false)
}

// AddTable writes a titled grid of fixed-width cells. Tables wider than the
// page are split into column groups, each repeating the first column.
func (p *PDF) AddTable(title string, header []string, rows [][]string) {
	p.AddSectionTitle(title)
	p.pdf.SetFont("Arial", "", 10)
	for _, cols := range columnGroups(len(header)) {
		for _, j := range cols {
			p.cell(header[j])
		}
		p.pdf.Ln(-1)
		for _, row := range rows {
			for _, j := range cols {
				v := ""
				if j < len(row) {
					v = row[j]
				}
				p.cell(v)
			}
			p.pdf.Ln(-1)
		}
		p.pdf.Ln(4)
	}
}

func (p *PDF) cell(s string) {
	p.pdf.CellFormat(cellWidth, rowHeight, p.fit(p.tr(s), cellWidth-2), "1", 0, "", false, 0, "")
}

// fit shortens s with a trailing ".." until it fits in width.
func (p *PDF) fit(s string, width float64) string {
	if p.pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []byte(s)
	for len(r) > 0 && p.pdf.GetStringWidth(string(r)+"..") > width {
		r = r[:len(r)-1]
	}
	return string(r) + ".."
}

// columnGroups splits n columns into page-width groups that all start with column 0.
func columnGroups(n int) [][]int {
	if n == 0 {
		return nil
	}
	if n <= maxTableCols {
		g := make([]int, n)
		for i := range g {
			g[i] = i
		}
		return [][]int{g}
	}
	var out [][]int
	for start := 1; start < n; start += maxTableCols - 1 {
		g := []int{0}
		for j := start; j < n && j < start+maxTableCols-1; j++ {
			g = append(g, j)
		}
		out = append(out, g)
	}
	return out
}

// Output writes the finished document.
func (p *PDF) Output(w io.Writer) error {
	if err := p.pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// PageCount returns the number of pages so far.
func (p *PDF) PageCount() int { return p.pdf.PageCount() }
