package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Markdown renders a compact profile suitable for terminals or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", r.Name)
	}
	if r.Rows > 0 {
		if r.Processed > 0 && r.Processed < r.Rows {
			fmt.Fprintf(&b, "Rows: ~%d (processed %d)\n", r.Rows, r.Processed)
		} else {
			fmt.Fprintf(&b, "Rows: %d\n", r.Rows)
		}
	}
	fmt.Fprintf(&b, "Columns: %d\n\n", len(r.Cols))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		writeSchemaLine(&b, c)
	}
	r.writeGroups(&b)
	r.writeCorrelations(&b)
	r.writeSamples(&b)
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeSchemaLine(b *strings.Builder, c ColumnSummary) {
	missPct := 0.0
	if total := c.NonNull + c.Missing; total > 0 {
		missPct = float64(c.Missing) * 100.0 / float64(total)
	}
	name := safeName(c.Name)
	if c.Unit != "" {
		name = fmt.Sprintf("%s [%s]", name, c.Unit)
	}
	fmt.Fprintf(b, "- %s: %s (non-null %d, missing %.1f%%)", name, c.Kind, c.NonNull, missPct)
	switch c.Kind {
	case "numeric":
		fmt.Fprintf(b, " — min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std)
		if c.OutlierThreshold > 0 {
			fmt.Fprintf(b, "; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold)
			if c.OutliersMaxAbsZ > 0 {
				fmt.Fprintf(b, " (max |z|≈%.2f)", c.OutliersMaxAbsZ)
			}
		}
	case "categorical", "boolean":
		if len(c.TopValues) > 0 {
			b.WriteString(" — top: ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(b, "%s(%d)", safeVal(kv.Value), kv.Count)
			}
			if c.Unique > len(c.TopValues) {
				fmt.Fprintf(b, "; unique=%d", c.Unique)
			}
		}
	case "text":
		if len(c.ExampleTexts) > 0 {
			b.WriteString(" — e.g., ")
			for i, ex := range c.ExampleTexts {
				if i > 0 {
					b.WriteString(" | ")
				}
				b.WriteString(safeVal(ex))
			}
		}
	}
	b.WriteString("\n")
}

func (r *Report) writeGroups(b *strings.Builder) {
	if len(r.Groups) == 0 {
		return
	}
	b.WriteString("\n[GROUP-BY SUMMARY]\n")
	for _, g := range r.Groups {
		fmt.Fprintf(b, "- %s (n=%d)\n", g.Key, g.Size)
		keys := make([]string, 0, len(g.Metrics))
		for k := range g.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys[:min(6, len(keys))] {
			m := g.Metrics[k]
			fmt.Fprintf(b, "  • %s: mean %.4g (min %.4g, max %.4g)\n", k, m.Mean, m.Min, m.Max)
		}
	}
	hasPairs := false
	for _, g := range r.Groups {
		if len(g.CorrPairs) > 0 {
			hasPairs = true
			break
		}
	}
	if !hasPairs {
		return
	}
	b.WriteString("\n[PER-GROUP CORRELATIONS]\n")
	for _, g := range r.Groups {
		if len(g.CorrPairs) == 0 {
			continue
		}
		fmt.Fprintf(b, "- %s:\n", g.Key)
		for _, p := range g.CorrPairs[:min(8, len(g.CorrPairs))] {
			fmt.Fprintf(b, "  • %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
		}
	}
}

func (r *Report) writeCorrelations(b *strings.Builder) {
	if r.Corr == nil || len(r.Corr.Columns) < 2 {
		return
	}
	b.WriteString("\n[CORRELATIONS]\n")
	pairs := r.Corr.Pairs()
	sort.SliceStable(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	for _, p := range pairs[:min(10, len(pairs))] {
		fmt.Fprintf(b, "- %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
	}
}

// Pairs lists the upper triangle of the matrix in column order.
func (m *CorrMatrix) Pairs() []PairCorr {
	var out []PairCorr
	n := len(m.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	return out
}

func (r *Report) writeSamples(b *strings.Builder) {
	if len(r.Samples) == 0 {
		return
	}
	b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
	names := make([]string, len(r.Cols))
	for i, c := range r.Cols {
		names[i] = safeName(c.Name)
	}
	rows := make([][]string, len(r.Samples))
	for i, row := range r.Samples {
		cells := make([]string, len(r.Cols))
		for j := range cells {
			if j < len(row) {
				cells[j] = truncate(row[j], 80)
			}
		}
		rows[i] = cells
	}
	writeTable(b, names, rows)
}

// writeTable renders a pipe table; cells are escaped.
func writeTable(b *strings.Builder, header []string, rows [][]string) {
	writeRow := func(cells []string) {
		b.WriteString("| ")
		for i, c := range cells {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeVal(c))
		}
		b.WriteString(" |\n")
	}
	writeRow(header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, r := range rows {
		writeRow(r)
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
