package analysis

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/KaramelBytes/csvscope-cli/internal/dataset"
)

// Section selects one exploratory view of a dataset.
type Section uint8

const (
	SectionShape Section = 1 << iota
	SectionSample
	SectionInfo
	SectionDescribe
	SectionNullCounts
	SectionNumericColumns
	SectionCategoricalColumns

	AllSections = SectionShape | SectionSample | SectionInfo | SectionDescribe |
		SectionNullCounts | SectionNumericColumns | SectionCategoricalColumns
)

var sectionNames = []struct {
	s       Section
	name    string
	title   string
	aliases []string
}{
	{SectionShape, "shape", "Shape of Dataset", nil},
	{SectionSample, "sample", "Sample Data", nil},
	{SectionInfo, "info", "Info", nil},
	{SectionDescribe, "describe", "Describe", nil},
	{SectionNullCounts, "nulls", "Null Values Count", []string{"null-counts", "null_counts", "missing"}},
	{SectionNumericColumns, "numeric", "Numerical Columns", []string{"numerical", "numeric-columns", "numerical-columns"}},
	{SectionCategoricalColumns, "categorical", "Categorical Columns", []string{"categorical-columns", "text"}},
}

// Has reports whether every bit of o is set in s.
func (s Section) Has(o Section) bool { return s&o == o && o != 0 }

// Names returns the canonical names of the selected sections in display order.
func (s Section) Names() []string {
	var out []string
	for _, n := range sectionNames {
		if s.Has(n.s) {
			out = append(out, n.name)
		}
	}
	return out
}

// Title returns the display title of a single section.
func (s Section) Title() string {
	for _, n := range sectionNames {
		if n.s == s {
			return n.title
		}
	}
	return ""
}

// ParseSections maps names (canonical, alias or display title, case
// insensitive; "all" selects everything) to a section set.
func ParseSections(names []string) (Section, error) {
	var out Section
	for _, raw := range names {
		for _, part := range strings.Split(raw, ",") {
			key := strings.ToLower(strings.TrimSpace(part))
			if key == "" {
				continue
			}
			if key == "all" {
				out |= AllSections
				continue
			}
			s, ok := lookupSection(key)
			if !ok {
				return 0, fmt.Errorf("unknown section %q (valid: %s, all)", part, strings.Join(AllSections.Names(), ", "))
			}
			out |= s
		}
	}
	return out, nil
}

func lookupSection(key string) (Section, bool) {
	for _, n := range sectionNames {
		if key == n.name || key == strings.ToLower(n.title) {
			return n.s, true
		}
		for _, a := range n.aliases {
			if key == a {
				return n.s, true
			}
		}
	}
	return 0, false
}

// Shape is the row and column count.
type Shape struct {
	Rows int `json:"rows" yaml:"rows"`
	Cols int `json:"cols" yaml:"cols"`
}

// NullCount is the number of nulls in one column.
type NullCount struct {
	Column string `json:"column" yaml:"column"`
	Nulls  int    `json:"nulls" yaml:"nulls"`
}

// Table is a rectangular block of display strings.
type Table struct {
	Header []string   `json:"header" yaml:"header"`
	Rows   [][]string `json:"rows" yaml:"rows"`
}

// Insights holds the requested exploratory sections; unrequested ones are nil.
type Insights struct {
	Sections           Section     `json:"-" yaml:"-"`
	Shape              *Shape      `json:"shape,omitempty" yaml:"shape,omitempty"`
	Sample             *Table      `json:"sample,omitempty" yaml:"sample,omitempty"`
	Info               string      `json:"info,omitempty" yaml:"info,omitempty"`
	Describe           *Describe   `json:"describe,omitempty" yaml:"describe,omitempty"`
	NullCounts         []NullCount `json:"null_counts,omitempty" yaml:"null_counts,omitempty"`
	NumericColumns     []string    `json:"numeric_columns,omitempty" yaml:"numeric_columns,omitempty"`
	CategoricalColumns []string    `json:"categorical_columns,omitempty" yaml:"categorical_columns,omitempty"`
}

// SampleSize is the number of rows drawn for the sample section.
const SampleSize = 5

// ComputeInsights computes only the sections in want. The sample draws
// min(5, rows) distinct rows using seed.
func ComputeInsights(ds *dataset.Dataset, want Section, seed int64) *Insights {
	in := &Insights{Sections: want}
	if want.Has(SectionShape) {
		in.Shape = &Shape{Rows: ds.NumRows(), Cols: ds.NumCols()}
	}
	if want.Has(SectionSample) {
		in.Sample = sampleTable(ds, seed)
	}
	if want.Has(SectionInfo) {
		in.Info = Info(ds)
	}
	if want.Has(SectionDescribe) {
		in.Describe = DescribeDataset(ds)
	}
	if want.Has(SectionNullCounts) {
		in.NullCounts = make([]NullCount, 0, ds.NumCols())
		for i := range ds.Columns {
			in.NullCounts = append(in.NullCounts, NullCount{Column: ds.Columns[i].Name, Nulls: ds.Columns[i].NullCount()})
		}
	}
	if want.Has(SectionNumericColumns) {
		in.NumericColumns = columnNames(ds.ColumnsOf(dataset.KindNumeric))
	}
	if want.Has(SectionCategoricalColumns) {
		in.CategoricalColumns = columnNames(ds.ColumnsOf(dataset.KindCategorical))
	}
	return in
}

func columnNames(cols []*dataset.Column) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, c.Name)
	}
	return out
}

// SampleRows returns min(n, rows) distinct row indices in draw order.
func SampleRows(total, n int, seed int64) []int {
	if n > total {
		n = total
	}
	rng := rand.New(rand.NewSource(seed))
	return rng.Perm(total)[:n]
}

func sampleTable(ds *dataset.Dataset, seed int64) *Table {
	t := &Table{Header: append([]string{"#"}, ds.Names()...)}
	for _, i := range SampleRows(ds.NumRows(), SampleSize, seed) {
		t.Rows = append(t.Rows, append([]string{fmt.Sprint(i)}, ds.Row(i)...))
	}
	return t
}

// Info renders a column listing with non-null counts and dtypes.
func Info(ds *dataset.Dataset) string {
	var b strings.Builder
	rows := ds.NumRows()
	if rows == 0 {
		b.WriteString("RangeIndex: 0 entries\n")
	} else {
		fmt.Fprintf(&b, "RangeIndex: %d entries, 0 to %d\n", rows, rows-1)
	}
	fmt.Fprintf(&b, "Data columns (total %d columns):\n", ds.NumCols())
	width := len("Column")
	for _, c := range ds.Columns {
		width = max(width, len(c.Name))
	}
	fmt.Fprintf(&b, " %-3s %-*s  %-14s  %s\n", "#", width, "Column", "Non-Null Count", "Dtype")
	fmt.Fprintf(&b, " %-3s %-*s  %-14s  %s\n", "---", width, "------", "--------------", "-----")
	dtypes := map[string]int{}
	var order []string
	for i := range ds.Columns {
		c := &ds.Columns[i]
		dt := c.Kind.DType()
		if _, ok := dtypes[dt]; !ok {
			order = append(order, dt)
		}
		dtypes[dt]++
		fmt.Fprintf(&b, " %-3d %-*s  %-14s  %s\n", i, width, c.Name, fmt.Sprintf("%d non-null", c.NonNull()), dt)
	}
	parts := make([]string, len(order))
	for i, dt := range order {
		parts[i] = fmt.Sprintf("%s(%d)", dt, dtypes[dt])
	}
	fmt.Fprintf(&b, "dtypes: %s\n", strings.Join(parts, ", "))
	return b.String()
}

// Markdown renders the computed sections in the profile's bracketed style.
func (in *Insights) Markdown() string {
	var b strings.Builder
	first := true
	section := func(s Section) {
		if !first {
			b.WriteString("\n")
		}
		first = false
		fmt.Fprintf(&b, "[%s]\n", strings.ToUpper(s.Title()))
	}
	if in.Shape != nil {
		section(SectionShape)
		fmt.Fprintf(&b, "(%d, %d)\n", in.Shape.Rows, in.Shape.Cols)
	}
	if in.Sample != nil {
		section(SectionSample)
		writeTable(&b, in.Sample.Header, in.Sample.Rows)
	}
	if in.Sections.Has(SectionInfo) {
		section(SectionInfo)
		b.WriteString(in.Info)
	}
	if in.Describe != nil {
		section(SectionDescribe)
		writeDescribe(&b, in.Describe)
	}
	if in.Sections.Has(SectionNullCounts) {
		section(SectionNullCounts)
		for _, n := range in.NullCounts {
			fmt.Fprintf(&b, "- %s: %d\n", n.Column, n.Nulls)
		}
	}
	if in.Sections.Has(SectionNumericColumns) {
		section(SectionNumericColumns)
		fmt.Fprintf(&b, "%s\n", listOrNone(in.NumericColumns))
	}
	if in.Sections.Has(SectionCategoricalColumns) {
		section(SectionCategoricalColumns)
		fmt.Fprintf(&b, "%s\n", listOrNone(in.CategoricalColumns))
	}
	return b.String()
}

func listOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

// DescribeTable lays the describe statistics out with one row per statistic.
func DescribeTable(d *Describe) *Table {
	t := &Table{Header: []string{""}}
	if len(d.Numeric) > 0 {
		stats := []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}
		for _, c := range d.Numeric {
			t.Header = append(t.Header, c.Column)
		}
		for _, s := range stats {
			row := []string{s}
			for _, c := range d.Numeric {
				row = append(row, c.stat(s))
			}
			t.Rows = append(t.Rows, row)
		}
		return t
	}
	for _, c := range d.Categorical {
		t.Header = append(t.Header, c.Column)
	}
	for _, s := range []string{"count", "unique", "top", "freq"} {
		row := []string{s}
		for _, c := range d.Categorical {
			switch s {
			case "count":
				row = append(row, fmt.Sprint(c.Count))
			case "unique":
				row = append(row, fmt.Sprint(c.Unique))
			case "top":
				row = append(row, c.Top)
			default:
				row = append(row, fmt.Sprint(c.Freq))
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func (d NumericDescribe) stat(name string) string {
	var v Stat
	switch name {
	case "count":
		return fmt.Sprint(d.Count)
	case "mean":
		v = d.Mean
	case "std":
		v = d.Std
	case "min":
		v = d.Min
	case "25%":
		v = d.P25
	case "50%":
		v = d.P50
	case "75%":
		v = d.P75
	default:
		v = d.Max
	}
	if !v.Defined() {
		return "NaN"
	}
	return fmt.Sprintf("%.4g", float64(v))
}

func writeDescribe(b *strings.Builder, d *Describe) {
	t := DescribeTable(d)
	if len(t.Header) == 1 {
		b.WriteString("(no columns to describe)\n")
		return
	}
	writeTable(b, t.Header, t.Rows)
}
