// Package charts turns a dataset column into plot-ready data. Drawing is left
// to the caller.
package charts

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/csvscope-cli/internal/analysis"
	"github.com/KaramelBytes/csvscope-cli/internal/dataset"
	"github.com/KaramelBytes/csvscope-cli/internal/quality"
)

// Kind names a chart type.
type Kind string

const (
	Bar         Kind = "bar"
	Line        Kind = "line"
	Pie         Kind = "pie"
	Box         Kind = "box"
	Histogram   Kind = "histogram"
	Count       Kind = "count"
	Scatter     Kind = "scatter"
	Correlation Kind = "correlation"
)

// HistogramBins is the number of equal-width histogram bins.
const HistogramBins = 20

var kinds = []struct {
	k       Kind
	title   string
	aliases []string
}{
	{Bar, "Bar Chart", []string{"bar graph", "bar chart"}},
	{Line, "Line Chart", []string{"line chart", "line plot"}},
	{Pie, "Pie Chart", []string{"pie chart"}},
	{Box, "Box Plot", []string{"box plot", "boxplot"}},
	{Histogram, "Histogram", []string{"hist"}},
	{Count, "Count Plot", []string{"count plot"}},
	{Scatter, "Scatter Plot", []string{"scatter plot"}},
	{Correlation, "Correlation Heatmap", []string{"correlation heatmap", "corr"}},
}

// Kinds lists every chart kind in menu order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	for i, k := range kinds {
		out[i] = k.k
	}
	return out
}

// ParseKind accepts a kind name or its display title, case insensitive.
func ParseKind(s string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, k := range kinds {
		if key == string(k.k) || key == strings.ToLower(k.title) {
			return k.k, nil
		}
		for _, a := range k.aliases {
			if key == a {
				return k.k, nil
			}
		}
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k.k)
	}
	return "", fmt.Errorf("unknown chart kind %q (valid: %s)", s, strings.Join(names, ", "))
}

// Title is the display name of k.
func (k Kind) Title() string {
	for _, x := range kinds {
		if x.k == k {
			return x.title
		}
	}
	return string(k)
}

// NeedsSecond reports whether k plots one column against another.
func (k Kind) NeedsSecond() bool { return k == Correlation }

func (k Kind) numericOnly() bool {
	switch k {
	case Histogram, Box, Line, Scatter, Correlation:
		return true
	}
	return false
}

var (
	// ErrNoData is returned when the selected column has no non-null values.
	ErrNoData = errors.New("column has no non-null values")
	// ErrUnknownColumn is returned for a column not in the dataset.
	ErrUnknownColumn = errors.New("unknown column")
)

// NonNumericError reports a numeric-only chart requested for a non-numeric column.
type NonNumericError struct {
	Kind   Kind
	Column string
}

func (e *NonNumericError) Error() string {
	return fmt.Sprintf("cannot render %s for non-numeric column", e.Kind)
}

// Request selects what to chart. Second is the y column for scatter and
// correlation charts.
type Request struct {
	Kind   Kind   `json:"kind" yaml:"kind"`
	Column string `json:"column" yaml:"column"`
	Second string `json:"second,omitempty" yaml:"second,omitempty"`
}

func (r Request) String() string {
	if r.Second != "" {
		return fmt.Sprintf("%s:%s:%s", r.Kind, r.Column, r.Second)
	}
	return fmt.Sprintf("%s:%s", r.Kind, r.Column)
}

// ParseRequest reads "kind:column" or "kind:column:second".
func ParseRequest(s string) (Request, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return Request{}, fmt.Errorf("chart %q: want kind:column[:second]", s)
	}
	k, err := ParseKind(parts[0])
	if err != nil {
		return Request{}, err
	}
	r := Request{Kind: k, Column: parts[1]}
	if len(parts) == 3 {
		r.Second = parts[2]
	}
	return r, nil
}

// Slice is one category with its count; Percent is set for pie charts.
type Slice struct {
	Label   string  `json:"label" yaml:"label"`
	Count   int     `json:"count" yaml:"count"`
	Percent float64 `json:"percent,omitempty" yaml:"percent,omitempty"`
}

// Bin is a half-open histogram interval [Lo, Hi); the last bin is closed.
type Bin struct {
	Lo    float64 `json:"lo" yaml:"lo"`
	Hi    float64 `json:"hi" yaml:"hi"`
	Count int     `json:"count" yaml:"count"`
}

// BoxSummary is the five-number summary with Tukey whiskers.
type BoxSummary struct {
	Min          float64   `json:"min" yaml:"min"`
	Q1           float64   `json:"q1" yaml:"q1"`
	Median       float64   `json:"median" yaml:"median"`
	Q3           float64   `json:"q3" yaml:"q3"`
	Max          float64   `json:"max" yaml:"max"`
	LowerWhisker float64   `json:"lower_whisker" yaml:"lower_whisker"`
	UpperWhisker float64   `json:"upper_whisker" yaml:"upper_whisker"`
	Outliers     []float64 `json:"outliers" yaml:"outliers"`
}

// Point is one (x, y) pair. For single-column charts X is the row index.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Trend is an ordinary least squares fit y = Slope*x + Intercept.
type Trend struct {
	Slope     float64 `json:"slope" yaml:"slope"`
	Intercept float64 `json:"intercept" yaml:"intercept"`
}

// Chart is the data behind one chart. Only the fields for its Kind are set.
type Chart struct {
	Kind        Kind           `json:"kind" yaml:"kind"`
	Title       string         `json:"title" yaml:"title"`
	Column      string         `json:"column" yaml:"column"`
	Second      string         `json:"second,omitempty" yaml:"second,omitempty"`
	Slices      []Slice        `json:"slices,omitempty" yaml:"slices,omitempty"`
	Bins        []Bin          `json:"bins,omitempty" yaml:"bins,omitempty"`
	Box         *BoxSummary    `json:"box,omitempty" yaml:"box,omitempty"`
	Points      []Point        `json:"points,omitempty" yaml:"points,omitempty"`
	Correlation *analysis.Stat `json:"correlation,omitempty" yaml:"correlation,omitempty"`
	Trend       *Trend         `json:"trend,omitempty" yaml:"trend,omitempty"`
}

// Build computes the chart data for req.
func Build(ds *dataset.Dataset, req Request) (*Chart, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseKind(string(req.Kind)); err != nil {
		return nil, err
	}
	col, ok := ds.Column(req.Column)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownColumn, req.Column)
	}
	if req.Kind.numericOnly() && col.Kind != dataset.KindNumeric {
		return nil, &NonNumericError{Kind: req.Kind, Column: col.Name}
	}
	var second *dataset.Column
	if req.Second != "" && (req.Kind == Scatter || req.Kind == Correlation) {
		second, ok = ds.Column(req.Second)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownColumn, req.Second)
		}
		if second.Kind != dataset.KindNumeric {
			return nil, &NonNumericError{Kind: req.Kind, Column: second.Name}
		}
	}
	if req.Kind.NeedsSecond() && second == nil {
		return nil, fmt.Errorf("%s needs a second column", req.Kind)
	}

	c := &Chart{Kind: req.Kind, Column: col.Name, Title: title(req.Kind, col.Name, second)}
	if second != nil {
		c.Second = second.Name
	}
	switch req.Kind {
	case Bar, Count:
		c.Slices = slices(col, false)
	case Pie:
		c.Slices = slices(col, true)
	case Histogram:
		bins, err := histogram(col.Floats(), HistogramBins)
		if err != nil {
			return nil, err
		}
		c.Bins = bins
	case Box:
		box, err := boxSummary(col.Floats())
		if err != nil {
			return nil, err
		}
		c.Box = box
	case Line:
		c.Points = indexPoints(col)
	case Scatter, Correlation:
		if second == nil {
			c.Points = indexPoints(col)
			break
		}
		c.Points = pairPoints(col, second)
		if req.Kind == Correlation {
			r := analysis.Stat(analysis.PairCorrelation(col, second))
			c.Correlation = &r
			c.Trend = fitTrend(c.Points)
		}
	}
	return c, nil
}

func title(k Kind, column string, second *dataset.Column) string {
	switch {
	case second != nil && k == Correlation:
		return fmt.Sprintf("Correlation: %s vs %s", column, second.Name)
	case second != nil:
		return fmt.Sprintf("Scatter Plot: %s vs %s", column, second.Name)
	}
	return fmt.Sprintf("%s of %s", k.Title(), column)
}

func slices(col *dataset.Column, percent bool) []Slice {
	counts := analysis.ValueCounts(col)
	out := make([]Slice, len(counts))
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	for i, c := range counts {
		out[i] = Slice{Label: c.Value, Count: c.Count}
		if percent && total > 0 {
			out[i].Percent = math.Round(float64(c.Count)/float64(total)*10000) / 100
		}
	}
	return out
}

// histogram splits [min, max] into n equal-width bins. Constant input yields
// a single bin. Infinite and NaN values are not binned.
func histogram(vals []float64, n int) ([]Bin, error) {
	vals = finite(vals)
	if len(vals) == 0 {
		return nil, ErrNoData
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if lo == hi {
		return []Bin{{Lo: lo, Hi: hi, Count: len(vals)}}, nil
	}
	width := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Lo = lo + float64(i)*width
		bins[i].Hi = lo + float64(i+1)*width
	}
	bins[n-1].Hi = hi
	for _, v := range vals {
		i := int((v - lo) / width)
		switch {
		case i >= n:
			i = n - 1
		case i < 0:
			i = 0
		}
		bins[i].Count++
	}
	return bins, nil
}

func isFinite(v float64) bool { return !math.IsInf(v, 0) && !math.IsNaN(v) }

func finite(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

func boxSummary(vals []float64) (*BoxSummary, error) {
	vals = finite(vals)
	if len(vals) == 0 {
		return nil, ErrNoData
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	b := &BoxSummary{
		Min:      sorted[0],
		Q1:       quality.Quantile(sorted, 0.25),
		Median:   quality.Quantile(sorted, 0.5),
		Q3:       quality.Quantile(sorted, 0.75),
		Max:      sorted[len(sorted)-1],
		Outliers: []float64{},
	}
	iqr := b.Q3 - b.Q1
	lo, hi := b.Q1-1.5*iqr, b.Q3+1.5*iqr
	b.LowerWhisker, b.UpperWhisker = b.Max, b.Min
	for _, v := range sorted {
		if v < lo || v > hi {
			b.Outliers = append(b.Outliers, v)
			continue
		}
		b.LowerWhisker = math.Min(b.LowerWhisker, v)
		b.UpperWhisker = math.Max(b.UpperWhisker, v)
	}
	return b, nil
}

func indexPoints(col *dataset.Column) []Point {
	out := make([]Point, 0, col.NonNull())
	for i, v := range col.Values {
		if !v.IsNull() && isFinite(v.Num) {
			out = append(out, Point{X: float64(i), Y: v.Num})
		}
	}
	return out
}

func pairPoints(x, y *dataset.Column) []Point {
	out := make([]Point, 0, len(x.Values))
	for i := range x.Values {
		a, b := x.Values[i], y.Values[i]
		if a.IsNull() || b.IsNull() || !isFinite(a.Num) || !isFinite(b.Num) {
			continue
		}
		out = append(out, Point{X: a.Num, Y: b.Num})
	}
	return out
}

func fitTrend(pts []Point) *Trend {
	if len(pts) < 2 {
		return nil
	}
	var sx, sy, sxx, sxy float64
	for _, p := range pts {
		sx += p.X
		sy += p.Y
		sxx += p.X * p.X
		sxy += p.X * p.Y
	}
	n := float64(len(pts))
	den := n*sxx - sx*sx
	if den == 0 {
		return nil
	}
	slope := (n*sxy - sx*sy) / den
	return &Trend{Slope: slope, Intercept: (sy - slope*sx) / n}
}
