package analysis

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/KaramelBytes/csvscope-cli/internal/dataset"
	"github.com/KaramelBytes/csvscope-cli/internal/quality"
)

// ColumnStats is one row of the statistical summary table.
type ColumnStats struct {
	Column      string  `json:"column" yaml:"column"`
	Mean        Stat    `json:"mean" yaml:"mean"`
	Median      Stat    `json:"median" yaml:"median"`
	NullCount   int     `json:"null_count" yaml:"null_count"`
	UniqueCount int     `json:"unique_count" yaml:"unique_count"`
	Skewness    Stat    `json:"skewness" yaml:"skewness"`
}

// Summarize returns Mean, Median, Null Count, Unique Count and Skewness for
// every numeric column, rounded to two decimals. Statistics that are
// undefined for the column (no values, or fewer than three for skewness) are NaN.
func Summarize(ds *dataset.Dataset) []ColumnStats {
	var out []ColumnStats
	for _, c := range ds.ColumnsOf(dataset.KindNumeric) {
		vals := c.Floats()
		out = append(out, ColumnStats{
			Column:      c.Name,
			Mean:        Stat(round2(mean(vals))),
			Median:      Stat(round2(median(vals))),
			NullCount:   c.NullCount(),
			UniqueCount: countDistinct(vals),
			Skewness:    Stat(round2(Skewness(vals))),
		})
	}
	return out
}

// Stat is a statistic that may be undefined. NaN and infinities encode as
// JSON null.
type Stat float64

func (s Stat) MarshalJSON() ([]byte, error) {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// Defined reports whether the statistic has a finite value.
func (s Stat) Defined() bool {
	f := float64(s)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (s Stat) String() string {
	if !s.Defined() {
		return "NaN"
	}
	return strconv.FormatFloat(float64(s), 'f', -1, 64)
}

// Describe holds per-column descriptive statistics in column order. Only one
// of Numeric and Categorical is filled: numeric columns are described when
// present, categorical ones otherwise.
type Describe struct {
	Numeric     []NumericDescribe     `json:"numeric,omitempty" yaml:"numeric,omitempty"`
	Categorical []CategoricalDescribe `json:"categorical,omitempty" yaml:"categorical,omitempty"`
}

type NumericDescribe struct {
	Column string `json:"column" yaml:"column"`
	Count  int    `json:"count" yaml:"count"`
	Mean   Stat   `json:"mean" yaml:"mean"`
	Std    Stat   `json:"std" yaml:"std"`
	Min    Stat   `json:"min" yaml:"min"`
	P25    Stat   `json:"25%" yaml:"25%"`
	P50    Stat   `json:"50%" yaml:"50%"`
	P75    Stat   `json:"75%" yaml:"75%"`
	Max    Stat   `json:"max" yaml:"max"`
}

type CategoricalDescribe struct {
	Column string `json:"column" yaml:"column"`
	Count  int    `json:"count" yaml:"count"`
	Unique int    `json:"unique" yaml:"unique"`
	Top    string `json:"top" yaml:"top"`
	Freq   int    `json:"freq" yaml:"freq"`
}

// DescribeDataset computes descriptive statistics over numeric columns, or
// over the categorical columns when there are no numeric ones.
func DescribeDataset(ds *dataset.Dataset) *Describe {
	out := &Describe{}
	numeric := ds.ColumnsOf(dataset.KindNumeric)
	for _, c := range numeric {
		vals := c.Floats()
		d := NumericDescribe{Column: c.Name, Count: len(vals)}
		nan := Stat(math.NaN())
		d.Mean, d.Std, d.Min, d.P25, d.P50, d.P75, d.Max = nan, nan, nan, nan, nan, nan, nan
		if len(vals) > 0 {
			sorted := append([]float64(nil), vals...)
			sort.Float64s(sorted)
			d.Mean = Stat(mean(vals))
			d.Std = Stat(sampleStd(vals))
			d.Min = Stat(sorted[0])
			d.P25 = Stat(quality.Quantile(sorted, 0.25))
			d.P50 = Stat(quality.Quantile(sorted, 0.5))
			d.P75 = Stat(quality.Quantile(sorted, 0.75))
			d.Max = Stat(sorted[len(sorted)-1])
		}
		out.Numeric = append(out.Numeric, d)
	}
	if len(numeric) > 0 {
		return out
	}
	for _, c := range ds.ColumnsOf(dataset.KindCategorical) {
		counts := ValueCounts(c)
		d := CategoricalDescribe{Column: c.Name, Count: c.NonNull(), Unique: len(counts)}
		if len(counts) > 0 {
			d.Top, d.Freq = counts[0].Value, counts[0].Count
		}
		out.Categorical = append(out.Categorical, d)
	}
	return out
}

// ValueCounts tallies non-null values by descending count. Ties keep first
// appearance order.
func ValueCounts(c *dataset.Column) []CategoryCount {
	idx := map[string]int{}
	var out []CategoryCount
	for _, v := range c.Values {
		if v.IsNull() {
			continue
		}
		key := v.Raw
		if c.Kind == dataset.KindNumeric {
			key = formatNum(v.Num)
		}
		if i, ok := idx[key]; ok {
			out[i].Count++
			continue
		}
		idx[key] = len(out)
		out = append(out, CategoryCount{Value: key, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Correlation computes the Pearson matrix over numeric columns using
// pairwise-complete rows. It returns nil with fewer than two numeric columns.
func Correlation(ds *dataset.Dataset) *CorrMatrix {
	numeric := ds.ColumnsOf(dataset.KindNumeric)
	if len(numeric) < 2 {
		return nil
	}
	n := len(numeric)
	m := &CorrMatrix{Columns: make([]string, n), Values: make([][]float64, n)}
	for i := range numeric {
		m.Columns[i] = numeric[i].Name
		m.Values[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		m.Values[i][i] = PairCorrelation(numeric[i], numeric[i])
		for j := i + 1; j < n; j++ {
			r := PairCorrelation(numeric[i], numeric[j])
			m.Values[i][j], m.Values[j][i] = r, r
		}
	}
	return m
}

// PairCorrelation is Pearson's r over rows where both values are present.
// It is NaN when fewer than two such rows exist or either side is constant.
func PairCorrelation(a, b *dataset.Column) float64 {
	var pa pairAcc
	for i := range a.Values {
		x, y := a.Values[i], b.Values[i]
		if x.IsNull() || y.IsNull() {
			continue
		}
		pa.add(x.Num, y.Num)
	}
	r, ok := pa.r()
	if !ok {
		return math.NaN()
	}
	return r
}

// Skewness is the adjusted Fisher-Pearson coefficient G1. It is NaN below
// three values and 0 for constant input.
func Skewness(vals []float64) float64 {
	n := float64(len(vals))
	if n < 3 {
		return math.NaN()
	}
	m := mean(vals)
	var m2, m3 float64
	for _, v := range vals {
		d := v - m
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 <= 1e-14*math.Max(1, m*m) {
		return 0
	}
	g1 := m3 / math.Pow(m2, 1.5)
	return math.Sqrt(n*(n-1)) / (n - 2) * g1
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	return quality.Quantile(cp, 0.5)
}

func sampleStd(vals []float64) float64 {
	if len(vals) < 2 {
		return math.NaN()
	}
	m := mean(vals)
	var sum float64
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

func countDistinct(vals []float64) int {
	seen := make(map[float64]struct{}, len(vals))
	for _, v := range vals {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (med, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	med = median(vals)
	dev := make([]float64, len(vals))
	for i, v := range vals {
		dev[i] = math.Abs(v - med)
	}
	return med, median(dev)
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*100) / 100
}

func formatNum(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

// MarshalJSON encodes undefined coefficients as null.
func (m *CorrMatrix) MarshalJSON() ([]byte, error) {
	vals := make([][]Stat, len(m.Values))
	for i, row := range m.Values {
		vals[i] = make([]Stat, len(row))
		for j, v := range row {
			vals[i][j] = Stat(v)
		}
	}
	return json.Marshal(struct {
		Columns []string `json:"columns"`
		Values  [][]Stat `json:"values"`
	}{m.Columns, vals})
}
