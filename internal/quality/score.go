// Package quality computes a heuristic 0-100 data quality score from
// summary statistics of a dataset.
package quality

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/csvscope-cli/internal/dataset"
)

// FactorID identifies one weighted sub-score.
type FactorID string

const (
	FactorMissing    FactorID = "missing_values"
	FactorDuplicates FactorID = "duplicates"
	FactorTypes      FactorID = "type_balance"
	FactorNaming     FactorID = "column_naming"
	FactorVolume     FactorID = "volume"
	FactorOutliers   FactorID = "outliers"
)

// Factor weights. They sum to 100.
const (
	weightMissing    = 25.0
	weightDuplicates = 15.0
	weightTypes      = 20.0
	weightNaming     = 10.0
	weightVolume     = 15.0
	weightOutliers   = 15.0
)

// invalidNameChars are the characters that make a column name non-standard.
const invalidNameChars = " -*/."

// Factor is one weighted contribution to the total score.
type Factor struct {
	ID            FactorID `json:"id" yaml:"id"`
	Label         string   `json:"label" yaml:"label"`
	Earned        float64  `json:"earned" yaml:"earned"`
	Max           float64  `json:"max" yaml:"max"`
	Detail        string   `json:"detail" yaml:"detail"`
	NotApplicable bool     `json:"not_applicable,omitempty" yaml:"not_applicable,omitempty"`
}

func (f Factor) String() string {
	if f.NotApplicable {
		return fmt.Sprintf("%s: N/A (%s)", f.Label, f.Detail)
	}
	return fmt.Sprintf("%s: %.1f/%g (%s)", f.Label, f.Earned, f.Max, f.Detail)
}

// Report is the result of one scoring call.
type Report struct {
	Total   float64  `json:"total_score" yaml:"total_score"`
	Factors []Factor `json:"factors" yaml:"factors"`
}

// Score computes the quality report for ds. It only fails for a nil or
// non-rectangular dataset; every degenerate shape yields a finite score.
func Score(ds *dataset.Dataset) (*Report, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	rows, cols := ds.NumRows(), ds.NumCols()
	rep := &Report{Factors: make([]Factor, 0, 6)}
	rep.Factors = append(rep.Factors,
		missingFactor(ds, rows, cols),
		duplicateFactor(ds, rows),
		typeFactor(ds, cols),
		namingFactor(ds, cols),
		volumeFactor(rows, cols),
		outlierFactor(ds, rows),
	)
	var total float64
	for _, f := range rep.Factors {
		if !f.NotApplicable {
			total += f.Earned
		}
	}
	rep.Total = clamp(total, 0, 100)
	return rep, nil
}

func missingFactor(ds *dataset.Dataset, rows, cols int) Factor {
	var nulls int
	for i := range ds.Columns {
		nulls += ds.Columns[i].NullCount()
	}
	ratio := 0.0
	if cells := rows * cols; cells > 0 {
		ratio = float64(nulls) / float64(cells)
	}
	return Factor{
		ID:     FactorMissing,
		Label:  "Missing values",
		Earned: weightMissing * (1 - ratio),
		Max:    weightMissing,
		Detail: fmt.Sprintf("%.1f%% missing", ratio*100),
	}
}

func duplicateFactor(ds *dataset.Dataset, rows int) Factor {
	seen := make(map[uint64][]int, rows)
	var dups int
next:
	for i := 0; i < rows; i++ {
		h := ds.RowHash(i)
		for _, j := range seen[h] {
			if ds.RowsEqual(i, j) {
				dups++
				continue next
			}
		}
		seen[h] = append(seen[h], i)
	}
	ratio := 0.0
	if rows > 0 {
		ratio = float64(dups) / float64(rows)
	}
	return Factor{
		ID:     FactorDuplicates,
		Label:  "Duplicates",
		Earned: weightDuplicates * (1 - ratio),
		Max:    weightDuplicates,
		Detail: fmt.Sprintf("%.1f%% duplicates", ratio*100),
	}
}

func typeFactor(ds *dataset.Dataset, cols int) Factor {
	numeric := len(ds.ColumnsOf(dataset.KindNumeric))
	categorical := len(ds.ColumnsOf(dataset.KindCategorical))
	diff := math.Abs(float64(numeric - categorical))
	return Factor{
		ID:     FactorTypes,
		Label:  "Data Types",
		Earned: weightTypes * (1 - diff/float64(max(1, cols))),
		Max:    weightTypes,
		Detail: fmt.Sprintf("%d numeric, %d categorical", numeric, categorical),
	}
}

func namingFactor(ds *dataset.Dataset, cols int) Factor {
	invalid := len(InvalidColumnNames(ds))
	return Factor{
		ID:     FactorNaming,
		Label:  "Column Names",
		Earned: weightNaming * (1 - float64(invalid)/float64(max(1, cols))),
		Max:    weightNaming,
		Detail: fmt.Sprintf("%d columns with special chars", invalid),
	}
}

// InvalidColumnNames lists the column names containing a space, '-', '*',
// '/' or '.', in column order.
func InvalidColumnNames(ds *dataset.Dataset) []string {
	var out []string
	for _, c := range ds.Columns {
		if strings.ContainsAny(c.Name, invalidNameChars) {
			out = append(out, c.Name)
		}
	}
	return out
}

func volumeFactor(rows, cols int) Factor {
	return Factor{
		ID:     FactorVolume,
		Label:  "Data Volume",
		Earned: math.Min(weightVolume, float64(rows*cols)/1000),
		Max:    weightVolume,
		Detail: fmt.Sprintf("%d rows × %d columns", rows, cols),
	}
}

func outlierFactor(ds *dataset.Dataset, rows int) Factor {
	f := Factor{ID: FactorOutliers, Label: "Outliers", Max: weightOutliers}
	numeric := ds.ColumnsOf(dataset.KindNumeric)
	if len(numeric) == 0 {
		f.NotApplicable = true
		f.Detail = "no numeric columns"
		return f
	}
	var sum float64
	var n int
	for _, c := range numeric {
		vals := c.Floats()
		if len(vals) == 0 {
			continue
		}
		sum += 1 - float64(IQROutliers(vals))/float64(rows)
		n++
	}
	if n == 0 {
		f.NotApplicable = true
		f.Detail = "no valid numeric columns for analysis"
		return f
	}
	f.Earned = weightOutliers * sum / float64(n)
	f.Detail = fmt.Sprintf("%d numeric columns analysed", n)
	return f
}

// IQROutliers counts values outside [Q1-1.5*IQR, Q3+1.5*IQR]. A column with
// no spread (IQR == 0) has no outliers.
func IQROutliers(vals []float64) int {
	q1, q3 := Quartiles(vals)
	iqr := q3 - q1
	if iqr <= 0 {
		return 0
	}
	lo, hi := q1-1.5*iqr, q3+1.5*iqr
	var n int
	for _, v := range vals {
		if v < lo || v > hi {
			n++
		}
	}
	return n
}

// Quartiles returns the 25th and 75th percentiles using linear interpolation
// between closest ranks. vals is not modified.
func Quartiles(vals []float64) (q1, q3 float64) {
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	return Quantile(cp, 0.25), Quantile(cp, 0.75)
}

// Quantile returns the q-quantile of sorted values with linear interpolation.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
