package analysis

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/csvscope-cli/internal/dataset"
	"github.com/KaramelBytes/csvscope-cli/internal/ingest"
)

// Options controls profiling of a loaded dataset.
type Options struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// GroupBy computes per-group summaries for the given column names.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// CorrPerGroup computes correlations per group key.
	CorrPerGroup bool
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
	// Unit normalization: convert values to target units using simple mappings.
	UnitNormalize bool
	UnitTargets   map[string]string // map[fromUnit]toUnit, e.g., {"g/L":"mg/L", "°F":"°C"}
}

// DefaultOptions returns reasonable defaults for dataset profiling.
func DefaultOptions() Options {
	return Options{
		SampleRows:    5,
		UnitNormalize: true,
		UnitTargets: map[string]string{
			"g/L":  "mg/L",
			"ug/L": "mg/L",
			"°F":   "°C",
		},
	}
}

// Report is a markdown-friendly profile of a dataset.
type Report struct {
	Name      string
	Rows      int
	Processed int
	Cols      []ColumnSummary
	Samples   [][]string
	Warnings  []string
	Groups    []GroupResult
	Corr      *CorrMatrix
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|datetime|categorical|text|boolean|unknown
	Unit    string
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key       string
	Size      int
	Metrics   map[string]NumSummary // by column name
	CorrPairs []PairCorr            // top correlation pairs (by |r|)
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// colAcc accumulates one column in a single pass.
type colAcc struct {
	name     string
	unit     string
	origUnit string
	kind     dataset.Kind
	nonNil   int
	miss     int

	// numeric stats via Welford
	n    int
	mean float64
	m2   float64
	min  float64
	max  float64
	vals []float64

	dtCnt  int
	txtCnt int
	cats   map[string]int
	exText []string
}

func (c *colAcc) addNumeric(x float64) {
	c.n++
	if x < c.min {
		c.min = x
	}
	if x > c.max {
		c.max = x
	}
	delta := x - c.mean
	c.mean += delta / float64(c.n)
	c.m2 += delta * (x - c.mean)
	c.vals = append(c.vals, x)
}

func (c *colAcc) addText(v string) {
	c.txtCnt++
	if len(c.cats) <= 10000 && len(v) <= 64 {
		c.cats[v]++
	}
	if len(c.exText) < 3 {
		c.exText = append(c.exText, v)
	}
}

// pairAcc holds exact pairwise sums; rows missing either value are skipped.
type pairAcc struct {
	n, sumX, sumY, sumXX, sumYY, sumXY float64
}

func (p *pairAcc) add(x, y float64) {
	p.n++
	p.sumX += x
	p.sumY += y
	p.sumXX += x * x
	p.sumYY += y * y
	p.sumXY += x * y
}

// r returns the clamped Pearson coefficient, or false when undefined.
func (p *pairAcc) r() (float64, bool) {
	if p == nil || p.n < 2 {
		return 0, false
	}
	denom := math.Sqrt((p.n*p.sumXX - p.sumX*p.sumX) * (p.n*p.sumYY - p.sumY*p.sumY))
	if denom == 0 {
		return 0, false
	}
	r := (p.n*p.sumXY - p.sumX*p.sumY) / denom
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return math.Max(-1, math.Min(1, r)), true
}

type pairSet map[[2]int]*pairAcc

// addRow feeds every pair of numeric values present in one row.
func (ps pairSet) addRow(idxs []int, vals map[int]float64) {
	for a := 1; a < len(idxs); a++ {
		for b := 0; b < a; b++ {
			key := [2]int{idxs[a], idxs[b]}
			pa := ps[key]
			if pa == nil {
				pa = &pairAcc{}
				ps[key] = pa
			}
			pa.add(vals[idxs[a]], vals[idxs[b]])
		}
	}
}

type gAcc struct {
	size  int
	sum   map[int]float64
	cnt   map[int]int
	min   map[int]float64
	max   map[int]float64
	pairs pairSet
}

func (g *gAcc) add(j int, x float64) {
	g.sum[j] += x
	g.cnt[j]++
	if v, ok := g.min[j]; !ok || x < v {
		g.min[j] = x
	}
	if v, ok := g.max[j]; !ok || x > v {
		g.max[j] = x
	}
}

// ProfileResult profiles a loaded file, carrying over its row total and load warnings.
func ProfileResult(res *ingest.Result, opt Options) *Report {
	rep := Profile(res.Dataset, opt)
	if res.TotalRows > rep.Rows {
		rep.Rows = res.TotalRows
	}
	rep.Warnings = append(append([]string(nil), res.Warnings...), rep.Warnings...)
	return rep
}

// Profile summarizes every column of ds. Column kinds come from ingest; text
// columns are further split into datetime, categorical and free text.
func Profile(ds *dataset.Dataset, opt Options) *Report {
	rep := &Report{Name: ds.Name, Rows: ds.NumRows(), Processed: ds.NumRows()}
	ncol := ds.NumCols()
	if ncol == 0 {
		return rep
	}
	// 0 disables the sample table
	sampleRows := max(opt.SampleRows, 0)

	cols := make([]*colAcc, ncol)
	gbIndex := map[string]int{}
	for j, c := range ds.Columns {
		clean, unit := splitUnits(c.Name)
		cols[j] = &colAcc{
			name: clean, unit: unit, origUnit: unit, kind: c.Kind,
			min: math.Inf(1), max: math.Inf(-1), cats: make(map[string]int),
		}
		gbIndex[strings.ToLower(clean)] = j
		gbIndex[strings.ToLower(c.Name)] = j
	}

	pairs := pairSet{}
	groups := map[string]*gAcc{}

	for i := 0; i < rep.Rows; i++ {
		if len(rep.Samples) < sampleRows {
			rep.Samples = append(rep.Samples, ds.Row(i))
		}
		gkey := groupKey(ds, cols, gbIndex, opt.GroupBy, i)
		var ga *gAcc
		if gkey != "" {
			ga = groups[gkey]
			if ga == nil {
				ga = &gAcc{sum: map[int]float64{}, cnt: map[int]int{}, min: map[int]float64{}, max: map[int]float64{}, pairs: pairSet{}}
				groups[gkey] = ga
			}
			ga.size++
		}

		rowNums := make(map[int]float64)
		for j := range ds.Columns {
			v := ds.Columns[j].Values[i]
			c := cols[j]
			if v.IsNull() {
				c.miss++
				continue
			}
			c.nonNil++
			switch c.kind {
			case dataset.KindNumeric:
				if strings.Contains(v.Raw, "%") && c.unit == "" {
					c.unit, c.origUnit = "%", "%"
				}
				x := v.Num
				if opt.UnitNormalize && c.origUnit != "" {
					if nx, nu, ok := normalizeUnit(x, c.origUnit, opt); ok {
						x = nx
						c.unit = nu
					}
				}
				c.addNumeric(x)
				rowNums[j] = x
				if ga != nil {
					ga.add(j, x)
				}
			case dataset.KindOther:
				c.cats[v.Raw]++
			default:
				if _, ok := parseTimeMaybe(strings.TrimSpace(v.Raw)); ok {
					c.dtCnt++
					continue
				}
				c.addText(v.Raw)
			}
		}
		if len(rowNums) >= 2 && (opt.Correlations || (opt.CorrPerGroup && ga != nil)) {
			idxs := make([]int, 0, len(rowNums))
			for j := range rowNums {
				idxs = append(idxs, j)
			}
			sort.Ints(idxs)
			if opt.Correlations {
				pairs.addRow(idxs, rowNums)
			}
			if opt.CorrPerGroup && ga != nil {
				ga.pairs.addRow(idxs, rowNums)
			}
		}
	}

	var numCols []int
	for idx, c := range cols {
		s := summarizeColumn(c, opt)
		if s.Kind == "numeric" {
			numCols = append(numCols, idx)
		}
		rep.Cols = append(rep.Cols, s)
	}
	rep.Groups = buildGroups(groups, cols, numCols, opt.CorrPerGroup)
	if opt.Correlations && len(numCols) >= 2 {
		rep.Corr = buildMatrix(pairs, cols, numCols)
	}
	return rep
}

func groupKey(ds *dataset.Dataset, cols []*colAcc, gbIndex map[string]int, groupBy []string, row int) string {
	if len(groupBy) == 0 {
		return ""
	}
	var parts []string
	for _, name := range groupBy {
		idx, ok := gbIndex[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		val := strings.TrimSpace(ds.Columns[idx].Values[row].Raw)
		parts = append(parts, fmt.Sprintf("%s=%s", cols[idx].name, safeVal(val)))
	}
	return strings.Join(parts, " | ")
}

func summarizeColumn(c *colAcc, opt Options) ColumnSummary {
	s := ColumnSummary{Name: c.name, Unit: c.unit, NonNull: c.nonNil, Missing: c.miss, Kind: "unknown"}
	switch {
	case c.kind == dataset.KindNumeric && c.n > 0:
		s.Kind = "numeric"
		s.Min, s.Max, s.Mean = c.min, c.max, c.mean
		if c.n > 1 {
			s.Std = math.Sqrt(c.m2 / float64(c.n-1))
		}
		s.Unique = countDistinct(c.vals)
		if opt.Outliers && len(c.vals) >= 8 {
			thr := opt.OutlierThreshold
			if thr <= 0 {
				thr = 3.5
			}
			s.OutliersCount, s.OutliersMaxAbsZ = robustOutliers(c.vals, thr)
			s.OutlierThreshold = thr
		}
	case c.kind == dataset.KindOther && len(c.cats) > 0:
		s.Kind = "boolean"
		s.TopValues = topValues(c.cats, 8)
		s.Unique = len(c.cats)
	case c.kind == dataset.KindCategorical && c.dtCnt >= c.txtCnt && c.dtCnt > 0:
		s.Kind = "datetime"
	case len(c.cats) > 0:
		s.Kind = "categorical"
		s.TopValues = topValues(c.cats, 8)
		s.Unique = len(c.cats)
	case c.txtCnt > 0:
		s.Kind = "text"
		s.ExampleTexts = c.exText
	}
	return s
}

func topValues(cats map[string]int, limit int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}

// robustOutliers counts values whose modified Z-score exceeds thr.
func robustOutliers(vals []float64, thr float64) (count int, maxAbsZ float64) {
	median, mad := medianMAD(vals)
	if mad <= 0 {
		return 0, 0
	}
	for _, v := range vals {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > thr {
			count++
		}
		if az > maxAbsZ {
			maxAbsZ = az
		}
	}
	return count, maxAbsZ
}

func buildGroups(groups map[string]*gAcc, cols []*colAcc, numCols []int, perGroupCorr bool) []GroupResult {
	if len(groups) == 0 {
		return nil
	}
	out := make([]GroupResult, 0, len(groups))
	for k, ga := range groups {
		gr := GroupResult{Key: k, Size: ga.size, Metrics: map[string]NumSummary{}}
		for _, idx := range numCols {
			if ga.cnt[idx] == 0 {
				continue
			}
			gr.Metrics[cols[idx].name] = NumSummary{
				Count: ga.cnt[idx], Min: ga.min[idx], Max: ga.max[idx],
				Mean: ga.sum[idx] / float64(ga.cnt[idx]),
			}
		}
		if perGroupCorr {
			gr.CorrPairs = topPairs(ga.pairs, cols, 10)
		}
		out = append(out, gr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		out = out[:20]
	}
	return out
}

// topPairs lists defined correlations by descending |r|. Pair keys hold the
// later column first, so A is always the earlier column.
func topPairs(ps pairSet, cols []*colAcc, limit int) []PairCorr {
	var pairs []PairCorr
	for key, pa := range ps {
		r, ok := pa.r()
		if !ok {
			continue
		}
		pairs = append(pairs, PairCorr{A: cols[key[1]].name, B: cols[key[0]].name, R: r})
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

func buildMatrix(ps pairSet, cols []*colAcc, numCols []int) *CorrMatrix {
	n := len(numCols)
	names := make([]string, n)
	mat := make([][]float64, n)
	for a, ia := range numCols {
		names[a] = cols[ia].name
		mat[a] = make([]float64, n)
		for b, ib := range numCols {
			if a == b {
				mat[a][b] = 1
				continue
			}
			r, _ := ps[[2]int{max(ia, ib), min(ia, ib)}].r()
			mat[a][b] = r
		}
	}
	return &CorrMatrix{Columns: names, Values: mat}
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func normalizeUnit(x float64, unit string, opt Options) (float64, string, bool) {
	target, ok := opt.UnitTargets[unit]
	if !ok {
		return x, unit, false
	}
	switch unit + ">" + target {
	case "g/L>mg/L":
		return x * 1000, target, true
	case "ug/L>mg/L":
		return x / 1000, target, true
	case "°F>°C":
		return (x - 32) * 5.0 / 9.0, target, true
	default:
		return x, unit, false
	}
}

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // e.g., Alpha (%)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // e.g., Mass [mg/L]
	{regexp.MustCompile(`^(.*?)[_\s-]+(mg/L|g/L|ug/L|°[CF]|Brix|%|ppm|ppb)$`), 2},
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}
