package quality

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/csvscope-cli/internal/dataset"
)

func TestLabelFor(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{100, "Excellent"},
		{90, "Excellent"},
		{89.99, "Good"},
		{75, "Good"},
		{74.9, "Fair"},
		{60, "Fair"},
		{59.9, "Needs Improvement"},
		{40, "Needs Improvement"},
		{39.9, "Poor"},
		{0, "Poor"},
	}
	for _, tc := range cases {
		if got := LabelFor(tc.score); got != tc.want {
			t.Fatalf("LabelFor(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func reportWith(total float64, earned map[FactorID]float64, na bool) *Report {
	r := &Report{Total: total}
	for _, id := range []FactorID{FactorMissing, FactorDuplicates, FactorTypes, FactorNaming, FactorVolume, FactorOutliers} {
		f := Factor{ID: id, Earned: earned[id]}
		if id == FactorOutliers {
			f.NotApplicable = na
		}
		r.Factors = append(r.Factors, f)
	}
	return r
}

func TestRecommendations_OnlyBelowThreshold(t *testing.T) {
	low := map[FactorID]float64{}
	assert.Nil(t, reportWith(75, low, false).Recommendations())

	recs := reportWith(74.9, low, false).Recommendations()
	assert.Equal(t, []string{
		"Consider handling missing values (imputation or removal)",
		"Remove duplicate rows",
		"Validate and convert data types appropriately",
		"Standardize column names (remove special characters)",
		"Investigate and handle outliers in numeric columns",
	}, recs)
}

func TestRecommendations_PerFactorCutoffs(t *testing.T) {
	r := reportWith(50, map[FactorID]float64{
		FactorMissing:    20,
		FactorDuplicates: 11.9,
		FactorTypes:      15,
		FactorNaming:     7.9,
		FactorOutliers:   12,
	}, false)
	assert.Equal(t, []string{
		"Remove duplicate rows",
		"Standardize column names (remove special characters)",
	}, r.Recommendations())
}

func TestRecommendations_CutoffsUsePrintedValue(t *testing.T) {
	r := reportWith(50, map[FactorID]float64{
		FactorMissing:    19.96,
		FactorDuplicates: 11.94,
		FactorTypes:      15,
		FactorNaming:     7.94,
		FactorOutliers:   11.951,
	}, false)
	// 19.96 and 11.951 print as 20.0 and 12.0
	assert.Equal(t, []string{
		"Remove duplicate rows",
		"Standardize column names (remove special characters)",
	}, r.Recommendations())
}

func TestRecommendations_SkipNotApplicableOutliers(t *testing.T) {
	r := reportWith(10, map[FactorID]float64{
		FactorMissing: 25, FactorDuplicates: 15, FactorTypes: 20, FactorNaming: 10,
	}, true)
	assert.Empty(t, r.Recommendations())
}

func TestMarkdown(t *testing.T) {
	rep := mustScore(t,
		catCol("first name", "a", "a", "b"),
		catCol("city", "x", "x", ""),
	)
	md := rep.Markdown()
	assert.True(t, strings.HasPrefix(md, "[DATA QUALITY SCORE]\n"))
	assert.Contains(t, md, "[FACTORS]\n- Missing values: ")
	assert.Contains(t, md, "- Outliers: N/A (no numeric columns)")
	require.Less(t, rep.Total, 75.0)
	assert.Contains(t, md, "[RECOMMENDATIONS]\n")
	assert.Contains(t, md, "- Validate and convert data types appropriately")
}

func TestCachedScorer_SharesResultsByContent(t *testing.T) {
	s := NewCachedScorer(time.Hour, 8)
	cols := func() []dataset.Column {
		return []dataset.Column{numCol("a", 1, 2, 3), catCol("b", "x", "y", "z")}
	}
	a, err := dataset.New("a.csv", cols())
	require.NoError(t, err)
	b, err := dataset.New("b.csv", cols())
	require.NoError(t, err)

	var wg sync.WaitGroup
	reports := make([]*Report, 8)
	for i := range reports {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ds := a
			if i%2 == 1 {
				ds = b
			}
			r, err := s.Score(ds)
			assert.NoError(t, err)
			reports[i] = r
		}(i)
	}
	wg.Wait()

	want, err := Score(a)
	require.NoError(t, err)
	for _, r := range reports {
		assert.Equal(t, want, r)
	}
	st := s.Stats()
	assert.Equal(t, uint64(1), st.Computes)
	assert.Equal(t, 1, st.Entries)
}

func TestCachedScorer_DistinctContentNeverShared(t *testing.T) {
	s := NewCachedScorer(time.Hour, 8)
	a, err := dataset.New("a.csv", []dataset.Column{catCol("c", "a\x1f", "a\x1f")})
	require.NoError(t, err)
	b, err := dataset.New("b.csv", []dataset.Column{catCol("c", "a", "\x1fa\x1f")})
	require.NoError(t, err)

	ra, err := s.Score(a)
	require.NoError(t, err)
	rb, err := s.Score(b)
	require.NoError(t, err)

	wantA, err := Score(a)
	require.NoError(t, err)
	wantB, err := Score(b)
	require.NoError(t, err)
	assert.Equal(t, wantA, ra)
	assert.Equal(t, wantB, rb)
	assert.NotEqual(t, ra.Total, rb.Total)
	assert.Equal(t, uint64(2), s.Stats().Computes)
}

func TestCachedScorer_InvalidInput(t *testing.T) {
	s := NewCachedScorer(time.Hour, 8)
	_, err := s.Score(nil)
	assert.True(t, dataset.IsInvalidInput(err))
	assert.Equal(t, uint64(0), s.Stats().Computes)
}
